// Package dataset loads raw transaction tables from delimited text files.
package dataset

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/dvloznov/credit-scoring/internal/domain"
)

// Columns maps source CSV column names onto transaction fields. Category is
// optional; an empty name or absent column loads as "".
type Columns struct {
	Customer string
	Date     string
	Amount   string
	Category string
}

// DefaultColumns returns the standard column layout of transaction exports.
func DefaultColumns() Columns {
	return Columns{
		Customer: "customer_id",
		Date:     "transaction_date",
		Amount:   "amount",
		Category: "category",
	}
}

// dateLayouts are the calendar-date formats the loader accepts, tried in
// order. Anything else is a hard parse error.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Load reads a delimited transaction table. A missing amount loads as NaN
// for the imputation step to resolve; an unparseable date or amount is an
// error, never silently coerced. An empty table (header only or no bytes)
// yields an empty result.
func Load(r io.Reader, cols Columns) ([]domain.Transaction, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Load: read input: %w", err)
	}
	// Gota errors on a frame with no rows, so header-only and blank inputs
	// short-circuit before it sees them.
	if !hasDataRows(raw) {
		return nil, nil
	}

	df := dataframe.ReadCSV(bytes.NewReader(raw),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if err := df.Error(); err != nil {
		return nil, fmt.Errorf("Load: read csv: %w", err)
	}
	if df.Nrow() == 0 {
		return nil, nil
	}

	names := make(map[string]bool, len(df.Names()))
	for _, n := range df.Names() {
		names[n] = true
	}
	for _, required := range []string{cols.Customer, cols.Date, cols.Amount} {
		if !names[required] {
			return nil, fmt.Errorf("Load: missing required column %q", required)
		}
	}

	ids := df.Col(cols.Customer).Records()
	dates := df.Col(cols.Date).Records()
	amounts := df.Col(cols.Amount).Records()

	var categories []string
	if cols.Category != "" && names[cols.Category] {
		categories = df.Col(cols.Category).Records()
	}

	txs := make([]domain.Transaction, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		date, err := parseDate(dates[i])
		if err != nil {
			return nil, fmt.Errorf("Load: row %d: %w", i+1, err)
		}
		amount, err := parseAmount(amounts[i])
		if err != nil {
			return nil, fmt.Errorf("Load: row %d: %w", i+1, err)
		}

		tx := domain.Transaction{
			CustomerID: strings.TrimSpace(ids[i]),
			Date:       date,
			Amount:     amount,
		}
		if categories != nil {
			tx.Category = strings.TrimSpace(categories[i])
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// LoadFile reads a transaction table from a local path.
func LoadFile(path string, cols Columns) ([]domain.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: open %q: %w", path, err)
	}
	defer f.Close()

	return Load(f, cols)
}

// hasDataRows reports whether the input holds at least one row after the
// header line.
func hasDataRows(raw []byte) bool {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return false
	}
	i := strings.IndexByte(s, '\n')
	return i >= 0 && strings.TrimSpace(s[i+1:]) != ""
}

func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// parseAmount treats empty and NA-style markers as missing (NaN).
func parseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	switch s {
	case "", "NA", "NaN", "nan", "null", "NULL":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", raw)
	}
	return v, nil
}
