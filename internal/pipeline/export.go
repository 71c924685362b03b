package pipeline

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

var processedHeader = []string{
	"customer_id", "transaction_date", "amount", "category", "category_encoded",
	"hour", "day_of_week", "day_of_month", "month", "year", "is_weekend",
	"recency", "frequency", "monetary", "cluster", "is_high_risk",
}

var rfmHeader = []string{
	"customer_id", "recency", "frequency", "monetary", "cluster", "is_high_risk",
}

// WriteProcessedCSV writes the per-transaction output table.
func WriteProcessedCSV(w io.Writer, result *Result) error {
	records := [][]string{processedHeader}
	for _, row := range result.Processed {
		records = append(records, []string{
			row.CustomerID,
			row.Date.Format("2006-01-02 15:04:05"),
			formatFloat(row.Amount),
			row.Category,
			strconv.Itoa(row.CategoryCode),
			strconv.Itoa(row.Hour),
			strconv.Itoa(row.DayOfWeek),
			strconv.Itoa(row.DayOfMonth),
			strconv.Itoa(row.Month),
			strconv.Itoa(row.Year),
			strconv.Itoa(row.IsWeekend),
			strconv.Itoa(row.Recency),
			strconv.Itoa(row.Frequency),
			formatFloat(row.Monetary),
			strconv.Itoa(row.Cluster),
			strconv.Itoa(row.IsHighRisk),
		})
	}
	return writeRecords(w, records, "WriteProcessedCSV")
}

// WriteRFMCSV writes the per-customer RFM output table.
func WriteRFMCSV(w io.Writer, result *Result) error {
	records := [][]string{rfmHeader}
	for _, r := range result.RFM {
		records = append(records, []string{
			r.CustomerID,
			strconv.Itoa(r.Recency),
			strconv.Itoa(r.Frequency),
			formatFloat(r.Monetary),
			strconv.Itoa(r.Cluster),
			strconv.Itoa(r.IsHighRisk),
		})
	}
	return writeRecords(w, records, "WriteRFMCSV")
}

// WriteProcessedFile and WriteRFMFile write the output tables to local paths.
func WriteProcessedFile(path string, result *Result) error {
	return writeFile(path, result, WriteProcessedCSV)
}

func WriteRFMFile(path string, result *Result) error {
	return writeFile(path, result, WriteRFMCSV)
}

func writeFile(path string, result *Result, write func(io.Writer, *Result) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writeFile: create %q: %w", path, err)
	}
	defer f.Close()

	if err := write(f, result); err != nil {
		return err
	}
	return f.Close()
}

func writeRecords(w io.Writer, records [][]string, op string) error {
	if len(records) == 1 {
		// Header only: gota refuses to build an empty frame.
		if _, err := io.WriteString(w, strings.Join(records[0], ",")+"\n"); err != nil {
			return fmt.Errorf("%s: write header: %w", op, err)
		}
		return nil
	}

	df := dataframe.LoadRecords(records)
	if err := df.Error(); err != nil {
		return fmt.Errorf("%s: build table: %w", op, err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("%s: write csv: %w", op, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
