package features

import (
	"time"

	"github.com/dvloznov/credit-scoring/internal/domain"
)

// Row is one transaction expanded with calendar feature columns.
// The original transaction fields are preserved unchanged.
type Row struct {
	domain.Transaction

	Hour       int `json:"hour"`         // [0,23]
	DayOfWeek  int `json:"day_of_week"`  // [0,6], Monday=0
	DayOfMonth int `json:"day_of_month"` // [1,31]
	Month      int `json:"month"`        // [1,12]
	Year       int `json:"year"`
	IsWeekend  int `json:"is_weekend"` // 1 iff Saturday or Sunday

	// CategoryCode is filled in by the encoding step; -1 until then.
	CategoryCode int `json:"category_encoded"`
}

// DatetimeFeatures expands each transaction's timestamp into calendar
// columns. Day-of-week follows the Monday=0..Sunday=6 convention, and
// IsWeekend is 1 exactly when DayOfWeek is 5 or 6.
func (e *Engineer) DatetimeFeatures(txs []domain.Transaction) []Row {
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, datetimeRow(tx))
	}
	return rows
}

func datetimeRow(tx domain.Transaction) Row {
	dow := mondayIndexed(tx.Date.Weekday())
	weekend := 0
	if dow >= 5 {
		weekend = 1
	}
	return Row{
		Transaction:  tx,
		Hour:         tx.Date.Hour(),
		DayOfWeek:    dow,
		DayOfMonth:   tx.Date.Day(),
		Month:        int(tx.Date.Month()),
		Year:         tx.Date.Year(),
		IsWeekend:    weekend,
		CategoryCode: -1,
	}
}

// mondayIndexed converts Go's Sunday=0 weekday to the Monday=0 convention.
func mondayIndexed(d time.Weekday) int {
	return (int(d) + 6) % 7
}
