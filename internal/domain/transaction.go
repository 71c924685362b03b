package domain

import (
	"math"
	"time"
)

// Transaction represents one raw transaction row from the source dataset.
// Amount is NaN when the source value was missing; the imputation step of
// the pipeline guarantees no NaN survives into feature computation.
type Transaction struct {
	CustomerID string    `json:"customer_id"`        // customer identifier; repeats across rows
	Date       time.Time `json:"transaction_date"`   // transaction timestamp
	Amount     float64   `json:"amount"`             // transaction amount, NaN if missing
	Category   string    `json:"category,omitempty"` // optional merchant category
}

// HasAmount reports whether the transaction carries an observed amount.
func (t Transaction) HasAmount() bool {
	return !math.IsNaN(t.Amount)
}
