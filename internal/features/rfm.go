package features

import (
	"time"

	"github.com/dvloznov/credit-scoring/internal/domain"
)

// RFM holds the recency/frequency/monetary metrics for one customer.
type RFM struct {
	CustomerID string  `json:"customer_id"`
	Recency    int     `json:"recency"`   // whole days since last transaction, >= 0
	Frequency  int     `json:"frequency"` // transaction count, > 0
	Monetary   float64 `json:"monetary"`  // sum of amounts
}

// RFMFeatures computes per-customer RFM metrics and returns them together
// with the snapshot date recency was measured against. When the Engineer has
// no explicit SnapshotDate configured, the snapshot is one day after the
// latest transaction date in the input, so the most recent customer gets
// recency 1. A table with a single distinct customer is handled like any
// other. Empty input yields empty output.
func (e *Engineer) RFMFeatures(txs []domain.Transaction) ([]RFM, time.Time) {
	if len(txs) == 0 {
		return nil, e.cfg.SnapshotDate
	}

	snapshot := e.cfg.SnapshotDate
	if snapshot.IsZero() {
		maxDate := txs[0].Date
		for _, tx := range txs[1:] {
			if tx.Date.After(maxDate) {
				maxDate = tx.Date
			}
		}
		snapshot = maxDate.AddDate(0, 0, 1)
	}

	var order []string
	last := make(map[string]time.Time)
	count := make(map[string]int)
	sum := make(map[string]float64)
	for _, tx := range txs {
		if _, seen := count[tx.CustomerID]; !seen {
			order = append(order, tx.CustomerID)
			last[tx.CustomerID] = tx.Date
		} else if tx.Date.After(last[tx.CustomerID]) {
			last[tx.CustomerID] = tx.Date
		}
		count[tx.CustomerID]++
		sum[tx.CustomerID] += tx.Amount
	}

	out := make([]RFM, 0, len(order))
	for _, id := range order {
		recency := int(snapshot.Sub(last[id]).Hours() / 24)
		if recency < 0 {
			recency = 0
		}
		out = append(out, RFM{
			CustomerID: id,
			Recency:    recency,
			Frequency:  count[id],
			Monetary:   sum[id],
		})
	}
	return out, snapshot
}
