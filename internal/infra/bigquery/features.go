package bigquery

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/credit-scoring/internal/features"
)

type CustomerFeatureRow struct {
	RunID      string `bigquery:"run_id"`      // REQUIRED
	CustomerID string `bigquery:"customer_id"` // REQUIRED

	SnapshotDate civil.Date `bigquery:"snapshot_date"` // REQUIRED

	TransactionCount int64   `bigquery:"transaction_count"` // REQUIRED
	TotalAmount      float64 `bigquery:"total_amount"`      // REQUIRED
	AvgAmount        float64 `bigquery:"avg_amount"`        // REQUIRED
	StdAmount        float64 `bigquery:"std_amount"`        // REQUIRED
	MinAmount        float64 `bigquery:"min_amount"`        // REQUIRED
	MaxAmount        float64 `bigquery:"max_amount"`        // REQUIRED

	Recency   int64   `bigquery:"recency"`   // REQUIRED
	Frequency int64   `bigquery:"frequency"` // REQUIRED
	Monetary  float64 `bigquery:"monetary"`  // REQUIRED

	Cluster    int64 `bigquery:"cluster"`      // REQUIRED
	IsHighRisk int64 `bigquery:"is_high_risk"` // REQUIRED (0 or 1)

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED (default CURRENT_TIMESTAMP)
}

// NewCustomerFeatureRows builds one feature row per customer from a finished
// scoring run. Customers present in the risk table but absent from the
// aggregate table (or vice versa) are skipped.
func NewCustomerFeatureRows(runID string, snapshot time.Time, risk []features.RiskRFM, aggs []features.CustomerAggregate) []*CustomerFeatureRow {
	byCustomer := make(map[string]features.CustomerAggregate, len(aggs))
	for _, a := range aggs {
		byCustomer[a.CustomerID] = a
	}

	now := time.Now().UTC()
	rows := make([]*CustomerFeatureRow, 0, len(risk))
	for _, r := range risk {
		agg, ok := byCustomer[r.CustomerID]
		if !ok {
			continue
		}
		rows = append(rows, &CustomerFeatureRow{
			RunID:            runID,
			CustomerID:       r.CustomerID,
			SnapshotDate:     civil.DateOf(snapshot),
			TransactionCount: int64(agg.TransactionCount),
			TotalAmount:      agg.TotalAmount,
			AvgAmount:        agg.AvgAmount,
			StdAmount:        agg.StdAmount,
			MinAmount:        agg.MinAmount,
			MaxAmount:        agg.MaxAmount,
			Recency:          int64(r.Recency),
			Frequency:        int64(r.Frequency),
			Monetary:         r.Monetary,
			Cluster:          int64(r.Cluster),
			IsHighRisk:       int64(r.IsHighRisk),
			CreatedTS:        now,
		})
	}
	return rows
}
