package bigquery

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/credit-scoring/internal/features"
)

func TestNewCustomerFeatureRows(t *testing.T) {
	snapshot := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)

	risk := []features.RiskRFM{
		{RFM: features.RFM{CustomerID: "CUST_001", Recency: 3, Frequency: 12, Monetary: 2400}, Cluster: 0, IsHighRisk: 0},
		{RFM: features.RFM{CustomerID: "CUST_002", Recency: 150, Frequency: 2, Monetary: 30}, Cluster: 2, IsHighRisk: 1},
		{RFM: features.RFM{CustomerID: "CUST_999", Recency: 1, Frequency: 1, Monetary: 10}, Cluster: 1, IsHighRisk: 0},
	}
	aggs := []features.CustomerAggregate{
		{CustomerID: "CUST_001", TransactionCount: 12, TotalAmount: 2400, AvgAmount: 200, StdAmount: 15, MinAmount: 180, MaxAmount: 230},
		{CustomerID: "CUST_002", TransactionCount: 2, TotalAmount: 30, AvgAmount: 15, StdAmount: 7, MinAmount: 10, MaxAmount: 20},
	}

	rows := NewCustomerFeatureRows("run-1", snapshot, risk, aggs)

	// CUST_999 has no aggregate row and is dropped.
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.RunID != "run-1" || first.CustomerID != "CUST_001" {
		t.Errorf("unexpected identity fields: %+v", first)
	}
	if first.SnapshotDate != civil.DateOf(snapshot) {
		t.Errorf("SnapshotDate = %v, want %v", first.SnapshotDate, civil.DateOf(snapshot))
	}
	if first.TransactionCount != 12 || first.TotalAmount != 2400 || first.AvgAmount != 200 {
		t.Errorf("aggregate fields not carried over: %+v", first)
	}
	if first.Recency != 3 || first.Frequency != 12 || first.Monetary != 2400 {
		t.Errorf("RFM fields not carried over: %+v", first)
	}

	second := rows[1]
	if second.CustomerID != "CUST_002" || second.IsHighRisk != 1 || second.Cluster != 2 {
		t.Errorf("risk fields not carried over: %+v", second)
	}

	for i, r := range rows {
		if r.CreatedTS.IsZero() {
			t.Errorf("row %d: CreatedTS not set", i)
		}
	}
}

func TestProjectID(t *testing.T) {
	t.Setenv("BQ_PROJECT", "")
	if got := projectID(); got != defaultProjectID {
		t.Errorf("projectID() = %q, want default %q", got, defaultProjectID)
	}

	t.Setenv("BQ_PROJECT", "analytics-prod")
	if got := projectID(); got != "analytics-prod" {
		t.Errorf("projectID() = %q, want env override", got)
	}
}

func TestNewCustomerFeatureRows_Empty(t *testing.T) {
	rows := NewCustomerFeatureRows("run-1", time.Now(), nil, nil)
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}
