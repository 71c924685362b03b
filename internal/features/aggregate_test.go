package features

import (
	"math"
	"testing"
	"time"

	"github.com/dvloznov/credit-scoring/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2023, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregates(t *testing.T) {
	eng := testEngineer(Config{})

	txs := []domain.Transaction{
		{CustomerID: "CUST_001", Date: day(1), Amount: 100},
		{CustomerID: "CUST_002", Date: day(2), Amount: 50},
		{CustomerID: "CUST_001", Date: day(3), Amount: 200},
		{CustomerID: "CUST_001", Date: day(5), Amount: 300},
	}

	aggs := eng.Aggregates(txs)
	if len(aggs) != 2 {
		t.Fatalf("got %d aggregate rows, want 2", len(aggs))
	}

	// First-seen order.
	if aggs[0].CustomerID != "CUST_001" || aggs[1].CustomerID != "CUST_002" {
		t.Fatalf("unexpected order: %q, %q", aggs[0].CustomerID, aggs[1].CustomerID)
	}

	a := aggs[0]
	if a.TransactionCount != 3 {
		t.Errorf("TransactionCount = %d, want 3", a.TransactionCount)
	}
	if a.TotalAmount != 600 {
		t.Errorf("TotalAmount = %v, want 600", a.TotalAmount)
	}
	if a.AvgAmount != 200 {
		t.Errorf("AvgAmount = %v, want 200", a.AvgAmount)
	}
	if a.MinAmount != 100 || a.MaxAmount != 300 {
		t.Errorf("Min/Max = %v/%v, want 100/300", a.MinAmount, a.MaxAmount)
	}
	if want := 100.0; math.Abs(a.StdAmount-want) > 1e-9 { // sample std of {100,200,300}
		t.Errorf("StdAmount = %v, want %v", a.StdAmount, want)
	}
}

func TestAggregates_DuplicateDatesCountEachRow(t *testing.T) {
	eng := testEngineer(Config{})

	// Two of the three rows share a date; all three must count.
	txs := []domain.Transaction{
		{CustomerID: "CUST_001", Date: day(1), Amount: 100},
		{CustomerID: "CUST_001", Date: day(1), Amount: 100},
		{CustomerID: "CUST_001", Date: day(2), Amount: 200},
	}

	aggs := eng.Aggregates(txs)
	if len(aggs) != 1 {
		t.Fatalf("got %d aggregate rows, want 1", len(aggs))
	}
	if aggs[0].TransactionCount != 3 {
		t.Errorf("TransactionCount = %d, want 3", aggs[0].TransactionCount)
	}
	if aggs[0].TotalAmount != 400 {
		t.Errorf("TotalAmount = %v, want 400", aggs[0].TotalAmount)
	}
}

func TestAggregates_SingleTransactionStdIsZero(t *testing.T) {
	eng := testEngineer(Config{})

	aggs := eng.Aggregates([]domain.Transaction{
		{CustomerID: "CUST_001", Date: day(1), Amount: 42},
	})
	if len(aggs) != 1 {
		t.Fatalf("got %d aggregate rows, want 1", len(aggs))
	}
	if aggs[0].StdAmount != 0 {
		t.Errorf("StdAmount = %v for a single transaction, want 0", aggs[0].StdAmount)
	}
	if aggs[0].MinAmount != 42 || aggs[0].MaxAmount != 42 || aggs[0].AvgAmount != 42 {
		t.Errorf("degenerate stats wrong: %+v", aggs[0])
	}
}

func TestAggregates_Empty(t *testing.T) {
	eng := testEngineer(Config{})
	if aggs := eng.Aggregates(nil); len(aggs) != 0 {
		t.Errorf("got %d aggregate rows for empty input, want 0", len(aggs))
	}
}
