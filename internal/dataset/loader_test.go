package dataset

import (
	"math"
	"strings"
	"testing"
	"time"
)

const sampleCSV = `customer_id,transaction_date,amount,category
CUST_001,2023-01-15,100.50,grocery
CUST_002,2023-02-20 14:30:00,75.25,electronics
CUST_001,2023-03-10,,clothing
CUST_003,2023-04-01T09:00:00,200,grocery
`

func TestLoad(t *testing.T) {
	txs, err := Load(strings.NewReader(sampleCSV), DefaultColumns())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(txs) != 4 {
		t.Fatalf("got %d transactions, want 4", len(txs))
	}

	if txs[0].CustomerID != "CUST_001" || txs[0].Amount != 100.50 || txs[0].Category != "grocery" {
		t.Errorf("row 0 = %+v", txs[0])
	}
	if want := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC); !txs[0].Date.Equal(want) {
		t.Errorf("row 0 date = %v, want %v", txs[0].Date, want)
	}

	if want := time.Date(2023, 2, 20, 14, 30, 0, 0, time.UTC); !txs[1].Date.Equal(want) {
		t.Errorf("row 1 date = %v, want %v", txs[1].Date, want)
	}

	// Missing amount loads as NaN, not zero.
	if !math.IsNaN(txs[2].Amount) {
		t.Errorf("row 2 amount = %v, want NaN", txs[2].Amount)
	}

	if want := time.Date(2023, 4, 1, 9, 0, 0, 0, time.UTC); !txs[3].Date.Equal(want) {
		t.Errorf("row 3 date = %v, want %v", txs[3].Date, want)
	}
}

func TestLoad_UnparseableDate(t *testing.T) {
	csv := "customer_id,transaction_date,amount\nCUST_001,15/01/2023,100\n"
	_, err := Load(strings.NewReader(csv), DefaultColumns())
	if err == nil {
		t.Fatal("expected parse error for non-standard date")
	}
	if !strings.Contains(err.Error(), "date") {
		t.Errorf("error = %v, want date parse error", err)
	}
}

func TestLoad_UnparseableAmount(t *testing.T) {
	csv := "customer_id,transaction_date,amount\nCUST_001,2023-01-15,ten\n"
	_, err := Load(strings.NewReader(csv), DefaultColumns())
	if err == nil {
		t.Fatal("expected parse error for non-numeric amount")
	}
}

func TestLoad_MissingColumn(t *testing.T) {
	csv := "customer_id,amount\nCUST_001,100\n"
	_, err := Load(strings.NewReader(csv), DefaultColumns())
	if err == nil {
		t.Fatal("expected error for missing date column")
	}
	if !strings.Contains(err.Error(), "transaction_date") {
		t.Errorf("error = %v, want missing-column error naming transaction_date", err)
	}
}

func TestLoad_NoCategoryColumn(t *testing.T) {
	csv := "customer_id,transaction_date,amount\nCUST_001,2023-01-15,100\n"
	txs, err := Load(strings.NewReader(csv), DefaultColumns())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if txs[0].Category != "" {
		t.Errorf("category = %q without category column, want empty", txs[0].Category)
	}
}

func TestLoad_CustomColumns(t *testing.T) {
	csv := "cid,ts,value\nA,2023-01-01,5\n"
	cols := Columns{Customer: "cid", Date: "ts", Amount: "value"}
	txs, err := Load(strings.NewReader(csv), cols)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if txs[0].CustomerID != "A" || txs[0].Amount != 5 {
		t.Errorf("row = %+v", txs[0])
	}
}

func TestLoad_Empty(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "no bytes", csv: ""},
		{name: "whitespace only", csv: "  \n\t\n"},
		{name: "header only", csv: "customer_id,transaction_date,amount\n"},
		{name: "header without newline", csv: "customer_id,transaction_date,amount"},
		{name: "header and blank lines", csv: "customer_id,transaction_date,amount\n\n   \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := Load(strings.NewReader(tt.csv), DefaultColumns())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(txs) != 0 {
				t.Errorf("got %d transactions, want 0", len(txs))
			}
		})
	}
}
