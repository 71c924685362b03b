package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dvloznov/credit-scoring/internal/features"
	"github.com/dvloznov/credit-scoring/internal/pipeline"
)

// MockStorageService is an in-memory gcs.StorageService for testing.
type MockStorageService struct {
	Objects map[string][]byte
}

func (m *MockStorageService) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	data, ok := m.Objects[gcsURI]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", gcsURI)
	}
	return data, nil
}

func (m *MockStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return nil
}

func (m *MockStorageService) ObjectName(uri string) string {
	parts := strings.Split(uri, "/")
	return parts[len(parts)-1]
}

// sampleDataset spreads 60 transactions over three customers with clearly
// different activity levels: one frequent big spender, one mid-tier, one
// dormant customer with a couple of small old purchases.
func sampleDataset() []byte {
	var b strings.Builder
	b.WriteString("customer_id,transaction_date,amount,category\n")

	// Active: 40 transactions through December.
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "CUST_001,2023-%02d-%02d,%d,grocery\n", i%12+1, i%28+1, 200+i*5)
	}
	// Mid: 17 transactions through June.
	for i := 0; i < 17; i++ {
		fmt.Fprintf(&b, "CUST_002,2023-%02d-%02d,%d,electronics\n", i%6+1, i%28+1, 80+i)
	}
	// Dormant: 3 small transactions in January.
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, "CUST_003,2023-01-%02d,%d,clothing\n", i+2, 10+i)
	}
	return []byte(b.String())
}

func testOptions() pipeline.Options {
	return pipeline.Options{Seed: 42}
}

func TestProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")
	if err := os.WriteFile(path, sampleDataset(), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := pipeline.ProcessFile(context.Background(), path, testOptions())
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}

	if len(result.Processed) != 60 {
		t.Errorf("got %d processed rows, want 60", len(result.Processed))
	}
	if len(result.RFM) != 3 {
		t.Errorf("got %d RFM rows, want 3", len(result.RFM))
	}
	if len(result.Aggregates) != 3 {
		t.Errorf("got %d aggregate rows, want 3", len(result.Aggregates))
	}

	// Every processed row carries its customer's risk fields.
	byCustomer := map[string]features.RiskRFM{}
	for _, r := range result.RFM {
		byCustomer[r.CustomerID] = r
	}
	for i, row := range result.Processed {
		risk, ok := byCustomer[row.CustomerID]
		if !ok {
			t.Fatalf("row %d: customer %q missing from RFM table", i, row.CustomerID)
		}
		if row.IsHighRisk != risk.IsHighRisk || row.Cluster != risk.Cluster {
			t.Errorf("row %d: risk fields diverge from RFM table", i)
		}
		if row.Recency != risk.Recency || row.Frequency != risk.Frequency || row.Monetary != risk.Monetary {
			t.Errorf("row %d: RFM fields diverge from RFM table", i)
		}
	}

	// Labels are binary, someone is flagged, and not everyone is.
	var flagged int
	for _, r := range result.RFM {
		if r.IsHighRisk != 0 && r.IsHighRisk != 1 {
			t.Errorf("%s: IsHighRisk = %d", r.CustomerID, r.IsHighRisk)
		}
		flagged += r.IsHighRisk
	}
	if flagged == 0 || flagged == len(result.RFM) {
		t.Errorf("flagged %d of %d customers, want a proper split", flagged, len(result.RFM))
	}

	// The category column is ordinal-encoded, originals retained.
	for i, row := range result.Processed {
		if row.CategoryCode < 0 {
			t.Errorf("row %d: category %q not encoded", i, row.Category)
		}
		if row.Category == "" {
			t.Errorf("row %d: original category lost", i)
		}
	}
}

func TestProcessFile_Deterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")
	if err := os.WriteFile(path, sampleDataset(), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := pipeline.ProcessFile(context.Background(), path, testOptions())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := pipeline.ProcessFile(context.Background(), path, testOptions())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !reflect.DeepEqual(first.RFM, second.RFM) {
		t.Error("RFM tables differ across identical runs")
	}
	if !reflect.DeepEqual(first.Processed, second.Processed) {
		t.Error("processed tables differ across identical runs")
	}
}

func TestProcessFile_GCSSource(t *testing.T) {
	storage := &MockStorageService{Objects: map[string][]byte{
		"gs://datasets/transactions.csv": sampleDataset(),
	}}

	opts := testOptions()
	opts.Storage = storage

	result, err := pipeline.ProcessFile(context.Background(), "gs://datasets/transactions.csv", opts)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if len(result.RFM) != 3 {
		t.Errorf("got %d RFM rows, want 3", len(result.RFM))
	}
}

func TestProcessFile_GCSWithoutStorage(t *testing.T) {
	_, err := pipeline.ProcessFile(context.Background(), "gs://bucket/data.csv", testOptions())
	if err == nil {
		t.Fatal("expected error when no storage service is configured")
	}
}

func TestProcessData_Empty(t *testing.T) {
	result, err := pipeline.ProcessData(context.Background(), []byte("customer_id,transaction_date,amount\n"), testOptions())
	if err != nil {
		t.Fatalf("ProcessData on empty table: %v", err)
	}
	if len(result.Processed) != 0 || len(result.RFM) != 0 {
		t.Errorf("expected empty outputs, got %d/%d rows", len(result.Processed), len(result.RFM))
	}
}

func TestProcessData_TooFewCustomers(t *testing.T) {
	csv := "customer_id,transaction_date,amount\nCUST_001,2023-01-01,100\nCUST_002,2023-01-02,50\n"
	_, err := pipeline.ProcessData(context.Background(), []byte(csv), testOptions())
	if err == nil {
		t.Fatal("expected insufficient-data error for two customers")
	}
	if !errors.Is(err, features.ErrInsufficientData) {
		t.Errorf("error = %v, want ErrInsufficientData", err)
	}
}

func TestProcessData_MissingAmounts(t *testing.T) {
	csv := "customer_id,transaction_date,amount\n" +
		"CUST_001,2023-01-01,100\n" +
		"CUST_001,2023-01-05,\n" +
		"CUST_002,2023-02-01,50\n" +
		"CUST_003,2023-03-01,70\n"

	opts := testOptions()
	opts.Strategy = features.StrategyMean

	result, err := pipeline.ProcessData(context.Background(), []byte(csv), opts)
	if err != nil {
		t.Fatalf("ProcessData: %v", err)
	}
	for i, row := range result.Processed {
		if !row.HasAmount() {
			t.Errorf("row %d still has a missing amount after imputation", i)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	result, err := pipeline.ProcessData(context.Background(), sampleDataset(), testOptions())
	if err != nil {
		t.Fatalf("ProcessData: %v", err)
	}

	var processed bytes.Buffer
	if err := pipeline.WriteProcessedCSV(&processed, result); err != nil {
		t.Fatalf("WriteProcessedCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(processed.String()), "\n")
	if len(lines) != 61 { // header + 60 rows
		t.Errorf("processed CSV has %d lines, want 61", len(lines))
	}
	if !strings.Contains(lines[0], "is_high_risk") {
		t.Errorf("processed CSV header missing risk column: %s", lines[0])
	}

	var rfm bytes.Buffer
	if err := pipeline.WriteRFMCSV(&rfm, result); err != nil {
		t.Fatalf("WriteRFMCSV: %v", err)
	}
	lines = strings.Split(strings.TrimSpace(rfm.String()), "\n")
	if len(lines) != 4 { // header + 3 customers
		t.Errorf("RFM CSV has %d lines, want 4", len(lines))
	}
}

func TestWriteCSV_EmptyResult(t *testing.T) {
	result, err := pipeline.ProcessData(context.Background(), []byte("customer_id,transaction_date,amount\n"), testOptions())
	if err != nil {
		t.Fatalf("ProcessData: %v", err)
	}

	var buf bytes.Buffer
	if err := pipeline.WriteRFMCSV(&buf, result); err != nil {
		t.Fatalf("WriteRFMCSV on empty result: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "customer_id") {
		t.Errorf("expected header-only output, got %q", buf.String())
	}
}
