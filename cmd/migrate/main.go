package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	infraBQ "github.com/dvloznov/credit-scoring/internal/infra/bigquery"
)

var (
	projectID = flag.String("project", os.Getenv("BQ_PROJECT"), "GCP project ID (or set BQ_PROJECT env)")
	datasetID = flag.String("dataset", "credit_scoring", "BigQuery dataset ID")
	location  = flag.String("location", "EU", "BigQuery dataset location")
)

func main() {
	flag.Parse()

	ctx := context.Background()

	// Validate required flags
	if *projectID == "" {
		log.Fatal("Error: -project flag (or BQ_PROJECT env) is required. Please specify your GCP project ID.")
	}

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatalf("Failed to create BigQuery client: %v", err)
	}
	defer client.Close()

	log.Printf("Connected to BigQuery project: %s, dataset: %s", *projectID, *datasetID)

	dataset := client.Dataset(*datasetID)
	if err := ensureDataset(ctx, dataset); err != nil {
		log.Fatalf("Failed to ensure dataset: %v", err)
	}

	if err := ensureFeaturesTable(ctx, dataset); err != nil {
		log.Fatalf("Failed to ensure customer_features table: %v", err)
	}

	log.Println("Schema is up to date.")
}

// ensureDataset creates the dataset if it does not exist yet.
func ensureDataset(ctx context.Context, dataset *bigquery.Dataset) error {
	_, err := dataset.Metadata(ctx)
	if err == nil {
		log.Printf("  [SKIP] dataset %s (already exists)", dataset.DatasetID)
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("dataset metadata: %w", err)
	}

	log.Printf("  [RUN]  create dataset %s", dataset.DatasetID)
	if err := dataset.Create(ctx, &bigquery.DatasetMetadata{Location: *location}); err != nil {
		return fmt.Errorf("creating dataset: %w", err)
	}
	log.Printf("  [OK]   dataset %s", dataset.DatasetID)
	return nil
}

// ensureFeaturesTable creates the customer_features table from the row struct
// schema if it does not exist yet.
func ensureFeaturesTable(ctx context.Context, dataset *bigquery.Dataset) error {
	table := dataset.Table("customer_features")

	_, err := table.Metadata(ctx)
	if err == nil {
		log.Printf("  [SKIP] table customer_features (already exists)")
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("table metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(infraBQ.CustomerFeatureRow{})
	if err != nil {
		return fmt.Errorf("inferring schema: %w", err)
	}

	log.Printf("  [RUN]  create table customer_features")
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "snapshot_date",
		},
		Clustering: &bigquery.Clustering{Fields: []string{"run_id", "customer_id"}},
	}
	if err := table.Create(ctx, meta); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	log.Printf("  [OK]   table customer_features")
	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
