package bigquery

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const (
	defaultProjectID      = "studious-union-470122-v7"
	datasetID             = "credit_scoring"
	customerFeaturesTable = "customer_features"
)

// projectID resolves the GCP project: the BQ_PROJECT environment variable
// overrides the default, so insert/query and cmd/migrate can target the
// same project.
func projectID() string {
	if p := os.Getenv("BQ_PROJECT"); p != "" {
		return p
	}
	return defaultProjectID
}

// InsertCustomerFeatures inserts a batch of CustomerFeatureRow into
// credit_scoring.customer_features.
func InsertCustomerFeatures(ctx context.Context, rows []*CustomerFeatureRow) error {
	client, err := bigquery.NewClient(ctx, projectID())
	if err != nil {
		return fmt.Errorf("InsertCustomerFeatures: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertCustomerFeaturesWithClient(ctx, client, rows)
}

// InsertCustomerFeaturesWithClient inserts a batch of CustomerFeatureRow into
// credit_scoring.customer_features using the provided BigQuery client.
func InsertCustomerFeaturesWithClient(ctx context.Context, client *bigquery.Client, rows []*CustomerFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	// Use fully qualified table name to avoid project ID issues
	table := client.DatasetInProject(projectID(), datasetID).Table(customerFeaturesTable)
	inserter := table.Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertCustomerFeatures: inserting rows: %w", err)
	}

	return nil
}

// QueryFeaturesByRun returns every customer feature row produced by a run.
func QueryFeaturesByRun(ctx context.Context, runID string) ([]*CustomerFeatureRow, error) {
	client, err := bigquery.NewClient(ctx, projectID())
	if err != nil {
		return nil, fmt.Errorf("QueryFeaturesByRun: bigquery client: %w", err)
	}
	defer client.Close()

	return QueryFeaturesByRunWithClient(ctx, client, runID)
}

// QueryFeaturesByRunWithClient returns every customer feature row produced by
// a run using the provided BigQuery client.
func QueryFeaturesByRunWithClient(ctx context.Context, client *bigquery.Client, runID string) ([]*CustomerFeatureRow, error) {
	q := client.Query(`
		SELECT
			f.run_id,
			f.customer_id,
			f.snapshot_date,
			f.transaction_count,
			f.total_amount,
			f.avg_amount,
			f.std_amount,
			f.min_amount,
			f.max_amount,
			f.recency,
			f.frequency,
			f.monetary,
			f.cluster,
			f.is_high_risk,
			f.created_ts
		FROM credit_scoring.customer_features f
		WHERE f.run_id = @run_id
		ORDER BY f.customer_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	return readFeatureRows(ctx, q, "QueryFeaturesByRun")
}

// QueryHighRiskCustomers returns the rows a run flagged as high risk, most
// recent customers first.
func QueryHighRiskCustomers(ctx context.Context, runID string) ([]*CustomerFeatureRow, error) {
	client, err := bigquery.NewClient(ctx, projectID())
	if err != nil {
		return nil, fmt.Errorf("QueryHighRiskCustomers: bigquery client: %w", err)
	}
	defer client.Close()

	return QueryHighRiskCustomersWithClient(ctx, client, runID)
}

// QueryHighRiskCustomersWithClient returns the rows a run flagged as high risk
// using the provided BigQuery client.
func QueryHighRiskCustomersWithClient(ctx context.Context, client *bigquery.Client, runID string) ([]*CustomerFeatureRow, error) {
	q := client.Query(`
		SELECT
			f.run_id,
			f.customer_id,
			f.snapshot_date,
			f.transaction_count,
			f.total_amount,
			f.avg_amount,
			f.std_amount,
			f.min_amount,
			f.max_amount,
			f.recency,
			f.frequency,
			f.monetary,
			f.cluster,
			f.is_high_risk,
			f.created_ts
		FROM credit_scoring.customer_features f
		WHERE f.run_id = @run_id
		  AND f.is_high_risk = 1
		ORDER BY f.recency DESC, f.customer_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	return readFeatureRows(ctx, q, "QueryHighRiskCustomers")
}

func readFeatureRows(ctx context.Context, q *bigquery.Query, op string) ([]*CustomerFeatureRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", op, err)
	}

	var rows []*CustomerFeatureRow
	for {
		var r CustomerFeatureRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iter next: %w", op, err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
