package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// FeatureRepository persists and reads back customer feature rows.
type FeatureRepository interface {
	InsertCustomerFeatures(ctx context.Context, rows []*CustomerFeatureRow) error
	QueryFeaturesByRun(ctx context.Context, runID string) ([]*CustomerFeatureRow, error)
	QueryHighRiskCustomers(ctx context.Context, runID string) ([]*CustomerFeatureRow, error)
}

// BigQueryFeatureRepository is the concrete implementation of
// FeatureRepository that interacts with BigQuery. It holds a shared client to
// avoid creating a new connection for each operation.
type BigQueryFeatureRepository struct {
	client *bigquery.Client
}

// NewBigQueryFeatureRepository creates a new instance of
// BigQueryFeatureRepository with a shared BigQuery client.
func NewBigQueryFeatureRepository(ctx context.Context) (*BigQueryFeatureRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID())
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryFeatureRepository: creating client: %w", err)
	}
	return &BigQueryFeatureRepository{
		client: client,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryFeatureRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertCustomerFeatures delegates to InsertCustomerFeatures with the shared client.
func (r *BigQueryFeatureRepository) InsertCustomerFeatures(ctx context.Context, rows []*CustomerFeatureRow) error {
	return InsertCustomerFeaturesWithClient(ctx, r.client, rows)
}

// QueryFeaturesByRun delegates to QueryFeaturesByRun with the shared client.
func (r *BigQueryFeatureRepository) QueryFeaturesByRun(ctx context.Context, runID string) ([]*CustomerFeatureRow, error) {
	return QueryFeaturesByRunWithClient(ctx, r.client, runID)
}

// QueryHighRiskCustomers delegates to QueryHighRiskCustomers with the shared client.
func (r *BigQueryFeatureRepository) QueryHighRiskCustomers(ctx context.Context, runID string) ([]*CustomerFeatureRow, error) {
	return QueryHighRiskCustomersWithClient(ctx, r.client, runID)
}
