// Package pipeline orchestrates a credit-risk scoring run: fetch a raw
// transaction dataset, derive features, cluster customers into risk tiers,
// and merge the proxy risk label back onto every transaction row.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-scoring/internal/dataset"
	"github.com/dvloznov/credit-scoring/internal/domain"
	"github.com/dvloznov/credit-scoring/internal/features"
	"github.com/dvloznov/credit-scoring/internal/gcs"
)

// Options configure a scoring run.
type Options struct {
	// Columns maps source CSV columns; zero value means dataset.DefaultColumns.
	Columns dataset.Columns

	// Strategy handles missing amounts; empty means DefaultStrategy.
	Strategy features.Strategy

	// Clusters and Seed configure proxy risk labeling; zero means defaults.
	Clusters int
	Seed     int64

	// SnapshotDate optionally fixes the recency reference date.
	SnapshotDate time.Time

	// Storage resolves gs:// sources. Only needed for remote datasets.
	Storage gcs.StorageService

	// Log receives per-step progress. Zero value logs nothing.
	Log zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Columns == (dataset.Columns{}) {
		o.Columns = dataset.DefaultColumns()
	}
	if o.Strategy == "" {
		o.Strategy = DefaultStrategy
	}
	if o.Clusters <= 0 {
		o.Clusters = DefaultClusters
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	return o
}

// ProcessedRow is one transaction with every derived feature and its
// customer's risk fields merged on.
type ProcessedRow struct {
	features.Row

	Recency    int     `json:"recency"`
	Frequency  int     `json:"frequency"`
	Monetary   float64 `json:"monetary"`
	Cluster    int     `json:"cluster"`
	IsHighRisk int     `json:"is_high_risk"`
}

// Result bundles the outputs of a scoring run: the per-transaction processed
// table and the per-customer RFM table, both carrying risk labels, plus the
// per-customer amount aggregates and the snapshot date recency was measured
// against.
type Result struct {
	RunID      string
	Snapshot   time.Time
	Processed  []ProcessedRow
	RFM        []features.RiskRFM
	Aggregates []features.CustomerAggregate
}

// RunState holds the shared state across scoring steps.
type RunState struct {
	RunID     string
	SourceURI string
	Raw       []byte

	Transactions []domain.Transaction
	Rows         []features.Row
	Aggregates   []features.CustomerAggregate
	RFM          []features.RFM
	Snapshot     time.Time
	Risk         []features.RiskRFM

	Result *Result
}

// Step is a single stage of a scoring run.
type Step interface {
	Execute(ctx context.Context, state *RunState) error
}

// Pipeline executes a sequence of steps in order, failing fast.
type Pipeline struct {
	steps []Step
	log   zerolog.Logger
}

// NewPipeline creates a pipeline from the given steps.
func NewPipeline(log zerolog.Logger, steps ...Step) *Pipeline {
	return &Pipeline{steps: steps, log: log}
}

// Execute runs all steps sequentially against the shared state.
func (p *Pipeline) Execute(ctx context.Context, state *RunState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%T) failed: %w", i+1, step, err)
		}
	}
	return nil
}

// NewScoringPipeline builds the standard scoring pipeline.
func NewScoringPipeline(opts Options) *Pipeline {
	opts = opts.withDefaults()
	eng := features.New(features.Config{
		Clusters:     opts.Clusters,
		Seed:         opts.Seed,
		SnapshotDate: opts.SnapshotDate,
	}, opts.Log)

	return NewPipeline(opts.Log,
		&FetchSourceStep{Storage: opts.Storage},
		&LoadTransactionsStep{Columns: opts.Columns},
		&HandleMissingStep{Engineer: eng, Strategy: opts.Strategy},
		&DatetimeFeaturesStep{Engineer: eng},
		&EncodeCategoriesStep{},
		&AggregateStep{Engineer: eng},
		&RFMStep{Engineer: eng},
		&ProxyTargetStep{Engineer: eng},
		&MergeRiskStep{},
	)
}

// ProcessFile runs the full scoring pipeline over a local CSV path or a
// gs:// URI and returns both output tables. It is the single-call entry
// point used by the CLI, the worker and the API.
func ProcessFile(ctx context.Context, source string, opts Options) (*Result, error) {
	state := &RunState{
		RunID:     uuid.NewString(),
		SourceURI: source,
	}

	opts.Log.Info().
		Str("run_id", state.RunID).
		Str("source", source).
		Msg("scoring run started")

	if err := NewScoringPipeline(opts).Execute(ctx, state); err != nil {
		return nil, err
	}

	opts.Log.Info().
		Str("run_id", state.RunID).
		Int("transactions", len(state.Result.Processed)).
		Int("customers", len(state.Result.RFM)).
		Msg("scoring run finished")

	return state.Result, nil
}

// ProcessData scores an in-memory CSV payload. Used by the synchronous API
// endpoint where the dataset arrives in the request body.
func ProcessData(ctx context.Context, data []byte, opts Options) (*Result, error) {
	state := &RunState{
		RunID:     uuid.NewString(),
		SourceURI: "inline",
		Raw:       data,
	}
	if err := NewScoringPipeline(opts).Execute(ctx, state); err != nil {
		return nil, err
	}
	return state.Result, nil
}
