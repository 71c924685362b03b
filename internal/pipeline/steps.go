package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/credit-scoring/internal/dataset"
	"github.com/dvloznov/credit-scoring/internal/features"
	"github.com/dvloznov/credit-scoring/internal/gcs"
)

// FetchSourceStep resolves the source URI into raw bytes. Local paths read
// from disk; gs:// URIs go through the storage service. A state that already
// carries raw bytes (inline scoring) passes through untouched.
type FetchSourceStep struct {
	Storage gcs.StorageService
}

func (s *FetchSourceStep) Execute(ctx context.Context, state *RunState) error {
	if state.Raw != nil {
		return nil
	}

	if strings.HasPrefix(state.SourceURI, "gs://") {
		if s.Storage == nil {
			return fmt.Errorf("FetchSourceStep: no storage service configured for %s", state.SourceURI)
		}
		data, err := s.Storage.Fetch(ctx, state.SourceURI)
		if err != nil {
			return err
		}
		state.Raw = data
		return nil
	}

	data, err := os.ReadFile(state.SourceURI)
	if err != nil {
		return fmt.Errorf("FetchSourceStep: read %q: %w", state.SourceURI, err)
	}
	state.Raw = data
	return nil
}

// LoadTransactionsStep parses the raw CSV bytes into transactions.
type LoadTransactionsStep struct {
	Columns dataset.Columns
}

func (s *LoadTransactionsStep) Execute(ctx context.Context, state *RunState) error {
	txs, err := dataset.Load(bytes.NewReader(state.Raw), s.Columns)
	if err != nil {
		return err
	}
	state.Transactions = txs
	return nil
}

// HandleMissingStep resolves missing amounts before any feature math runs.
type HandleMissingStep struct {
	Engineer *features.Engineer
	Strategy features.Strategy
}

func (s *HandleMissingStep) Execute(ctx context.Context, state *RunState) error {
	txs, err := s.Engineer.HandleMissing(state.Transactions, s.Strategy)
	if err != nil {
		return err
	}
	state.Transactions = txs
	return nil
}

// DatetimeFeaturesStep expands transaction timestamps into calendar columns.
type DatetimeFeaturesStep struct {
	Engineer *features.Engineer
}

func (s *DatetimeFeaturesStep) Execute(ctx context.Context, state *RunState) error {
	state.Rows = s.Engineer.DatetimeFeatures(state.Transactions)
	return nil
}

// EncodeCategoriesStep ordinal-encodes the category column onto each row.
// The encoder is fitted fresh per run; its state is not retained.
type EncodeCategoriesStep struct{}

func (s *EncodeCategoriesStep) Execute(ctx context.Context, state *RunState) error {
	if len(state.Rows) == 0 {
		return nil
	}

	values := make([]string, len(state.Rows))
	for i, row := range state.Rows {
		values[i] = row.Category
	}
	codes := features.NewOrdinalEncoder().FitTransform(values)
	for i := range state.Rows {
		state.Rows[i].CategoryCode = codes[i]
	}
	return nil
}

// AggregateStep computes per-customer amount aggregates.
type AggregateStep struct {
	Engineer *features.Engineer
}

func (s *AggregateStep) Execute(ctx context.Context, state *RunState) error {
	state.Aggregates = s.Engineer.Aggregates(state.Transactions)
	return nil
}

// RFMStep computes per-customer RFM metrics and records the snapshot date.
type RFMStep struct {
	Engineer *features.Engineer
}

func (s *RFMStep) Execute(ctx context.Context, state *RunState) error {
	state.RFM, state.Snapshot = s.Engineer.RFMFeatures(state.Transactions)
	return nil
}

// ProxyTargetStep clusters customers and assigns the proxy risk label. An
// empty dataset passes through; a non-empty dataset with fewer customers
// than clusters fails.
type ProxyTargetStep struct {
	Engineer *features.Engineer
}

func (s *ProxyTargetStep) Execute(ctx context.Context, state *RunState) error {
	if len(state.RFM) == 0 {
		state.Risk = nil
		return nil
	}
	risk, err := s.Engineer.ProxyTarget(state.RFM)
	if err != nil {
		return err
	}
	state.Risk = risk
	return nil
}

// MergeRiskStep joins the per-customer risk fields back onto every
// transaction row and assembles the final result.
type MergeRiskStep struct{}

func (s *MergeRiskStep) Execute(ctx context.Context, state *RunState) error {
	byCustomer := make(map[string]features.RiskRFM, len(state.Risk))
	for _, r := range state.Risk {
		byCustomer[r.CustomerID] = r
	}

	processed := make([]ProcessedRow, 0, len(state.Rows))
	for _, row := range state.Rows {
		risk, ok := byCustomer[row.CustomerID]
		if !ok {
			return fmt.Errorf("MergeRiskStep: customer %q has no risk label", row.CustomerID)
		}
		processed = append(processed, ProcessedRow{
			Row:        row,
			Recency:    risk.Recency,
			Frequency:  risk.Frequency,
			Monetary:   risk.Monetary,
			Cluster:    risk.Cluster,
			IsHighRisk: risk.IsHighRisk,
		})
	}

	state.Result = &Result{
		RunID:      state.RunID,
		Snapshot:   state.Snapshot,
		Processed:  processed,
		RFM:        state.Risk,
		Aggregates: state.Aggregates,
	}
	return nil
}
