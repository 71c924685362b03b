package pipeline

import "github.com/dvloznov/credit-scoring/internal/features"

// Defaults for scoring runs. Each can be overridden per run via Options.
const (
	// DefaultStrategy is the imputation strategy applied to missing amounts.
	DefaultStrategy = features.StrategyMedian

	// DefaultClusters is the cluster count for proxy risk labeling.
	DefaultClusters = features.DefaultClusters

	// DefaultSeed makes scoring runs reproducible out of the box.
	DefaultSeed = features.DefaultSeed
)
