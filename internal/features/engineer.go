// Package features derives model-ready features from raw transaction data:
// calendar decomposition of timestamps, per-customer amount aggregates,
// RFM (recency/frequency/monetary) metrics, a clustering-based proxy risk
// label, ordinal category encoding, and missing-value imputation.
package features

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults for proxy-target clustering.
const (
	// DefaultClusters is the number of k-means clusters used for risk segmentation.
	DefaultClusters = 3

	// DefaultSeed is the random seed used when the caller does not supply one.
	DefaultSeed = 42

	// maxKMeansIterations bounds Lloyd iterations; assignments converge long
	// before this on the small per-customer tables this package handles.
	maxKMeansIterations = 100
)

// Config controls feature computation.
type Config struct {
	// Clusters is the number of k-means clusters for proxy labeling.
	// Zero means DefaultClusters.
	Clusters int

	// Seed drives cluster initialization. The same input and seed always
	// produce the same cluster assignments and risk labels. Zero means
	// DefaultSeed.
	Seed int64

	// SnapshotDate is the reference date for recency. The zero value means
	// "one day after the latest transaction in the input".
	SnapshotDate time.Time
}

// Engineer computes transaction features. Aside from the configuration it is
// stateless; every method derives its output from its input alone.
type Engineer struct {
	cfg Config
	log zerolog.Logger
}

// New creates an Engineer, applying defaults for unset config fields.
func New(cfg Config, log zerolog.Logger) *Engineer {
	if cfg.Clusters <= 0 {
		cfg.Clusters = DefaultClusters
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}
	return &Engineer{cfg: cfg, log: log}
}
