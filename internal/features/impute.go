package features

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/dvloznov/credit-scoring/internal/domain"
)

// Strategy selects how missing numeric values are handled.
type Strategy string

// Supported missing-data strategies.
const (
	StrategyMedian Strategy = "median" // replace with the column median
	StrategyMean   Strategy = "mean"   // replace with the column mean
	StrategyMode   Strategy = "mode"   // replace with the most frequent value
	StrategyZero   Strategy = "zero"   // replace with 0
	StrategyDrop   Strategy = "drop"   // drop rows with missing values
)

// ParseStrategy validates a strategy string from configuration.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyMedian, StrategyMean, StrategyMode, StrategyZero, StrategyDrop:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("ParseStrategy: unsupported missing-data strategy %q (want median, mean, mode, zero or drop)", s)
}

// ImputeColumn applies the strategy to one numeric column, where NaN marks a
// missing value. Fill strategies return a slice of the same length with no
// NaN left; StrategyDrop removes missing entries, so the result may be
// shorter. A column with no observed values fills with 0.
func ImputeColumn(values []float64, strategy Strategy) ([]float64, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	if strategy == StrategyDrop {
		out := make([]float64, 0, len(values))
		for _, v := range values {
			if !math.IsNaN(v) {
				out = append(out, v)
			}
		}
		return out, nil
	}

	fill := fillValue(values, strategy)
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = fill
		} else {
			out[i] = v
		}
	}
	return out, nil
}

// HandleMissing applies the strategy to the numeric columns of the
// transaction table (the amount column). After a fill strategy every
// transaction has an observed amount; StrategyDrop removes incomplete rows.
// An empty input passes through unchanged.
func (e *Engineer) HandleMissing(txs []domain.Transaction, strategy Strategy) ([]domain.Transaction, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, fmt.Errorf("HandleMissing: %w", err)
	}
	if len(txs) == 0 {
		return txs, nil
	}

	if strategy == StrategyDrop {
		out := make([]domain.Transaction, 0, len(txs))
		for _, tx := range txs {
			if tx.HasAmount() {
				out = append(out, tx)
			}
		}
		return out, nil
	}

	amounts := make([]float64, len(txs))
	for i, tx := range txs {
		amounts[i] = tx.Amount
	}
	fill := fillValue(amounts, strategy)

	out := make([]domain.Transaction, len(txs))
	copy(out, txs)
	filled := 0
	for i := range out {
		if !out[i].HasAmount() {
			out[i].Amount = fill
			filled++
		}
	}
	if filled > 0 {
		e.log.Debug().
			Int("filled", filled).
			Str("strategy", string(strategy)).
			Msg("imputed missing amounts")
	}
	return out, nil
}

// fillValue computes the replacement value for a fill strategy from the
// observed (non-NaN) entries. No observed entries yields 0.
func fillValue(values []float64, strategy Strategy) float64 {
	observed := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return 0
	}

	switch strategy {
	case StrategyMean:
		return stat.Mean(observed, nil)
	case StrategyMedian:
		return median(observed)
	case StrategyMode:
		return mode(observed)
	default: // StrategyZero
		return 0
	}
}

// median interpolates between the two middle elements for even lengths.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// mode returns the most frequent value; ties resolve to the smallest value
// so the result does not depend on map iteration order.
func mode(values []float64) float64 {
	counts := make(map[float64]int)
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := math.Inf(1), 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}
