package features

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientData is returned when the RFM table holds fewer customers
// than the requested cluster count.
var ErrInsufficientData = errors.New("insufficient data for requested cluster count")

// RiskRFM is an RFM row extended with its cluster id and proxy risk label.
type RiskRFM struct {
	RFM

	Cluster    int `json:"cluster"`      // k-means cluster id, [0, k)
	IsHighRisk int `json:"is_high_risk"` // 1 for the least-engaged cluster, 0 otherwise
}

// ProxyTarget segments customers into risk tiers by clustering their
// standardized RFM features with k-means and flags the least-engaged
// segment as high risk.
//
// The high-risk cluster is picked by an explicit ranking rule over the
// cluster means of the standardized features: the cluster maximizing
// mean(recency) - mean(frequency) - mean(monetary), i.e. customers who
// bought long ago, rarely, and spent little. Cluster ids themselves carry
// no semantic order.
//
// Fewer customers than clusters is an error (wrapping ErrInsufficientData)
// rather than a silently degenerate partition. Identical input with the same
// seed always produces identical assignments and labels.
func (e *Engineer) ProxyTarget(rfm []RFM) ([]RiskRFM, error) {
	k := e.cfg.Clusters
	if len(rfm) < k {
		return nil, fmt.Errorf("ProxyTarget: %w: have %d customers, need at least %d", ErrInsufficientData, len(rfm), k)
	}

	points := standardizeRFM(rfm)
	assign := kmeans(points, k, e.cfg.Seed)
	risky := highRiskCluster(points, assign, k)

	e.log.Debug().
		Int("customers", len(rfm)).
		Int("clusters", k).
		Int("high_risk_cluster", risky).
		Msg("proxy target computed")

	out := make([]RiskRFM, len(rfm))
	for i, r := range rfm {
		label := 0
		if assign[i] == risky {
			label = 1
		}
		out[i] = RiskRFM{RFM: r, Cluster: assign[i], IsHighRisk: label}
	}
	return out, nil
}

// standardizeRFM maps each RFM column to zero mean and unit variance so that
// the monetary scale cannot dominate the distance metric. A constant column
// becomes all zeros. Column order: recency, frequency, monetary.
func standardizeRFM(rfm []RFM) [][]float64 {
	n := len(rfm)
	cols := [3][]float64{
		make([]float64, n),
		make([]float64, n),
		make([]float64, n),
	}
	for i, r := range rfm {
		cols[0][i] = float64(r.Recency)
		cols[1][i] = float64(r.Frequency)
		cols[2][i] = r.Monetary
	}

	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, 3)
	}
	for j, col := range cols {
		mean := stat.Mean(col, nil)
		std := stat.StdDev(col, nil)
		for i, v := range col {
			if std > 0 {
				points[i][j] = (v - mean) / std
			}
		}
	}
	return points
}

// kmeans runs Lloyd's algorithm with kmeans++ seeding from an explicit
// seeded source. All tie-breaking is deterministic (lowest index wins), so
// the assignment is a pure function of points, k and seed.
func kmeans(points [][]float64, k int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(points, k, rng)

	assign := make([]int, len(points))
	for i := range assign {
		assign[i] = -1
	}

	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, cent := range centroids {
				if d := floats.Distance(p, cent, 2); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, len(points[0]))
		}
		for i, p := range points {
			counts[assign[i]]++
			floats.Add(sums[assign[i]], p)
		}
		for c := range centroids {
			if counts[c] == 0 {
				// An empty cluster steals the point farthest from its
				// current centroid.
				centroids[c] = append([]float64(nil), farthestPoint(points, centroids, assign)...)
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}
	return assign
}

// seedCentroids implements kmeans++ initialization: the first centroid is
// drawn uniformly, each subsequent one proportionally to squared distance
// from the nearest chosen centroid.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := rng.Intn(len(points))
	centroids = append(centroids, append([]float64(nil), points[first]...))

	dists := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				if dd := floats.Distance(p, c, 2); dd < d {
					d = dd
				}
			}
			dists[i] = d * d
			total += dists[i]
		}

		next := 0
		if total == 0 {
			// All points coincide with existing centroids.
			next = rng.Intn(len(points))
		} else {
			target := rng.Float64() * total
			acc := 0.0
			next = len(points) - 1
			for i, d := range dists {
				acc += d
				if acc >= target {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), points[next]...))
	}
	return centroids
}

// farthestPoint returns the point with the greatest distance to its assigned
// centroid. First maximum wins, keeping the choice deterministic.
func farthestPoint(points [][]float64, centroids [][]float64, assign []int) []float64 {
	best, bestDist := 0, -1.0
	for i, p := range points {
		if assign[i] < 0 {
			continue
		}
		if d := floats.Distance(p, centroids[assign[i]], 2); d > bestDist {
			best, bestDist = i, d
		}
	}
	return points[best]
}

// highRiskCluster scores each cluster on its standardized RFM means:
// score = mean(recency) - mean(frequency) - mean(monetary). The highest
// score marks the least profitable, least engaged segment. Ties resolve to
// the lowest cluster id; empty clusters never win.
func highRiskCluster(points [][]float64, assign []int, k int) int {
	sums := make([][3]float64, k)
	counts := make([]int, k)
	for i, p := range points {
		c := assign[i]
		sums[c][0] += p[0]
		sums[c][1] += p[1]
		sums[c][2] += p[2]
		counts[c]++
	}

	best, bestScore := 0, math.Inf(-1)
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		n := float64(counts[c])
		score := sums[c][0]/n - sums[c][1]/n - sums[c][2]/n
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}
