package advisor

import (
	"fmt"
	"math"
	"math/rand"

	"FinGenius/internal/domain/models"
	domsvc "FinGenius/internal/domain/service"
	"FinGenius/internal/services/features"
)

const (
	SegmentModelKey = "behavior/segments"
	SegmentKind     = "kmeans"

	kmeansSeed     = 42
	kmeansMaxIter  = 100
	kmeansRestarts = 10
)

// BehaviorAnalyzer clusters users by standardized per-category spend.
type BehaviorAnalyzer struct{}

func NewBehaviorAnalyzer() *BehaviorAnalyzer { return &BehaviorAnalyzer{} }

// Analyze fits k clusters over user -> category -> total spend.
func (b *BehaviorAnalyzer) Analyze(spend map[string]map[string]float64, k int) (*models.SegmentModel, error) {
	users, categories, rows := features.SpendMatrix(spend)
	if k <= 0 || len(users) < k || len(categories) == 0 {
		return nil, fmt.Errorf("behavior analysis needs at least %d users with spend, got %d: %w",
			k, len(users), models.ErrInsufficientData)
	}

	means, scales := standardizer(rows, len(categories))
	scaled := make([][]float64, len(rows))
	for i, r := range rows {
		scaled[i] = scale(r, means, scales)
	}

	rng := rand.New(rand.NewSource(kmeansSeed))
	var bestCentroids [][]float64
	var bestAssign []int
	bestInertia := math.Inf(1)
	for run := 0; run < kmeansRestarts; run++ {
		centroids, assign, inertia := kmeans(scaled, k, rng)
		if inertia < bestInertia {
			bestCentroids, bestAssign, bestInertia = centroids, assign, inertia
		}
	}

	summary := make([]map[string]float64, k)
	counts := make([]int, k)
	for c := range summary {
		summary[c] = make(map[string]float64, len(categories))
	}
	members := make(map[string]int, len(users))
	for i, u := range users {
		c := bestAssign[i]
		members[u] = c
		counts[c]++
		for j, cat := range categories {
			summary[c][cat] += rows[i][j]
		}
	}
	for c := range summary {
		if counts[c] == 0 {
			continue
		}
		for cat := range summary[c] {
			summary[c][cat] /= float64(counts[c])
		}
	}

	return &models.SegmentModel{
		Categories: categories,
		Means:      means,
		Scales:     scales,
		Centroids:  bestCentroids,
		Summary:    summary,
		Members:    members,
	}, nil
}

// Segment assigns one user's category spend to the nearest fitted cluster.
// Categories unseen at fit time are ignored.
func (b *BehaviorAnalyzer) Segment(m *models.SegmentModel, spend map[string]float64) (int, error) {
	if m == nil || len(m.Centroids) == 0 {
		return 0, models.ErrUntrainedModel
	}
	x := scale(features.Vector(spend, m.Categories), m.Means, m.Scales)
	return nearest(x, m.Centroids), nil
}

func standardizer(rows [][]float64, width int) (means, scales []float64) {
	means = make([]float64, width)
	scales = make([]float64, width)
	n := float64(len(rows))
	for _, r := range rows {
		for j, v := range r {
			means[j] += v / n
		}
	}
	for _, r := range rows {
		for j, v := range r {
			d := v - means[j]
			scales[j] += d * d / n
		}
	}
	for j := range scales {
		scales[j] = math.Sqrt(scales[j])
		if scales[j] == 0 {
			scales[j] = 1
		}
	}
	return means, scales
}

func scale(r, means, scales []float64) []float64 {
	out := make([]float64, len(r))
	for j, v := range r {
		out[j] = (v - means[j]) / scales[j]
	}
	return out
}

// kmeans runs Lloyd's algorithm from a k-means++ seeding.
func kmeans(x [][]float64, k int, rng *rand.Rand) ([][]float64, []int, float64) {
	centroids := seedPlusPlus(x, k, rng)
	assign := make([]int, len(x))
	for i := range assign {
		assign[i] = -1
	}

	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		for i, p := range x {
			c := nearest(p, centroids)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, len(x[0]))
		}
		for i, p := range x {
			counts[assign[i]]++
			for j, v := range p {
				sums[assign[i]][j] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	inertia := 0.0
	for i, p := range x {
		inertia += sqDist(p, centroids[assign[i]])
	}
	return centroids, assign, inertia
}

func seedPlusPlus(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), x[rng.Intn(len(x))]...))
	dist := make([]float64, len(x))
	for len(centroids) < k {
		total := 0.0
		for i, p := range x {
			dist[i] = sqDist(p, centroids[nearest(p, centroids)])
			total += dist[i]
		}
		pick := 0
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target <= 0 {
					pick = i
					break
				}
			}
		} else {
			pick = rng.Intn(len(x))
		}
		centroids = append(centroids, append([]float64(nil), x[pick]...))
	}
	return centroids
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

var _ domsvc.BehaviorAnalyzer = (*BehaviorAnalyzer)(nil)
