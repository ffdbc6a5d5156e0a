package projection

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/soundprediction/cartograph/pkg/utils"
)

// knnResult holds k-nearest neighbor indices and distances for all points.
type knnResult struct {
	Indices [][]int
	Dists   [][]float64
}

// metricPoints prepares the point set and distance function for a metric
// name. Config validation guarantees the name is known. For the cosine
// metric each row is normalized to unit length once, so the per-pair
// distance reduces to 1 minus a dot product; rows with zero magnitude
// have no direction and sit at distance 1 from everything, matching the
// cosine similarity convention for zero vectors.
func metricPoints(data [][]float64, metric string) ([][]float64, func(a, b []float64) float64) {
	if metric != MetricCosine {
		return data, utils.EuclideanDistance
	}

	unit := make([][]float64, len(data))
	for i, v := range data {
		unit[i] = utils.Normalize(v)
	}
	return unit, func(a, b []float64) float64 {
		if a == nil || b == nil {
			return 1
		}
		var dot float64
		for i := range a {
			dot += a[i] * b[i]
		}
		return 1 - dot
	}
}

// computeKNN finds each point's k nearest neighbors by exact search.
// Neighbor rows are computed concurrently; ties are broken by ascending
// distance, then by index, so the result is stable. Cancellation leaves
// the unfinished rows nil and is not an error; any other row failure is.
func computeKNN(ctx context.Context, data [][]float64, k int, metric string) (knnResult, error) {
	n := len(data)
	points, distance := metricPoints(data, metric)
	indices := make([][]int, n)
	dists := make([][]float64, n)

	executor := utils.NewConcurrentExecutor(0)
	jobs := make([]func() error, n)
	for i := 0; i < n; i++ {
		jobs[i] = func() error {
			type distIdx struct {
				dist float64
				idx  int
			}
			neighbors := make([]distIdx, 0, n-1)
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				neighbors = append(neighbors, distIdx{distance(points[i], points[j]), j})
			}
			sort.Slice(neighbors, func(a, b int) bool {
				if neighbors[a].dist != neighbors[b].dist {
					return neighbors[a].dist < neighbors[b].dist
				}
				return neighbors[a].idx < neighbors[b].idx
			})

			row := neighbors[:k]
			indices[i] = make([]int, k)
			dists[i] = make([]float64, k)
			for j, nb := range row {
				indices[i][j] = nb.idx
				dists[i][j] = nb.dist
			}
			return nil
		}
	}
	for _, err := range executor.Execute(ctx, jobs...) {
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return knnResult{}, err
		}
	}

	return knnResult{Indices: indices, Dists: dists}, nil
}

// smoothKNNDist calibrates a bandwidth sigma and local connectivity
// distance rho per point, by bisection, such that the sum of smoothed
// neighbor weights equals log2(k). This equalizes effective local density
// across regions of varying point density.
func smoothKNNDist(distances [][]float64, k float64) (sigmas, rhos []float64) {
	const (
		nIter             = 64
		localConnectivity = 1.0
		tolerance         = 1e-5
		minSigmaScale     = 1e-3
	)

	n := len(distances)
	sigmas = make([]float64, n)
	rhos = make([]float64, n)
	target := math.Log2(k)

	for i := 0; i < n; i++ {
		dists := distances[i]

		nonZero := make([]float64, 0, len(dists))
		for _, d := range dists {
			if d > 0 {
				nonZero = append(nonZero, d)
			}
		}

		if len(nonZero) >= int(localConnectivity) {
			idx := int(math.Floor(localConnectivity))
			interp := localConnectivity - float64(idx)
			if idx > 0 {
				rhos[i] = nonZero[idx-1]
				if interp > tolerance && idx < len(nonZero) {
					rhos[i] += interp * (nonZero[idx] - nonZero[idx-1])
				}
			} else {
				rhos[i] = interp * nonZero[0]
			}
		} else if len(nonZero) > 0 {
			rhos[i] = nonZero[len(nonZero)-1]
		}

		lo, hi, mid := 0.0, math.Inf(1), 1.0
		for iter := 0; iter < nIter; iter++ {
			var psum float64
			for _, d := range dists {
				adjusted := d - rhos[i]
				if adjusted > 0 {
					psum += math.Exp(-adjusted / mid)
				} else {
					psum += 1.0
				}
			}

			if math.Abs(psum-target) < tolerance {
				break
			}
			if psum > target {
				hi = mid
			} else {
				lo = mid
			}
			if math.IsInf(hi, 1) {
				mid *= 2
			} else {
				mid = (lo + hi) / 2
			}
		}
		sigmas[i] = mid

		var meanDist float64
		for _, d := range dists {
			meanDist += d
		}
		if len(dists) > 0 {
			meanDist /= float64(len(dists))
		}
		if minSigma := minSigmaScale * meanDist; sigmas[i] < minSigma {
			sigmas[i] = minSigma
		}
	}

	return sigmas, rhos
}

// sparseEdge is one entry of the fuzzy graph in coordinate form.
type sparseEdge struct {
	row, col int
	weight   float64
}

// membershipStrengths converts neighbor distances to directed fuzzy
// membership values.
func membershipStrengths(knn knnResult, sigmas, rhos []float64) []sparseEdge {
	var edges []sparseEdge
	for i := range knn.Indices {
		for j, neighbor := range knn.Indices[i] {
			dist := knn.Dists[i][j]
			var val float64
			if dist-rhos[i] <= 0 || sigmas[i] == 0 {
				val = 1.0
			} else {
				val = math.Exp(-(dist - rhos[i]) / sigmas[i])
			}
			edges = append(edges, sparseEdge{row: i, col: neighbor, weight: val})
		}
	}
	return edges
}

// symmetrize combines the directed membership strengths into an undirected
// fuzzy graph with the probabilistic union
// combined(u,v) = p(u→v) + p(v→u) − p(u→v)·p(v→u),
// returning edges in deterministic row-major order.
func symmetrize(directed []sparseEdge) []sparseEdge {
	type key struct{ r, c int }
	weights := make(map[key]float64, len(directed))
	for _, e := range directed {
		weights[key{e.row, e.col}] = e.weight
	}

	combined := make(map[key]float64, len(directed))
	for _, e := range directed {
		transpose := weights[key{e.col, e.row}]
		union := e.weight + transpose - e.weight*transpose
		if union > 0 {
			combined[key{e.row, e.col}] = union
		}
	}

	keys := make([]key, 0, len(combined))
	for k := range combined {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].r != keys[j].r {
			return keys[i].r < keys[j].r
		}
		return keys[i].c < keys[j].c
	})

	out := make([]sparseEdge, len(keys))
	for i, k := range keys {
		out[i] = sparseEdge{row: k.r, col: k.c, weight: combined[k]}
	}
	return out
}
