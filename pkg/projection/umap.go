package projection

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/soundprediction/cartograph/pkg/types"
	"github.com/soundprediction/cartograph/pkg/utils"
)

// Progress is one incremental status notification from a projection run.
type Progress struct {
	// Fraction is the completion percentage in [0, 100].
	Fraction float64
	// Message is a human-readable status line.
	Message string
}

// ProgressFunc receives progress notifications. It is called from the
// projecting goroutine and should return quickly.
type ProgressFunc func(Progress)

// Projector reduces embedding vectors to low-dimensional coordinates.
type Projector struct {
	config *Config
}

// NewProjector constructs a projector, validating the configuration.
func NewProjector(cfg *Config) (*Projector, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Projector{config: cfg}, nil
}

// Project reduces the input vectors to NComponents coordinates each,
// preserving input ordering. All validation happens before any
// optimization work. Cancelling ctx stops further epochs and returns the
// best layout computed so far, not an error.
func (p *Projector) Project(ctx context.Context, vectors [][]float64, progress ProgressFunc) (layout [][]float64, err error) {
	// The optimization stages are pure numeric code over caller data;
	// a panic there surfaces as a PanicError instead of taking down the
	// calling server.
	defer utils.RecoverAsError(&err)

	if err := validateVectors(vectors); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(Progress) {}
	}
	cfg := p.config

	n := len(vectors)
	k := cfg.NNeighbors
	if k >= n {
		k = n - 1
	}

	progress(Progress{Fraction: 0, Message: "building neighbor graph"})
	knn, err := computeKNN(ctx, vectors, k, cfg.Metric)
	if err != nil {
		return nil, fmt.Errorf("computing nearest neighbors: %w", err)
	}

	progress(Progress{Fraction: 20, Message: "calibrating local connectivity"})
	sigmas, rhos := smoothKNNDist(knn.Dists, float64(k))

	progress(Progress{Fraction: 30, Message: "symmetrizing fuzzy graph"})
	graph := symmetrize(membershipStrengths(knn, sigmas, rhos))

	a, b := findABParams(cfg.Spread, cfg.MinDist)

	progress(Progress{Fraction: 35, Message: "initializing layout"})
	layout = initializeLayout(graph, n, cfg.NComponents, cfg.Seed)

	layout = p.optimizeLayout(ctx, layout, graph, a, b, progress)

	if ctx.Err() == nil {
		progress(Progress{Fraction: 100, Message: "projection complete"})
	}
	return layout, nil
}

// validateVectors enforces the projector's input contract: at least two
// vectors, uniform lengths, finite values.
func validateVectors(vectors [][]float64) error {
	if len(vectors) < 2 {
		return fmt.Errorf("%w: got %d", types.ErrTooFewPoints, len(vectors))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty vectors", types.ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has length %d, expected %d",
				types.ErrDimensionMismatch, i, len(v), dim)
		}
		if !utils.AllFinite(v) {
			return fmt.Errorf("%w: vector %d", types.ErrNonFiniteValue, i)
		}
	}
	return nil
}

// findABParams fits the low-dimensional similarity kernel
// f(x) = 1 / (1 + a*x^(2b)) to the target curve derived from spread and
// min_dist, via coarse grid search.
func findABParams(spread, minDist float64) (a, b float64) {
	const nPoints = 300
	xv := make([]float64, nPoints)
	yv := make([]float64, nPoints)
	for i := 0; i < nPoints; i++ {
		xv[i] = float64(i) / float64(nPoints-1) * spread * 3
		if xv[i] < minDist {
			yv[i] = 1.0
		} else {
			yv[i] = math.Exp(-(xv[i] - minDist) / spread)
		}
	}

	bestA, bestB := 1.0, 1.0
	bestError := math.Inf(1)
	for aTest := 0.1; aTest <= 10.0; aTest += 0.1 {
		for bTest := 0.1; bTest <= 2.0; bTest += 0.05 {
			var sumSq float64
			for i := 0; i < nPoints; i++ {
				pred := 1.0 / (1.0 + aTest*math.Pow(xv[i], 2*bTest))
				diff := pred - yv[i]
				sumSq += diff * diff
			}
			if sumSq < bestError {
				bestError = sumSq
				bestA, bestB = aTest, bTest
			}
		}
	}
	return bestA, bestB
}

// initializeLayout seeds the low-dimensional positions: spectral
// initialization from the fuzzy graph Laplacian for larger point sets,
// seeded random positions otherwise.
func initializeLayout(graph []sparseEdge, n, nComponents int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))

	if layout := spectralLayout(graph, n, nComponents); layout != nil {
		// Break eigenvector symmetry with a little noise.
		for i := range layout {
			for j := range layout[i] {
				layout[i][j] += (rng.Float64() - 0.5) * 1e-4
			}
		}
		return layout
	}

	layout := make([][]float64, n)
	for i := range layout {
		layout[i] = make([]float64, nComponents)
		for j := range layout[i] {
			layout[i][j] = (rng.Float64() - 0.5) * 10
		}
	}
	return layout
}

// spectralLayout embeds points with the smallest nontrivial eigenvectors
// of the normalized graph Laplacian. Small point sets skip it: random
// initialization converges just as well there and the eigendecomposition
// is not worth the cost.
func spectralLayout(graph []sparseEdge, n, nComponents int) [][]float64 {
	if n < 50 {
		return nil
	}

	adj := mat.NewDense(n, n, nil)
	for _, e := range graph {
		adj.Set(e.row, e.col, e.weight)
	}

	degrees := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			degrees[i] += adj.At(i, j)
		}
	}

	laplacian := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		laplacian.Set(i, i, 1.0)
		for j := 0; j < n; j++ {
			if degrees[i] > 0 && degrees[j] > 0 {
				normalized := adj.At(i, j) / math.Sqrt(degrees[i]*degrees[j])
				laplacian.Set(i, j, laplacian.At(i, j)-normalized)
			}
		}
	}

	var eigen mat.Eigen
	if !eigen.Factorize(laplacian, mat.EigenRight) {
		return nil
	}

	values := eigen.Values(nil)
	var vectors mat.CDense
	eigen.VectorsTo(&vectors)

	type eigenPair struct {
		val float64
		idx int
	}
	pairs := make([]eigenPair, len(values))
	for i, v := range values {
		pairs[i] = eigenPair{real(v), i}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].val < pairs[j].val })

	layout := make([][]float64, n)
	for i := 0; i < n; i++ {
		layout[i] = make([]float64, nComponents)
		for j := 0; j < nComponents; j++ {
			// Skip the first (trivial, constant) eigenvector.
			if j+1 < len(pairs) {
				layout[i][j] = real(vectors.At(i, pairs[j+1].idx))
			}
		}
	}

	// Rescale each axis into a workable range.
	for d := 0; d < nComponents; d++ {
		minVal, maxVal := math.Inf(1), math.Inf(-1)
		for i := 0; i < n; i++ {
			minVal = math.Min(minVal, layout[i][d])
			maxVal = math.Max(maxVal, layout[i][d])
		}
		if scale := maxVal - minVal; scale > 0 {
			for i := 0; i < n; i++ {
				layout[i][d] = (layout[i][d] - minVal) / scale * 10
			}
		}
	}
	return layout
}

// optimizeLayout refines positions by SGD: attractive forces along
// retained fuzzy-graph edges, repulsive forces against sampled non-edges,
// learning rate decaying per epoch. Cancellation is checked at epoch
// boundaries only; a cancelled run keeps the layout as of the last
// completed epoch.
func (p *Projector) optimizeLayout(ctx context.Context, layout [][]float64, graph []sparseEdge, a, b float64, progress ProgressFunc) [][]float64 {
	cfg := p.config
	n := len(layout)
	if len(graph) == 0 || n < 2 {
		return layout
	}

	rng := rand.New(rand.NewSource(cfg.Seed + 1))

	maxWeight := 0.0
	for _, e := range graph {
		if e.weight > maxWeight {
			maxWeight = e.weight
		}
	}
	if maxWeight == 0 {
		maxWeight = 1.0
	}

	// Stronger edges are sampled more frequently.
	epochsPerSample := make([]float64, len(graph))
	epochOfNext := make([]float64, len(graph))
	for i, e := range graph {
		if e.weight > 0 {
			epochsPerSample[i] = maxWeight / e.weight
			if epochsPerSample[i] < 1 {
				epochsPerSample[i] = 1
			}
		} else {
			epochsPerSample[i] = float64(cfg.NEpochs) + 1
		}
		epochOfNext[i] = epochsPerSample[i]
	}

	reportEvery := cfg.NEpochs / 20
	if reportEvery < 1 {
		reportEvery = 1
	}

	for epoch := 0; epoch < cfg.NEpochs; epoch++ {
		select {
		case <-ctx.Done():
			progress(Progress{
				Fraction: epochFraction(epoch, cfg.NEpochs),
				Message:  fmt.Sprintf("cancelled after %d epochs", epoch),
			})
			return layout
		default:
		}

		alpha := cfg.LearningRate * (1.0 - float64(epoch)/float64(cfg.NEpochs))
		if alpha < 1e-4 {
			alpha = 1e-4
		}

		for i, e := range graph {
			if epochOfNext[i] > float64(epoch) {
				continue
			}

			current := layout[e.row]
			other := layout[e.col]

			// Attraction along the edge.
			distSq := utils.SquaredEuclidean(current, other)
			if distSq > 0 {
				gradCoeff := -2.0 * a * b * math.Pow(distSq, b-1.0)
				gradCoeff /= a*math.Pow(distSq, b) + 1.0
				for d := range current {
					current[d] += clip(gradCoeff*(current[d]-other[d])) * alpha
				}
			}

			// Repulsion against sampled non-neighbors.
			for s := 0; s < cfg.NegativeSampleRate; s++ {
				negIdx := rng.Intn(n)
				if negIdx == e.row {
					continue
				}
				neg := layout[negIdx]
				distSq := utils.SquaredEuclidean(current, neg)

				var gradCoeff float64
				if distSq > 1e-3 {
					gradCoeff = 2.0 * b
					gradCoeff /= (1e-3 + distSq) * (a*math.Pow(distSq, b) + 1)
				}
				if gradCoeff > 0 {
					for d := range current {
						current[d] += clip(gradCoeff*(current[d]-neg[d])) * alpha
					}
				}
			}

			epochOfNext[i] += epochsPerSample[i]
		}

		if (epoch+1)%reportEvery == 0 {
			progress(Progress{
				Fraction: epochFraction(epoch+1, cfg.NEpochs),
				Message:  fmt.Sprintf("optimizing layout: epoch %d/%d", epoch+1, cfg.NEpochs),
			})
		}
	}

	return layout
}

// epochFraction maps epoch completion onto the 40..95 band of the overall
// progress scale; earlier stages own 0..40.
func epochFraction(epoch, total int) float64 {
	return 40 + 55*float64(epoch)/float64(total)
}

// clip constrains gradient values to prevent explosive updates.
func clip(val float64) float64 {
	if val > 4.0 {
		return 4.0
	}
	if val < -4.0 {
		return -4.0
	}
	return val
}
