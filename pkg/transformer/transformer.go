package transformer

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"

	"github.com/soundprediction/cartograph/pkg/simplicial"
	"github.com/soundprediction/cartograph/pkg/types"
)

// layer holds the weight buffers for one attention layer.
type layer struct {
	// Per-head query/key/value projections, each headDim x hiddenDim.
	query []*mat.Dense
	key   []*mat.Dense
	value []*mat.Dense
	// Output projection, hiddenDim x hiddenDim, applied to the
	// concatenated head outputs.
	output *mat.Dense
}

// Transformer refines node embeddings over a simplicial complex.
type Transformer struct {
	config  *Config
	headDim int

	// input projection, hiddenDim x inputDim; allocated lazily when the
	// input dimensionality is first known.
	input    *mat.Dense
	inputDim int

	layers []*layer
	rng    *rand.Rand
	closed atomic.Bool
}

// New constructs a transformer, validating the configuration and
// allocating its per-layer weight buffers.
func New(cfg *Config) (*Transformer, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Transformer{
		config:  cfg,
		headDim: cfg.HiddenDim / cfg.NumHeads,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}

	t.layers = make([]*layer, cfg.NumLayers)
	for i := range t.layers {
		l := &layer{
			query:  make([]*mat.Dense, cfg.NumHeads),
			key:    make([]*mat.Dense, cfg.NumHeads),
			value:  make([]*mat.Dense, cfg.NumHeads),
			output: t.newWeight(cfg.HiddenDim, cfg.HiddenDim),
		}
		for h := 0; h < cfg.NumHeads; h++ {
			l.query[h] = t.newWeight(t.headDim, cfg.HiddenDim)
			l.key[h] = t.newWeight(t.headDim, cfg.HiddenDim)
			l.value[h] = t.newWeight(t.headDim, cfg.HiddenDim)
		}
		t.layers[i] = l
	}

	if cfg.EmbeddingDim > 0 {
		t.setInputDim(cfg.EmbeddingDim)
	}

	return t, nil
}

// OutputDim returns the dimensionality of refined embeddings.
func (t *Transformer) OutputDim() int { return t.config.HiddenDim }

// Close releases the transformer's weight buffers. It is idempotent;
// further Refine calls panic.
func (t *Transformer) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.input = nil
	t.layers = nil
	return nil
}

// Refine propagates the input embeddings through the attention layers and
// returns one refined vector of OutputDim length per node in the complex.
// It fails if any node referenced by the complex lacks an input vector or
// if the input vectors are not of uniform length.
func (t *Transformer) Refine(cx *simplicial.Complex, embeddings map[string][]float64) (map[string][]float64, error) {
	if t.closed.Load() {
		panic(types.ErrTransformerClosed)
	}

	dim, err := t.validateInput(cx, embeddings)
	if err != nil {
		return nil, err
	}
	t.setInputDim(dim)

	// Project every node into the working dimensionality.
	current := make(map[string][]float64, len(cx.NodeIDs))
	for _, id := range cx.NodeIDs {
		current[id] = t.project(embeddings[id])
	}

	for _, l := range t.layers {
		next := make(map[string][]float64, len(current))
		for _, id := range cx.NodeIDs {
			next[id] = t.refineNode(l, cx, id, current)
		}
		current = next
	}

	return current, nil
}

// refineNode computes one node's post-layer embedding: multi-head
// attention over its simplex contributions, residual, optional norm.
func (t *Transformer) refineNode(l *layer, cx *simplicial.Complex, id string, current map[string][]float64) []float64 {
	contributions := gatherContributions(cx, id, current)

	result := make([]float64, t.config.HiddenDim)
	copy(result, current[id])

	if len(contributions) > 0 {
		aggregate := t.attend(l, current[id], contributions)
		for i := range result {
			result[i] += aggregate[i]
		}
	}

	if t.config.UseLayerNorm {
		layerNorm(result)
	}
	return result
}

// validateInput checks coverage and uniform dimensionality, returning the
// input vector length.
func (t *Transformer) validateInput(cx *simplicial.Complex, embeddings map[string][]float64) (int, error) {
	if len(cx.NodeIDs) == 0 {
		return 0, fmt.Errorf("%w: complex has no nodes", types.ErrInvalidConfig)
	}
	dim := -1
	for _, id := range cx.NodeIDs {
		vec, ok := embeddings[id]
		if !ok {
			return 0, fmt.Errorf("%w: %s", types.ErrMissingEmbedding, id)
		}
		if dim == -1 {
			dim = len(vec)
			continue
		}
		if len(vec) != dim {
			return 0, fmt.Errorf("%w: node %s has length %d, expected %d",
				types.ErrDimensionMismatch, id, len(vec), dim)
		}
	}
	if dim == 0 {
		return 0, fmt.Errorf("%w: empty embedding vectors", types.ErrDimensionMismatch)
	}
	if t.inputDim > 0 && dim != t.inputDim {
		return 0, fmt.Errorf("%w: input length %d, transformer configured for %d",
			types.ErrDimensionMismatch, dim, t.inputDim)
	}
	return dim, nil
}

// setInputDim allocates the input projection once the input length is known.
func (t *Transformer) setInputDim(dim int) {
	if t.inputDim == dim && t.input != nil {
		return
	}
	t.inputDim = dim
	t.input = t.newWeight(t.config.HiddenDim, dim)
}

// project maps an input vector into the hidden dimensionality.
func (t *Transformer) project(vec []float64) []float64 {
	out := mat.NewVecDense(t.config.HiddenDim, nil)
	out.MulVec(t.input, mat.NewVecDense(len(vec), vec))
	return out.RawVector().Data
}

// newWeight allocates a rows x cols matrix with scaled uniform entries.
func (t *Transformer) newWeight(rows, cols int) *mat.Dense {
	scale := math.Sqrt(1.0 / float64(cols))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (t.rng.Float64()*2 - 1) * scale
	}
	return mat.NewDense(rows, cols, data)
}

// layerNorm re-centers and re-scales a vector in place.
func layerNorm(v []float64) {
	const epsilon = 1e-5

	var meanVal float64
	for _, x := range v {
		meanVal += x
	}
	meanVal /= float64(len(v))

	var variance float64
	for _, x := range v {
		d := x - meanVal
		variance += d * d
	}
	variance /= float64(len(v))

	inv := 1 / math.Sqrt(variance+epsilon)
	for i := range v {
		v[i] = (v[i] - meanVal) * inv
	}
}
