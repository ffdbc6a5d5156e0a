package cartograph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/cartograph/pkg/graph"
	"github.com/soundprediction/cartograph/pkg/projection"
	"github.com/soundprediction/cartograph/pkg/simplicial"
	"github.com/soundprediction/cartograph/pkg/transformer"
	"github.com/soundprediction/cartograph/pkg/types"
)

// Cartograph is the main interface for turning causal knowledge graphs
// into navigable manifold layouts.
type Cartograph interface {
	// BuildComplex derives the simplicial complex for a graph snapshot.
	BuildComplex(g *graph.Graph) *simplicial.Complex

	// Stats computes the statistics snapshot for a graph snapshot.
	Stats(g *graph.Graph) types.GraphStats

	// Refine runs the geometric transformer over the graph's complex and
	// the supplied per-node embeddings. The transformer is constructed
	// and released within the call.
	Refine(ctx context.Context, g *graph.Graph, embeddings map[string][]float64) (map[string][]float64, error)

	// Project reduces per-node vectors to low-dimensional coordinates,
	// keyed by node id, without normalization.
	Project(ctx context.Context, ids []string, vectors [][]float64, progress projection.ProgressFunc) (map[string][]float64, error)

	// Layout runs the full pipeline: complex, refinement, projection,
	// and range normalization.
	Layout(ctx context.Context, g *graph.Graph, embeddings map[string][]float64, opts *LayoutOptions) (*LayoutResult, error)
}

// Options configures a client.
type Options struct {
	Transformer *transformer.Config
	Projector   *projection.Config
	Logger      *slog.Logger
}

// LayoutOptions tunes a single end-to-end Layout call.
type LayoutOptions struct {
	// Range is the [min, max] interval each output axis is rescaled to.
	// The zero value means no rescaling.
	Range [2]float64
	// Progress receives projection progress notifications.
	Progress projection.ProgressFunc
}

// LayoutResult is the output of an end-to-end Layout call.
type LayoutResult struct {
	// Coordinates maps node id to its projected coordinate tuple.
	Coordinates map[string][]float64 `json:"coordinates"`
	// Stats is the complex statistics snapshot the layout was derived from.
	Stats types.GraphStats `json:"stats"`
}

type client struct {
	transformerConfig *transformer.Config
	projectorConfig   *projection.Config
	logger            *slog.Logger
}

// New creates a Cartograph client. A nil options value uses the documented
// defaults for both the transformer and the projector.
func New(opts *Options) Cartograph {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &client{
		transformerConfig: opts.Transformer.WithDefaults(),
		projectorConfig:   opts.Projector.WithDefaults(),
		logger:            logger,
	}
}

func (c *client) BuildComplex(g *graph.Graph) *simplicial.Complex {
	return simplicial.Build(g)
}

func (c *client) Stats(g *graph.Graph) types.GraphStats {
	return simplicial.Build(g).Stats()
}

func (c *client) Refine(ctx context.Context, g *graph.Graph, embeddings map[string][]float64) (map[string][]float64, error) {
	cx := simplicial.Build(g)
	return c.refineComplex(ctx, cx, embeddings)
}

// refineComplex scopes the transformer's backend resources to this call:
// they are released on every exit path, including refinement failure.
func (c *client) refineComplex(ctx context.Context, cx *simplicial.Complex, embeddings map[string][]float64) (map[string][]float64, error) {
	tr, err := transformer.New(c.transformerConfig)
	if err != nil {
		return nil, fmt.Errorf("constructing transformer: %w", err)
	}
	defer tr.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	refined, err := tr.Refine(cx, embeddings)
	if err != nil {
		return nil, fmt.Errorf("refining embeddings: %w", err)
	}
	return refined, nil
}

func (c *client) Project(ctx context.Context, ids []string, vectors [][]float64, progress projection.ProgressFunc) (map[string][]float64, error) {
	p, err := projection.NewProjector(c.projectorConfig)
	if err != nil {
		return nil, fmt.Errorf("constructing projector: %w", err)
	}
	coords, err := p.Project(ctx, vectors, progress)
	if err != nil {
		return nil, fmt.Errorf("projecting: %w", err)
	}
	return projection.ZipByID(ids, coords)
}

func (c *client) Layout(ctx context.Context, g *graph.Graph, embeddings map[string][]float64, opts *LayoutOptions) (*LayoutResult, error) {
	if opts == nil {
		opts = &LayoutOptions{}
	}

	cx := simplicial.Build(g)
	stats := cx.Stats()
	c.logger.Info("building layout",
		"nodes", stats.NodeCount,
		"edges", stats.EdgeCount,
		"triangles", stats.TriangleCount)

	refined, err := c.refineComplex(ctx, cx, embeddings)
	if err != nil {
		return nil, err
	}

	ids := cx.NodeIDs
	vectors := make([][]float64, len(ids))
	for i, id := range ids {
		vectors[i] = refined[id]
	}

	p, err := projection.NewProjector(c.projectorConfig)
	if err != nil {
		return nil, fmt.Errorf("constructing projector: %w", err)
	}
	coords, err := p.Project(ctx, vectors, opts.Progress)
	if err != nil {
		return nil, fmt.Errorf("projecting: %w", err)
	}

	if opts.Range != [2]float64{} {
		projection.NormalizeToRange(coords, opts.Range[0], opts.Range[1])
	}

	byID, err := projection.ZipByID(ids, coords)
	if err != nil {
		return nil, err
	}
	return &LayoutResult{Coordinates: byID, Stats: stats}, nil
}
