package cartograph

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/cartograph/pkg/graph"
	"github.com/soundprediction/cartograph/pkg/projection"
	"github.com/soundprediction/cartograph/pkg/transformer"
	"github.com/soundprediction/cartograph/pkg/types"
)

// fiveNodeGraph builds a graph whose edges form exactly one triangle
// (a->b causes, b->c causes, c->a correlates_with) plus two edges that
// close no triangle.
func fiveNodeGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, g.AddNode(&types.Node{ID: id, Label: id, Type: types.ConceptNodeType}))
	}
	edges := []*types.Edge{
		{Source: "a", Target: "b", Relation: types.Causes, Confidence: 0.9},
		{Source: "b", Target: "c", Relation: types.Causes, Confidence: 0.85},
		{Source: "c", Target: "a", Relation: types.CorrelatesWith, Confidence: 0.7},
		{Source: "c", Target: "d", Relation: types.Enables, Confidence: 0.6},
		{Source: "d", Target: "e", Relation: types.Produces, Confidence: 0.5},
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e))
	}
	return g
}

func embeddingsFor(g *graph.Graph, dim int, seed int64) map[string][]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make(map[string][]float64)
	for _, id := range g.NodeIDs() {
		vec := make([]float64, dim)
		for i := range vec {
			vec[i] = rng.NormFloat64()
		}
		out[id] = vec
	}
	return out
}

func TestEndToEndPipeline(t *testing.T) {
	g := fiveNodeGraph(t)

	client := New(&Options{
		Transformer: &transformer.Config{EmbeddingDim: 8, HiddenDim: 16, NumHeads: 2, NumLayers: 2, UseLayerNorm: true},
		Projector:   &projection.Config{NComponents: 3, NNeighbors: 4, NEpochs: 100},
	})

	stats := client.Stats(g)
	assert.Equal(t, 5, stats.NodeCount)
	assert.Equal(t, 5, stats.EdgeCount)
	assert.Equal(t, 1, stats.TriangleCount, "exactly one causal triangle expected")
	assert.InDelta(t, 2.0, stats.AverageDegree, 1e-12)

	embeddings := embeddingsFor(g, 8, 42)
	refined, err := client.Refine(context.Background(), g, embeddings)
	require.NoError(t, err)
	require.Len(t, refined, 5)
	for id, vec := range refined {
		assert.Len(t, vec, 16, "refined vector for %s", id)
	}

	result, err := client.Layout(context.Background(), g, embeddings, &LayoutOptions{
		Range: [2]float64{-50, 50},
	})
	require.NoError(t, err)
	require.Len(t, result.Coordinates, 5)
	assert.Equal(t, 1, result.Stats.TriangleCount)

	// Every axis must span exactly [-50, 50], or sit at the midpoint if
	// degenerate.
	for axis := 0; axis < 3; axis++ {
		minVal, maxVal := math.Inf(1), math.Inf(-1)
		for id, coord := range result.Coordinates {
			require.Len(t, coord, 3, "coordinates for %s", id)
			minVal = math.Min(minVal, coord[axis])
			maxVal = math.Max(maxVal, coord[axis])
		}
		if minVal == maxVal {
			assert.Equal(t, 0.0, minVal, "degenerate axis %d should map to midpoint", axis)
		} else {
			assert.InDelta(t, -50, minVal, 1e-9, "axis %d minimum", axis)
			assert.InDelta(t, 50, maxVal, 1e-9, "axis %d maximum", axis)
		}
	}
}

func TestLayoutReleasesTransformerOnFailure(t *testing.T) {
	g := fiveNodeGraph(t)
	client := New(nil)

	// Missing one embedding: refinement must fail cleanly, not leak or
	// panic on a later call.
	embeddings := embeddingsFor(g, 8, 1)
	delete(embeddings, "c")
	_, err := client.Layout(context.Background(), g, embeddings, nil)
	require.ErrorIs(t, err, types.ErrMissingEmbedding)

	// The client remains usable afterwards.
	_, err = client.Refine(context.Background(), g, embeddingsFor(g, 8, 2))
	require.NoError(t, err)
}

func TestProjectAssociatesByID(t *testing.T) {
	client := New(&Options{
		Projector: &projection.Config{NComponents: 2, NNeighbors: 3, NEpochs: 30},
	})

	ids := []string{"x", "y", "z", "w"}
	vectors := [][]float64{
		{0, 0, 0}, {0.1, 0, 0}, {5, 5, 5}, {5.1, 5, 5},
	}
	coords, err := client.Project(context.Background(), ids, vectors, nil)
	require.NoError(t, err)
	require.Len(t, coords, 4)
	for _, id := range ids {
		require.Contains(t, coords, id)
		require.Len(t, coords[id], 2)
	}
}
