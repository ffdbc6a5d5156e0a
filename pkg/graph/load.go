package graph

import (
	"fmt"
	"log/slog"

	"github.com/soundprediction/cartograph/pkg/types"
)

// LoadResult reports the outcome of a batch load.
type LoadResult struct {
	NodesAdded int
	EdgesAdded int
	// Skipped holds one error per rejected item, in input order.
	Skipped []error
}

// Load ingests a batch of nodes and edges. Structural problems (duplicate
// node ids, edges referencing missing endpoints, invalid relation types)
// do not abort the batch: the offending item is skipped and its error
// collected in the result.
func Load(g *Graph, nodes []*types.Node, edges []*types.Edge, logger *slog.Logger) *LoadResult {
	result := &LoadResult{}

	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			result.Skipped = append(result.Skipped, fmt.Errorf("node %s: %w", n.ID, err))
			continue
		}
		result.NodesAdded++
	}

	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			result.Skipped = append(result.Skipped, fmt.Errorf("edge %s->%s: %w", e.Source, e.Target, err))
			continue
		}
		result.EdgesAdded++
	}

	if logger != nil && len(result.Skipped) > 0 {
		logger.Warn("batch load skipped items",
			"nodes_added", result.NodesAdded,
			"edges_added", result.EdgesAdded,
			"skipped", len(result.Skipped))
	}

	return result
}
