// Package simplicial derives simplicial complexes from causal knowledge
// graphs. A complex is a read-only value object over a graph snapshot:
// 0-simplices are the nodes, 1-simplices the undirected closure of the
// directed edges, and 2-simplices the triangles closed by three pairwise
// 1-simplices. The complex is rebuilt from scratch per query, never
// patched incrementally.
package simplicial

import (
	"fmt"
	"sort"

	"github.com/soundprediction/cartograph/pkg/types"
)

// EdgeSimplex is a 1-simplex: an undirected pair of nodes connected by at
// least one directed causal edge.
type EdgeSimplex struct {
	// ID is derived from the sorted node pair so repeated builds over the
	// same graph produce identical identifiers.
	ID string `json:"id"`
	U  string `json:"u"`
	V  string `json:"v"`

	// Confidence is the maximum confidence over the constituent directed
	// edges.
	Confidence float64 `json:"confidence"`
	// Relations is the multiset of relation types over the constituent
	// directed edges, sorted for determinism.
	Relations []types.RelationType `json:"relations"`
	// Reciprocal is true when directed edges exist in both directions.
	Reciprocal bool `json:"reciprocal"`
}

// TriangleSimplex is a 2-simplex: an unordered node triple whose three
// pairwise 1-simplices all exist.
type TriangleSimplex struct {
	ID string `json:"id"`
	U  string `json:"u"`
	V  string `json:"v"`
	W  string `json:"w"`

	// Confidence is the mean confidence of the three edge simplices.
	Confidence float64 `json:"confidence"`
	// ClosureType is the dominant relation type across the three edge
	// simplices.
	ClosureType types.RelationType `json:"closure_type"`
}

// Complex is the derived simplicial view over a graph snapshot.
type Complex struct {
	NodeIDs   []string
	Edges     []EdgeSimplex
	Triangles []TriangleSimplex

	edgeByPair      map[[2]string]*EdgeSimplex
	edgesByNode     map[string][]*EdgeSimplex
	trianglesByNode map[string][]*TriangleSimplex
}

// Edge returns the 1-simplex connecting u and v, if any. Order of the
// arguments does not matter.
func (c *Complex) Edge(u, v string) (*EdgeSimplex, bool) {
	e, ok := c.edgeByPair[pairKey(u, v)]
	return e, ok
}

// IncidentEdges returns the 1-simplices incident to node id.
func (c *Complex) IncidentEdges(id string) []*EdgeSimplex {
	return c.edgesByNode[id]
}

// IncidentTriangles returns the 2-simplices incident to node id.
func (c *Complex) IncidentTriangles(id string) []*TriangleSimplex {
	return c.trianglesByNode[id]
}

// Stats computes the aggregate statistics snapshot for the complex.
func (c *Complex) Stats() types.GraphStats {
	n := len(c.NodeIDs)
	stats := types.GraphStats{
		NodeCount:     n,
		EdgeCount:     len(c.Edges),
		TriangleCount: len(c.Triangles),
	}
	if n == 0 {
		return stats
	}

	stats.AverageDegree = 2 * float64(len(c.Edges)) / float64(n)
	if n > 1 {
		stats.Density = float64(len(c.Edges)) / (float64(n) * float64(n-1) / 2)
	}

	// Clustering coefficient: per node, incident triangles over possible
	// neighbor pairs, averaged over all nodes.
	var sum float64
	for _, id := range c.NodeIDs {
		deg := len(c.edgesByNode[id])
		if deg < 2 {
			continue
		}
		possible := float64(deg*(deg-1)) / 2
		sum += float64(len(c.trianglesByNode[id])) / possible
	}
	stats.AverageClustering = sum / float64(n)
	return stats
}

func pairKey(u, v string) [2]string {
	if u > v {
		u, v = v, u
	}
	return [2]string{u, v}
}

func edgeSimplexID(u, v string) string {
	if u > v {
		u, v = v, u
	}
	return fmt.Sprintf("%s--%s", u, v)
}

func triangleSimplexID(u, v, w string) string {
	ids := []string{u, v, w}
	sort.Strings(ids)
	return fmt.Sprintf("%s--%s--%s", ids[0], ids[1], ids[2])
}
