package simplicial

import (
	"sort"

	"github.com/soundprediction/cartograph/pkg/graph"
	"github.com/soundprediction/cartograph/pkg/types"
)

// Build derives the simplicial complex for a graph snapshot. Output is
// deterministic: simplices are ordered by their canonical identifiers.
func Build(g *graph.Graph) *Complex {
	c := &Complex{
		NodeIDs:         g.NodeIDs(),
		edgeByPair:      make(map[[2]string]*EdgeSimplex),
		edgesByNode:     make(map[string][]*EdgeSimplex),
		trianglesByNode: make(map[string][]*TriangleSimplex),
	}

	buildEdgeSimplices(g, c)
	buildTriangleSimplices(g, c)
	return c
}

// buildEdgeSimplices collapses the directed edges into their undirected
// closure, aggregating per-pair features.
func buildEdgeSimplices(g *graph.Graph, c *Complex) {
	type accumulator struct {
		confidence float64
		relations  []types.RelationType
		forward    bool
		backward   bool
	}
	acc := make(map[[2]string]*accumulator)

	for _, e := range g.Edges() {
		if e.Source == e.Target {
			continue
		}
		key := pairKey(e.Source, e.Target)
		a := acc[key]
		if a == nil {
			a = &accumulator{}
			acc[key] = a
		}
		if e.Confidence > a.confidence {
			a.confidence = e.Confidence
		}
		a.relations = append(a.relations, e.Relation)
		if e.Source == key[0] {
			a.forward = true
		} else {
			a.backward = true
		}
	}

	keys := make([][2]string, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	c.Edges = make([]EdgeSimplex, 0, len(keys))
	for _, k := range keys {
		a := acc[k]
		relations := append([]types.RelationType(nil), a.relations...)
		sort.Slice(relations, func(i, j int) bool { return relations[i] < relations[j] })
		c.Edges = append(c.Edges, EdgeSimplex{
			ID:         edgeSimplexID(k[0], k[1]),
			U:          k[0],
			V:          k[1],
			Confidence: a.confidence,
			Relations:  relations,
			Reciprocal: a.forward && a.backward,
		})
	}

	for i := range c.Edges {
		e := &c.Edges[i]
		c.edgeByPair[pairKey(e.U, e.V)] = e
		c.edgesByNode[e.U] = append(c.edgesByNode[e.U], e)
		c.edgesByNode[e.V] = append(c.edgesByNode[e.V], e)
	}
}

// buildTriangleSimplices enumerates triangles by intersecting the neighbor
// sets of each edge's endpoints, bounding the work by
// sum over edges of min(deg(u), deg(v)) rather than cubic enumeration.
func buildTriangleSimplices(g *graph.Graph, c *Complex) {
	seen := make(map[string]struct{})
	var triangles []TriangleSimplex

	for i := range c.Edges {
		e := &c.Edges[i]
		nu := g.NeighborSet(e.U)
		nv := g.NeighborSet(e.V)
		// Iterate the smaller set.
		small, large := nu, nv
		if len(nv) < len(nu) {
			small, large = nv, nu
		}
		for w := range small {
			if _, ok := large[w]; !ok {
				continue
			}
			if w == e.U || w == e.V {
				continue
			}
			id := triangleSimplexID(e.U, e.V, w)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			uv, ok1 := c.Edge(e.U, e.V)
			vw, ok2 := c.Edge(e.V, w)
			uw, ok3 := c.Edge(e.U, w)
			if !ok1 || !ok2 || !ok3 {
				continue
			}

			ids := []string{e.U, e.V, w}
			sort.Strings(ids)
			triangles = append(triangles, TriangleSimplex{
				ID:          id,
				U:           ids[0],
				V:           ids[1],
				W:           ids[2],
				Confidence:  (uv.Confidence + vw.Confidence + uw.Confidence) / 3,
				ClosureType: dominantRelation(uv, vw, uw),
			})
		}
	}

	sort.Slice(triangles, func(i, j int) bool { return triangles[i].ID < triangles[j].ID })
	c.Triangles = triangles

	for i := range c.Triangles {
		tri := &c.Triangles[i]
		c.trianglesByNode[tri.U] = append(c.trianglesByNode[tri.U], tri)
		c.trianglesByNode[tri.V] = append(c.trianglesByNode[tri.V], tri)
		c.trianglesByNode[tri.W] = append(c.trianglesByNode[tri.W], tri)
	}
}

// dominantRelation picks the most frequent relation type across the three
// edge simplices, breaking ties by enumeration order.
func dominantRelation(edges ...*EdgeSimplex) types.RelationType {
	counts := make(map[types.RelationType]int)
	for _, e := range edges {
		for _, r := range e.Relations {
			counts[r]++
		}
	}
	best := types.RelationType("")
	bestCount := -1
	for _, r := range types.RelationTypes {
		if counts[r] > bestCount {
			best = r
			bestCount = counts[r]
		}
	}
	return best
}
