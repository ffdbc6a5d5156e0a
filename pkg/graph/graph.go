// Package graph holds the in-memory causal knowledge graph: nodes keyed by
// identifier, directed typed edges, and the adjacency index used for O(1)
// neighbor lookup. The graph is the single long-lived mutable resource in
// cartograph; everything downstream (complex, refined embeddings,
// projections) is a value object derived from a snapshot of it.
//
// The graph provides no internal locking. Callers must not mutate it while
// a derivation over it is in flight.
package graph

import (
	"fmt"
	"sort"

	"github.com/soundprediction/cartograph/pkg/types"
)

// Graph is an in-memory causal knowledge graph.
type Graph struct {
	nodes map[string]*types.Node
	edges map[string]*types.Edge

	// adjacency maps a node id to the set of node ids it shares at least
	// one directed edge with, in either direction.
	adjacency map[string]map[string]struct{}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:     make(map[string]*types.Node),
		edges:     make(map[string]*types.Edge),
		adjacency: make(map[string]map[string]struct{}),
	}
}

// AddNode inserts a node. It rejects nodes that fail validation and nodes
// whose id is already present.
func (g *Graph) AddNode(n *types.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %s", types.ErrDuplicateNode, n.ID)
	}
	g.nodes[n.ID] = n
	return nil
}

// AddEdge inserts a directed edge. Both endpoints must already exist;
// an edge referencing a missing node is rejected with ErrMissingEndpoint
// so batch loaders can skip it and continue.
func (g *Graph) AddEdge(e *types.Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, ok := g.nodes[e.Source]; !ok {
		return fmt.Errorf("%w: source %s", types.ErrMissingEndpoint, e.Source)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return fmt.Errorf("%w: target %s", types.ErrMissingEndpoint, e.Target)
	}
	if e.ID == "" {
		e.ID = edgeID(e.Source, e.Target, e.Relation)
	}
	g.edges[e.ID] = e
	g.link(e.Source, e.Target)
	return nil
}

// RemoveNode deletes a node along with every edge touching it and
// invalidates the adjacency entries involved.
func (g *Graph) RemoveNode(id string) {
	if _, ok := g.nodes[id]; !ok {
		return
	}
	for edgeKey, e := range g.edges {
		if e.Source == id || e.Target == id {
			delete(g.edges, edgeKey)
		}
	}
	for neighbor := range g.adjacency[id] {
		delete(g.adjacency[neighbor], id)
	}
	delete(g.adjacency, id)
	delete(g.nodes, id)
	g.rebuildAdjacency()
}

// RemoveEdge deletes an edge by id and rebuilds the adjacency index, since
// another directed edge may still connect the same pair.
func (g *Graph) RemoveEdge(id string) {
	if _, ok := g.edges[id]; !ok {
		return
	}
	delete(g.edges, id)
	g.rebuildAdjacency()
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *types.Node {
	return g.nodes[id]
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NodeIDs returns all node ids in ascending order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Nodes returns all nodes ordered by id.
func (g *Graph) Nodes() []*types.Node {
	ids := g.NodeIDs()
	nodes := make([]*types.Node, len(ids))
	for i, id := range ids {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

// Edges returns all directed edges ordered by id.
func (g *Graph) Edges() []*types.Edge {
	keys := make([]string, 0, len(g.edges))
	for k := range g.edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	edges := make([]*types.Edge, len(keys))
	for i, k := range keys {
		edges[i] = g.edges[k]
	}
	return edges
}

// Neighbors returns the ids of every node sharing at least one directed
// edge with id, in either direction, in ascending order.
func (g *Graph) Neighbors(id string) []string {
	set := g.adjacency[id]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NeighborSet returns the adjacency set for id. The returned map is the
// live index and must not be mutated.
func (g *Graph) NeighborSet(id string) map[string]struct{} {
	return g.adjacency[id]
}

// EdgesBetween returns every directed edge connecting u and v in either
// direction, ordered by id.
func (g *Graph) EdgesBetween(u, v string) []*types.Edge {
	var out []*types.Edge
	for _, e := range g.Edges() {
		if (e.Source == u && e.Target == v) || (e.Source == v && e.Target == u) {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) link(u, v string) {
	if u == v {
		return
	}
	if g.adjacency[u] == nil {
		g.adjacency[u] = make(map[string]struct{})
	}
	if g.adjacency[v] == nil {
		g.adjacency[v] = make(map[string]struct{})
	}
	g.adjacency[u][v] = struct{}{}
	g.adjacency[v][u] = struct{}{}
}

func (g *Graph) rebuildAdjacency() {
	g.adjacency = make(map[string]map[string]struct{})
	for _, e := range g.edges {
		g.link(e.Source, e.Target)
	}
}

func edgeID(source, target string, relation types.RelationType) string {
	return fmt.Sprintf("%s|%s|%s", source, string(relation), target)
}
