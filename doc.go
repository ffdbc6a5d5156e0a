/*
Package cartograph projects causal knowledge graphs into navigable
low-dimensional manifolds.

The pipeline runs in four stages over a graph of concepts and directed,
typed, confidence-weighted causal relations:

 1. A simplicial complex is derived from the graph's undirected closure:
    nodes, edges, and the triangles closed by three pairwise connections.
 2. A geometric transformer refines per-node embedding vectors with
    multi-head attention over the incident edge and triangle structure.
 3. A UMAP-style manifold projector reduces the refined vectors to 2D or
    3D coordinates, with progress reporting and cooperative cancellation.
 4. Post-processing rescales the coordinates into a caller-chosen range
    and associates them back to node identifiers.

Usage:

	g := graph.New()
	// ... add nodes and edges ...

	client := cartograph.New(nil)
	layout, err := client.Layout(ctx, g, embeddings, &cartograph.LayoutOptions{
		Range: [2]float64{-50, 50},
	})

The graph is the only long-lived mutable state; complexes, refined
embeddings, and projections are value objects recomputed per call. Callers
must not mutate a graph while a derivation over it is in flight.
*/
package cartograph
