// Package types defines the core data model shared across cartograph:
// causal graph nodes and edges, the closed relation-type enumeration,
// configuration structs for the geometric transformer and the manifold
// projector, and the sentinel validation errors surfaced by every stage
// of the pipeline.
package types
