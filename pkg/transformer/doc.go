// Package transformer refines per-node embedding vectors by propagating
// information along the 1- and 2-simplex structure of a causal knowledge
// graph. Each layer computes a multi-head attention-weighted aggregate of
// a node's incident edge and triangle contributions, applies a residual
// connection, and optionally re-normalizes the vector, so that
// topologically related concepts (including triangular causal cycles, not
// just pairwise links) move closer in embedding space.
//
// A Transformer owns gonum weight buffers sized by its configuration.
// Close releases them: it is idempotent, and using a closed transformer
// is a programming error that panics.
package transformer
