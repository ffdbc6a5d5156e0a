package dto

import (
	"fmt"

	"github.com/soundprediction/cartograph/pkg/projection"
	"github.com/soundprediction/cartograph/pkg/transformer"
	"github.com/soundprediction/cartograph/pkg/types"
)

// RefineRequest asks the server to run the geometric transformer over a
// graph snapshot and its raw per-node embeddings.
type RefineRequest struct {
	Graph      GraphPayload         `json:"graph" binding:"required"`
	Embeddings map[string][]float64 `json:"embeddings" binding:"required"`

	// Transformer optionally overrides the server's transformer defaults
	// for this request only. Zero fields keep their defaults.
	Transformer *transformer.Config `json:"transformer,omitempty"`
}

// Validate performs validation on RefineRequest
func (r *RefineRequest) Validate() error {
	if err := r.Graph.Validate(); err != nil {
		return err
	}
	if len(r.Embeddings) == 0 {
		return ErrNoEmbeddings
	}
	return nil
}

// RefineResponse carries the refined embeddings and the complex
// statistics they were derived from.
type RefineResponse struct {
	Embeddings map[string][]float64 `json:"embeddings"`
	Stats      types.GraphStats     `json:"stats"`
	Skipped    []string             `json:"skipped,omitempty"`
}

// LayoutRequest asks the server to run the full pipeline and return
// final coordinates.
type LayoutRequest struct {
	Graph      GraphPayload         `json:"graph" binding:"required"`
	Embeddings map[string][]float64 `json:"embeddings" binding:"required"`

	// Transformer and Projector optionally override the server defaults
	// for this request only.
	Transformer *transformer.Config `json:"transformer,omitempty"`
	Projector   *projection.Config  `json:"projector,omitempty"`

	// Range rescales each output axis to [Range[0], Range[1]] when set.
	Range *[2]float64 `json:"range,omitempty"`
}

// Validate performs validation on LayoutRequest
func (r *LayoutRequest) Validate() error {
	if err := r.Graph.Validate(); err != nil {
		return err
	}
	if len(r.Embeddings) == 0 {
		return ErrNoEmbeddings
	}
	if len(r.Embeddings) < len(r.Graph.Nodes) {
		return fmt.Errorf("%w: %d embeddings for %d nodes",
			types.ErrMissingEmbedding, len(r.Embeddings), len(r.Graph.Nodes))
	}
	if r.Range != nil && r.Range[0] >= r.Range[1] {
		return ErrInvalidRange
	}
	return nil
}

// LayoutResponse carries the final node coordinates.
type LayoutResponse struct {
	RequestID   string               `json:"request_id"`
	Coordinates map[string][]float64 `json:"coordinates"`
	Stats       types.GraphStats     `json:"stats"`
	Skipped     []string             `json:"skipped,omitempty"`
}

// StatsRequest asks the server for the statistics snapshot of a graph.
type StatsRequest struct {
	Graph GraphPayload `json:"graph" binding:"required"`
}

// StatsResponse carries the statistics snapshot plus any items the batch
// loader skipped.
type StatsResponse struct {
	Stats   types.GraphStats `json:"stats"`
	Skipped []string         `json:"skipped,omitempty"`
}
