package dto

import (
	"errors"
	"fmt"

	"github.com/soundprediction/cartograph/pkg/types"
)

// Validation errors
var (
	ErrEmptyGraph   = errors.New("graph must contain at least one node")
	ErrTooFewNodes  = errors.New("graph must contain at least 2 nodes")
	ErrTooManyNodes = errors.New("node count exceeds maximum (100000)")
	ErrTooManyEdges = errors.New("edge count exceeds maximum (1000000)")
	ErrNoEmbeddings = errors.New("embeddings cannot be empty")
	ErrInvalidRange = errors.New("range min must be strictly less than range max")
)

// Maximum payload sizes to prevent abuse
const (
	MaxNodeCount = 100_000
	MaxEdgeCount = 1_000_000
)

// GraphPayload carries the nodes and edges of a graph snapshot.
type GraphPayload struct {
	Nodes []*types.Node `json:"nodes" binding:"required"`
	Edges []*types.Edge `json:"edges,omitempty"`
}

// Validate performs structural validation on GraphPayload. Per-item
// problems (bad relation types, out-of-range confidence) are left to the
// batch loader, which skips them instead of rejecting the request.
func (p *GraphPayload) Validate() error {
	if len(p.Nodes) == 0 {
		return ErrEmptyGraph
	}
	if len(p.Nodes) < 2 {
		return ErrTooFewNodes
	}
	if len(p.Nodes) > MaxNodeCount {
		return ErrTooManyNodes
	}
	if len(p.Edges) > MaxEdgeCount {
		return ErrTooManyEdges
	}
	for i, n := range p.Nodes {
		if n == nil {
			return fmt.Errorf("node %d is null", i)
		}
	}
	for i, e := range p.Edges {
		if e == nil {
			return fmt.Errorf("edge %d is null", i)
		}
	}
	return nil
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
