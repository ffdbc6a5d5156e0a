package types

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrEmptyID           = errors.New("id cannot be empty")
	ErrEmptyLabel        = errors.New("label cannot be empty")
	ErrDuplicateNode     = errors.New("node with this id already exists")
	ErrMissingEndpoint   = errors.New("edge references a node that does not exist")
	ErrUnknownRelation   = errors.New("unknown relation type")
	ErrConfidenceRange   = errors.New("confidence must be in [0, 1]")
	ErrDimensionMismatch = errors.New("embedding vectors must all have the same length")
	ErrMissingEmbedding  = errors.New("node is missing an embedding vector")
	ErrTooFewPoints      = errors.New("at least 2 points are required")
	ErrNonFiniteValue    = errors.New("embedding contains a non-finite value")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrTransformerClosed = errors.New("transformer has been closed")
)

// Node represents a concept in the causal knowledge graph.
type Node struct {
	ID     string   `json:"id" mapstructure:"id"`
	Label  string   `json:"label" mapstructure:"label"`
	Type   NodeType `json:"type,omitempty" mapstructure:"type"`
	Domain string   `json:"domain,omitempty" mapstructure:"domain"`
}

// Validate checks if the Node has all required fields set.
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrEmptyID
	}
	if n.Label == "" {
		return ErrEmptyLabel
	}
	return nil
}

// NodeType classifies what kind of concept a node represents.
type NodeType string

const (
	ConceptNodeType  NodeType = "concept"
	EventNodeType    NodeType = "event"
	EntityNodeType   NodeType = "entity"
	VariableNodeType NodeType = "variable"
)

// Edge represents a directed, typed, confidence-weighted causal relation
// between two nodes.
type Edge struct {
	ID         string       `json:"id" mapstructure:"id"`
	Source     string       `json:"source" mapstructure:"source"`
	Target     string       `json:"target" mapstructure:"target"`
	Relation   RelationType `json:"relation" mapstructure:"relation"`
	Confidence float64      `json:"confidence" mapstructure:"confidence"`
}

// Validate checks if the Edge has all required fields set and that its
// confidence and relation type are valid.
func (e *Edge) Validate() error {
	if e.Source == "" || e.Target == "" {
		return ErrEmptyID
	}
	if !e.Relation.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRelation, e.Relation)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("%w: %v", ErrConfidenceRange, e.Confidence)
	}
	return nil
}

// RelationType is the closed enumeration of causal relation kinds an edge
// can carry.
type RelationType string

const (
	Causes         RelationType = "causes"
	Enables        RelationType = "enables"
	Prevents       RelationType = "prevents"
	Increases      RelationType = "increases"
	Decreases      RelationType = "decreases"
	CorrelatesWith RelationType = "correlates_with"
	Requires       RelationType = "requires"
	Produces       RelationType = "produces"
	Inhibits       RelationType = "inhibits"
	Modulates      RelationType = "modulates"
	Triggers       RelationType = "triggers"
	Amplifies      RelationType = "amplifies"
	Mediates       RelationType = "mediates"
)

// RelationTypes lists every valid relation type in declaration order.
var RelationTypes = []RelationType{
	Causes, Enables, Prevents, Increases, Decreases, CorrelatesWith,
	Requires, Produces, Inhibits, Modulates, Triggers, Amplifies, Mediates,
}

// Valid reports whether r is one of the closed relation-type enumeration.
func (r RelationType) Valid() bool {
	for _, t := range RelationTypes {
		if r == t {
			return true
		}
	}
	return false
}

// Signal returns a scalar in (0, 1] used by the geometric transformer to
// distinguish relation kinds when mixing neighbor contributions. Each
// relation gets a distinct, stable value derived from its position in the
// enumeration.
func (r RelationType) Signal() float64 {
	for i, t := range RelationTypes {
		if r == t {
			return float64(i+1) / float64(len(RelationTypes))
		}
	}
	return 0.5
}

// GraphStats is a derived statistics snapshot over a graph and its
// simplicial complex.
type GraphStats struct {
	NodeCount         int     `json:"node_count"`
	EdgeCount         int     `json:"edge_count"`
	TriangleCount     int     `json:"triangle_count"`
	AverageDegree     float64 `json:"average_degree"`
	AverageClustering float64 `json:"average_clustering"`
	Density           float64 `json:"density"`
}
