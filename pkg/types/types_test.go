package types

import (
	"errors"
	"testing"
)

func TestNodeValidate(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		wantErr error
	}{
		{
			name:    "valid node",
			node:    Node{ID: "n1", Label: "smoking", Type: ConceptNodeType},
			wantErr: nil,
		},
		{
			name:    "empty id",
			node:    Node{Label: "smoking"},
			wantErr: ErrEmptyID,
		},
		{
			name:    "empty label",
			node:    Node{ID: "n1"},
			wantErr: ErrEmptyLabel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Node.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEdgeValidate(t *testing.T) {
	tests := []struct {
		name    string
		edge    Edge
		wantErr error
	}{
		{
			name:    "valid edge",
			edge:    Edge{Source: "a", Target: "b", Relation: Causes, Confidence: 0.9},
			wantErr: nil,
		},
		{
			name:    "missing source",
			edge:    Edge{Target: "b", Relation: Causes, Confidence: 0.9},
			wantErr: ErrEmptyID,
		},
		{
			name:    "unknown relation",
			edge:    Edge{Source: "a", Target: "b", Relation: "explodes", Confidence: 0.9},
			wantErr: ErrUnknownRelation,
		},
		{
			name:    "confidence above range",
			edge:    Edge{Source: "a", Target: "b", Relation: Causes, Confidence: 1.2},
			wantErr: ErrConfidenceRange,
		},
		{
			name:    "confidence below range",
			edge:    Edge{Source: "a", Target: "b", Relation: Causes, Confidence: -0.1},
			wantErr: ErrConfidenceRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.edge.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Edge.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRelationTypeValid(t *testing.T) {
	for _, r := range RelationTypes {
		if !r.Valid() {
			t.Errorf("RelationType(%q).Valid() = false, want true", r)
		}
	}
	if RelationType("teleports").Valid() {
		t.Error("unknown relation reported as valid")
	}
}

func TestRelationTypeSignal(t *testing.T) {
	seen := make(map[float64]RelationType)
	for _, r := range RelationTypes {
		s := r.Signal()
		if s <= 0 || s > 1 {
			t.Errorf("Signal(%q) = %v, want in (0, 1]", r, s)
		}
		if prev, ok := seen[s]; ok {
			t.Errorf("Signal collision between %q and %q", prev, r)
		}
		seen[s] = r
	}
}
