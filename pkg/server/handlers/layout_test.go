package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/cartograph"
	"github.com/soundprediction/cartograph/pkg/projection"
	"github.com/soundprediction/cartograph/pkg/server/dto"
	"github.com/soundprediction/cartograph/pkg/types"
)

func newLayoutRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewLayoutHandler(cartograph.New(nil), nil)
	router.POST("/api/v1/stats", handler.Stats)
	router.POST("/api/v1/refine", handler.Refine)
	router.POST("/api/v1/layout", handler.Layout)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testGraphPayload() dto.GraphPayload {
	return dto.GraphPayload{
		Nodes: []*types.Node{
			{ID: "smoking", Label: "Smoking"},
			{ID: "tar", Label: "Tar buildup"},
			{ID: "cancer", Label: "Lung cancer"},
			{ID: "exercise", Label: "Exercise"},
		},
		Edges: []*types.Edge{
			{Source: "smoking", Target: "tar", Relation: types.Causes, Confidence: 0.9},
			{Source: "tar", Target: "cancer", Relation: types.Causes, Confidence: 0.8},
			{Source: "cancer", Target: "smoking", Relation: types.CorrelatesWith, Confidence: 0.5},
			{Source: "exercise", Target: "cancer", Relation: types.Decreases, Confidence: 0.6},
		},
	}
}

func testEmbeddings() map[string][]float64 {
	return map[string][]float64{
		"smoking":  {1, 0, 0, 0},
		"tar":      {0, 1, 0, 0},
		"cancer":   {0, 0, 1, 0},
		"exercise": {0, 0, 0, 1},
	}
}

func TestStatsEndpoint(t *testing.T) {
	router := newLayoutRouter()

	w := postJSON(t, router, "/api/v1/stats", dto.StatsRequest{Graph: testGraphPayload()})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp dto.StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Stats.NodeCount != 4 {
		t.Errorf("expected 4 nodes, got %d", resp.Stats.NodeCount)
	}
	if resp.Stats.EdgeCount != 4 {
		t.Errorf("expected 4 edges, got %d", resp.Stats.EdgeCount)
	}
	if resp.Stats.TriangleCount != 1 {
		t.Errorf("expected 1 triangle, got %d", resp.Stats.TriangleCount)
	}
	if len(resp.Skipped) != 0 {
		t.Errorf("expected no skipped items, got %v", resp.Skipped)
	}
}

func TestStatsEndpointSkipsInvalidItems(t *testing.T) {
	router := newLayoutRouter()

	payload := testGraphPayload()
	payload.Edges = append(payload.Edges,
		&types.Edge{Source: "smoking", Target: "ghost", Relation: types.Causes, Confidence: 0.5})

	w := postJSON(t, router, "/api/v1/stats", dto.StatsRequest{Graph: payload})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp dto.StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Skipped) != 1 {
		t.Errorf("expected 1 skipped item, got %v", resp.Skipped)
	}
	if resp.Stats.EdgeCount != 4 {
		t.Errorf("expected 4 edges after skipping, got %d", resp.Stats.EdgeCount)
	}
}

func TestRefineEndpoint(t *testing.T) {
	router := newLayoutRouter()

	w := postJSON(t, router, "/api/v1/refine", dto.RefineRequest{
		Graph:      testGraphPayload(),
		Embeddings: testEmbeddings(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp dto.RefineResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Embeddings) != 4 {
		t.Errorf("expected 4 refined embeddings, got %d", len(resp.Embeddings))
	}
	for id, vec := range resp.Embeddings {
		if len(vec) != 64 {
			t.Errorf("node %s: expected hidden dimension 64, got %d", id, len(vec))
		}
	}
}

func TestRefineEndpointRejectsSingleNodeGraph(t *testing.T) {
	router := newLayoutRouter()

	w := postJSON(t, router, "/api/v1/refine", dto.RefineRequest{
		Graph: dto.GraphPayload{
			Nodes: []*types.Node{{ID: "only", Label: "Only node"}},
		},
		Embeddings: map[string][]float64{"only": {1, 0, 0, 0}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for single-node graph, got %d: %s",
			http.StatusBadRequest, w.Code, w.Body.String())
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != "invalid_request" {
		t.Errorf("expected error code invalid_request, got %s", resp.Error)
	}
}

func TestRefineEndpointMissingEmbedding(t *testing.T) {
	router := newLayoutRouter()

	embeddings := testEmbeddings()
	delete(embeddings, "exercise")

	w := postJSON(t, router, "/api/v1/refine", dto.RefineRequest{
		Graph:      testGraphPayload(),
		Embeddings: embeddings,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, w.Code, w.Body.String())
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != "invalid_input" {
		t.Errorf("expected error code invalid_input, got %s", resp.Error)
	}
}

func TestLayoutEndpoint(t *testing.T) {
	router := newLayoutRouter()

	rng := [2]float64{-100, 100}
	w := postJSON(t, router, "/api/v1/layout", dto.LayoutRequest{
		Graph:      testGraphPayload(),
		Embeddings: testEmbeddings(),
		Projector:  &projection.Config{NEpochs: 20},
		Range:      &rng,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp dto.LayoutResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.RequestID == "" {
		t.Error("expected a request id")
	}
	if len(resp.Coordinates) != 4 {
		t.Fatalf("expected 4 coordinates, got %d", len(resp.Coordinates))
	}
	for id, coord := range resp.Coordinates {
		if len(coord) != 2 {
			t.Errorf("node %s: expected 2 components, got %d", id, len(coord))
		}
		for _, v := range coord {
			if v < -100 || v > 100 {
				t.Errorf("node %s: coordinate %v outside requested range", id, v)
			}
		}
	}
}

func TestLayoutEndpointRejectsInvalidRange(t *testing.T) {
	router := newLayoutRouter()

	rng := [2]float64{50, -50}
	w := postJSON(t, router, "/api/v1/layout", dto.LayoutRequest{
		Graph:      testGraphPayload(),
		Embeddings: testEmbeddings(),
		Range:      &rng,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, w.Code, w.Body.String())
	}
}

func TestLayoutEndpointRejectsMalformedJSON(t *testing.T) {
	router := newLayoutRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/layout", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}
