package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/soundprediction/cartograph"
	"github.com/soundprediction/cartograph/pkg/graph"
	"github.com/soundprediction/cartograph/pkg/projection"
	"github.com/soundprediction/cartograph/pkg/server/dto"
	"github.com/soundprediction/cartograph/pkg/transformer"
	"github.com/soundprediction/cartograph/pkg/types"
)

// LayoutHandler handles pipeline requests: statistics, refinement, and
// full layout runs.
type LayoutHandler struct {
	carto  cartograph.Cartograph
	logger *slog.Logger
}

// NewLayoutHandler creates a new layout handler
func NewLayoutHandler(c cartograph.Cartograph, logger *slog.Logger) *LayoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LayoutHandler{carto: c, logger: logger}
}

// Stats handles POST /api/v1/stats
func (h *LayoutHandler) Stats(c *gin.Context) {
	var req dto.StatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Graph.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	g, skipped := loadGraph(&req.Graph, h.logger)
	c.JSON(http.StatusOK, dto.StatsResponse{
		Stats:   h.carto.Stats(g),
		Skipped: skipped,
	})
}

// Refine handles POST /api/v1/refine
func (h *LayoutHandler) Refine(c *gin.Context) {
	var req dto.RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	g, skipped := loadGraph(&req.Graph, h.logger)
	carto := h.clientFor(req.Transformer, nil)

	refined, err := carto.Refine(c.Request.Context(), g, req.Embeddings)
	if err != nil {
		status, code := classifyError(err)
		writeError(c, status, code, err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.RefineResponse{
		Embeddings: refined,
		Stats:      h.carto.Stats(g),
		Skipped:    skipped,
	})
}

// Layout handles POST /api/v1/layout
func (h *LayoutHandler) Layout(c *gin.Context) {
	var req dto.LayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	requestID := uuid.New().String()
	g, skipped := loadGraph(&req.Graph, h.logger)
	carto := h.clientFor(req.Transformer, req.Projector)

	opts := &cartograph.LayoutOptions{}
	if req.Range != nil {
		opts.Range = *req.Range
	}

	h.logger.Info("layout request started",
		"request_id", requestID,
		"nodes", len(req.Graph.Nodes),
		"edges", len(req.Graph.Edges))

	result, err := carto.Layout(c.Request.Context(), g, req.Embeddings, opts)
	if err != nil {
		status, code := classifyError(err)
		h.logger.Warn("layout request failed",
			"request_id", requestID, "error", err)
		writeError(c, status, code, err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.LayoutResponse{
		RequestID:   requestID,
		Coordinates: result.Coordinates,
		Stats:       result.Stats,
		Skipped:     skipped,
	})
}

// clientFor returns the shared client, or a per-request one when the
// request overrides the transformer or projector configuration.
func (h *LayoutHandler) clientFor(tc *transformer.Config, pc *projection.Config) cartograph.Cartograph {
	if tc == nil && pc == nil {
		return h.carto
	}
	return cartograph.New(&cartograph.Options{
		Transformer: tc,
		Projector:   pc,
		Logger:      h.logger,
	})
}

// loadGraph builds a graph from the payload, skipping invalid items and
// returning their errors as strings.
func loadGraph(p *dto.GraphPayload, logger *slog.Logger) (*graph.Graph, []string) {
	g := graph.New()
	result := graph.Load(g, p.Nodes, p.Edges, logger)

	var skipped []string
	for _, err := range result.Skipped {
		skipped = append(skipped, err.Error())
	}
	return g, skipped
}

// classifyError maps pipeline errors to HTTP status codes. Caller input
// problems become 400s; everything else is a 500.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrMissingEmbedding),
		errors.Is(err, types.ErrDimensionMismatch),
		errors.Is(err, types.ErrTooFewPoints),
		errors.Is(err, types.ErrNonFiniteValue),
		errors.Is(err, types.ErrInvalidConfig):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "pipeline_failed"
	}
}

// writeError writes an error response as JSON
func writeError(c *gin.Context, status int, errCode, message string) {
	c.JSON(status, dto.ErrorResponse{
		Error:   errCode,
		Message: message,
		Code:    status,
	})
}
