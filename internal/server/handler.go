package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spigell/resource-recommender/internal/airtable"
	"github.com/spigell/resource-recommender/internal/logger"
	"github.com/spigell/resource-recommender/internal/metrics"
	"github.com/spigell/resource-recommender/internal/resources"
	"go.uber.org/zap"
)

const (
	MessageGenerationFailed = "Failed to generate AI-generated response as JSON"
	MessageRetrievalFailed  = "Failed to retrieve resources."
	MessageInvalidBody      = "Invalid JSON body."
)

// Finder runs the recommendation flow for a sector selection.
type Finder interface {
	Find(ctx context.Context, sectors []string) (*resources.Result, error)
}

// ResourcesRequest is the body of POST /get-resources. Unknown fields are ignored.
type ResourcesRequest struct {
	Sectors []string `json:"sectors"`
}

type SuccessResponse struct {
	Success              bool               `json:"success"`
	Resources            []*airtable.Record `json:"resources"`
	AIGeneratedResources any                `json:"aiGeneratedResources"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type ResourcesHandler struct {
	finder Finder
	logger *zap.Logger
}

func NewResourcesHandler(finder Finder, log *zap.Logger) *ResourcesHandler {
	return &ResourcesHandler{finder: finder, logger: logger.WithFields(log)}
}

func (h *ResourcesHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/get-resources", h.GetResources)
}

// GetResources serves one recommendation. The flow is detached from the
// client connection: a disconnect does not abort the store or model calls.
func (h *ResourcesHandler) GetResources(c *gin.Context) {
	log := logger.From(c.Request.Context(), h.logger)

	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	req, err := decodeRequest(c.Request.Body)
	if err != nil {
		log.Warn("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: MessageInvalidBody})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())

	result, err := h.finder.Find(ctx, req.Sectors)
	switch {
	case err == nil:
		metrics.RecommendationsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
		c.JSON(http.StatusOK, SuccessResponse{
			Success:              true,
			Resources:            result.Resources.List(),
			AIGeneratedResources: recommendationValue(result),
		})
	case errors.Is(err, resources.ErrGeneration):
		metrics.RecommendationsTotal.WithLabelValues(metrics.OutcomeGenerationFailed).Inc()
		log.Error("AI response generating error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Success: false, Error: MessageGenerationFailed})
	default:
		metrics.RecommendationsTotal.WithLabelValues(metrics.OutcomeRetrievalFailed).Inc()
		log.Error("error fetching resources", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Success: false, Error: MessageRetrievalFailed})
	}
}

// decodeRequest reads the selection. An empty body is an empty selection.
func decodeRequest(body io.Reader) (*ResourcesRequest, error) {
	var req ResourcesRequest
	if body == nil {
		return &req, nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(string(data)) == "" {
		return &req, nil
	}

	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}

	return &req, nil
}

func recommendationValue(result *resources.Result) any {
	if result == nil || result.Recommendation == nil {
		return nil
	}
	return result.Recommendation.Value
}

// recoverWithRetrievalError turns a panic in any handler into the generic
// retrieval failure response.
func recoverWithRetrievalError(log *zap.Logger) gin.RecoveryFunc {
	log = logger.WithFields(log)

	return func(c *gin.Context, recovered any) {
		logger.From(c.Request.Context(), log).Error("panic while serving request", zap.Any("panic", recovered))
		metrics.RecommendationsTotal.WithLabelValues(metrics.OutcomeRetrievalFailed).Inc()
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Success: false, Error: MessageRetrievalFailed})
	}
}
