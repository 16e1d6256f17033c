package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nmarkovic/fieldops-api/internal/models"
	appErrors "github.com/nmarkovic/fieldops-api/pkg/errors"
	"github.com/nmarkovic/fieldops-api/pkg/response"
)

type activityIngestor interface {
	Ingest(ctx context.Context, raws []models.RawActivityRecord) (int, error)
	Count(ctx context.Context) (int, error)
}

// IngestRequest wraps the raw upstream payload.
type IngestRequest struct {
	Data []models.RawActivityRecord `json:"data"`
}

// ActivityHandler exposes the ingestion endpoint for raw activity logs.
type ActivityHandler struct {
	activities activityIngestor
}

// NewActivityHandler constructs the activity handler.
func NewActivityHandler(activities activityIngestor) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// Ingest accepts a batch of raw activity records, normalises and stores them.
func (h *ActivityHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid ingest payload"))
		return
	}
	inserted, err := h.activities.Ingest(c.Request.Context(), req.Data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"inserted": inserted}, nil)
}

// Count reports the stored record total.
func (h *ActivityHandler) Count(c *gin.Context) {
	count, err := h.activities.Count(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": count}, nil)
}
