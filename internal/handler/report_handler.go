package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/nmarkovic/fieldops-api/internal/models"
	"github.com/nmarkovic/fieldops-api/internal/service"
	appErrors "github.com/nmarkovic/fieldops-api/pkg/errors"
	"github.com/nmarkovic/fieldops-api/pkg/response"
)

type reportManager interface {
	CreateJob(ctx context.Context, reportType models.ReportType, params models.ReportJobParams) (*models.ReportJob, error)
	GetStatus(ctx context.Context, id string) (*models.ReportJob, error)
	ResolveDownload(ctx context.Context, id string) (*service.ReportDownload, error)
}

// ReportRequest is the payload for queuing a report job.
type ReportRequest struct {
	Type         string     `json:"type" validate:"required,oneof=anomalies financial technicians summary"`
	From         *time.Time `json:"from,omitempty"`
	To           *time.Time `json:"to,omitempty"`
	Technician   string     `json:"technician,omitempty" validate:"max=128"`
	Municipality string     `json:"municipality,omitempty" validate:"max=128"`
}

// ReportHandler exposes asynchronous report generation endpoints.
type ReportHandler struct {
	reports  reportManager
	validate *validator.Validate
}

// NewReportHandler constructs the report handler.
func NewReportHandler(reports reportManager) *ReportHandler {
	return &ReportHandler{reports: reports, validate: validator.New()}
}

// Create queues a new report job.
func (h *ReportHandler) Create(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid report request payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	job, err := h.reports.CreateJob(c.Request.Context(), models.ReportType(req.Type), models.ReportJobParams{
		From:         req.From,
		To:           req.To,
		Technician:   req.Technician,
		Municipality: req.Municipality,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// Status returns job metadata.
func (h *ReportHandler) Status(c *gin.Context) {
	job, err := h.reports.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download streams the generated PDF for a finished job.
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.reports.ResolveDownload(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat report file"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}
