package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/nmarkovic/fieldops-api/internal/analytics"
	"github.com/nmarkovic/fieldops-api/internal/models"
	"github.com/nmarkovic/fieldops-api/internal/repository"
	appErrors "github.com/nmarkovic/fieldops-api/pkg/errors"
	"github.com/nmarkovic/fieldops-api/pkg/export"
	"github.com/nmarkovic/fieldops-api/pkg/jobs"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type analyticsEngine interface {
	Anomalies(ctx context.Context, filter models.ActivityFilter, cfg analytics.DetectorConfig) ([]models.AnomalyRecord, bool, error)
	Forecast(ctx context.Context, filter models.ActivityFilter, cfg analytics.PredictorConfig) (models.Forecast, bool, error)
	Financial(ctx context.Context, filter models.ActivityFilter, cfg analytics.FinancialConfig) (models.FinancialReport, bool, error)
	Technicians(ctx context.Context, filter models.ActivityFilter, cfg analytics.RankingConfig) ([]models.TechnicianMetric, bool, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type reportFileStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File     *os.File
	Filename string
}

// ReportService orchestrates report job lifecycle management: creation,
// background generation and file download resolution.
type ReportService struct {
	repo      reportJobStore
	queue     jobDispatcher
	analytics analyticsEngine
	renderer  pdfRenderer
	files     reportFileStore
	logger    *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, queue jobDispatcher, engine analyticsEngine, renderer pdfRenderer, files reportFileStore, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:      repo,
		queue:     queue,
		analytics: engine,
		renderer:  renderer,
		files:     files,
		logger:    logger,
	}
}

// SetQueue wires the dispatcher after construction. The queue handler needs
// the service, so the two are linked in a second step.
func (s *ReportService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// CreateJob validates the request, persists the job row and enqueues processing.
func (s *ReportService) CreateJob(ctx context.Context, reportType models.ReportType, params models.ReportJobParams) (*models.ReportJob, error) {
	switch reportType {
	case models.ReportTypeAnomalies, models.ReportTypeFinancial, models.ReportTypeTechnicians, models.ReportTypeSummary:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report type %q", reportType))
	}

	job := &models.ReportJob{
		Type:   reportType,
		Params: params,
		Status: models.ReportStatusQueued,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		s.markFailed(ctx, job.ID, "failed to enqueue job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// GetStatus exposes job metadata to clients.
func (s *ReportService) GetStatus(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return job, nil
}

// ResolveDownload opens the generated file for a finished job.
func (s *ReportService) ResolveDownload(ctx context.Context, id string) (*ReportDownload, error) {
	job, err := s.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ReportStatusFinished || job.ResultPath == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report is not ready for download")
	}
	file, err := s.files.Open(*job.ResultPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report file")
	}
	return &ReportDownload{
		File:     file,
		Filename: fmt.Sprintf("%s-report-%s.pdf", job.Type, job.ID),
	}, nil
}

// RecoverQueued re-enqueues jobs left in the queued state by a previous run.
func (s *ReportService) RecoverQueued(ctx context.Context, limit int) error {
	queued, err := s.repo.ListQueued(ctx, limit)
	if err != nil {
		return err
	}
	for _, job := range queued {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("requeue report job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if len(queued) > 0 {
		s.logger.Info("recovered queued report jobs", zap.Int("count", len(queued)))
	}
	return nil
}

// Process is the queue handler: it generates the report document for one job.
func (s *ReportService) Process(ctx context.Context, queued jobs.Job) error {
	job, err := s.repo.GetByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", queued.ID, err)
	}

	s.updateProgress(ctx, job.ID, models.ReportStatusProcessing, 10)

	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		s.markFailed(ctx, job.ID, err.Error())
		return fmt.Errorf("build dataset for %s: %w", job.ID, err)
	}
	s.updateProgress(ctx, job.ID, models.ReportStatusProcessing, 60)

	payload, err := s.renderer.Render(dataset)
	if err != nil {
		s.markFailed(ctx, job.ID, "failed to render report")
		return fmt.Errorf("render report %s: %w", job.ID, err)
	}

	stored, err := s.files.Save(fmt.Sprintf("%s-%s.pdf", job.Type, job.ID), payload)
	if err != nil {
		s.markFailed(ctx, job.ID, "failed to store report")
		return fmt.Errorf("store report %s: %w", job.ID, err)
	}

	status := models.ReportStatusFinished
	progress := 100
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:     &status,
		Progress:   &progress,
		ResultPath: &stored,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("finish report job %s: %w", job.ID, err)
	}
	s.logger.Info("report generated", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return nil
}

func (s *ReportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, error) {
	filter := models.ActivityFilter{
		From:         job.Params.From,
		To:           job.Params.To,
		Technician:   job.Params.Technician,
		Municipality: job.Params.Municipality,
	}

	switch job.Type {
	case models.ReportTypeAnomalies:
		anomalies, _, err := s.analytics.Anomalies(ctx, filter, analytics.DetectorConfig{})
		if err != nil {
			return export.Dataset{}, err
		}
		return export.Dataset{
			Title:    "Anomaly report",
			Sections: []export.Section{anomalySection(anomalies)},
		}, nil
	case models.ReportTypeFinancial:
		report, _, err := s.analytics.Financial(ctx, filter, analytics.FinancialConfig{})
		if err != nil {
			return export.Dataset{}, err
		}
		return export.Dataset{
			Title: "Financial report",
			Sections: []export.Section{
				overallSection(report.Overall),
				technicianFinanceSection(report.ByTechnician),
				serviceTypeSection(report.ByServiceType),
			},
		}, nil
	case models.ReportTypeTechnicians:
		metrics, _, err := s.analytics.Technicians(ctx, filter, analytics.RankingConfig{})
		if err != nil {
			return export.Dataset{}, err
		}
		return export.Dataset{
			Title:    "Technician performance report",
			Sections: []export.Section{technicianSection(metrics)},
		}, nil
	case models.ReportTypeSummary:
		anomalies, _, err := s.analytics.Anomalies(ctx, filter, analytics.DetectorConfig{})
		if err != nil {
			return export.Dataset{}, err
		}
		financial, _, err := s.analytics.Financial(ctx, filter, analytics.FinancialConfig{})
		if err != nil {
			return export.Dataset{}, err
		}
		metrics, _, err := s.analytics.Technicians(ctx, filter, analytics.RankingConfig{})
		if err != nil {
			return export.Dataset{}, err
		}
		if len(metrics) > 5 {
			metrics = metrics[:5]
		}
		forecast, _, err := s.analytics.Forecast(ctx, filter, analytics.PredictorConfig{})
		if err != nil {
			return export.Dataset{}, err
		}
		return export.Dataset{
			Title: "Operations summary",
			Sections: []export.Section{
				anomalySection(anomalies),
				overallSection(financial.Overall),
				technicianSection(metrics),
				forecastSection(forecast.Points),
			},
		}, nil
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %q", job.Type)
	}
}

func (s *ReportService) updateProgress(ctx context.Context, id string, status models.ReportStatus, progress int) {
	if err := s.repo.Update(ctx, id, repository.UpdateReportJobParams{Status: &status, Progress: &progress}); err != nil {
		s.logger.Warn("update report progress", zap.String("job_id", id), zap.Error(err))
	}
}

func (s *ReportService) markFailed(ctx context.Context, id, message string) {
	status := models.ReportStatusFailed
	progress := 100
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateReportJobParams{
		Status:       &status,
		Progress:     &progress,
		ErrorMessage: &message,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Warn("mark report job failed", zap.String("job_id", id), zap.Error(err))
	}
}

func anomalySection(anomalies []models.AnomalyRecord) export.Section {
	section := export.Section{
		Title:   "Detected anomalies",
		Headers: []string{"Date", "Type", "Severity", "Metric", "Value", "Expected", "Confidence"},
	}
	for _, a := range anomalies {
		section.Rows = append(section.Rows, map[string]string{
			"Date":       a.Date,
			"Type":       string(a.Type),
			"Severity":   string(a.Severity),
			"Metric":     a.Metric,
			"Value":      fmt.Sprintf("%.1f", a.Value),
			"Expected":   fmt.Sprintf("%.1f", a.ExpectedValue),
			"Confidence": fmt.Sprintf("%.0f%%", a.Confidence),
		})
	}
	return section
}

func overallSection(overall models.FinancialRollup) export.Section {
	return export.Section{
		Title:   "Overall financials",
		Headers: []string{"Orders", "Revenue", "Cost", "Profit", "Margin"},
		Rows: []map[string]string{{
			"Orders":  fmt.Sprintf("%d", overall.TotalOrders),
			"Revenue": fmt.Sprintf("%.1f", overall.TotalRevenue),
			"Cost":    fmt.Sprintf("%.1f", overall.TotalCost),
			"Profit":  fmt.Sprintf("%.1f", overall.TotalProfit),
			"Margin":  fmt.Sprintf("%.1f%%", overall.ProfitMargin),
		}},
	}
}

func technicianFinanceSection(finances []models.TechnicianFinance) export.Section {
	section := export.Section{
		Title:   "Financials by technician",
		Headers: []string{"Technician", "Orders", "Revenue", "Profit", "Hours", "Profit/h"},
	}
	for _, f := range finances {
		section.Rows = append(section.Rows, map[string]string{
			"Technician": f.Key,
			"Orders":     fmt.Sprintf("%d", f.TotalOrders),
			"Revenue":    fmt.Sprintf("%.1f", f.TotalRevenue),
			"Profit":     fmt.Sprintf("%.1f", f.TotalProfit),
			"Hours":      fmt.Sprintf("%.1f", f.WorkHours),
			"Profit/h":   fmt.Sprintf("%.1f", f.Efficiency),
		})
	}
	return section
}

func serviceTypeSection(services []models.ServiceTypeFinance) export.Section {
	section := export.Section{
		Title:   "Financials by service type",
		Headers: []string{"Service", "Orders", "Revenue", "Profit", "Share"},
	}
	for _, f := range services {
		section.Rows = append(section.Rows, map[string]string{
			"Service": f.Key,
			"Orders":  fmt.Sprintf("%d", f.TotalOrders),
			"Revenue": fmt.Sprintf("%.1f", f.TotalRevenue),
			"Profit":  fmt.Sprintf("%.1f", f.TotalProfit),
			"Share":   fmt.Sprintf("%.1f%%", f.MarketShare),
		})
	}
	return section
}

func forecastSection(points []models.PredictionPoint) export.Section {
	section := export.Section{
		Title:   "Volume forecast",
		Headers: []string{"Date", "Day", "Orders", "Technicians", "Confidence"},
	}
	for _, p := range points {
		section.Rows = append(section.Rows, map[string]string{
			"Date":        p.Date,
			"Day":         p.DayOfWeek,
			"Orders":      fmt.Sprintf("%.1f", p.PredictedWorkOrders),
			"Technicians": fmt.Sprintf("%d", p.PredictedTechnicians),
			"Confidence":  fmt.Sprintf("%.0f%%", p.Confidence),
		})
	}
	return section
}

func technicianSection(metrics []models.TechnicianMetric) export.Section {
	section := export.Section{
		Title:   "Technician rankings",
		Headers: []string{"Technician", "Orders", "Success", "Speed", "Satisfaction", "Score"},
	}
	for _, m := range metrics {
		section.Rows = append(section.Rows, map[string]string{
			"Technician":   m.Technician,
			"Orders":       fmt.Sprintf("%d", m.TotalOrders),
			"Success":      fmt.Sprintf("%.1f%%", m.SuccessRate),
			"Speed":        fmt.Sprintf("%.1f", m.SpeedScore),
			"Satisfaction": fmt.Sprintf("%.1f", m.AvgSatisfaction),
			"Score":        fmt.Sprintf("%.1f", m.PerformanceScore),
		})
	}
	return section
}
