package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nmarkovic/fieldops-api/internal/models"
	appErrors "github.com/nmarkovic/fieldops-api/pkg/errors"
)

// ActivityStore describes the persistence layer required by ActivityService.
type ActivityStore interface {
	InsertBatch(ctx context.Context, records []models.ActivityRecord) (int, error)
	Count(ctx context.Context) (int, error)
}

// ActivityService normalises and ingests raw activity payloads. Ingestion
// invalidates every cached analytics payload since any of them may change.
type ActivityService struct {
	repo     ActivityStore
	cache    *CacheService
	metrics  *MetricsService
	maxBatch int
	logger   *zap.Logger
}

// NewActivityService constructs an activity service.
func NewActivityService(repo ActivityStore, cache *CacheService, metrics *MetricsService, maxBatch int, logger *zap.Logger) *ActivityService {
	if maxBatch <= 0 {
		maxBatch = 10000
	}
	return &ActivityService{repo: repo, cache: cache, metrics: metrics, maxBatch: maxBatch, logger: logger}
}

// Ingest normalises the raw records exactly once and persists them. Records
// without an id get one assigned so re-posted batches stay distinguishable
// from re-ingested ones.
func (s *ActivityService) Ingest(ctx context.Context, raws []models.RawActivityRecord) (int, error) {
	if len(raws) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "payload contains no records")
	}
	if len(raws) > s.maxBatch {
		return 0, appErrors.Clone(appErrors.ErrValidation, "payload exceeds the maximum batch size")
	}

	records := make([]models.ActivityRecord, 0, len(raws))
	for _, raw := range raws {
		rec := raw.Normalize()
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		records = append(records, rec)
	}

	start := time.Now()
	inserted, err := s.repo.InsertBatch(ctx, records)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store activity records")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("activity_ingest", time.Since(start))
	}

	if err := s.cache.Invalidate(ctx, "analytics:*"); err != nil && s.logger != nil {
		s.logger.Warn("invalidate analytics cache after ingest", zap.Error(err))
	}
	return inserted, nil
}

// Count reports how many activity records are stored.
func (s *ActivityService) Count(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count activity records")
	}
	return count, nil
}
