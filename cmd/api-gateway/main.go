package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nmarkovic/fieldops-api/api/swagger"
	"github.com/nmarkovic/fieldops-api/internal/analytics"
	"github.com/nmarkovic/fieldops-api/internal/handler"
	"github.com/nmarkovic/fieldops-api/internal/middleware"
	"github.com/nmarkovic/fieldops-api/internal/models"
	"github.com/nmarkovic/fieldops-api/internal/repository"
	"github.com/nmarkovic/fieldops-api/internal/service"
	"github.com/nmarkovic/fieldops-api/pkg/cache"
	"github.com/nmarkovic/fieldops-api/pkg/config"
	"github.com/nmarkovic/fieldops-api/pkg/database"
	"github.com/nmarkovic/fieldops-api/pkg/export"
	"github.com/nmarkovic/fieldops-api/pkg/jobs"
	"github.com/nmarkovic/fieldops-api/pkg/logger"
	corsmiddleware "github.com/nmarkovic/fieldops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/nmarkovic/fieldops-api/pkg/middleware/requestid"
	"github.com/nmarkovic/fieldops-api/pkg/storage"
)

// @title FieldOps Analytics API
// @version 1.0.0
// @description Analytics engine for field-service operations dashboards
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Analytics still works without Redis, every request just recomputes.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, redisClient != nil)

	activityRepo := repository.NewActivityRepository(db)
	reportRepo := repository.NewReportRepository(db)

	analyticsSvc := service.NewAnalyticsService(activityRepo, cacheSvc, metricsSvc, cfg.Analytics.CacheTTL, logr)
	activitySvc := service.NewActivityService(activityRepo, cacheSvc, metricsSvc, cfg.Ingest.MaxBatchSize, logr)

	reportFiles, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare report storage", "error", err)
	}
	reportSvc := service.NewReportService(reportRepo, nil, analyticsSvc, export.NewPDFExporter(), reportFiles, logr)
	reportQueue := jobs.NewQueue("reports", reportSvc.Process, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc.SetQueue(reportQueue)

	detector := analytics.DetectorConfig{
		MinDataPoints:        cfg.Detection.MinDataPoints,
		ZScoreLimit:          cfg.Detection.ZScoreLimit,
		VolumeChangePercent:  cfg.Detection.VolumeChangePercent,
		FailureRateThreshold: cfg.Detection.FailureRateThreshold,
		ResponseTimeLimitMin: cfg.Detection.ResponseTimeLimitMin,
		Sensitivity:          analytics.Sensitivity(cfg.Detection.Sensitivity),
	}
	predictor := analytics.PredictorConfig{
		HorizonDays:     cfg.Forecast.HorizonDays,
		Model:           models.ModelType(cfg.Forecast.ModelType),
		ConfidenceLevel: cfg.Forecast.ConfidenceLevel,
	}
	var financial analytics.FinancialConfig
	if cfg.Forecast.NoiseEnabled {
		noise := analytics.NewSeededNoise(cfg.Forecast.NoiseSeed)
		predictor.Noise = noise
		financial.Noise = noise
	}

	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc, detector, predictor, financial)
	reportHandler := handler.NewReportHandler(reportSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		ag := api.Group("/analytics")
		ag.GET("/anomalies", analyticsHandler.Anomalies)
		ag.GET("/predictions", analyticsHandler.Predictions)
		ag.GET("/financial", analyticsHandler.Financial)
		ag.GET("/technicians", analyticsHandler.Technicians)
		ag.GET("/hourly-distribution", analyticsHandler.HourlyDistribution)
		ag.GET("/cancellations", analyticsHandler.Cancellations)
		ag.GET("/system", analyticsHandler.System)

		if cfg.Reports.Enabled {
			rg := api.Group("/reports")
			rg.POST("", reportHandler.Create)
			rg.GET("/:id", reportHandler.Status)
			rg.GET("/:id/download", reportHandler.Download)
		}

		if cfg.Ingest.Enabled {
			api.POST("/activities", activityHandler.Ingest)
			api.GET("/activities/count", activityHandler.Count)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reports.Enabled {
		reportQueue.Start(ctx)
		defer reportQueue.Stop()
		if err := reportSvc.RecoverQueued(ctx, 100); err != nil {
			logr.Sugar().Warnw("failed to recover queued reports", "error", err)
		}

		go func() {
			ticker := time.NewTicker(cfg.Reports.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					deleted, err := reportFiles.CleanupOlderThan(cfg.Reports.ResultTTL)
					if err != nil {
						logr.Sugar().Warnw("report cleanup failed", "error", err)
						continue
					}
					if len(deleted) > 0 {
						logr.Sugar().Infow("expired reports removed", "count", len(deleted))
					}
				}
			}
		}()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
