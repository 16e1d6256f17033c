package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Analytics AnalyticsConfig
	Detection DetectionConfig
	Forecast  ForecastConfig
	Reports   ReportsConfig
	Ingest    IngestConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AnalyticsConfig governs cache behaviour and the default record window for
// the analytics endpoints.
type AnalyticsConfig struct {
	CacheTTL      time.Duration
	DefaultWindow time.Duration
	MaxWindow     time.Duration
}

// DetectionConfig holds anomaly detection thresholds.
type DetectionConfig struct {
	MinDataPoints        int
	ZScoreLimit          float64
	VolumeChangePercent  float64
	FailureRateThreshold float64
	ResponseTimeLimitMin float64
	Sensitivity          string
}

// ForecastConfig holds trend prediction defaults.
type ForecastConfig struct {
	HorizonDays     int
	ModelType       string
	ConfidenceLevel int
	NoiseSeed       int64
	NoiseEnabled    bool
}

// ReportsConfig configures asynchronous report generation.
type ReportsConfig struct {
	Enabled           bool
	StorageDir        string
	ResultTTL         time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// IngestConfig gates the activity-log ingestion endpoint.
type IngestConfig struct {
	Enabled      bool
	MaxBatchSize int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Analytics = AnalyticsConfig{
		CacheTTL:      parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 5*time.Minute),
		DefaultWindow: parseDuration(v.GetString("ANALYTICS_DEFAULT_WINDOW"), 30*24*time.Hour),
		MaxWindow:     parseDuration(v.GetString("ANALYTICS_MAX_WINDOW"), 365*24*time.Hour),
	}

	cfg.Detection = DetectionConfig{
		MinDataPoints:        v.GetInt("DETECTION_MIN_DATA_POINTS"),
		ZScoreLimit:          v.GetFloat64("DETECTION_ZSCORE_LIMIT"),
		VolumeChangePercent:  v.GetFloat64("DETECTION_VOLUME_CHANGE_PERCENT"),
		FailureRateThreshold: v.GetFloat64("DETECTION_FAILURE_RATE_THRESHOLD"),
		ResponseTimeLimitMin: v.GetFloat64("DETECTION_RESPONSE_TIME_LIMIT_MIN"),
		Sensitivity:          v.GetString("DETECTION_SENSITIVITY"),
	}

	cfg.Forecast = ForecastConfig{
		HorizonDays:     v.GetInt("FORECAST_HORIZON_DAYS"),
		ModelType:       v.GetString("FORECAST_MODEL_TYPE"),
		ConfidenceLevel: v.GetInt("FORECAST_CONFIDENCE_LEVEL"),
		NoiseSeed:       v.GetInt64("FORECAST_NOISE_SEED"),
		NoiseEnabled:    v.GetBool("FORECAST_NOISE_ENABLED"),
	}

	cfg.Reports = ReportsConfig{
		Enabled:           v.GetBool("ENABLE_REPORTS"),
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		ResultTTL:         parseDuration(v.GetString("REPORTS_RESULT_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	cfg.Ingest = IngestConfig{
		Enabled:      v.GetBool("ENABLE_INGEST"),
		MaxBatchSize: v.GetInt("INGEST_MAX_BATCH_SIZE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "fieldops")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ANALYTICS_CACHE_TTL", "5m")
	v.SetDefault("ANALYTICS_DEFAULT_WINDOW", "720h")
	v.SetDefault("ANALYTICS_MAX_WINDOW", "8760h")

	v.SetDefault("DETECTION_MIN_DATA_POINTS", 10)
	v.SetDefault("DETECTION_ZSCORE_LIMIT", 2.5)
	v.SetDefault("DETECTION_VOLUME_CHANGE_PERCENT", 50)
	v.SetDefault("DETECTION_FAILURE_RATE_THRESHOLD", 20)
	v.SetDefault("DETECTION_RESPONSE_TIME_LIMIT_MIN", 180)
	v.SetDefault("DETECTION_SENSITIVITY", "medium")

	v.SetDefault("FORECAST_HORIZON_DAYS", 7)
	v.SetDefault("FORECAST_MODEL_TYPE", "advanced")
	v.SetDefault("FORECAST_CONFIDENCE_LEVEL", 95)
	v.SetDefault("FORECAST_NOISE_SEED", 0)
	v.SetDefault("FORECAST_NOISE_ENABLED", false)

	v.SetDefault("ENABLE_REPORTS", true)
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_RESULT_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)

	v.SetDefault("ENABLE_INGEST", true)
	v.SetDefault("INGEST_MAX_BATCH_SIZE", 5000)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
