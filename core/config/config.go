package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"validity.app/auditor/core/db"
)

type Config struct {
	OTel     OTelConfig
	Oracle   OracleConfig
	Analysis AnalysisConfig
	Cache    CacheConfig
	Pipeline PipelineConfig
	Env      string
	Port     string
	LogLevel string
	NodeID   int64
	DB       db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type OracleConfig struct {
	Provider       string // "openai" or "anthropic"
	APIKey         string
	BaseURL        string // Optional: for custom endpoints
	Model          string
	MaxTokens      int
	Temperature    float64
	RequestTimeout time.Duration
	UseSchema      bool // Send the chunk payload JSON schema as the response format
}

type AnalysisConfig struct {
	ChunkSize             int
	ChunkOverlap          int
	Timeout               time.Duration // Default budget when a request names none
	MaxTimeout            time.Duration // Ceiling on a requested budget
	MaxMicroFindings      int
	MaxStructuralFindings int
	TopRiskFlags          int
	Concurrency           int
	Synthesis             bool
	SynthesisTimeout      time.Duration
}

type CacheConfig struct {
	Backend    string // "redis", "memory" or "none"
	TTL        time.Duration
	MemorySize int
}

type PipelineConfig struct {
	RedisURL       string
	RedisStream    string
	RedisGroup     string
	RedisDLQStream string
	RedisConsumer  string
	MaxAttempts    int
	JobTTL         time.Duration
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeWorker ServiceType = "worker"
	ServiceTypeCLI    ServiceType = "cli"
)

const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
	CacheBackendNone   = "none"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the API server
//   - .env.worker for the background worker
//   - .env.cli for the command line tool
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("VALIDITY_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	defaultConsumer := string(serviceType)
	if host, err := os.Hostname(); err == nil {
		defaultConsumer = fmt.Sprintf("%s-%s", serviceType, host)
	}

	cfg := Config{
		Env:      getEnv("VALIDITY_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", ""),
		NodeID:   int64(getEnvInt("NODE_ID", 1)),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", fmt.Sprintf("validity-%s", serviceType)),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Oracle: OracleConfig{
			Provider:       getEnv("ORACLE_PROVIDER", "openai"),
			APIKey:         getEnv("ORACLE_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:        getEnv("ORACLE_BASE_URL", ""),
			Model:          getEnv("ORACLE_MODEL", "gpt-4o-mini"),
			MaxTokens:      getEnvInt("ORACLE_MAX_TOKENS", 4096),
			Temperature:    getEnvFloat("ORACLE_TEMPERATURE", 0),
			RequestTimeout: getEnvDuration("ORACLE_REQUEST_TIMEOUT", 90*time.Second),
			UseSchema:      getEnvBool("ORACLE_USE_SCHEMA", true),
		},
		Analysis: AnalysisConfig{
			ChunkSize:             getEnvInt("ANALYSIS_CHUNK_SIZE", 18000),
			ChunkOverlap:          getEnvInt("ANALYSIS_CHUNK_OVERLAP", 800),
			Timeout:               getEnvDuration("ANALYSIS_TIMEOUT", 300*time.Second),
			MaxTimeout:            getEnvDuration("ANALYSIS_MAX_TIMEOUT", 0),
			MaxMicroFindings:      getEnvInt("ANALYSIS_MAX_MICRO_FINDINGS", 200),
			MaxStructuralFindings: getEnvInt("ANALYSIS_MAX_STRUCTURAL_FINDINGS", 50),
			TopRiskFlags:          getEnvInt("ANALYSIS_TOP_RISK_FLAGS", 3),
			Concurrency:           getEnvInt("ANALYSIS_CONCURRENCY", 1),
			Synthesis:             getEnvBool("ANALYSIS_SYNTHESIS", false),
			SynthesisTimeout:      getEnvDuration("ANALYSIS_SYNTHESIS_TIMEOUT", 60*time.Second),
		},
		Cache: CacheConfig{
			Backend:    getEnv("CACHE_BACKEND", CacheBackendMemory),
			TTL:        getEnvDuration("CACHE_TTL", 24*time.Hour),
			MemorySize: getEnvInt("CACHE_MEMORY_SIZE", 256),
		},
		Pipeline: PipelineConfig{
			RedisURL:       getEnv("REDIS_URL", ""),
			RedisStream:    getEnv("REDIS_STREAM", "validity_jobs"),
			RedisGroup:     getEnv("REDIS_CONSUMER_GROUP", "validity_workers"),
			RedisDLQStream: getEnv("REDIS_DLQ_STREAM", "validity_jobs_dlq"),
			RedisConsumer:  getEnv("REDIS_CONSUMER_NAME", defaultConsumer),
			MaxAttempts:    getEnvInt("JOB_MAX_ATTEMPTS", 3),
			JobTTL:         getEnvDuration("JOB_TTL", 24*time.Hour),
		},
	}

	switch cfg.Cache.Backend {
	case CacheBackendRedis, CacheBackendMemory, CacheBackendNone:
	default:
		return Config{}, fmt.Errorf("CACHE_BACKEND must be one of redis, memory, none (got %q)", cfg.Cache.Backend)
	}

	if cfg.Cache.Backend == CacheBackendRedis && !cfg.Pipeline.Enabled() {
		return Config{}, fmt.Errorf("CACHE_BACKEND=redis requires REDIS_URL")
	}

	if cfg.Analysis.MaxTimeout < cfg.Analysis.Timeout {
		cfg.Analysis.MaxTimeout = cfg.Analysis.Timeout
	}

	if cfg.Analysis.ChunkSize <= 0 {
		return Config{}, fmt.Errorf("ANALYSIS_CHUNK_SIZE must be positive")
	}

	return cfg, nil
}

// Validate reports configuration required to actually call the oracle.
func (c Config) Validate() error {
	if !c.Oracle.Enabled() {
		return fmt.Errorf("ORACLE_API_KEY is required and ORACLE_PROVIDER must be openai or anthropic")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// EffectiveTimeout is the budget an analysis actually gets: the default when
// none is requested, otherwise the request clamped to the ceiling.
func (c AnalysisConfig) EffectiveTimeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		return c.Timeout
	}
	if ceiling := max(c.MaxTimeout, c.Timeout); ceiling > 0 && requested > ceiling {
		return ceiling
	}
	return requested
}

// Fingerprint names the settings that change a finished report. Results
// computed under different fingerprints must not share a cache entry.
func (c AnalysisConfig) Fingerprint() string {
	return fmt.Sprintf("chunk=%d;overlap=%d;micro=%d;structural=%d;flags=%d;synthesis=%t",
		c.ChunkSize, c.ChunkOverlap, c.MaxMicroFindings, c.MaxStructuralFindings, c.TopRiskFlags, c.Synthesis)
}

// reclaimMargin absorbs scheduling and Redis latency on top of the analysis bound.
const reclaimMargin = time.Minute

// LongestAnalysis bounds how long one analysis can run. The budget is checked
// between chunks, so the last chunk may overrun it by an analysis call and a
// repair call, and synthesis runs after the budget.
func (c Config) LongestAnalysis() time.Duration {
	d := max(c.Analysis.MaxTimeout, c.Analysis.Timeout) + 2*c.Oracle.RequestTimeout
	if c.Analysis.Synthesis {
		d += max(c.Analysis.SynthesisTimeout, c.Oracle.RequestTimeout)
	}
	return d
}

// ReclaimIdle is how long a job delivery stays pending before the reclaimer
// hands it to another consumer. It always exceeds LongestAnalysis so a job
// that is still running is never picked up twice.
func (c Config) ReclaimIdle() time.Duration {
	return c.LongestAnalysis() + reclaimMargin
}

func (c OracleConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == "openai" || c.Provider == "anthropic")
}

func (c PipelineConfig) Enabled() bool {
	return c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s", "5m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
