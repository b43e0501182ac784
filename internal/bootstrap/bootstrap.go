// Package bootstrap builds the object graph shared by the server, worker and
// CLI binaries from a loaded config.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"validity.app/auditor/common/llm"
	"validity.app/auditor/core/config"
	"validity.app/auditor/core/db"
	"validity.app/auditor/internal/analyzer"
	"validity.app/auditor/internal/cache"
	"validity.app/auditor/internal/oracle"
	"validity.app/auditor/internal/queue"
	"validity.app/auditor/internal/service"
	"validity.app/auditor/internal/store"
	"validity.app/auditor/internal/taxonomy"
)

type App struct {
	Config   config.Config
	Taxonomy *taxonomy.Table
	Oracle   *oracle.Client
	Analyzer *analyzer.Analyzer
	Services *service.Services

	// Redis and DB are nil when their section of the config is empty.
	Redis *redis.Client
	DB    *db.DB
	Jobs  store.JobStore
}

type options struct {
	completer llm.Completer
	offline   bool
}

type Option func(*options)

// WithCompleter replaces the configured oracle provider.
func WithCompleter(c llm.Completer) Option {
	return func(o *options) {
		o.completer = c
	}
}

// Offline skips Redis and Postgres even when configured.
func Offline() Option {
	return func(o *options) {
		o.offline = true
	}
}

// New connects to every configured backend. Callers must Close the App.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg, Taxonomy: taxonomy.Default()}

	completer := o.completer
	if completer == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		var err error
		completer, err = llm.NewCompleter(llm.Config{
			Provider: cfg.Oracle.Provider,
			APIKey:   cfg.Oracle.APIKey,
			BaseURL:  cfg.Oracle.BaseURL,
			Model:    cfg.Oracle.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("creating oracle client: %w", err)
		}
	}

	if !o.offline && cfg.Pipeline.Enabled() {
		rdb, err := connectRedis(ctx, cfg.Pipeline.RedisURL)
		if err != nil {
			return nil, err
		}
		app.Redis = rdb
		app.Jobs = store.NewRedisJobStore(rdb, cfg.Pipeline.JobTTL)
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)
	}

	var calls store.OracleCallStore
	if !o.offline && cfg.DB.Enabled() {
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		app.DB = database
		if err := database.Migrate(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		calls = store.NewOracleCallStore(database.Conn())
		slog.InfoContext(ctx, "database connected, oracle call ledger enabled")
	}

	var oracleOpts []oracle.Option
	if calls != nil {
		oracleOpts = append(oracleOpts, oracle.WithRecorder(calls))
	}
	app.Oracle = oracle.New(completer, app.Taxonomy, oracle.Config{
		MaxTokens:      cfg.Oracle.MaxTokens,
		Temperature:    cfg.Oracle.Temperature,
		RequestTimeout: cfg.Oracle.RequestTimeout,
		UseSchema:      cfg.Oracle.UseSchema,
	}, oracleOpts...)
	app.Analyzer = analyzer.New(app.Oracle, app.Taxonomy, cfg.Analysis)

	cacheCfg := cfg.Cache
	if o.offline && cacheCfg.Backend == config.CacheBackendRedis {
		cacheCfg.Backend = config.CacheBackendMemory
	}
	resultCache, err := cache.New(cacheCfg, app.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("creating result cache: %w", err)
	}

	var producer queue.Producer
	if app.Redis != nil {
		producer = queue.NewRedisProducer(app.Redis, cfg.Pipeline.RedisStream)
	}

	app.Services = service.NewServices(service.Deps{
		Analyzer: app.Analyzer,
		Cache:    resultCache,
		Scope: service.CacheScope{
			TaxonomyVersion: app.Taxonomy.Version(),
			PromptVersion:   oracle.PromptVersion,
			Model:           app.Oracle.Model(),
			Settings:        cfg.Analysis.Fingerprint(),
		},
		Taxonomy: app.Taxonomy,
		Jobs:     app.Jobs,
		Producer: producer,
		Calls:    calls,
	})

	return app, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}
