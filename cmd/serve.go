package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verdefield/agrocheck/internal/audit"
	"github.com/verdefield/agrocheck/internal/auth"
	"github.com/verdefield/agrocheck/internal/cache"
	"github.com/verdefield/agrocheck/internal/checkers"
	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/geocode"
	"github.com/verdefield/agrocheck/internal/httpapi"
	"github.com/verdefield/agrocheck/internal/monitoring"
	"github.com/verdefield/agrocheck/internal/normalize"
	"github.com/verdefield/agrocheck/internal/orchestrator"
	"github.com/verdefield/agrocheck/internal/store"
	"github.com/verdefield/agrocheck/internal/telemetry"
	"github.com/verdefield/agrocheck/pkg/samples"
)

var servePort int

// serviceEnv bundles every dependency the HTTP server needs, wired once at
// startup and torn down together, in the pipelineEnv/initPipeline shape of
// the prior cmd/pipeline_init.go: one struct, one constructor, one Close.
type serviceEnv struct {
	handler        http.Handler
	monitorChecker *monitoring.Checker
	closers        []func()
}

func (e *serviceEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// initServiceEnv wires Postgres, Redis, the checker registry, the geocode
// cascade, the audit queue, API-key auth, the freshness monitor, telemetry,
// and finally the httpapi.Server built on top of all of it.
//
// cfg.Store.Driver only switches the audit/auth backend between Postgres
// and the embedded store.SQLiteStore: the checker registry and geocoder
// always need a live Postgres/PostGIS connection for the document/spatial
// tables they read, so "sqlite" mode narrows this service to a local dev
// profile where /samples and /health work but every checker's query has
// nowhere to run.
func initServiceEnv(ctx context.Context) (*serviceEnv, error) {
	env := &serviceEnv{}

	telemetry.Init()

	tracingStop, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRate:  cfg.Tracing.SampleRate,
	}, cfg.APIVersion)
	if err != nil {
		return nil, eris.Wrap(err, "serve: init tracing")
	}
	env.closers = append(env.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracingStop(shutdownCtx)
	})

	pool, err := db.Open(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "serve: open database")
	}
	env.closers = append(env.closers, pool.Close)

	redisOpts, err := redis.ParseURL(cfg.Cache.RedisURL)
	if err != nil {
		return nil, eris.Wrap(err, "serve: parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	env.closers = append(env.closers, func() { _ = redisClient.Close() })

	resultCache, err := cache.New(redisClient, cfg.Cache.LocalLRUSize, zap.L())
	if err != nil {
		return nil, eris.Wrap(err, "serve: build cache")
	}

	registry := checkers.BuildRegistry(pool, cfg.Checkers)

	providers := []geocode.Provider{geocode.NewNominatimProvider(cfg.Geocode.PrimaryBaseURL, cfg.Geocode.PrimaryEmail)}
	if cfg.Geocode.FallbackAPIKey != "" {
		providers = append(providers, geocode.NewFallbackProvider(cfg.Geocode.FallbackBaseURL, cfg.Geocode.FallbackAPIKey, nil))
	}
	geocoder := geocode.NewCascadeClient(pool, providers, geocode.WithCacheTTLDays(cfg.Geocode.CacheTTLDays))

	normalizer := normalize.New(geocoder)

	var persister audit.Persister
	var authStore auth.Store

	switch cfg.Store.Driver {
	case "sqlite":
		sqliteStore, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "serve: open sqlite store")
		}
		if err := sqliteStore.Migrate(ctx); err != nil {
			return nil, eris.Wrap(err, "serve: migrate sqlite store")
		}
		env.closers = append(env.closers, func() { _ = sqliteStore.Close() })
		persister = sqliteStore
		authStore = sqliteStore
	default:
		if err := audit.Migrate(ctx, pool); err != nil {
			return nil, eris.Wrap(err, "serve: migrate audit table")
		}
		riverClient, err := audit.NewClient(pool, cfg.Audit.MaxWorkers, zap.L())
		if err != nil {
			return nil, eris.Wrap(err, "serve: build audit queue client")
		}
		if err := riverClient.Start(ctx); err != nil {
			return nil, eris.Wrap(err, "serve: start audit queue client")
		}
		env.closers = append(env.closers, func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = riverClient.Stop(stopCtx)
		})
		persister = audit.NewPersister(riverClient)

		if err := auth.Migrate(ctx, pool); err != nil {
			return nil, eris.Wrap(err, "serve: migrate auth table")
		}
		authStore = auth.NewPostgresStore(pool)
	}

	errorRates := monitoring.NewErrorRateTracker()
	o := orchestrator.New(normalizer, registry, resultCache, persister, cfg.APIVersion, zap.L(), errorRates)

	rateLimiter := auth.NewRateLimiter(cfg.Auth.DefaultRateLimitPerMinute)
	env.closers = append(env.closers, rateLimiter.Stop)

	collector := monitoring.NewCollector(pool, redisClient, cfg.Monitoring, nil)
	collector.SetErrorRateTracker(errorRates)

	if cfg.Monitoring.Enabled {
		alerter := monitoring.NewAlerter(cfg.Monitoring)
		env.monitorChecker = monitoring.NewChecker(collector, alerter, cfg.Monitoring)
	}

	server := httpapi.New(o, registry, collector, authStore, rateLimiter, samples.New(), zap.L())
	env.handler = server.Handler()

	return env, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the compliance-check HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initServiceEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if env.monitorChecker != nil {
			go env.monitorChecker.Run(ctx)
			zap.L().Info("monitoring: alert checker enabled",
				zap.String("webhook_url", cfg.Monitoring.WebhookURL),
			)
		}

		port := resolvePort(servePort, cfg.Server.Port)
		return startServer(ctx, env.handler, port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// startServer creates and runs the HTTP server with graceful shutdown.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.RequestTimeoutMs) * time.Millisecond * 2,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}

	return nil
}

// resolvePort returns the port flag value if non-zero, otherwise the config default.
func resolvePort(flagPort, configPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return configPort
}
