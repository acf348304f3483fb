// Package main provides the entrypoint for the environmental health dashboard server.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/envhealth/internal/api"
	"github.com/breatheroute/envhealth/internal/api/handler"
	"github.com/breatheroute/envhealth/internal/api/middleware"
	"github.com/breatheroute/envhealth/internal/config"
	"github.com/breatheroute/envhealth/internal/dashboard"
	"github.com/breatheroute/envhealth/internal/provider/resilience"
	"github.com/breatheroute/envhealth/internal/query"
	"github.com/breatheroute/envhealth/internal/telemetry"
	"github.com/breatheroute/envhealth/internal/upstream"
	"github.com/breatheroute/envhealth/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "envhealth-dashboard"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := newBootLogger(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := cfg.NewLogger(os.Stdout, serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Str("upstream", cfg.Upstream.BaseURL).
		Msg("starting environmental health dashboard")

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTel.Endpoint,
		Enabled:        cfg.OTel.Enabled,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTel.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTel.Endpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}
	queryMetrics, err := query.NewMetrics()
	if err != nil {
		return err
	}

	registry := resilience.NewRegistry()
	source := upstream.NewClient(upstream.ClientConfig{
		BaseURL:  cfg.Upstream.BaseURL,
		Timeout:  cfg.Upstream.Timeout,
		Registry: registry,
		Logger:   log,
	})

	sessions := dashboard.NewManager(dashboard.ManagerConfig{
		Dashboard: dashboard.Config{
			Source:     source,
			Logger:     log,
			Retries:    queryRetries(cfg.Query.Retries),
			RetryDelay: cfg.Query.RetryDelay,
			Metrics:    queryMetrics,
		},
		SessionTTL: cfg.Session.TTL,
		Logger:     log,
	})

	// Sessions live in memory, so background invalidation runs in-process.
	go sessions.Run(ctx)

	refresh := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:      worker.RefreshConfig{Interval: cfg.Refresh.Interval},
		Invalidator: sessions,
		Logger:      log,
	})
	go refresh.Start(ctx)

	if cfg.PubSub.Subscription != "" {
		subscriber, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.Project,
			SubscriptionName: cfg.PubSub.Subscription,
			Invalidator:      sessions,
			Logger:           log,
		})
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := subscriber.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub client")
			}
		}()
		go func() {
			if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("change notification subscriber stopped")
			}
		}()
	}

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		RequireTLS:  cfg.Server.RequireTLS,
		Metrics:     httpMetrics,
		Sessions:    sessions,
		Registry:    registry,
	})

	// WriteTimeout leaves room for the longest dashboard wait.
	server := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + handler.MaxWait,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newBootLogger logs failures that happen before configuration is loaded.
func newBootLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("service", serviceName).Logger()
}

// queryRetries maps the configured retry count to the query setting. A
// configured zero disables retrying; the query treats zero as its default.
func queryRetries(configured int) int {
	if configured == 0 {
		return query.NoRetries
	}
	return configured
}
