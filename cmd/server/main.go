package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"outing/internal/audit"
	"outing/internal/platform/config"
	"outing/internal/platform/httpserver"
	"outing/internal/platform/logger"
	"outing/internal/platform/metrics"
	platformredis "outing/internal/platform/redis"
	"outing/internal/registration/handler"
	"outing/internal/registration/service"
	"outing/internal/registration/store/document"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in internal/registration.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	store, health, cleanup, err := buildStore(ctx, cfg, m, log)
	if err != nil {
		log.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	recorder := audit.NewRecorder(log)
	sink, closeSink, err := buildAuditSink(ctx, cfg, log)
	if err != nil {
		log.Error("audit sink init failed", "error", err)
		os.Exit(1)
	}
	defer closeSink()
	worker := audit.NewWorker(sink, recorder.Inbox(), log)

	svc := service.New(store, log,
		service.WithRecorder(recorder),
		service.WithMetrics(m),
		service.WithEditPolicy(cfg.EditPolicy),
		service.WithCapacityMode(cfg.CapacityMode),
		service.WithAdminPassphrase(cfg.AdminPassphrase),
		service.WithConfigDefaults(cfg.DefaultDeadline, cfg.DefaultCapacity),
	)

	router := chi.NewRouter()
	handler.New(svc, log, m).Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("store unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting outing sync server",
		"addr", cfg.Addr,
		"edit_policy", string(cfg.EditPolicy),
		"capacity_mode", string(cfg.CapacityMode),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// buildStore picks the document backend: Redis when configured, Postgres as a
// fallback deployment option, and the in-memory store when neither is set so
// the site still loads (with empty data) on a misconfigured deploy. The health
// func (nil for memory) feeds /healthz.
func buildStore(ctx context.Context, cfg config.Server, m *metrics.Metrics, log *slog.Logger) (document.Store, func(context.Context) error, func(), error) {
	if cfg.RedisURL != "" {
		client, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("using redis document store")
		remote := document.NewRedisStore(client.Client, cfg.StoreTimeout)
		return document.NewFallbackStore(remote, m), client.Health, func() { _ = client.Close() }, nil
	}

	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		remote := document.NewPostgresStore(db, cfg.StoreTimeout)
		if err := remote.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		log.Info("using postgres document store")
		return document.NewFallbackStore(remote, m), db.PingContext, func() { _ = db.Close() }, nil
	}

	log.Warn("no store configured, serving from memory; data will not survive restarts")
	return document.NewMemoryStore(), nil, func() {}, nil
}

// buildAuditSink publishes the edit log to Kafka when brokers are configured,
// otherwise keeps it in memory. Either way it is best-effort.
func buildAuditSink(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Sink, func(), error) {
	if cfg.KafkaBrokers == "" {
		log.Info("edit log kept in memory")
		return audit.NewMemoryStore(), func() {}, nil
	}

	sink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info("edit log publishing to kafka", "topic", cfg.AuditTopic)
	return sink, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sink.Close(closeCtx)
	}, nil
}
