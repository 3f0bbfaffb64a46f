// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/journey-analytics/internal/app"
	"github.com/capitalize-ai/journey-analytics/internal/config"
	"github.com/capitalize-ai/journey-analytics/internal/handler"
	"github.com/capitalize-ai/journey-analytics/internal/middleware"
	"github.com/capitalize-ai/journey-analytics/internal/service"
	"github.com/capitalize-ai/journey-analytics/pkg/logger"
	"github.com/capitalize-ai/journey-analytics/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "journey-analytics", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	a, err := app.Build(ctx, cfg, log, app.Overrides{})
	if err != nil {
		log.Fatal("failed to wire pipeline", zap.Error(err))
	}
	defer a.Close()

	runs := service.NewRunService(ctx, a.Orchestrator, a.Store, log)

	healthHandler := handler.NewHealthHandler(a.NATS, len(a.Gateway.Candidates()))
	runHandler := handler.NewRunHandler(runs, log)
	streamHandler := handler.NewStreamHandler(runs, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthEnabled {
			r.Use(middleware.Auth(cfg.JWTSecret))
		}

		r.Route("/runs", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.AuthEnabled {
					r.Use(middleware.RequireScope(middleware.ScopeRun))
				}
				r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
				r.Post("/", runHandler.Trigger)
			})
			r.Get("/status", runHandler.Status)
			r.Get("/stream", streamHandler.Stream)
			r.Get("/{id}/report", runHandler.RunReport)
		})

		r.Get("/report", runHandler.Report)
		r.Get("/metrics", runHandler.Metrics)
		r.Get("/metrics/{name}", runHandler.Metric)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// abort any in-flight run and let it record its outcome
	cancel()
	runs.Wait()

	log.Info("server stopped")
}
