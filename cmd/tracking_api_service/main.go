package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
	"github.com/arkosms/message-tracking/internal/platform/config"
	"github.com/arkosms/message-tracking/internal/platform/database"
	"github.com/arkosms/message-tracking/internal/platform/logger"
	trackinghttp "github.com/arkosms/message-tracking/internal/tracking_service/adapters/http"
	"github.com/arkosms/message-tracking/internal/tracking_service/app"
	espostgres "github.com/arkosms/message-tracking/internal/tracking_service/eventstore/postgres"
	"github.com/arkosms/message-tracking/internal/tracking_service/middleware"
	"github.com/arkosms/message-tracking/internal/tracking_service/provider"
)

const (
	serviceName     = "tracking_api_service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.LogLevel)
	log.Info("Starting service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	store := espostgres.NewPgEventStore(dbPool, log)
	providers := buildProviders(cfg, log)
	tracker := app.NewTrackingService(store, providers, log)
	handler := trackinghttp.NewMessageHandler(tracker, log)

	r := chi.NewRouter()
	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(middleware.AuthConfig{
			JWTSecret:  cfg.JWTAccessSecret,
			APIKeyHash: cfg.APIKeyHash,
		}, log))
		handler.RegisterRoutes(r)
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.TrackingAPIPort),
		Handler: r,
	}

	go func() {
		log.Info("HTTP server listening", "port", cfg.TrackingAPIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("Received termination signal", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}
	log.Info("Service stopped")
}

// buildProviders wires one proxy per channel. Channels without configured
// credentials fall back to the mock provider so local runs work end to end.
func buildProviders(cfg *config.Config, log *slog.Logger) map[domain.Channel]provider.MessageProvider {
	providers := make(map[domain.Channel]provider.MessageProvider)

	if cfg.MagfaAPIKey != "" {
		providers[domain.ChannelSMS] = provider.NewMagfaProvider(log, cfg.MagfaAPIURL, cfg.MagfaAPIKey, cfg.MagfaSenderID, nil)
	} else {
		log.Warn("No Magfa API key configured, using mock provider for SMS")
		providers[domain.ChannelSMS] = provider.NewMockProvider(log)
	}

	if cfg.SMTP2GoAPIKey != "" {
		providers[domain.ChannelEmail] = provider.NewSMTP2GoProvider(log, cfg.SMTP2GoAPIURL, cfg.SMTP2GoAPIKey, nil)
	} else {
		log.Warn("No SMTP2Go API key configured, using mock provider for email")
		providers[domain.ChannelEmail] = provider.NewMockProvider(log)
	}

	return providers
}
