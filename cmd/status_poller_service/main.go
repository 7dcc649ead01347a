package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
	"github.com/arkosms/message-tracking/internal/platform/config"
	"github.com/arkosms/message-tracking/internal/platform/database"
	"github.com/arkosms/message-tracking/internal/platform/logger"
	"github.com/arkosms/message-tracking/internal/platform/messagebroker"
	pollerapp "github.com/arkosms/message-tracking/internal/status_poller_service/app"
	trackingapp "github.com/arkosms/message-tracking/internal/tracking_service/app"
	espostgres "github.com/arkosms/message-tracking/internal/tracking_service/eventstore/postgres"
	"github.com/arkosms/message-tracking/internal/tracking_service/provider"
)

const serviceName = "status_poller_service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.LogLevel)
	log.Info("Starting service...")

	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		log.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, log, serviceName)
	if err != nil {
		log.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()

	store := espostgres.NewPgEventStore(dbPool, log)
	channelProviders := buildProviders(cfg, log)
	tracker := trackingapp.NewTrackingService(store, channelProviders, log)

	namedProviders := make(map[string]provider.MessageProvider, len(channelProviders))
	for _, p := range channelProviders {
		namedProviders[p.Name()] = p
	}

	poller := pollerapp.NewStatusPoller(store, tracker, cfg.PollBatchSize, log)
	consumer := pollerapp.NewDLRConsumer(natsClient, store, namedProviders, tracker, log)

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		log.Info("Starting status poller worker...", "interval_seconds", cfg.PollIntervalSeconds)
		return poller.Run(groupCtx, time.Duration(cfg.PollIntervalSeconds)*time.Second)
	})

	g.Go(func() error {
		log.Info("Starting DLR consumer...", "subject_prefix", cfg.DLRSubjectPrefix)
		return consumer.StartConsuming(groupCtx, cfg.DLRSubjectPrefix, cfg.DLRQueueGroup)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("Received termination signal", "signal", sig.String())
	case <-groupCtx.Done():
	}

	mainCancel()
	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error("Worker stopped with error", "error", err)
	}
	log.Info("Service stopped")
}

// buildProviders mirrors the API service's wiring so poller and API translate
// with the same tables.
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
