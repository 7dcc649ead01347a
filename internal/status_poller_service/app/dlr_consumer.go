package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
	"github.com/arkosms/message-tracking/internal/platform/messagebroker"
	"github.com/arkosms/message-tracking/internal/tracking_service/eventstore"
	"github.com/arkosms/message-tracking/internal/tracking_service/provider"
)

// DeliveryReporter records an already-translated delivery outcome on a message.
type DeliveryReporter interface {
	ApplyDeliveryReport(ctx context.Context, messageID string, status domain.MessageStatus, providerStatus string) (bool, error)
}

// RawDLRPayload is the delivery report pushed by a provider callback bridge
// onto NATS. The subject names the provider; the payload stays in the
// provider's raw status vocabulary.
type RawDLRPayload struct {
	ProviderMessageID string `json:"provider_message_id"`
	Status            string `json:"status"`
}

// DLRConsumer consumes raw delivery reports from NATS subjects of the form
// <prefix>.<provider>, translates them with the named provider's table and
// records the outcome on the owning message.
type DLRConsumer struct {
	natsClient *messagebroker.NATSClient
	query      eventstore.InFlightQuery
	providers  map[string]provider.MessageProvider // keyed by provider name
	reporter   DeliveryReporter
	logger     *slog.Logger
}

// NewDLRConsumer creates a consumer over the given NATS client.
func NewDLRConsumer(
	natsClient *messagebroker.NATSClient,
	query eventstore.InFlightQuery,
	providers map[string]provider.MessageProvider,
	reporter DeliveryReporter,
	logger *slog.Logger,
) *DLRConsumer {
	return &DLRConsumer{
		natsClient: natsClient,
		query:      query,
		providers:  providers,
		reporter:   reporter,
		logger:     logger.With("component", "dlr_consumer"),
	}
}

// StartConsuming subscribes to <subjectPrefix>.> and blocks until ctx is
// cancelled.
func (c *DLRConsumer) StartConsuming(ctx context.Context, subjectPrefix, queueGroup string) error {
	subject := subjectPrefix + ".>"
	sub, err := c.natsClient.QueueSubscribe(subject, queueGroup, func(msg *nats.Msg) {
		c.handleMessage(ctx, subjectPrefix, msg)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		c.logger.Warn("Failed to unsubscribe DLR consumer", "error", err)
	}
	return ctx.Err()
}

func (c *DLRConsumer) handleMessage(ctx context.Context, subjectPrefix string, msg *nats.Msg) {
	providerName := strings.TrimPrefix(msg.Subject, subjectPrefix+".")
	if providerName == "" || strings.ContainsAny(providerName, ".*>") {
		c.logger.ErrorContext(ctx, "Could not determine provider name from DLR subject", "subject", msg.Subject)
		dlrEventsCounter.WithLabelValues("unknown", "bad_subject").Inc()
		return
	}

	prov, ok := c.providers[providerName]
	if !ok {
		c.logger.ErrorContext(ctx, "DLR for unconfigured provider", "provider", providerName)
		dlrEventsCounter.WithLabelValues(providerName, "unknown_provider").Inc()
		return
	}

	var payload RawDLRPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.logger.ErrorContext(ctx, "Failed to deserialize DLR payload",
			"error", err, "subject", msg.Subject)
		dlrEventsCounter.WithLabelValues(providerName, "bad_payload").Inc()
		return
	}

	messageID, err := c.query.FindByProviderReference(ctx, payload.ProviderMessageID)
	if err != nil {
		if errors.Is(err, eventstore.ErrMessageNotFound) {
			c.logger.WarnContext(ctx, "DLR for unknown provider reference",
				"provider", providerName, "provider_message_id", payload.ProviderMessageID)
			dlrEventsCounter.WithLabelValues(providerName, "unknown_reference").Inc()
			return
		}
		c.logger.ErrorContext(ctx, "Failed to resolve provider reference",
			"error", err, "provider_message_id", payload.ProviderMessageID)
		dlrEventsCounter.WithLabelValues(providerName, "error").Inc()
		return
	}

	changed, err := c.reporter.ApplyDeliveryReport(ctx, messageID, prov.TranslateStatus(payload.Status), payload.Status)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to apply delivery report",
			"error", err, "message_id", messageID, "provider_status", payload.Status)
		dlrEventsCounter.WithLabelValues(providerName, "error").Inc()
		return
	}

	outcome := "ignored"
	if changed {
		outcome = "applied"
	}
	dlrEventsCounter.WithLabelValues(providerName, outcome).Inc()
	c.logger.InfoContext(ctx, "Processed DLR event",
		"message_id", messageID,
		"provider", providerName,
		"provider_status", payload.Status,
		"outcome", outcome,
	)
}
