package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/arkosms/message-tracking/internal/tracking_service/app"
	"github.com/arkosms/message-tracking/internal/tracking_service/eventstore"
)

// StatusRefresher refreshes one message's status from its provider.
type StatusRefresher interface {
	RefreshStatus(ctx context.Context, messageID string) (*app.MessageView, error)
}

// StatusPoller periodically scans for in-flight messages and refreshes their
// delivery status from the provider's status API. Providers that push DLR
// callbacks are handled by the DLRConsumer instead; polling covers the rest
// and catches callbacks that were lost.
type StatusPoller struct {
	query     eventstore.InFlightQuery
	refresher StatusRefresher
	batchSize int
	logger    *slog.Logger
}

// NewStatusPoller creates a poller over the given in-flight query.
func NewStatusPoller(query eventstore.InFlightQuery, refresher StatusRefresher, batchSize int, logger *slog.Logger) *StatusPoller {
	return &StatusPoller{
		query:     query,
		refresher: refresher,
		batchSize: batchSize,
		logger:    logger.With("component", "status_poller"),
	}
}

// Run polls on the given interval until ctx is cancelled.
func (p *StatusPoller) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pollCtx, cancel := context.WithTimeout(ctx, interval)
			if err := p.PollOnce(pollCtx); err != nil {
				p.logger.ErrorContext(pollCtx, "Status poll failed", "error", err)
			}
			cancel()
		case <-ctx.Done():
			p.logger.Info("Status poller stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// PollOnce refreshes one batch of in-flight messages. A failure on one message
// is logged and does not stop the rest of the batch.
func (p *StatusPoller) PollOnce(ctx context.Context) error {
	inFlight, err := p.query.ListInFlight(ctx, p.batchSize)
	if err != nil {
		return err
	}
	if len(inFlight) == 0 {
		p.logger.DebugContext(ctx, "No in-flight messages to poll")
		return nil
	}

	p.logger.InfoContext(ctx, "Polling in-flight messages", "count", len(inFlight))
	for _, msg := range inFlight {
		view, err := p.refresher.RefreshStatus(ctx, msg.MessageID)
		if err != nil {
			pollRefreshCounter.WithLabelValues(string(msg.Channel), "error").Inc()
			p.logger.ErrorContext(ctx, "Failed to refresh message status",
				"error", err, "message_id", msg.MessageID)
			continue
		}
		pollRefreshCounter.WithLabelValues(string(msg.Channel), "success").Inc()
		p.logger.DebugContext(ctx, "Refreshed message status",
			"message_id", msg.MessageID, "status", view.Status.String())
	}
	return nil
}
