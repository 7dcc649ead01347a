package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
	"github.com/arkosms/message-tracking/internal/tracking_service/eventstore"
	"github.com/arkosms/message-tracking/internal/tracking_service/provider"
)

// queryStatusWindow is the date range handed to providers whose status APIs
// require one.
const queryStatusWindow = 7 * 24 * time.Hour

// SendMessageCommand carries the attributes of a new outbound message.
type SendMessageCommand struct {
	Channel     domain.Channel
	Sender      string
	Destination string
	Body        string
}

// MessageView is the read model projected from a message's event history.
type MessageView struct {
	ID                string
	Channel           domain.Channel
	Sender            string
	Destination       string
	Body              string
	ProviderReference string
	Status            domain.MessageStatus
	Version           int
}

// TrackingService owns the command side of message tracking: it loads or
// creates aggregates, executes guarded commands and appends the resulting
// events at the version the aggregate was loaded at.
type TrackingService struct {
	store     eventstore.EventStore
	providers map[domain.Channel]provider.MessageProvider
	logger    *slog.Logger
}

// NewTrackingService creates the tracking application service. The providers
// map assigns one proxy per delivery channel.
func NewTrackingService(
	store eventstore.EventStore,
	providers map[domain.Channel]provider.MessageProvider,
	logger *slog.Logger,
) *TrackingService {
	return &TrackingService{
		store:     store,
		providers: providers,
		logger:    logger.With("component", "tracking_service"),
	}
}

// SendMessage creates a message aggregate, records the send request, submits
// the message to the channel's provider and records its acknowledgement. The
// request event is persisted before the provider call so a provider failure
// still leaves a truthful InProgress history.
func (s *TrackingService) SendMessage(ctx context.Context, cmd SendMessageCommand) (*MessageView, error) {
	prov, ok := s.providers[cmd.Channel]
	if !ok {
		return nil, fmt.Errorf("no provider configured for channel %q", cmd.Channel)
	}

	msg, err := domain.NewMessage(uuid.NewString())
	if err != nil {
		return nil, err
	}
	if err := msg.SendRequestToProvider(cmd.Channel, cmd.Sender, cmd.Destination, cmd.Body); err != nil {
		return nil, err
	}
	if err := s.appendPending(ctx, msg); err != nil {
		return nil, err
	}
	messagesAcceptedCounter.WithLabelValues(string(cmd.Channel)).Inc()

	resp, err := prov.Send(ctx, provider.SendRequestDetails{
		InternalMessageID: msg.ID(),
		Sender:            cmd.Sender,
		Destination:       cmd.Destination,
		Body:              cmd.Body,
	})
	if err != nil {
		providerSendCounter.WithLabelValues(prov.Name(), "error").Inc()
		s.logger.ErrorContext(ctx, "Provider rejected send request",
			"error", err, "message_id", msg.ID(), "provider", prov.Name())
		return nil, fmt.Errorf("sending message %s via %s: %w", msg.ID(), prov.Name(), err)
	}
	providerSendCounter.WithLabelValues(prov.Name(), "success").Inc()

	if err := msg.ReceiveResponseFromProvider(resp.ProviderReference); err != nil {
		return nil, err
	}
	if err := s.appendPending(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Message sent and tracked",
		"message_id", msg.ID(),
		"channel", cmd.Channel,
		"provider_reference", resp.ProviderReference,
	)
	return viewOf(msg), nil
}

// GetMessage projects the current read model of a message from its history.
func (s *TrackingService) GetMessage(ctx context.Context, messageID string) (*MessageView, error) {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return viewOf(msg), nil
}

// RefreshStatus queries the provider for the message's delivery status,
// translates it and records the matching terminal event. Messages that are not
// in Sent status are returned unchanged. A concurrent writer triggers one
// reload-and-retry; commands are not replayable against stale state.
func (s *TrackingService) RefreshStatus(ctx context.Context, messageID string) (*MessageView, error) {
	for attempt := 0; ; attempt++ {
		msg, err := s.load(ctx, messageID)
		if err != nil {
			return nil, err
		}
		if msg.Status() != domain.StatusSent {
			return viewOf(msg), nil
		}

		prov, ok := s.providers[msg.Channel()]
		if !ok {
			return nil, fmt.Errorf("no provider configured for channel %q", msg.Channel())
		}

		now := time.Now().UTC()
		raw, err := prov.QueryStatus(ctx, msg.ProviderReference(), now.Add(-queryStatusWindow), now)
		if err != nil {
			return nil, fmt.Errorf("querying status of %s via %s: %w", messageID, prov.Name(), err)
		}

		changed, err := applyTranslated(msg, prov.TranslateStatus(raw), raw, now)
		if err != nil {
			return nil, err
		}
		if !changed {
			statusRefreshCounter.WithLabelValues("unchanged").Inc()
			return viewOf(msg), nil
		}

		err = s.appendPending(ctx, msg)
		if errors.Is(err, eventstore.ErrConcurrencyConflict) && attempt == 0 {
			s.logger.WarnContext(ctx, "Concurrent write during status refresh, retrying",
				"message_id", messageID)
			continue
		}
		if err != nil {
			return nil, err
		}

		statusRefreshCounter.WithLabelValues(msg.Status().String()).Inc()
		s.logger.InfoContext(ctx, "Message status updated from provider",
			"message_id", messageID,
			"provider_status", raw,
			"status", msg.Status().String(),
		)
		return viewOf(msg), nil
	}
}

// ApplyDeliveryReport records an already-translated delivery outcome, e.g. from
// a provider callback. Reports for messages that are not Sent, and canonical
// statuses with no matching command, are ignored. Returns whether the message
// changed.
func (s *TrackingService) ApplyDeliveryReport(ctx context.Context, messageID string, status domain.MessageStatus, providerStatus string) (bool, error) {
	for attempt := 0; ; attempt++ {
		msg, err := s.load(ctx, messageID)
		if err != nil {
			return false, err
		}
		if msg.Status() != domain.StatusSent {
			return false, nil
		}

		changed, err := applyTranslated(msg, status, providerStatus, time.Now().UTC())
		if err != nil {
			return false, err
		}
		if !changed {
			return false, nil
		}

		err = s.appendPending(ctx, msg)
		if errors.Is(err, eventstore.ErrConcurrencyConflict) && attempt == 0 {
			continue
		}
		if err != nil {
			return false, err
		}

		statusRefreshCounter.WithLabelValues(msg.Status().String()).Inc()
		return true, nil
	}
}

// applyTranslated issues the command matching a canonical status. Failed and
// Unknown are translation-only: they carry no final outcome, so no command is
// issued and the message stays Sent.
func applyTranslated(msg *domain.Message, status domain.MessageStatus, providerStatus string, at time.Time) (bool, error) {
	var err error
	switch status {
	case domain.StatusDelivered:
		err = msg.MarkDelivered(providerStatus, at)
	case domain.StatusRejected:
		err = msg.MarkRejected(providerStatus, at)
	case domain.StatusExpired:
		err = msg.MarkExpired(providerStatus, at)
	case domain.StatusUndeliverable:
		err = msg.MarkUndeliverable(providerStatus, at)
	case domain.StatusBounced:
		err = msg.MarkBounced(providerStatus, at)
	case domain.StatusSpam:
		err = msg.MarkSpam(providerStatus, at)
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *TrackingService) load(ctx context.Context, messageID string) (*domain.Message, error) {
	history, err := s.store.Load(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return domain.FromHistory(messageID, history)
}

// appendPending persists the aggregate's pending events at the version it was
// loaded at and clears the pending list on success.
func (s *TrackingService) appendPending(ctx context.Context, msg *domain.Message) error {
	pending := msg.PendingEvents()
	if len(pending) == 0 {
		return nil
	}
	expected := msg.Version() - len(pending)
	if _, err := s.store.Append(ctx, msg.ID(), expected, pending); err != nil {
		return err
	}
	msg.PullEvents()
	return nil
}

func viewOf(msg *domain.Message) *MessageView {
	return &MessageView{
		ID:                msg.ID(),
		Channel:           msg.Channel(),
		Sender:            msg.Sender(),
		Destination:       msg.Destination(),
		Body:              msg.Body(),
		ProviderReference: msg.ProviderReference(),
		Status:            msg.Status(),
		Version:           msg.Version(),
	}
}
