package eventstore

import (
	"context"
	"errors"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
)

// ErrMessageNotFound is returned by Load when no event stream exists for the id.
var ErrMessageNotFound = errors.New("message event stream not found")

// ErrConcurrencyConflict is returned by Append when the stream advanced past
// the expected version. The caller must reload the aggregate and retry the
// command from scratch.
var ErrConcurrencyConflict = errors.New("event stream version conflict")

// EventStore persists and retrieves the ordered event history per message.
// The conditional Append is the sole source of mutual exclusion per message id.
type EventStore interface {
	// Load returns the ordered event history for the message.
	Load(ctx context.Context, messageID string) ([]domain.Event, error)

	// Append writes events after the given expected version and returns the new
	// stream version.
	Append(ctx context.Context, messageID string, expectedVersion int, events []domain.Event) (int, error)
}

// InFlightMessage identifies a message that is awaiting its delivery outcome.
type InFlightMessage struct {
	MessageID         string
	Channel           domain.Channel
	ProviderReference string
}

// InFlightQuery serves the status poller's read needs against the event store.
type InFlightQuery interface {
	// ListInFlight returns messages whose latest event is the provider response,
	// i.e. sent but without a final delivery outcome yet.
	ListInFlight(ctx context.Context, limit int) ([]InFlightMessage, error)

	// FindByProviderReference resolves a provider-assigned reference to the
	// message id it belongs to.
	FindByProviderReference(ctx context.Context, providerReference string) (string, error)
}
