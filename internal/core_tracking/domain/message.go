package domain

import (
	"fmt"
	"strings"
	"time"
)

// Message is the event-sourced aggregate for one outbound message. Its status
// is derived purely from the applied event history; command methods never write
// state fields directly. They validate the current status, construct the event,
// fold it in through Apply and queue it as pending for the event store.
type Message struct {
	id                string
	channel           Channel
	sender            string
	destination       string
	body              string
	providerReference string
	status            MessageStatus

	// version is the count of applied events; the event store uses it for
	// optimistic concurrency checks.
	version int
	pending []Event
}

// NewMessage creates an empty aggregate with the given identifier.
func NewMessage(id string) (*Message, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidIdentifier
	}
	return &Message{id: id, status: StatusNotSet}, nil
}

// FromHistory rehydrates an aggregate by replaying its recorded events.
func FromHistory(id string, history []Event) (*Message, error) {
	m, err := NewMessage(id)
	if err != nil {
		return nil, err
	}
	if err := Replay[Event](m, history); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Message) ID() string                { return m.id }
func (m *Message) Channel() Channel          { return m.channel }
func (m *Message) Sender() string            { return m.sender }
func (m *Message) Destination() string       { return m.destination }
func (m *Message) Body() string              { return m.body }
func (m *Message) ProviderReference() string { return m.providerReference }
func (m *Message) Status() MessageStatus     { return m.status }

// Version returns the number of events applied to this instance, including
// pending ones. The store's expected version for an append is Version minus
// len(PendingEvents).
func (m *Message) Version() int { return m.version }

// PendingEvents returns the events emitted by commands on this instance that
// have not yet been persisted.
func (m *Message) PendingEvents() []Event { return m.pending }

// PullEvents returns the pending events and clears the pending list. Called by
// the repository after a successful append.
func (m *Message) PullEvents() []Event {
	events := m.pending
	m.pending = nil
	return events
}

// SendRequestToProvider records that a send request was accepted for this
// message. Valid only on a fresh aggregate.
func (m *Message) SendRequestToProvider(channel Channel, sender, destination, body string) error {
	if m.status != StatusNotSet {
		return &InvalidStateTransitionError{Current: m.status, Command: "SendRequestToProvider"}
	}
	return m.raise(RequestSentToProvider{
		ID:          m.id,
		Channel:     channel,
		Sender:      sender,
		Destination: destination,
		Body:        body,
	})
}

// ReceiveResponseFromProvider records the provider's acknowledgement. It
// requires the send request to have been recorded first.
func (m *Message) ReceiveResponseFromProvider(providerReference string) error {
	if m.status != StatusInProgress {
		return &InvalidStateTransitionError{Current: m.status, Command: "ReceiveResponseFromProvider"}
	}
	return m.raise(ResponseReceivedFromProvider{ID: m.id, ProviderReference: providerReference})
}

// MarkDelivered records a confirmed delivery. Valid only while Sent.
func (m *Message) MarkDelivered(providerStatus string, at time.Time) error {
	if m.status != StatusSent {
		return &InvalidStateTransitionError{Current: m.status, Command: "MarkDelivered"}
	}
	return m.raise(MessageDelivered{ID: m.id, ProviderStatus: providerStatus, OccurredAt: at})
}

// MarkRejected records a rejection by the provider or carrier. Valid only while Sent.
func (m *Message) MarkRejected(providerStatus string, at time.Time) error {
	if m.status != StatusSent {
		return &InvalidStateTransitionError{Current: m.status, Command: "MarkRejected"}
	}
	return m.raise(MessageRejected{ID: m.id, ProviderStatus: providerStatus, OccurredAt: at})
}

// MarkExpired records that the message expired before delivery. Valid only while Sent.
func (m *Message) MarkExpired(providerStatus string, at time.Time) error {
	if m.status != StatusSent {
		return &InvalidStateTransitionError{Current: m.status, Command: "MarkExpired"}
	}
	return m.raise(MessageExpired{ID: m.id, ProviderStatus: providerStatus, OccurredAt: at})
}

// MarkUndeliverable records a permanent delivery failure. Valid only while Sent.
func (m *Message) MarkUndeliverable(providerStatus string, at time.Time) error {
	if m.status != StatusSent {
		return &InvalidStateTransitionError{Current: m.status, Command: "MarkUndeliverable"}
	}
	return m.raise(MessageUndeliverable{ID: m.id, ProviderStatus: providerStatus, OccurredAt: at})
}

// MarkBounced records a bounce from the receiving mail server. Valid only while Sent.
func (m *Message) MarkBounced(providerStatus string, at time.Time) error {
	if m.status != StatusSent {
		return &InvalidStateTransitionError{Current: m.status, Command: "MarkBounced"}
	}
	return m.raise(MessageBounced{ID: m.id, ProviderStatus: providerStatus, OccurredAt: at})
}

// MarkSpam records a spam complaint. Valid only while Sent.
func (m *Message) MarkSpam(providerStatus string, at time.Time) error {
	if m.status != StatusSent {
		return &InvalidStateTransitionError{Current: m.status, Command: "MarkSpam"}
	}
	return m.raise(MessageMarkedAsSpam{ID: m.id, ProviderStatus: providerStatus, OccurredAt: at})
}

// raise applies the event through the shared fold and queues it as pending,
// so in-memory state and event history can never diverge.
func (m *Message) raise(event Event) error {
	if err := m.Apply(event); err != nil {
		return err
	}
	m.pending = append(m.pending, event)
	return nil
}

// Apply folds one event into the aggregate state. The dispatch is total over
// the defined event kinds and carries no guards: preconditions are enforced by
// the command methods, the fold only records what happened.
func (m *Message) Apply(event Event) error {
	switch e := event.(type) {
	case RequestSentToProvider:
		m.channel = e.Channel
		m.sender = e.Sender
		m.destination = e.Destination
		m.body = e.Body
		m.status = StatusInProgress
	case ResponseReceivedFromProvider:
		m.providerReference = e.ProviderReference
		m.status = StatusSent
	case MessageDelivered:
		m.status = StatusDelivered
	case MessageRejected:
		m.status = StatusRejected
	case MessageExpired:
		m.status = StatusExpired
	case MessageUndeliverable:
		m.status = StatusUndeliverable
	case MessageBounced:
		m.status = StatusBounced
	case MessageMarkedAsSpam:
		m.status = StatusSpam
	default:
		return fmt.Errorf("unhandled event type %q for message %s", event.EventType(), m.id)
	}
	m.version++
	return nil
}
