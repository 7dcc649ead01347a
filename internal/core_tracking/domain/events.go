package domain

import "time"

// EventType identifies one kind of domain event. The set is closed: the
// aggregate's fold dispatches over exactly these values.
type EventType string

const (
	EventTypeRequestSent      EventType = "message.request_sent_to_provider"
	EventTypeResponseReceived EventType = "message.response_received_from_provider"
	EventTypeDelivered        EventType = "message.delivered"
	EventTypeRejected         EventType = "message.rejected"
	EventTypeExpired          EventType = "message.expired"
	EventTypeUndeliverable    EventType = "message.undeliverable"
	EventTypeBounced          EventType = "message.bounced"
	EventTypeMarkedAsSpam     EventType = "message.marked_as_spam"
)

// Event is a domain event recorded against one message. Events are immutable
// once created; they are the sole unit of persisted history.
type Event interface {
	MessageID() string
	EventType() EventType
}

// RequestSentToProvider records that a send request was accepted for this message.
type RequestSentToProvider struct {
	ID          string  `json:"message_id"`
	Channel     Channel `json:"channel"`
	Sender      string  `json:"sender"`
	Destination string  `json:"destination"`
	Body        string  `json:"body"`
}

func (e RequestSentToProvider) MessageID() string   { return e.ID }
func (e RequestSentToProvider) EventType() EventType { return EventTypeRequestSent }

// ResponseReceivedFromProvider records the provider's acknowledgement and the
// reference it assigned to the message.
type ResponseReceivedFromProvider struct {
	ID                string `json:"message_id"`
	ProviderReference string `json:"provider_reference"`
}

func (e ResponseReceivedFromProvider) MessageID() string   { return e.ID }
func (e ResponseReceivedFromProvider) EventType() EventType { return EventTypeResponseReceived }

// MessageDelivered records a confirmed delivery to the recipient.
type MessageDelivered struct {
	ID             string    `json:"message_id"`
	ProviderStatus string    `json:"provider_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (e MessageDelivered) MessageID() string   { return e.ID }
func (e MessageDelivered) EventType() EventType { return EventTypeDelivered }

// MessageRejected records a rejection by the provider or carrier.
type MessageRejected struct {
	ID             string    `json:"message_id"`
	ProviderStatus string    `json:"provider_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (e MessageRejected) MessageID() string   { return e.ID }
func (e MessageRejected) EventType() EventType { return EventTypeRejected }

// MessageExpired records that the message expired before delivery.
type MessageExpired struct {
	ID             string    `json:"message_id"`
	ProviderStatus string    `json:"provider_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (e MessageExpired) MessageID() string   { return e.ID }
func (e MessageExpired) EventType() EventType { return EventTypeExpired }

// MessageUndeliverable records a permanent delivery failure.
type MessageUndeliverable struct {
	ID             string    `json:"message_id"`
	ProviderStatus string    `json:"provider_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (e MessageUndeliverable) MessageID() string   { return e.ID }
func (e MessageUndeliverable) EventType() EventType { return EventTypeUndeliverable }

// MessageBounced records a bounce from the receiving mail server (email channel).
type MessageBounced struct {
	ID             string    `json:"message_id"`
	ProviderStatus string    `json:"provider_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (e MessageBounced) MessageID() string   { return e.ID }
func (e MessageBounced) EventType() EventType { return EventTypeBounced }

// MessageMarkedAsSpam records a spam complaint (email channel).
type MessageMarkedAsSpam struct {
	ID             string    `json:"message_id"`
	ProviderStatus string    `json:"provider_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (e MessageMarkedAsSpam) MessageID() string   { return e.ID }
func (e MessageMarkedAsSpam) EventType() EventType { return EventTypeMarkedAsSpam }
