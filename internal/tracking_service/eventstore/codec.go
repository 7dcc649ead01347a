package eventstore

import (
	"encoding/json"
	"fmt"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
)

// MarshalEvent serializes a domain event into its type tag and JSON payload.
func MarshalEvent(event domain.Event) (domain.EventType, []byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return "", nil, fmt.Errorf("marshaling %s event: %w", event.EventType(), err)
	}
	return event.EventType(), payload, nil
}

// UnmarshalEvent reconstructs a domain event from its stored type tag and
// payload. Unknown type tags are an error: the stream cannot be replayed if
// any of its events is unreadable.
func UnmarshalEvent(eventType domain.EventType, payload []byte) (domain.Event, error) {
	switch eventType {
	case domain.EventTypeRequestSent:
		var e domain.RequestSentToProvider
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshaling %s event: %w", eventType, err)
		}
		return e, nil
	case domain.EventTypeResponseReceived:
		var e domain.ResponseReceivedFromProvider
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshaling %s event: %w", eventType, err)
		}
		return e, nil
	case domain.EventTypeDelivered:
		var e domain.MessageDelivered
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshaling %s event: %w", eventType, err)
		}
		return e, nil
	case domain.EventTypeRejected:
		var e domain.MessageRejected
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshaling %s event: %w", eventType, err)
		}
		return e, nil
	case domain.EventTypeExpired:
		var e domain.MessageExpired
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshaling %s event: %w", eventType, err)
		}
		return e, nil
	case domain.EventTypeUndeliverable:
		var e domain.MessageUndeliverable
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshaling %s event: %w", eventType, err)
		}
		return e, nil
	case domain.EventTypeBounced:
		var e domain.MessageBounced
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshaling %s event: %w", eventType, err)
		}
		return e, nil
	case domain.EventTypeMarkedAsSpam:
		var e domain.MessageMarkedAsSpam
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshaling %s event: %w", eventType, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q in stream", eventType)
	}
}
