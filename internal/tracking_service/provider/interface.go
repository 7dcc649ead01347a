package provider

import (
	"context"
	"errors"
	"time"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
)

// ErrProviderUnavailable wraps transport-level failures talking to a provider.
var ErrProviderUnavailable = errors.New("message provider unavailable")

// SendRequestDetails carries the attributes of a message to submit.
type SendRequestDetails struct {
	InternalMessageID string
	Sender            string
	Destination       string
	Body              string
}

// SendResponseDetails is the provider's acknowledgement of a submission.
type SendResponseDetails struct {
	// ProviderReference is the identifier the provider assigned to this attempt.
	ProviderReference string
	// ProviderStatus is the raw status string returned with the acknowledgement.
	ProviderStatus string
}

// MessageProvider is the proxy to one external send/delivery provider. The
// tracking core consumes only the provider reference from Send and the raw
// status string from QueryStatus; TranslateStatus is the provider's static
// mapping into the canonical vocabulary, so the state machine never sees a
// vendor-specific code.
type MessageProvider interface {
	Name() string

	Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error)

	// QueryStatus fetches the raw delivery status for a provider reference
	// within the given date range.
	QueryStatus(ctx context.Context, providerReference string, from, to time.Time) (string, error)

	// TranslateStatus maps a raw provider status to a canonical MessageStatus.
	// Total over arbitrary input: unmapped codes yield StatusUnknown.
	TranslateStatus(raw string) domain.MessageStatus
}
