package provider

import (
	"strings"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
)

// SMTP2Go activity event names. Lookup is case-insensitive because the API has
// historically been inconsistent about casing in webhook vs. search payloads.
var smtp2goStatusTable = map[string]domain.MessageStatus{
	"failed":     domain.StatusFailed,
	"deferred":   domain.StatusFailed,
	"hardbounce": domain.StatusBounced,
	"refused":    domain.StatusBounced,
	"softbounce": domain.StatusBounced,
	"returned":   domain.StatusBounced,
	"delivered":  domain.StatusDelivered,
	"ok":         domain.StatusDelivered,
	"sent":       domain.StatusDelivered,
	"rejected":   domain.StatusRejected,
	"complained": domain.StatusSpam,
	"spam":       domain.StatusSpam,
}

// TranslateSMTP2GoStatus maps a raw SMTP2Go event name to the canonical vocabulary.
func TranslateSMTP2GoStatus(raw string) domain.MessageStatus {
	if status, ok := smtp2goStatusTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return status
	}
	return domain.StatusUnknown
}
