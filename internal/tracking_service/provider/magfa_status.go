package provider

import (
	"strings"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
)

// Magfa DLR status codes (HTTP v2 API). The table is static; it is not
// inferred from responses.
var magfaStatusTable = map[string]domain.MessageStatus{
	"1":  domain.StatusDelivered,     // delivered to handset
	"2":  domain.StatusUndeliverable, // not deliverable
	"8":  domain.StatusSent,          // reached telecom center, awaiting handset DLR
	"16": domain.StatusRejected,      // rejected by carrier
	"27": domain.StatusExpired,       // validity period expired
	"30": domain.StatusFailed,        // submission failed inside provider
}

// TranslateMagfaStatus maps a raw Magfa status code to the canonical vocabulary.
func TranslateMagfaStatus(raw string) domain.MessageStatus {
	if status, ok := magfaStatusTable[strings.TrimSpace(raw)]; ok {
		return status
	}
	return domain.StatusUnknown
}
