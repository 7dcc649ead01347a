package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
)

func TestTranslateSMTP2GoStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.MessageStatus
	}{
		{"failed", domain.StatusFailed},
		{"deferred", domain.StatusFailed},
		{"hardbounce", domain.StatusBounced},
		{"refused", domain.StatusBounced},
		{"softbounce", domain.StatusBounced},
		{"returned", domain.StatusBounced},
		{"delivered", domain.StatusDelivered},
		{"ok", domain.StatusDelivered},
		{"sent", domain.StatusDelivered},
		{"rejected", domain.StatusRejected},
		{"complained", domain.StatusSpam},
		{"spam", domain.StatusSpam},
		{"zzz-unknown", domain.StatusUnknown},
		{"", domain.StatusUnknown},
		{"Delivered", domain.StatusDelivered}, // casing tolerated
		{"  ok  ", domain.StatusDelivered},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, TranslateSMTP2GoStatus(tc.raw))
		})
	}
}

func TestTranslateMagfaStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.MessageStatus
	}{
		{"1", domain.StatusDelivered},
		{"2", domain.StatusUndeliverable},
		{"8", domain.StatusSent},
		{"16", domain.StatusRejected},
		{"27", domain.StatusExpired},
		{"30", domain.StatusFailed},
		{"999", domain.StatusUnknown},
		{"", domain.StatusUnknown},
		{" 1 ", domain.StatusDelivered},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, TranslateMagfaStatus(tc.raw))
		})
	}
}

// Translation is total: arbitrary garbage never fails, it resolves to Unknown.
func TestTranslatorsAreTotal(t *testing.T) {
	for _, raw := range []string{"\x00", "DELIVERED-ISH", "🤖", "null"} {
		assert.Equal(t, domain.StatusUnknown, TranslateMagfaStatus(raw))
	}
	assert.Equal(t, domain.StatusUnknown, TranslateSMTP2GoStatus("🤖"))
}
