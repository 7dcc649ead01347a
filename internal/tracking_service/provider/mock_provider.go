package provider

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
)

// MockProvider accepts every message and reports a configurable status. Used
// in local runs when no real provider credentials are configured.
type MockProvider struct {
	logger *slog.Logger

	mu        sync.Mutex
	rawStatus string
	sent      map[string]SendRequestDetails // keyed by provider reference
}

func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{
		logger:    logger.With("provider", "mock"),
		rawStatus: "1", // delivered, in Magfa vocabulary
		sent:      make(map[string]SendRequestDetails),
	}
}

func (p *MockProvider) Name() string { return "mock" }

// SetRawStatus changes the status QueryStatus reports for all references.
func (p *MockProvider) SetRawStatus(raw string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rawStatus = raw
}

func (p *MockProvider) Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error) {
	ref := uuid.NewString()
	p.mu.Lock()
	p.sent[ref] = details
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "Mock provider accepted message",
		"internal_message_id", details.InternalMessageID,
		"provider_reference", ref,
	)
	return &SendResponseDetails{ProviderReference: ref, ProviderStatus: "8"}, nil
}

func (p *MockProvider) QueryStatus(_ context.Context, _ string, _, _ time.Time) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rawStatus, nil
}

func (p *MockProvider) TranslateStatus(raw string) domain.MessageStatus {
	return TranslateMagfaStatus(raw)
}
