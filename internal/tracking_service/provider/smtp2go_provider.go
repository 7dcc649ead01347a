package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
)

// SMTP2GoProvider talks to the SMTP2Go REST API for the email channel.
type SMTP2GoProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

// NewSMTP2GoProvider creates an SMTP2Go proxy. A nil httpClient gets a default
// with a 15s timeout; email submissions are slower than SMS gateways.
func NewSMTP2GoProvider(logger *slog.Logger, apiURL, apiKey string, httpClient *http.Client) *SMTP2GoProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &SMTP2GoProvider{
		logger:     logger.With("provider", "smtp2go"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
	}
}

func (p *SMTP2GoProvider) Name() string { return "smtp2go" }

type smtp2goSendRequest struct {
	Sender   string   `json:"sender"`
	To       []string `json:"to"`
	TextBody string   `json:"text_body"`
}

type smtp2goSendResponse struct {
	Data struct {
		EmailID   string `json:"email_id"`
		Succeeded int    `json:"succeeded"`
		Failed    int    `json:"failed"`
	} `json:"data"`
}

func (p *SMTP2GoProvider) Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error) {
	reqBytes, err := json.Marshal(smtp2goSendRequest{
		Sender:   details.Sender,
		To:       []string{details.Destination},
		TextBody: details.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling SMTP2Go send request: %w", err)
	}

	respBytes, err := p.post(ctx, "/email/send", reqBytes)
	if err != nil {
		p.logger.ErrorContext(ctx, "SMTP2Go send failed", "error", err, "internal_message_id", details.InternalMessageID)
		return nil, err
	}

	var sendResp smtp2goSendResponse
	if err := json.Unmarshal(respBytes, &sendResp); err != nil {
		return nil, fmt.Errorf("parsing SMTP2Go send response: %w", err)
	}
	if sendResp.Data.EmailID == "" {
		return nil, fmt.Errorf("SMTP2Go send response carried no email_id")
	}

	p.logger.InfoContext(ctx, "SMTP2Go accepted message",
		"internal_message_id", details.InternalMessageID,
		"provider_reference", sendResp.Data.EmailID,
	)
	return &SendResponseDetails{
		ProviderReference: sendResp.Data.EmailID,
		ProviderStatus:    "sent",
	}, nil
}

type smtp2goSearchRequest struct {
	EmailID   string `json:"email_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type smtp2goSearchResponse struct {
	Data struct {
		Events []struct {
			Event string `json:"event"`
		} `json:"events"`
	} `json:"data"`
}

func (p *SMTP2GoProvider) QueryStatus(ctx context.Context, providerReference string, from, to time.Time) (string, error) {
	reqBytes, err := json.Marshal(smtp2goSearchRequest{
		EmailID:   providerReference,
		StartDate: from.UTC().Format("2006-01-02"),
		EndDate:   to.UTC().Format("2006-01-02"),
	})
	if err != nil {
		return "", fmt.Errorf("marshaling SMTP2Go search request: %w", err)
	}

	respBytes, err := p.post(ctx, "/activity/search", reqBytes)
	if err != nil {
		p.logger.ErrorContext(ctx, "SMTP2Go activity search failed", "error", err, "provider_reference", providerReference)
		return "", err
	}

	var searchResp smtp2goSearchResponse
	if err := json.Unmarshal(respBytes, &searchResp); err != nil {
		return "", fmt.Errorf("parsing SMTP2Go search response: %w", err)
	}
	if len(searchResp.Data.Events) == 0 {
		return "", fmt.Errorf("SMTP2Go returned no activity for reference %s", providerReference)
	}
	// Events are returned newest first; the latest one is the current status.
	return searchResp.Data.Events[0].Event, nil
}

func (p *SMTP2GoProvider) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating SMTP2Go request for %s: %w", path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Smtp2go-Api-Key", p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading SMTP2Go response from %s: %w", path, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: SMTP2Go %s returned status %d", ErrProviderUnavailable, path, httpResp.StatusCode)
	}
	return respBytes, nil
}

func (p *SMTP2GoProvider) TranslateStatus(raw string) domain.MessageStatus {
	return TranslateSMTP2GoStatus(raw)
}
