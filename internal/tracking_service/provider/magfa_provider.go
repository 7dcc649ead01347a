package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
)

// MagfaProvider talks to a Magfa-compatible SMS REST API. Base URL and API key
// are explicit construction parameters; nothing is read from ambient state.
type MagfaProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiKey     string
	senderID   string
}

// NewMagfaProvider creates a Magfa proxy. A nil httpClient gets a default with
// a 10s timeout.
func NewMagfaProvider(logger *slog.Logger, apiURL, apiKey, senderID string, httpClient *http.Client) *MagfaProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &MagfaProvider{
		logger:     logger.With("provider", "magfa"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
		senderID:   senderID,
	}
}

func (p *MagfaProvider) Name() string { return "magfa" }

type magfaSendRequest struct {
	Messages []magfaMessage `json:"messages"`
}

type magfaMessage struct {
	Sender     string   `json:"sender"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

type magfaSendResponse struct {
	Status   int    `json:"status"`
	Message  string `json:"message"`
	Messages []struct {
		ID        int64  `json:"id"`
		Recipient string `json:"recipient"`
		Status    int    `json:"status"`
	} `json:"messages"`
}

func (p *MagfaProvider) Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error) {
	sender := details.Sender
	if sender == "" {
		sender = p.senderID
	}
	reqBody := magfaSendRequest{
		Messages: []magfaMessage{{
			Sender:     sender,
			Body:       details.Body,
			Recipients: []string{details.Destination},
		}},
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling Magfa send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/send", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("creating Magfa send request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.ErrorContext(ctx, "Magfa send request failed", "error", err, "internal_message_id", details.InternalMessageID)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Magfa send response (status %d): %w", httpResp.StatusCode, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		p.logger.ErrorContext(ctx, "Magfa send returned non-2xx", "status_code", httpResp.StatusCode, "body", string(respBytes))
		return nil, fmt.Errorf("%w: Magfa send returned status %d", ErrProviderUnavailable, httpResp.StatusCode)
	}

	var sendResp magfaSendResponse
	if err := json.Unmarshal(respBytes, &sendResp); err != nil {
		return nil, fmt.Errorf("parsing Magfa send response: %w", err)
	}
	if len(sendResp.Messages) == 0 {
		return nil, fmt.Errorf("Magfa send response carried no message entries")
	}

	detail := sendResp.Messages[0]
	p.logger.InfoContext(ctx, "Magfa accepted message",
		"internal_message_id", details.InternalMessageID,
		"provider_reference", detail.ID,
		"provider_status", detail.Status,
	)
	return &SendResponseDetails{
		ProviderReference: strconv.FormatInt(detail.ID, 10),
		ProviderStatus:    strconv.Itoa(detail.Status),
	}, nil
}

type magfaStatusResponse struct {
	Status int `json:"status"`
	DLRs   []struct {
		ID     int64 `json:"id"`
		Status int   `json:"status"`
	} `json:"dlrs"`
}

// QueryStatus fetches the delivery status code for a previously sent message.
// Magfa's statuses endpoint ignores date ranges; the window parameters exist to
// satisfy the proxy contract shared with providers that require them.
func (p *MagfaProvider) QueryStatus(ctx context.Context, providerReference string, _, _ time.Time) (string, error) {
	endpoint := fmt.Sprintf("%s/statuses?ids=%s", p.apiURL, url.QueryEscape(providerReference))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating Magfa status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.ErrorContext(ctx, "Magfa status query failed", "error", err, "provider_reference", providerReference)
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("reading Magfa status response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: Magfa status query returned status %d", ErrProviderUnavailable, httpResp.StatusCode)
	}

	var statusResp magfaStatusResponse
	if err := json.Unmarshal(respBytes, &statusResp); err != nil {
		return "", fmt.Errorf("parsing Magfa status response: %w", err)
	}
	if len(statusResp.DLRs) == 0 {
		return "", fmt.Errorf("Magfa returned no DLR entry for reference %s", providerReference)
	}
	return strconv.Itoa(statusResp.DLRs[0].Status), nil
}

func (p *MagfaProvider) TranslateStatus(raw string) domain.MessageStatus {
	return TranslateMagfaStatus(raw)
}
