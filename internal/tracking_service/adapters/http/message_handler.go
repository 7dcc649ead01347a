package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/arkosms/message-tracking/internal/core_tracking/domain"
	"github.com/arkosms/message-tracking/internal/tracking_service/app"
	"github.com/arkosms/message-tracking/internal/tracking_service/eventstore"
)

// SendMessageRequest DTO for POST /messages
type SendMessageRequest struct {
	Channel     string `json:"channel"`
	Sender      string `json:"sender"`
	Destination string `json:"destination"`
	Body        string `json:"body"`
}

// MessageResponse DTO shared by send, get and refresh.
type MessageResponse struct {
	ID                string `json:"id"`
	Channel           string `json:"channel"`
	Sender            string `json:"sender"`
	Destination       string `json:"destination"`
	Body              string `json:"body,omitempty"`
	ProviderReference string `json:"provider_reference,omitempty"`
	Status            string `json:"status"`
	Version           int    `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type MessageHandler struct {
	tracker *app.TrackingService
	logger  *slog.Logger
}

func NewMessageHandler(tracker *app.TrackingService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		tracker: tracker,
		logger:  logger.With("handler", "message"),
	}
}

// RegisterRoutes registers message routes with the given router.
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/messages", h.handleSendMessage)
	r.Get("/messages/{messageID}", h.handleGetMessage)
	r.Post("/messages/{messageID}/refresh", h.handleRefreshStatus)
}

func (h *MessageHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "Failed to decode send message request", "error", err)
		h.jsonError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	channel := domain.Channel(req.Channel)
	if channel != domain.ChannelSMS && channel != domain.ChannelEmail {
		h.jsonError(w, "channel must be \"sms\" or \"email\"", http.StatusBadRequest)
		return
	}
	if req.Destination == "" || req.Body == "" {
		h.jsonError(w, "destination and body are required", http.StatusBadRequest)
		return
	}

	view, err := h.tracker.SendMessage(ctx, app.SendMessageCommand{
		Channel:     channel,
		Sender:      req.Sender,
		Destination: req.Destination,
		Body:        req.Body,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to send message", "error", err)
		h.jsonError(w, "Failed to send message", http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusAccepted, toResponse(view, true))
}

func (h *MessageHandler) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	messageID := chi.URLParam(r, "messageID")

	view, err := h.tracker.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, eventstore.ErrMessageNotFound) {
			h.jsonError(w, "Message not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "Failed to load message", "error", err, "message_id", messageID)
		h.jsonError(w, "Failed to load message", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toResponse(view, false))
}

func (h *MessageHandler) handleRefreshStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	messageID := chi.URLParam(r, "messageID")
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx), "message_id", messageID)

	view, err := h.tracker.RefreshStatus(ctx, messageID)
	if err != nil {
		if errors.Is(err, eventstore.ErrMessageNotFound) {
			h.jsonError(w, "Message not found", http.StatusNotFound)
			return
		}
		logger.ErrorContext(ctx, "Failed to refresh message status", "error", err)
		h.jsonError(w, "Failed to refresh message status", http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusOK, toResponse(view, false))
}

func toResponse(view *app.MessageView, includeBody bool) MessageResponse {
	resp := MessageResponse{
		ID:                view.ID,
		Channel:           string(view.Channel),
		Sender:            view.Sender,
		Destination:       view.Destination,
		ProviderReference: view.ProviderReference,
		Status:            view.Status.String(),
		Version:           view.Version,
	}
	if includeBody {
		resp.Body = view.Body
	}
	return resp
}

func (h *MessageHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *MessageHandler) jsonError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, errorResponse{Error: message})
}
