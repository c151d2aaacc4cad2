package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// signatureHeader carries the hex-encoded HMAC-SHA256 of the raw body.
const signatureHeader = "x-webhook-signature"

// webhookPayload is the Fizzy event envelope. Only card events carry an
// eventable with a card number.
type webhookPayload struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	CreatedAt string `json:"created_at"`
	Eventable struct {
		ID     string `json:"id"`
		Number int    `json:"number"`
		Title  string `json:"title"`
		Closed bool   `json:"closed"`
	} `json:"eventable"`
	Board struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"board"`
	Creator struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"creator"`
}

// WebhookHandler processes signed event callbacks from Fizzy. A card_closed
// event force-completes the matching form; everything else is acknowledged
// and ignored.
type WebhookHandler struct {
	secret string
	svc    FormService
	logger *slog.Logger
}

// NewWebhookHandler creates a webhook handler verifying signatures with the
// shared secret.
func NewWebhookHandler(secret string, svc FormService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{secret: secret, svc: svc, logger: logger}
}

// verifySignature checks the hex HMAC-SHA256 of the payload in constant time.
func verifySignature(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Handle verifies and dispatches one webhook request.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		h.logger.Error("webhook secret not configured")
		writeMessage(w, http.StatusInternalServerError, "Webhook not configured")
		return
	}

	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		h.logger.Warn("webhook request without signature header")
		writeMessage(w, http.StatusUnauthorized, "Missing signature")
		return
	}

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if !verifySignature(rawBody, signature, h.secret) {
		h.logger.Warn("webhook signature mismatch")
		writeMessage(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		h.logger.Error("webhook payload is not valid JSON", "error", err)
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.logger.Info("webhook event received", "action", payload.Action, "card", payload.Eventable.Number)

	if payload.Action == "card_closed" && payload.Eventable.Number != 0 {
		h.handleCardClosed(w, r, &payload)
		return
	}

	// Acknowledge other events without processing, echoing the action for
	// observability.
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"action":      "ignored",
		"eventAction": payload.Action,
	})
}

// handleCardClosed force-completes the form linked to a closed card. Fizzy
// already closed the card, so no ticketing side effects run here.
func (h *WebhookHandler) handleCardClosed(w http.ResponseWriter, r *http.Request, payload *webhookPayload) {
	cardNumber := payload.Eventable.Number

	form, err := h.svc.CompleteByCardNumber(r.Context(), cardNumber)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if form == nil {
		h.logger.Info("no form matches closed card", "card", cardNumber)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"action":     "no_form_found",
			"cardNumber": cardNumber,
		})
		return
	}

	h.logger.Info("form auto-closed by webhook",
		"form", form.ID,
		"card", cardNumber,
		"closed_by", payload.Creator.Name,
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"action":     "form_closed",
		"formId":     form.ID,
		"cardNumber": cardNumber,
	})
}
