package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// QueueHandler serves the operator queue: next-form selection and the
// submit/comment/skip transitions.
type QueueHandler struct {
	svc    FormService
	logger *slog.Logger
}

// NewQueueHandler creates a queue handler backed by the given service.
func NewQueueHandler(svc FormService, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

// Next returns the next eligible pending form, or a null form when the
// queue is empty.
func (h *QueueHandler) Next(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.NextPending(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if form == nil {
		writeJSON(w, http.StatusOK, map[string]any{"form": nil, "message": "No pending forms"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"form": form})
}

// Pending returns the full operator queue in selection order, for
// navigation and queue-position display.
func (h *QueueHandler) Pending(w http.ResponseWriter, r *http.Request) {
	forms, err := h.svc.PendingForms(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"forms": forms, "total": len(forms)})
}

// Submit handles a structured form submission.
func (h *QueueHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Response any `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	form, err := h.svc.Submit(r.Context(), chi.URLParam(r, "id"), body.Response)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "form": form})
}

// Comment handles a quick free-text response.
func (h *QueueHandler) Comment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	form, err := h.svc.QuickComment(r.Context(), chi.URLParam(r, "id"), body.Comment)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "form": form})
}

// Skip marks a pending form as skipped.
func (h *QueueHandler) Skip(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.Skip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "form": form})
}
