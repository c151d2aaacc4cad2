package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/neat/internal/core"
)

// FormsHandler serves the administrative CRUD surface for forms, plus the
// unskip transition and card-id lookup.
type FormsHandler struct {
	svc    FormService
	logger *slog.Logger
}

// NewFormsHandler creates a forms handler backed by the given service.
func NewFormsHandler(svc FormService, logger *slog.Logger) *FormsHandler {
	return &FormsHandler{svc: svc, logger: logger}
}

// List returns all forms, optionally filtered by status, oldest first.
// Unlike the queue endpoints, test forms are visible here.
func (h *FormsHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *core.FormStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := core.FormStatus(raw)
		status = &s
	}

	forms, err := h.svc.ListForms(r.Context(), status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, forms)
}

// Create persists a new form and returns it with id and defaults assigned.
func (h *FormsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form core.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	created, err := h.svc.CreateForm(r.Context(), &form)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get returns a single form by id.
func (h *FormsHandler) Get(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.GetForm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// GetByCard returns the form linked to a Fizzy card id.
func (h *FormsHandler) GetByCard(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.GetFormByCardID(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// Update applies a partial update: the request body is decoded over the
// current record, so absent fields keep their values.
func (h *FormsHandler) Update(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.GetForm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	id := form.ID
	if err := json.NewDecoder(r.Body).Decode(form); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	form.ID = id

	updated, err := h.svc.UpdateForm(r.Context(), form)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a form.
func (h *FormsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteForm(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Unskip restores a skipped form to pending.
func (h *FormsHandler) Unskip(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.Unskip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "form": form})
}
