// Package handler provides the HTTP handlers for the Neat API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sevigo/neat/internal/core"
	"github.com/sevigo/neat/internal/schema"
)

// FormService is the part of the queue service the HTTP layer depends on.
type FormService interface {
	NextPending(ctx context.Context) (*core.Form, error)
	PendingForms(ctx context.Context) ([]*core.Form, error)
	Submit(ctx context.Context, id string, response any) (*core.Form, error)
	QuickComment(ctx context.Context, id, comment string) (*core.Form, error)
	Skip(ctx context.Context, id string) (*core.Form, error)
	Unskip(ctx context.Context, id string) (*core.Form, error)
	CompleteByCardNumber(ctx context.Context, cardNumber int) (*core.Form, error)

	CreateForm(ctx context.Context, form *core.Form) (*core.Form, error)
	GetForm(ctx context.Context, id string) (*core.Form, error)
	GetFormByCardID(ctx context.Context, cardID string) (*core.Form, error)
	ListForms(ctx context.Context, status *core.FormStatus) ([]*core.Form, error)
	UpdateForm(ctx context.Context, form *core.Form) (*core.Form, error)
	DeleteForm(ctx context.Context, id string) error
}

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

// writeError maps a transition error onto the HTTP taxonomy: input and guard
// failures are 400, unknown ids 404, lost races 409, blocking ticketing
// failures 500, anything unclassified a generic 500 with no internals leaked.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var vErr *schema.ValidationError
	var inErr *core.InputError
	var tErr *core.TicketingError

	switch {
	case errors.As(err, &vErr):
		writeMessage(w, http.StatusBadRequest, vErr.Error())
	case errors.As(err, &inErr):
		writeMessage(w, http.StatusBadRequest, inErr.Error())
	case errors.Is(err, core.ErrAlreadyProcessed):
		writeMessage(w, http.StatusBadRequest, "Form already processed")
	case errors.Is(err, core.ErrNotSkipped):
		writeMessage(w, http.StatusBadRequest, "Form is not skipped")
	case errors.Is(err, core.ErrFormNotFound):
		writeMessage(w, http.StatusNotFound, "Form not found")
	case errors.Is(err, core.ErrConflict):
		writeMessage(w, http.StatusConflict, "Form was already processed by another request")
	case errors.As(err, &tErr):
		logger.Error("blocking ticketing dispatch failed", "op", tErr.Op, "error", tErr.Err)
		writeMessage(w, http.StatusInternalServerError, "Failed to post comment to ticketing system")
	default:
		logger.Error("unhandled error in request", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
