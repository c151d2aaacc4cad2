// Package queue implements the operator queue: priority-ordered selection of
// pending forms and the submission state machine that moves them through
// their lifecycle.
//
// There is no in-memory queue object. "The queue" is always a recomputed view
// over the store, so concurrent submissions and webhook completions are
// visible on the next read. The one place concurrency matters — two requests
// completing the same pending form — is guarded by the store's conditional
// update, never by caching or locking here.
package queue

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/neat/internal/core"
	"github.com/sevigo/neat/internal/fizzy"
	"github.com/sevigo/neat/internal/storage"
)

// maxCommentLength bounds quick-comment submissions.
const maxCommentLength = 10000

// Service owns queue selection and all form status transitions.
type Service struct {
	store      storage.Store
	dispatcher *ticketingDispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates the queue service on top of the form store and the
// Fizzy client.
func NewService(store storage.Store, client fizzy.Client, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		dispatcher: newTicketingDispatcher(client, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// NextPending returns the next form the operator should work on: pending,
// not a test form, highest priority first, oldest first on ties. Returns
// (nil, nil) when the queue is empty. The result is recomputed on every call.
func (s *Service) NextPending(ctx context.Context) (*core.Form, error) {
	return s.store.NextPending(ctx)
}

// PendingForms returns the whole operator queue in selection order, used to
// show queue position and navigation.
func (s *Service) PendingForms(ctx context.Context) ([]*core.Form, error) {
	return s.store.ListPending(ctx)
}

// Submit validates a structured response against the form's schema and
// completes the form.
//
// The Fizzy comment post is blocking: if it fails, the submission fails and
// the form stays pending, because the card is the audit record for a
// structured decision. The local completion itself is a conditional update;
// losing that race yields core.ErrConflict.
func (s *Service) Submit(ctx context.Context, id string, response any) (*core.Form, error) {
	if response == nil {
		return nil, core.NewInputError("Response data is required")
	}
	obj, ok := response.(map[string]any)
	if !ok {
		return nil, core.NewInputError("Response must be an object")
	}

	form, err := s.store.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if form.Status != core.StatusPending {
		return nil, core.ErrAlreadyProcessed
	}

	if err := form.Schema.Validate(obj); err != nil {
		return nil, err
	}

	commentBody := formatResponseComment(obj, s.now())
	if err := s.dispatcher.DispatchSubmission(ctx, form, commentBody); err != nil {
		return nil, err
	}

	updated, err := s.store.CompleteIfPending(ctx, id, obj)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, core.ErrConflict
	}

	s.logger.Info("form submitted", "form", updated.ID, "card", updated.FizzyCardNumber)
	return updated, nil
}

// QuickComment completes a pending form with a free-text response, bypassing
// schema validation. The Fizzy post is best-effort: a failure is logged and
// the local completion proceeds.
func (s *Service) QuickComment(ctx context.Context, id, comment string) (*core.Form, error) {
	if comment == "" {
		return nil, core.NewInputError("Comment is required")
	}
	trimmed := strings.TrimSpace(comment)
	if trimmed == "" {
		return nil, core.NewInputError("Comment cannot be empty")
	}
	if len(trimmed) > maxCommentLength {
		return nil, core.NewInputError("Comment is too long (max 10000 characters)")
	}

	form, err := s.store.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if form.Status != core.StatusPending {
		return nil, core.ErrAlreadyProcessed
	}

	s.dispatcher.DispatchComment(ctx, form, formatQuickComment(trimmed, s.now()))

	updated, err := s.store.CompleteIfPending(ctx, id, map[string]any{"_comment": trimmed})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, core.ErrConflict
	}

	s.logger.Info("form completed via quick comment", "form", updated.ID, "card", updated.FizzyCardNumber)
	return updated, nil
}

// Skip marks a pending form as skipped. The transition is reversible via
// Unskip and triggers no Fizzy side effects.
func (s *Service) Skip(ctx context.Context, id string) (*core.Form, error) {
	form, err := s.store.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if form.Status != core.StatusPending {
		return nil, core.ErrAlreadyProcessed
	}

	updated, err := s.store.SetStatusIf(ctx, id, core.StatusPending, core.StatusSkipped)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Status changed between the read and the conditional write.
		return nil, core.ErrAlreadyProcessed
	}
	return updated, nil
}

// Unskip restores a skipped form to pending.
func (s *Service) Unskip(ctx context.Context, id string) (*core.Form, error) {
	form, err := s.store.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if form.Status != core.StatusSkipped {
		return nil, core.ErrNotSkipped
	}

	updated, err := s.store.SetStatusIf(ctx, id, core.StatusSkipped, core.StatusPending)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, core.ErrNotSkipped
	}
	return updated, nil
}

// CompleteByCardNumber force-completes the form matching a Fizzy card number,
// regardless of its current status. This is the webhook path: Fizzy already
// closed the card, so no further ticketing side effects run. Returns
// (nil, nil) when no form matches the card number.
//
// TODO: decide whether skipped/completed forms should be exempt from the
// forced overwrite; today the card-closed event always wins.
func (s *Service) CompleteByCardNumber(ctx context.Context, cardNumber int) (*core.Form, error) {
	return s.store.CompleteByCardNumber(ctx, cardNumber)
}

// CreateForm persists a new form, assigning identity and defaults.
func (s *Service) CreateForm(ctx context.Context, form *core.Form) (*core.Form, error) {
	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	if form.Status == "" {
		form.Status = core.StatusPending
	}
	if form.OnSubmit == "" {
		form.OnSubmit = core.ActionComment
	}
	now := s.now()
	form.CreatedAt = now
	form.UpdatedAt = now

	if err := s.store.CreateForm(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

// GetForm fetches one form by id.
func (s *Service) GetForm(ctx context.Context, id string) (*core.Form, error) {
	return s.store.GetForm(ctx, id)
}

// GetFormByCardID fetches one form by its Fizzy card id.
func (s *Service) GetFormByCardID(ctx context.Context, cardID string) (*core.Form, error) {
	return s.store.GetFormByCardID(ctx, cardID)
}

// ListForms lists forms, optionally filtered by status, oldest first. Test
// forms are included here; only queue selection excludes them.
func (s *Service) ListForms(ctx context.Context, status *core.FormStatus) ([]*core.Form, error) {
	return s.store.ListForms(ctx, status)
}

// UpdateForm applies an administrative update to a form.
func (s *Service) UpdateForm(ctx context.Context, form *core.Form) (*core.Form, error) {
	updated, err := s.store.UpdateForm(ctx, form)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, core.ErrFormNotFound
	}
	return updated, nil
}

// DeleteForm removes a form. This is an administrative operation; the state
// machine itself never deletes records.
func (s *Service) DeleteForm(ctx context.Context, id string) error {
	return s.store.DeleteForm(ctx, id)
}
