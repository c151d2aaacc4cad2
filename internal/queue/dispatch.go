package queue

import (
	"context"
	"log/slog"

	"github.com/sevigo/neat/internal/core"
	"github.com/sevigo/neat/internal/fizzy"
)

// ticketingDispatcher performs the Fizzy side effects of a completed form.
//
// It deliberately exposes two entry points with different failure contracts.
// A structured submission's record of truth is the Fizzy card, so its comment
// post must succeed before the form may complete locally. A quick comment
// favors operator throughput: the local completion proceeds even when Fizzy
// is unreachable. The configured follow-up action (close/move) is best-effort
// on both paths.
type ticketingDispatcher struct {
	client fizzy.Client
	logger *slog.Logger
}

func newTicketingDispatcher(client fizzy.Client, logger *slog.Logger) *ticketingDispatcher {
	return &ticketingDispatcher{client: client, logger: logger}
}

// DispatchSubmission posts the rendered response comment, failing the whole
// submission if the post fails. On success the follow-up action runs
// best-effort.
func (d *ticketingDispatcher) DispatchSubmission(ctx context.Context, form *core.Form, commentBody string) error {
	if _, err := d.client.AddComment(ctx, form.FizzyCardNumber, commentBody); err != nil {
		return &core.TicketingError{Op: "comment", Err: err}
	}
	d.runAction(ctx, form)
	return nil
}

// DispatchComment posts a quick-comment body best-effort: failures are logged
// and swallowed so the caller's local completion can proceed.
func (d *ticketingDispatcher) DispatchComment(ctx context.Context, form *core.Form, commentBody string) {
	if _, err := d.client.AddComment(ctx, form.FizzyCardNumber, commentBody); err != nil {
		d.logger.Error("failed to post quick comment to fizzy card",
			"card", form.FizzyCardNumber,
			"form", form.ID,
			"error", err,
		)
	}
	d.runAction(ctx, form)
}

// runAction applies the form's configured on-submit action. Failures never
// block or roll back the completion.
func (d *ticketingDispatcher) runAction(ctx context.Context, form *core.Form) {
	switch form.OnSubmit {
	case core.ActionClose:
		if err := d.client.CloseCard(ctx, form.FizzyCardNumber); err != nil {
			d.logger.Error("failed to close fizzy card", "card", form.FizzyCardNumber, "form", form.ID, "error", err)
		}
	case core.ActionMove:
		if form.TargetColumn == "" {
			d.logger.Warn("form has move action but no target column", "form", form.ID)
			return
		}
		if err := d.client.MoveCard(ctx, form.FizzyCardNumber, form.TargetColumn); err != nil {
			d.logger.Error("failed to move fizzy card", "card", form.FizzyCardNumber, "form", form.ID, "error", err)
		}
	}
}
