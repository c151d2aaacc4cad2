// Package storage persists form records in Postgres. The queue itself is
// never materialized here: "the queue" is always a derived, recomputed view
// over the forms table, so concurrent mutations are visible on the next read.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/neat/internal/core"
)

// Store defines the interface for all form persistence operations.
//
// The conditional methods (CompleteIfPending, SetStatusIf) return (nil, nil)
// when the condition did not match any row; callers translate that into the
// appropriate guard or conflict error.
type Store interface {
	CreateForm(ctx context.Context, form *core.Form) error
	GetForm(ctx context.Context, id string) (*core.Form, error)
	GetFormByCardID(ctx context.Context, cardID string) (*core.Form, error)
	ListForms(ctx context.Context, status *core.FormStatus) ([]*core.Form, error)
	UpdateForm(ctx context.Context, form *core.Form) (*core.Form, error)
	DeleteForm(ctx context.Context, id string) error

	// NextPending returns the head of the operator queue: the pending,
	// non-test form with the highest priority, oldest first on ties.
	// Returns (nil, nil) when the queue is empty.
	NextPending(ctx context.Context) (*core.Form, error)

	// ListPending returns all pending non-test forms in queue order. The
	// sequence is consistent with repeated NextPending selection.
	ListPending(ctx context.Context) ([]*core.Form, error)

	// CompleteIfPending atomically marks a form completed with the given
	// response, only if its status is still pending. The pending check is
	// embedded in the UPDATE condition, making this the at-most-once guard
	// for concurrent submissions.
	CompleteIfPending(ctx context.Context, id string, response map[string]any) (*core.Form, error)

	// SetStatusIf flips a form from one status to another in a single
	// conditional UPDATE, used by skip and unskip.
	SetStatusIf(ctx context.Context, id string, from, to core.FormStatus) (*core.Form, error)

	// CompleteByCardNumber force-completes the form matching a Fizzy card
	// number regardless of its current status. This mirrors the webhook
	// semantics: Fizzy already closed the card, the local record follows.
	CompleteByCardNumber(ctx context.Context, cardNumber int) (*core.Form, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a Postgres-backed Store.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

const formColumns = `id, fizzy_card_id, fizzy_card_number, fizzy_board_id, title, summary,
	refs, schema, ui_schema, on_submit, target_column, status, response,
	priority, is_test, context, created_at, updated_at, completed_at`

// formRow is the scan target for the forms table. JSON columns are kept as
// raw bytes and decoded in toForm.
type formRow struct {
	ID              string         `db:"id"`
	FizzyCardID     string         `db:"fizzy_card_id"`
	FizzyCardNumber int            `db:"fizzy_card_number"`
	FizzyBoardID    sql.NullString `db:"fizzy_board_id"`
	Title           string         `db:"title"`
	Summary         sql.NullString `db:"summary"`
	References      []byte         `db:"refs"`
	Schema          []byte         `db:"schema"`
	UISchema        []byte         `db:"ui_schema"`
	OnSubmit        string         `db:"on_submit"`
	TargetColumn    sql.NullString `db:"target_column"`
	Status          string         `db:"status"`
	Response        []byte         `db:"response"`
	Priority        int            `db:"priority"`
	IsTest          bool           `db:"is_test"`
	Context         sql.NullString `db:"context"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
	CompletedAt     sql.NullTime   `db:"completed_at"`
}

func (r *formRow) toForm() (*core.Form, error) {
	form := &core.Form{
		ID:              r.ID,
		FizzyCardID:     r.FizzyCardID,
		FizzyCardNumber: r.FizzyCardNumber,
		FizzyBoardID:    r.FizzyBoardID.String,
		Title:           r.Title,
		Summary:         r.Summary.String,
		OnSubmit:        core.OnSubmitAction(r.OnSubmit),
		TargetColumn:    r.TargetColumn.String,
		Status:          core.FormStatus(r.Status),
		Priority:        r.Priority,
		IsTest:          r.IsTest,
		Context:         r.Context.String,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		form.CompletedAt = &t
	}
	if len(r.Schema) > 0 {
		if err := json.Unmarshal(r.Schema, &form.Schema); err != nil {
			return nil, fmt.Errorf("failed to decode schema for form %s: %w", r.ID, err)
		}
	}
	if len(r.UISchema) > 0 {
		if err := json.Unmarshal(r.UISchema, &form.UISchema); err != nil {
			return nil, fmt.Errorf("failed to decode ui schema for form %s: %w", r.ID, err)
		}
	}
	if len(r.References) > 0 {
		if err := json.Unmarshal(r.References, &form.References); err != nil {
			return nil, fmt.Errorf("failed to decode references for form %s: %w", r.ID, err)
		}
	}
	if len(r.Response) > 0 {
		if err := json.Unmarshal(r.Response, &form.Response); err != nil {
			return nil, fmt.Errorf("failed to decode response for form %s: %w", r.ID, err)
		}
	}
	return form, nil
}

func marshalNullable(v any, isNil bool) ([]byte, error) {
	if isNil {
		return nil, nil
	}
	return json.Marshal(v)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *postgresStore) CreateForm(ctx context.Context, form *core.Form) error {
	schemaJSON, err := json.Marshal(form.Schema)
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	uiJSON, err := marshalNullable(form.UISchema, form.UISchema == nil)
	if err != nil {
		return fmt.Errorf("failed to encode ui schema: %w", err)
	}
	refsJSON, err := marshalNullable(form.References, form.References == nil)
	if err != nil {
		return fmt.Errorf("failed to encode references: %w", err)
	}
	respJSON, err := marshalNullable(form.Response, form.Response == nil)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	query := `INSERT INTO forms (` + formColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err = s.db.ExecContext(ctx, query,
		form.ID, form.FizzyCardID, form.FizzyCardNumber, nullString(form.FizzyBoardID),
		form.Title, nullString(form.Summary), refsJSON, schemaJSON, uiJSON,
		string(form.OnSubmit), nullString(form.TargetColumn), string(form.Status), respJSON,
		form.Priority, form.IsTest, nullString(form.Context),
		form.CreatedAt, form.UpdatedAt, form.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert form: %w", err)
	}
	return nil
}

func (s *postgresStore) getOne(ctx context.Context, query string, args ...any) (*core.Form, error) {
	var row formRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrFormNotFound
		}
		return nil, err
	}
	return row.toForm()
}

func (s *postgresStore) GetForm(ctx context.Context, id string) (*core.Form, error) {
	return s.getOne(ctx, `SELECT `+formColumns+` FROM forms WHERE id = $1`, id)
}

func (s *postgresStore) GetFormByCardID(ctx context.Context, cardID string) (*core.Form, error) {
	return s.getOne(ctx, `SELECT `+formColumns+` FROM forms WHERE fizzy_card_id = $1`, cardID)
}

func (s *postgresStore) list(ctx context.Context, query string, args ...any) ([]*core.Form, error) {
	var rows []formRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	forms := make([]*core.Form, 0, len(rows))
	for i := range rows {
		form, err := rows[i].toForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, nil
}

func (s *postgresStore) ListForms(ctx context.Context, status *core.FormStatus) ([]*core.Form, error) {
	if status != nil {
		query := `SELECT ` + formColumns + ` FROM forms WHERE status = $1 ORDER BY created_at ASC`
		return s.list(ctx, query, string(*status))
	}
	return s.list(ctx, `SELECT `+formColumns+` FROM forms ORDER BY created_at ASC`)
}

func (s *postgresStore) UpdateForm(ctx context.Context, form *core.Form) (*core.Form, error) {
	schemaJSON, err := json.Marshal(form.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	uiJSON, err := marshalNullable(form.UISchema, form.UISchema == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ui schema: %w", err)
	}
	refsJSON, err := marshalNullable(form.References, form.References == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode references: %w", err)
	}
	respJSON, err := marshalNullable(form.Response, form.Response == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}

	query := `UPDATE forms SET
			fizzy_card_id = $2, fizzy_card_number = $3, fizzy_board_id = $4,
			title = $5, summary = $6, refs = $7, schema = $8, ui_schema = $9,
			on_submit = $10, target_column = $11, status = $12, response = $13,
			priority = $14, is_test = $15, context = $16,
			completed_at = $17, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + formColumns
	return s.returningOne(ctx, query,
		form.ID, form.FizzyCardID, form.FizzyCardNumber, nullString(form.FizzyBoardID),
		form.Title, nullString(form.Summary), refsJSON, schemaJSON, uiJSON,
		string(form.OnSubmit), nullString(form.TargetColumn), string(form.Status), respJSON,
		form.Priority, form.IsTest, nullString(form.Context), form.CompletedAt,
	)
}

func (s *postgresStore) DeleteForm(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM forms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrFormNotFound
	}
	return nil
}

func (s *postgresStore) NextPending(ctx context.Context) (*core.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms
		WHERE status = 'pending' AND is_test = false
		ORDER BY priority DESC, created_at ASC
		LIMIT 1`
	form, err := s.getOne(ctx, query)
	if errors.Is(err, core.ErrFormNotFound) {
		return nil, nil
	}
	return form, err
}

func (s *postgresStore) ListPending(ctx context.Context) ([]*core.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms
		WHERE status = 'pending' AND is_test = false
		ORDER BY priority DESC, created_at ASC`
	return s.list(ctx, query)
}

// returningOne scans a RETURNING row; (nil, nil) when no row matched.
func (s *postgresStore) returningOne(ctx context.Context, query string, args ...any) (*core.Form, error) {
	var row formRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toForm()
}

func (s *postgresStore) CompleteIfPending(ctx context.Context, id string, response map[string]any) (*core.Form, error) {
	respJSON, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}

	// The status='pending' condition is what makes concurrent submissions
	// at-most-once: exactly one UPDATE matches, the rest see zero rows.
	query := `UPDATE forms
		SET status = 'completed', response = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + formColumns
	return s.returningOne(ctx, query, id, respJSON)
}

func (s *postgresStore) SetStatusIf(ctx context.Context, id string, from, to core.FormStatus) (*core.Form, error) {
	query := `UPDATE forms
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + formColumns
	return s.returningOne(ctx, query, id, string(from), string(to))
}

func (s *postgresStore) CompleteByCardNumber(ctx context.Context, cardNumber int) (*core.Form, error) {
	query := `UPDATE forms
		SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE fizzy_card_number = $1
		RETURNING ` + formColumns
	return s.returningOne(ctx, query, cardNumber)
}
