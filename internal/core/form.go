// Package core defines the essential data structures and error taxonomy that
// form the backbone of the application. These components are deliberately free
// of transport and storage concerns so that every layer can depend on them.
package core

import (
	"time"

	"github.com/sevigo/neat/internal/schema"
)

// FormStatus tracks a form through its lifecycle. A form starts pending,
// becomes completed (terminal) or skipped, and a skipped form can be restored
// to pending. No transition leaves completed.
type FormStatus string

const (
	StatusPending   FormStatus = "pending"
	StatusCompleted FormStatus = "completed"
	StatusSkipped   FormStatus = "skipped"
)

// OnSubmitAction configures the follow-up effect on the Fizzy card once a
// form is completed.
type OnSubmitAction string

const (
	ActionComment OnSubmitAction = "comment"
	ActionClose   OnSubmitAction = "close"
	ActionMove    OnSubmitAction = "move"
)

// Reference is a supporting link shown alongside a form.
type Reference struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Type  string `json:"type,omitempty"`
}

// Form is one unit of work: a card-derived request for human input, with a
// schema describing the expected response.
type Form struct {
	ID string `json:"id" db:"id"`

	// Identity in Fizzy. CardNumber is the join key used by webhook-driven
	// completion, since Fizzy does not know our internal ids.
	FizzyCardID     string `json:"fizzyCardId" db:"fizzy_card_id"`
	FizzyCardNumber int    `json:"fizzyCardNumber" db:"fizzy_card_number"`
	FizzyBoardID    string `json:"fizzyBoardId,omitempty" db:"fizzy_board_id"`

	Title      string      `json:"title" db:"title"`
	Summary    string      `json:"summary,omitempty" db:"summary"`
	References []Reference `json:"references,omitempty" db:"refs"`

	Schema   schema.Schema  `json:"schema" db:"schema"`
	UISchema map[string]any `json:"uiSchema,omitempty" db:"ui_schema"`

	OnSubmit     OnSubmitAction `json:"onSubmit" db:"on_submit"`
	TargetColumn string         `json:"targetColumn,omitempty" db:"target_column"`

	Status   FormStatus     `json:"status" db:"status"`
	Response map[string]any `json:"response,omitempty" db:"response"`

	Priority int    `json:"priority" db:"priority"`
	IsTest   bool   `json:"isTest" db:"is_test"`
	Context  string `json:"context,omitempty" db:"context"`

	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
}
