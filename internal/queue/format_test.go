package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFieldLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"name", "Name"},
		{"deployWindow", "Deploy Window"},
		{"preferredDeployWindow", "Preferred Deploy Window"},
		{"a", "A"},
		{"alreadyCapitalizedX", "Already Capitalized X"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, fieldLabel(tt.in))
	}
}

func TestFormatResponseComment(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	body := formatResponseComment(map[string]any{
		"deployWindow": "saturday",
		"approved":     true,
	}, now)

	assert.Contains(t, body, "**Response via Neat**")
	assert.Contains(t, body, "**Deploy Window:** saturday")
	assert.Contains(t, body, "**Approved:** true")
	assert.Contains(t, body, "*Submitted 2025-03-14 15:09 via Neat*")
}

func TestFormatQuickComment(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 0, 0, time.UTC)
	body := formatQuickComment("done, closing this out", now)

	assert.Contains(t, body, "**Quick Response via Neat**")
	assert.Contains(t, body, "done, closing this out")
	assert.Contains(t, body, "*Submitted 2025-03-14 15:09 via Neat*")
}
