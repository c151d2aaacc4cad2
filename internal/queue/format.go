package queue

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
)

// formatResponseComment renders a structured response as a readable card
// comment: one "**Label:** value" line per field, with a submission trailer.
func formatResponseComment(response map[string]any, now time.Time) string {
	lines := []string{"📋 **Response via Neat**", ""}

	keys := make([]string, 0, len(response))
	for key := range response {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("**%s:** %v", fieldLabel(key), response[key]))
	}

	lines = append(lines, "", "---", submittedTrailer(now))
	return strings.Join(lines, "\n")
}

// formatQuickComment renders a free-text quick response as a card comment.
func formatQuickComment(comment string, now time.Time) string {
	lines := []string{
		"💬 **Quick Response via Neat**",
		"",
		comment,
		"",
		"---",
		submittedTrailer(now),
	}
	return strings.Join(lines, "\n")
}

// submittedTrailer renders the minute-precision submission note.
func submittedTrailer(now time.Time) string {
	return fmt.Sprintf("*Submitted %s via Neat*", now.UTC().Format("2006-01-02 15:04"))
}

// fieldLabel converts a camelCase field name into a display label:
// "deployWindow" becomes "Deploy Window".
func fieldLabel(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
