package tools

import (
	"fmt"
	"strings"

	"github.com/promptliano/mcpd/internal/mcperr"
)

// FormatError converts a domain error into the MCP tool-result shape: a
// single text content block with isError: true (spec §4.1). Formatting is
// idempotent — de is already the normalized domain value, so calling
// FormatError twice on errors produced from the same de.Error() string
// yields the same text every time; there is no additional wrapping layer
// that could accumulate on repeat calls.
func FormatError(de *mcperr.Error) *CallResult {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Error (%s): %s", de.Code, de.Message))

	if de.Context != "" {
		b.WriteString(fmt.Sprintf("\nContext: %s", de.Context))
	}

	for _, fe := range de.ValidationErrors {
		b.WriteString(fmt.Sprintf("\n  - %s: %s", fe.Field, fe.Message))
	}

	if len(de.RelatedResources) > 0 {
		b.WriteString("\nRelated: ")
		b.WriteString(strings.Join(de.RelatedResources, ", "))
	}

	if de.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\nSuggestion: %s", de.Suggestion))
	}

	res := TextResult(b.String())
	res.IsError = true
	return res
}
