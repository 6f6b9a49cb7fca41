package tools

import (
	"fmt"

	"github.com/promptliano/mcpd/internal/mcperr"
)

// Args wraps one tool invocation's argument map, giving handlers a uniform
// way to pull the action discriminant, top-level id fields, and the nested
// "data" payload while producing spec-shaped validation errors (field name,
// expected type, example value) on any miss.
type Args struct {
	action string
	raw    map[string]any
	data   map[string]any
}

// NewArgs parses the {action, <id-fields>?, data?} envelope every built-in
// tool's input follows (spec §4.2).
func NewArgs(raw map[string]any) (*Args, error) {
	action, _ := raw["action"].(string)
	if action == "" {
		return nil, mcperr.New(mcperr.CodeValidation, "missing required field \"action\"").
			WithSuggestion("include an \"action\" string, e.g. \"list\"")
	}
	data, _ := raw["data"].(map[string]any)
	return &Args{action: action, raw: raw, data: data}, nil
}

// Action returns the parsed action string.
func (a *Args) Action() string { return a.action }

// RequireAction checks that a.Action() is one of allowed, returning
// CodeUnsupported with the tool's legal action list otherwise.
func (a *Args) RequireAction(tool string, allowed ...string) error {
	for _, act := range allowed {
		if act == a.action {
			return nil
		}
	}
	return mcperr.New(mcperr.CodeUnsupported, fmt.Sprintf("unknown action %q for tool %q", a.action, tool)).
		WithSuggestion(fmt.Sprintf("use one of: %v", allowed))
}

// topInt64 extracts a required top-level numeric id field (e.g. projectId).
func (a *Args) topInt64(field string) (int64, error) {
	v, ok := a.raw[field]
	if !ok {
		return 0, missingField(a.action, field, "number", "42")
	}
	return toInt64(v, a.action, field)
}

// RequireProjectID extracts the required top-level projectId.
func (a *Args) RequireProjectID() (int64, error) { return a.topInt64("projectId") }

// RequireTicketID extracts the required top-level ticketId.
func (a *Args) RequireTicketID() (int64, error) { return a.topInt64("ticketId") }

// RequireTaskID extracts the required top-level taskId.
func (a *Args) RequireTaskID() (int64, error) { return a.topInt64("taskId") }

// RequireQueueID extracts the required top-level queueId.
func (a *Args) RequireQueueID() (int64, error) { return a.topInt64("queueId") }

// OptionalInt64 returns a top-level numeric field if present, else ok=false.
func (a *Args) OptionalInt64(field string) (int64, bool) {
	v, ok := a.raw[field]
	if !ok {
		return 0, false
	}
	n, err := toInt64(v, a.action, field)
	if err != nil {
		return 0, false
	}
	return n, true
}

// RequireDataString extracts a required string field from the data payload.
func (a *Args) RequireDataString(field, example string) (string, error) {
	if a.data == nil {
		return "", missingField(a.action, field, "string", example)
	}
	v, ok := a.data[field]
	if !ok {
		return "", missingField(a.action, field, "string", example)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", missingField(a.action, field, "string", example)
	}
	return s, nil
}

// OptionalDataString returns a data-payload string field if present.
func (a *Args) OptionalDataString(field string) (string, bool) {
	if a.data == nil {
		return "", false
	}
	s, ok := a.data[field].(string)
	return s, ok
}

// RequireDataInt64 extracts a required numeric field from the data payload.
func (a *Args) RequireDataInt64(field string, example string) (int64, error) {
	if a.data == nil {
		return 0, missingField(a.action, field, "number", example)
	}
	v, ok := a.data[field]
	if !ok {
		return 0, missingField(a.action, field, "number", example)
	}
	return toInt64(v, a.action, field)
}

// OptionalDataInt64 returns a data-payload numeric field if present.
func (a *Args) OptionalDataInt64(field string) (int64, bool) {
	if a.data == nil {
		return 0, false
	}
	v, ok := a.data[field]
	if !ok {
		return 0, false
	}
	n, err := toInt64(v, a.action, field)
	return n, err == nil
}

// DataObject returns the parsed data payload, or an empty map if absent.
func (a *Args) DataObject() map[string]any {
	if a.data == nil {
		return map[string]any{}
	}
	return a.data
}

// RequireData ensures a data object is present at all (some actions need no
// individual fields but still require a non-nil payload, e.g. batch arrays
// nested under "data.items").
func (a *Args) RequireData() (map[string]any, error) {
	if a.data == nil {
		return nil, missingField(a.action, "data", "object", `{"...": "..."}`)
	}
	return a.data, nil
}

// RequireDataArray extracts a required array field from the data payload,
// used by batch_* actions for their item list.
func (a *Args) RequireDataArray(field string) ([]any, error) {
	if a.data == nil {
		return nil, missingField(a.action, field, "array", "[{...}]")
	}
	v, ok := a.data[field]
	if !ok {
		return nil, missingField(a.action, field, "array", "[{...}]")
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, missingField(a.action, field, "array", "[{...}]")
	}
	return arr, nil
}

func toInt64(v any, action, field string) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, missingField(action, field, "number", "42")
	}
}

func missingField(action, field, typ, example string) *mcperr.Error {
	return mcperr.New(mcperr.CodeValidation,
		fmt.Sprintf("missing or invalid required field %q (expected %s, e.g. %s) for action %q", field, typ, example, action)).
		WithSuggestion(fmt.Sprintf("include %q as a %s in the request, e.g. %s", field, typ, example)).
		WithValidationErrors(mcperr.FieldError{Field: field, Message: fmt.Sprintf("expected %s", typ)})
}
