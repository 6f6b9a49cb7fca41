// Package mcperr implements the single domain error kind used across the
// tool dispatch, queue, session, and resource layers. Every domain failure —
// as opposed to a JSON-RPC wire-level failure handled by the router — takes
// this shape, so a tool result's "isError" content is always structurally
// the same regardless of which component produced it.
package mcperr

import "fmt"

// Code enumerates domain error codes. These are distinct from JSON-RPC wire
// error codes (-32700..-32603); a Code is carried inside a successful
// JSON-RPC result with isError=true, never in the JSON-RPC "error" member.
type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeNotFound        Code = "NOT_FOUND"
	CodeAlreadyExists   Code = "ALREADY_EXISTS"
	CodeInvalidState    Code = "INVALID_STATE"
	CodePermission      Code = "PERMISSION_DENIED"
	CodeConflict        Code = "CONFLICT"
	CodeUpstream        Code = "UPSTREAM_ERROR"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeTimeout         Code = "TIMEOUT"
	CodeInternal        Code = "INTERNAL_ERROR"
	CodeUnsupported     Code = "UNSUPPORTED_ACTION"
	CodeQueueCapacity   Code = "QUEUE_AT_CAPACITY"
	CodeSessionExpired  Code = "SESSION_EXPIRED"
	CodeExternalFailure Code = "EXTERNAL_SERVER_ERROR"
)

// FieldError describes one failed field-level validation check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the single domain error kind. It carries enough structure for a
// client to both display the failure and decide what to do next.
type Error struct {
	Code             Code         `json:"code"`
	Message          string       `json:"message"`
	Context          string       `json:"context,omitempty"`
	Suggestion       string       `json:"suggestion,omitempty"`
	RelatedResources []string     `json:"relatedResources,omitempty"`
	ValidationErrors []FieldError `json:"validationErrors,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// New constructs a domain Error. Calling New on the same inputs twice always
// produces an equivalent Error — the formatter has no hidden state.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs a domain Error from an underlying cause, preserving it for
// errors.Is/errors.As while presenting a stable domain message to clients.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithContext attaches free-form context (e.g. which field, which resource)
// and returns the same Error for chaining.
func (e *Error) WithContext(context string) *Error {
	e.Context = context
	return e
}

// WithSuggestion attaches a recovery hint.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// WithRelatedResources attaches resource URIs relevant to the failure (e.g.
// the promptliano:// URI of a conflicting item).
func (e *Error) WithRelatedResources(uris ...string) *Error {
	e.RelatedResources = append(e.RelatedResources, uris...)
	return e
}

// WithValidationErrors attaches field-level validation failures. Used when
// Code is CodeValidation and more than one field failed.
func (e *Error) WithValidationErrors(errs ...FieldError) *Error {
	e.ValidationErrors = append(e.ValidationErrors, errs...)
	return e
}

// Is reports whether err is an *Error with the same Code. Lets callers write
// errors.Is(err, mcperr.New(mcperr.CodeNotFound, "")) to check the code only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// AsError extracts a domain *Error from err, or wraps err as an internal
// error if it isn't one already. Every error that reaches the tool dispatch
// boundary is normalized through this before being attached to a result.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if as(err, &de) {
		return de
	}
	return Wrap(CodeInternal, err.Error(), err)
}

// as is a small indirection over errors.As kept local to avoid an import
// cycle concern if this package ever needs its own errors.As-like matching
// beyond *Error.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Validation builds a CodeValidation error for a single required field,
// matching the "required-field with recovery hint" shape the tool dispatch
// layer uses throughout (spec §4.2).
func Validation(action, field string) *Error {
	return New(CodeValidation, fmt.Sprintf("missing required field %q for action %q", field, action)).
		WithSuggestion(fmt.Sprintf("include %q in the data payload", field)).
		WithValidationErrors(FieldError{Field: field, Message: "required"})
}

// NotFound builds a CodeNotFound error for a resource kind and identifier.
func NotFound(kind string, id any) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s %v not found", kind, id))
}
