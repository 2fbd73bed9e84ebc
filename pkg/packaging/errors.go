package packaging

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a policy-engine error.
type ErrorKind string

const (
	// ErrorKindValidation indicates a rejected value at a set boundary:
	// wrong type or a string outside a closed vocabulary. The attribute's
	// prior value is retained.
	ErrorKindValidation ErrorKind = "validation"

	// ErrorKindUnknownAttribute indicates a get or set against a name
	// outside the fixed option surface.
	ErrorKindUnknownAttribute ErrorKind = "unknown-attribute"

	// ErrorKindCallback indicates a registered resource callback failed.
	// Remaining callbacks in the chain are skipped; contexts committed by
	// earlier callbacks stand.
	ErrorKindCallback ErrorKind = "callback"

	// ErrorKindConflict indicates a resource's placement requirements
	// cannot be satisfied under the current policy and platform. Scoped
	// to the one resource; other resources are unaffected.
	ErrorKindConflict ErrorKind = "conflict"
)

// Stable error codes carried across the scripting boundary and into
// recorded decisions.
const (
	ErrCodeValidation        = "POLICY_VALIDATION"
	ErrCodeUnknownAttribute  = "POLICY_UNKNOWN_ATTRIBUTE"
	ErrCodeCallbackFailed    = "CALLBACK_FAILED"
	ErrCodePlacementConflict = "PLACEMENT_CONFLICT"
)

// Error is a classified policy-engine error. All four kinds are terminal
// for the operation that raised them; none are retried internally.
type Error struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Code is the stable error code for programmatic handling.
	Code string `json:"code"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Attribute is the offending option name or attribute path, if any.
	Attribute string `json:"attribute,omitempty"`

	// Value is the rejected value rendered as text, if any.
	Value string `json:"value,omitempty"`

	// Resource names the resource the error is scoped to, if any.
	Resource string `json:"resource,omitempty"`

	// Err is the underlying cause.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	switch {
	case e.Attribute != "" && e.Value != "":
		msg = fmt.Sprintf("%s (attribute=%s, value=%s)", msg, e.Attribute, e.Value)
	case e.Attribute != "":
		msg = fmt.Sprintf("%s (attribute=%s)", msg, e.Attribute)
	case e.Resource != "":
		msg = fmt.Sprintf("%s (resource=%s)", msg, e.Resource)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality for errors.Is: two Errors match when kind
// and code agree.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithResource adds resource context to an error.
func (e *Error) WithResource(name string) *Error {
	e.Resource = name
	return e
}

// NewValidationError creates a validation error for attribute carrying the
// rejected value.
func NewValidationError(attribute string, value interface{}, message string) *Error {
	return &Error{
		Kind:      ErrorKindValidation,
		Code:      ErrCodeValidation,
		Message:   message,
		Attribute: attribute,
		Value:     formatValue(value),
	}
}

// NewUnknownAttributeError creates an unknown-attribute error for name.
func NewUnknownAttributeError(name string) *Error {
	return &Error{
		Kind:      ErrorKindUnknownAttribute,
		Code:      ErrCodeUnknownAttribute,
		Message:   "no such attribute",
		Attribute: name,
	}
}

// NewCallbackError creates a callback error for the named callback.
func NewCallbackError(callback string, err error) *Error {
	return &Error{
		Kind:    ErrorKindCallback,
		Code:    ErrCodeCallbackFailed,
		Message: fmt.Sprintf("resource callback %s failed", callback),
		Err:     err,
	}
}

// NewConflictError creates a placement-conflict error.
func NewConflictError(message string) *Error {
	return &Error{
		Kind:    ErrorKindConflict,
		Code:    ErrCodePlacementConflict,
		Message: message,
	}
}

// IsValidation returns true if the error is a validation error.
func IsValidation(err error) bool {
	return kindOf(err) == ErrorKindValidation
}

// IsUnknownAttribute returns true if the error is an unknown-attribute
// error.
func IsUnknownAttribute(err error) bool {
	return kindOf(err) == ErrorKindUnknownAttribute
}

// IsCallback returns true if the error is a callback error.
func IsCallback(err error) bool {
	return kindOf(err) == ErrorKindCallback
}

// IsConflict returns true if the error is a placement conflict.
func IsConflict(err error) bool {
	return kindOf(err) == ErrorKindConflict
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func formatValue(value interface{}) string {
	if value == nil {
		return "None"
	}
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case fmt.Stringer:
		return fmt.Sprintf("%q", v.String())
	default:
		return fmt.Sprintf("%v", v)
	}
}
