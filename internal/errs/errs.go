// Package errs defines the error kinds every domain package reports through.
// Domain sentinels are built with New so the HTTP layer can map them by kind
// while callers keep matching on the specific sentinel with errors.Is.
package errs

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindUnauthorized           Kind = "unauthorized"
	KindForbidden              Kind = "forbidden"
	KindNotFound               Kind = "not_found"
	KindValidationFailed       Kind = "validation_error"
	KindInvalidState           Kind = "invalid_state"
	KindConcurrentModification Kind = "concurrent_modification"
	KindTooManyRequests        Kind = "too_many_requests"
)

// Error is a coded error of a given kind.
type Error struct {
	Kind Kind
	Code string
}

func New(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func (e *Error) Error() string {
	if e.Code == "" {
		return string(e.Kind)
	}
	return e.Code
}

// Is matches the same sentinel, or any error of the same kind when target is a bare kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	return t.Code == "" && t.Kind == e.Kind
}

var (
	ErrUnauthorized           = &Error{Kind: KindUnauthorized}
	ErrForbidden              = &Error{Kind: KindForbidden}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrValidationFailed       = &Error{Kind: KindValidationFailed}
	ErrInvalidState           = &Error{Kind: KindInvalidState}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification}
	ErrTooManyRequests        = &Error{Kind: KindTooManyRequests}
)

// KindOf reports the kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var v *ValidationErrors
	if errors.As(err, &v) {
		return KindValidationFailed
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf reports the sentinel code of err, falling back to its kind.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return string(KindOf(err))
}

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrors carries field-level failures; it matches ErrValidationFailed.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation error"
	}
	parts := make([]string, 0, len(v.Errors))
	for _, fe := range v.Errors {
		parts = append(parts, fe.Field+": "+fe.Code)
	}
	return "validation error: " + strings.Join(parts, ", ")
}

func (v *ValidationErrors) Is(target error) bool {
	return target == ErrValidationFailed
}

// Add appends a field failure.
func (v *ValidationErrors) Add(field, code, message string) {
	v.Errors = append(v.Errors, FieldError{Field: field, Code: code, Message: message})
}

// Err returns v when it holds failures, nil otherwise.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Invalid builds a single-field validation failure.
func Invalid(field, code, message string) error {
	return &ValidationErrors{Errors: []FieldError{{Field: field, Code: code, Message: message}}}
}
