package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryUsage     Category = "usage"
	CategoryProtocol  Category = "protocol"
	CategoryTransport Category = "transport"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// SyncError is a structured error with a code, suggestions, and documentation.
type SyncError struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type (usage, protocol, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// VMID is the view model the error is about, if any.
	VMID string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.VMID != "" {
		msg = fmt.Sprintf("[%s] %s", e.VMID, msg)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *SyncError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a SyncError with the same code.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithVM tags the error with the view model it concerns.
func (e *SyncError) WithVM(vmID string) *SyncError {
	e.VMID = vmID
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *SyncError) WithSuggestion(s string) *SyncError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *SyncError) WithDetail(d string) *SyncError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detail.
func (e *SyncError) WithDetailf(format string, args ...any) *SyncError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *SyncError) Wrap(err error) *SyncError {
	e.Wrapped = err
	return e
}

// New creates a SyncError from a registered error code.
func New(code string) *SyncError {
	template, ok := registry[code]
	if !ok {
		return &SyncError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &SyncError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new SyncError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *SyncError {
	return &SyncError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a SyncError.
func FromError(err error, code string) *SyncError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*SyncError); ok {
		return se
	}
	return New(code).Wrap(err)
}

// Code returns the code of err if it is (or wraps) a SyncError.
func Code(err error) string {
	for err != nil {
		if se, ok := err.(*SyncError); ok {
			return se.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
