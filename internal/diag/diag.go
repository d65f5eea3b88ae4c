// Package diag implements the three-severity error surface described in
// the expression compiler's design: user errors abort compilation or
// evaluation, warnings are logged and evaluation substitutes a zero
// component, and internal errors signal an invariant violation that
// should never occur on validated input.
package diag

import "fmt"

// Severity classifies a diagnostic.
type Severity string

const (
	UserErrorSeverity     Severity = "UserError"
	WarningSeverity       Severity = "Warning"
	InternalErrorSeverity Severity = "InternalError"
)

// Error is the concrete diagnostic type returned by this module's
// public API. Location is an optional character offset into the
// original expression text; it is -1 when not applicable.
type Error struct {
	Severity Severity
	Message  string
	Location int
}

func (e *Error) Error() string {
	if e.Location >= 0 {
		return fmt.Sprintf("%s: %s (at offset %d)", e.Severity, e.Message, e.Location)
	}
	return fmt.Sprintf("%s: %s", e.Severity, e.Message)
}

// NewUserError builds a recoverable compilation/evaluation failure.
func NewUserError(format string, args ...interface{}) *Error {
	return &Error{Severity: UserErrorSeverity, Message: fmt.Sprintf(format, args...), Location: -1}
}

// NewUserErrorAt is NewUserError with a source offset attached.
func NewUserErrorAt(loc int, format string, args ...interface{}) *Error {
	return &Error{Severity: UserErrorSeverity, Message: fmt.Sprintf(format, args...), Location: loc}
}

// NewInternalError builds an invariant-violation error. Evaluation
// stops immediately; this should never surface on validated input.
func NewInternalError(format string, args ...interface{}) *Error {
	return &Error{Severity: InternalErrorSeverity, Message: fmt.Sprintf(format, args...), Location: -1}
}

// IsUserError reports whether err is a diag.Error of UserErrorSeverity.
func IsUserError(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Severity == UserErrorSeverity
}

// IsInternalError reports whether err is a diag.Error of InternalErrorSeverity.
func IsInternalError(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Severity == InternalErrorSeverity
}

// Sink accumulates warnings raised during a single compile or evaluate
// call. Evaluation continues after a warning; the caller can inspect
// the sink afterward. A nil *Sink silently drops warnings.
type Sink struct {
	Warnings []string
}

// Warn records a warning message. Safe to call on a nil receiver.
func (s *Sink) Warn(format string, args ...interface{}) {
	if s == nil {
		return
	}
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}
