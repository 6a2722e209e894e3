// Package errext provides small composable error-decoration helpers: a
// user-facing hint, a process exit code, and an "exception" marker that
// also carries a stack trace. Each decoration is attached by wrapping, so
// errors.As/errors.Unwrap keep working through the chain.
package errext

import (
	"fmt"

	"go.te.io/tescenario/errext/exitcodes"
)

// HasHint is implemented by errors that carry a user-actionable hint.
type HasHint interface {
	error
	Hint() string
}

// HasExitCode is implemented by errors that carry a process exit code.
type HasExitCode interface {
	error
	ExitCode() exitcodes.ExitCode
}

// AbortReason classifies why an Exception unwound the call stack.
type AbortReason string

// Exception is implemented by errors that also carry a rendered stack
// trace, to be shown instead of Error() when present.
type Exception interface {
	error
	StackTrace() string
	AbortReason() AbortReason
}

type unwrapper interface {
	Unwrap() error
}

func walk[T any](err error) (T, bool) {
	var zero T
	for err != nil {
		if v, ok := err.(T); ok { //nolint:errorlint // we deliberately walk Unwrap ourselves
			return v, true
		}
		u, ok := err.(unwrapper) //nolint:errorlint
		if !ok {
			return zero, false
		}
		err = u.Unwrap()
	}
	return zero, false
}

type hintedError struct {
	error
	hint string
}

// WithHint attaches hint to err. If err (or anything it wraps) already
// carries a hint, the new hint is rendered as "newHint (oldHint)", so
// repeated wrapping keeps the full chain of context visible.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	if prev, ok := walk[HasHint](err); ok {
		hint = fmt.Sprintf("%s (%s)", hint, prev.Hint())
	}
	return hintedError{error: err, hint: hint}
}

func (e hintedError) Hint() string  { return e.hint }
func (e hintedError) Unwrap() error { return e.error }

type exitCodeError struct {
	error
	code exitcodes.ExitCode
}

// WithExitCodeIfNone attaches code to err, unless err (or something it
// wraps) already carries an exit code, in which case the existing code is
// preserved.
func WithExitCodeIfNone(err error, code exitcodes.ExitCode) error {
	if err == nil {
		return nil
	}
	if _, ok := walk[HasExitCode](err); ok {
		return err
	}
	return exitCodeError{error: err, code: code}
}

func (e exitCodeError) ExitCode() exitcodes.ExitCode { return e.code }
func (e exitCodeError) Unwrap() error                { return e.error }

// Format renders err the way the CLI's top-level error handler does: the
// stack trace if err is an Exception, its plain message otherwise, plus a
// logrus-ready field map carrying the hint, if any.
func Format(err error) (string, map[string]interface{}) {
	if err == nil {
		return "", nil
	}

	text := err.Error()
	if exc, ok := walk[Exception](err); ok {
		text = exc.StackTrace()
	}

	fields := map[string]interface{}{}
	if h, ok := walk[HasHint](err); ok {
		fields["hint"] = h.Hint()
	}

	return text, fields
}
