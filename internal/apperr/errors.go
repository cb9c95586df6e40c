// Package apperr is the error taxonomy shared by the gateway, the polling
// scheduler and the feeding lifecycle manager.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindNetwork    Kind = "network"    // fetch-level failure, no response
	KindHTTP       Kind = "http"       // non-2xx on a read
	KindParse      Kind = "parse"      // malformed or unexpected JSON shape
	KindValidation Kind = "validation" // local input out of range
	KindAPI        Kind = "api"        // backend-reported business error text
)

// Error carries the kind plus enough context to log and surface it.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindValidation || e.Kind == KindAPI:
		return e.Message
	case e.Kind == KindHTTP:
		return fmt.Sprintf("%s: http status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperr.ErrParse) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && e.Kind == t.Kind
}

// LogFields returns key/value pairs for sugared logging.
func (e *Error) LogFields() []interface{} {
	fields := []interface{}{"error_kind", e.Kind, "op", e.Op}
	if e.Status != 0 {
		fields = append(fields, "status", e.Status)
	}
	if e.Message != "" {
		fields = append(fields, "detail", e.Message)
	}
	if e.Err != nil {
		fields = append(fields, "err", e.Err)
	}
	return fields
}

// Kind sentinels for errors.Is.
var (
	ErrNetwork    = &Error{Kind: KindNetwork}
	ErrHTTP       = &Error{Kind: KindHTTP}
	ErrParse      = &Error{Kind: KindParse}
	ErrValidation = &Error{Kind: KindValidation}
	ErrAPI        = &Error{Kind: KindAPI}
)

func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

func HTTP(op string, status int, body string) *Error {
	return &Error{Kind: KindHTTP, Op: op, Status: status, Message: body}
}

func Parse(op string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

func Parsef(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindParse, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Op: "validate", Message: message}
}

// API keeps the backend's message verbatim; it falls back to the status text
// only when the body is empty.
func API(op string, status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	return &Error{Kind: KindAPI, Op: op, Status: status, Message: message}
}

// KindOf reports the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// LogFields extracts log fields from any error.
func LogFields(err error) []interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.LogFields()
	}
	return []interface{}{"err", err}
}
