package appErrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindConfiguration Kind = "CONFIGURATION"
	KindUpstream      Kind = "UPSTREAM"
	KindNotFound      Kind = "NOT_FOUND"
	KindPersistence   Kind = "PERSISTENCE"
	KindBusy          Kind = "BUSY"
)

// Kind sentinels, usable with errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrUpstream      = &Error{Kind: KindUpstream}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrPersistence   = &Error{Kind: KindPersistence}
	ErrBusy          = &Error{Kind: KindBusy}
)

// ErrStaleResult is returned when a run finished after its session was reset or replaced.
var ErrStaleResult = errors.New("scan result discarded: session was reset")

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

func newError(kind Kind, code string, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

func Validation(code string, message string) *Error {
	return newError(KindValidation, code, message, nil)
}

func Configuration(code string, message string) *Error {
	return newError(KindConfiguration, code, message, nil)
}

func Upstream(code string, message string, cause error) *Error {
	return newError(KindUpstream, code, message, cause)
}

func NotFound(code string, message string) *Error {
	return newError(KindNotFound, code, message, nil)
}

func Persistence(code string, message string, cause error) *Error {
	return newError(KindPersistence, code, message, cause)
}

func Busy(code string, message string) *Error {
	return newError(KindBusy, code, message, nil)
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the human-readable message of err, preferring the typed message.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
