package session

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/desertthunder/onair/internal/services"
	"github.com/desertthunder/onair/internal/shared"
)

// ErrorKind classifies lifecycle failures.
type ErrorKind string

const (
	// KindHTTP is an upstream failure; Reason holds the status code.
	KindHTTP ErrorKind = "http_error"
	// KindLogic is a failure decided locally; Reason names the rule.
	KindLogic ErrorKind = "logic"
)

const (
	ReasonNoSuitableProgram = "no_suitable_program"
	// ReasonNetwork replaces the status code when no response was received.
	ReasonNetwork = "network"
)

// Error is returned by lifecycle operations.
type Error struct {
	Kind   ErrorKind
	Reason string
	Op     string
	Err    error
}

// ErrNoSuitableProgram matches any logic error raised when selection finds no program.
var ErrNoSuitableProgram = &Error{Kind: KindLogic, Reason: ReasonNoSuitableProgram}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind and reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

func httpError(op string, err error) error {
	if err == nil {
		return nil
	}
	reason := ReasonNetwork
	if code, ok := services.StatusCode(err); ok {
		reason = strconv.Itoa(code)
	}
	return &Error{Kind: KindHTTP, Reason: reason, Op: op, Err: err}
}

func noSuitableProgram() error {
	return &Error{Kind: KindLogic, Reason: ReasonNoSuitableProgram, Op: "fetchProgram", Err: shared.ErrNoProgram}
}

// IsHTTPStatus reports whether err is an http_error carrying the given status code.
func IsHTTPStatus(err error, code int) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindHTTP && e.Reason == strconv.Itoa(code)
}
