package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindServer
	KindNotFound
	KindAuth
	KindSessionExpired
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindNotFound:
		return "not found"
	case KindAuth:
		return "auth"
	case KindSessionExpired:
		return "session expired"
	}
	return "unknown"
}

// Error is a failed call against the backend.
type Error struct {
	Kind    Kind
	Status  int
	Op      string
	Message string
	Err     error
}

var (
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrServer         = &Error{Kind: KindServer}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrAuth           = &Error{Kind: KindAuth}
	ErrSessionExpired = &Error{Kind: KindSessionExpired, Message: "session expired, please log in again"}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, op string, status int, message string) *Error {
	return &Error{Kind: kind, Op: op, Status: status, Message: message}
}

func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

func SessionExpired(op string, err error) *Error {
	return &Error{Kind: KindSessionExpired, Op: op, Message: ErrSessionExpired.Message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// Retryable reports whether repeating the same call may succeed.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch KindOf(err) {
	case KindNetwork, KindServer:
		return true
	}
	return false
}

// UserMessage is the text shown to the admin for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		switch e.Kind {
		case KindNetwork:
			return "Unable to reach the server. Check your connection and try again."
		case KindNotFound:
			return "The requested item was not found."
		case KindAuth:
			return "Invalid username or password."
		}
		return "Something went wrong. Please try again."
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Error()
	}
	return err.Error()
}
