package auth

import (
	"errors"
	"fmt"
)

// ErrorKind categorises session failures.
type ErrorKind string

const (
	// KindInvalidCredentials means the identity service rejected a username/password pair.
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	// KindTokenInvalid means a stored or in-use credential was rejected (expired, revoked, malformed).
	KindTokenInvalid ErrorKind = "token_invalid"
	// KindNetwork means no response was received from the identity service.
	KindNetwork ErrorKind = "network"
	// KindServer means a non-2xx, non-auth-specific response or an unreadable body.
	KindServer ErrorKind = "server"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrTokenInvalid       = &Error{Kind: KindTokenInvalid}
	ErrNetwork            = &Error{Kind: KindNetwork}
	ErrServer             = &Error{Kind: KindServer}
)

// ErrSessionClosed is returned when a transition resolves after the session was discarded.
var ErrSessionClosed = errors.New("session closed")

// Error is a typed session error.
type Error struct {
	Kind ErrorKind
	// Op names the identity operation: login, me, logout.
	Op string
	// Status is the HTTP status when one was received.
	Status int
	// Message is the service-provided or local description.
	Message string
	// Err is the underlying cause (optional).
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of a session error, or "" when err is not one.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
