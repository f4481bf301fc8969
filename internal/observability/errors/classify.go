package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
)

// Classify returns a normalized error class suitable for tagging metrics/logs.
// Session errors are classified by kind; anything else by its innermost concrete type.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if kind := domainauth.KindOf(err); kind != "" {
		return string(kind)
	}
	switch {
	case goerrors.Is(err, domainauth.ErrSessionClosed):
		return "session_closed"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}

	// Unwrap to the innermost error for better signal.
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
