package httpx

import (
	"context"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
)

// Unexported context key types avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same keys.
type (
	identityKey  struct{}
	requestIDKey struct{}
)

// SetIdentityInContext returns a child context that carries the given identity.
// A zero identity leaves ctx unchanged.
func SetIdentityInContext(ctx context.Context, id domainauth.Identity) context.Context {
	if id.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, id)
}

// GetIdentityFromContext returns the authenticated identity and whether one is present.
func GetIdentityFromContext(ctx context.Context) (domainauth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domainauth.Identity)
	return id, ok && !id.IsZero()
}

// SetRequestIDInContext returns a child context carrying the request id.
func SetRequestIDInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id, or "" outside RequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
