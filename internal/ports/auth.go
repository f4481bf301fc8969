package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
)

// TokenStore persists the bearer credential in durable client-side storage.
type TokenStore interface {
	// Get returns the stored credential. Any read failure is reported as absent.
	Get(ctx context.Context) (domainauth.Credential, bool)
	// Set overwrites the stored credential.
	Set(ctx context.Context, cred domainauth.Credential) error
	// Clear removes the stored credential. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// LoginResult is what the identity service returns for accepted credentials.
type LoginResult struct {
	Credential domainauth.Credential
	Identity   domainauth.Identity
}

// IdentityClient talks to the remote identity service.
// Failures are returned as *domainauth.Error; no call retries on its own.
type IdentityClient interface {
	Login(ctx context.Context, username, password string) (LoginResult, error)
	FetchIdentity(ctx context.Context, cred domainauth.Credential) (domainauth.Identity, error)
	Logout(ctx context.Context, cred domainauth.Credential) error
}

// CredentialInspector performs a local, offline check of a credential before
// it is sent to the identity service.
type CredentialInspector interface {
	// Expired reports whether the credential is known to be expired.
	// Opaque credentials that cannot be inspected report false.
	Expired(cred domainauth.Credential) bool
}
