package auth

// Package auth contains simple hand-written test doubles for session ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
	"github.com/almazgeobur/felix-portal/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityClient = (*IdentityClient)(nil)
	_ ports.TokenStore     = (*RecordingTokenStore)(nil)
)

// Account is a user known to the stub identity service.
type Account struct {
	Password string
	Identity domainauth.Identity
}

// IdentityClient simulates the identity service with deterministic tokens
// ("tok1", "tok2", ...). Func fields override the default behavior.
type IdentityClient struct {
	LoginFunc         func(ctx context.Context, username, password string) (ports.LoginResult, error)
	FetchIdentityFunc func(ctx context.Context, cred domainauth.Credential) (domainauth.Identity, error)
	LogoutFunc        func(ctx context.Context, cred domainauth.Credential) error

	mu       sync.Mutex
	accounts map[string]Account
	tokens   map[domainauth.Credential]string
	issued   int

	LoginCalls  int
	FetchCalls  int
	LogoutCalls int
}

// NewIdentityClient creates a stub service knowing the given accounts by username.
func NewIdentityClient(accounts map[string]Account) *IdentityClient {
	return &IdentityClient{
		accounts: accounts,
		tokens:   map[domainauth.Credential]string{},
	}
}

// Grant registers cred as a valid token for username, as if issued earlier.
func (c *IdentityClient) Grant(cred domainauth.Credential, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[cred] = username
}

// Revoke invalidates cred.
func (c *IdentityClient) Revoke(cred domainauth.Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, cred)
}

// Calls returns the login, fetch and logout call counts.
func (c *IdentityClient) Calls() (login, fetch, logout int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.LoginCalls, c.FetchCalls, c.LogoutCalls
}

func (c *IdentityClient) Login(ctx context.Context, username, password string) (ports.LoginResult, error) {
	c.mu.Lock()
	c.LoginCalls++
	c.mu.Unlock()
	if c.LoginFunc != nil {
		return c.LoginFunc(ctx, username, password)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	acct, ok := c.accounts[username]
	if !ok || acct.Password != password {
		return ports.LoginResult{}, &domainauth.Error{
			Kind:    domainauth.KindInvalidCredentials,
			Op:      "login",
			Status:  http.StatusUnauthorized,
			Message: "Incorrect username or password",
		}
	}
	c.issued++
	cred := domainauth.Credential(fmt.Sprintf("tok%d", c.issued))
	c.tokens[cred] = username
	return ports.LoginResult{Credential: cred, Identity: acct.Identity}, nil
}

func (c *IdentityClient) FetchIdentity(ctx context.Context, cred domainauth.Credential) (domainauth.Identity, error) {
	c.mu.Lock()
	c.FetchCalls++
	c.mu.Unlock()
	if c.FetchIdentityFunc != nil {
		return c.FetchIdentityFunc(ctx, cred)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	username, ok := c.tokens[cred]
	if !ok {
		return domainauth.Identity{}, &domainauth.Error{Kind: domainauth.KindTokenInvalid, Op: "me", Status: http.StatusUnauthorized}
	}
	return c.accounts[username].Identity, nil
}

func (c *IdentityClient) Logout(ctx context.Context, cred domainauth.Credential) error {
	c.mu.Lock()
	c.LogoutCalls++
	c.mu.Unlock()
	if c.LogoutFunc != nil {
		return c.LogoutFunc(ctx, cred)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tokens[cred]; !ok {
		return &domainauth.Error{Kind: domainauth.KindTokenInvalid, Op: "logout", Status: http.StatusUnauthorized}
	}
	delete(c.tokens, cred)
	return nil
}

// RecordingTokenStore wraps a TokenStore and records writes.
type RecordingTokenStore struct {
	ports.TokenStore

	mu     sync.Mutex
	Sets   []domainauth.Credential
	Clears int
	// SetErr, when non-nil, is returned by Set without touching the inner store.
	SetErr error
}

func (s *RecordingTokenStore) Set(ctx context.Context, cred domainauth.Credential) error {
	s.mu.Lock()
	s.Sets = append(s.Sets, cred)
	setErr := s.SetErr
	s.mu.Unlock()
	if setErr != nil {
		return setErr
	}
	return s.TokenStore.Set(ctx, cred)
}

func (s *RecordingTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.Clears++
	s.mu.Unlock()
	return s.TokenStore.Clear(ctx)
}

// Writes returns a copy of the recorded Set calls and the Clear count.
func (s *RecordingTokenStore) Writes() ([]domainauth.Credential, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domainauth.Credential(nil), s.Sets...), s.Clears
}
