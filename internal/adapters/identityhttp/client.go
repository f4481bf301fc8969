package identityhttp

// Package identityhttp implements ports.IdentityClient against the identity
// service REST API (/api/v1/auth/*).

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
	"github.com/almazgeobur/felix-portal/internal/ports"
	"golang.org/x/oauth2"
)

const (
	loginPath  = "/api/v1/auth/login"
	mePath     = "/api/v1/auth/me"
	logoutPath = "/api/v1/auth/logout"

	opLogin  = "login"
	opMe     = "me"
	opLogout = "logout"

	// maxErrorBody bounds how much of an error response is read for its message.
	maxErrorBody = 16 << 10
)

// Config configures the identity service client.
type Config struct {
	// BaseURL of the identity service, e.g. "https://portal.almazgeobur.example".
	BaseURL string
	// Timeout bounds each request. Zero means 10s.
	Timeout time.Duration
	// UserAgent is sent on every request when set.
	UserAgent string
	// Transport overrides the base round tripper (tests, proxies).
	Transport http.RoundTripper
}

// Client is a stateless identity service client; the credential is passed per call.
type Client struct {
	base      *url.URL
	timeout   time.Duration
	userAgent string
	transport http.RoundTripper
}

var _ ports.IdentityClient = (*Client)(nil)

// NewClient validates the config and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("identity service base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse identity base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("identity base URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("identity base URL must have a valid host")
	}
	u.Path = strings.TrimRight(u.Path, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{base: u, timeout: timeout, userAgent: cfg.UserAgent, transport: transport}, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string               `json:"access_token"`
	TokenType   string               `json:"token_type"`
	User        *domainauth.Identity `json:"user"`
}

// Login posts credentials and returns the issued token with the resolved identity.
func (c *Client) Login(ctx context.Context, username, password string) (ports.LoginResult, error) {
	var out loginResponse
	err := c.do(ctx, request{
		op:     opLogin,
		method: http.MethodPost,
		path:   loginPath,
		body:   loginRequest{Username: username, Password: password},
		out:    &out,
	})
	if err != nil {
		return ports.LoginResult{}, err
	}
	if out.AccessToken == "" || out.User == nil {
		return ports.LoginResult{}, &domainauth.Error{
			Kind:    domainauth.KindServer,
			Op:      opLogin,
			Status:  http.StatusOK,
			Message: "login response missing access_token or user",
		}
	}
	return ports.LoginResult{Credential: domainauth.Credential(out.AccessToken), Identity: *out.User}, nil
}

// FetchIdentity asks the service who the credential belongs to.
func (c *Client) FetchIdentity(ctx context.Context, cred domainauth.Credential) (domainauth.Identity, error) {
	if cred.IsZero() {
		return domainauth.Identity{}, &domainauth.Error{Kind: domainauth.KindTokenInvalid, Op: opMe, Message: "no credential"}
	}
	var id domainauth.Identity
	if err := c.do(ctx, request{op: opMe, method: http.MethodGet, path: mePath, cred: cred, out: &id}); err != nil {
		return domainauth.Identity{}, err
	}
	if id.IsZero() {
		return domainauth.Identity{}, &domainauth.Error{
			Kind:    domainauth.KindServer,
			Op:      opMe,
			Status:  http.StatusOK,
			Message: "identity response missing user",
		}
	}
	return id, nil
}

// Logout tells the service the session is ending.
func (c *Client) Logout(ctx context.Context, cred domainauth.Credential) error {
	return c.do(ctx, request{op: opLogout, method: http.MethodPost, path: logoutPath, cred: cred})
}

type request struct {
	op     string
	method string
	path   string
	cred   domainauth.Credential
	body   any
	out    any
}

// httpClient returns a client that attaches cred as a bearer token when present.
func (c *Client) httpClient(cred domainauth.Credential) *http.Client {
	transport := c.transport
	if !cred.IsZero() {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: string(cred), TokenType: "Bearer"}),
			Base:   c.transport,
		}
	}
	return &http.Client{Transport: transport, Timeout: c.timeout}
}

func (c *Client) do(ctx context.Context, r request) error {
	var body io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return &domainauth.Error{Kind: domainauth.KindServer, Op: r.op, Message: "encode request", Err: err}
		}
		body = bytes.NewReader(buf)
	}

	u := *c.base
	u.Path += r.path
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return &domainauth.Error{Kind: domainauth.KindServer, Op: r.op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient(r.cred).Do(req)
	if err != nil {
		return &domainauth.Error{Kind: domainauth.KindNetwork, Op: r.op, Message: "identity service unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(r.op, resp)
	}
	if r.out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
		return &domainauth.Error{
			Kind:    domainauth.KindServer,
			Op:      r.op,
			Status:  resp.StatusCode,
			Message: "decode response",
			Err:     err,
		}
	}
	return nil
}

// statusError maps a non-2xx response onto the error taxonomy.
func statusError(op string, resp *http.Response) error {
	kind := domainauth.KindServer
	switch op {
	case opLogin:
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
			kind = domainauth.KindInvalidCredentials
		}
	default:
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = domainauth.KindTokenInvalid
		}
	}
	msg := errorMessage(resp.Body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &domainauth.Error{Kind: kind, Op: op, Status: resp.StatusCode, Message: msg}
}

// errorMessage extracts a human-readable message from common error body shapes:
// {"detail": "..."}, {"message": "..."}, {"error": "..."}.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body map[string]any
	if json.Unmarshal(data, &body) != nil {
		return strings.TrimSpace(string(data))
	}
	for _, k := range []string{"detail", "message", "error"} {
		if s, ok := body[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
