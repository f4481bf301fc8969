package service

import (
	"net/http"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
	"golang.org/x/oauth2"
)

// AuthorizedTransport is an http.RoundTripper for feature calls made on behalf
// of the session. It attaches the active credential as a bearer token and ends
// the session when the credential is answered with 401.
type AuthorizedTransport struct {
	Session *AuthSession
	// Base defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *AuthorizedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	snap := t.Session.Snapshot()
	if !snap.IsAuthenticated() {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, &domainauth.Error{Kind: domainauth.KindTokenInvalid, Op: "request", Message: "no active session"}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	rt := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: string(snap.Credential), TokenType: "Bearer"}),
		Base:   base,
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.Session.Invalidate(req.Context(), snap.Credential)
	}
	return resp, nil
}

// Client returns an http.Client using an AuthorizedTransport over base.
func (s *AuthSession) Client(base http.RoundTripper) *http.Client {
	return &http.Client{Transport: &AuthorizedTransport{Session: s, Base: base}}
}
