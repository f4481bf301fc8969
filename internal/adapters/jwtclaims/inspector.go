// Package jwtclaims inspects JWT-shaped credentials offline.
package jwtclaims

import (
	"strings"
	"time"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
	"github.com/golang-jwt/jwt/v5"
)

// ExpiryInspector reads the exp claim of a JWT credential without verifying
// its signature. Verification stays with the identity service; this only
// saves a round trip for tokens that are already past their expiry.
type ExpiryInspector struct {
	// Leeway tolerates clock skew between this host and the issuer.
	Leeway time.Duration
	// Now overrides the clock (tests). Nil means time.Now.
	Now func() time.Time
}

// Expired reports true only for well-formed JWTs whose exp lies in the past.
func (i ExpiryInspector) Expired(cred domainauth.Credential) bool {
	raw := string(cred)
	if strings.Count(raw, ".") != 2 {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	now := time.Now
	if i.Now != nil {
		now = i.Now
	}
	return now().After(claims.ExpiresAt.Add(i.Leeway))
}
