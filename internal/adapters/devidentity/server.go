// Package devidentity provides a config-driven identity service for local
// development and tests. It serves the same /api/v1/auth endpoints as the
// production backend: login, me, logout.
package devidentity

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserSpec describes one account served by the dev identity service.
type UserSpec struct {
	Username  string
	Password  string
	Role      domainauth.Role
	FirstName string
	LastName  string
	Inactive  bool
}

// Config controls the dev identity service behavior.
type Config struct {
	Users []UserSpec
	// Secret signs issued tokens (HS256). Required.
	Secret []byte
	// Issuer is the iss claim. Defaults to "felix-dev-identity".
	Issuer string
	// TokenTTL defaults to 8h when zero.
	TokenTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost when zero.
	BcryptCost int
	// Now overrides the clock (tests).
	Now    func() time.Time
	Logger *slog.Logger
}

type account struct {
	identity domainauth.Identity
	hash     []byte
}

// Server implements the identity service REST API in memory.
type Server struct {
	accounts map[string]account
	secret   []byte
	issuer   string
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
}

type tokenClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// NewServer hashes the configured passwords and builds the service.
func NewServer(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("dev identity: signing secret is required")
	}
	if len(cfg.Users) == 0 {
		return nil, errors.New("dev identity: at least one user is required")
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	s := &Server{
		accounts: make(map[string]account, len(cfg.Users)),
		secret:   append([]byte(nil), cfg.Secret...),
		issuer:   cfg.Issuer,
		ttl:      cfg.TokenTTL,
		now:      cfg.Now,
		logger:   cfg.Logger,
		revoked:  map[string]time.Time{},
	}
	if s.issuer == "" {
		s.issuer = "felix-dev-identity"
	}
	if s.ttl <= 0 {
		s.ttl = 8 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	for i, u := range cfg.Users {
		if u.Username == "" || u.Password == "" {
			return nil, fmt.Errorf("dev identity: user %d needs a username and password", i+1)
		}
		if _, dup := s.accounts[u.Username]; dup {
			return nil, fmt.Errorf("dev identity: duplicate user %q", u.Username)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("dev identity: hash password for %q: %w", u.Username, err)
		}
		first := u.FirstName
		if first == "" {
			first = u.Username
		}
		s.accounts[u.Username] = account{
			identity: domainauth.Identity{
				ID:        int64(i + 1),
				Username:  u.Username,
				Email:     u.Username + "@almazgeobur.local",
				FirstName: first,
				LastName:  u.LastName,
				Role:      u.Role,
				IsActive:  !u.Inactive,
			},
			hash: hash,
		}
	}
	return s, nil
}

// ParseUsers parses "username:password:role[;...]" into user specs.
func ParseUsers(spec string) ([]UserSpec, error) {
	var users []UserSpec
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid user entry %q (want username:password:role)", entry)
		}
		users = append(users, UserSpec{Username: parts[0], Password: parts[1], Role: domainauth.ParseRole(parts[2])})
	}
	if len(users) == 0 {
		return nil, errors.New("no users configured")
	}
	return users, nil
}

// Handler returns the HTTP handler serving the identity endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/v1/auth/me", s.handleMe)
	mux.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)
	return mux
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string              `json:"access_token"`
	TokenType   string              `json:"token_type"`
	User        domainauth.Identity `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid login payload")
		return
	}
	acct, ok := s.accounts[in.Username]
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(in.Password)) != nil {
		s.logger.Info("dev identity login rejected", "username", in.Username)
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	if !acct.identity.IsActive {
		writeDetail(w, http.StatusForbidden, "Inactive user")
		return
	}

	token, err := s.issue(acct.identity)
	if err != nil {
		s.logger.Error("dev identity token signing failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer", User: acct.identity})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	acct, ok := s.accounts[claims.Username]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, acct.identity)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	s.mu.Lock()
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	s.pruneLocked()
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) issue(id domainauth.Identity) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Username: id.Username,
		Role:     string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(id.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// authenticate verifies the bearer token: signature, issuer, expiry, revocation.
func (s *Server) authenticate(r *http.Request) (*tokenClaims, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, errors.New("missing bearer token")
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, errors.New("token revoked")
	}
	return claims, nil
}

// pruneLocked forgets revocations of tokens that have expired anyway.
func (s *Server) pruneLocked() {
	now := s.now()
	for jti, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, jti)
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
