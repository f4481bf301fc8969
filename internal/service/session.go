package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
	"github.com/almazgeobur/felix-portal/internal/ports"
	"golang.org/x/sync/semaphore"
)

// Transition triggers, used for logging and metrics.
const (
	TriggerBootstrap  = "bootstrap"
	TriggerLogin      = "login"
	TriggerLogout     = "logout"
	TriggerRefresh    = "refresh"
	TriggerInvalidate = "invalidate"
)

// SessionRecorder receives lifecycle events for metrics.
type SessionRecorder interface {
	Transition(from, to domainauth.State, trigger string)
	Operation(op string, d time.Duration, err error)
}

// SessionOptions groups dependencies for AuthSession.
type SessionOptions struct {
	Tokens ports.TokenStore     // Required: durable credential storage
	Client ports.IdentityClient // Required: remote identity service
	Extras SessionExtras        // Optional collaborators
}

// SessionExtras holds optional AuthSession collaborators.
type SessionExtras struct {
	// Inspector rejects locally expired credentials before bootstrap calls the service.
	Inspector ports.CredentialInspector
	Recorder  SessionRecorder
	Logger    *slog.Logger
}

// AuthSession owns the session state machine:
//
//	Uninitialized -> Loading -> {Authenticated, Unauthenticated}
//	Authenticated -> Unauthenticated (logout, rejected credential)
//
// Transitions are serialised; a caller arriving while another transition is
// in flight queues behind it. Snapshot never blocks on network I/O and returns
// the result of the last completed transition.
type AuthSession struct {
	tokens    ports.TokenStore
	client    ports.IdentityClient
	inspector ports.CredentialInspector
	recorder  SessionRecorder
	logger    *slog.Logger

	// sem admits one transition at a time.
	sem *semaphore.Weighted

	mu     sync.RWMutex
	snap   domainauth.Snapshot
	closed bool

	subMu   sync.Mutex
	subs    map[uint64]func(domainauth.Snapshot)
	nextSub uint64

	bootOnce  sync.Once
	readyOnce sync.Once
	ready     chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// NewAuthSession constructs an Uninitialized session. Call Start or Bootstrap
// to resolve it from the token store.
func NewAuthSession(opts SessionOptions) *AuthSession {
	if opts.Tokens == nil {
		panic("service: AuthSession requires a TokenStore")
	}
	if opts.Client == nil {
		panic("service: AuthSession requires an IdentityClient")
	}
	logger := opts.Extras.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthSession{
		tokens:    opts.Tokens,
		client:    opts.Client,
		inspector: opts.Extras.Inspector,
		recorder:  opts.Extras.Recorder,
		logger:    logger.With("component", "auth_session"),
		sem:       semaphore.NewWeighted(1),
		snap:      domainauth.Uninitialized(),
		subs:      map[uint64]func(domainauth.Snapshot){},
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Snapshot returns the current state.
func (s *AuthSession) Snapshot() domainauth.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers fn to be called with every new snapshot. Calls happen
// synchronously, in transition order, on the goroutine that completed the
// transition; fn must not start another transition on the same goroutine.
func (s *AuthSession) Subscribe(fn func(domainauth.Snapshot)) (unsubscribe func()) {
	if fn == nil || s.isClosed() {
		return func() {}
	}
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Start launches bootstrap in the background. Only the first call to Start
// or Bootstrap has an effect.
func (s *AuthSession) Start(ctx context.Context) {
	s.bootOnce.Do(func() {
		go s.bootstrap(ctx)
	})
}

// Bootstrap resolves the session from the token store and returns the
// resulting snapshot. It never fails: a missing, expired or rejected
// credential ends in Unauthenticated.
func (s *AuthSession) Bootstrap(ctx context.Context) domainauth.Snapshot {
	s.bootOnce.Do(func() {
		s.bootstrap(ctx)
	})
	_ = s.WaitReady(ctx)
	return s.Snapshot()
}

// WaitReady blocks until bootstrap has resolved the session.
func (s *AuthSession) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-s.done:
		return domainauth.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AuthSession) bootstrap(ctx context.Context) {
	start := time.Now()
	var outcome error
	defer func() { s.observe(TriggerBootstrap, start, outcome) }()

	// Bootstrap must resolve even when ctx is already done.
	release, err := s.acquire(context.WithoutCancel(ctx))
	if err != nil {
		return
	}
	defer release()

	if s.Snapshot().State.Resolved() {
		// A login or logout completed before bootstrap got its turn.
		s.markReady()
		return
	}

	cred, ok := s.tokens.Get(ctx)
	if !ok || cred.IsZero() {
		s.commit(domainauth.Unauthenticated(), TriggerBootstrap)
		return
	}

	if s.inspector != nil && s.inspector.Expired(cred) {
		s.logger.InfoContext(ctx, "stored credential expired", "credential", cred.Redacted())
		s.dropStored(ctx)
		s.commit(domainauth.Unauthenticated(), TriggerBootstrap)
		return
	}

	s.commit(domainauth.Loading(), TriggerBootstrap)

	id, err := s.client.FetchIdentity(ctx, cred)
	if err != nil {
		outcome = err
		if ctx.Err() != nil {
			// The caller went away; the stored credential was never judged.
			s.logger.InfoContext(ctx, "bootstrap abandoned", "credential", cred.Redacted(), "error", err)
			s.commit(domainauth.Unauthenticated(), TriggerBootstrap)
			return
		}
		s.logger.InfoContext(ctx, "stored credential rejected",
			"credential", cred.Redacted(),
			"kind", string(domainauth.KindOf(err)),
			"error", err,
		)
		if !s.isClosed() {
			s.dropStored(ctx)
		}
		s.commit(domainauth.Unauthenticated(), TriggerBootstrap)
		return
	}
	s.commit(domainauth.Authenticated(id, cred), TriggerBootstrap)
}

// Login exchanges a username and password for a credential. On failure the
// session and the token store are left untouched.
func (s *AuthSession) Login(ctx context.Context, username, password string) (domainauth.Identity, error) {
	start := time.Now()
	id, err := s.login(ctx, username, password)
	s.observe(TriggerLogin, start, err)
	return id, err
}

func (s *AuthSession) login(ctx context.Context, username, password string) (domainauth.Identity, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return domainauth.Identity{}, &domainauth.Error{
			Kind:    domainauth.KindInvalidCredentials,
			Op:      TriggerLogin,
			Message: "username and password are required",
		}
	}
	if s.isClosed() {
		return domainauth.Identity{}, domainauth.ErrSessionClosed
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return domainauth.Identity{}, err
	}
	defer release()

	res, err := s.client.Login(ctx, username, password)
	if err != nil {
		return domainauth.Identity{}, err
	}
	if res.Credential.IsZero() || res.Identity.IsZero() {
		return domainauth.Identity{}, &domainauth.Error{
			Kind:    domainauth.KindServer,
			Op:      TriggerLogin,
			Message: "identity service returned an incomplete login result",
		}
	}
	if s.isClosed() {
		return domainauth.Identity{}, domainauth.ErrSessionClosed
	}

	if err := s.tokens.Set(ctx, res.Credential); err != nil {
		// The session still works for this process; it just won't survive a restart.
		s.logger.WarnContext(ctx, "persist credential failed",
			"credential", res.Credential.Redacted(),
			"error", err,
		)
	}
	if !s.commit(domainauth.Authenticated(res.Identity, res.Credential), TriggerLogin) {
		return domainauth.Identity{}, domainauth.ErrSessionClosed
	}
	s.logger.InfoContext(ctx, "login succeeded",
		"user_id", res.Identity.ID,
		"username", res.Identity.Username,
		"role", string(res.Identity.Role),
	)
	return res.Identity, nil
}

// Logout ends the session locally and tells the identity service on a
// best-effort basis. It always leaves the session Unauthenticated with an
// empty token store; calling it again is a no-op.
func (s *AuthSession) Logout(ctx context.Context) {
	start := time.Now()
	var remoteErr error
	defer func() { s.observe(TriggerLogout, start, remoteErr) }()

	// Local teardown must not be abandoned by a cancelled caller.
	release, err := s.acquire(context.WithoutCancel(ctx))
	if err != nil {
		return
	}
	defer release()

	cur := s.Snapshot()
	if !cur.Credential.IsZero() {
		if remoteErr = s.client.Logout(ctx, cur.Credential); remoteErr != nil {
			s.logger.WarnContext(ctx, "remote logout failed",
				"credential", cur.Credential.Redacted(),
				"error", remoteErr,
			)
		}
	}

	s.dropStored(ctx)
	if cur.State != domainauth.StateUnauthenticated {
		s.commit(domainauth.Unauthenticated(), TriggerLogout)
	}
}

// RefreshIdentity re-reads the identity for the current credential. It is a
// no-op unless the session is Authenticated. A rejected credential ends the
// session; any other failure leaves the state as it was.
func (s *AuthSession) RefreshIdentity(ctx context.Context) (domainauth.Identity, error) {
	start := time.Now()
	id, err := s.refresh(ctx)
	s.observe(TriggerRefresh, start, err)
	return id, err
}

func (s *AuthSession) refresh(ctx context.Context) (domainauth.Identity, error) {
	if s.isClosed() {
		return domainauth.Identity{}, domainauth.ErrSessionClosed
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return domainauth.Identity{}, err
	}
	defer release()

	cur := s.Snapshot()
	if !cur.IsAuthenticated() {
		return domainauth.Identity{}, nil
	}

	id, err := s.client.FetchIdentity(ctx, cur.Credential)
	if err != nil {
		if errors.Is(err, domainauth.ErrTokenInvalid) && !s.isClosed() {
			s.logger.InfoContext(ctx, "credential rejected on refresh", "credential", cur.Credential.Redacted())
			s.dropStored(ctx)
			s.commit(domainauth.Unauthenticated(), TriggerRefresh)
		}
		return domainauth.Identity{}, err
	}
	if !s.commit(domainauth.Authenticated(id, cur.Credential), TriggerRefresh) {
		return domainauth.Identity{}, domainauth.ErrSessionClosed
	}
	return id, nil
}

// Invalidate ends the session because a dependent call saw cred rejected.
// It reports whether the session was demoted; a credential that is no longer
// the active one is ignored.
func (s *AuthSession) Invalidate(ctx context.Context, cred domainauth.Credential) bool {
	if cred.IsZero() || s.isClosed() {
		return false
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return false
	}
	defer release()

	cur := s.Snapshot()
	if !cur.IsAuthenticated() || cur.Credential != cred {
		return false
	}
	s.logger.InfoContext(ctx, "credential rejected by dependent call", "credential", cred.Redacted())
	s.dropStored(ctx)
	return s.commit(domainauth.Unauthenticated(), TriggerInvalidate)
}

// Close discards the session. Transitions that finish afterwards do not
// change its state, and subscribers are no longer called.
func (s *AuthSession) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.subMu.Lock()
		s.subs = map[uint64]func(domainauth.Snapshot){}
		s.subMu.Unlock()

		close(s.done)
	})
}

func (s *AuthSession) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *AuthSession) acquire(ctx context.Context) (release func(), err error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for session transition: %w", err)
	}
	return func() { s.sem.Release(1) }, nil
}

// commit publishes next and notifies subscribers. It reports false when the
// session was closed and the result was discarded.
func (s *AuthSession) commit(next domainauth.Snapshot, trigger string) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	prev := s.snap
	s.snap = next
	s.mu.Unlock()

	if next.State.Resolved() {
		s.markReady()
	}
	if prev.State != next.State {
		s.logger.Debug("session transition",
			"from", prev.State.String(),
			"to", next.State.String(),
			"trigger", trigger,
		)
		if s.recorder != nil {
			s.recorder.Transition(prev.State, next.State, trigger)
		}
	}
	s.notify(next)
	return true
}

func (s *AuthSession) notify(snap domainauth.Snapshot) {
	s.subMu.Lock()
	fns := make([]func(domainauth.Snapshot), 0, len(s.subs))
	for id := uint64(0); id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *AuthSession) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// dropStored clears the token store; failures are logged.
func (s *AuthSession) dropStored(ctx context.Context) {
	if err := s.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.WarnContext(ctx, "clear stored credential failed", "error", err)
	}
}

func (s *AuthSession) observe(op string, start time.Time, err error) {
	if s.recorder == nil {
		return
	}
	s.recorder.Operation(op, time.Since(start), err)
}
