package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/almazgeobur/felix-portal/internal/adapters/tokenstore"
	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
	"github.com/almazgeobur/felix-portal/internal/mocks"
	mockauth "github.com/almazgeobur/felix-portal/internal/mocks/auth"
	"github.com/almazgeobur/felix-portal/internal/ports"
	"github.com/almazgeobur/felix-portal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStubService() *mockauth.IdentityClient {
	return mockauth.NewIdentityClient(map[string]mockauth.Account{
		"admin":  {Password: "admin123", Identity: testutil.AdminIdentity()},
		"ivanov": {Password: "pass", Identity: testutil.IdentityFor(7, "ivanov", domainauth.RoleCustomer)},
	})
}

func newSession(tokens ports.TokenStore, client ports.IdentityClient, extras SessionExtras) *AuthSession {
	if extras.Logger == nil {
		extras.Logger = quietLogger()
	}
	return NewAuthSession(SessionOptions{Tokens: tokens, Client: client, Extras: extras})
}

type stateLog struct {
	mu     sync.Mutex
	states []domainauth.State
}

func (l *stateLog) record(s domainauth.Snapshot) {
	l.mu.Lock()
	l.states = append(l.states, s.State)
	l.mu.Unlock()
}

func (l *stateLog) get() []domainauth.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domainauth.State(nil), l.states...)
}

type fakeRecorder struct {
	mu          sync.Mutex
	transitions []string
	ops         map[string]int
	failed      map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{ops: map[string]int{}, failed: map[string]int{}}
}

func (r *fakeRecorder) Transition(from, to domainauth.State, trigger string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, trigger+":"+from.String()+"->"+to.String())
}

func (r *fakeRecorder) Operation(op string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op]++
	if err != nil {
		r.failed[op]++
	}
}

func TestNewAuthSession_RequiresDependencies(t *testing.T) {
	assert.Panics(t, func() { NewAuthSession(SessionOptions{Client: newStubService()}) })
	assert.Panics(t, func() { NewAuthSession(SessionOptions{Tokens: tokenstore.NewMemoryStore("")}) })

	s := newSession(tokenstore.NewMemoryStore(""), newStubService(), SessionExtras{})
	assert.Equal(t, domainauth.StateUninitialized, s.Snapshot().State)
}

func TestAuthSession_LoginThenReload(t *testing.T) {
	ctx := context.Background()
	client := newStubService()
	store := &mockauth.RecordingTokenStore{TokenStore: tokenstore.NewMemoryStore("")}

	first := newSession(store, client, SessionExtras{})
	assert.Equal(t, domainauth.StateUnauthenticated, first.Bootstrap(ctx).State)

	_, err := first.Login(ctx, "admin", "wrong")
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	assert.Equal(t, domainauth.StateUnauthenticated, first.Snapshot().State)
	sets, _ := store.Writes()
	assert.Empty(t, sets)

	id, err := first.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, id.Role)

	snap := first.Snapshot()
	assert.Equal(t, domainauth.StateAuthenticated, snap.State)
	assert.Equal(t, domainauth.Credential("tok1"), snap.Credential)
	assert.Equal(t, testutil.AdminIdentity(), snap.Identity)
	stored, ok := store.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, domainauth.Credential("tok1"), stored)

	loginsBefore, _, _ := client.Calls()

	// Reload: a fresh session over the same store.
	reloaded := newSession(store, client, SessionExtras{})
	log := &stateLog{}
	reloaded.Subscribe(log.record)
	assert.Equal(t, domainauth.StateUninitialized, reloaded.Snapshot().State)

	got := reloaded.Bootstrap(ctx)
	assert.Equal(t, []domainauth.State{domainauth.StateLoading, domainauth.StateAuthenticated}, log.get())
	assert.Equal(t, domainauth.StateAuthenticated, got.State)
	assert.Equal(t, testutil.AdminIdentity(), got.Identity)
	assert.Equal(t, domainauth.Credential("tok1"), got.Credential)

	loginsAfter, fetches, _ := client.Calls()
	assert.Equal(t, loginsBefore, loginsAfter)
	assert.Equal(t, 1, fetches)
}

func TestAuthSession_InvalidLoginsNeverStore(t *testing.T) {
	ctx := context.Background()
	client := newStubService()
	store := &mockauth.RecordingTokenStore{TokenStore: tokenstore.NewMemoryStore("")}
	s := newSession(store, client, SessionExtras{})
	s.Bootstrap(ctx)

	attempts := []struct{ user, pass string }{
		{"admin", "wrong"},
		{"nobody", "admin123"},
		{"ivanov", "admin123"},
		{"", "admin123"},
		{"admin", ""},
		{"   ", "x"},
	}
	for _, a := range attempts {
		_, err := s.Login(ctx, a.user, a.pass)
		require.ErrorIs(t, err, domainauth.ErrInvalidCredentials, "user=%q", a.user)
		assert.Equal(t, domainauth.StateUnauthenticated, s.Snapshot().State)
	}

	sets, _ := store.Writes()
	assert.Empty(t, sets)
	logins, _, _ := client.Calls()
	assert.Equal(t, 3, logins, "empty input must not reach the identity service")
}

func TestAuthSession_LoginFailureKeepsAuthenticatedState(t *testing.T) {
	ctx := context.Background()
	client := newStubService()
	s := newSession(tokenstore.NewMemoryStore(""), client, SessionExtras{})
	s.Bootstrap(ctx)

	_, err := s.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	client.LoginFunc = func(context.Context, string, string) (ports.LoginResult, error) {
		return ports.LoginResult{}, &domainauth.Error{Kind: domainauth.KindNetwork, Op: "login", Err: errors.New("dial tcp: refused")}
	}
	_, err = s.Login(ctx, "ivanov", "pass")
	require.ErrorIs(t, err, domainauth.ErrNetwork)

	snap := s.Snapshot()
	assert.Equal(t, domainauth.StateAuthenticated, snap.State)
	assert.Equal(t, "admin", snap.Identity.Username)
	assert.Equal(t, domainauth.Credential("tok1"), snap.Credential)
}

func TestAuthSession_LoginIncompleteResult(t *testing.T) {
	ctx := context.Background()
	client := newStubService()
	client.LoginFunc = func(context.Context, string, string) (ports.LoginResult, error) {
		return ports.LoginResult{Credential: "tok9"}, nil
	}
	store := &mockauth.RecordingTokenStore{TokenStore: tokenstore.NewMemoryStore("")}
	s := newSession(store, client, SessionExtras{})

	_, err := s.Login(ctx, "admin", "admin123")
	require.ErrorIs(t, err, domainauth.ErrServer)
	sets, _ := store.Writes()
	assert.Empty(t, sets)
	assert.Equal(t, domainauth.StateUninitialized, s.Snapshot().State)
}

func TestAuthSession_LoginStoreFailureStillAuthenticates(t *testing.T) {
	ctx := context.Background()
	store := &mockauth.RecordingTokenStore{TokenStore: tokenstore.NewMemoryStore(""), SetErr: errors.New("disk full")}
	s := newSession(store, newStubService(), SessionExtras{})
	s.Bootstrap(ctx)

	_, err := s.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, s.Snapshot().IsAuthenticated())

	_, ok := store.Get(ctx)
	assert.False(t, ok)
}

func TestAuthSession_Bootstrap(t *testing.T) {
	tests := []struct {
		name  string
		setup func(store *mocks.MockTokenStore, client *mocks.MockIdentityClient, inspector *mocks.MockCredentialInspector)
		want  domainauth.State
	}{
		{
			name: "empty store",
			setup: func(store *mocks.MockTokenStore, _ *mocks.MockIdentityClient, _ *mocks.MockCredentialInspector) {
				store.EXPECT().Get(gomock.Any()).Return(domainauth.Credential(""), false)
			},
			want: domainauth.StateUnauthenticated,
		},
		{
			name: "valid token",
			setup: func(store *mocks.MockTokenStore, client *mocks.MockIdentityClient, inspector *mocks.MockCredentialInspector) {
				store.EXPECT().Get(gomock.Any()).Return(domainauth.Credential("tok1"), true)
				inspector.EXPECT().Expired(domainauth.Credential("tok1")).Return(false)
				client.EXPECT().FetchIdentity(gomock.Any(), domainauth.Credential("tok1")).Return(testutil.AdminIdentity(), nil)
			},
			want: domainauth.StateAuthenticated,
		},
		{
			name: "rejected token",
			setup: func(store *mocks.MockTokenStore, client *mocks.MockIdentityClient, inspector *mocks.MockCredentialInspector) {
				store.EXPECT().Get(gomock.Any()).Return(domainauth.Credential("revoked"), true)
				inspector.EXPECT().Expired(gomock.Any()).Return(false)
				client.EXPECT().FetchIdentity(gomock.Any(), domainauth.Credential("revoked")).
					Return(domainauth.Identity{}, &domainauth.Error{Kind: domainauth.KindTokenInvalid, Op: "me", Status: http.StatusUnauthorized})
				store.EXPECT().Clear(gomock.Any()).Return(nil)
			},
			want: domainauth.StateUnauthenticated,
		},
		{
			name: "identity service unreachable",
			setup: func(store *mocks.MockTokenStore, client *mocks.MockIdentityClient, inspector *mocks.MockCredentialInspector) {
				store.EXPECT().Get(gomock.Any()).Return(domainauth.Credential("tok1"), true)
				inspector.EXPECT().Expired(gomock.Any()).Return(false)
				client.EXPECT().FetchIdentity(gomock.Any(), gomock.Any()).
					Return(domainauth.Identity{}, &domainauth.Error{Kind: domainauth.KindNetwork, Op: "me"})
				store.EXPECT().Clear(gomock.Any()).Return(nil)
			},
			want: domainauth.StateUnauthenticated,
		},
		{
			name: "locally expired token skips the service",
			setup: func(store *mocks.MockTokenStore, _ *mocks.MockIdentityClient, inspector *mocks.MockCredentialInspector) {
				store.EXPECT().Get(gomock.Any()).Return(domainauth.Credential("old.jwt.token"), true)
				inspector.EXPECT().Expired(domainauth.Credential("old.jwt.token")).Return(true)
				store.EXPECT().Clear(gomock.Any()).Return(errors.New("read-only fs"))
			},
			want: domainauth.StateUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockTokenStore(ctrl)
			client := mocks.NewMockIdentityClient(ctrl)
			inspector := mocks.NewMockCredentialInspector(ctrl)
			tt.setup(store, client, inspector)

			s := newSession(store, client, SessionExtras{Inspector: inspector})
			snap := s.Bootstrap(context.Background())
			assert.Equal(t, tt.want, snap.State)
			assert.Equal(t, snap.State == domainauth.StateAuthenticated, !snap.Credential.IsZero())
			assert.Equal(t, snap.State == domainauth.StateAuthenticated, !snap.Identity.IsZero())
		})
	}
}

func TestAuthSession_BootstrapRunsOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTokenStore(ctrl)
	store.EXPECT().Get(gomock.Any()).Return(domainauth.Credential(""), false).Times(1)

	s := newSession(store, mocks.NewMockIdentityClient(ctrl), SessionExtras{})
	s.Start(context.Background())
	s.Start(context.Background())
	require.NoError(t, s.WaitReady(context.Background()))
	assert.Equal(t, domainauth.StateUnauthenticated, s.Bootstrap(context.Background()).State)
}

func TestAuthSession_BootstrapAfterLoginIsNoop(t *testing.T) {
	ctx := context.Background()
	client := newStubService()
	s := newSession(tokenstore.NewMemoryStore(""), client, SessionExtras{})

	_, err := s.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	require.NoError(t, s.WaitReady(ctx))

	assert.Equal(t, domainauth.StateAuthenticated, s.Bootstrap(ctx).State)
	_, fetches, _ := client.Calls()
	assert.Zero(t, fetches)
}

func TestAuthSession_WaitReadyHonoursContext(t *testing.T) {
	s := newSession(tokenstore.NewMemoryStore(""), newStubService(), SessionExtras{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitReady(ctx), context.DeadlineExceeded)
}

func TestAuthSession_LogoutAlwaysClears(t *testing.T) {
	ctx := context.Background()
	client := newStubService()
	store := &mockauth.RecordingTokenStore{TokenStore: tokenstore.NewMemoryStore("")}
	s := newSession(store, client, SessionExtras{})
	s.Bootstrap(ctx)

	_, err := s.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	client.LogoutFunc = func(context.Context, domainauth.Credential) error {
		return &domainauth.Error{Kind: domainauth.KindNetwork, Op: "logout", Err: errors.New("connection reset")}
	}
	s.Logout(ctx)

	assert.Equal(t, domainauth.Unauthenticated(), s.Snapshot())
	_, ok := store.Get(ctx)
	assert.False(t, ok)

	// Second logout with no active session.
	s.Logout(ctx)
	assert.Equal(t, domainauth.Unauthenticated(), s.Snapshot())

	_, _, logouts := client.Calls()
	assert.Equal(t, 1, logouts, "remote logout is only attempted with a credential")
	_, clears := store.Writes()
	assert.Equal(t, 2, clears)
}

func TestAuthSession_LogoutWithCancelledContext(t *testing.T) {
	client := newStubService()
	store := tokenstore.NewMemoryStore("")
	s := newSession(store, client, SessionExtras{})

	_, err := s.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Logout(ctx)

	assert.Equal(t, domainauth.StateUnauthenticated, s.Snapshot().State)
	_, ok := store.Get(context.Background())
	assert.False(t, ok)
}

func TestAuthSession_RefreshIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("no-op when not authenticated", func(t *testing.T) {
		client := newStubService()
		s := newSession(tokenstore.NewMemoryStore(""), client, SessionExtras{})
		s.Bootstrap(ctx)

		id, err := s.RefreshIdentity(ctx)
		require.NoError(t, err)
		assert.True(t, id.IsZero())
		_, fetches, _ := client.Calls()
		assert.Zero(t, fetches)
	})

	t.Run("updates identity and keeps credential", func(t *testing.T) {
		client := newStubService()
		s := newSession(tokenstore.NewMemoryStore(""), client, SessionExtras{})
		_, err := s.Login(ctx, "admin", "admin123")
		require.NoError(t, err)

		renamed := testutil.AdminIdentity()
		renamed.LastName = "Renamed"
		client.FetchIdentityFunc = func(_ context.Context, cred domainauth.Credential) (domainauth.Identity, error) {
			assert.Equal(t, domainauth.Credential("tok1"), cred)
			return renamed, nil
		}

		id, err := s.RefreshIdentity(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", id.LastName)
		assert.Equal(t, domainauth.Authenticated(renamed, "tok1"), s.Snapshot())
	})

	t.Run("rejected credential ends the session", func(t *testing.T) {
		client := newStubService()
		store := tokenstore.NewMemoryStore("")
		s := newSession(store, client, SessionExtras{})
		_, err := s.Login(ctx, "admin", "admin123")
		require.NoError(t, err)
		client.Revoke("tok1")

		_, err = s.RefreshIdentity(ctx)
		require.ErrorIs(t, err, domainauth.ErrTokenInvalid)
		assert.Equal(t, domainauth.StateUnauthenticated, s.Snapshot().State)
		_, ok := store.Get(ctx)
		assert.False(t, ok)
	})

	t.Run("transient failure keeps state", func(t *testing.T) {
		client := newStubService()
		store := tokenstore.NewMemoryStore("")
		s := newSession(store, client, SessionExtras{})
		_, err := s.Login(ctx, "admin", "admin123")
		require.NoError(t, err)
		client.FetchIdentityFunc = func(context.Context, domainauth.Credential) (domainauth.Identity, error) {
			return domainauth.Identity{}, &domainauth.Error{Kind: domainauth.KindServer, Op: "me", Status: http.StatusBadGateway}
		}

		_, err = s.RefreshIdentity(ctx)
		require.ErrorIs(t, err, domainauth.ErrServer)
		assert.Equal(t, domainauth.StateAuthenticated, s.Snapshot().State)
		cred, ok := store.Get(ctx)
		require.True(t, ok)
		assert.Equal(t, domainauth.Credential("tok1"), cred)
	})
}

func TestAuthSession_Invalidate(t *testing.T) {
	ctx := context.Background()
	client := newStubService()
	store := tokenstore.NewMemoryStore("")
	s := newSession(store, client, SessionExtras{})

	assert.False(t, s.Invalidate(ctx, "tok1"), "nothing to invalidate yet")

	_, err := s.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	_, err = s.Login(ctx, "ivanov", "pass")
	require.NoError(t, err)

	assert.False(t, s.Invalidate(ctx, "tok1"), "stale credential is ignored")
	assert.Equal(t, domainauth.Credential("tok2"), s.Snapshot().Credential)

	assert.True(t, s.Invalidate(ctx, "tok2"))
	assert.Equal(t, domainauth.StateUnauthenticated, s.Snapshot().State)
	_, ok := store.Get(ctx)
	assert.False(t, ok)
}

func TestAuthSession_TransitionsAreSerialised(t *testing.T) {
	ctx := context.Background()
	var inFlight, maxInFlight, issued atomic.Int32
	client := newStubService()
	client.LoginFunc = func(context.Context, string, string) (ports.LoginResult, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		cred := domainauth.Credential("tok-" + string(rune('a'+issued.Add(1)-1)))
		return ports.LoginResult{Credential: cred, Identity: testutil.AdminIdentity()}, nil
	}
	store := tokenstore.NewMemoryStore("")
	s := newSession(store, client, SessionExtras{})
	s.Bootstrap(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Login(ctx, "admin", "admin123")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, int32(5), issued.Load())

	snap := s.Snapshot()
	stored, ok := store.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, snap.Credential, stored, "store mirrors the last committed credential")
}

func TestAuthSession_QueuedLoginHonoursContext(t *testing.T) {
	client := newStubService()
	entered := make(chan struct{})
	unblock := make(chan struct{})
	client.LoginFunc = func(context.Context, string, string) (ports.LoginResult, error) {
		close(entered)
		<-unblock
		return ports.LoginResult{Credential: "tok1", Identity: testutil.AdminIdentity()}, nil
	}
	s := newSession(tokenstore.NewMemoryStore(""), client, SessionExtras{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), "admin", "admin123")
		done <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Login(ctx, "ivanov", "pass")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(unblock)
	require.NoError(t, <-done)
	assert.Equal(t, "admin", s.Snapshot().Identity.Username)
}

func TestAuthSession_CloseDiscardsLateResults(t *testing.T) {
	client := newStubService()
	entered := make(chan struct{})
	unblock := make(chan struct{})
	client.LoginFunc = func(context.Context, string, string) (ports.LoginResult, error) {
		close(entered)
		<-unblock
		return ports.LoginResult{Credential: "tok1", Identity: testutil.AdminIdentity()}, nil
	}
	store := &mockauth.RecordingTokenStore{TokenStore: tokenstore.NewMemoryStore("")}
	s := newSession(store, client, SessionExtras{})
	s.Bootstrap(context.Background())

	log := &stateLog{}
	s.Subscribe(log.record)

	done := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), "admin", "admin123")
		done <- err
	}()
	<-entered
	s.Close()
	close(unblock)

	require.ErrorIs(t, <-done, domainauth.ErrSessionClosed)
	assert.Equal(t, domainauth.StateUnauthenticated, s.Snapshot().State)
	assert.Empty(t, log.get())
	sets, _ := store.Writes()
	assert.Empty(t, sets)

	_, err := s.Login(context.Background(), "admin", "admin123")
	assert.ErrorIs(t, err, domainauth.ErrSessionClosed)
	_, err = s.RefreshIdentity(context.Background())
	assert.ErrorIs(t, err, domainauth.ErrSessionClosed)
	s.Close()
}

func TestAuthSession_CancelledBootstrapKeepsStoredCredential(t *testing.T) {
	client := newStubService()
	entered := make(chan struct{})
	client.FetchIdentityFunc = func(ctx context.Context, _ domainauth.Credential) (domainauth.Identity, error) {
		close(entered)
		<-ctx.Done()
		return domainauth.Identity{}, &domainauth.Error{Kind: domainauth.KindNetwork, Op: "me", Err: ctx.Err()}
	}
	store := &mockauth.RecordingTokenStore{TokenStore: tokenstore.NewMemoryStore("tok1")}
	s := newSession(store, client, SessionExtras{})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	<-entered
	cancel()

	require.NoError(t, s.WaitReady(context.Background()))
	assert.Equal(t, domainauth.StateUnauthenticated, s.Snapshot().State)
	cred, ok := store.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, domainauth.Credential("tok1"), cred)
	_, clears := store.Writes()
	assert.Zero(t, clears)
}

func TestAuthSession_WaitReadyAfterClose(t *testing.T) {
	s := newSession(tokenstore.NewMemoryStore(""), newStubService(), SessionExtras{})
	s.Close()
	assert.ErrorIs(t, s.WaitReady(context.Background()), domainauth.ErrSessionClosed)
}

func TestAuthSession_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := newSession(tokenstore.NewMemoryStore(""), newStubService(), SessionExtras{})

	first, second := &stateLog{}, &stateLog{}
	s.Subscribe(first.record)
	unsubscribe := s.Subscribe(second.record)
	assert.NotPanics(t, func() { s.Subscribe(nil)() })

	s.Bootstrap(ctx)
	unsubscribe()
	_, err := s.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	s.Logout(ctx)

	assert.Equal(t, []domainauth.State{
		domainauth.StateUnauthenticated,
		domainauth.StateAuthenticated,
		domainauth.StateUnauthenticated,
	}, first.get())
	assert.Equal(t, []domainauth.State{domainauth.StateUnauthenticated}, second.get())
}

func TestAuthSession_SubscribersSeeCommittedState(t *testing.T) {
	ctx := context.Background()
	s := newSession(tokenstore.NewMemoryStore(""), newStubService(), SessionExtras{})

	var seen []domainauth.Snapshot
	s.Subscribe(func(snap domainauth.Snapshot) {
		assert.Equal(t, snap, s.Snapshot())
		seen = append(seen, snap)
	})
	_, err := s.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, domainauth.Credential("tok1"), seen[0].Credential)
}

func TestAuthSession_Recorder(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecorder()
	s := newSession(tokenstore.NewMemoryStore(""), newStubService(), SessionExtras{Recorder: rec})

	s.Bootstrap(ctx)
	_, _ = s.Login(ctx, "admin", "wrong")
	_, err := s.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	s.Logout(ctx)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{
		"bootstrap:uninitialized->unauthenticated",
		"login:unauthenticated->authenticated",
		"logout:authenticated->unauthenticated",
	}, rec.transitions)
	assert.Equal(t, 2, rec.ops[TriggerLogin])
	assert.Equal(t, 1, rec.failed[TriggerLogin])
	assert.Equal(t, 1, rec.ops[TriggerBootstrap])
	assert.Equal(t, 1, rec.ops[TriggerLogout])
}

func TestAuthorizedTransport(t *testing.T) {
	ctx := context.Background()
	var rejected atomic.Bool
	feature := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rejected.Load() || r.Header.Get("Authorization") != "Bearer tok1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(feature.Close)

	store := tokenstore.NewMemoryStore("")
	s := newSession(store, newStubService(), SessionExtras{})
	client := s.Client(nil)

	_, err := client.Get(feature.URL)
	require.ErrorIs(t, err, domainauth.ErrTokenInvalid)

	_, err = s.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	resp, err := client.Get(feature.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, s.Snapshot().IsAuthenticated())

	rejected.Store(true)
	resp, err = client.Get(feature.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, domainauth.StateUnauthenticated, s.Snapshot().State)
	_, ok := store.Get(ctx)
	assert.False(t, ok)
}
