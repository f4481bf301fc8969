package auth

// State is the lifecycle position of a session.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "invalid"
	}
}

// MarshalText renders the state name for JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Resolved reports whether bootstrap has finished deciding the session.
func (s State) Resolved() bool {
	return s == StateAuthenticated || s == StateUnauthenticated
}

// Snapshot is an immutable view of a session.
// Identity and Credential are set if and only if State is StateAuthenticated.
type Snapshot struct {
	State      State
	Identity   Identity
	Credential Credential
}

// Uninitialized is the snapshot of a session that has not bootstrapped yet.
func Uninitialized() Snapshot { return Snapshot{State: StateUninitialized} }

// Loading is the snapshot while a stored credential is being validated.
func Loading() Snapshot { return Snapshot{State: StateLoading} }

// Unauthenticated is the snapshot of a resolved, logged-out session.
func Unauthenticated() Snapshot { return Snapshot{State: StateUnauthenticated} }

// Authenticated builds the snapshot of a logged-in session.
func Authenticated(id Identity, cred Credential) Snapshot {
	return Snapshot{State: StateAuthenticated, Identity: id, Credential: cred}
}

// IsAuthenticated reports whether the snapshot carries a validated identity.
func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated && !s.Credential.IsZero()
}
