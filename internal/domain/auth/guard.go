package auth

// GuardDecision is what a protected subtree should do for a given snapshot.
type GuardDecision int

const (
	// GuardWait renders a neutral placeholder; bootstrap has not resolved yet.
	GuardWait GuardDecision = iota
	// GuardRedirectLogin sends the caller to the login entry point.
	GuardRedirectLogin
	// GuardAllow renders the protected content.
	GuardAllow
)

func (d GuardDecision) String() string {
	switch d {
	case GuardWait:
		return "wait"
	case GuardRedirectLogin:
		return "redirect_login"
	case GuardAllow:
		return "allow"
	default:
		return "invalid"
	}
}

// Guard decides access for a snapshot. Role gating is not its concern.
func Guard(s Snapshot) GuardDecision {
	switch s.State {
	case StateAuthenticated:
		if s.IsAuthenticated() {
			return GuardAllow
		}
		return GuardRedirectLogin
	case StateUnauthenticated:
		return GuardRedirectLogin
	case StateUninitialized, StateLoading:
		return GuardWait
	default:
		return GuardWait
	}
}
