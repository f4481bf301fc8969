package httpx

import (
	"net/http"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
)

// SessionHandlers exposes the session state to the front-end.
type SessionHandlers struct {
	Session SessionService
}

// SessionResponse describes the session without ever including the credential.
type SessionResponse struct {
	State       domainauth.State        `json:"state"`
	Identity    *domainauth.Identity    `json:"identity,omitempty"`
	Destination *domainauth.Destination `json:"destination,omitempty"`
}

func sessionResponse(snap domainauth.Snapshot) SessionResponse {
	out := SessionResponse{State: snap.State}
	if snap.IsAuthenticated() {
		id := snap.Identity
		dest := domainauth.Route(id)
		out.Identity = &id
		out.Destination = &dest
	}
	return out
}

// Get reports the current session state. It is not guarded so clients can
// poll it while bootstrap is running.
// GET /api/v1/session.
func (h *SessionHandlers) Get(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, sessionResponse(h.Session.Snapshot()))
}

// Refresh re-reads the identity for the current credential.
// POST /api/v1/session/refresh.
func (h *SessionHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	id, err := h.Session.RefreshIdentity(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if id.IsZero() {
		// The session ended while the request was queued.
		WriteJSON(w, http.StatusOK, sessionResponse(h.Session.Snapshot()))
		return
	}
	WriteJSON(w, http.StatusOK, LoginResponse{Identity: id, Destination: domainauth.Route(id)})
}

// Landing sends an authenticated user to the view for their role.
// GET /.
func Landing(w http.ResponseWriter, r *http.Request) {
	id, ok := GetIdentityFromContext(r.Context())
	if !ok {
		redirectToLogin(w, r)
		return
	}
	dest := domainauth.Route(id)
	if dest == domainauth.DestinationLogin {
		http.Redirect(w, r, string(dest)+"?error=no_landing", http.StatusFound)
		return
	}
	http.Redirect(w, r, string(dest), http.StatusFound)
}

// viewPayload is what the view placeholders return; page rendering lives in
// the front-end.
type viewPayload struct {
	View        string `json:"view"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// View returns a handler acknowledging access to a protected view.
func View(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := GetIdentityFromContext(r.Context())
		WriteJSON(w, http.StatusOK, viewPayload{View: name, DisplayName: id.DisplayName(), Role: string(id.Role)})
	})
}
