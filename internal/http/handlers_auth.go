package httpx

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
)

// SessionService is the part of service.AuthSession the portal drives.
type SessionService interface {
	SessionReader
	Login(ctx context.Context, username, password string) (domainauth.Identity, error)
	Logout(ctx context.Context)
	RefreshIdentity(ctx context.Context) (domainauth.Identity, error)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Session SessionService
	Logger  *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Next     string `json:"next,omitempty"`
}

// LoginResponse is returned to JSON clients after a successful login or refresh.
type LoginResponse struct {
	Identity    domainauth.Identity    `json:"identity"`
	Destination domainauth.Destination `json:"destination"`
}

var loginPage = template.Must(template.New("login").Parse(`<!doctype html>
<html lang="ru"><head><meta charset="utf-8"><title>Felix: sign in</title></head>
<body>
{{- if .Error}}<p role="alert">{{.Error}}</p>{{end}}
<form method="post" action="/login">
<input type="hidden" name="csrf_token" value="{{.CSRF}}">
<input type="hidden" name="next" value="{{.Next}}">
<label>Username <input name="username" autocomplete="username" required></label>
<label>Password <input name="password" type="password" autocomplete="current-password" required></label>
<button type="submit">Sign in</button>
</form>
</body></html>
`))

var loginErrorText = map[string]string{
	string(domainauth.KindInvalidCredentials): "Incorrect username or password.",
	string(domainauth.KindNetwork):            "The identity service is unreachable. Try again.",
	string(domainauth.KindServer):             "The identity service failed. Try again.",
	"no_landing":                              "Your role has no landing page in this portal.",
}

// LoginPage renders the sign-in form. Authenticated users with a landing
// page are sent there instead.
// GET /login?next=<optional>&error=<optional>.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	errText := loginErrorText[q.Get("error")]
	if snap := h.Session.Snapshot(); snap.IsAuthenticated() {
		if dest := domainauth.Route(snap.Identity); dest != domainauth.DestinationLogin {
			http.Redirect(w, r, string(dest), http.StatusFound)
			return
		}
		errText = loginErrorText["no_landing"]
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err := loginPage.Execute(w, struct{ Error, Next, CSRF string }{
		Error: errText,
		Next:  nextParam(q.Get("next")),
		CSRF:  CSRFToken(r),
	})
	if err != nil {
		h.logger().Error("render login page", "error", err)
	}
}

// Login handles credential submission as JSON or an HTML form.
// POST /login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	isJSON := isJSONRequest(r)
	var in loginInput
	if isJSON {
		if !DecodeJSON(w, r, &in) {
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
			return
		}
		in = loginInput{
			Username: r.PostFormValue("username"),
			Password: r.PostFormValue("password"),
			Next:     r.PostFormValue("next"),
		}
	}

	id, err := h.Session.Login(r.Context(), strings.TrimSpace(in.Username), in.Password)
	if err != nil {
		h.logger().InfoContext(r.Context(), "login failed",
			"username", in.Username,
			"kind", string(domainauth.KindOf(err)),
			"error", err,
		)
		if isJSON {
			writeSessionError(w, err)
			return
		}
		u := url.URL{Path: string(domainauth.DestinationLogin)}
		q := url.Values{"error": {errorCode(err)}}
		if next := nextParam(in.Next); next != "" {
			q.Set("next", next)
		}
		u.RawQuery = q.Encode()
		http.Redirect(w, r, u.String(), http.StatusSeeOther)
		return
	}

	dest := domainauth.Route(id)
	if isJSON {
		WriteJSON(w, http.StatusOK, LoginResponse{Identity: id, Destination: dest})
		return
	}
	target := string(dest)
	if next := nextParam(in.Next); next != "" && dest != domainauth.DestinationLogin {
		target = next
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Logout ends the session. It always succeeds.
// POST /logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Session.Logout(r.Context())
	if isJSONRequest(r) || !isBrowserRequest(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, string(domainauth.DestinationLogin), http.StatusSeeOther)
}

// nextParam returns candidate when it is a safe in-portal path other than
// the login page itself, else "".
func nextParam(candidate string) string {
	next := safeRedirectPath(candidate)
	if next == "/" || strings.HasPrefix(next, string(domainauth.DestinationLogin)) {
		return ""
	}
	return next
}

func isJSONRequest(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// errorCode maps a session error onto a stable response code.
func errorCode(err error) string {
	if kind := domainauth.KindOf(err); kind != "" {
		return string(kind)
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "session_busy"
	case errors.Is(err, domainauth.ErrSessionClosed):
		return "session_closed"
	default:
		return "internal_error"
	}
}

// writeSessionError writes a session error as JSON with a matching status.
func writeSessionError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch domainauth.KindOf(err) {
	case domainauth.KindInvalidCredentials, domainauth.KindTokenInvalid:
		code = http.StatusUnauthorized
	case domainauth.KindNetwork, domainauth.KindServer:
		code = http.StatusBadGateway
	default:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, domainauth.ErrSessionClosed) {
			code = http.StatusServiceUnavailable
		}
	}
	WriteError(w, ErrorParams{Code: code, ErrCode: errorCode(err), Err: err})
}
