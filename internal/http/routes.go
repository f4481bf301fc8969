package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
)

// RouterServices holds everything the portal router needs.
type RouterServices struct {
	Session SessionService
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter creates the portal router. Middleware (recover, request id,
// logging) is applied by the caller.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", healthHandler(services.Session))
	mux.Handle("HEAD /healthz", healthHandler(services.Session))
	if services.Metrics != nil {
		mux.Handle("GET /metrics", services.Metrics)
	}

	authHandlers := &AuthHandlers{Session: services.Session, Logger: services.Logger}
	registerAuthRoutes(mux, authHandlers)
	registerSessionRoutes(mux, &SessionHandlers{Session: services.Session})
	registerViewRoutes(mux, services.Session)

	return mux
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	csrf := CSRFProtection()
	mux.Handle("GET /login", csrf(http.HandlerFunc(h.LoginPage)))
	mux.Handle("POST /login", csrf(http.HandlerFunc(h.Login)))
	mux.Handle("POST /logout", csrf(http.HandlerFunc(h.Logout)))
}

func registerSessionRoutes(mux *http.ServeMux, h *SessionHandlers) {
	guard := RequireSession(h.Session)
	mux.HandleFunc("GET /api/v1/session", h.Get)
	mux.Handle("POST /api/v1/session/refresh", guard(http.HandlerFunc(h.Refresh)))
}

type viewRoute struct {
	dest  domainauth.Destination
	name  string
	roles []domainauth.Role
}

// Views reachable from the role router. Only the admin panel is role-gated;
// the other views decide what to show by themselves.
var viewRoutes = []viewRoute{
	{dest: domainauth.DestinationAdminPanel, name: "admin_panel", roles: []domainauth.Role{domainauth.RoleAdmin}},
	{dest: domainauth.DestinationCustomerDashboard, name: "customer_dashboard"},
	{dest: domainauth.DestinationContractorDashboard, name: "contractor_dashboard"},
	{dest: domainauth.DestinationCalendar, name: "calendar"},
}

func registerViewRoutes(mux *http.ServeMux, sess SessionReader) {
	guard := RequireSession(sess)
	mux.Handle("GET /{$}", guard(http.HandlerFunc(Landing)))
	for _, v := range viewRoutes {
		h := View(v.name)
		if len(v.roles) > 0 {
			h = RequireRole(v.roles...)(h)
		}
		mux.Handle("GET "+string(v.dest), guard(h))
	}
}
