package httpx

import (
	"encoding/json"
	"net/http"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
)

type healthResponse struct {
	Status  string           `json:"status"`
	Session domainauth.State `json:"session"`
}

// healthHandler reports liveness plus the session state. It never fails on
// the session: a loading session is still a live process.
func healthHandler(sess SessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		// Nothing more to do if the client connection is gone.
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", Session: sess.Snapshot().State})
	}
}
