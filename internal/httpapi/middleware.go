package httpapi

import (
	"net/http"

	"github.com/jgirmay/dtq/internal/apperrors"
)

// requireAPIKey validates the shared-secret X-API-Key header against
// want, rejecting with 401 on mismatch. It injects nothing into the
// request context: the coordination core has no per-caller identity
// beyond worker_id, which travels in the request body instead.
func requireAPIKey(want string, errHandler *apperrors.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" || key != want {
				errHandler.Handle(w, apperrors.AuthenticationErrorf("INVALID_API_KEY", "invalid or missing API key"), traceID(r))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
