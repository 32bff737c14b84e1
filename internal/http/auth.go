package httpapi

import (
	"net/http"
	"strings"

	"safeshe-backend-go/internal/services"
)

// AttachAccessToken forwards the caller's access token, taken from the
// Authorization header or the token query parameter, to the live view
// policy. Requests without a token pass through untouched.
func AttachAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(services.WithAccessToken(r.Context(), token)))
	})
}

// Browsers cannot set headers on a websocket handshake, hence the query
// fallback.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
