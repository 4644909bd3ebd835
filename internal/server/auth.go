package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// authMiddleware accepts either the scheduler's bearer secret or the manual
// debug key. Returns 401 if both fail.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token := strings.TrimPrefix(auth, "Bearer ")
			if secretsEqual(token, s.cronSecret) {
				next.ServeHTTP(w, r)
				return
			}
		}

		if key := r.Header.Get("X-Debug-Key"); key != "" && secretsEqual(key, s.debugKey) {
			next.ServeHTTP(w, r)
			return
		}

		writeError(w, http.StatusUnauthorized, "unauthorized")
	})
}

func secretsEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
