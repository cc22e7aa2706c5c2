package router

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const serviceTokenHeader = "X-Service-Token"

// requireServiceToken guards internal relay endpoints used by trusted station services.
// When expected is empty the routes are closed.
func requireServiceToken(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(serviceTokenHeader))
			if expected == "" || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				http.Error(w, "invalid service token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
