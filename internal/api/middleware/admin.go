package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/mbertozzi/storefront/internal/api/response"
)

// AdminAuth gates the root-scope admin surface behind a static bearer token.
// Admin routes sit outside tenant resolution: provisioning has no tenant of
// its own yet.
func AdminAuth(adminToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearerToken(r)
			if raw == "" || subtle.ConstantTimeCompare([]byte(raw), []byte(adminToken)) != 1 {
				response.Error(w, http.StatusUnauthorized,
					"INVALID_TOKEN", "Invalid admin token", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
