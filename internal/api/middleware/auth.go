package middleware

import (
	"net/http"
	"strings"

	"github.com/mbertozzi/storefront/internal/api/response"
	"github.com/mbertozzi/storefront/internal/auth"
	"github.com/mbertozzi/storefront/internal/tenancy"
)

// Auth validates user tokens against the tenant already resolved for the
// request. A token minted under one tenant never grants access under another.
type Auth struct {
	tokens *auth.TokenManager
}

func NewAuth(tokens *auth.TokenManager) *Auth {
	return &Auth{tokens: tokens}
}

// Authenticate validates the Bearer token, checks its tenant binding, and
// sets user_id and is_staff in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearerToken(r)
		if raw == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		claims, err := a.tokens.Parse(raw)
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid or expired token", nil)
			return
		}

		tc, ok := tenancy.FromContext(r.Context())
		if !ok || claims.TenantID != tc.TenantID.String() {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Token is not valid for this tenant", nil)
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid or expired token", nil)
			return
		}

		ctx := SetUserID(r.Context(), userID)
		ctx = setStaff(ctx, claims.Staff)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
