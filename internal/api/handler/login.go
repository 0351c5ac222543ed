package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mbertozzi/storefront/internal/api/response"
	"github.com/mbertozzi/storefront/internal/auth"
	"github.com/mbertozzi/storefront/internal/store"
	"github.com/mbertozzi/storefront/pkg/models"
)

// NewLoginHandler returns the handler for POST /api/v1/auth/login. Users live
// inside the tenant's schema, so the same email can exist independently under
// two tenants. Bad email and bad password get the same answer.
func NewLoginHandler(tenants store.TenantStore, tokens *auth.TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Email == "" || req.Password == "" {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "email and password are required", nil)
			return
		}

		var user *models.User
		err := tenants.WithSchema(r.Context(), tc.Schema, func(sess store.Session) error {
			var err error
			user, err = sess.UserByEmail(r.Context(), req.Email)
			return err
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusUnauthorized,
					"INVALID_CREDENTIALS", "Invalid email or password", nil)
				return
			}
			slog.Error("login lookup failed", "schema", tc.Schema, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Login failed", nil)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_CREDENTIALS", "Invalid email or password", nil)
			return
		}

		token, err := tokens.Issue(user.ID, tc.TenantID, user.IsStaff)
		if err != nil {
			slog.Error("token issue failed", "schema", tc.Schema, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Login failed", nil)
			return
		}

		response.JSON(w, map[string]any{
			"token":    token,
			"user_id":  user.ID,
			"is_staff": user.IsStaff,
		})
	}
}
