package handler

import (
	"log/slog"
	"net/http"

	mw "github.com/mbertozzi/storefront/internal/api/middleware"
	"github.com/mbertozzi/storefront/internal/api/response"
	"github.com/mbertozzi/storefront/internal/store"
	"github.com/mbertozzi/storefront/pkg/models"
)

// NewListNotificationsHandler returns the handler for GET /api/v1/notifications.
// The websocket push is best effort; this is where a user catches up on what
// they missed while offline.
func NewListNotificationsHandler(tenants store.TenantStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing user", nil)
			return
		}

		var notifications []*models.Notification
		err := tenants.WithSchema(r.Context(), tc.Schema, func(sess store.Session) error {
			var err error
			notifications, err = sess.ListNotifications(r.Context(), userID)
			return err
		})
		if err != nil {
			slog.Error("list notifications failed", "schema", tc.Schema, "user_id", userID, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to list notifications", nil)
			return
		}

		response.JSON(w, notifications)
	}
}
