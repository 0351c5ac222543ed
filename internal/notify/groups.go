package notify

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// normalizeSchema makes a schema name safe for use inside a group name.
// Colons collide with the group separator conventions some transports use.
func normalizeSchema(schema string) string {
	return strings.ReplaceAll(schema, ":", "_")
}

// UserGroup returns the fan-out group for one user's notifications within a
// tenant. Subscriptions and publishes must both go through this so the two
// sides can never disagree on naming.
func UserGroup(schema string, userID uuid.UUID) string {
	return fmt.Sprintf("%s.user_notifications.%s", normalizeSchema(schema), userID)
}
