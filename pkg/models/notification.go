package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a persisted per-user message inside the tenant schema.
// Real-time delivery to live connections is best-effort; the row is the
// durable record.
type Notification struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	UserID    uuid.UUID `db:"user_id"    json:"user_id"`
	Message   string    `db:"message"    json:"message"`
	Read      bool      `db:"read"       json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
