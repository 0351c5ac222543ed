package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	staffKey  contextKey = "is_staff"
)

func SetUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func GetUserID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(userIDKey).(uuid.UUID)
	return id, ok
}

func setStaff(ctx context.Context, staff bool) context.Context {
	return context.WithValue(ctx, staffKey, staff)
}

func IsStaff(r *http.Request) bool {
	staff, _ := r.Context().Value(staffKey).(bool)
	return staff
}
