package tenancy

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Context is the resolved tenant identity for one request or connection.
// It is created once at resolution time and read-only afterwards; it is
// carried on the request's context.Context and never shared across requests.
type Context struct {
	TenantID uuid.UUID
	Schema   string
}

type ctxKey struct{}

// WithContext returns a child context carrying the resolved tenant.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext extracts the resolved tenant from the context.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// ParseHost normalizes a Host header value for registry lookup: the port is
// stripped and the hostname lowercased. Returns "" for an empty header.
func ParseHost(hostport string) string {
	host := hostport
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return strings.ToLower(strings.TrimSpace(host))
}
