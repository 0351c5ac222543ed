package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// schemaNameRE is the only shape of schema name the accessor will activate.
// Anything else is rejected before a connection is borrowed.
var schemaNameRE = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidSchemaName reports whether name is acceptable as a tenant schema.
func ValidSchemaName(name string) bool {
	return schemaNameRE.MatchString(name)
}

// querier is the subset of pgx operations a session runs. Both *pgxpool.Conn
// and pgx.Tx satisfy it.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithSchema borrows one connection from the pool, activates the tenant
// schema on it, and runs fn against a Session bound to that connection. The
// search_path is restored before the connection returns to the pool on every
// exit path; a connection whose search_path cannot be restored is destroyed
// rather than reused, so a pooled connection is never seen by another tenant
// with a foreign schema active.
func (s *PostgresStore) WithSchema(ctx context.Context, schema string, fn func(sess Session) error) error {
	if !ValidSchemaName(schema) {
		return fmt.Errorf("%w: %q", ErrInvalidSchema, schema)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}

	ident := pgx.Identifier{schema}.Sanitize()
	if _, err := conn.Exec(ctx, "SET search_path TO "+ident+", public"); err != nil {
		conn.Release()
		return fmt.Errorf("%w: %v", ErrSchemaActivation, err)
	}

	defer func() {
		// Restore the default search_path even when ctx is already done.
		reset := context.WithoutCancel(ctx)
		if _, rerr := conn.Exec(reset, "SET search_path TO public"); rerr != nil {
			_ = conn.Hijack().Close(context.Background())
			return
		}
		conn.Release()
	}()

	return fn(&session{q: conn})
}
