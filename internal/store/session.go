package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mbertozzi/storefront/pkg/models"
)

// session is the concrete Session bound to one schema-activated connection.
// All statements use unqualified table names and resolve through the active
// search_path.
type session struct {
	q querier
}

// --- Products ---

func (s *session) ListProducts(ctx context.Context) ([]*models.Product, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, name, description, price, is_active, created_at, updated_at
		 FROM products WHERE is_active ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (s *session) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := s.q.QueryRow(ctx,
		`SELECT id, name, description, price, is_active, created_at, updated_at
		 FROM products WHERE id = $1 AND is_active`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// ProductsByIDs fetches the given products in no particular order; callers
// that care about ranking (search rehydration) reorder by the id sequence.
func (s *session) ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Product, error) {
	if len(ids) == 0 {
		return []*models.Product{}, nil
	}
	rows, err := s.q.Query(ctx,
		`SELECT id, name, description, price, is_active, created_at, updated_at
		 FROM products WHERE id = ANY($1) AND is_active`, ids)
	if err != nil {
		return nil, fmt.Errorf("products by ids: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (s *session) CreateProduct(ctx context.Context, p *models.Product) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO products (id, name, description, price, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Description, p.Price, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (s *session) UpdateProduct(ctx context.Context, p *models.Product) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE products SET name = $2, description = $3, price = $4, is_active = $5, updated_at = $6
		 WHERE id = $1 AND is_active`,
		p.ID, p.Name, p.Description, p.Price, p.IsActive, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *session) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Users ---

func (s *session) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.q.QueryRow(ctx,
		`SELECT id, email, password_hash, is_staff, created_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsStaff, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user by email: %w", err)
	}
	return &u, nil
}

func (s *session) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, is_staff, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.PasswordHash, u.IsStaff, u.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *session) StaffUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.q.Query(ctx, `SELECT id FROM users WHERE is_staff`)
	if err != nil {
		return nil, fmt.Errorf("staff user ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Notifications ---

func (s *session) CreateNotifications(ctx context.Context, userIDs []uuid.UUID, message string, createdAt time.Time) error {
	for _, userID := range userIDs {
		_, err := s.q.Exec(ctx,
			`INSERT INTO notifications (id, user_id, message, created_at)
			 VALUES ($1, $2, $3, $4)`,
			uuid.New(), userID, message, createdAt)
		if err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
	}
	return nil
}

func (s *session) ListNotifications(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, user_id, message, read, created_at
		 FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var ns []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		ns = append(ns, &n)
	}
	return ns, rows.Err()
}

func scanProducts(rows pgx.Rows) ([]*models.Product, error) {
	var products []*models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, &p)
	}
	if products == nil {
		products = []*models.Product{}
	}
	return products, rows.Err()
}
