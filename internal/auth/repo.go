package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/erp-api/internal/platform/db"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateProfile(ctx context.Context, user *User) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, is_active, created_at, updated_at`

// ScanUser reads a row selected with userColumns.
func ScanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = shared.Role(role)
	return &u, nil
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := ScanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.NotFound("User not found")
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	user, err := ScanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.NotFound("User not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// Create inserts the user and fills in generated columns.
func (r *PGRepository) Create(ctx context.Context, user *User) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO users (name, email, password_hash, role, is_active)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at`,
		user.Name, user.Email, user.PasswordHash, string(user.Role), user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return shared.Conflict("User already exists")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdateProfile persists name, email and password hash.
func (r *PGRepository) UpdateProfile(ctx context.Context, user *User) error {
	err := r.pool.QueryRow(ctx, `UPDATE users SET name = $2, email = $3, password_hash = $4, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`,
		user.ID, user.Name, user.Email, user.PasswordHash,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return shared.NotFound("User not found")
		}
		if db.IsUniqueViolation(err, "users_email_key") {
			return shared.Conflict("User already exists")
		}
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
