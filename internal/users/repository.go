package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/erp-api/internal/auth"
	"github.com/odyssey-erp/erp-api/internal/platform/db"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Repository exposes account administration queries.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]auth.User, int, error)
	Get(ctx context.Context, id int64) (*auth.User, error)
	Update(ctx context.Context, user *auth.User) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filter ListFilter) ([]auth.User, int, error) {
	var cond db.Conditions
	cond.AddSearch(filter.Search, "name", "email")
	if filter.Role != "" {
		cond.Add("role = $%d", string(filter.Role))
	}
	if filter.IsActive != nil {
		cond.Add("is_active = $%d", *filter.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+cond.Where(), cond.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	page, args := cond.Page(filter.Limit, filter.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users`+cond.Where()+` ORDER BY created_at DESC, id DESC`+page, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]auth.User, 0)
	for rows.Next() {
		u, err := auth.ScanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*auth.User, error) {
	u, err := auth.ScanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.NotFound("User not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *repository) Update(ctx context.Context, user *auth.User) error {
	err := r.pool.QueryRow(ctx, `UPDATE users SET name = $2, role = $3, is_active = $4, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`,
		user.ID, user.Name, string(user.Role), user.IsActive,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return shared.NotFound("User not found")
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}
