package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/clippilot-backend/internal/model"
)

type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	Upsert(ctx context.Context, u *model.User) error
}

type UserRepository struct {
	DB *sqlx.DB
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	query := `SELECT id, email, name, role, created_at FROM users WHERE id = $1`
	if err := conn(ctx, r.DB).GetContext(ctx, &u, query, id); err != nil {
		return nil, wrapErr("get user", "user", id, err)
	}
	return &u, nil
}

// Upsert records the identity provider's view of a member. The role column is
// owned by this application and is never overwritten here.
func (r *UserRepository) Upsert(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (id, email, name)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET
            email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
            name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name)
        RETURNING email, name, role, created_at
    `
	err := conn(ctx, r.DB).QueryRowxContext(ctx, query, u.ID, u.Email, u.Name).
		Scan(&u.Email, &u.Name, &u.Role, &u.CreatedAt)
	return wrapErr("upsert user", "user", u.ID, err)
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
