package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kylasweb/soulseer-session-server/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.User, error)
	SetTokenHash(ctx context.Context, id string, tokenHash *string) error
}

type userRepo struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE token_hash = $1`, tokenHash)
	return HandleNotFound(&user, err)
}

func (r *userRepo) SetTokenHash(ctx context.Context, id string, tokenHash *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET token_hash = $2, updated_at = $3 WHERE id = $1
	`, id, tokenHash, time.Now())
	return err
}
