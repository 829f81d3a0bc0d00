package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kylasweb/soulseer-session-server/internal/model"
)

type WalletRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Wallet, error)
	CreateIfMissing(ctx context.Context, userID string) (*model.Wallet, error)
	Credit(ctx context.Context, userID string, amountCents int64) error
	// Debit subtracts amountCents only when the balance covers it,
	// reporting whether the row changed. Check and decrement are one
	// statement so concurrent debits cannot overdraw.
	Debit(ctx context.Context, userID string, amountCents int64) (bool, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) WalletRepository
}

type walletRepo struct {
	db sessionDB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &walletRepo{db: db}
}

func (r *walletRepo) WithTx(tx *sqlx.Tx) WalletRepository {
	return &walletRepo{db: tx}
}

func (r *walletRepo) FindByUserID(ctx context.Context, userID string) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.GetContext(ctx, &wallet, `SELECT * FROM wallets WHERE user_id = $1`, userID)
	return HandleNotFound(&wallet, err)
}

func (r *walletRepo) CreateIfMissing(ctx context.Context, userID string) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.GetContext(ctx, &wallet, `
		INSERT INTO wallets (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING *
	`, userID)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *walletRepo) Credit(ctx context.Context, userID string, amountCents int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE wallets SET
			balance_cents = balance_cents + $2,
			updated_at = $3
		WHERE user_id = $1
	`, userID, amountCents, time.Now())
	return err
}

func (r *walletRepo) Debit(ctx context.Context, userID string, amountCents int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE wallets SET
			balance_cents = balance_cents - $2,
			updated_at = $3
		WHERE user_id = $1 AND balance_cents >= $2
	`, userID, amountCents, time.Now())
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}
