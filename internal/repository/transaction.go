package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/kylasweb/soulseer-session-server/internal/model"
)

type TransactionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Transaction, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error)
	CountByUserID(ctx context.Context, userID string) (int, error)
	FindBySessionID(ctx context.Context, sessionID string) ([]model.Transaction, error)
	Create(ctx context.Context, params model.CreateTransactionParams) (*model.Transaction, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) TransactionRepository
}

type transactionRepo struct {
	db sessionDB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) WithTx(tx *sqlx.Tx) TransactionRepository {
	return &transactionRepo{db: tx}
}

func (r *transactionRepo) FindByID(ctx context.Context, id string) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.GetContext(ctx, &txn, `SELECT * FROM transactions WHERE id = $1`, id)
	return HandleNotFound(&txn, err)
}

func (r *transactionRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := r.db.SelectContext(ctx, &txns, `
		SELECT * FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return txns, err
}

func (r *transactionRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM transactions WHERE user_id = $1
	`, userID)
	return count, err
}

func (r *transactionRepo) FindBySessionID(ctx context.Context, sessionID string) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := r.db.SelectContext(ctx, &txns, `
		SELECT * FROM transactions
		WHERE session_id = $1
		ORDER BY created_at ASC
	`, sessionID)
	return txns, err
}

func (r *transactionRepo) Create(ctx context.Context, params model.CreateTransactionParams) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.GetContext(ctx, &txn, `
		INSERT INTO transactions
			(user_id, type, amount_cents, status, session_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.UserID, params.Type, params.AmountCents, params.Status,
		params.SessionID, params.Description)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
