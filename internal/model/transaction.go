package model

import "time"

// Transaction is an immutable ledger entry. Amounts are signed integer
// cents: debits negative, credits positive. Rows are created by settlement
// and purchase flows and never rewritten; only status moves
// pending -> completed/failed.
type Transaction struct {
	ID          string            `db:"id" json:"id"`
	UserID      string            `db:"user_id" json:"userId"`
	Type        TransactionType   `db:"type" json:"type"`
	AmountCents int64             `db:"amount_cents" json:"amountCents"`
	Status      TransactionStatus `db:"status" json:"status"`
	SessionID   *string           `db:"session_id" json:"sessionId,omitempty"`
	Description string            `db:"description" json:"description"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
}

type CreateTransactionParams struct {
	UserID      string
	Type        TransactionType
	AmountCents int64
	Status      TransactionStatus
	SessionID   *string
	Description string
}

// Wallet holds one user's balance in integer cents. Balance never goes
// negative: debits are conditional at the persistence layer.
type Wallet struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"userId"`
	BalanceCents int64     `db:"balance_cents" json:"balanceCents"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
