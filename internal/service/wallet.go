package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	apperrors "github.com/kylasweb/soulseer-session-server/internal/errors"
	"github.com/kylasweb/soulseer-session-server/internal/model"
	"github.com/kylasweb/soulseer-session-server/internal/repository"
)

type TransactionListResult struct {
	Transactions []model.Transaction `json:"transactions"`
	Total        int                 `json:"total"`
	HasMore      bool                `json:"hasMore"`
}

type WalletService struct {
	db         TxRunner
	walletRepo repository.WalletRepository
	txnRepo    repository.TransactionRepository
	notifier   Notifier
}

func NewWalletService(
	db TxRunner,
	walletRepo repository.WalletRepository,
	txnRepo repository.TransactionRepository,
	notifier Notifier,
) *WalletService {
	return &WalletService{
		db:         db,
		walletRepo: walletRepo,
		txnRepo:    txnRepo,
		notifier:   notifier,
	}
}

// Balance returns the wallet, creating an empty one on first access.
func (s *WalletService) Balance(ctx context.Context, userID string) (*model.Wallet, error) {
	wallet, err := s.walletRepo.CreateIfMissing(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return wallet, nil
}

func (s *WalletService) History(ctx context.Context, userID string, limit, offset int) (*TransactionListResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	transactions, err := s.txnRepo.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	total, err := s.txnRepo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	return &TransactionListResult{
		Transactions: transactions,
		Total:        total,
		HasMore:      offset+len(transactions) < total,
	}, nil
}

// Purchase credits the wallet and records a purchase transaction in one
// database transaction, so the ledger and the balance never disagree.
func (s *WalletService) Purchase(ctx context.Context, userID string, amountCents int64) (*model.Transaction, error) {
	if amountCents <= 0 {
		return nil, apperrors.InvalidInput("amountCents", "must be positive")
	}

	var txn *model.Transaction
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.walletRepo.WithTx(tx).CreateIfMissing(ctx, userID); err != nil {
			return err
		}
		if err := s.walletRepo.WithTx(tx).Credit(ctx, userID, amountCents); err != nil {
			return err
		}
		created, err := s.txnRepo.WithTx(tx).Create(ctx, model.CreateTransactionParams{
			UserID:      userID,
			Type:        model.TransactionTypePurchase,
			AmountCents: amountCents,
			Status:      model.TransactionStatusCompleted,
			Description: "Wallet top-up",
		})
		if err != nil {
			return err
		}
		txn = created
		return nil
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("userId", userID).
		Int64("amountCents", amountCents).
		Msg("wallet top-up completed")

	if s.notifier != nil {
		if _, err := s.notifier.Notify(ctx, NotifyParams{
			UserID:  userID,
			Type:    model.NotificationTypePayment,
			Title:   "Payment received",
			Message: "Your wallet top-up was applied.",
		}); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("failed to notify top-up")
		}
	}

	return txn, nil
}
