package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "github.com/kylasweb/soulseer-session-server/internal/errors"
	"github.com/kylasweb/soulseer-session-server/internal/model"
)

func TestWalletService_Balance(t *testing.T) {
	t.Run("creates an empty wallet on first access", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		svc := NewWalletService(fakeTxRunner{}, walletRepo, new(mockTransactionRepo), &fakeNotifier{})

		ctx := context.Background()
		walletRepo.On("CreateIfMissing", ctx, "user-1").Return(&model.Wallet{UserID: "user-1", BalanceCents: 0}, nil)

		wallet, err := svc.Balance(ctx, "user-1")

		assert.NoError(t, err)
		assert.Equal(t, int64(0), wallet.BalanceCents)
		walletRepo.AssertExpectations(t)
	})
}

func TestWalletService_History(t *testing.T) {
	t.Run("returns transactions newest first with totals", func(t *testing.T) {
		txnRepo := new(mockTransactionRepo)
		svc := NewWalletService(fakeTxRunner{}, new(mockWalletRepo), txnRepo, &fakeNotifier{})

		ctx := context.Background()
		txnRepo.On("FindByUserID", ctx, "user-1", 20, 0).Return([]model.Transaction{
			{ID: "txn-2", AmountCents: -9000},
			{ID: "txn-1", AmountCents: 10000},
		}, nil)
		txnRepo.On("CountByUserID", ctx, "user-1").Return(2, nil)

		result, err := svc.History(ctx, "user-1", 0, 0)

		assert.NoError(t, err)
		assert.Len(t, result.Transactions, 2)
		assert.Equal(t, 2, result.Total)
		assert.False(t, result.HasMore)
		txnRepo.AssertExpectations(t)
	})

	t.Run("enforces max limit of 100", func(t *testing.T) {
		txnRepo := new(mockTransactionRepo)
		svc := NewWalletService(fakeTxRunner{}, new(mockWalletRepo), txnRepo, &fakeNotifier{})

		ctx := context.Background()
		txnRepo.On("FindByUserID", ctx, "user-1", 100, 0).Return([]model.Transaction{}, nil)
		txnRepo.On("CountByUserID", ctx, "user-1").Return(0, nil)

		_, err := svc.History(ctx, "user-1", 500, 0)

		assert.NoError(t, err)
		txnRepo.AssertExpectations(t)
	})
}

func TestWalletService_Purchase(t *testing.T) {
	t.Run("credits the wallet and records the purchase", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		txnRepo := new(mockTransactionRepo)
		notifier := &fakeNotifier{}
		svc := NewWalletService(fakeTxRunner{}, walletRepo, txnRepo, notifier)

		ctx := context.Background()
		walletRepo.On("CreateIfMissing", ctx, "user-1").Return(&model.Wallet{UserID: "user-1"}, nil)
		walletRepo.On("Credit", ctx, "user-1", int64(5000)).Return(nil)
		txnRepo.On("Create", ctx, mock.MatchedBy(func(p model.CreateTransactionParams) bool {
			return p.UserID == "user-1" && p.Type == model.TransactionTypePurchase && p.AmountCents == 5000
		})).Return(&model.Transaction{ID: "txn-1", AmountCents: 5000}, nil)

		txn, err := svc.Purchase(ctx, "user-1", 5000)

		assert.NoError(t, err)
		assert.Equal(t, "txn-1", txn.ID)
		assert.Len(t, notifier.callsFor("user-1"), 1)
		walletRepo.AssertExpectations(t)
		txnRepo.AssertExpectations(t)
	})

	t.Run("rejects a non-positive amount", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		svc := NewWalletService(fakeTxRunner{}, walletRepo, new(mockTransactionRepo), &fakeNotifier{})

		_, err := svc.Purchase(context.Background(), "user-1", 0)

		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
		walletRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository failure rolls up as database error", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		txnRepo := new(mockTransactionRepo)
		svc := NewWalletService(fakeTxRunner{}, walletRepo, txnRepo, &fakeNotifier{})

		ctx := context.Background()
		walletRepo.On("CreateIfMissing", ctx, "user-1").Return(nil, assert.AnError)

		_, err := svc.Purchase(ctx, "user-1", 5000)

		assert.Equal(t, apperrors.ErrCodeDatabase, apperrors.GetCode(err))
		txnRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
