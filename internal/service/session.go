package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	apperrors "github.com/kylasweb/soulseer-session-server/internal/errors"
	"github.com/kylasweb/soulseer-session-server/internal/model"
	"github.com/kylasweb/soulseer-session-server/internal/repository"
)

type BookSessionParams struct {
	ClientID        string
	ReaderID        string
	Type            model.SessionType
	ScheduledAt     time.Time
	DurationMinutes int
	RateCents       int64
	Notes           *string
}

type SessionListResult struct {
	Sessions []model.Session `json:"sessions"`
	Total    int             `json:"total"`
	HasMore  bool            `json:"hasMore"`
}

type SessionService struct {
	db          TxRunner
	sessionRepo repository.SessionRepository
	txnRepo     repository.TransactionRepository
	walletRepo  repository.WalletRepository
	userRepo    repository.UserRepository
	notifier    Notifier
	feePercent  int
}

func NewSessionService(
	db TxRunner,
	sessionRepo repository.SessionRepository,
	txnRepo repository.TransactionRepository,
	walletRepo repository.WalletRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	feePercent int,
) *SessionService {
	return &SessionService{
		db:          db,
		sessionRepo: sessionRepo,
		txnRepo:     txnRepo,
		walletRepo:  walletRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		feePercent:  feePercent,
	}
}

func (s *SessionService) Book(ctx context.Context, params BookSessionParams) (*model.Session, error) {
	if params.ClientID == params.ReaderID {
		return nil, apperrors.InvalidInput("readerId", "client cannot book themselves")
	}
	if params.DurationMinutes <= 0 {
		return nil, apperrors.InvalidInput("durationMinutes", "must be positive")
	}
	if params.RateCents < 0 {
		return nil, apperrors.InvalidInput("rateCents", "must not be negative")
	}

	reader, err := s.userRepo.FindByID(ctx, params.ReaderID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if reader == nil || reader.Role != model.RoleReader {
		return nil, apperrors.NotFound("Reader")
	}

	totalCost := params.RateCents * int64(params.DurationMinutes)
	session, err := s.sessionRepo.Create(ctx, model.CreateSessionParams{
		ClientID:        params.ClientID,
		ReaderID:        params.ReaderID,
		Type:            params.Type,
		ScheduledAt:     params.ScheduledAt,
		DurationMinutes: params.DurationMinutes,
		RateCents:       params.RateCents,
		TotalCostCents:  totalCost,
		Notes:           params.Notes,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("clientId", session.ClientID).
		Str("readerId", session.ReaderID).
		Int64("totalCostCents", totalCost).
		Msg("session booked")

	return session, nil
}

func (s *SessionService) Get(ctx context.Context, sessionID string, actor *model.User) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	if !session.HasParticipant(actor.ID) && !actor.IsAdmin() {
		return nil, apperrors.AccessDenied("Not a participant of this session")
	}
	return session, nil
}

func (s *SessionService) List(ctx context.Context, userID string, limit, offset int) (*SessionListResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	sessions, err := s.sessionRepo.FindByParticipant(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	total, err := s.sessionRepo.CountByParticipant(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	return &SessionListResult{
		Sessions: sessions,
		Total:    total,
		HasMore:  offset+len(sessions) < total,
	}, nil
}

// Start moves a session to IN_PROGRESS. Only the session's reader or an
// administrator may start it. The conditional status flip and the start
// timestamp land in one transaction.
func (s *SessionService) Start(ctx context.Context, sessionID string, actor *model.User) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	if actor.ID != session.ReaderID && !actor.IsAdmin() {
		return nil, apperrors.AccessDenied("Only the reader can start a session")
	}
	if !model.CanTransition(session.Status, model.SessionStatusInProgress) {
		return nil, apperrors.InvalidTransition(string(session.Status), string(model.SessionStatusInProgress))
	}

	now := time.Now()
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		sessions := s.sessionRepo.WithTx(tx)

		changed, err := sessions.UpdateStatus(ctx, session.ID, session.Status, model.SessionStatusInProgress)
		if err != nil {
			return apperrors.Database(err)
		}
		if !changed {
			// Lost a race with another transition.
			return apperrors.InvalidTransition(string(session.Status), string(model.SessionStatusInProgress))
		}
		if err := sessions.SetStarted(ctx, session.ID, now); err != nil {
			return apperrors.Database(err)
		}
		return nil
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("startedBy", actor.ID).
		Msg("session started")

	s.notifyBoth(ctx, session, model.NotificationTypeSessionStarted,
		"Session started", "Your session has started")

	session.Status = model.SessionStatusInProgress
	session.StartedAt = &now
	return session, nil
}

// Complete moves a session to COMPLETED and settles it: a session charge
// against the client, a payout to the reader minus the platform fee, and
// the matching wallet deltas, all inside one transaction. The conditional
// status update inside the same transaction guarantees settlement runs at
// most once per session.
func (s *SessionService) Complete(ctx context.Context, sessionID string, actor *model.User) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	if !session.HasParticipant(actor.ID) && !actor.IsAdmin() {
		return nil, apperrors.AccessDenied("Not a participant of this session")
	}
	if !model.CanTransition(session.Status, model.SessionStatusCompleted) {
		return nil, apperrors.InvalidTransition(string(session.Status), string(model.SessionStatusCompleted))
	}
	if session.TotalCostCents == nil || *session.TotalCostCents <= 0 {
		return nil, apperrors.PreconditionFailed("Session has no positive total cost to settle")
	}

	cost := *session.TotalCostCents
	payout := s.payoutCents(cost)
	now := time.Now()

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		sessions := s.sessionRepo.WithTx(tx)
		txns := s.txnRepo.WithTx(tx)
		wallets := s.walletRepo.WithTx(tx)

		changed, err := sessions.UpdateStatus(ctx, session.ID, session.Status, model.SessionStatusCompleted)
		if err != nil {
			return apperrors.Database(err)
		}
		if !changed {
			return apperrors.InvalidTransition(string(session.Status), string(model.SessionStatusCompleted))
		}
		if err := sessions.SetEnded(ctx, session.ID, now); err != nil {
			return apperrors.Database(err)
		}

		debited, err := wallets.Debit(ctx, session.ClientID, cost)
		if err != nil {
			return apperrors.Database(err)
		}
		if !debited {
			return apperrors.InsufficientFunds()
		}

		if _, err := wallets.CreateIfMissing(ctx, session.ReaderID); err != nil {
			return apperrors.Database(err)
		}
		if err := wallets.Credit(ctx, session.ReaderID, payout); err != nil {
			return apperrors.Database(err)
		}

		if _, err := txns.Create(ctx, model.CreateTransactionParams{
			UserID:      session.ClientID,
			Type:        model.TransactionTypeSessionCharge,
			AmountCents: -cost,
			Status:      model.TransactionStatusCompleted,
			SessionID:   &session.ID,
			Description: fmt.Sprintf("Charge for %s session", session.Type),
		}); err != nil {
			return apperrors.Database(err)
		}

		if _, err := txns.Create(ctx, model.CreateTransactionParams{
			UserID:      session.ReaderID,
			Type:        model.TransactionTypePayout,
			AmountCents: payout,
			Status:      model.TransactionStatusCompleted,
			SessionID:   &session.ID,
			Description: fmt.Sprintf("Payout for %s session (%d%% platform fee)", session.Type, s.feePercent),
		}); err != nil {
			return apperrors.Database(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sessionId", session.ID).
		Int64("chargeCents", cost).
		Int64("payoutCents", payout).
		Msg("session completed and settled")

	s.notifyBoth(ctx, session, model.NotificationTypeSessionEnded,
		"Session completed", "Your session has ended")
	s.notifyPayment(ctx, session.ClientID, session.ID, -cost)
	s.notifyPayment(ctx, session.ReaderID, session.ID, payout)

	session.Status = model.SessionStatusCompleted
	session.EndedAt = &now
	return session, nil
}

// Cancel moves a session to CANCELLED. An explicit refund credits the
// client's wallet and records a refund transaction, independent of any
// earlier charge.
func (s *SessionService) Cancel(ctx context.Context, sessionID string, actor *model.User, refundCents *int64) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	if !session.HasParticipant(actor.ID) && !actor.IsAdmin() {
		return nil, apperrors.AccessDenied("Not a participant of this session")
	}
	if !model.CanTransition(session.Status, model.SessionStatusCancelled) {
		return nil, apperrors.InvalidTransition(string(session.Status), string(model.SessionStatusCancelled))
	}
	if refundCents != nil && *refundCents <= 0 {
		return nil, apperrors.InvalidInput("refundCents", "must be positive when present")
	}

	now := time.Now()
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		sessions := s.sessionRepo.WithTx(tx)
		txns := s.txnRepo.WithTx(tx)
		wallets := s.walletRepo.WithTx(tx)

		changed, err := sessions.UpdateStatus(ctx, session.ID, session.Status, model.SessionStatusCancelled)
		if err != nil {
			return apperrors.Database(err)
		}
		if !changed {
			return apperrors.InvalidTransition(string(session.Status), string(model.SessionStatusCancelled))
		}
		if err := sessions.SetEnded(ctx, session.ID, now); err != nil {
			return apperrors.Database(err)
		}

		if refundCents != nil {
			if _, err := wallets.CreateIfMissing(ctx, session.ClientID); err != nil {
				return apperrors.Database(err)
			}
			if err := wallets.Credit(ctx, session.ClientID, *refundCents); err != nil {
				return apperrors.Database(err)
			}
			if _, err := txns.Create(ctx, model.CreateTransactionParams{
				UserID:      session.ClientID,
				Type:        model.TransactionTypeRefund,
				AmountCents: *refundCents,
				Status:      model.TransactionStatusCompleted,
				SessionID:   &session.ID,
				Description: "Refund for cancelled session",
			}); err != nil {
				return apperrors.Database(err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("cancelledBy", actor.ID).
		Bool("refunded", refundCents != nil).
		Msg("session cancelled")

	s.notifyBoth(ctx, session, model.NotificationTypeSessionEnded,
		"Session cancelled", "Your session was cancelled")
	if refundCents != nil {
		s.notifyPayment(ctx, session.ClientID, session.ID, *refundCents)
	}

	session.Status = model.SessionStatusCancelled
	session.EndedAt = &now
	return session, nil
}

// Disconnect records a mid-call connection drop. Called from the socket
// teardown path; an illegal transition just means the session was not
// live, which is not an error there.
func (s *SessionService) Disconnect(ctx context.Context, sessionID, userID string) error {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return apperrors.Database(err)
	}
	if session == nil || !session.HasParticipant(userID) {
		return nil
	}
	if !model.CanTransition(session.Status, model.SessionStatusDisconnected) {
		return nil
	}

	changed, err := s.sessionRepo.UpdateStatus(ctx, session.ID, session.Status, model.SessionStatusDisconnected)
	if err != nil {
		return apperrors.Database(err)
	}
	if changed {
		log.Info().
			Str("sessionId", session.ID).
			Str("userId", userID).
			Msg("session marked disconnected")
	}
	return nil
}

// Rate sets rating and feedback. Only the client or an administrator may
// rate, and only once the session is COMPLETED.
func (s *SessionService) Rate(ctx context.Context, sessionID string, actor *model.User, rating int, feedback *string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	if actor.ID != session.ClientID && !actor.IsAdmin() {
		return nil, apperrors.AccessDenied("Only the client can rate a session")
	}
	if session.Status != model.SessionStatusCompleted {
		return nil, apperrors.PreconditionFailed("Session must be completed before rating")
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.InvalidInput("rating", "must be between 1 and 5")
	}

	if err := s.sessionRepo.SetRating(ctx, session.ID, rating, feedback); err != nil {
		return nil, apperrors.Database(err)
	}

	if _, err := s.notifier.Notify(ctx, NotifyParams{
		UserID:  session.ReaderID,
		Type:    model.NotificationTypeNewReview,
		Title:   "New review",
		Message: fmt.Sprintf("You received a %d-star review", rating),
	}); err != nil {
		log.Warn().Err(err).Str("sessionId", session.ID).Msg("review notification failed")
	}

	session.Rating = &rating
	session.Feedback = feedback
	return session, nil
}

func (s *SessionService) payoutCents(cost int64) int64 {
	return cost * int64(100-s.feePercent) / 100
}

func (s *SessionService) notifyBoth(ctx context.Context, session *model.Session, typ model.NotificationType, title, message string) {
	metadata, _ := json.Marshal(map[string]string{"sessionId": session.ID})
	for _, userID := range []string{session.ClientID, session.ReaderID} {
		if _, err := s.notifier.Notify(ctx, NotifyParams{
			UserID:   userID,
			Type:     typ,
			Title:    title,
			Message:  message,
			Metadata: metadata,
		}); err != nil {
			log.Warn().Err(err).
				Str("sessionId", session.ID).
				Str("userId", userID).
				Msg("session notification failed")
		}
	}
}

func (s *SessionService) notifyPayment(ctx context.Context, userID, sessionID string, amountCents int64) {
	metadata, _ := json.Marshal(map[string]any{
		"sessionId":   sessionID,
		"amountCents": amountCents,
	})
	message := fmt.Sprintf("Your wallet was credited $%.2f", float64(amountCents)/100)
	if amountCents < 0 {
		message = fmt.Sprintf("Your wallet was charged $%.2f", float64(-amountCents)/100)
	}
	if _, err := s.notifier.Notify(ctx, NotifyParams{
		UserID:   userID,
		Type:     model.NotificationTypePayment,
		Title:    "Payment processed",
		Message:  message,
		Metadata: metadata,
	}); err != nil {
		log.Warn().Err(err).
			Str("sessionId", sessionID).
			Str("userId", userID).
			Msg("payment notification failed")
	}
}
