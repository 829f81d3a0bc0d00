package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kylasweb/soulseer-session-server/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindByParticipant(ctx context.Context, userID string, limit, offset int) ([]model.Session, error)
	CountByParticipant(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	// UpdateStatus moves a session to next only if it is still in expected,
	// reporting whether a row changed. The guard makes concurrent transition
	// requests settle on exactly one winner.
	UpdateStatus(ctx context.Context, id string, expected, next model.SessionStatus) (bool, error)
	SetStarted(ctx context.Context, id string, at time.Time) error
	SetEnded(ctx context.Context, id string, at time.Time) error
	SetRating(ctx context.Context, id string, rating int, feedback *string) error
	FindDueReminders(ctx context.Context, windowEnd time.Time, limit int) ([]model.Session, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
	FindOverdueScheduled(ctx context.Context, cutoff time.Time, limit int) ([]model.Session, error)
	MarkNoShow(ctx context.Context, id string) (bool, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionRepo struct {
	db sessionDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `SELECT * FROM sessions WHERE id = $1`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindByParticipant(ctx context.Context, userID string, limit, offset int) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		WHERE client_id = $1 OR reader_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return sessions, err
}

func (r *sessionRepo) CountByParticipant(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM sessions WHERE client_id = $1 OR reader_id = $1
	`, userID)
	return count, err
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions
			(client_id, reader_id, type, scheduled_at, duration_minutes,
			 rate_cents, total_cost_cents, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`, params.ClientID, params.ReaderID, params.Type, params.ScheduledAt,
		params.DurationMinutes, params.RateCents, params.TotalCostCents, params.Notes)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) UpdateStatus(ctx context.Context, id string, expected, next model.SessionStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = $3,
			updated_at = $4
		WHERE id = $1 AND status = $2
	`, id, expected, next, time.Now())
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

func (r *sessionRepo) SetStarted(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET started_at = $2, updated_at = $2 WHERE id = $1
	`, id, at)
	return err
}

func (r *sessionRepo) SetEnded(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at = $2, updated_at = $2 WHERE id = $1
	`, id, at)
	return err
}

func (r *sessionRepo) SetRating(ctx context.Context, id string, rating int, feedback *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET rating = $2, feedback = $3, updated_at = $4 WHERE id = $1
	`, id, rating, feedback, time.Now())
	return err
}

func (r *sessionRepo) FindDueReminders(ctx context.Context, windowEnd time.Time, limit int) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		WHERE status = 'scheduled'
		AND reminder_sent_at IS NULL
		AND scheduled_at BETWEEN NOW() AND $1
		ORDER BY scheduled_at ASC
		LIMIT $2
	`, windowEnd, limit)
	return sessions, err
}

func (r *sessionRepo) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET reminder_sent_at = $2, updated_at = $2 WHERE id = $1
	`, id, at)
	return err
}

func (r *sessionRepo) FindOverdueScheduled(ctx context.Context, cutoff time.Time, limit int) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		WHERE status = 'scheduled' AND scheduled_at < $1
		ORDER BY scheduled_at ASC
		LIMIT $2
	`, cutoff, limit)
	return sessions, err
}

func (r *sessionRepo) MarkNoShow(ctx context.Context, id string) (bool, error) {
	// Only the sweeper produces no_show; the guard keeps a session that
	// started in the meantime untouched.
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = 'no_show',
			updated_at = $2
		WHERE id = $1 AND status = 'scheduled'
	`, id, time.Now())
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}
