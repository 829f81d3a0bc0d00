package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kylasweb/soulseer-session-server/internal/model"
)

type NotificationRepository interface {
	FindByID(ctx context.Context, id string) (*model.Notification, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error)
	CountByUserID(ctx context.Context, userID string) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, params model.CreateNotificationParams) (*model.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	SoftDelete(ctx context.Context, id, userID string) (bool, error)
	// FindActiveUserIDs pages through distinct owners of recent sessions for
	// broadcast fan-out; afterID keys the page so batches never overlap.
	FindActiveUserIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

type notificationRepo struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := r.db.GetContext(ctx, &n, `
		SELECT * FROM notifications WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return HandleNotFound(&n, err)
}

func (r *notificationRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	var notifications []model.Notification
	err := r.db.SelectContext(ctx, &notifications, `
		SELECT * FROM notifications
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return notifications, err
}

func (r *notificationRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND deleted_at IS NULL
	`, userID)
	return count, err
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND read = FALSE AND deleted_at IS NULL
	`, userID)
	return count, err
}

func (r *notificationRepo) Create(ctx context.Context, params model.CreateNotificationParams) (*model.Notification, error) {
	var n model.Notification
	err := r.db.GetContext(ctx, &n, `
		INSERT INTO notifications (user_id, type, title, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.UserID, params.Type, params.Title, params.Message, params.Metadata)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, id, userID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE user_id = $1 AND read = FALSE AND deleted_at IS NULL
	`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *notificationRepo) SoftDelete(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET deleted_at = $3
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, id, userID, time.Now())
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

func (r *notificationRepo) FindActiveUserIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT u.id FROM users u
		JOIN sessions s ON u.id IN (s.client_id, s.reader_id)
		WHERE u.id > $1
		ORDER BY u.id ASC
		LIMIT $2
	`, afterID, limit)
	return ids, err
}
