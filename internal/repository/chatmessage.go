package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/kylasweb/soulseer-session-server/internal/model"
)

type ChatMessageRepository interface {
	FindByID(ctx context.Context, id string) (*model.ChatMessage, error)
	// FindBySessionID returns messages in persisted order; the room relies
	// on this for in-order history after an offline stretch.
	FindBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]model.ChatMessage, error)
	CountBySessionID(ctx context.Context, sessionID string) (int, error)
	CountUnreadForReceiver(ctx context.Context, sessionID, receiverID string) (int, error)
	Create(ctx context.Context, params model.CreateChatMessageParams) (*model.ChatMessage, error)
	MarkReadBySession(ctx context.Context, sessionID, receiverID string) (int64, error)
}

type chatMessageRepo struct {
	db *sqlx.DB
}

func NewChatMessageRepository(db *sqlx.DB) ChatMessageRepository {
	return &chatMessageRepo{db: db}
}

func (r *chatMessageRepo) FindByID(ctx context.Context, id string) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := r.db.GetContext(ctx, &msg, `SELECT * FROM chat_messages WHERE id = $1`, id)
	return HandleNotFound(&msg, err)
}

func (r *chatMessageRepo) FindBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, sessionID, limit, offset)
	return msgs, err
}

func (r *chatMessageRepo) CountBySessionID(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM chat_messages WHERE session_id = $1
	`, sessionID)
	return count, err
}

func (r *chatMessageRepo) CountUnreadForReceiver(ctx context.Context, sessionID, receiverID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM chat_messages
		WHERE session_id = $1 AND receiver_id = $2 AND read = FALSE
	`, sessionID, receiverID)
	return count, err
}

func (r *chatMessageRepo) Create(ctx context.Context, params model.CreateChatMessageParams) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO chat_messages (session_id, sender_id, receiver_id, content, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.SessionID, params.SenderID, params.ReceiverID, params.Content, params.Type)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *chatMessageRepo) MarkReadBySession(ctx context.Context, sessionID, receiverID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE chat_messages SET read = TRUE
		WHERE session_id = $1 AND receiver_id = $2 AND read = FALSE
	`, sessionID, receiverID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
