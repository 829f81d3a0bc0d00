package model

import (
	"encoding/json"
	"time"
)

// ChatMessage is persisted before any delivery attempt, so history always
// reflects send order even when the receiver was offline.
type ChatMessage struct {
	ID         string          `db:"id" json:"id"`
	SessionID  string          `db:"session_id" json:"sessionId"`
	SenderID   string          `db:"sender_id" json:"senderId"`
	ReceiverID string          `db:"receiver_id" json:"receiverId"`
	Content    string          `db:"content" json:"content"`
	Type       ChatMessageType `db:"type" json:"type"`
	Read       bool            `db:"read" json:"read"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// ToEventData returns the JSON payload pushed to the receiver's socket.
func (m *ChatMessage) ToEventData() json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"id":        m.ID,
		"sessionId": m.SessionID,
		"senderId":  m.SenderID,
		"content":   m.Content,
		"type":      m.Type,
		"createdAt": m.CreatedAt,
	})
	return data
}

type CreateChatMessageParams struct {
	SessionID  string
	SenderID   string
	ReceiverID string
	Content    string
	Type       ChatMessageType
}
