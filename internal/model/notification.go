package model

import (
	"encoding/json"
	"time"
)

type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"userId"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	Metadata  *json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	DeletedAt *time.Time       `db:"deleted_at" json:"-"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

// ToEventData returns the JSON payload pushed on the notification stream.
func (n *Notification) ToEventData() json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"id":        n.ID,
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"metadata":  n.Metadata,
		"createdAt": n.CreatedAt,
	})
	return data
}

type CreateNotificationParams struct {
	UserID   string
	Type     NotificationType
	Title    string
	Message  string
	Metadata json.RawMessage
}
