package model

import (
	"time"
)

// Session is one booked consultation between a client and a reader.
// Rows are never hard-deleted; terminal statuses keep them for history.
type Session struct {
	ID              string        `db:"id" json:"id"`
	ClientID        string        `db:"client_id" json:"clientId"`
	ReaderID        string        `db:"reader_id" json:"readerId"`
	Type            SessionType   `db:"type" json:"type"`
	Status          SessionStatus `db:"status" json:"status"`
	ScheduledAt     time.Time     `db:"scheduled_at" json:"scheduledAt"`
	StartedAt       *time.Time    `db:"started_at" json:"startedAt,omitempty"`
	EndedAt         *time.Time    `db:"ended_at" json:"endedAt,omitempty"`
	DurationMinutes int           `db:"duration_minutes" json:"durationMinutes"`
	RateCents       int64         `db:"rate_cents" json:"rateCents"`
	TotalCostCents  *int64        `db:"total_cost_cents" json:"totalCostCents,omitempty"`
	Notes           *string       `db:"notes" json:"notes,omitempty"`
	Rating          *int          `db:"rating" json:"rating,omitempty"`
	Feedback        *string       `db:"feedback" json:"feedback,omitempty"`
	ReminderSentAt  *time.Time    `db:"reminder_sent_at" json:"-"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`
}

// HasParticipant reports whether userID is the session's client or reader.
func (s *Session) HasParticipant(userID string) bool {
	return s.ClientID == userID || s.ReaderID == userID
}

// PeerOf returns the other participant of the session, or "" when userID
// is not a participant.
func (s *Session) PeerOf(userID string) string {
	switch userID {
	case s.ClientID:
		return s.ReaderID
	case s.ReaderID:
		return s.ClientID
	default:
		return ""
	}
}

// allowedTransitions is the full lifecycle table. A status absent from the
// map is terminal. NO_SHOW has no inbound edge here: only the overdue
// sweeper produces it, through a conditional repository update.
var allowedTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusScheduled:    {SessionStatusInProgress, SessionStatusCancelled},
	SessionStatusInProgress:   {SessionStatusCompleted, SessionStatusCancelled, SessionStatusDisconnected},
	SessionStatusDisconnected: {SessionStatusCompleted, SessionStatusCancelled},
}

// CanTransition reports whether the lifecycle table permits from -> to.
func CanTransition(from, to SessionStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type CreateSessionParams struct {
	ClientID        string
	ReaderID        string
	Type            SessionType
	ScheduledAt     time.Time
	DurationMinutes int
	RateCents       int64
	TotalCostCents  int64
	Notes           *string
}
