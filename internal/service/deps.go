package service

import (
	"context"

	"github.com/kylasweb/soulseer-session-server/internal/database"
	"github.com/kylasweb/soulseer-session-server/internal/model"
	"github.com/kylasweb/soulseer-session-server/internal/sse"
	"github.com/kylasweb/soulseer-session-server/internal/ws"
)

// TxRunner scopes a function to one database transaction. *database.DB
// satisfies it; tests substitute a pass-through.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

var _ TxRunner = (*database.DB)(nil)

// Presence is the process-local connection registry consumed by the
// delivery paths. *ws.Hub satisfies it.
type Presence interface {
	IsOnline(userID string) bool
	SendToUser(userID string, event ws.Event) bool
}

var _ Presence = (*ws.Hub)(nil)

// Publisher carries notification-stream events across instances.
// *sse.Broker satisfies it.
type Publisher interface {
	Publish(ctx context.Context, userID string, event sse.Event) error
}

var _ Publisher = (*sse.Broker)(nil)

// Notifier decouples the lifecycle and wallet flows from the notification
// fan-out. *NotificationService satisfies it.
type Notifier interface {
	Notify(ctx context.Context, params NotifyParams) (*model.Notification, error)
}
