package service

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	apperrors "github.com/kylasweb/soulseer-session-server/internal/errors"
	"github.com/kylasweb/soulseer-session-server/internal/model"
	"github.com/kylasweb/soulseer-session-server/internal/repository"
	"github.com/kylasweb/soulseer-session-server/internal/sse"
	"github.com/kylasweb/soulseer-session-server/internal/ws"
)

type NotifyParams struct {
	UserID   string
	Type     model.NotificationType
	Title    string
	Message  string
	Metadata json.RawMessage
}

type NotificationListResult struct {
	Notifications []model.Notification `json:"notifications"`
	Total         int                  `json:"total"`
	Unread        int                  `json:"unread"`
	HasMore       bool                 `json:"hasMore"`
}

type NotificationService struct {
	repo      repository.NotificationRepository
	publisher Publisher
	presence  Presence
	batchSize int
}

func NewNotificationService(
	repo repository.NotificationRepository,
	publisher Publisher,
	presence Presence,
	batchSize int,
) *NotificationService {
	return &NotificationService{
		repo:      repo,
		publisher: publisher,
		presence:  presence,
		batchSize: batchSize,
	}
}

var _ Notifier = (*NotificationService)(nil)

// Notify persists the notification, then attempts real-time delivery: once
// on the user's notification stream, once on their session socket if
// connected, plus an updated unread count. Delivery failures are logged,
// never surfaced; the row is already durable.
func (s *NotificationService) Notify(ctx context.Context, params NotifyParams) (*model.Notification, error) {
	if params.UserID == "" {
		return nil, apperrors.MissingRequired("userId")
	}
	if params.Title == "" {
		return nil, apperrors.MissingRequired("title")
	}

	var metadata json.RawMessage
	if len(params.Metadata) > 0 {
		metadata = params.Metadata
	}

	notification, err := s.repo.Create(ctx, model.CreateNotificationParams{
		UserID:   params.UserID,
		Type:     params.Type,
		Title:    params.Title,
		Message:  params.Message,
		Metadata: metadata,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Debug().
		Str("notificationId", notification.ID).
		Str("userId", params.UserID).
		Str("type", string(params.Type)).
		Msg("notification created")

	s.deliver(ctx, notification)

	return notification, nil
}

func (s *NotificationService) deliver(ctx context.Context, n *model.Notification) {
	event := sse.Event{Type: "notification", Data: n.ToEventData()}
	if err := s.publisher.Publish(ctx, n.UserID, event); err != nil {
		log.Warn().Err(err).Str("userId", n.UserID).Msg("notification publish failed")
	}

	if s.presence.IsOnline(n.UserID) {
		s.presence.SendToUser(n.UserID, ws.Event{Type: "notification", Data: n.ToEventData()})
	}

	unread, err := s.repo.CountUnread(ctx, n.UserID)
	if err != nil {
		log.Warn().Err(err).Str("userId", n.UserID).Msg("unread count failed")
		return
	}
	countData, _ := json.Marshal(map[string]int{"unread": unread})
	if err := s.publisher.Publish(ctx, n.UserID, sse.Event{Type: "notification:unread", Data: countData}); err != nil {
		log.Warn().Err(err).Str("userId", n.UserID).Msg("unread publish failed")
	}
}

func (s *NotificationService) List(ctx context.Context, userID string, limit, offset int) (*NotificationListResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	notifications, err := s.repo.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	total, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	return &NotificationListResult{
		Notifications: notifications,
		Total:         total,
		Unread:        unread,
		HasMore:       offset+len(notifications) < total,
	}, nil
}

func (s *NotificationService) CountUnread(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	return count, nil
}

// MarkRead flips the read flag on the owner's notification. A notification
// owned by someone else is indistinguishable from a missing one.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	changed, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return apperrors.Database(err)
	}
	if !changed {
		return apperrors.NotFound("Notification")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	return count, nil
}

func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	changed, err := s.repo.SoftDelete(ctx, id, userID)
	if err != nil {
		return apperrors.Database(err)
	}
	if !changed {
		return apperrors.NotFound("Notification")
	}
	return nil
}

// BroadcastAll fans one notification out to every active user in bounded
// batches, so a large user set cannot swamp the database. Intended to run
// off the request path.
func (s *NotificationService) BroadcastAll(ctx context.Context, typ model.NotificationType, title, message string, metadata json.RawMessage) (int, error) {
	sent := 0
	afterID := ""

	for {
		ids, err := s.repo.FindActiveUserIDs(ctx, afterID, s.batchSize)
		if err != nil {
			return sent, apperrors.Database(err)
		}
		if len(ids) == 0 {
			return sent, nil
		}

		for _, userID := range ids {
			if _, err := s.Notify(ctx, NotifyParams{
				UserID:   userID,
				Type:     typ,
				Title:    title,
				Message:  message,
				Metadata: metadata,
			}); err != nil {
				log.Warn().Err(err).Str("userId", userID).Msg("broadcast notification failed")
				continue
			}
			sent++
		}

		afterID = ids[len(ids)-1]
		log.Debug().
			Int("batch", len(ids)).
			Int("sent", sent).
			Str("cursor", afterID).
			Msg("broadcast batch complete")
	}
}
