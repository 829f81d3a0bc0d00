package service

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/kylasweb/soulseer-session-server/internal/config"
	apperrors "github.com/kylasweb/soulseer-session-server/internal/errors"
	"github.com/kylasweb/soulseer-session-server/internal/model"
	"github.com/kylasweb/soulseer-session-server/internal/repository"
	"github.com/kylasweb/soulseer-session-server/internal/ws"
)

type SendMessageParams struct {
	SessionID string
	SenderID  string
	Content   string
	Type      model.ChatMessageType
}

type ChatHistoryResult struct {
	Messages []model.ChatMessage `json:"messages"`
	Total    int                 `json:"total"`
	Unread   int                 `json:"unread"`
	HasMore  bool                `json:"hasMore"`
}

type ChatService struct {
	messageRepo repository.ChatMessageRepository
	sessionRepo repository.SessionRepository
	presence    Presence
}

func NewChatService(
	messageRepo repository.ChatMessageRepository,
	sessionRepo repository.SessionRepository,
	presence Presence,
) *ChatService {
	return &ChatService{
		messageRepo: messageRepo,
		sessionRepo: sessionRepo,
		presence:    presence,
	}
}

// Send persists the message, then attempts a real-time push to the peer.
// Durability comes first: an offline peer still finds the message in
// history, in send order.
func (s *ChatService) Send(ctx context.Context, params SendMessageParams) (*model.ChatMessage, error) {
	if params.Content == "" {
		return nil, apperrors.MissingRequired("content")
	}
	if len(params.Content) > config.MaxChatContentLength {
		return nil, apperrors.InvalidInput("content", "too long")
	}
	if params.Type == "" {
		params.Type = model.ChatMessageTypeText
	}

	session, err := s.sessionRepo.FindByID(ctx, params.SessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	if !session.HasParticipant(params.SenderID) {
		return nil, apperrors.AccessDenied("Not a participant of this session")
	}
	receiverID := session.PeerOf(params.SenderID)

	msg, err := s.messageRepo.Create(ctx, model.CreateChatMessageParams{
		SessionID:  params.SessionID,
		SenderID:   params.SenderID,
		ReceiverID: receiverID,
		Content:    params.Content,
		Type:       params.Type,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	delivered := s.presence.SendToUser(receiverID, ws.Event{
		Type: "chat:message",
		Data: msg.ToEventData(),
	})

	log.Debug().
		Str("messageId", msg.ID).
		Str("sessionId", msg.SessionID).
		Bool("delivered", delivered).
		Msg("chat message sent")

	return msg, nil
}

func (s *ChatService) History(ctx context.Context, sessionID string, actor *model.User, limit, offset int) (*ChatHistoryResult, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

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

	messages, err := s.messageRepo.FindBySessionID(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	total, err := s.messageRepo.CountBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	// Admins reading someone else's session have no unread counter.
	var unread int
	if session.HasParticipant(actor.ID) {
		unread, err = s.messageRepo.CountUnreadForReceiver(ctx, sessionID, actor.ID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
	}

	return &ChatHistoryResult{
		Messages: messages,
		Total:    total,
		Unread:   unread,
		HasMore:  offset+len(messages) < total,
	}, nil
}

func (s *ChatService) MarkRead(ctx context.Context, sessionID string, actor *model.User) (int64, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	if session == nil {
		return 0, apperrors.NotFound("Session")
	}
	if !session.HasParticipant(actor.ID) {
		return 0, apperrors.AccessDenied("Not a participant of this session")
	}

	count, err := s.messageRepo.MarkReadBySession(ctx, sessionID, actor.ID)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	return count, nil
}

// Typing forwards an ephemeral typing indicator to the peer. Nothing is
// persisted; an offline peer simply misses it.
func (s *ChatService) Typing(ctx context.Context, sessionID, userID string, typing bool) error {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return apperrors.Database(err)
	}
	if session == nil {
		return apperrors.NotFound("Session")
	}
	if !session.HasParticipant(userID) {
		return apperrors.AccessDenied("Not a participant of this session")
	}

	data, _ := json.Marshal(map[string]any{
		"sessionId": sessionID,
		"userId":    userID,
		"typing":    typing,
	})
	s.presence.SendToUser(session.PeerOf(userID), ws.Event{Type: "chat:typing", Data: data})
	return nil
}
