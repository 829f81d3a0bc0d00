package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	apperrors "github.com/kylasweb/soulseer-session-server/internal/errors"
	"github.com/kylasweb/soulseer-session-server/internal/middleware"
	"github.com/kylasweb/soulseer-session-server/internal/model"
	"github.com/kylasweb/soulseer-session-server/internal/service"
	"github.com/kylasweb/soulseer-session-server/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Token auth happens before the upgrade; the socket is not cookie
	// authenticated, so cross-origin pages gain nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler owns the session socket: presence registration, the read
// loop, and teardown. Signaling and chat frames are dispatched to their
// services; everything else is answered with an error frame.
type WSHandler struct {
	hub            *ws.Hub
	relayService   *service.RelayService
	chatService    *service.ChatService
	sessionService *service.SessionService
}

func NewWSHandler(
	hub *ws.Hub,
	relayService *service.RelayService,
	chatService *service.ChatService,
	sessionService *service.SessionService,
) *WSHandler {
	return &WSHandler{
		hub:            hub,
		relayService:   relayService,
		chatService:    chatService,
		sessionService: sessionService,
	}
}

type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// GET /v1/ws?sessionId=...
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}
	sessionID := r.URL.Query().Get("sessionId")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("userId", user.ID).Msg("ws upgrade failed")
		return
	}

	client := ws.NewClient(conn, user.ID)
	client.Setup()
	h.hub.Register(client)
	go client.WritePump()

	defer func() {
		h.hub.Unregister(client)
		if sessionID != "" {
			// The socket died mid-session; record the drop so the pair
			// can resume or settle later.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.sessionService.Disconnect(ctx, sessionID, user.ID); err != nil {
				log.Warn().Err(err).
					Str("sessionId", sessionID).
					Str("userId", user.ID).
					Msg("disconnect transition failed")
			}
		}
	}()

	for {
		var frame wsFrame
		if err := client.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).
					Str("userId", user.ID).
					Msg("ws read error")
			}
			return
		}

		h.dispatch(r.Context(), client, user, &frame)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, client *ws.Client, user *model.User, frame *wsFrame) {
	switch frame.Type {
	case "ping":
		client.Send(ws.Event{Type: "pong", Data: frame.Data})

	case "signal":
		var body struct {
			SessionID  string          `json:"sessionId"`
			SignalType string          `json:"signalType"`
			Payload    json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(frame.Data, &body); err != nil {
			h.sendError(client, apperrors.ValidationError("Invalid signal frame"))
			return
		}
		delivered, err := h.relayService.Signal(ctx, service.SignalParams{
			SessionID:  body.SessionID,
			SenderID:   user.ID,
			SignalType: body.SignalType,
			Payload:    body.Payload,
		})
		if err != nil {
			h.sendError(client, err)
			return
		}
		ack, _ := json.Marshal(map[string]any{
			"sessionId": body.SessionID,
			"delivered": delivered,
		})
		client.Send(ws.Event{Type: "signal:ack", Data: ack})

	case "chat:send":
		var body struct {
			SessionID string                `json:"sessionId"`
			Content   string                `json:"content"`
			Type      model.ChatMessageType `json:"msgType"`
		}
		if err := json.Unmarshal(frame.Data, &body); err != nil {
			h.sendError(client, apperrors.ValidationError("Invalid chat frame"))
			return
		}
		msg, err := h.chatService.Send(ctx, service.SendMessageParams{
			SessionID: body.SessionID,
			SenderID:  user.ID,
			Content:   body.Content,
			Type:      body.Type,
		})
		if err != nil {
			h.sendError(client, err)
			return
		}
		client.Send(ws.Event{Type: "chat:sent", Data: msg.ToEventData()})

	case "chat:typing":
		var body struct {
			SessionID string `json:"sessionId"`
			Typing    bool   `json:"typing"`
		}
		if err := json.Unmarshal(frame.Data, &body); err != nil {
			return
		}
		// Ephemeral; errors are not worth a frame back.
		_ = h.chatService.Typing(ctx, body.SessionID, user.ID, body.Typing)

	default:
		h.sendError(client, apperrors.InvalidInput("type", "unknown frame type"))
	}
}

func (h *WSHandler) sendError(client *ws.Client, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}
	data, _ := json.Marshal(map[string]string{
		"code":    string(appErr.Code),
		"message": appErr.Message,
	})
	client.Send(ws.Event{Type: "error", Data: data})
}
