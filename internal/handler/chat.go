package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/kylasweb/soulseer-session-server/internal/errors"
	"github.com/kylasweb/soulseer-session-server/internal/middleware"
	"github.com/kylasweb/soulseer-session-server/internal/model"
	"github.com/kylasweb/soulseer-session-server/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{sessionID}/messages", h.History)
	r.Post("/{sessionID}/messages", h.Send)
	r.Post("/{sessionID}/messages/read", h.MarkRead)

	return r
}

// GET /v1/chat/{sessionID}/messages
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	page := ParsePagination(r)

	result, err := h.chatService.History(r.Context(), chi.URLParam(r, "sessionID"), user, page.Limit, page.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /v1/chat/{sessionID}/messages
//
// The websocket is the primary send path; this exists for clients that
// lost their socket but still want the message persisted and relayed.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var body struct {
		Content string                `json:"content"`
		Type    model.ChatMessageType `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	msg, err := h.chatService.Send(r.Context(), service.SendMessageParams{
		SessionID: chi.URLParam(r, "sessionID"),
		SenderID:  user.ID,
		Content:   body.Content,
		Type:      body.Type,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// POST /v1/chat/{sessionID}/messages/read
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	count, err := h.chatService.MarkRead(r.Context(), chi.URLParam(r, "sessionID"), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"marked": count})
}
