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

type NotificationHandler struct {
	notificationService *service.NotificationService
	authMiddleware      *middleware.AuthMiddleware
}

func NewNotificationHandler(
	notificationService *service.NotificationService,
	authMiddleware *middleware.AuthMiddleware,
) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		authMiddleware:      authMiddleware,
	}
}

func (h *NotificationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/unread-count", h.UnreadCount)
	r.Post("/read-all", h.MarkAllRead)
	r.Post("/{notificationID}/read", h.MarkRead)
	r.Delete("/{notificationID}", h.Delete)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.RequireAdmin)
		r.Post("/broadcast", h.Broadcast)
	})

	return r
}

// GET /v1/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	page := ParsePagination(r)

	result, err := h.notificationService.List(r.Context(), user.ID, page.Limit, page.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	count, err := h.notificationService.CountUnread(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

// POST /v1/notifications/{notificationID}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	if err := h.notificationService.MarkRead(r.Context(), chi.URLParam(r, "notificationID"), user.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// POST /v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	count, err := h.notificationService.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"marked": count})
}

// DELETE /v1/notifications/{notificationID}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	if err := h.notificationService.Delete(r.Context(), chi.URLParam(r, "notificationID"), user.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// POST /v1/notifications/broadcast
func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title    string          `json:"title"`
		Message  string          `json:"message"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if body.Title == "" {
		writeError(w, apperrors.MissingRequired("title"))
		return
	}

	sent, err := h.notificationService.BroadcastAll(r.Context(), model.NotificationTypeSystem, body.Title, body.Message, body.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
