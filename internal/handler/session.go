package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/kylasweb/soulseer-session-server/internal/errors"
	"github.com/kylasweb/soulseer-session-server/internal/middleware"
	"github.com/kylasweb/soulseer-session-server/internal/model"
	"github.com/kylasweb/soulseer-session-server/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Book)
	r.Get("/", h.List)
	r.Get("/{sessionID}", h.Get)
	r.Post("/{sessionID}/start", h.Start)
	r.Post("/{sessionID}/complete", h.Complete)
	r.Post("/{sessionID}/cancel", h.Cancel)
	r.Post("/{sessionID}/rate", h.Rate)

	return r
}

// POST /v1/sessions
func (h *SessionHandler) Book(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var body struct {
		ReaderID        string            `json:"readerId"`
		Type            model.SessionType `json:"type"`
		ScheduledAt     time.Time         `json:"scheduledAt"`
		DurationMinutes int               `json:"durationMinutes"`
		RateCents       int64             `json:"rateCents"`
		Notes           *string           `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if body.ReaderID == "" {
		writeError(w, apperrors.MissingRequired("readerId"))
		return
	}

	session, err := h.sessionService.Book(r.Context(), service.BookSessionParams{
		ClientID:        user.ID,
		ReaderID:        body.ReaderID,
		Type:            body.Type,
		ScheduledAt:     body.ScheduledAt,
		DurationMinutes: body.DurationMinutes,
		RateCents:       body.RateCents,
		Notes:           body.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// GET /v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	page := ParsePagination(r)

	result, err := h.sessionService.List(r.Context(), user.ID, page.Limit, page.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /v1/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	session, err := h.sessionService.Get(r.Context(), chi.URLParam(r, "sessionID"), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// POST /v1/sessions/{sessionID}/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	session, err := h.sessionService.Start(r.Context(), chi.URLParam(r, "sessionID"), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// POST /v1/sessions/{sessionID}/complete
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	session, err := h.sessionService.Complete(r.Context(), chi.URLParam(r, "sessionID"), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// POST /v1/sessions/{sessionID}/cancel
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var body struct {
		RefundCents *int64 `json:"refundCents"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, apperrors.ValidationError("Invalid request body"))
			return
		}
	}

	session, err := h.sessionService.Cancel(r.Context(), chi.URLParam(r, "sessionID"), user, body.RefundCents)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// POST /v1/sessions/{sessionID}/rate
func (h *SessionHandler) Rate(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var body struct {
		Rating   int     `json:"rating"`
		Feedback *string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	session, err := h.sessionService.Rate(r.Context(), chi.URLParam(r, "sessionID"), user, body.Rating, body.Feedback)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}
