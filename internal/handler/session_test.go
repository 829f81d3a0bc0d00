package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kylasweb/soulseer-session-server/internal/database"
	"github.com/kylasweb/soulseer-session-server/internal/middleware"
	"github.com/kylasweb/soulseer-session-server/internal/model"
	"github.com/kylasweb/soulseer-session-server/internal/repository"
	"github.com/kylasweb/soulseer-session-server/internal/service"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

type fakeNotifier struct{}

func (fakeNotifier) Notify(ctx context.Context, params service.NotifyParams) (*model.Notification, error) {
	return &model.Notification{ID: "ntf-1", UserID: params.UserID}, nil
}

// Mock repositories, only the surface the tested paths touch.
type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) FindByParticipant(ctx context.Context, userID string, limit, offset int) ([]model.Session, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockSessionRepo) CountByParticipant(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) UpdateStatus(ctx context.Context, id string, expected, next model.SessionStatus) (bool, error) {
	args := m.Called(ctx, id, expected, next)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionRepo) SetStarted(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockSessionRepo) SetEnded(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockSessionRepo) SetRating(ctx context.Context, id string, rating int, feedback *string) error {
	args := m.Called(ctx, id, rating, feedback)
	return args.Error(0)
}

func (m *mockSessionRepo) FindDueReminders(ctx context.Context, windowEnd time.Time, limit int) ([]model.Session, error) {
	args := m.Called(ctx, windowEnd, limit)
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockSessionRepo) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockSessionRepo) FindOverdueScheduled(ctx context.Context, cutoff time.Time, limit int) ([]model.Session, error) {
	args := m.Called(ctx, cutoff, limit)
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockSessionRepo) MarkNoShow(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) SetTokenHash(ctx context.Context, id string, tokenHash *string) error {
	return nil
}

func withUser(req *http.Request, user *model.User) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserContextKey, user)
	return req.WithContext(ctx)
}

func newSessionHandlerForTest(sessionRepo *mockSessionRepo, userRepo *mockUserRepo) *SessionHandler {
	svc := service.NewSessionService(fakeTxRunner{}, sessionRepo, nil, nil, userRepo, fakeNotifier{}, 20)
	return NewSessionHandler(svc)
}

func TestSessionHandler_Book(t *testing.T) {
	client := &model.User{ID: "client-1", Role: model.RoleClient}

	t.Run("creates a session", func(t *testing.T) {
		sessionRepo := new(mockSessionRepo)
		userRepo := new(mockUserRepo)
		h := newSessionHandlerForTest(sessionRepo, userRepo)

		userRepo.On("FindByID", mock.Anything, "reader-1").Return(&model.User{ID: "reader-1", Role: model.RoleReader}, nil)
		cost := int64(9000)
		sessionRepo.On("Create", mock.Anything, mock.Anything).Return(&model.Session{
			ID:             "sess-1",
			ClientID:       "client-1",
			ReaderID:       "reader-1",
			Status:         model.SessionStatusScheduled,
			TotalCostCents: &cost,
		}, nil)

		body, _ := json.Marshal(map[string]any{
			"readerId":        "reader-1",
			"type":            "video",
			"scheduledAt":     time.Now().Add(time.Hour).Format(time.RFC3339),
			"durationMinutes": 30,
			"rateCents":       300,
		})
		req := withUser(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)), client)
		rec := httptest.NewRecorder()

		h.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), "sess-1")
	})

	t.Run("missing readerId", func(t *testing.T) {
		h := newSessionHandlerForTest(new(mockSessionRepo), new(mockUserRepo))

		req := withUser(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{}`))), client)
		rec := httptest.NewRecorder()

		h.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		h := newSessionHandlerForTest(new(mockSessionRepo), new(mockUserRepo))

		req := withUser(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{`))), client)
		rec := httptest.NewRecorder()

		h.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSessionHandler_Start(t *testing.T) {
	session := func() *model.Session {
		cost := int64(9000)
		return &model.Session{
			ID:             "sess-1",
			ClientID:       "client-1",
			ReaderID:       "reader-1",
			Status:         model.SessionStatusScheduled,
			TotalCostCents: &cost,
		}
	}

	t.Run("client starting gets 403", func(t *testing.T) {
		sessionRepo := new(mockSessionRepo)
		h := newSessionHandlerForTest(sessionRepo, new(mockUserRepo))

		sessionRepo.On("FindByID", mock.Anything, "sess-1").Return(session(), nil)

		req := withUser(httptest.NewRequest(http.MethodPost, "/sess-1/start", nil), &model.User{ID: "client-1", Role: model.RoleClient})
		rec := httptest.NewRecorder()

		h.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("illegal transition gets 409", func(t *testing.T) {
		sessionRepo := new(mockSessionRepo)
		h := newSessionHandlerForTest(sessionRepo, new(mockUserRepo))

		done := session()
		done.Status = model.SessionStatusCompleted
		sessionRepo.On("FindByID", mock.Anything, "sess-1").Return(done, nil)

		req := withUser(httptest.NewRequest(http.MethodPost, "/sess-1/start", nil), &model.User{ID: "reader-1", Role: model.RoleReader})
		rec := httptest.NewRecorder()

		h.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_TRANSITION")
	})
}

func TestSessionHandler_Get(t *testing.T) {
	t.Run("non-participant gets 403", func(t *testing.T) {
		sessionRepo := new(mockSessionRepo)
		h := newSessionHandlerForTest(sessionRepo, new(mockUserRepo))

		sessionRepo.On("FindByID", mock.Anything, "sess-1").Return(&model.Session{
			ID:       "sess-1",
			ClientID: "client-1",
			ReaderID: "reader-1",
		}, nil)

		req := withUser(httptest.NewRequest(http.MethodGet, "/sess-1", nil), &model.User{ID: "stranger", Role: model.RoleClient})
		rec := httptest.NewRecorder()

		h.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing session gets 404", func(t *testing.T) {
		sessionRepo := new(mockSessionRepo)
		h := newSessionHandlerForTest(sessionRepo, new(mockUserRepo))

		sessionRepo.On("FindByID", mock.Anything, "sess-x").Return(nil, nil)

		req := withUser(httptest.NewRequest(http.MethodGet, "/sess-x", nil), &model.User{ID: "client-1", Role: model.RoleClient})
		rec := httptest.NewRecorder()

		h.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
