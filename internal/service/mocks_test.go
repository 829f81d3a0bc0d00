package service

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/kylasweb/soulseer-session-server/internal/database"
	"github.com/kylasweb/soulseer-session-server/internal/model"
	"github.com/kylasweb/soulseer-session-server/internal/repository"
	"github.com/kylasweb/soulseer-session-server/internal/sse"
	"github.com/kylasweb/soulseer-session-server/internal/ws"
)

// fakeTxRunner runs the function with a nil transaction; the mock
// repositories ignore the handle.
type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

// countingTxRunner additionally records how many transactions ran.
type countingTxRunner struct {
	calls int
}

func (r *countingTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	r.calls++
	return fn(nil)
}

// fakePresence records pushed events and answers with a fixed
// deliverability.
type fakePresence struct {
	mu      sync.Mutex
	online  map[string]bool
	sent    []sentEvent
	deliver bool
}

type sentEvent struct {
	userID string
	event  ws.Event
}

func newFakePresence(deliver bool, onlineIDs ...string) *fakePresence {
	online := make(map[string]bool)
	for _, id := range onlineIDs {
		online[id] = true
	}
	return &fakePresence{online: online, deliver: deliver}
}

func (p *fakePresence) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

func (p *fakePresence) SendToUser(userID string, event ws.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentEvent{userID: userID, event: event})
	return p.deliver
}

func (p *fakePresence) sentTo(userID string) []ws.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var events []ws.Event
	for _, s := range p.sent {
		if s.userID == userID {
			events = append(events, s.event)
		}
	}
	return events
}

// fakeNotifier records notify calls.
type fakeNotifier struct {
	mu    sync.Mutex
	calls []NotifyParams
}

func (n *fakeNotifier) Notify(ctx context.Context, params NotifyParams) (*model.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, params)
	return &model.Notification{ID: "ntf-1", UserID: params.UserID, Type: params.Type}, nil
}

func (n *fakeNotifier) callsFor(userID string) []NotifyParams {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []NotifyParams
	for _, c := range n.calls {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

// fakePublisher records published stream events.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	userID string
	event  sse.Event
}

func (p *fakePublisher) Publish(ctx context.Context, userID string, event sse.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{userID: userID, event: event})
	return nil
}

func (p *fakePublisher) publishedTo(userID string) []sse.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var events []sse.Event
	for _, e := range p.events {
		if e.userID == userID {
			events = append(events, e.event)
		}
	}
	return events
}

// Mock session repository
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
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
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
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockSessionRepo) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockSessionRepo) FindOverdueScheduled(ctx context.Context, cutoff time.Time, limit int) ([]model.Session, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockSessionRepo) MarkNoShow(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

// Mock transaction repository
type mockTransactionRepo struct {
	mock.Mock
}

func (m *mockTransactionRepo) FindByID(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockTransactionRepo) FindBySessionID(ctx context.Context, sessionID string) ([]model.Transaction, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) Create(ctx context.Context, params model.CreateTransactionParams) (*model.Transaction, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) WithTx(tx *sqlx.Tx) repository.TransactionRepository {
	return m
}

// Mock wallet repository
type mockWalletRepo struct {
	mock.Mock
}

func (m *mockWalletRepo) FindByUserID(ctx context.Context, userID string) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *mockWalletRepo) CreateIfMissing(ctx context.Context, userID string) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *mockWalletRepo) Credit(ctx context.Context, userID string, amountCents int64) error {
	args := m.Called(ctx, userID, amountCents)
	return args.Error(0)
}

func (m *mockWalletRepo) Debit(ctx context.Context, userID string, amountCents int64) (bool, error) {
	args := m.Called(ctx, userID, amountCents)
	return args.Bool(0), args.Error(1)
}

func (m *mockWalletRepo) WithTx(tx *sqlx.Tx) repository.WalletRepository {
	return m
}

// Mock user repository
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
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) SetTokenHash(ctx context.Context, id string, tokenHash *string) error {
	args := m.Called(ctx, id, tokenHash)
	return args.Error(0)
}

// Mock chat message repository
type mockChatMessageRepo struct {
	mock.Mock
}

func (m *mockChatMessageRepo) FindByID(ctx context.Context, id string) (*model.ChatMessage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatMessage), args.Error(1)
}

func (m *mockChatMessageRepo) FindBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]model.ChatMessage, error) {
	args := m.Called(ctx, sessionID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChatMessage), args.Error(1)
}

func (m *mockChatMessageRepo) CountBySessionID(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *mockChatMessageRepo) CountUnreadForReceiver(ctx context.Context, sessionID, receiverID string) (int, error) {
	args := m.Called(ctx, sessionID, receiverID)
	return args.Int(0), args.Error(1)
}

func (m *mockChatMessageRepo) Create(ctx context.Context, params model.CreateChatMessageParams) (*model.ChatMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatMessage), args.Error(1)
}

func (m *mockChatMessageRepo) MarkReadBySession(ctx context.Context, sessionID, receiverID string) (int64, error) {
	args := m.Called(ctx, sessionID, receiverID)
	return args.Get(0).(int64), args.Error(1)
}

// Mock notification repository
type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *mockNotificationRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Notification), args.Error(1)
}

func (m *mockNotificationRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationRepo) Create(ctx context.Context, params model.CreateNotificationParams) (*model.Notification, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepo) SoftDelete(ctx context.Context, id, userID string) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotificationRepo) FindActiveUserIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
