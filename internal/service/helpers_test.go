package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"queueaway/internal/database"
	"queueaway/internal/events"
	"queueaway/internal/models"
	"queueaway/internal/realtime"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db     *database.DB
	bus    *events.EventBus
	hub    *realtime.Hub
	logger *zerolog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := events.NewEventBus()
	db.SetPublisher(bus)
	return &testEnv{db: db, bus: bus, hub: realtime.NewHub(bus, &logger), logger: &logger}
}

func (e *testEnv) createBusiness(t *testing.T, name string, queueLen, avg int, services ...string) *models.Business {
	t.Helper()
	b := &models.Business{
		Name:               name,
		Category:           models.CategorySalon,
		Services:           services,
		AverageServiceTime: avg,
		CurrentQueue:       queueLen,
	}
	require.NoError(t, e.db.CreateBusiness(context.Background(), b))
	return b
}

// recorder collects events of one type published on the bus.
type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func record(bus *events.EventBus, eventType string) *recorder {
	r := &recorder{}
	bus.Subscribe(eventType, func(e *events.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
		return nil
	})
	return r
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) last(t *testing.T, v any) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.events)
	require.NoError(t, r.events[len(r.events)-1].Decode(v))
}

type mockNotificationQueue struct {
	mock.Mock
}

func (m *mockNotificationQueue) EnqueueNotification(ctx context.Context, n models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

type mockPushPublisher struct {
	mock.Mock
}

func (m *mockPushPublisher) Publish(ctx context.Context, userID string, payload any) (string, error) {
	args := m.Called(ctx, userID, payload)
	return args.String(0), args.Error(1)
}

func (m *mockPushPublisher) GrantToken(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

type mockFileStore struct {
	mock.Mock
}

func (m *mockFileStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, key, r, contentType)
	return args.String(0), args.Error(1)
}

type mockRateLimiter struct {
	mock.Mock
}

func (m *mockRateLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}
