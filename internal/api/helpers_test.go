package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"queueaway/internal/config"
	"queueaway/internal/database"
	"queueaway/internal/events"
	"queueaway/internal/models"
	"queueaway/internal/notify"
	"queueaway/internal/realtime"
	"queueaway/internal/repository"
	"queueaway/internal/service"
	"queueaway/internal/storage"
	"queueaway/internal/worker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	waitTimeout = 2 * time.Second
	waitTick    = 10 * time.Millisecond
)

type testAPI struct {
	server *Server
	ts     *httptest.Server
	db     *database.DB
	bus    *events.EventBus
	queue  *service.QueueService
	prefs  *service.PreferenceService
	files  string
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		HTTP:      config.APIHTTPConfig{Mode: "test"},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		WebSocket: config.WebSocketConfig{SendBuffer: 64, PingInterval: "1s"},
	}
}

func newTestAPI(t *testing.T, cfg config.APIConfig) *testAPI {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := events.NewEventBus()
	db.SetPublisher(bus)
	hub := realtime.NewHub(bus, &logger)

	files := t.TempDir()
	local, err := storage.NewLocalStore(files, "http://localhost/files")
	require.NoError(t, err)

	prefsRepo := repository.NewMemoryPreferencesRepository()
	prefs := service.NewPreferenceService(prefsRepo, config.GeoConfig{Timeout: "1s", MaxAge: "5m", DefaultRadiusKm: 5}, &logger)

	delivery := worker.NewNotificationWorker(nil, bus, worker.RetryPolicy{}, &logger)
	notifications := notify.NewInlineQueue(delivery.Deliver)

	auth := service.NewAuthService(db, bus, config.AuthConfig{
		JWTSecret:         "test-secret",
		TokenTTL:          "1h",
		MinPasswordLength: 6,
	}, &logger)

	queue := service.NewQueueService(db, hub, nil, &logger)
	queue.Start(context.Background())
	t.Cleanup(queue.Close)
	<-queue.Loaded()

	svc := Services{
		Auth:          auth,
		Queue:         queue,
		Booking:       service.NewBookingService(db, db, hub, bus, notifications, time.UTC, &logger),
		Businesses:    service.NewBusinessService(db, db, hub, notifications, &logger),
		Chat:          service.NewChatService(db, prefsRepo, hub, bus, &logger),
		Profile:       service.NewProfileService(db, local, auth, &logger),
		Preferences:   prefs,
		Notifications: service.NewNotificationService(nil, prefs, notifications, &logger),
		Feed:          bus,
		FilesDir:      files,
		Location:      time.UTC,
	}

	srv := New(cfg, svc, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testAPI{server: srv, ts: ts, db: db, bus: bus, queue: queue, prefs: prefs, files: files}
}

// call sends a JSON request and decodes the JSON answer into out when it is not nil.
func (a *testAPI) call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type apiError struct {
	Error string `json:"error"`
}

type sessionBody struct {
	Token     string          `json:"token"`
	SessionID string          `json:"sessionId"`
	User      models.Identity `json:"user"`
	Message   string          `json:"message"`
}

func (a *testAPI) signup(t *testing.T, email, name string) sessionBody {
	t.Helper()
	var out sessionBody
	status := a.call(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":       email,
		"password":    "secret1",
		"displayName": name,
	}, &out)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, out.Token)
	return out
}

func (a *testAPI) createBusiness(t *testing.T, b *models.Business) *models.Business {
	t.Helper()
	require.NoError(t, a.db.CreateBusiness(context.Background(), b))
	return b
}

func ptr[T any](v T) *T { return &v }
