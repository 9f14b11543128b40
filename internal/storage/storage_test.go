package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"queueaway/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8080/files/")
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "profile-images/u1", strings.NewReader("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/profile-images/u1", url)

	data, err := os.ReadFile(filepath.Join(dir, "profile-images", "u1"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	// overwrite keeps a single object
	_, err = s.Put(context.Background(), "profile-images/u1", strings.NewReader("png"), "image/png")
	require.NoError(t, err)
	data, _ = os.ReadFile(filepath.Join(dir, "profile-images", "u1"))
	assert.Equal(t, "png", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "profile-images"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStore_RejectsBadKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://x")
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../escape", "a/../../b"} {
		_, err := s.Put(context.Background(), key, strings.NewReader("x"), "")
		assert.Error(t, err, key)
	}
}

func TestNew_Drivers(t *testing.T) {
	logger := zerolog.Nop()

	store, err := New(context.Background(), config.StorageConfig{Driver: "local", LocalDir: t.TempDir(), PublicBaseURL: "http://x"}, &logger)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = New(context.Background(), config.StorageConfig{Driver: "s3"}, &logger)
	assert.Error(t, err)

	_, err = New(context.Background(), config.StorageConfig{Driver: "gcs", CredentialsFile: filepath.Join(t.TempDir(), "missing.json")}, &logger)
	assert.Error(t, err)
}

func TestGCSStore_Put(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(raw)
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(gcs.Object{Name: "profile-images/u1", Bucket: "queueaway"})
	}))
	defer server.Close()

	ctx := context.Background()
	srv, err := gcs.NewService(ctx, option.WithEndpoint(server.URL+"/storage/v1/"), option.WithoutAuthentication())
	require.NoError(t, err)

	s := newGCSStore(srv, "queueaway", "")
	url, err := s.Put(ctx, "profile-images/u1", strings.NewReader("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/queueaway/profile-images/u1", url)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPost, method)
	assert.Contains(t, path, "/b/queueaway/o")
	assert.Contains(t, body, "jpeg-bytes")
}

func TestGCSStore_UploadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	}))
	defer server.Close()

	ctx := context.Background()
	srv, err := gcs.NewService(ctx, option.WithEndpoint(server.URL+"/storage/v1/"), option.WithoutAuthentication())
	require.NoError(t, err)

	_, err = newGCSStore(srv, "queueaway", "https://cdn.example.com").Put(ctx, "profile-images/u1", strings.NewReader("x"), "image/jpeg")
	assert.Error(t, err)
}
