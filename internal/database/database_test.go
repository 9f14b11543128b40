package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"queueaway/internal/events"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []events.CollectionChangePayload
}

func (p *recordingPublisher) PublishJSON(eventType string, payload interface{}) error {
	if eventType != events.EventCollectionChanged {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, payload.(events.CollectionChangePayload))
	return nil
}

func (p *recordingPublisher) collections() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.changes))
	for _, c := range p.changes {
		out = append(out, c.Collection)
	}
	return out
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
}

func TestNewDB_ReopenKeepsSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()
}

func TestDB_Ping(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.PingContext(context.Background()))
}

func TestDB_WritesAnnounceChanges(t *testing.T) {
	db := setupTestDB(t)
	pub := &recordingPublisher{}
	db.SetPublisher(pub)

	ctx := context.Background()
	b := newTestBusiness("Luxe Hair Studio")
	require.NoError(t, db.CreateBusiness(ctx, b))
	require.NoError(t, db.UpdateQueueCount(ctx, b.ID, 4))

	assert.Equal(t, []string{events.CollectionBusinesses, events.CollectionBusinesses}, pub.collections())
}

func TestDB_NoPublisher(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.CreateBusiness(context.Background(), newTestBusiness("Serenity Spa")))
}
