package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"queueaway/internal/domain"
	"queueaway/internal/events"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB is the document store. Every successful write announces itself on the
// attached publisher as a collection change.
type DB struct {
	*sql.DB
	logger *zerolog.Logger

	mu        sync.RWMutex
	publisher domain.EventPublisher
	now       func() time.Time
}

var _ domain.Store = (*DB)(nil)

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; also keeps :memory: on a single connection
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: sqlDB, logger: logger, now: time.Now}, nil
}

// SetPublisher attaches the change feed. Writes made before it is set are not announced.
func (db *DB) SetPublisher(p domain.EventPublisher) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.publisher = p
}

func (db *DB) changed(collection, id, op string) {
	db.mu.RLock()
	p := db.publisher
	db.mu.RUnlock()
	if p == nil {
		return
	}
	payload := events.CollectionChangePayload{Collection: collection, DocumentID: id, Op: op}
	if err := p.PublishJSON(events.EventCollectionChanged, payload); err != nil {
		db.logger.Error().Err(err).Str("collection", collection).Msg("publish collection change")
	}
}

func (db *DB) timestamp() time.Time {
	return db.now().UTC()
}

func newID() string {
	return uuid.NewString()
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS businesses (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            category TEXT NOT NULL,
            services TEXT NOT NULL DEFAULT '[]',
            address TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL DEFAULT '',
            latitude REAL,
            longitude REAL,
            opening_hours TEXT NOT NULL DEFAULT '{}',
            average_service_time INTEGER NOT NULL DEFAULT 0,
            current_queue INTEGER NOT NULL DEFAULT 0,
            rating REAL NOT NULL DEFAULT 0,
            image TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS appointments (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            user_name TEXT NOT NULL,
            user_email TEXT NOT NULL DEFAULT '',
            business_id TEXT NOT NULL,
            business_name TEXT NOT NULL,
            service TEXT NOT NULL,
            appointment_date DATETIME NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            queue_position INTEGER NOT NULL DEFAULT 0,
            estimated_wait_time INTEGER NOT NULL DEFAULT 0,
            notes TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            sender_id TEXT NOT NULL,
            sender_name TEXT NOT NULL DEFAULT '',
            receiver_id TEXT NOT NULL,
            body TEXT NOT NULL,
            type TEXT NOT NULL DEFAULT 'text',
            timestamp DATETIME NOT NULL,
            read BOOLEAN NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS chats (
            id TEXT PRIMARY KEY,
            participant_a TEXT NOT NULL,
            participant_b TEXT NOT NULL,
            last_message TEXT NOT NULL DEFAULT '',
            last_message_time DATETIME NOT NULL,
            last_sender_id TEXT NOT NULL DEFAULT '',
            unread_a INTEGER NOT NULL DEFAULT 0,
            unread_b INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS users (
            uid TEXT PRIMARY KEY,
            email TEXT NOT NULL UNIQUE COLLATE NOCASE,
            display_name TEXT NOT NULL DEFAULT '',
            photo_url TEXT NOT NULL DEFAULT '',
            provider TEXT NOT NULL,
            password_hash TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_businesses_category ON businesses(category)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_user_id ON appointments(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_business_id ON appointments(business_id)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_created_at ON appointments(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, receiver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chats_participant_a ON chats(participant_a)`,
		`CREATE INDEX IF NOT EXISTS idx_chats_participant_b ON chats(participant_b)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

func checkAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}
