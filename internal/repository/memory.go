package repository

import (
	"context"
	"sync"
	"time"

	"queueaway/internal/domain"
	"queueaway/internal/models"
)

// MemoryPreferencesRepository keeps preferences in process memory. Used when Redis is not
// configured and as the failover target.
type MemoryPreferencesRepository struct {
	prefs      sync.Map
	rateLimits sync.Map
	mu         sync.Mutex
	now        func() time.Time
}

var _ domain.PreferencesRepository = (*MemoryPreferencesRepository)(nil)

func NewMemoryPreferencesRepository() *MemoryPreferencesRepository {
	return &MemoryPreferencesRepository{now: time.Now}
}

func (r *MemoryPreferencesRepository) GetPreferences(_ context.Context, userID string) (*models.Preferences, error) {
	val, ok := r.prefs.Load(userID)
	if !ok {
		return nil, nil
	}
	return clonePreferences(val.(*models.Preferences)), nil
}

func (r *MemoryPreferencesRepository) SetPreferences(_ context.Context, prefs *models.Preferences) error {
	r.prefs.Store(prefs.UserID, clonePreferences(prefs))
	return nil
}

func (r *MemoryPreferencesRepository) ClearPreferences(_ context.Context, userID string) error {
	r.prefs.Delete(userID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryPreferencesRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}

func clonePreferences(p *models.Preferences) *models.Preferences {
	cp := *p
	if p.LastLocation != nil {
		loc := *p.LastLocation
		cp.LastLocation = &loc
	}
	return &cp
}
