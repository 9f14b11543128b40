package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"queueaway/internal/domain"
	"queueaway/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverPreferencesRepository serves from primary until it fails, then from fallback,
// probing primary again once a minute.
type FailoverPreferencesRepository struct {
	primary  domain.PreferencesRepository
	fallback domain.PreferencesRepository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
	now       func() time.Time
}

var _ domain.PreferencesRepository = (*FailoverPreferencesRepository)(nil)

func NewFailoverPreferencesRepository(primary, fallback domain.PreferencesRepository, logger *zerolog.Logger) *FailoverPreferencesRepository {
	return &FailoverPreferencesRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverPreferencesRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.now().Sub(r.lastCheck) > recoveryInterval {
		r.lastCheck = r.now()
		return true
	}
	return false
}

// observe records the outcome of a primary call.
func (r *FailoverPreferencesRepository) observe(op string, err error) {
	if err == nil {
		if r.isDown.Swap(false) {
			r.logger.Info().Str("op", op).Msg("Primary preferences repository recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Str("op", op).Msg("Primary preferences repository failed, falling back to memory")
	}
	r.mu.Lock()
	r.lastCheck = r.now()
	r.mu.Unlock()
}

func (r *FailoverPreferencesRepository) GetPreferences(ctx context.Context, userID string) (*models.Preferences, error) {
	if r.usePrimary() {
		prefs, err := r.primary.GetPreferences(ctx, userID)
		r.observe("get", err)
		if err == nil {
			return prefs, nil
		}
	}
	return r.fallback.GetPreferences(ctx, userID)
}

func (r *FailoverPreferencesRepository) SetPreferences(ctx context.Context, prefs *models.Preferences) error {
	if r.usePrimary() {
		err := r.primary.SetPreferences(ctx, prefs)
		r.observe("set", err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SetPreferences(ctx, prefs)
}

func (r *FailoverPreferencesRepository) ClearPreferences(ctx context.Context, userID string) error {
	if r.usePrimary() {
		err := r.primary.ClearPreferences(ctx, userID)
		r.observe("clear", err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.ClearPreferences(ctx, userID)
}

func (r *FailoverPreferencesRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.observe("rate_limit", err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
