package repository

import (
	"context"
	"testing"
	"time"

	"queueaway/internal/config"
	"queueaway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configFor(addr string) config.RedisConfig {
	return config.RedisConfig{Address: addr}
}

func TestMemoryPreferencesRepository(t *testing.T) {
	repo := NewMemoryPreferencesRepository()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		loc := &models.Location{Latitude: 1, Longitude: 2}
		prefs := &models.Preferences{UserID: "u1", Theme: models.ThemeDark, LastLocation: loc}
		require.NoError(t, repo.SetPreferences(ctx, prefs))

		// stored values are copies
		loc.Latitude = 99

		got, err := repo.GetPreferences(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, models.ThemeDark, got.Theme)
		assert.Equal(t, 1.0, got.LastLocation.Latitude)
	})

	t.Run("Missing", func(t *testing.T) {
		got, err := repo.GetPreferences(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, repo.ClearPreferences(ctx, "u1"))
		got, err := repo.GetPreferences(ctx, "u1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestMemoryPreferencesRepository_RateLimit(t *testing.T) {
	repo := NewMemoryPreferencesRepository()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "chat:u1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, _ := repo.CheckRateLimit(ctx, "chat:u1", 3, time.Minute)
	assert.False(t, allowed)

	allowed, _ = repo.CheckRateLimit(ctx, "chat:u2", 3, time.Minute)
	assert.True(t, allowed)

	now = now.Add(2 * time.Minute)
	allowed, _ = repo.CheckRateLimit(ctx, "chat:u1", 3, time.Minute)
	assert.True(t, allowed)
}
