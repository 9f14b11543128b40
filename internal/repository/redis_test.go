package repository

import (
	"context"
	"testing"
	"time"

	"queueaway/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPreferencesRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisPreferencesRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetPreferences", func(t *testing.T) {
		prefs := &models.Preferences{
			UserID:       "u-123",
			Theme:        models.ThemeDark,
			LastLocation: &models.Location{Latitude: 28.61, Longitude: 77.2, Accuracy: 12},
			PushToken:    "token",
		}

		require.NoError(t, repo.SetPreferences(ctx, prefs))

		got, err := repo.GetPreferences(ctx, "u-123")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.ThemeDark, got.Theme)
		assert.Equal(t, "token", got.PushToken)
		require.NotNil(t, got.LastLocation)
		assert.Equal(t, 28.61, got.LastLocation.Latitude)

		assert.Equal(t, models.ThemeDark, s.HGet("preferences:u-123", "theme"))
		assert.True(t, s.TTL("preferences:u-123") > 0)
	})

	t.Run("NoLocation", func(t *testing.T) {
		require.NoError(t, repo.SetPreferences(ctx, &models.Preferences{UserID: "u-1", Theme: models.ThemeLight}))

		got, err := repo.GetPreferences(ctx, "u-1")
		require.NoError(t, err)
		assert.Nil(t, got.LastLocation)
	})

	t.Run("GetMissingPreferences", func(t *testing.T) {
		got, err := repo.GetPreferences(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearPreferences", func(t *testing.T) {
		require.NoError(t, repo.SetPreferences(ctx, &models.Preferences{UserID: "u-456", Theme: models.ThemeDark}))
		require.NoError(t, repo.ClearPreferences(ctx, "u-456"))

		got, err := repo.GetPreferences(ctx, "u-456")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CheckRateLimit", func(t *testing.T) {
		key := "chat:u-789"
		limit := 2
		window := time.Minute

		allowed, err := repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(window + time.Second)
		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRedisPreferencesRepository_NoTTL(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	repo := NewRedisPreferencesRepository(client, 0)
	require.NoError(t, repo.SetPreferences(context.Background(), &models.Preferences{UserID: "u", Theme: models.ThemeDark}))
	assert.Equal(t, time.Duration(0), s.TTL("preferences:u"))
}

func TestRedisPreferencesRepository_NilClient(t *testing.T) {
	repo := NewRedisPreferencesRepository(nil, 0)
	ctx := context.Background()

	_, err := repo.GetPreferences(ctx, "u")
	assert.Error(t, err)
	assert.Error(t, repo.SetPreferences(ctx, &models.Preferences{UserID: "u"}))
	assert.Error(t, repo.ClearPreferences(ctx, "u"))
	_, err = repo.CheckRateLimit(ctx, "k", 1, time.Second)
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	s := miniredis.RunT(t)
	client := NewRedisClient(configFor(s.Addr()))
	defer Close(client)

	assert.NoError(t, Ping(context.Background(), client))
	s.Close()
	assert.Error(t, Ping(context.Background(), client))
}
