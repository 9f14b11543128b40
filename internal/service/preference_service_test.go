package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"queueaway/internal/config"
	"queueaway/internal/domain"
	"queueaway/internal/geo"
	"queueaway/internal/models"
	"queueaway/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPreferences() *PreferenceService {
	logger := zerolog.New(io.Discard)
	return NewPreferenceService(repository.NewMemoryPreferencesRepository(), config.GeoConfig{
		Timeout:         "1s",
		MaxAge:          "5m",
		DefaultRadiusKm: 5,
	}, &logger)
}

func TestPreferenceService_Theme(t *testing.T) {
	s := newTestPreferences()
	ctx := context.Background()

	theme, err := s.Theme(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeLight, theme)

	next, err := s.ToggleTheme(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, next)

	next, err = s.ToggleTheme(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeLight, next)

	require.NoError(t, s.SetTheme(ctx, "ann", models.ThemeDark))
	theme, err = s.Theme(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, theme)

	assert.ErrorIs(t, s.SetTheme(ctx, "ann", "sepia"), domain.ErrInvalidInput)

	theme, err = s.Theme(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeLight, theme)
}

func TestPreferenceService_Location(t *testing.T) {
	s := newTestPreferences()
	ctx := context.Background()

	last, err := s.LastLocation(ctx, "ann")
	require.NoError(t, err)
	assert.Nil(t, last)

	loc := models.Location{Latitude: 28.61, Longitude: 77.2, Accuracy: 10, ObtainedAt: time.Now()}
	require.NoError(t, s.SaveLocation(ctx, "ann", loc))
	last, err = s.LastLocation(ctx, "ann")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.InDelta(t, 28.61, last.Latitude, 1e-9)

	assert.ErrorIs(t, s.SaveLocation(ctx, "ann", models.Location{Latitude: 91}), domain.ErrInvalidInput)

	require.NoError(t, s.SetTheme(ctx, "ann", models.ThemeDark))
	last, err = s.LastLocation(ctx, "ann")
	require.NoError(t, err)
	assert.NotNil(t, last)
}

func TestPreferenceService_Locator(t *testing.T) {
	s := newTestPreferences()
	ctx := context.Background()

	calls := 0
	source := geo.SourceFunc(func(ctx context.Context) (models.Location, error) {
		calls++
		return models.Location{Latitude: 19.07, Longitude: 72.87, ObtainedAt: time.Now()}, nil
	})

	loc, err := s.Locator(ctx, "ann", source).Locate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 19.07, loc.Latitude, 1e-9)

	stored, err := s.LastLocation(ctx, "ann")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.InDelta(t, 72.87, stored.Longitude, 1e-9)

	// a fresh stored fix is reused
	_, err = s.Locator(ctx, "ann", source).Locate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	failing := geo.SourceFunc(func(ctx context.Context) (models.Location, error) {
		return models.Location{}, geo.ErrPermissionDenied
	})
	_, err = s.Locator(ctx, "bob", failing).Locate(ctx)
	assert.True(t, errors.Is(err, geo.ErrPermissionDenied))
	assert.Equal(t, geo.MsgPermissionDenied, geo.Message(err))
}

func TestPreferenceService_PushToken(t *testing.T) {
	s := newTestPreferences()
	ctx := context.Background()

	require.NoError(t, s.SetPushToken(ctx, "ann", "tok"))
	token, err := s.PushToken(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, 5.0, s.DefaultRadiusKm())
}
