package service

import (
	"context"
	"fmt"

	"queueaway/internal/config"
	"queueaway/internal/domain"
	"queueaway/internal/geo"
	"queueaway/internal/models"

	"github.com/rs/zerolog"
)

// PreferenceService reads and writes the small per-user state: theme, last known location
// and push token.
type PreferenceService struct {
	repo   domain.PreferencesRepository
	geo    config.GeoConfig
	logger *zerolog.Logger
}

func NewPreferenceService(repo domain.PreferencesRepository, geoCfg config.GeoConfig, logger *zerolog.Logger) *PreferenceService {
	return &PreferenceService{repo: repo, geo: geoCfg, logger: logger}
}

func (s *PreferenceService) get(ctx context.Context, uid string) (*models.Preferences, error) {
	prefs, err := s.repo.GetPreferences(ctx, uid)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", uid).Msg("failed to get preferences")
		return nil, err
	}
	if prefs == nil {
		prefs = &models.Preferences{UserID: uid}
	}
	return prefs, nil
}

func (s *PreferenceService) update(ctx context.Context, uid string, fn func(p *models.Preferences)) error {
	prefs, err := s.get(ctx, uid)
	if err != nil {
		return err
	}
	fn(prefs)
	return s.repo.SetPreferences(ctx, prefs)
}

// Theme returns the stored theme, light by default.
func (s *PreferenceService) Theme(ctx context.Context, uid string) (string, error) {
	prefs, err := s.get(ctx, uid)
	if err != nil {
		return models.ThemeLight, err
	}
	return prefs.ThemeOrDefault(), nil
}

func (s *PreferenceService) SetTheme(ctx context.Context, uid, theme string) error {
	if theme != models.ThemeLight && theme != models.ThemeDark {
		return fmt.Errorf("theme %q: %w", theme, domain.ErrInvalidInput)
	}
	return s.update(ctx, uid, func(p *models.Preferences) { p.Theme = theme })
}

// ToggleTheme flips between light and dark and returns the new theme.
func (s *PreferenceService) ToggleTheme(ctx context.Context, uid string) (string, error) {
	var next string
	err := s.update(ctx, uid, func(p *models.Preferences) {
		next = models.ThemeDark
		if p.ThemeOrDefault() == models.ThemeDark {
			next = models.ThemeLight
		}
		p.Theme = next
	})
	return next, err
}

func (s *PreferenceService) LastLocation(ctx context.Context, uid string) (*models.Location, error) {
	prefs, err := s.get(ctx, uid)
	if err != nil {
		return nil, err
	}
	return prefs.LastLocation, nil
}

func (s *PreferenceService) SaveLocation(ctx context.Context, uid string, loc models.Location) error {
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return fmt.Errorf("coordinates out of range: %w", domain.ErrInvalidInput)
	}
	return s.update(ctx, uid, func(p *models.Preferences) { p.LastLocation = &loc })
}

// Locator returns a locator for uid that starts from the stored location and saves every
// new fix.
func (s *PreferenceService) Locator(ctx context.Context, uid string, source geo.Source) *geo.Locator {
	last, err := s.LastLocation(ctx, uid)
	if err != nil {
		last = nil
	}
	return geo.NewLocator(source, config.Duration(s.geo.Timeout), config.Duration(s.geo.MaxAge),
		geo.WithLastKnown(last),
		geo.WithFixHandler(func(ctx context.Context, loc models.Location) error {
			return s.SaveLocation(ctx, uid, loc)
		}),
	)
}

// DefaultRadiusKm is the configured search radius around the user.
func (s *PreferenceService) DefaultRadiusKm() float64 {
	return s.geo.DefaultRadiusKm
}

func (s *PreferenceService) PushToken(ctx context.Context, uid string) (string, error) {
	prefs, err := s.get(ctx, uid)
	if err != nil {
		return "", err
	}
	return prefs.PushToken, nil
}

func (s *PreferenceService) SetPushToken(ctx context.Context, uid, token string) error {
	return s.update(ctx, uid, func(p *models.Preferences) { p.PushToken = token })
}
