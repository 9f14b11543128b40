package service

import (
	"context"
	"errors"

	"queueaway/internal/domain"
	"queueaway/internal/models"
	"queueaway/internal/notify"

	"github.com/rs/zerolog"
)

// PushGrant is what a client needs to listen on its push channel.
type PushGrant struct {
	Token   string `json:"token"`
	Channel string `json:"channel"`
}

type NotificationService struct {
	push   domain.PushPublisher
	prefs  *PreferenceService
	queue  domain.NotificationQueue
	logger *zerolog.Logger
}

// NewNotificationService accepts a nil push publisher when push messaging is not configured.
func NewNotificationService(push domain.PushPublisher, prefs *PreferenceService, queue domain.NotificationQueue, logger *zerolog.Logger) *NotificationService {
	return &NotificationService{push: push, prefs: prefs, queue: queue, logger: logger}
}

// RequestPermission records the user's answer to the permission prompt. When granted, a
// delivery token for the user's channel is issued and stored.
func (s *NotificationService) RequestPermission(ctx context.Context, uid string, granted bool) (*PushGrant, error) {
	if uid == "" {
		return nil, domain.ErrUnauthenticated
	}
	if s.push == nil {
		return nil, domain.ErrPushUnsupported
	}
	if !granted {
		if err := s.prefs.SetPushToken(ctx, uid, ""); err != nil {
			s.logger.Warn().Err(err).Str("user_id", uid).Msg("clear push token")
		}
		return nil, domain.ErrPermissionDenied
	}

	token, err := s.push.GrantToken(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := s.prefs.SetPushToken(ctx, uid, token); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", uid).Msg("push notifications enabled")
	return &PushGrant{Token: token, Channel: notify.ChannelFor(uid)}, nil
}

// Disable forgets the user's push token.
func (s *NotificationService) Disable(ctx context.Context, uid string) error {
	return s.prefs.SetPushToken(ctx, uid, "")
}

// Enabled reports whether the user holds a push token.
func (s *NotificationService) Enabled(ctx context.Context, uid string) bool {
	token, err := s.prefs.PushToken(ctx, uid)
	return err == nil && token != ""
}

// Notify hands n to the delivery queue.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) error {
	if n.UserID == "" {
		return domain.ErrInvalidInput
	}
	if s.queue == nil {
		return errors.New("notification queue is not configured")
	}
	return s.queue.EnqueueNotification(ctx, n)
}
