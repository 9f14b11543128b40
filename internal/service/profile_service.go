package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"queueaway/internal/domain"
	"queueaway/internal/models"

	"github.com/rs/zerolog"
)

// IdentityRefresher re-announces a user's profile to their sessions.
type IdentityRefresher interface {
	RefreshIdentity(ctx context.Context, uid string) (*models.Identity, error)
}

type ProfileService struct {
	users    domain.UserRepository
	files    domain.FileStore
	identity IdentityRefresher
	logger   *zerolog.Logger
}

func NewProfileService(users domain.UserRepository, files domain.FileStore, identity IdentityRefresher, logger *zerolog.Logger) *ProfileService {
	return &ProfileService{users: users, files: files, identity: identity, logger: logger}
}

// UploadPhoto stores the picture under profile-images/<uid>, replacing any earlier one, and
// attaches its URL to the profile.
func (s *ProfileService) UploadPhoto(ctx context.Context, uid string, r io.Reader, contentType string) (*models.Identity, error) {
	if uid == "" {
		return nil, domain.ErrUnauthenticated
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("content type %q is not an image: %w", contentType, domain.ErrInvalidInput)
	}

	url, err := s.files.Put(ctx, models.ProfileImagePrefix+uid, r, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload profile photo: %w", err)
	}
	if err := s.users.UpdateUserProfile(ctx, uid, nil, &url); err != nil {
		return nil, err
	}

	s.logger.Info().Str("uid", uid).Str("url", url).Msg("profile photo updated")
	return s.identity.RefreshIdentity(ctx, uid)
}

func (s *ProfileService) UpdateDisplayName(ctx context.Context, uid, name string) (*models.Identity, error) {
	if uid == "" {
		return nil, domain.ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("display name is required: %w", domain.ErrInvalidInput)
	}
	if err := s.users.UpdateUserProfile(ctx, uid, &name, nil); err != nil {
		return nil, err
	}
	return s.identity.RefreshIdentity(ctx, uid)
}
