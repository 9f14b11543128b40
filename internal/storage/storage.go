// Package storage uploads user files and returns URLs they can be fetched from.
package storage

import (
	"context"
	"fmt"
	"strings"

	"queueaway/internal/config"
	"queueaway/internal/domain"

	"github.com/rs/zerolog"
)

// New builds the configured file store.
func New(ctx context.Context, cfg config.StorageConfig, logger *zerolog.Logger) (domain.FileStore, error) {
	switch cfg.Driver {
	case "", "local":
		logger.Info().Str("dir", cfg.LocalDir).Msg("using local file storage")
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	case "gcs":
		logger.Info().Str("bucket", cfg.GCSBucket).Msg("using Google Cloud Storage")
		return NewGCSStore(ctx, cfg.CredentialsFile, cfg.GCSBucket, cfg.PublicBaseURL)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
