package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSStore uploads objects into a Cloud Storage bucket.
type GCSStore struct {
	service *gcs.Service
	bucket  string
	baseURL string
}

// NewGCSStore authenticates with a service account credentials file.
func NewGCSStore(ctx context.Context, credentialsFile, bucket, baseURL string) (*GCSStore, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, gcs.DevstorageReadWriteScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := gcs.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create storage service: %w", err)
	}
	return newGCSStore(srv, bucket, baseURL), nil
}

func newGCSStore(srv *gcs.Service, bucket, baseURL string) *GCSStore {
	if baseURL == "" {
		baseURL = gcsPublicHost + "/" + bucket
	}
	return &GCSStore{service: srv, bucket: bucket, baseURL: baseURL}
}

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	obj := &gcs.Object{Name: key, ContentType: contentType}
	stored, err := s.service.Objects.Insert(s.bucket, obj).
		Media(r, googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return joinURL(s.baseURL, (&url.URL{Path: stored.Name}).EscapedPath()), nil
}
