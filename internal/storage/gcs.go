package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

// bucketStore keeps scene media in a GCS bucket, optionally fronted by a CDN.
type bucketStore struct {
	log       *logger.Logger
	client    *gcs.Client
	bucket    string
	cdnDomain string
}

func NewBucketStore(log *logger.Logger) (MediaStore, error) {
	bucket := strings.TrimSpace(os.Getenv("MEDIA_GCS_BUCKET_NAME"))
	if bucket == "" {
		return nil, fmt.Errorf("missing env var MEDIA_GCS_BUCKET_NAME")
	}
	cdn := strings.TrimSpace(os.Getenv("MEDIA_CDN_DOMAIN"))

	opts := clientOptionsFromEnv()
	opts = append(opts, option.WithScopes(gcs.ScopeReadWrite))
	client, err := gcs.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &bucketStore{
		log:       log.With("service", "BucketMediaStore"),
		client:    client,
		bucket:    bucket,
		cdnDomain: cdn,
	}, nil
}

func clientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	opts := []option.ClientOption{}
	if creds == "" {
		return opts
	}
	if strings.HasPrefix(creds, "{") {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	} else {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	return opts
}

func (s *bucketStore) objectKey(kind MediaKind, key string) string {
	return fmt.Sprintf("%s/%s", kind, key)
}

func (s *bucketStore) Save(ctx context.Context, kind MediaKind, key string, data []byte) (string, error) {
	if err := validateObject(kind, key, data); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(s.objectKey(kind, key)).NewWriter(ctx)
	w.ContentType = contentTypeForKey(key)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return s.PublicURL(kind, key), nil
}

func (s *bucketStore) Delete(ctx context.Context, kind MediaKind, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	o := s.client.Bucket(s.bucket).Object(s.objectKey(kind, key))
	if err := o.Delete(ctx); err != nil && err != gcs.ErrObjectNotExist {
		return fmt.Errorf("failed to delete GCS object %q: %w", key, err)
	}
	return nil
}

func (s *bucketStore) Exists(ctx context.Context, kind MediaKind, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := s.client.Bucket(s.bucket).Object(s.objectKey(kind, key)).Attrs(ctx)
	if err == gcs.ErrObjectNotExist {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat GCS object %q: %w", key, err)
	}
	return true, nil
}

func (s *bucketStore) PublicURL(kind MediaKind, key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, s.objectKey(kind, key))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, s.objectKey(kind, key))
}
