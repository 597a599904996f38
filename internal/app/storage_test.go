package app

import (
	"errors"
	"testing"

	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestResolveMediaStoreLocal(t *testing.T) {
	cfg := Config{
		MediaStorageMode: "local",
		MediaLocalDir:    t.TempDir(),
		MediaBaseURL:     "http://localhost:8080/media",
	}
	store, err := resolveMediaStore(testLogger(t), cfg)
	if err != nil {
		t.Fatalf("resolveMediaStore: %v", err)
	}
	if store == nil {
		t.Fatalf("nil store")
	}
}

func TestResolveMediaStoreDefaultsToLocal(t *testing.T) {
	cfg := Config{
		MediaStorageMode: "",
		MediaLocalDir:    t.TempDir(),
		MediaBaseURL:     "http://localhost:8080/media",
	}
	if _, err := resolveMediaStore(testLogger(t), cfg); err != nil {
		t.Fatalf("resolveMediaStore: %v", err)
	}
}

func TestResolveMediaStoreInvalidMode(t *testing.T) {
	cfg := Config{MediaStorageMode: "s3"}
	_, err := resolveMediaStore(testLogger(t), cfg)
	if err == nil {
		t.Fatalf("expected error for unsupported mode")
	}
	var be *MediaStoreBootstrapError
	if !errors.As(err, &be) || be.Mode != "s3" {
		t.Fatalf("expected MediaStoreBootstrapError with mode, got %v", err)
	}
}

func TestResolveMediaStoreGCSMissingBucket(t *testing.T) {
	t.Setenv("MEDIA_GCS_BUCKET_NAME", "")
	cfg := Config{MediaStorageMode: "gcs"}
	_, err := resolveMediaStore(testLogger(t), cfg)
	var be *MediaStoreBootstrapError
	if !errors.As(err, &be) {
		t.Fatalf("expected MediaStoreBootstrapError, got %v", err)
	}
}
