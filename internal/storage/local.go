package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

// localStore writes media under a directory on disk and builds URLs against a
// base the HTTP layer serves statically. Used for development and tests.
type localStore struct {
	log     *logger.Logger
	rootDir string
	baseURL string
}

func NewLocalStore(log *logger.Logger, rootDir, baseURL string) (MediaStore, error) {
	rootDir = strings.TrimSpace(rootDir)
	if rootDir == "" {
		return nil, fmt.Errorf("media root dir required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("media base url required")
	}
	for _, kind := range []MediaKind{MediaKindImage, MediaKindAudio} {
		if err := os.MkdirAll(filepath.Join(rootDir, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("create media dir: %w", err)
		}
	}
	return &localStore{
		log:     log.With("service", "LocalMediaStore"),
		rootDir: rootDir,
		baseURL: baseURL,
	}, nil
}

func (s *localStore) Save(ctx context.Context, kind MediaKind, key string, data []byte) (string, error) {
	if err := validateObject(kind, key, data); err != nil {
		return "", err
	}
	if ctx != nil && ctx.Err() != nil {
		return "", ctx.Err()
	}

	path := filepath.Join(s.rootDir, string(kind), filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create media subdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return s.PublicURL(kind, key), nil
}

func (s *localStore) Delete(ctx context.Context, kind MediaKind, key string) error {
	path := filepath.Join(s.rootDir, string(kind), filepath.FromSlash(key))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

func (s *localStore) Exists(ctx context.Context, kind MediaKind, key string) (bool, error) {
	path := filepath.Join(s.rootDir, string(kind), filepath.FromSlash(key))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat media file: %w", err)
	}
	return true, nil
}

func (s *localStore) PublicURL(kind MediaKind, key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, kind, key)
}
