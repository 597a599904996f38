package app

import (
	"fmt"
	"strings"

	"github.com/storynest/storynest-backend/internal/pkg/logger"
	"github.com/storynest/storynest-backend/internal/storage"
)

type MediaStoreBootstrapError struct {
	Mode  string
	Cause error
}

func (e *MediaStoreBootstrapError) Error() string {
	if e == nil {
		return "media store bootstrap failed"
	}
	return fmt.Sprintf("media store bootstrap failed (mode=%q): %v", e.Mode, e.Cause)
}

func (e *MediaStoreBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func resolveMediaStore(log *logger.Logger, cfg Config) (storage.MediaStore, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.MediaStorageMode))
	switch mode {
	case "", "local":
		store, err := storage.NewLocalStore(log, cfg.MediaLocalDir, cfg.MediaBaseURL)
		if err != nil {
			return nil, &MediaStoreBootstrapError{Mode: mode, Cause: err}
		}
		return store, nil
	case "gcs":
		store, err := storage.NewBucketStore(log)
		if err != nil {
			return nil, &MediaStoreBootstrapError{Mode: mode, Cause: err}
		}
		return store, nil
	default:
		return nil, &MediaStoreBootstrapError{
			Mode:  mode,
			Cause: fmt.Errorf("unsupported media storage mode %q", mode),
		}
	}
}
