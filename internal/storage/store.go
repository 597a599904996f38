package storage

import (
	"context"
	"fmt"
	"strings"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindAudio MediaKind = "audio"
)

// Size caps for a single media object, enforced before any write.
const (
	MaxImageBytes = 10 << 20
	MaxAudioBytes = 25 << 20
)

// MediaStore persists generated scene media and hands out the public URL the
// persisted segments reference.
type MediaStore interface {
	// Save writes the object under key and returns its public URL.
	Save(ctx context.Context, kind MediaKind, key string, data []byte) (string, error)
	Delete(ctx context.Context, kind MediaKind, key string) error
	Exists(ctx context.Context, kind MediaKind, key string) (bool, error)
	PublicURL(kind MediaKind, key string) string
}

var allowedExtensions = map[MediaKind][]string{
	MediaKindImage: {".png", ".jpg", ".jpeg", ".webp"},
	MediaKindAudio: {".mp3", ".wav", ".opus"},
}

func validateObject(kind MediaKind, key string, data []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("media key required")
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid media key %q", key)
	}
	if len(data) == 0 {
		return fmt.Errorf("empty media payload for key %q", key)
	}

	exts, ok := allowedExtensions[kind]
	if !ok {
		return fmt.Errorf("unknown media kind %q", kind)
	}
	lower := strings.ToLower(key)
	matched := false
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			matched = true
			break
		}
	}
	if !matched {
		return fmt.Errorf("key %q has no allowed %s extension", key, kind)
	}

	max := MaxImageBytes
	if kind == MediaKindAudio {
		max = MaxAudioBytes
	}
	if len(data) > max {
		return fmt.Errorf("%s object %q exceeds %d bytes", kind, key, max)
	}
	return nil
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(s, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(s, ".opus"):
		return "audio/opus"
	default:
		return "application/octet-stream"
	}
}
