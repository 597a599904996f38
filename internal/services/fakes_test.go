package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/storynest/storynest-backend/internal/pkg/logger"
	"github.com/storynest/storynest-backend/internal/storage"
)

// fakeAI returns canned payloads keyed by schema name and fails on demand,
// so pipeline behavior is deterministic in tests.
type fakeAI struct {
	mu sync.Mutex

	jsonBySchema map[string]string
	jsonErr      map[string]error

	imageErr error
	// imageErrPrompt limits imageErr to one prompt; empty fails them all.
	imageErrPrompt string
	speechErr      error

	imageCalls  int
	speechCalls int
}

func newFakeAI() *fakeAI {
	return &fakeAI{
		jsonBySchema: map[string]string{
			"story_outline": `{
				"title": "Mira and the Moonlit Forest",
				"scenes": [
					{"sequence": 1, "key_events": ["Mira follows a glowing trail into the forest."], "setting": "Moonlit Forest", "characters_involved": ["Mira"], "emotional_tone": "curious"},
					{"sequence": 2, "key_events": ["Mira meets Pip the Fox.", "They search for the lost Moon Lantern."], "setting": "Moonlit Forest", "characters_involved": ["Mira", "Pip the Fox"], "emotional_tone": "hopeful"},
					{"sequence": 3, "key_events": ["They hang the lantern back in the sky and say goodnight."], "setting": "Moonlit Forest", "characters_involved": ["Mira", "Pip the Fox"], "emotional_tone": "cozy"}
				]
			}`,
			"entity_catalog": `{
				"entities": [
					{"name": "Mira", "kind": "character", "description": "A five year old girl with curly brown hair and a yellow raincoat."},
					{"name": "Pip the Fox", "kind": "character", "description": "A small orange fox with a white-tipped tail and a blue scarf."},
					{"name": "Moon Lantern", "kind": "object", "description": "A round paper lantern that glows soft silver."},
					{"name": "Moonlit Forest", "kind": "setting", "description": "A pine forest under a starry night sky."}
				]
			}`,
			"story_content": `{
				"title": "Mira and the Moonlit Forest",
				"characters": ["Mira"],
				"settings": [],
				"scenes": [
					{"sequence": 1, "narration": "Mira saw a silver glow between the trees and tiptoed closer.", "description": "Mira in a yellow raincoat stepping between tall pines toward a silver glow."},
					{"sequence": 2, "narration": "Pip the Fox pointed his nose at the empty branch where the Moon Lantern used to hang.", "description": "Pip the Fox pointing at a bare branch high in a pine tree."},
					{"sequence": 3, "narration": "Together they lifted the Moon Lantern high, and the forest lit up like a smile.", "description": "Mira and Pip the Fox lifting a glowing paper lantern into the night sky."}
				]
			}`,
			"scene_key_elements": `{
				"scenes": [
					{"sequence": 1, "key_elements": ["Mira", "Moonlit Forest"]},
					{"sequence": 2, "key_elements": ["Pip the Fox", "Moon Lantern"]},
					{"sequence": 3, "key_elements": ["Mira", "Pip the Fox", "Moon Lantern"]}
				]
			}`,
		},
		jsonErr: map[string]error{},
	}
}

func (f *fakeAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.jsonErr[schemaName]; err != nil {
		return nil, err
	}
	payload, ok := f.jsonBySchema[schemaName]
	if !ok {
		return nil, fmt.Errorf("no canned payload for schema %q", schemaName)
	}
	return []byte(payload), nil
}

func (f *fakeAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	return "ok", nil
}

func (f *fakeAI) GenerateImage(ctx context.Context, prompt string) (ImageGeneration, error) {
	f.mu.Lock()
	f.imageCalls++
	err := f.imageErr
	if err != nil && f.imageErrPrompt != "" && prompt != f.imageErrPrompt {
		err = nil
	}
	f.mu.Unlock()
	if err != nil {
		return ImageGeneration{}, err
	}
	return ImageGeneration{Bytes: []byte("fake-png"), MimeType: "image/png"}, nil
}

func (f *fakeAI) GenerateSpeech(ctx context.Context, text, voice string) (SpeechGeneration, error) {
	f.mu.Lock()
	f.speechCalls++
	err := f.speechErr
	f.mu.Unlock()
	if err != nil {
		return SpeechGeneration{}, err
	}
	return SpeechGeneration{Bytes: []byte("fake-mp3"), MimeType: "audio/mpeg"}, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testMediaStoreDir(t *testing.T) (MediaStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStore(testLogger(t), dir, "http://localhost:8080/media")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return store, dir
}

func testMediaStore(t *testing.T) MediaStore {
	t.Helper()
	store, _ := testMediaStoreDir(t)
	return store
}

func testFallback(t *testing.T) FallbackRenderer {
	t.Helper()
	fr, err := NewFallbackRenderer(testLogger(t))
	if err != nil {
		t.Fatalf("NewFallbackRenderer: %v", err)
	}
	return fr
}
