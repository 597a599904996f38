package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/storynest/storynest-backend/internal/domain"
)

func testPromptedScenes() []domain.PromptedScene {
	return []domain.PromptedScene{
		{Scene: domain.Scene{Sequence: 1, Narration: "Scene one."}, Prompt: "p1"},
		{Scene: domain.Scene{Sequence: 2, Narration: "Scene two."}, Prompt: "p2"},
		{Scene: domain.Scene{Sequence: 3, Narration: "Scene three."}, Prompt: "p3"},
	}
}

func TestRealizeAll(t *testing.T) {
	ai := newFakeAI()
	mr := NewMediaRealizer(testLogger(t), ai, testMediaStore(t), testFallback(t))

	storyID := uuid.New()
	media, err := mr.RealizeAll(context.Background(), storyID, "T", testPromptedScenes(), "nova")
	if err != nil {
		t.Fatalf("RealizeAll: %v", err)
	}
	if len(media) != 3 {
		t.Fatalf("media count: %d", len(media))
	}
	for i, m := range media {
		if m.Sequence != i+1 {
			t.Fatalf("media %d out of order: sequence=%d", i, m.Sequence)
		}
		if m.ImageFallback {
			t.Fatalf("scene %d unexpectedly used fallback", m.Sequence)
		}
		if !strings.Contains(m.ImageURL, ".png") || !strings.Contains(m.AudioURL, ".mp3") {
			t.Fatalf("scene %d urls: image=%q audio=%q", m.Sequence, m.ImageURL, m.AudioURL)
		}
	}
	if ai.imageCalls != 3 || ai.speechCalls != 3 {
		t.Fatalf("call counts: images=%d speech=%d", ai.imageCalls, ai.speechCalls)
	}
}

func TestRealizeAllImageFailureUsesFallback(t *testing.T) {
	ai := newFakeAI()
	ai.imageErr = errors.New("image model down")
	mr := NewMediaRealizer(testLogger(t), ai, testMediaStore(t), testFallback(t))

	media, err := mr.RealizeAll(context.Background(), uuid.New(), "T", testPromptedScenes(), "nova")
	if err != nil {
		t.Fatalf("RealizeAll should degrade, got: %v", err)
	}
	for _, m := range media {
		if !m.ImageFallback {
			t.Fatalf("scene %d should be a fallback image", m.Sequence)
		}
		if m.ImageURL == "" || m.AudioURL == "" {
			t.Fatalf("scene %d missing urls despite fallback", m.Sequence)
		}
	}
}

func TestRealizeAllSingleImageFailureLeavesSiblingsIntact(t *testing.T) {
	ai := newFakeAI()
	ai.imageErr = errors.New("image model down")
	ai.imageErrPrompt = "p2"
	mr := NewMediaRealizer(testLogger(t), ai, testMediaStore(t), testFallback(t))

	media, err := mr.RealizeAll(context.Background(), uuid.New(), "T", testPromptedScenes(), "nova")
	if err != nil {
		t.Fatalf("RealizeAll: %v", err)
	}
	if len(media) != 3 {
		t.Fatalf("media count: %d", len(media))
	}
	for _, m := range media {
		if m.ImageURL == "" || m.AudioURL == "" {
			t.Fatalf("scene %d missing urls: %+v", m.Sequence, m)
		}
		if m.Sequence == 2 {
			if !m.ImageFallback {
				t.Fatalf("scene 2 should be the fallback image")
			}
			continue
		}
		if m.ImageFallback {
			t.Fatalf("scene %d degraded to fallback for a sibling's failure", m.Sequence)
		}
	}
	if ai.speechCalls != 3 {
		t.Fatalf("speech calls: got %d want 3", ai.speechCalls)
	}
}

func TestRealizeAllAudioFailureAborts(t *testing.T) {
	ai := newFakeAI()
	ai.speechErr = errors.New("speech model down")
	mr := NewMediaRealizer(testLogger(t), ai, testMediaStore(t), testFallback(t))

	_, err := mr.RealizeAll(context.Background(), uuid.New(), "T", testPromptedScenes(), "nova")
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageMedia {
		t.Fatalf("expected media StageError, got %v", err)
	}
}

func TestRealizeAllEmptyScenes(t *testing.T) {
	mr := NewMediaRealizer(testLogger(t), newFakeAI(), testMediaStore(t), testFallback(t))
	if _, err := mr.RealizeAll(context.Background(), uuid.New(), "T", nil, "nova"); err == nil {
		t.Fatalf("expected error for empty scene list")
	}
}

func TestFallbackRendererProducesPNG(t *testing.T) {
	fr := testFallback(t)
	b, err := fr.Render("Mira and the Moonlit Forest")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(b) < 8 || string(b[1:4]) != "PNG" {
		t.Fatalf("output is not a PNG (%d bytes)", len(b))
	}
}
