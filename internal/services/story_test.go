package services

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/storynest/storynest-backend/internal/data/repos"
	"github.com/storynest/storynest-backend/internal/data/repos/testutil"
	"github.com/storynest/storynest-backend/internal/domain"
	apperrors "github.com/storynest/storynest-backend/internal/pkg/errors"
)

func newTestStoryServiceAt(t *testing.T, ai *fakeAI) (StoryService, repos.CreditRepo, string) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	storyRepo := repos.NewStoryRepo(db, log)
	segmentRepo := repos.NewStorySegmentRepo(db, log)
	creditRepo := repos.NewCreditRepo(db, log)

	store, mediaDir := testMediaStoreDir(t)
	svc := NewStoryService(
		db, log,
		storyRepo, segmentRepo, creditRepo,
		NewStoryGenerator(log, ai),
		NewPromptCompiler(),
		NewMediaRealizer(log, ai, store, testFallback(t)),
		store,
		"nova",
	)
	return svc, creditRepo, mediaDir
}

func newTestStoryService(t *testing.T, ai *fakeAI) (StoryService, repos.CreditRepo) {
	t.Helper()
	svc, creditRepo, _ := newTestStoryServiceAt(t, ai)
	return svc, creditRepo
}

func cleanupUser(t *testing.T, userID uuid.UUID) {
	t.Helper()
	db := testutil.DB(t)
	t.Cleanup(func() {
		_ = db.Exec(`DELETE FROM story_segment WHERE story_id IN (SELECT id FROM story WHERE user_id = ?)`, userID).Error
		_ = db.Exec(`DELETE FROM story WHERE user_id = ?`, userID).Error
		_ = db.Exec(`DELETE FROM credit_ledger_entry WHERE user_id = ?`, userID).Error
		_ = db.Exec(`DELETE FROM "user" WHERE id = ?`, userID).Error
	})
}

func TestCreateStoryEndToEnd(t *testing.T) {
	db := testutil.DB(t)
	svc, creditRepo := newTestStoryService(t, newFakeAI())

	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db, "storysvc@example.com", 2)
	cleanupUser(t, u.ID)

	story, segments, err := svc.CreateStory(ctx, u.ID, domain.GenerationRequest{
		ChildName: "Mira",
		ChildAge:  5,
		Theme:     "adventure",
	})
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}

	if story.Title != "Mira and the Moonlit Forest" {
		t.Fatalf("title: %q", story.Title)
	}
	if len(segments) != domain.SceneCount {
		t.Fatalf("segment count: %d", len(segments))
	}
	for i, seg := range segments {
		if seg.Sequence != i+1 {
			t.Fatalf("segment %d sequence: %d", i, seg.Sequence)
		}
		if seg.Content == "" || seg.ImageURL == "" || seg.AudioURL == "" {
			t.Fatalf("segment %d incomplete: %+v", i, seg)
		}
	}
	if !strings.Contains(story.Content, segments[0].Content) {
		t.Fatalf("story content missing scene narration")
	}

	balance, err := creditRepo.Balance(ctx, nil, u.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 2-CreditCostPerStory {
		t.Fatalf("balance after story: got %d", balance)
	}

	entries, err := creditRepo.LedgerByUserIDs(ctx, nil, []uuid.UUID{u.ID})
	if err != nil || len(entries) != 1 {
		t.Fatalf("ledger: err=%v len=%d", err, len(entries))
	}
	if entries[0].StoryID == nil || *entries[0].StoryID != story.ID {
		t.Fatalf("ledger entry not linked to story")
	}

	// Persisted rows match what was returned.
	got, gotSegs, err := svc.GetStory(ctx, u.ID, story.ID)
	if err != nil {
		t.Fatalf("GetStory: %v", err)
	}
	if got.ID != story.ID || len(gotSegs) != len(segments) {
		t.Fatalf("GetStory mismatch")
	}
}

func TestCreateStoryInsufficientCredits(t *testing.T) {
	db := testutil.DB(t)
	ai := newFakeAI()
	svc, _ := newTestStoryService(t, ai)

	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db, "storybroke@example.com", 0)
	cleanupUser(t, u.ID)

	_, _, err := svc.CreateStory(ctx, u.ID, domain.GenerationRequest{
		ChildName: "Mira",
		ChildAge:  5,
		Theme:     "adventure",
	})
	if !errors.Is(err, apperrors.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	// No model calls for an account that cannot pay.
	if ai.imageCalls != 0 || ai.speechCalls != 0 {
		t.Fatalf("media generated despite empty balance")
	}
}

func TestCreateStoryGenerationFailureLeavesNoRows(t *testing.T) {
	db := testutil.DB(t)
	ai := newFakeAI()
	ai.jsonErr["story_content"] = errors.New("model unavailable")
	svc, creditRepo := newTestStoryService(t, ai)

	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db, "storyfail@example.com", 3)
	cleanupUser(t, u.ID)

	_, _, err := svc.CreateStory(ctx, u.ID, domain.GenerationRequest{
		ChildName: "Mira",
		ChildAge:  5,
		Theme:     "adventure",
	})
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageStory {
		t.Fatalf("expected story StageError, got %v", err)
	}

	balance, _ := creditRepo.Balance(ctx, nil, u.ID)
	if balance != 3 {
		t.Fatalf("balance changed on failed generation: %d", balance)
	}
	stories, err := svc.ListStories(ctx, u.ID)
	if err != nil || len(stories) != 0 {
		t.Fatalf("stories persisted on failure: err=%v len=%d", err, len(stories))
	}
}

func TestCreateStoryGarbageOutlineAbortsEverything(t *testing.T) {
	db := testutil.DB(t)
	ai := newFakeAI()
	ai.jsonBySchema["story_outline"] = "Once upon a time there was no JSON at all."
	svc, creditRepo := newTestStoryService(t, ai)

	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db, "storygarbage@example.com", 3)
	cleanupUser(t, u.ID)

	_, _, err := svc.CreateStory(ctx, u.ID, domain.GenerationRequest{
		ChildName: "Mira",
		ChildAge:  5,
		Theme:     "adventure",
	})
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageOutline {
		t.Fatalf("expected outline StageError, got %v", err)
	}

	// Nothing downstream of the first stage may run.
	if ai.imageCalls != 0 || ai.speechCalls != 0 {
		t.Fatalf("media generated after a failed outline: images=%d speech=%d", ai.imageCalls, ai.speechCalls)
	}
	balance, _ := creditRepo.Balance(ctx, nil, u.ID)
	if balance != 3 {
		t.Fatalf("balance changed on failed outline: %d", balance)
	}
	stories, err := svc.ListStories(ctx, u.ID)
	if err != nil || len(stories) != 0 {
		t.Fatalf("stories persisted on failure: err=%v len=%d", err, len(stories))
	}
}

func TestCreateStoryAudioFailureCleansUpImages(t *testing.T) {
	db := testutil.DB(t)
	ai := newFakeAI()
	ai.speechErr = errors.New("speech model down")
	svc, creditRepo, mediaDir := newTestStoryServiceAt(t, ai)

	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db, "storyaudiofail@example.com", 2)
	cleanupUser(t, u.ID)

	_, _, err := svc.CreateStory(ctx, u.ID, domain.GenerationRequest{
		ChildName: "Mira",
		ChildAge:  5,
		Theme:     "adventure",
	})
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageMedia {
		t.Fatalf("expected media StageError, got %v", err)
	}

	balance, _ := creditRepo.Balance(ctx, nil, u.ID)
	if balance != 2 {
		t.Fatalf("balance changed on failed realization: %d", balance)
	}

	// Any images saved before the batch aborted must be gone.
	var leftover []string
	walkErr := filepath.WalkDir(mediaDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			leftover = append(leftover, path)
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk media dir: %v", walkErr)
	}
	if len(leftover) != 0 {
		t.Fatalf("orphaned media left behind: %v", leftover)
	}
}

func TestCreateStoryValidation(t *testing.T) {
	svc, _ := newTestStoryService(t, newFakeAI())
	ctx := context.Background()

	cases := []domain.GenerationRequest{
		{ChildName: "", ChildAge: 5, Theme: "adventure"},
		{ChildName: "Mira", ChildAge: 0, Theme: "adventure"},
		{ChildName: "Mira", ChildAge: 42, Theme: "adventure"},
		{ChildName: "Mira", ChildAge: 5, Theme: ""},
		{ChildName: "Mira", ChildAge: 5, Theme: "horror"},
	}
	for i, req := range cases {
		_, _, err := svc.CreateStory(ctx, uuid.New(), req)
		if !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestStoryOwnership(t *testing.T) {
	db := testutil.DB(t)
	svc, _ := newTestStoryService(t, newFakeAI())

	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, db, "storyowner@example.com", 1)
	other := testutil.SeedUser(t, ctx, db, "storyother@example.com", 1)
	cleanupUser(t, owner.ID)
	cleanupUser(t, other.ID)

	story, _, err := svc.CreateStory(ctx, owner.ID, domain.GenerationRequest{
		ChildName: "Mira",
		ChildAge:  5,
		Theme:     "adventure",
	})
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}

	if _, _, err := svc.GetStory(ctx, other.ID, story.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("foreign GetStory: expected ErrNotFound, got %v", err)
	}
	if err := svc.ApproveStory(ctx, other.ID, story.ID, true); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("foreign ApproveStory: expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteStory(ctx, other.ID, story.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("foreign DeleteStory: expected ErrNotFound, got %v", err)
	}

	if err := svc.ApproveStory(ctx, owner.ID, story.ID, true); err != nil {
		t.Fatalf("ApproveStory: %v", err)
	}
	got, _, err := svc.GetStory(ctx, owner.ID, story.ID)
	if err != nil || !got.Approved {
		t.Fatalf("story not approved: err=%v", err)
	}

	if err := svc.DeleteStory(ctx, owner.ID, story.ID); err != nil {
		t.Fatalf("DeleteStory: %v", err)
	}
	if _, _, err := svc.GetStory(ctx, owner.ID, story.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("deleted story still readable: %v", err)
	}
}
