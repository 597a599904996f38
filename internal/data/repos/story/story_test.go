package story

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/storynest/storynest-backend/internal/data/repos/testutil"
	types "github.com/storynest/storynest-backend/internal/domain"
)

func TestStoryRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewStoryRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "storyrepo@example.com", 5)
	s := &types.Story{
		ID:        uuid.New(),
		UserID:    u.ID,
		Title:     "The Brave Fox",
		ChildName: "Mira",
		ChildAge:  5,
		Theme:     "adventure",
		Content:   "Once upon a time.",
	}
	if _, err := repo.Create(ctx, tx, []*types.Story{s}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{s.ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.GetByUserIDs(ctx, tx, []uuid.UUID{u.ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByUserIDs: err=%v len=%d", err, len(rows))
	}

	if err := repo.SetApproved(ctx, tx, s.ID, true); err != nil {
		t.Fatalf("SetApproved: %v", err)
	}
	rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{s.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("after SetApproved GetByIDs: err=%v len=%d", err, len(rows))
	}
	if !rows[0].Approved {
		t.Fatalf("story not approved")
	}

	if err := repo.FullDeleteByIDs(ctx, tx, []uuid.UUID{s.ID}); err != nil {
		t.Fatalf("FullDeleteByIDs: %v", err)
	}
	if rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{s.ID}); err != nil || len(rows) != 0 {
		t.Fatalf("after FullDeleteByIDs GetByIDs: err=%v len=%d", err, len(rows))
	}
}

func TestStorySegmentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewStorySegmentRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "segmentrepo@example.com", 5)
	s := testutil.SeedStory(t, ctx, tx, u.ID, "The Lost Lantern")
	testutil.SeedSegments(t, ctx, tx, s.ID, 3)

	rows, err := repo.GetByStoryIDs(ctx, tx, []uuid.UUID{s.ID})
	if err != nil || len(rows) != 3 {
		t.Fatalf("GetByStoryIDs: err=%v len=%d", err, len(rows))
	}
	for i, seg := range rows {
		if seg.Sequence != i+1 {
			t.Fatalf("segment %d out of order: sequence=%d", i, seg.Sequence)
		}
	}

	if err := repo.FullDeleteByStoryIDs(ctx, tx, []uuid.UUID{s.ID}); err != nil {
		t.Fatalf("FullDeleteByStoryIDs: %v", err)
	}
	if rows, err := repo.GetByStoryIDs(ctx, tx, []uuid.UUID{s.ID}); err != nil || len(rows) != 0 {
		t.Fatalf("after FullDeleteByStoryIDs: err=%v len=%d", err, len(rows))
	}
}
