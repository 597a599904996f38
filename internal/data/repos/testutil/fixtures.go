package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/storynest/storynest-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, credits int) *types.User {
	tb.Helper()
	u := &types.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: "Test Parent",
		Credits:     credits,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedStory(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, title string) *types.Story {
	tb.Helper()
	s := &types.Story{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		ChildName: "Mira",
		ChildAge:  5,
		Theme:     "friendship",
		Content:   "Once upon a time.",
		ImageURLs: datatypes.JSON([]byte("[]")),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed story: %v", err)
	}
	return s
}

func SeedSegments(tb testing.TB, ctx context.Context, tx *gorm.DB, storyID uuid.UUID, n int) []*types.StorySegment {
	tb.Helper()
	out := make([]*types.StorySegment, 0, n)
	for i := 1; i <= n; i++ {
		seg := &types.StorySegment{
			ID:       uuid.New(),
			StoryID:  storyID,
			Sequence: i,
			Content:  fmt.Sprintf("Scene %d.", i),
			ImageURL: fmt.Sprintf("https://cdn.example.com/image/%s/scene_%d.png", storyID, i),
			AudioURL: fmt.Sprintf("https://cdn.example.com/audio/%s/scene_%d.mp3", storyID, i),
		}
		if err := tx.WithContext(ctx).Create(seg).Error; err != nil {
			tb.Fatalf("seed segment %d: %v", i, err)
		}
		out = append(out, seg)
	}
	return out
}
