package story

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/storynest/storynest-backend/internal/domain"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

type StorySegmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, segments []*types.StorySegment) ([]*types.StorySegment, error)
	GetByStoryIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) ([]*types.StorySegment, error)
	FullDeleteByStoryIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) error
}

type storySegmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStorySegmentRepo(db *gorm.DB, baseLog *logger.Logger) StorySegmentRepo {
	repoLog := baseLog.With("repo", "StorySegmentRepo")
	return &storySegmentRepo{db: db, log: repoLog}
}

func (r *storySegmentRepo) Create(ctx context.Context, tx *gorm.DB, segments []*types.StorySegment) ([]*types.StorySegment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(segments) == 0 {
		return []*types.StorySegment{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&segments).Error; err != nil {
		return nil, err
	}
	return segments, nil
}

func (r *storySegmentRepo) GetByStoryIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) ([]*types.StorySegment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StorySegment
	if len(storyIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("story_id IN ?", storyIDs).
		Order("sequence ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *storySegmentRepo) FullDeleteByStoryIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(storyIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Unscoped().
		Where("story_id IN ?", storyIDs).
		Delete(&types.StorySegment{}).Error; err != nil {
		return err
	}
	return nil
}
