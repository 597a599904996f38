package story

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/storynest/storynest-backend/internal/domain"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

type StoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, stories []*types.Story) ([]*types.Story, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) ([]*types.Story, error)
	GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Story, error)
	SetApproved(ctx context.Context, tx *gorm.DB, storyID uuid.UUID, approved bool) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) error
}

type storyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoryRepo(db *gorm.DB, baseLog *logger.Logger) StoryRepo {
	repoLog := baseLog.With("repo", "StoryRepo")
	return &storyRepo{db: db, log: repoLog}
}

func (r *storyRepo) Create(ctx context.Context, tx *gorm.DB, stories []*types.Story) ([]*types.Story, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(stories) == 0 {
		return []*types.Story{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&stories).Error; err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *storyRepo) GetByIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) ([]*types.Story, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Story
	if len(storyIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", storyIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *storyRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Story, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Story
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *storyRepo) SetApproved(ctx context.Context, tx *gorm.DB, storyID uuid.UUID, approved bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Story{}).
		Where("id = ?", storyID).
		Update("approved", approved).Error; err != nil {
		return err
	}
	return nil
}

func (r *storyRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(storyIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Unscoped().
		Where("id IN ?", storyIDs).
		Delete(&types.Story{}).Error; err != nil {
		return err
	}
	return nil
}
