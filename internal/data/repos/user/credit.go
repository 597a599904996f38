package user

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/storynest/storynest-backend/internal/domain"
	apperrors "github.com/storynest/storynest-backend/internal/pkg/errors"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

const (
	LedgerReasonStoryDebit = "story_generation"
	LedgerReasonGrant      = "grant"
	LedgerReasonSignup     = "signup_grant"
)

type CreditRepo interface {
	// DebitForStory locks the user row, verifies the balance covers amount,
	// decrements it and writes a ledger entry. Returns
	// apperrors.ErrInsufficientCredits when the balance is too low. Must run
	// inside the caller's transaction so the debit rolls back with the story.
	DebitForStory(ctx context.Context, tx *gorm.DB, userID uuid.UUID, storyID uuid.UUID, amount int) error

	// Grant adds credits outside any story, e.g. signup bonus or purchase.
	Grant(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, reason string) error

	Balance(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error)
	LedgerByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.CreditLedgerEntry, error)
}

type creditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCreditRepo(db *gorm.DB, baseLog *logger.Logger) CreditRepo {
	repoLog := baseLog.With("repo", "CreditRepo")
	return &creditRepo{db: db, log: repoLog}
}

func (r *creditRepo) DebitForStory(ctx context.Context, tx *gorm.DB, userID uuid.UUID, storyID uuid.UUID, amount int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if amount <= 0 {
		return apperrors.ErrInvalidArgument
	}

	var locked types.User
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&locked).Error; err != nil {
		return err
	}
	if locked.Credits < amount {
		return apperrors.ErrInsufficientCredits
	}

	if err := transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Update("credits", gorm.Expr("credits - ?", amount)).Error; err != nil {
		return err
	}

	entry := &types.CreditLedgerEntry{
		UserID:  userID,
		StoryID: &storyID,
		Delta:   -amount,
		Reason:  LedgerReasonStoryDebit,
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}
	return nil
}

func (r *creditRepo) Grant(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, reason string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if amount <= 0 {
		return apperrors.ErrInvalidArgument
	}
	if reason == "" {
		reason = LedgerReasonGrant
	}

	if err := transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Update("credits", gorm.Expr("credits + ?", amount)).Error; err != nil {
		return err
	}

	entry := &types.CreditLedgerEntry{
		UserID: userID,
		Delta:  amount,
		Reason: reason,
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}
	return nil
}

func (r *creditRepo) Balance(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.User
	if err := transaction.WithContext(ctx).
		Select("credits").
		Where("id = ?", userID).
		First(&result).Error; err != nil {
		return 0, err
	}
	return result.Credits, nil
}

func (r *creditRepo) LedgerByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.CreditLedgerEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CreditLedgerEntry
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
