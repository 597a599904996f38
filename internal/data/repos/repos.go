package repos

import (
	"gorm.io/gorm"

	"github.com/storynest/storynest-backend/internal/data/repos/story"
	"github.com/storynest/storynest-backend/internal/data/repos/user"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

type UserRepo = user.UserRepo
type CreditRepo = user.CreditRepo

const (
	LedgerReasonStoryDebit = user.LedgerReasonStoryDebit
	LedgerReasonGrant      = user.LedgerReasonGrant
	LedgerReasonSignup     = user.LedgerReasonSignup
)

type StoryRepo = story.StoryRepo
type StorySegmentRepo = story.StorySegmentRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewCreditRepo(db *gorm.DB, baseLog *logger.Logger) CreditRepo {
	return user.NewCreditRepo(db, baseLog)
}
func NewStoryRepo(db *gorm.DB, baseLog *logger.Logger) StoryRepo {
	return story.NewStoryRepo(db, baseLog)
}
func NewStorySegmentRepo(db *gorm.DB, baseLog *logger.Logger) StorySegmentRepo {
	return story.NewStorySegmentRepo(db, baseLog)
}
