package app

import (
	"gorm.io/gorm"

	"github.com/storynest/storynest-backend/internal/data/repos"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

type Repos struct {
	User    repos.UserRepo
	Credit  repos.CreditRepo
	Story   repos.StoryRepo
	Segment repos.StorySegmentRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		User:    repos.NewUserRepo(db, log),
		Credit:  repos.NewCreditRepo(db, log),
		Story:   repos.NewStoryRepo(db, log),
		Segment: repos.NewStorySegmentRepo(db, log),
	}
}
