package app

import (
	"gorm.io/gorm"

	"github.com/storynest/storynest-backend/internal/clients/openai"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
	"github.com/storynest/storynest-backend/internal/services"
	"github.com/storynest/storynest-backend/internal/storage"
)

type Services struct {
	Account services.AccountService
	Story   services.StoryService
	Credit  services.CreditService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, store storage.MediaStore) (Services, error) {
	ai, err := openai.NewClient(log)
	if err != nil {
		return Services{}, err
	}

	fallback, err := services.NewFallbackRenderer(log)
	if err != nil {
		return Services{}, err
	}

	generator := services.NewStoryGenerator(log, ai)
	compiler := services.NewPromptCompiler()
	realizer := services.NewMediaRealizer(log, ai, store, fallback)

	return Services{
		Account: services.NewAccountService(db, log, reposet.User, reposet.Credit, cfg.SignupCreditGrant),
		Story: services.NewStoryService(
			db, log,
			reposet.Story, reposet.Segment, reposet.Credit,
			generator, compiler, realizer, store,
			cfg.SpeechVoice,
		),
		Credit: services.NewCreditService(log, reposet.Credit),
	}, nil
}
