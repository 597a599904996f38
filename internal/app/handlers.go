package app

import (
	"github.com/storynest/storynest-backend/internal/http/handlers"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

type Handlers struct {
	Health  *handlers.HealthHandler
	Account *handlers.AccountHandler
	Story   *handlers.StoryHandler
	Credits *handlers.CreditsHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	return Handlers{
		Health:  handlers.NewHealthHandler(),
		Account: handlers.NewAccountHandler(log, serviceset.Account),
		Story:   handlers.NewStoryHandler(log, serviceset.Story),
		Credits: handlers.NewCreditsHandler(log, serviceset.Credit),
	}
}
