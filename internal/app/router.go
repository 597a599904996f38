package app

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storynest/storynest-backend/internal/http/middleware"
)

func wireRouter(cfg Config, handlerset Handlers, auth *middleware.AuthMiddleware) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.CORS())

	router.GET("/healthz", handlerset.Health.HealthCheck)

	// Local mode serves stored media straight from disk.
	if strings.EqualFold(strings.TrimSpace(cfg.MediaStorageMode), "local") || strings.TrimSpace(cfg.MediaStorageMode) == "" {
		router.Static("/media", cfg.MediaLocalDir)
	}

	api := router.Group("/api")
	api.Use(auth.RequireAuth())
	{
		api.POST("/account", handlerset.Account.RegisterAccount)

		api.POST("/stories", handlerset.Story.CreateStory)
		api.GET("/stories", handlerset.Story.ListStories)
		api.GET("/stories/:id", handlerset.Story.GetStory)
		api.POST("/stories/:id/approve", handlerset.Story.ApproveStory)
		api.DELETE("/stories/:id", handlerset.Story.DeleteStory)

		api.GET("/credits", handlerset.Credits.GetCredits)
	}

	return router
}
