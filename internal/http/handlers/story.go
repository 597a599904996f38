package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storynest/storynest-backend/internal/domain"
	"github.com/storynest/storynest-backend/internal/http/response"
	"github.com/storynest/storynest-backend/internal/pkg/ctxutil"
	apperrors "github.com/storynest/storynest-backend/internal/pkg/errors"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
	"github.com/storynest/storynest-backend/internal/services"
)

type StoryHandler struct {
	log          *logger.Logger
	storyService services.StoryService
}

func NewStoryHandler(log *logger.Logger, storyService services.StoryService) *StoryHandler {
	return &StoryHandler{
		log:          log.With("handler", "StoryHandler"),
		storyService: storyService,
	}
}

type createStoryRequest struct {
	ChildName     string `json:"child_name" binding:"required"`
	ChildAge      int    `json:"child_age" binding:"required"`
	MainCharacter string `json:"main_character"`
	Theme         string `json:"theme" binding:"required"`
	Language      string `json:"language"`
	PreviousStory string `json:"previous_story"`
}

func (h *StoryHandler) CreateStory(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	story, segments, err := h.storyService.CreateStory(c.Request.Context(), rd.UserID, domain.GenerationRequest{
		ChildName:     req.ChildName,
		ChildAge:      req.ChildAge,
		MainCharacter: req.MainCharacter,
		Theme:         req.Theme,
		Language:      req.Language,
		PreviousStory: req.PreviousStory,
	})
	if err != nil {
		h.respondStoryError(c, rd.UserID, err)
		return
	}

	response.RespondCreated(c, gin.H{"story": story, "segments": segments})
}

func (h *StoryHandler) ListStories(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	stories, err := h.storyService.ListStories(c.Request.Context(), rd.UserID)
	if err != nil {
		h.log.Error("ListStories failed", "error", err, "user_id", rd.UserID)
		response.RespondError(c, http.StatusInternalServerError, "load_stories_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"stories": stories})
}

func (h *StoryHandler) GetStory(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_story_id", err)
		return
	}

	story, segments, err := h.storyService.GetStory(c.Request.Context(), rd.UserID, storyID)
	if err != nil {
		h.respondStoryError(c, rd.UserID, err)
		return
	}
	response.RespondOK(c, gin.H{"story": story, "segments": segments})
}

type approveStoryRequest struct {
	Approved *bool `json:"approved"`
}

func (h *StoryHandler) ApproveStory(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_story_id", err)
		return
	}

	approved := true
	var req approveStoryRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.Approved != nil {
		approved = *req.Approved
	}

	if err := h.storyService.ApproveStory(c.Request.Context(), rd.UserID, storyID, approved); err != nil {
		h.respondStoryError(c, rd.UserID, err)
		return
	}
	response.RespondOK(c, gin.H{"story_id": storyID, "approved": approved})
}

func (h *StoryHandler) DeleteStory(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_story_id", err)
		return
	}

	if err := h.storyService.DeleteStory(c.Request.Context(), rd.UserID, storyID); err != nil {
		h.respondStoryError(c, rd.UserID, err)
		return
	}
	response.RespondOK(c, gin.H{"story_id": storyID, "deleted": true})
}

func (h *StoryHandler) respondStoryError(c *gin.Context, userID uuid.UUID, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument):
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, apperrors.ErrInsufficientCredits):
		response.RespondError(c, http.StatusPaymentRequired, "insufficient_credits", err)
	case errors.Is(err, apperrors.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "story_not_found", err)
	default:
		var se *services.StageError
		if errors.As(err, &se) {
			h.log.Error("Story pipeline failed", "stage", se.Stage, "error", err, "user_id", userID)
			response.RespondError(c, http.StatusBadGateway, "generation_failed_"+se.Stage, err)
			return
		}
		h.log.Error("Story request failed", "error", err, "user_id", userID)
		response.RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
