package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storynest/storynest-backend/internal/http/response"
	"github.com/storynest/storynest-backend/internal/pkg/ctxutil"
	apperrors "github.com/storynest/storynest-backend/internal/pkg/errors"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
	"github.com/storynest/storynest-backend/internal/services"
)

type AccountHandler struct {
	log            *logger.Logger
	accountService services.AccountService
}

func NewAccountHandler(log *logger.Logger, accountService services.AccountService) *AccountHandler {
	return &AccountHandler{
		log:            log.With("handler", "AccountHandler"),
		accountService: accountService,
	}
}

type registerAccountRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"display_name"`
}

// RegisterAccount provisions the account row for the token's subject.
// Idempotent, so the frontend calls it after every login.
func (h *AccountHandler) RegisterAccount(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req registerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	u, err := h.accountService.Register(c.Request.Context(), rd.UserID, req.Email, req.DisplayName)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidArgument) {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		h.log.Error("RegisterAccount failed", "error", err, "user_id", rd.UserID)
		response.RespondError(c, http.StatusInternalServerError, "register_failed", err)
		return
	}

	response.RespondOK(c, gin.H{"user": u})
}
