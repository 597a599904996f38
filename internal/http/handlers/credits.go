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

type CreditsHandler struct {
	log           *logger.Logger
	creditService services.CreditService
}

func NewCreditsHandler(log *logger.Logger, creditService services.CreditService) *CreditsHandler {
	return &CreditsHandler{
		log:           log.With("handler", "CreditsHandler"),
		creditService: creditService,
	}
}

func (h *CreditsHandler) GetCredits(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	balance, err := h.creditService.Balance(c.Request.Context(), rd.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "user_not_found", err)
			return
		}
		h.log.Error("GetCredits failed", "error", err, "user_id", rd.UserID)
		response.RespondError(c, http.StatusInternalServerError, "load_credits_failed", err)
		return
	}

	ledger, err := h.creditService.Ledger(c.Request.Context(), rd.UserID)
	if err != nil {
		h.log.Error("GetCredits ledger failed", "error", err, "user_id", rd.UserID)
		response.RespondError(c, http.StatusInternalServerError, "load_credits_failed", err)
		return
	}

	response.RespondOK(c, gin.H{"balance": balance, "ledger": ledger})
}
