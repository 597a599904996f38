package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storynest/storynest-backend/internal/data/repos"
	"github.com/storynest/storynest-backend/internal/domain"
	apperrors "github.com/storynest/storynest-backend/internal/pkg/errors"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

type CreditService interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	Ledger(ctx context.Context, userID uuid.UUID) ([]*domain.CreditLedgerEntry, error)
	Grant(ctx context.Context, userID uuid.UUID, amount int, reason string) error
}

type creditService struct {
	log        *logger.Logger
	creditRepo repos.CreditRepo
}

func NewCreditService(baseLog *logger.Logger, creditRepo repos.CreditRepo) CreditService {
	return &creditService{
		log:        baseLog.With("service", "CreditService"),
		creditRepo: creditRepo,
	}
}

func (cs *creditService) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	balance, err := cs.creditRepo.Balance(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

func (cs *creditService) Ledger(ctx context.Context, userID uuid.UUID) ([]*domain.CreditLedgerEntry, error) {
	return cs.creditRepo.LedgerByUserIDs(ctx, nil, []uuid.UUID{userID})
}

func (cs *creditService) Grant(ctx context.Context, userID uuid.UUID, amount int, reason string) error {
	return cs.creditRepo.Grant(ctx, nil, userID, amount, reason)
}
