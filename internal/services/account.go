package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storynest/storynest-backend/internal/data/repos"
	"github.com/storynest/storynest-backend/internal/domain"
	apperrors "github.com/storynest/storynest-backend/internal/pkg/errors"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

// AccountService provisions the local account row for an authenticated
// identity. Authentication itself happens upstream; the token's subject is
// the user id we store under.
type AccountService interface {
	// Register creates the account on first login and grants the signup
	// credits. Calling it again for an existing account is a no-op that
	// returns the current state, so clients can call it on every login.
	Register(ctx context.Context, userID uuid.UUID, email, displayName string) (*domain.User, error)
}

type accountService struct {
	db  *gorm.DB
	log *logger.Logger

	userRepo   repos.UserRepo
	creditRepo repos.CreditRepo

	signupGrant int
}

func NewAccountService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	creditRepo repos.CreditRepo,
	signupGrant int,
) AccountService {
	return &accountService{
		db:          db,
		log:         baseLog.With("service", "AccountService"),
		userRepo:    userRepo,
		creditRepo:  creditRepo,
		signupGrant: signupGrant,
	}
}

func (as *accountService) Register(ctx context.Context, userID uuid.UUID, email, displayName string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", apperrors.ErrInvalidArgument)
	}

	existing, err := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && existing[0] != nil {
		return existing[0], nil
	}

	u := &domain.User{
		ID:          userID,
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
	}
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := as.userRepo.Create(ctx, tx, []*domain.User{u}); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		if as.signupGrant > 0 {
			if err := as.creditRepo.Grant(ctx, tx, userID, as.signupGrant, repos.LedgerReasonSignup); err != nil {
				return fmt.Errorf("signup grant: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		// Two first-login calls can race past the existence check. The loser's
		// insert hits the primary key; the account it wanted now exists, so
		// return it instead of the conflict.
		if rows, getErr := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID}); getErr == nil && len(rows) > 0 && rows[0] != nil {
			return rows[0], nil
		}
		return nil, err
	}

	as.log.Info("Account registered", "user_id", userID, "signup_grant", as.signupGrant)
	u.Credits = as.signupGrant
	return u, nil
}
