package user

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storynest/storynest-backend/internal/data/repos/testutil"
	apperrors "github.com/storynest/storynest-backend/internal/pkg/errors"
)

func TestCreditRepoDebitForStory(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCreditRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "creditdebit@example.com", 3)
	storyID := uuid.New()

	if err := repo.DebitForStory(ctx, tx, u.ID, storyID, 1); err != nil {
		t.Fatalf("DebitForStory: %v", err)
	}

	balance, err := repo.Balance(ctx, tx, u.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 2 {
		t.Fatalf("balance after debit: got %d want 2", balance)
	}

	entries, err := repo.LedgerByUserIDs(ctx, tx, []uuid.UUID{u.ID})
	if err != nil || len(entries) != 1 {
		t.Fatalf("LedgerByUserIDs: err=%v len=%d", err, len(entries))
	}
	if entries[0].Delta != -1 || entries[0].Reason != LedgerReasonStoryDebit {
		t.Fatalf("ledger entry: delta=%d reason=%q", entries[0].Delta, entries[0].Reason)
	}
	if entries[0].StoryID == nil || *entries[0].StoryID != storyID {
		t.Fatalf("ledger entry missing story id")
	}
}

func TestCreditRepoDebitInsufficient(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCreditRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "creditpoor@example.com", 0)

	err := repo.DebitForStory(ctx, tx, u.ID, uuid.New(), 1)
	if !errors.Is(err, apperrors.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}

	balance, err := repo.Balance(ctx, tx, u.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance changed on failed debit: got %d", balance)
	}
}

func TestCreditRepoGrant(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCreditRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "creditgrant@example.com", 0)

	if err := repo.Grant(ctx, tx, u.ID, 5, ""); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	balance, err := repo.Balance(ctx, tx, u.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 5 {
		t.Fatalf("balance after grant: got %d want 5", balance)
	}
}

// Two concurrent debits against a single remaining credit: exactly one must
// win. Uses real sessions, not the rolled-back test tx, so the row lock is
// exercised across connections.
func TestCreditRepoConcurrentDebit(t *testing.T) {
	db := testutil.DB(t)

	ctx := context.Background()
	repo := NewCreditRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, db, "creditrace@example.com", 1)
	t.Cleanup(func() {
		_ = db.Exec(`DELETE FROM credit_ledger_entry WHERE user_id = ?`, u.ID).Error
		_ = db.Exec(`DELETE FROM "user" WHERE id = ?`, u.ID).Error
	})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = db.Transaction(func(tx *gorm.DB) error {
				return repo.DebitForStory(ctx, tx, u.ID, uuid.New(), 1)
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, apperrors.ErrInsufficientCredits) {
			t.Fatalf("unexpected debit error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("concurrent debits: %d succeeded, want exactly 1", succeeded)
	}

	balance, err := repo.Balance(ctx, nil, u.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance after race: got %d want 0", balance)
	}
}
