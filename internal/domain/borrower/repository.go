package borrower

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, b *Borrower) error

	GetByID(ctx context.Context, borrowerID uuid.UUID) (*Borrower, error)

	// ExistsByAadharOrEmail reports which of the two identity fields is already registered.
	ExistsByAadharOrEmail(ctx context.Context, aadharID, email string) (aadharTaken bool, emailTaken bool, err error)

	UpdateCreditScore(ctx context.Context, borrowerID uuid.UUID, score int) error
}

// HistorySource looks up the net transaction balance (credits minus debits) for an identity key.
// found is false when the borrower has no transaction history.
type HistorySource interface {
	NetBalance(ctx context.Context, aadharID string) (balance decimal.Decimal, found bool, err error)
}
