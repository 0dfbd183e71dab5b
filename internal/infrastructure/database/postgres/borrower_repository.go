package postgres

import (
	"context"
	"credit-ledger/internal/domain/borrower"
	"credit-ledger/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	insertBorrowerSQL = `
        INSERT INTO borrowers (id, aadhar_id, name, email, annual_income, credit_score, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING created_at, updated_at`

	selectBorrowerByIDSQL = `
        SELECT id, aadhar_id, name, email, annual_income, credit_score, created_at, updated_at
        FROM borrowers
        WHERE id = $1`

	borrowerIdentityTakenSQL = `
        SELECT
            EXISTS (SELECT 1 FROM borrowers WHERE aadhar_id = $1),
            EXISTS (SELECT 1 FROM borrowers WHERE email = $2)`

	updateCreditScoreSQL = `
        UPDATE borrowers
        SET credit_score = $1, updated_at = NOW()
        WHERE id = $2`
)

type BorrowerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ borrower.Repository = (*BorrowerRepository)(nil)

func NewBorrowerRepository(db DBPool, logger *slog.Logger) *BorrowerRepository {
	if db == nil {
		panic("DBPool cannot be nil for BorrowerRepository")
	}
	return &BorrowerRepository{
		db:     db,
		logger: logger.With("component", "BorrowerRepository"),
	}
}

func (r *BorrowerRepository) Create(ctx context.Context, b *borrower.Borrower) error {
	start := time.Now()
	err := r.db.QueryRow(ctx, insertBorrowerSQL,
		b.ID, b.AadharID, b.Name, b.Email, b.AnnualIncome, b.CreditScore,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err = observe("CreateBorrower", start, err); err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert borrower due to unique constraint violation", slog.Any("error", err))
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert borrower", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert borrower: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Borrower inserted successfully", slog.String("borrowerID", b.ID.String()))
	return nil
}

func (r *BorrowerRepository) GetByID(ctx context.Context, borrowerID uuid.UUID) (*borrower.Borrower, error) {
	start := time.Now()
	var b borrower.Borrower
	err := r.db.QueryRow(ctx, selectBorrowerByIDSQL, borrowerID).Scan(
		&b.ID, &b.AadharID, &b.Name, &b.Email, &b.AnnualIncome, &b.CreditScore, &b.CreatedAt, &b.UpdatedAt,
	)
	if err = observe("GetBorrowerByID", start, err); err != nil {
		if translated := translateDBError(err, r.logger); errors.Is(translated, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get borrower by ID", slog.String("borrowerID", borrowerID.String()), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &b, nil
}

func (r *BorrowerRepository) ExistsByAadharOrEmail(ctx context.Context, aadharID, email string) (bool, bool, error) {
	start := time.Now()
	var aadharTaken, emailTaken bool
	err := r.db.QueryRow(ctx, borrowerIdentityTakenSQL, aadharID, email).Scan(&aadharTaken, &emailTaken)
	if err = observe("BorrowerIdentityTaken", start, err); err != nil {
		r.logger.ErrorContext(ctx, "Failed to check borrower identity", slog.Any("error", err))
		return false, false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return aadharTaken, emailTaken, nil
}

func (r *BorrowerRepository) UpdateCreditScore(ctx context.Context, borrowerID uuid.UUID, score int) error {
	start := time.Now()
	cmdTag, err := r.db.Exec(ctx, updateCreditScoreSQL, score, borrowerID)
	if err = observe("UpdateCreditScore", start, err); err != nil {
		r.logger.ErrorContext(ctx, "Failed to update credit score", slog.String("borrowerID", borrowerID.String()), slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Credit score update affected zero rows, borrower likely not found", slog.String("borrowerID", borrowerID.String()))
		return apperrors.ErrNotFound
	}
	return nil
}
