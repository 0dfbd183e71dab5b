package postgres

import (
	"context"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	loanColumns = `id, borrower_id, loan_type, amount, annual_rate, term_months, disbursement_date, status, principal_balance, created_at, updated_at`

	insertLoanSQL = `
        INSERT INTO loans (id, borrower_id, loan_type, amount, annual_rate, term_months, disbursement_date, status, principal_balance, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        RETURNING created_at, updated_at`

	insertInstallmentSQL = `
        INSERT INTO installments (loan_id, sequence, due_date, amount_due, is_paid, created_at, updated_at)
        VALUES ($1, $2, $3, $4, FALSE, NOW(), NOW())`

	selectLoanByIDSQL = `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	lockLoanSQL = `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	selectActiveLoanIDsSQL = `SELECT id FROM loans WHERE status = $1 ORDER BY created_at, id`

	installmentColumns = `id, loan_id, sequence, due_date, amount_due, is_paid, payment_id, paid_at, created_at, updated_at`

	selectInstallmentsSQL = `SELECT ` + installmentColumns + ` FROM installments WHERE loan_id = $1 ORDER BY due_date ASC`

	selectEarliestUnpaidInstallmentSQL = `
        SELECT ` + installmentColumns + `
        FROM installments
        WHERE loan_id = $1 AND is_paid = FALSE
        ORDER BY due_date ASC
        LIMIT 1
        FOR UPDATE`

	countUnpaidInstallmentsSQL = `SELECT COUNT(*) FROM installments WHERE loan_id = $1 AND is_paid = FALSE`

	markInstallmentPaidSQL = `
        UPDATE installments
        SET is_paid = TRUE, payment_id = $1, paid_at = $2, updated_at = NOW()
        WHERE id = $3 AND is_paid = FALSE`

	insertPaymentSQL = `
        INSERT INTO payments (id, loan_id, installment_id, amount, principal_portion, interest_portion, status, paid_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
        RETURNING created_at`

	selectPaymentsSQL = `
        SELECT id, loan_id, installment_id, amount, principal_portion, interest_portion, status, paid_at, created_at
        FROM payments
        WHERE loan_id = $1
        ORDER BY paid_at ASC`

	updatePrincipalBalanceSQL = `UPDATE loans SET principal_balance = $1, updated_at = NOW() WHERE id = $2`

	updateLoanStatusSQL = `UPDATE loans SET status = $1, updated_at = NOW() WHERE id = $2`
)

type LoanRepository struct {
	txSupport
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	if db == nil {
		panic("DBPool cannot be nil for LoanRepository")
	}
	return &LoanRepository{txSupport{db: db, logger: logger.With("component", "LoanRepository")}}
}

func (r *LoanRepository) CreateLoan(ctx context.Context, newLoan *loan.Loan, installments []loan.Installment) (err error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = r.RollbackTx(ctx, tx)
		}
	}()

	start := time.Now()
	err = tx.QueryRow(ctx, insertLoanSQL,
		newLoan.ID, newLoan.BorrowerID, newLoan.Type, newLoan.Amount, newLoan.AnnualRate,
		newLoan.TermMonths, newLoan.DisbursementDate, newLoan.Status, newLoan.PrincipalBalance,
	).Scan(&newLoan.CreatedAt, &newLoan.UpdatedAt)
	if err = observe("CreateLoan", start, err); err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}

	batch := &pgx.Batch{}
	for _, inst := range installments {
		batch.Queue(insertInstallmentSQL, newLoan.ID, inst.Sequence, inst.DueDate, inst.AmountDue)
	}
	results := tx.SendBatch(ctx, batch)
	for i := range installments {
		if _, err = results.Exec(); err != nil {
			_ = results.Close()
			r.logger.ErrorContext(ctx, "Failed executing installment batch insert",
				slog.Any("error", err), slog.Int("sequence", i+1), slog.String("loanID", newLoan.ID.String()))
			return fmt.Errorf("%w: failed inserting installment %d: %w", apperrors.ErrDatabase, i+1, err)
		}
	}
	if err = results.Close(); err != nil {
		r.logger.ErrorContext(ctx, "Failed closing installment batch results", slog.Any("error", err))
		return fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
	}

	if err = r.CommitTx(ctx, tx); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Loan and installments created in DB",
		slog.String("loanID", newLoan.ID.String()), slog.Int("installments", len(installments)))
	return nil
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID, &l.BorrowerID, &l.Type, &l.Amount, &l.AnnualRate, &l.TermMonths,
		&l.DisbursementDate, &l.Status, &l.PrincipalBalance, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	start := time.Now()
	l, err := scanLoan(r.db.QueryRow(ctx, selectLoanByIDSQL, loanID))
	if err = observe("GetLoanByID", start, err); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", slog.String("loanID", loanID.String()))
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) LockLoanInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*loan.Loan, error) {
	start := time.Now()
	l, err := scanLoan(tx.QueryRow(ctx, lockLoanSQL, loanID))
	if err = observe("LockLoan", start, err); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock loan row", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) GetAllActiveLoanIDs(ctx context.Context) ([]uuid.UUID, error) {
	logCtx := r.logger.With(slog.String("operation", "GetAllActiveLoanIDs"))

	rows, err := r.db.Query(ctx, selectActiveLoanIDsSQL, loan.StatusActive)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to query active loan IDs", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query active loans: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loanIDs := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan active loan ID row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed scanning active loan ID: %w", apperrors.ErrDatabase, err)
		}
		loanIDs = append(loanIDs, id)
	}
	if err = rows.Err(); err != nil {
		logCtx.ErrorContext(ctx, "Error iterating active loan ID rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating active loan IDs: %w", apperrors.ErrDatabase, err)
	}

	logCtx.DebugContext(ctx, "Finished getting active loan IDs", slog.Int("count", len(loanIDs)))
	return loanIDs, nil
}

func scanInstallment(row pgx.Row) (*loan.Installment, error) {
	var inst loan.Installment
	err := row.Scan(
		&inst.ID, &inst.LoanID, &inst.Sequence, &inst.DueDate, &inst.AmountDue,
		&inst.IsPaid, &inst.PaymentID, &inst.PaidAt, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *LoanRepository) GetInstallments(ctx context.Context, loanID uuid.UUID) ([]loan.Installment, error) {
	rows, err := r.db.Query(ctx, selectInstallmentsSQL, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query installments", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	installments := make([]loan.Installment, 0)
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan installment row", slog.String("loanID", loanID.String()), slog.Any("error", err))
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		installments = append(installments, *inst)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating installment rows", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return installments, nil
}

func (r *LoanRepository) FindEarliestUnpaidInstallmentInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*loan.Installment, error) {
	inst, err := scanInstallment(tx.QueryRow(ctx, selectEarliestUnpaidInstallmentSQL, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.InfoContext(ctx, "No unpaid installment found", slog.String("loanID", loanID.String()))
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to find/lock earliest unpaid installment", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return inst, nil
}

func (r *LoanRepository) CountUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (int, error) {
	var count int
	if err := tx.QueryRow(ctx, countUnpaidInstallmentsSQL, loanID).Scan(&count); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count unpaid installments", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}

func (r *LoanRepository) MarkInstallmentPaidInTx(ctx context.Context, tx pgx.Tx, installmentID int64, paymentID uuid.UUID, paidAt time.Time) error {
	cmdTag, err := tx.Exec(ctx, markInstallmentPaidSQL, paymentID, paidAt, installmentID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark installment paid", slog.Int64("installmentID", installmentID), slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Installment already paid or missing", slog.Int64("installmentID", installmentID))
		return fmt.Errorf("%w: installment %d is already paid", apperrors.ErrConflict, installmentID)
	}
	return nil
}

func (r *LoanRepository) CreatePaymentInTx(ctx context.Context, tx pgx.Tx, p *loan.Payment) error {
	start := time.Now()
	err := tx.QueryRow(ctx, insertPaymentSQL,
		p.ID, p.LoanID, p.InstallmentID, p.Amount, p.PrincipalPortion, p.InterestPortion, p.Status, p.PaidAt,
	).Scan(&p.CreatedAt)
	if err = observe("CreatePayment", start, err); err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert payment", slog.String("loanID", p.LoanID.String()), slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *LoanRepository) ListPayments(ctx context.Context, loanID uuid.UUID) ([]loan.Payment, error) {
	rows, err := r.db.Query(ctx, selectPaymentsSQL, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query payments", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	payments := make([]loan.Payment, 0)
	for rows.Next() {
		var p loan.Payment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.InstallmentID, &p.Amount, &p.PrincipalPortion,
			&p.InterestPortion, &p.Status, &p.PaidAt, &p.CreatedAt); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan payment row", slog.String("loanID", loanID.String()), slog.Any("error", err))
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return payments, nil
}

func (r *LoanRepository) UpdatePrincipalBalanceInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, balance decimal.Decimal) error {
	cmdTag, err := tx.Exec(ctx, updatePrincipalBalanceSQL, balance, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update principal balance", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return fmt.Errorf("%w: principal balance update affected zero rows", apperrors.ErrDatabase)
	}
	return nil
}

func (r *LoanRepository) UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, status loan.Status) error {
	cmdTag, err := tx.Exec(ctx, updateLoanStatusSQL, status, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan status", slog.String("loanID", loanID.String()), slog.Any("status", status), slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Loan status update affected zero rows", slog.String("loanID", loanID.String()))
		return fmt.Errorf("%w: loan status update affected zero rows", apperrors.ErrDatabase)
	}
	r.logger.InfoContext(ctx, "Loan status updated in DB", slog.String("loanID", loanID.String()), slog.Any("newStatus", status))
	return nil
}
