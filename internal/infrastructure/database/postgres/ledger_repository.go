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
	insertAccrualSQL = `
        INSERT INTO daily_accruals (loan_id, accrual_date, interest_amount, principal_balance, created_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (loan_id, accrual_date) DO NOTHING
        RETURNING id, created_at`

	sumAccrualsSQL = `
        SELECT COALESCE(SUM(interest_amount), 0)
        FROM daily_accruals
        WHERE loan_id = $1 AND accrual_date BETWEEN $2 AND $3`

	billColumns = `id, loan_id, billing_date, due_date, principal_due, interest_accrued, min_due, past_due, total_due, amount_paid, status, created_at, updated_at`

	selectLatestBillSQL = `
        SELECT ` + billColumns + `
        FROM bills
        WHERE loan_id = $1
        ORDER BY billing_date DESC
        LIMIT 1`

	selectLatestOpenBillSQL = `
        SELECT ` + billColumns + `
        FROM bills
        WHERE loan_id = $1 AND status IN ('GENERATED', 'PARTIALLY_PAID')
        ORDER BY billing_date DESC
        LIMIT 1
        FOR UPDATE`

	selectBillsSQL = `SELECT ` + billColumns + ` FROM bills WHERE loan_id = $1 ORDER BY billing_date DESC`

	insertBillSQL = `
        INSERT INTO bills (id, loan_id, billing_date, due_date, principal_due, interest_accrued, min_due, past_due, total_due, amount_paid, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
        RETURNING created_at, updated_at`

	updateBillPaymentSQL = `
        UPDATE bills
        SET amount_paid = $1, status = $2, updated_at = NOW()
        WHERE id = $3 AND amount_paid <= $1`
)

func (r *LoanRepository) InsertAccrualInTx(ctx context.Context, tx pgx.Tx, a *loan.DailyAccrual) (bool, error) {
	start := time.Now()
	err := tx.QueryRow(ctx, insertAccrualSQL, a.LoanID, a.AccrualDate, a.InterestAmount, a.PrincipalBalance).
		Scan(&a.ID, &a.CreatedAt)
	if err = observe("InsertAccrual", start, err); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.InfoContext(ctx, "Accrual already recorded",
				slog.String("loanID", a.LoanID.String()), slog.Time("date", a.AccrualDate))
			return false, nil
		}
		r.logger.ErrorContext(ctx, "Failed to insert accrual", slog.String("loanID", a.LoanID.String()), slog.Any("error", err))
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return true, nil
}

func (r *LoanRepository) SumAccrualsInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := tx.QueryRow(ctx, sumAccrualsSQL, loanID, from, to).Scan(&total); err != nil {
		r.logger.ErrorContext(ctx, "Failed to sum accruals", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return decimal.Zero, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return total, nil
}

func scanBill(row pgx.Row) (*loan.Bill, error) {
	var b loan.Bill
	err := row.Scan(
		&b.ID, &b.LoanID, &b.BillingDate, &b.DueDate, &b.PrincipalDue, &b.InterestAccrued,
		&b.MinDue, &b.PastDue, &b.TotalDue, &b.AmountPaid, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *LoanRepository) findBill(ctx context.Context, tx pgx.Tx, query string, loanID uuid.UUID) (*loan.Bill, error) {
	b, err := scanBill(tx.QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Failed to find bill", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return b, nil
}

func (r *LoanRepository) FindLatestBillInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*loan.Bill, error) {
	return r.findBill(ctx, tx, selectLatestBillSQL, loanID)
}

func (r *LoanRepository) FindLatestOpenBillInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*loan.Bill, error) {
	return r.findBill(ctx, tx, selectLatestOpenBillSQL, loanID)
}

func (r *LoanRepository) CreateBillInTx(ctx context.Context, tx pgx.Tx, b *loan.Bill) error {
	start := time.Now()
	err := tx.QueryRow(ctx, insertBillSQL,
		b.ID, b.LoanID, b.BillingDate, b.DueDate, b.PrincipalDue, b.InterestAccrued,
		b.MinDue, b.PastDue, b.TotalDue, b.AmountPaid, b.Status,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err = observe("CreateBill", start, err); err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert bill", slog.String("loanID", b.LoanID.String()), slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *LoanRepository) UpdateBillPaymentInTx(ctx context.Context, tx pgx.Tx, b *loan.Bill) error {
	cmdTag, err := tx.Exec(ctx, updateBillPaymentSQL, b.AmountPaid, b.Status, b.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update bill payment", slog.String("billID", b.ID.String()), slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return fmt.Errorf("%w: bill %s amount paid cannot decrease", apperrors.ErrConflict, b.ID)
	}
	return nil
}

func (r *LoanRepository) ListBills(ctx context.Context, loanID uuid.UUID) ([]loan.Bill, error) {
	rows, err := r.db.Query(ctx, selectBillsSQL, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query bills", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	bills := make([]loan.Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		bills = append(bills, *b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return bills, nil
}
