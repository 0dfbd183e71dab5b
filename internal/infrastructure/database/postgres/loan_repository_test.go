package postgres

import (
	"context"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/pkg/apperrors"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLoanID = "0d5e8a52-7c1f-4a8e-9b0c-4f3b2f8f4a10"

var loanColumnNames = []string{"id", "borrower_id", "loan_type", "amount", "annual_rate", "term_months",
	"disbursement_date", "status", "principal_balance", "created_at", "updated_at"}

var billColumnNames = []string{"id", "loan_id", "billing_date", "due_date", "principal_due", "interest_accrued",
	"min_due", "past_due", "total_due", "amount_paid", "status", "created_at", "updated_at"}

func setupLoanRepo(t *testing.T) (context.Context, *LoanRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}
	return context.Background(), NewLoanRepository(mockPool, logger), mockPool
}

func loanRow(status loan.Status, balance string) *pgxmock.Rows {
	now := time.Now()
	disbursed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(loanColumnNames).AddRow(
		testLoanID, "6f1c2a8e-4b1d-4d53-9a43-2f7d1b9f0c11", loan.TypeCreditCard, "5000.00", "18.00", 3,
		disbursed, status, balance, now, now,
	)
}

func TestNewLoanRepository_NilDB(t *testing.T) {
	assert.Panics(t, func() { NewLoanRepository(nil, logger) })
}

func TestLoanRepository_GetLoanByID(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(selectLoanByIDSQL)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(loanRow(loan.StatusActive, "5000.00"))

	l, err := repo.GetLoanByID(ctx, uuid.MustParse(testLoanID))
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(testLoanID), l.ID)
	assert.Equal(t, loan.StatusActive, l.Status)
	assert.Equal(t, 3, l.TermMonths)
	assert.True(t, decimal.NewFromInt(5000).Equal(l.PrincipalBalance))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_GetLoanByIDNotFound(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(selectLoanByIDSQL)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetLoanByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	mockPool.ExpectQuery(regexp.QuoteMeta(selectLoanByIDSQL)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(errors.New("timeout"))

	_, err = repo.GetLoanByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_LockLoanInTx(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(lockLoanSQL)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(loanRow(loan.StatusClosed, "0.00"))
	mockPool.ExpectRollback()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	l, err := repo.LockLoanInTx(ctx, tx, uuid.MustParse(testLoanID))
	require.NoError(t, err)
	assert.False(t, l.IsActive())
	require.NoError(t, repo.RollbackTx(ctx, tx))

	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_CreateLoanRollsBackOnInsertFailure(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(insertLoanSQL)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), loan.TypeCreditCard, pgxmock.AnyArg(), pgxmock.AnyArg(),
			3, pgxmock.AnyArg(), loan.StatusActive, pgxmock.AnyArg()).
		WillReturnError(errors.New("insert failed"))
	mockPool.ExpectRollback()

	newLoan := &loan.Loan{
		ID: uuid.New(), BorrowerID: uuid.New(), Type: loan.TypeCreditCard,
		Amount: decimal.NewFromInt(5000), AnnualRate: decimal.NewFromInt(18), TermMonths: 3,
		DisbursementDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:           loan.StatusActive, PrincipalBalance: decimal.NewFromInt(5000),
	}
	err := repo.CreateLoan(ctx, newLoan, nil)
	require.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.Contains(t, err.Error(), "failed to insert loan")
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_CreateLoanBeginFailure(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	err := repo.CreateLoan(ctx, &loan.Loan{ID: uuid.New()}, nil)
	require.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_GetAllActiveLoanIDs(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	second := "a3f1f1c4-2b6d-4c1e-8f5a-9e7d6c5b4a32"
	mockPool.ExpectQuery(regexp.QuoteMeta(selectActiveLoanIDsSQL)).
		WithArgs(loan.StatusActive).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testLoanID).AddRow(second))

	ids, err := repo.GetAllActiveLoanIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{uuid.MustParse(testLoanID), uuid.MustParse(second)}, ids)

	mockPool.ExpectQuery(regexp.QuoteMeta(selectActiveLoanIDsSQL)).
		WithArgs(loan.StatusActive).
		WillReturnError(errors.New("db down"))

	_, err = repo.GetAllActiveLoanIDs(ctx)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_GetInstallments(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()
	now := time.Now()
	due := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(regexp.QuoteMeta(selectInstallmentsSQL)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "loan_id", "sequence", "due_date", "amount_due", "is_paid",
			"payment_id", "paid_at", "created_at", "updated_at"}).
			AddRow(int64(1), testLoanID, 1, due, "1742.00", false, nil, nil, now, now).
			AddRow(int64(2), testLoanID, 2, due.AddDate(0, 0, 30), "1742.00", false, nil, nil, now, now))

	installments, err := repo.GetInstallments(ctx, uuid.MustParse(testLoanID))
	require.NoError(t, err)
	require.Len(t, installments, 2)
	assert.Equal(t, int64(2), installments[1].ID)
	assert.Equal(t, 2, installments[1].Sequence)
	assert.True(t, decimal.NewFromInt(1742).Equal(installments[0].AmountDue))
	assert.Nil(t, installments[0].PaymentID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_FindEarliestUnpaidInstallmentNone(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(selectEarliestUnpaidInstallmentSQL)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	tx, err := mockPool.Begin(ctx)
	require.NoError(t, err)

	_, err = repo.FindEarliestUnpaidInstallmentInTx(ctx, tx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_MarkInstallmentPaidInTx(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta(markInstallmentPaidSQL)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(regexp.QuoteMeta(markInstallmentPaidSQL)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mockPool.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.MarkInstallmentPaidInTx(ctx, tx, 7, uuid.New(), time.Now()))
	err = repo.MarkInstallmentPaidInTx(ctx, tx, 7, uuid.New(), time.Now())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_CountUnpaidAndBalanceUpdates(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(countUnpaidInstallmentsSQL)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mockPool.ExpectExec(regexp.QuoteMeta(updatePrincipalBalanceSQL)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(regexp.QuoteMeta(updateLoanStatusSQL)).
		WithArgs(loan.StatusClosed, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mockPool.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	loanID := uuid.MustParse(testLoanID)

	count, err := repo.CountUnpaidInstallmentsInTx(ctx, tx, loanID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.UpdatePrincipalBalanceInTx(ctx, tx, loanID, decimal.RequireFromString("3258.25")))
	assert.ErrorIs(t, repo.UpdateLoanStatusInTx(ctx, tx, loanID, loan.StatusClosed), apperrors.ErrDatabase)
	require.NoError(t, repo.CommitTx(ctx, tx))

	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_CreatePaymentInTx(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()
	now := time.Now()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(insertPaymentSQL)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), int64(3), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			loan.PaymentStatusCompleted, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	tx, err := mockPool.Begin(ctx)
	require.NoError(t, err)

	p := &loan.Payment{
		ID: uuid.New(), LoanID: uuid.MustParse(testLoanID), InstallmentID: 3,
		Amount: decimal.NewFromInt(1742), Status: loan.PaymentStatusCompleted, PaidAt: now,
	}
	require.NoError(t, repo.CreatePaymentInTx(ctx, tx, p))
	assert.Equal(t, now, p.CreatedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_InsertAccrualInTx(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()
	now := time.Now()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(insertAccrualSQL)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))
	mockPool.ExpectQuery(regexp.QuoteMeta(insertAccrualSQL)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	tx, err := mockPool.Begin(ctx)
	require.NoError(t, err)

	a := &loan.DailyAccrual{
		LoanID:           uuid.MustParse(testLoanID),
		AccrualDate:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		InterestAmount:   decimal.RequireFromString("2.45"),
		PrincipalBalance: decimal.NewFromInt(5000),
	}
	inserted, err := repo.InsertAccrualInTx(ctx, tx, a)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(11), a.ID)

	inserted, err = repo.InsertAccrualInTx(ctx, tx, a)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_SumAccrualsInTx(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(sumAccrualsSQL)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow("73.50"))

	tx, err := mockPool.Begin(ctx)
	require.NoError(t, err)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	total, err := repo.SumAccrualsInTx(ctx, tx, uuid.MustParse(testLoanID), from, from.AddDate(0, 0, 29))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("73.5").Equal(total))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_FindLatestBill(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()
	now := time.Now()
	billed := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	billID := "b7e9d3f0-1a2b-4c3d-8e9f-0a1b2c3d4e5f"

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(selectLatestBillSQL)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mockPool.ExpectQuery(regexp.QuoteMeta(selectLatestOpenBillSQL)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(billColumnNames).AddRow(
			billID, testLoanID, billed, billed.AddDate(0, 0, 15), "150.00", "73.50",
			"223.50", "0.00", "223.50", "0.00", loan.BillStatusGenerated, now, now))

	tx, err := mockPool.Begin(ctx)
	require.NoError(t, err)
	loanID := uuid.MustParse(testLoanID)

	none, err := repo.FindLatestBillInTx(ctx, tx, loanID)
	require.NoError(t, err)
	assert.Nil(t, none)

	open, err := repo.FindLatestOpenBillInTx(ctx, tx, loanID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, uuid.MustParse(billID), open.ID)
	assert.Equal(t, loan.BillStatusGenerated, open.Status)
	assert.True(t, decimal.RequireFromString("223.5").Equal(open.TotalDue))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_UpdateBillPaymentInTx(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta(updateBillPaymentSQL)).
		WithArgs(pgxmock.AnyArg(), loan.BillStatusPartiallyPaid, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(regexp.QuoteMeta(updateBillPaymentSQL)).
		WithArgs(pgxmock.AnyArg(), loan.BillStatusPartiallyPaid, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mockPool.Begin(ctx)
	require.NoError(t, err)

	b := &loan.Bill{ID: uuid.New(), AmountPaid: decimal.NewFromInt(100), Status: loan.BillStatusPartiallyPaid}
	require.NoError(t, repo.UpdateBillPaymentInTx(ctx, tx, b))
	assert.ErrorIs(t, repo.UpdateBillPaymentInTx(ctx, tx, b), apperrors.ErrConflict)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLoanRepository_CreateBillDuplicate(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(insertBillSQL)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), loan.BillStatusGenerated).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "bills_loan_id_billing_date_key"})

	tx, err := mockPool.Begin(ctx)
	require.NoError(t, err)

	err = repo.CreateBillInTx(ctx, tx, &loan.Bill{ID: uuid.New(), LoanID: uuid.New(), Status: loan.BillStatusGenerated})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
