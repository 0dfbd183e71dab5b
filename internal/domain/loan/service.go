package loan

import (
	"context"
	"credit-ledger/internal/domain/borrower"
	"credit-ledger/internal/event"
	"credit-ledger/internal/infrastructure/monitoring"
	"credit-ledger/internal/pkg/apperrors"
	"credit-ledger/internal/pkg/money"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type LoanService interface {
	ApplyLoan(ctx context.Context, params ApplyParams) (*Loan, error)

	GetLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	MakePayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (*Payment, error)

	GetStatement(ctx context.Context, loanID uuid.UUID) (*Statement, error)

	ListBills(ctx context.Context, loanID uuid.UUID) ([]Bill, error)

	AccrueInterest(ctx context.Context, loanID uuid.UUID, date time.Time) (*DailyAccrual, error)

	// GenerateBillIfDue returns nil, nil when today is not a billing boundary for the loan.
	GenerateBillIfDue(ctx context.Context, loanID uuid.UUID, today time.Time) (*Bill, error)

	ListActiveLoanIDs(ctx context.Context) ([]uuid.UUID, error)
}

type loanServiceImpl struct {
	repo      Repository
	borrowers borrower.Service
	policy    Policy
	pub       event.EventPublisher
	logger    *slog.Logger
}

func NewLoanService(r Repository, bs borrower.Service, policy Policy, pub event.EventPublisher, logger *slog.Logger) LoanService {
	if r == nil || bs == nil || pub == nil {
		panic("loan service dependencies cannot be nil")
	}
	return &loanServiceImpl{
		repo:      r,
		borrowers: bs,
		policy:    policy,
		pub:       pub,
		logger:    logger.With(slog.String("component", "loanService")),
	}
}

func (s *loanServiceImpl) ApplyLoan(ctx context.Context, params ApplyParams) (*Loan, error) {
	logCtx := s.logger.With(slog.String("borrowerID", params.BorrowerID.String()))
	logCtx.InfoContext(ctx, "Loan application received",
		slog.String("amount", params.Amount.String()), slog.Int("termMonths", params.TermMonths))

	b, err := s.borrowers.GetBorrower(ctx, params.BorrowerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			monitoring.RecordOrigination("rejected")
		}
		return nil, err
	}

	loanType, err := s.policy.ValidateTerms(params)
	if err != nil {
		return nil, s.reject(ctx, logCtx, err)
	}

	disbursement := params.DisbursementDate
	if disbursement.IsZero() {
		disbursement = time.Now()
	}
	disbursement = DateOf(disbursement)

	lines, err := BuildSchedule(params.Amount, params.AnnualRate, params.TermMonths, disbursement, s.policy)
	if err != nil {
		return nil, s.reject(ctx, logCtx, err)
	}

	applicant := Applicant{CreditScore: b.CreditScore, AnnualIncome: b.AnnualIncome}
	if err := s.policy.CheckEligibility(applicant, lines[0]); err != nil {
		return nil, s.reject(ctx, logCtx, err)
	}

	l := &Loan{
		ID:               uuid.New(),
		BorrowerID:       b.ID,
		Type:             loanType,
		Amount:           params.Amount,
		AnnualRate:       params.AnnualRate,
		TermMonths:       params.TermMonths,
		DisbursementDate: disbursement,
		Status:           StatusActive,
		PrincipalBalance: params.Amount,
	}
	installments := Installments(l.ID, lines)

	if err := s.repo.CreateLoan(ctx, l, installments); err != nil {
		logCtx.ErrorContext(ctx, "Failed to save loan and installments", slog.Any("error", err))
		monitoring.RecordOrigination("failed")
		return nil, fmt.Errorf("failed to save loan and installments: %w", err)
	}
	l.Installments = installments
	monitoring.RecordOrigination("approved")

	originated := event.LoanOriginatedEvent{
		LoanID:           l.ID,
		BorrowerID:       l.BorrowerID,
		Amount:           l.Amount,
		AnnualRate:       l.AnnualRate,
		TermMonths:       l.TermMonths,
		DisbursementDate: l.DisbursementDate.Format(dateLayout),
		Timestamp:        time.Now(),
	}
	if pubErr := s.pub.PublishLoanOriginated(ctx, originated); pubErr != nil {
		logCtx.ErrorContext(ctx, "Loan created, but FAILED to publish origination event", slog.Any("error", pubErr))
	}

	logCtx.InfoContext(ctx, "Loan originated", slog.String("loanID", l.ID.String()), slog.Int("installments", len(installments)))
	return l, nil
}

func (s *loanServiceImpl) reject(ctx context.Context, logCtx *slog.Logger, err error) error {
	logCtx.WarnContext(ctx, "Loan application rejected", slog.Any("error", err))
	monitoring.RecordOrigination("rejected")
	return err
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	l, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	installments, err := s.repo.GetInstallments(ctx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get installments", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return nil, fmt.Errorf("failed to get installments for loan %s: %w", loanID, err)
	}
	l.Installments = installments
	return l, nil
}

func (s *loanServiceImpl) getLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", slog.String("loanID", loanID.String()))
			return nil, fmt.Errorf("%w: loan %s not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", slog.String("loanID", loanID.String()), slog.Any("error", err))
		return nil, fmt.Errorf("failed to get loan %s: %w", loanID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) MakePayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (payment *Payment, err error) {
	logCtx := s.logger.With(slog.String("loanID", loanID.String()))
	logCtx.InfoContext(ctx, "Making payment", slog.String("amount", amount.String()))

	defer func() {
		monitoring.RecordPayment(paymentStatus(err))
	}()

	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "must be greater than zero")
	}

	var (
		l      *Loan
		split  PaymentSplit
		closed bool
	)
	err = s.runInTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		l, txErr = s.lockActiveLoan(ctx, tx, loanID)
		if txErr != nil {
			return txErr
		}

		inst, txErr := s.repo.FindEarliestUnpaidInstallmentInTx(ctx, tx, loanID)
		if txErr != nil {
			if errors.Is(txErr, apperrors.ErrNotFound) {
				return ErrNoPendingInstallments
			}
			return fmt.Errorf("could not find installment to pay: %w", txErr)
		}
		if !amount.Equal(inst.AmountDue) {
			return fmt.Errorf("%w: expected %s", ErrPaymentAmountMismatch, money.Format(inst.AmountDue))
		}

		unpaid, txErr := s.repo.CountUnpaidInstallmentsInTx(ctx, tx, loanID)
		if txErr != nil {
			return fmt.Errorf("could not count unpaid installments: %w", txErr)
		}

		split = SplitPayment(l.PrincipalBalance, l.AnnualRate, amount, unpaid == 1)
		now := time.Now()
		payment = &Payment{
			ID:               uuid.New(),
			LoanID:           loanID,
			InstallmentID:    inst.ID,
			Amount:           amount,
			PrincipalPortion: split.Principal,
			InterestPortion:  split.Interest,
			Status:           PaymentStatusCompleted,
			PaidAt:           now,
		}
		if txErr = s.repo.CreatePaymentInTx(ctx, tx, payment); txErr != nil {
			return fmt.Errorf("could not record payment: %w", txErr)
		}
		if txErr = s.repo.MarkInstallmentPaidInTx(ctx, tx, inst.ID, payment.ID, now); txErr != nil {
			return fmt.Errorf("could not mark installment paid: %w", txErr)
		}

		bill, txErr := s.repo.FindLatestOpenBillInTx(ctx, tx, loanID)
		if txErr != nil {
			return fmt.Errorf("could not find open bill: %w", txErr)
		}
		if bill != nil {
			ApplyPaymentToBill(bill, amount)
			if txErr = s.repo.UpdateBillPaymentInTx(ctx, tx, bill); txErr != nil {
				return fmt.Errorf("could not update bill: %w", txErr)
			}
		}

		if txErr = s.repo.UpdatePrincipalBalanceInTx(ctx, tx, loanID, split.BalanceAfter); txErr != nil {
			return fmt.Errorf("could not update principal balance: %w", txErr)
		}

		if split.BalanceAfter.IsZero() && unpaid-1 == 0 {
			if txErr = s.repo.UpdateLoanStatusInTx(ctx, tx, loanID, StatusClosed); txErr != nil {
				return fmt.Errorf("could not close loan: %w", txErr)
			}
			closed = true
		}
		return nil
	})
	if err != nil {
		logCtx.WarnContext(ctx, "Payment failed", slog.Any("error", err))
		return nil, err
	}

	applied := event.PaymentAppliedEvent{
		PaymentID:        payment.ID,
		LoanID:           loanID,
		Amount:           payment.Amount,
		PrincipalPortion: payment.PrincipalPortion,
		InterestPortion:  payment.InterestPortion,
		PrincipalBalance: split.BalanceAfter,
		Timestamp:        payment.PaidAt,
	}
	if pubErr := s.pub.PublishPaymentApplied(ctx, applied); pubErr != nil {
		logCtx.ErrorContext(ctx, "Payment committed, but FAILED to publish payment event", slog.Any("error", pubErr))
	}
	if closed {
		logCtx.InfoContext(ctx, "Loan fully repaid and closed")
		if pubErr := s.pub.PublishLoanClosed(ctx, event.LoanClosedEvent{LoanID: loanID, BorrowerID: l.BorrowerID, Timestamp: time.Now()}); pubErr != nil {
			logCtx.ErrorContext(ctx, "Loan closed, but FAILED to publish closure event", slog.Any("error", pubErr))
		}
	}

	logCtx.InfoContext(ctx, "Payment processed successfully",
		slog.String("paymentID", payment.ID.String()), slog.String("principalBalance", split.BalanceAfter.String()))
	return payment, nil
}

func paymentStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrPaymentAmountMismatch):
		return "failure_amount"
	case errors.Is(err, ErrLoanNotActive):
		return "failure_not_active"
	case errors.Is(err, ErrNoPendingInstallments):
		return "failure_no_pending"
	case errors.Is(err, apperrors.ErrNotFound):
		return "failure_not_found"
	case errors.Is(err, apperrors.ErrValidation):
		return "failure_validation"
	default:
		return "failure_internal"
	}
}

func (s *loanServiceImpl) GetStatement(ctx context.Context, loanID uuid.UUID) (*Statement, error) {
	l, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if l.Status == StatusClosed {
		return nil, fmt.Errorf("%w: no statement for loan %s", ErrLoanClosed, loanID)
	}

	installments, err := s.repo.GetInstallments(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get installments for loan %s: %w", loanID, err)
	}
	payments, err := s.repo.ListPayments(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments for loan %s: %w", loanID, err)
	}
	return BuildStatement(l, installments, payments), nil
}

func (s *loanServiceImpl) ListBills(ctx context.Context, loanID uuid.UUID) ([]Bill, error) {
	if _, err := s.getLoan(ctx, loanID); err != nil {
		return nil, err
	}
	bills, err := s.repo.ListBills(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills for loan %s: %w", loanID, err)
	}
	return bills, nil
}

func (s *loanServiceImpl) AccrueInterest(ctx context.Context, loanID uuid.UUID, date time.Time) (accrual *DailyAccrual, err error) {
	defer func() {
		switch {
		case err == nil:
			monitoring.RecordAccrual("recorded")
		case errors.Is(err, ErrAccrualAlreadyRecorded):
			monitoring.RecordAccrual("duplicate")
		default:
			monitoring.RecordAccrual("failed")
		}
	}()

	err = s.runInTx(ctx, func(tx pgx.Tx) error {
		l, txErr := s.lockActiveLoan(ctx, tx, loanID)
		if txErr != nil {
			return txErr
		}
		accrual, txErr = BuildAccrual(l, date)
		if txErr != nil {
			return txErr
		}
		inserted, txErr := s.repo.InsertAccrualInTx(ctx, tx, accrual)
		if txErr != nil {
			return fmt.Errorf("could not record accrual: %w", txErr)
		}
		if !inserted {
			return fmt.Errorf("%w: loan %s on %s", ErrAccrualAlreadyRecorded, loanID, accrual.AccrualDate.Format(dateLayout))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "Interest accrued",
		slog.String("loanID", loanID.String()),
		slog.String("date", accrual.AccrualDate.Format(dateLayout)),
		slog.String("interest", accrual.InterestAmount.String()))
	return accrual, nil
}

func (s *loanServiceImpl) GenerateBillIfDue(ctx context.Context, loanID uuid.UUID, today time.Time) (*Bill, error) {
	var bill *Bill
	err := s.runInTx(ctx, func(tx pgx.Tx) error {
		l, txErr := s.lockActiveLoan(ctx, tx, loanID)
		if txErr != nil {
			return txErr
		}
		last, txErr := s.repo.FindLatestBillInTx(ctx, tx, loanID)
		if txErr != nil {
			return fmt.Errorf("could not find latest bill: %w", txErr)
		}
		if !IsBillingDue(l, last, today, s.policy) {
			return nil
		}

		from, to := BillingPeriod(l, last, today)
		interest, txErr := s.repo.SumAccrualsInTx(ctx, tx, loanID, from, to)
		if txErr != nil {
			return fmt.Errorf("could not sum accruals: %w", txErr)
		}

		bill = BuildBill(l, last, interest, today, s.policy)
		if txErr = s.repo.CreateBillInTx(ctx, tx, bill); txErr != nil {
			return fmt.Errorf("could not create bill: %w", txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, nil
	}

	monitoring.RecordBillGenerated()
	generated := event.BillGeneratedEvent{
		BillID:      bill.ID,
		LoanID:      loanID,
		BillingDate: bill.BillingDate.Format(dateLayout),
		DueDate:     bill.DueDate.Format(dateLayout),
		MinDue:      bill.MinDue,
		TotalDue:    bill.TotalDue,
		Timestamp:   time.Now(),
	}
	if pubErr := s.pub.PublishBillGenerated(ctx, generated); pubErr != nil {
		s.logger.ErrorContext(ctx, "Bill created, but FAILED to publish bill event", slog.Any("error", pubErr))
	}
	s.logger.InfoContext(ctx, "Bill generated",
		slog.String("loanID", loanID.String()),
		slog.String("billID", bill.ID.String()),
		slog.String("totalDue", money.Format(bill.TotalDue)))
	return bill, nil
}

func (s *loanServiceImpl) ListActiveLoanIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.repo.GetAllActiveLoanIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active loans: %w", err)
	}
	return ids, nil
}

func (s *loanServiceImpl) lockActiveLoan(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*Loan, error) {
	l, err := s.repo.LockLoanInTx(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan %s not found", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("could not lock loan %s: %w", loanID, err)
	}
	if !l.IsActive() {
		return nil, fmt.Errorf("%w: loan %s is %s", ErrLoanNotActive, loanID, l.Status)
	}
	return l, nil
}

// runInTx commits when fn succeeds and rolls back on error or panic.
func (s *loanServiceImpl) runInTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "Panic occurred inside transaction", slog.Any("panic", p))
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}
