package batch

import (
	"context"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/infrastructure/monitoring"
	"credit-ledger/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

type RunResult struct {
	Date      time.Time
	Total     int
	Processed int
	Accrued   int
	Billed    int
	Failed    int
}

// DailyLedgerJob accrues one day of interest on every active loan and cuts a bill
// for each loan that reached a billing boundary.
type DailyLedgerJob struct {
	loanService loan.LoanService
	workers     int
	timeout     time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

func NewDailyLedgerJob(loanSvc loan.LoanService, workers int, timeout time.Duration, logger *slog.Logger) *DailyLedgerJob {
	if loanSvc == nil || logger == nil {
		panic("DailyLedgerJob dependencies cannot be nil")
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	if timeout <= 0 {
		timeout = time.Hour
	}
	return &DailyLedgerJob{
		loanService: loanSvc,
		workers:     workers,
		timeout:     timeout,
		now:         time.Now,
		logger:      logger.With("job", "DailyLedgerCycle"),
	}
}

// Run satisfies cron.Job.
func (j *DailyLedgerJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.RunFor(ctx, j.now()); err != nil {
		j.logger.ErrorContext(ctx, "Daily ledger cycle finished with error", slog.Any("error", err))
	}
}

func (j *DailyLedgerJob) RunFor(ctx context.Context, date time.Time) (RunResult, error) {
	startTime := time.Now()
	day := loan.DateOf(date)
	result := RunResult{Date: day}
	logCtx := j.logger.With(slog.String("date", day.Format("2006-01-02")))
	logCtx.InfoContext(ctx, "Starting daily ledger cycle.")

	loanIDs, err := j.loanService.ListActiveLoanIDs(ctx)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to get active loan IDs, aborting cycle.", slog.Any("error", err))
		monitoring.RecordDailyCycle("error", 0, 0)
		return result, fmt.Errorf("cannot run daily cycle, failed to get active loans: %w", err)
	}
	result.Total = len(loanIDs)

	var processed, accrued, billed, failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.workers)

	for _, loanID := range loanIDs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			didAccrue, didBill, procErr := j.processLoan(gctx, loanID, day)
			if procErr != nil {
				atomic.AddInt64(&failed, 1)
				return nil
			}
			atomic.AddInt64(&processed, 1)
			if didAccrue {
				atomic.AddInt64(&accrued, 1)
			}
			if didBill {
				atomic.AddInt64(&billed, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Processed = int(processed)
	result.Accrued = int(accrued)
	result.Billed = int(billed)
	result.Failed = int(failed)

	summaryLog := logCtx.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("total_active_loans", result.Total),
		slog.Int("loans_processed", result.Processed),
		slog.Int("accruals_recorded", result.Accrued),
		slog.Int("bills_generated", result.Billed),
		slog.Int("errors_encountered", result.Failed),
	)

	if err := ctx.Err(); err != nil {
		summaryLog.WarnContext(ctx, "Daily ledger cycle interrupted.", slog.Any("error", err))
		monitoring.RecordDailyCycle("interrupted", result.Processed, result.Failed)
		return result, fmt.Errorf("daily cycle interrupted: %w", err)
	}
	if result.Failed > 0 {
		summaryLog.WarnContext(ctx, "Daily ledger cycle finished with errors.")
		monitoring.RecordDailyCycle("partial", result.Processed, result.Failed)
		return result, fmt.Errorf("daily cycle completed with %d errors", result.Failed)
	}

	summaryLog.InfoContext(ctx, "Daily ledger cycle finished successfully.")
	monitoring.RecordDailyCycle("success", result.Processed, result.Failed)
	return result, nil
}

// processLoan isolates a single loan so one failure never stops the rest of the cycle.
func (j *DailyLedgerJob) processLoan(ctx context.Context, loanID uuid.UUID, day time.Time) (accrued bool, billed bool, err error) {
	logCtx := j.logger.With(slog.String("loanID", loanID.String()))

	_, err = j.loanService.AccrueInterest(ctx, loanID, day)
	switch {
	case err == nil:
		accrued = true
	case errors.Is(err, loan.ErrAccrualAlreadyRecorded):
		logCtx.DebugContext(ctx, "Accrual already recorded for date, skipping.")
	case errors.Is(err, loan.ErrLoanNotActive), errors.Is(err, apperrors.ErrNotFound):
		logCtx.InfoContext(ctx, "Loan no longer active, skipping.", slog.Any("reason", err))
		return false, false, nil
	case errors.Is(err, loan.ErrNotYetDisbursed):
		logCtx.DebugContext(ctx, "Loan not yet disbursed, skipping.")
		return false, false, nil
	default:
		logCtx.ErrorContext(ctx, "Failed to accrue daily interest", slog.Any("error", err))
		return false, false, err
	}

	bill, err := j.loanService.GenerateBillIfDue(ctx, loanID, day)
	if err != nil {
		if errors.Is(err, loan.ErrLoanNotActive) {
			return accrued, false, nil
		}
		logCtx.ErrorContext(ctx, "Failed to generate bill", slog.Any("error", err))
		return accrued, false, err
	}
	return accrued, bill != nil, nil
}
