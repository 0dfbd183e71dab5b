package loan

import (
	"credit-ledger/internal/pkg/apperrors"
	"fmt"
)

var (
	ErrCreditScoreTooLow     = fmt.Errorf("%w: credit score too low", apperrors.ErrBusinessRule)
	ErrIncomeTooLow          = fmt.Errorf("%w: annual income too low", apperrors.ErrBusinessRule)
	ErrAmountOutOfRange      = fmt.Errorf("%w: loan amount out of range", apperrors.ErrBusinessRule)
	ErrRateBelowFloor        = fmt.Errorf("%w: interest rate below floor", apperrors.ErrBusinessRule)
	ErrEMIExceedsIncomeRatio = fmt.Errorf("%w: first installment exceeds allowed share of monthly income", apperrors.ErrBusinessRule)
	ErrInterestTooLow        = fmt.Errorf("%w: monthly interest too low", apperrors.ErrBusinessRule)

	ErrLoanNotActive         = fmt.Errorf("%w: loan is not active", apperrors.ErrBusinessRule)
	ErrLoanClosed            = fmt.Errorf("%w: loan is closed", apperrors.ErrBusinessRule)
	ErrNotYetDisbursed       = fmt.Errorf("%w: loan is not yet disbursed", apperrors.ErrBusinessRule)
	ErrNoPendingInstallments = fmt.Errorf("%w: no pending installments", apperrors.ErrBusinessRule)
	ErrPaymentAmountMismatch = fmt.Errorf("%w: payment amount does not match installment due", apperrors.ErrBusinessRule)

	ErrAccrualAlreadyRecorded = fmt.Errorf("%w: interest already accrued for this date", apperrors.ErrAlreadyExists)
)
