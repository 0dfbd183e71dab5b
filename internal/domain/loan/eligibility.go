package loan

import (
	"credit-ledger/internal/pkg/money"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var monthsInYear = decimal.NewFromInt(12)

type ApplyParams struct {
	BorrowerID       uuid.UUID
	LoanType         string
	Amount           decimal.Decimal
	AnnualRate       decimal.Decimal
	TermMonths       int
	DisbursementDate time.Time
}

// Applicant is the part of the borrower the eligibility rules look at.
type Applicant struct {
	CreditScore  *int
	AnnualIncome decimal.Decimal
}

// ValidateTerms checks the requested product terms against the policy, before any borrower rule.
func (p Policy) ValidateTerms(params ApplyParams) (Type, error) {
	loanType, err := ParseType(params.LoanType)
	if err != nil {
		return "", err
	}
	if !params.Amount.IsPositive() || params.Amount.GreaterThan(p.MaxAmount) {
		return "", fmt.Errorf("%w: amount must be greater than 0 and at most %s", ErrAmountOutOfRange, money.Format(p.MaxAmount))
	}
	if params.AnnualRate.LessThan(p.MinAnnualRate) {
		return "", fmt.Errorf("%w: annual rate must be at least %s%%", ErrRateBelowFloor, p.MinAnnualRate.String())
	}
	return loanType, nil
}

// CheckEligibility applies the borrower rules given the first installment of the computed schedule.
func (p Policy) CheckEligibility(a Applicant, first ScheduleLine) error {
	if a.CreditScore == nil {
		return fmt.Errorf("%w: borrower has not been scored", ErrCreditScoreTooLow)
	}
	if *a.CreditScore < p.MinCreditScore {
		return fmt.Errorf("%w: score %d is below %d", ErrCreditScoreTooLow, *a.CreditScore, p.MinCreditScore)
	}
	if a.AnnualIncome.LessThan(p.MinAnnualIncome) {
		return fmt.Errorf("%w: annual income must be at least %s", ErrIncomeTooLow, money.Format(p.MinAnnualIncome))
	}

	// Compared before whole-unit rounding.
	emi := first.Principal.Add(first.Interest)
	limit := a.AnnualIncome.Div(monthsInYear).Mul(p.MaxEMIIncomeRatio)
	if emi.GreaterThan(limit) {
		return fmt.Errorf("%w: first installment %s exceeds %s", ErrEMIExceedsIncomeRatio, emi.String(), money.Format(limit))
	}

	if first.Interest.LessThan(p.MinMonthlyInterest) {
		return fmt.Errorf("%w: first month interest %s is below %s", ErrInterestTooLow, money.Format(first.Interest), money.Format(p.MinMonthlyInterest))
	}
	return nil
}
