package loan

import (
	"credit-ledger/internal/pkg/apperrors"
	"credit-ledger/internal/pkg/money"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleLine is one month of the amortization plan with its principal and interest parts.
type ScheduleLine struct {
	Sequence  int
	DueDate   time.Time
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Amount    decimal.Decimal
}

func (sl ScheduleLine) Installment(loanID uuid.UUID) Installment {
	return Installment{
		LoanID:    loanID,
		Sequence:  sl.Sequence,
		DueDate:   sl.DueDate,
		AmountDue: sl.Amount,
	}
}

// BuildSchedule lays out termMonths installments at fixed day steps from the disbursement date.
// Every installment but the last repays a constant share of the original amount plus the month's
// interest on the remaining principal; the last one sweeps whatever principal is left.
// Installment amounts are rounded half-to-even to whole currency units.
func BuildSchedule(amount, annualRate decimal.Decimal, termMonths int, disbursement time.Time, p Policy) ([]ScheduleLine, error) {
	if termMonths <= 0 {
		return nil, apperrors.NewValidationError("termMonths", "must be greater than zero")
	}
	if maxTerm := p.MaxTermMonths(); maxTerm > 0 && termMonths > maxTerm {
		return nil, apperrors.NewValidationError("termMonths", "fixed principal portions would exceed the loan amount")
	}
	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "must be greater than zero")
	}

	portion := money.Percent(amount, p.PrincipalPortionRate)
	remaining := amount
	lines := make([]ScheduleLine, 0, termMonths)

	for m := 1; m <= termMonths; m++ {
		interest := money.MonthlyInterest(remaining, annualRate)
		principal := portion
		if m == termMonths {
			principal = remaining
		}

		lines = append(lines, ScheduleLine{
			Sequence:  m,
			DueDate:   AddDays(disbursement, p.InstallmentStepDays*m),
			Principal: principal,
			Interest:  interest,
			Amount:    money.RoundWhole(principal.Add(interest)),
		})
		remaining = remaining.Sub(principal)
	}

	return lines, nil
}

func Installments(loanID uuid.UUID, lines []ScheduleLine) []Installment {
	out := make([]Installment, len(lines))
	for i, l := range lines {
		out[i] = l.Installment(loanID)
	}
	return out
}
