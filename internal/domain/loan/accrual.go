package loan

import (
	"credit-ledger/internal/pkg/money"
	"time"
)

// BuildAccrual computes one day of simple interest on the loan's current principal.
func BuildAccrual(l *Loan, date time.Time) (*DailyAccrual, error) {
	if !l.IsActive() {
		return nil, ErrLoanNotActive
	}
	day := DateOf(date)
	if day.Before(DateOf(l.DisbursementDate)) {
		return nil, ErrNotYetDisbursed
	}
	return &DailyAccrual{
		LoanID:           l.ID,
		AccrualDate:      day,
		InterestAmount:   money.DailyInterest(l.PrincipalBalance, l.AnnualRate),
		PrincipalBalance: l.PrincipalBalance,
	}, nil
}
