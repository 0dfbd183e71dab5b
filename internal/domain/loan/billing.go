package loan

import (
	"credit-ledger/internal/pkg/money"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IsBillingDue reports whether today closes a billing cycle. The first cycle is anchored
// on the disbursement date, later ones on the previous billing date.
func IsBillingDue(l *Loan, lastBill *Bill, today time.Time, p Policy) bool {
	anchor := l.DisbursementDate
	if lastBill != nil {
		anchor = lastBill.BillingDate
	}
	return DaysBetween(anchor, today) >= p.BillingCycleDays
}

// BillingPeriod returns the inclusive date range whose accruals belong to the bill issued today.
func BillingPeriod(l *Loan, lastBill *Bill, today time.Time) (from, to time.Time) {
	if lastBill != nil {
		return AddDays(lastBill.BillingDate, 1), DateOf(today)
	}
	return DateOf(l.DisbursementDate), DateOf(today)
}

func BuildBill(l *Loan, lastBill *Bill, interestAccrued decimal.Decimal, today time.Time, p Policy) *Bill {
	minDue := money.Percent(l.PrincipalBalance, p.PrincipalPortionRate).Add(interestAccrued)

	pastDue := decimal.Zero
	if lastBill != nil && lastBill.Status != BillStatusPaid {
		pastDue = lastBill.Outstanding()
	}

	return &Bill{
		ID:              uuid.New(),
		LoanID:          l.ID,
		BillingDate:     DateOf(today),
		DueDate:         AddDays(today, p.BillDueDays),
		PrincipalDue:    l.PrincipalBalance,
		InterestAccrued: interestAccrued,
		MinDue:          minDue,
		PastDue:         pastDue,
		TotalDue:        minDue.Add(pastDue),
		AmountPaid:      decimal.Zero,
		Status:          BillStatusGenerated,
	}
}
