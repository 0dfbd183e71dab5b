package loan

import "github.com/shopspring/decimal"

// Policy holds the product constants of the credit-card loan.
type Policy struct {
	MaxAmount            decimal.Decimal
	MinAnnualRate        decimal.Decimal
	MinAnnualIncome      decimal.Decimal
	MaxEMIIncomeRatio    decimal.Decimal
	MinMonthlyInterest   decimal.Decimal
	PrincipalPortionRate decimal.Decimal
	MinCreditScore       int
	InstallmentStepDays  int
	BillingCycleDays     int
	BillDueDays          int
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAmount:            decimal.NewFromInt(5000),
		MinAnnualRate:        decimal.NewFromInt(12),
		MinAnnualIncome:      decimal.NewFromInt(150000),
		MaxEMIIncomeRatio:    decimal.RequireFromString("0.20"),
		MinMonthlyInterest:   decimal.NewFromInt(50),
		PrincipalPortionRate: decimal.RequireFromString("0.03"),
		MinCreditScore:       300,
		InstallmentStepDays:  30,
		BillingCycleDays:     30,
		BillDueDays:          15,
	}
}

// MaxTermMonths is the longest term whose fixed principal portions do not
// exceed the loan amount before the final sweep. Zero means unbounded.
func (p Policy) MaxTermMonths() int {
	if !p.PrincipalPortionRate.IsPositive() {
		return 0
	}
	return int(decimal.NewFromInt(1).Div(p.PrincipalPortionRate).Floor().IntPart()) + 1
}
