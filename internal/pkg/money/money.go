// Package money holds the fixed-point rules shared by every ledger computation.
// Amounts are decimal.Decimal throughout; rounding is banker's rounding (half to even)
// and happens only where a ledger rule asks for it.
package money

import "github.com/shopspring/decimal"

const (
	CurrencyScale = 2
	RateScale     = 3

	// Column shapes: amounts are NUMERIC(14, 2), rates NUMERIC(7, 3).
	AmountPrecision = 14
	RatePrecision   = 7
)

var (
	hundred    = decimal.NewFromInt(100)
	monthsInYr = decimal.NewFromInt(12)
	daysInYr   = decimal.NewFromInt(365)
)

// DailyRate converts an annual percentage rate into a daily percentage rate
// rounded to three fraction digits, e.g. 18 -> 0.049.
func DailyRate(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.Div(daysInYr).RoundBank(RateScale)
}

// DailyInterest is one day of simple interest on balance at the rounded daily rate.
func DailyInterest(balance, annualRate decimal.Decimal) decimal.Decimal {
	return balance.Mul(DailyRate(annualRate)).Div(hundred)
}

// MonthlyInterest is balance * annualRate / 100 / 12, unrounded.
func MonthlyInterest(balance, annualRate decimal.Decimal) decimal.Decimal {
	return balance.Mul(annualRate).Div(hundred).Div(monthsInYr)
}

func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate)
}

func RoundWhole(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(0)
}

func Round2(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(CurrencyScale)
}

// Format renders d for presentation with exactly two fraction digits.
func Format(d decimal.Decimal) string {
	return Round2(d).StringFixed(CurrencyScale)
}

func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// FitsNumeric reports whether d is stored by a NUMERIC(precision, scale) column without rounding or overflow.
func FitsNumeric(d decimal.Decimal, precision, scale int) bool {
	if !d.Equal(d.Truncate(int32(scale))) {
		return false
	}
	return d.Abs().LessThan(decimal.New(1, int32(precision-scale)))
}
