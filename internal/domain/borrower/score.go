package borrower

import "github.com/shopspring/decimal"

const (
	MinCreditScore = 300
	MaxCreditScore = 900

	pointsPerStep = 10
)

var (
	floorBalance   = decimal.NewFromInt(100_000)
	ceilingBalance = decimal.NewFromInt(1_000_000)
	balanceStep    = decimal.NewFromInt(15_000)
)

// ScoreFromBalance maps a net transaction balance onto the 300..900 score band.
// A nil balance means the borrower has no transaction history and scores the minimum.
func ScoreFromBalance(balance *decimal.Decimal) int {
	if balance == nil {
		return MinCreditScore
	}
	switch {
	case balance.GreaterThanOrEqual(ceilingBalance):
		return MaxCreditScore
	case balance.LessThanOrEqual(floorBalance):
		return MinCreditScore
	}

	steps := balance.Sub(floorBalance).Div(balanceStep).Floor().IntPart()
	return min(MinCreditScore+int(steps)*pointsPerStep, MaxCreditScore)
}
