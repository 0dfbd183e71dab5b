package loan

import (
	"credit-ledger/internal/pkg/money"

	"github.com/shopspring/decimal"
)

// PaymentSplit is how one installment payment divides between interest and principal.
type PaymentSplit struct {
	Interest     decimal.Decimal
	Principal    decimal.Decimal
	BalanceAfter decimal.Decimal
}

// PrincipalAfterPayment reduces balance by amount less one month of interest, floored at zero.
func PrincipalAfterPayment(balance, annualRate, amount decimal.Decimal) decimal.Decimal {
	interest := money.MonthlyInterest(balance, annualRate)
	return money.NonNegative(balance.Sub(amount.Sub(interest)))
}

// SplitPayment divides amount against balance. Paying the last unpaid installment settles the
// remaining principal in full, since installment amounts are rounded to whole units.
func SplitPayment(balance, annualRate, amount decimal.Decimal, lastInstallment bool) PaymentSplit {
	interest := money.MonthlyInterest(balance, annualRate)
	if lastInstallment {
		return PaymentSplit{Interest: interest, Principal: balance, BalanceAfter: decimal.Zero}
	}

	after := PrincipalAfterPayment(balance, annualRate, amount)
	if after.GreaterThan(balance) {
		after = balance
	}
	return PaymentSplit{
		Interest:     interest,
		Principal:    balance.Sub(after),
		BalanceAfter: after,
	}
}

// ApplyPaymentToBill credits amount to the bill and moves it to PAID or PARTIALLY_PAID.
func ApplyPaymentToBill(b *Bill, amount decimal.Decimal) {
	b.AmountPaid = b.AmountPaid.Add(amount)
	if b.AmountPaid.GreaterThanOrEqual(b.TotalDue) {
		b.Status = BillStatusPaid
		return
	}
	b.Status = BillStatusPartiallyPaid
}
