package loan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PastTransaction struct {
	InstallmentID int64
	Sequence      int
	DueDate       time.Time
	PaymentID     uuid.UUID
	PaidAt        time.Time
	Amount        decimal.Decimal
	Principal     decimal.Decimal
	Interest      decimal.Decimal
}

type UpcomingTransaction struct {
	InstallmentID int64
	Sequence      int
	DueDate       time.Time
	AmountDue     decimal.Decimal
}

type Statement struct {
	LoanID           uuid.UUID
	PrincipalBalance decimal.Decimal
	Past             []PastTransaction
	Upcoming         []UpcomingTransaction
}

// BuildStatement pairs each paid installment with the payment that settled it.
// Installments must be ordered by due date.
func BuildStatement(l *Loan, installments []Installment, payments []Payment) *Statement {
	byID := make(map[uuid.UUID]Payment, len(payments))
	for _, p := range payments {
		byID[p.ID] = p
	}

	st := &Statement{
		LoanID:           l.ID,
		PrincipalBalance: l.PrincipalBalance,
		Past:             []PastTransaction{},
		Upcoming:         []UpcomingTransaction{},
	}
	for _, inst := range installments {
		if !inst.IsPaid {
			st.Upcoming = append(st.Upcoming, UpcomingTransaction{
				InstallmentID: inst.ID,
				Sequence:      inst.Sequence,
				DueDate:       inst.DueDate,
				AmountDue:     inst.AmountDue,
			})
			continue
		}

		past := PastTransaction{
			InstallmentID: inst.ID,
			Sequence:      inst.Sequence,
			DueDate:       inst.DueDate,
			Amount:        inst.AmountDue,
		}
		if inst.PaidAt != nil {
			past.PaidAt = *inst.PaidAt
		}
		if inst.PaymentID != nil {
			if p, ok := byID[*inst.PaymentID]; ok {
				past.PaymentID = p.ID
				past.PaidAt = p.PaidAt
				past.Amount = p.Amount
				past.Principal = p.PrincipalPortion
				past.Interest = p.InterestPortion
			}
		}
		st.Past = append(st.Past, past)
	}
	return st
}
