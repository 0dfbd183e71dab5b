package dto

import (
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/pkg/apperrors"
	"credit-ledger/internal/pkg/money"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApplyLoanRequest leaves amount, rate and term ranges to the loan policy so
// rejections are reported in the same order as the eligibility rules.
type ApplyLoanRequest struct {
	BorrowerID       string `json:"borrowerId" validate:"required,uuid"`
	LoanType         string `json:"loanType" validate:"required"`
	Amount           string `json:"amount" validate:"required,numeric"`
	AnnualRate       string `json:"annualRate" validate:"required,numeric"`
	TermMonths       int    `json:"termMonths"`
	DisbursementDate string `json:"disbursementDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (r ApplyLoanRequest) ToParams(today time.Time) (loan.ApplyParams, error) {
	borrowerID, err := uuid.Parse(r.BorrowerID)
	if err != nil {
		return loan.ApplyParams{}, apperrors.NewValidationError("borrowerId", "must be a valid UUID")
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return loan.ApplyParams{}, apperrors.NewValidationError("amount", "must be a number")
	}
	if !money.FitsNumeric(amount, money.AmountPrecision, money.CurrencyScale) {
		return loan.ApplyParams{}, apperrors.NewValidationError("amount", "must have at most 12 digits and 2 decimal places")
	}
	rate, err := decimal.NewFromString(r.AnnualRate)
	if err != nil {
		return loan.ApplyParams{}, apperrors.NewValidationError("annualRate", "must be a number")
	}
	if !money.FitsNumeric(rate, money.RatePrecision, money.RateScale) {
		return loan.ApplyParams{}, apperrors.NewValidationError("annualRate", "must be below 10000 with at most 3 decimal places")
	}

	disbursement := loan.DateOf(today)
	if r.DisbursementDate != "" {
		disbursement, err = time.Parse(DateLayout, r.DisbursementDate)
		if err != nil {
			return loan.ApplyParams{}, apperrors.NewValidationError("disbursementDate", "must be a date in 2006-01-02 format")
		}
	}

	return loan.ApplyParams{
		BorrowerID:       borrowerID,
		LoanType:         r.LoanType,
		Amount:           amount,
		AnnualRate:       rate,
		TermMonths:       r.TermMonths,
		DisbursementDate: disbursement,
	}, nil
}

type InstallmentResponse struct {
	Sequence  int        `json:"sequence"`
	DueDate   string     `json:"dueDate"`
	AmountDue string     `json:"amountDue"`
	IsPaid    bool       `json:"isPaid"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
}

type LoanResponse struct {
	LoanID           string                `json:"loanId"`
	BorrowerID       string                `json:"borrowerId"`
	LoanType         string                `json:"loanType"`
	Amount           string                `json:"amount"`
	AnnualRate       string                `json:"annualRate"`
	TermMonths       int                   `json:"termMonths"`
	DisbursementDate string                `json:"disbursementDate"`
	Status           string                `json:"status"`
	PrincipalBalance string                `json:"principalBalance"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
	Installments     []InstallmentResponse `json:"installments"`
}

func NewLoanResponse(l *loan.Loan) LoanResponse {
	resp := LoanResponse{
		LoanID:           l.ID.String(),
		BorrowerID:       l.BorrowerID.String(),
		LoanType:         string(l.Type),
		Amount:           money.Format(l.Amount),
		AnnualRate:       l.AnnualRate.String(),
		TermMonths:       l.TermMonths,
		DisbursementDate: l.DisbursementDate.Format(DateLayout),
		Status:           string(l.Status),
		PrincipalBalance: money.Format(l.PrincipalBalance),
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
		Installments:     make([]InstallmentResponse, len(l.Installments)),
	}
	for i, inst := range l.Installments {
		resp.Installments[i] = InstallmentResponse{
			Sequence:  inst.Sequence,
			DueDate:   inst.DueDate.Format(DateLayout),
			AmountDue: money.Format(inst.AmountDue),
			IsPaid:    inst.IsPaid,
			PaidAt:    inst.PaidAt,
		}
	}
	return resp
}

type MakePaymentRequest struct {
	Amount string `json:"amount" validate:"required,numeric"`
}

func (r MakePaymentRequest) ParseAmount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError("amount", "must be a number")
	}
	if !money.FitsNumeric(amount, money.AmountPrecision, money.CurrencyScale) {
		return decimal.Zero, apperrors.NewValidationError("amount", "must have at most 12 digits and 2 decimal places")
	}
	return amount, nil
}

type PaymentResponse struct {
	PaymentID        string    `json:"paymentId"`
	LoanID           string    `json:"loanId"`
	Amount           string    `json:"amount"`
	PrincipalPortion string    `json:"principalPortion"`
	InterestPortion  string    `json:"interestPortion"`
	Status           string    `json:"status"`
	PaidAt           time.Time `json:"paidAt"`
}

func NewPaymentResponse(p *loan.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:        p.ID.String(),
		LoanID:           p.LoanID.String(),
		Amount:           money.Format(p.Amount),
		PrincipalPortion: money.Format(p.PrincipalPortion),
		InterestPortion:  money.Format(p.InterestPortion),
		Status:           string(p.Status),
		PaidAt:           p.PaidAt,
	}
}

type PastTransactionResponse struct {
	Date       string `json:"date"`
	AmountPaid string `json:"amountPaid"`
	Principal  string `json:"principal"`
	Interest   string `json:"interest"`
}

type UpcomingTransactionResponse struct {
	Date      string `json:"date"`
	AmountDue string `json:"amountDue"`
}

type StatementResponse struct {
	LoanID               string                        `json:"loanId"`
	PrincipalBalance     string                        `json:"principalBalance"`
	PastTransactions     []PastTransactionResponse     `json:"pastTransactions"`
	UpcomingTransactions []UpcomingTransactionResponse `json:"upcomingTransactions"`
}

func NewStatementResponse(s *loan.Statement) StatementResponse {
	resp := StatementResponse{
		LoanID:               s.LoanID.String(),
		PrincipalBalance:     money.Format(s.PrincipalBalance),
		PastTransactions:     make([]PastTransactionResponse, len(s.Past)),
		UpcomingTransactions: make([]UpcomingTransactionResponse, len(s.Upcoming)),
	}
	for i, p := range s.Past {
		resp.PastTransactions[i] = PastTransactionResponse{
			Date:       p.PaidAt.Format(DateLayout),
			AmountPaid: money.Format(p.Amount),
			Principal:  money.Format(p.Principal),
			Interest:   money.Format(p.Interest),
		}
	}
	for i, u := range s.Upcoming {
		resp.UpcomingTransactions[i] = UpcomingTransactionResponse{
			Date:      u.DueDate.Format(DateLayout),
			AmountDue: money.Format(u.AmountDue),
		}
	}
	return resp
}

type BillResponse struct {
	BillID          string `json:"billId"`
	BillingDate     string `json:"billingDate"`
	DueDate         string `json:"dueDate"`
	PrincipalDue    string `json:"principalDue"`
	InterestAccrued string `json:"interestAccrued"`
	MinDue          string `json:"minDue"`
	PastDue         string `json:"pastDue"`
	TotalDue        string `json:"totalDue"`
	AmountPaid      string `json:"amountPaid"`
	Status          string `json:"status"`
}

func NewBillResponses(bills []loan.Bill) []BillResponse {
	out := make([]BillResponse, len(bills))
	for i, b := range bills {
		out[i] = BillResponse{
			BillID:          b.ID.String(),
			BillingDate:     b.BillingDate.Format(DateLayout),
			DueDate:         b.DueDate.Format(DateLayout),
			PrincipalDue:    money.Format(b.PrincipalDue),
			InterestAccrued: money.Format(b.InterestAccrued),
			MinDue:          money.Format(b.MinDue),
			PastDue:         money.Format(b.PastDue),
			TotalDue:        money.Format(b.TotalDue),
			AmountPaid:      money.Format(b.AmountPaid),
			Status:          string(b.Status),
		}
	}
	return out
}
