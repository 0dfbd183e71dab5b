package handler

import (
	"credit-ledger/internal/api/handler/dto"
	"credit-ledger/internal/domain/loan"
	"log/slog"
	"net/http"
	"time"
)

type LoanHandler struct {
	service loan.LoanService
	now     func() time.Time
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	return &LoanHandler{
		service: s,
		now:     time.Now,
		logger:  l.With("component", "LoanHandler"),
	}
}

// ApplyLoan handles POST /loans
//
// @Summary Apply for a loan
// @Description Runs the eligibility rules and, when they pass, originates the loan with its installment schedule.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.ApplyLoanRequest true "Loan application"
// @Success 201 {object} dto.LoanResponse "Loan originated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request or eligibility rule violated"
// @Failure 404 {object} dto.ErrorResponse "Borrower not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) ApplyLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.ApplyLoanRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	params, err := req.ToParams(h.now())
	if err != nil {
		respondError(w, err)
		return
	}

	created, err := h.service.ApplyLoan(r.Context(), params)
	if err != nil {
		h.logger.InfoContext(r.Context(), "Loan application refused", slog.String("borrowerID", req.BorrowerID), slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created))
}

// GetLoan handles GET /loans/{loanID}
//
// @Summary Retrieve loan details
// @Tags Loans
// @Produce json
// @Param loanID path string true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuidParam(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	l, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(l))
}

// MakePayment handles POST /loans/{loanID}/payments
//
// @Summary Pay the next installment
// @Description The amount must equal the earliest unpaid installment exactly.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID"
// @Param request body dto.MakePaymentRequest true "Payment"
// @Success 201 {object} dto.PaymentResponse
// @Failure 400 {object} dto.ErrorResponse "Amount mismatch, closed loan or invalid request"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Concurrent payment on the same installment"
// @Router /loans/{loanID}/payments [post]
// @Security BearerAuth
func (h *LoanHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuidParam(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.MakePaymentRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	amount, err := req.ParseAmount()
	if err != nil {
		respondError(w, err)
		return
	}

	payment, err := h.service.MakePayment(r.Context(), loanID, amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewPaymentResponse(payment))
}

// GetStatement handles GET /loans/{loanID}/statement
//
// @Summary Loan statement
// @Description Past payments with their principal and interest split, and the installments still due.
// @Tags Loans
// @Produce json
// @Param loanID path string true "Loan ID"
// @Success 200 {object} dto.StatementResponse
// @Failure 400 {object} dto.ErrorResponse "Loan is closed"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID}/statement [get]
// @Security BearerAuth
func (h *LoanHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuidParam(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	st, err := h.service.GetStatement(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewStatementResponse(st))
}

// ListBills handles GET /loans/{loanID}/bills
//
// @Summary List a loan's bills, newest first
// @Tags Loans
// @Produce json
// @Param loanID path string true "Loan ID"
// @Success 200 {array} dto.BillResponse
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID}/bills [get]
// @Security BearerAuth
func (h *LoanHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuidParam(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	bills, err := h.service.ListBills(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewBillResponses(bills))
}
