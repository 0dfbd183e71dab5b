package handler

import (
	"credit-ledger/internal/api/handler/dto"
	"credit-ledger/internal/domain/borrower"
	"log/slog"
	"net/http"
)

type BorrowerHandler struct {
	service borrower.Service
	logger  *slog.Logger
}

func NewBorrowerHandler(s borrower.Service, l *slog.Logger) *BorrowerHandler {
	if s == nil {
		panic("borrower service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &BorrowerHandler{
		service: s,
		logger:  l.With("component", "BorrowerHandler"),
	}
}

// RegisterBorrower handles POST /borrowers
// @Summary Register a borrower
// @Description Registers a borrower and scores them from their transaction history before responding.
// @Tags Borrowers
// @Accept json
// @Produce json
// @Param request body dto.RegisterBorrowerRequest true "Borrower registration"
// @Success 201 {object} dto.BorrowerResponse "Borrower registered"
// @Failure 400 {object} dto.ErrorResponse "Validation error or duplicate identity"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /borrowers [post]
// @Security BearerAuth
func (h *BorrowerHandler) RegisterBorrower(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterBorrowerRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Rejected borrower registration request", slog.Any("error", err))
		respondError(w, err)
		return
	}
	params, err := req.ToParams()
	if err != nil {
		respondError(w, err)
		return
	}

	b, err := h.service.Register(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewBorrowerResponse(b))
}

// GetBorrower handles GET /borrowers/{borrowerID}
// @Summary Get a borrower
// @Tags Borrowers
// @Produce json
// @Param borrowerID path string true "Borrower ID"
// @Success 200 {object} dto.BorrowerResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid borrower ID"
// @Failure 404 {object} dto.ErrorResponse "Borrower not found"
// @Router /borrowers/{borrowerID} [get]
// @Security BearerAuth
func (h *BorrowerHandler) GetBorrower(w http.ResponseWriter, r *http.Request) {
	borrowerID, err := uuidParam(r, "borrowerID")
	if err != nil {
		respondError(w, err)
		return
	}

	b, err := h.service.GetBorrower(r.Context(), borrowerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewBorrowerResponse(b))
}

// ScoreBorrower handles POST /borrowers/{borrowerID}/score
// @Summary Recompute a borrower's credit score
// @Tags Borrowers
// @Produce json
// @Param borrowerID path string true "Borrower ID"
// @Success 200 {object} dto.ScoreResponse
// @Failure 404 {object} dto.ErrorResponse "Borrower not found"
// @Router /borrowers/{borrowerID}/score [post]
// @Security BearerAuth
func (h *BorrowerHandler) ScoreBorrower(w http.ResponseWriter, r *http.Request) {
	borrowerID, err := uuidParam(r, "borrowerID")
	if err != nil {
		respondError(w, err)
		return
	}

	b, err := h.service.Score(r.Context(), borrowerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ScoreResponse{BorrowerID: b.ID.String(), CreditScore: b.CreditScore})
}
