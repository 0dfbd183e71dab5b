package dto

import (
	"credit-ledger/internal/batch"
	"time"
)

const DateLayout = "2006-01-02"

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username" validate:"required,max=64"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type DailyCycleResponse struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Accrued   int    `json:"accrued"`
	Billed    int    `json:"billed"`
	Failed    int    `json:"failed"`
}

func NewDailyCycleResponse(r batch.RunResult) DailyCycleResponse {
	return DailyCycleResponse{
		Date:      r.Date.Format(DateLayout),
		Total:     r.Total,
		Processed: r.Processed,
		Accrued:   r.Accrued,
		Billed:    r.Billed,
		Failed:    r.Failed,
	}
}
