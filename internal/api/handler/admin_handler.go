package handler

import (
	"context"
	"credit-ledger/internal/api/handler/dto"
	"credit-ledger/internal/batch"
	"credit-ledger/internal/pkg/apperrors"
	"log/slog"
	"net/http"
	"time"
)

type DailyCycleRunner interface {
	RunFor(ctx context.Context, date time.Time) (batch.RunResult, error)
}

type AdminHandler struct {
	runner DailyCycleRunner
	now    func() time.Time
	logger *slog.Logger
}

func NewAdminHandler(runner DailyCycleRunner, l *slog.Logger) *AdminHandler {
	if runner == nil {
		panic("daily cycle runner cannot be nil")
	}
	return &AdminHandler{
		runner: runner,
		now:    time.Now,
		logger: l.With("component", "AdminHandler"),
	}
}

// RunDailyCycle handles POST /admin/daily-cycle
//
// @Summary Run the daily accrual and billing cycle
// @Description Accrues interest for every active loan and generates bills that are due. Re-running for the same date records nothing twice.
// @Tags Admin
// @Produce json
// @Param date query string false "Cycle date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} dto.DailyCycleResponse "Cycle completed"
// @Failure 400 {object} dto.ErrorResponse "Invalid date"
// @Failure 500 {object} dto.DailyCycleResponse "Cycle completed with failures"
// @Router /admin/daily-cycle [post]
// @Security BearerAuth
func (h *AdminHandler) RunDailyCycle(w http.ResponseWriter, r *http.Request) {
	date := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dto.DateLayout, raw)
		if err != nil {
			respondError(w, apperrors.NewValidationError("date", "must be a date in 2006-01-02 format"))
			return
		}
		date = parsed
	}

	result, err := h.runner.RunFor(r.Context(), date)
	if err != nil && result.Total == 0 {
		respondError(w, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		h.logger.WarnContext(r.Context(), "Manual daily cycle finished with failures", slog.Any("error", err))
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, dto.NewDailyCycleResponse(result))
}
