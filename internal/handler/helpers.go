package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/creditline/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var backdated *domain.ErrBackdatedTransaction
	var overLimit *domain.ErrInsufficientCreditLimit
	var overpayment *domain.ErrOverpayment
	var unauthorized *domain.ErrUnauthorized

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &backdated):
		logger.Debug("backdated transaction",
			zap.Time("date", backdated.Date),
			zap.Time("last_accrual", backdated.LastAccrual),
		)
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &overLimit):
		logger.Warn("insufficient credit limit",
			zap.String("available", overLimit.Available().StringFixed(2)),
			zap.String("requested", overLimit.Requested.StringFixed(2)),
		)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &overpayment):
		logger.Warn("overpayment", zap.String("max_allowed", overpayment.MaxAllowed.StringFixed(2)))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
