package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tokenlaunch/salecore/internal/config"
	"github.com/tokenlaunch/salecore/internal/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.APIError{
		Error: models.APIErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeEngineError maps an engine error onto an HTTP status and error code.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, config.ErrZeroAmount):
		writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, err.Error())
	case errors.Is(err, config.ErrInvalidDestination):
		writeError(w, http.StatusBadRequest, config.ErrorInvalidDestination, err.Error())
	case errors.Is(err, config.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, config.ErrorInsufficientFunds, err.Error())
	case errors.Is(err, config.ErrPartialWithdrawal):
		writeError(w, http.StatusBadRequest, config.ErrorPartialWithdrawal, err.Error())
	case errors.Is(err, config.ErrPhaseNotFound):
		writeError(w, http.StatusBadRequest, config.ErrorPhaseNotFound, err.Error())
	case errors.Is(err, config.ErrMultiplicationOverflow):
		writeError(w, http.StatusBadRequest, config.ErrorMultiplicationOverflow, err.Error())
	case errors.Is(err, config.ErrValueTooLarge):
		writeError(w, http.StatusBadRequest, config.ErrorValueTooLarge, err.Error())
	case errors.Is(err, config.ErrWrongSaleStatus):
		writeError(w, http.StatusConflict, config.ErrorWrongSaleStatus, err.Error())
	case errors.Is(err, config.ErrStillInProgress):
		writeError(w, http.StatusConflict, config.ErrorStillInProgress, err.Error())
	case errors.Is(err, config.ErrAlreadyDistributed):
		writeError(w, http.StatusConflict, config.ErrorAlreadyDistributed, err.Error())
	case errors.Is(err, config.ErrNothingToClaim):
		writeError(w, http.StatusConflict, config.ErrorNothingToClaim, err.Error())
	case errors.Is(err, config.ErrTGEFrozen):
		writeError(w, http.StatusConflict, config.ErrorTGEFrozen, err.Error())
	case errors.Is(err, config.ErrTransferFailed):
		writeError(w, http.StatusBadGateway, config.ErrorTransferFailed, err.Error())
	default:
		slog.Error("unmapped engine error", "error", err)
		writeError(w, http.StatusInternalServerError, config.ErrorInternal, "internal error")
	}
}
