package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tokenlaunch/salecore/internal/config"
	"github.com/tokenlaunch/salecore/internal/engine"
	"github.com/tokenlaunch/salecore/internal/models"
)

// Deps holds the dependencies shared by all handlers.
type Deps struct {
	Engine *engine.Engine
	Config *config.Config
}

// Deposit handles POST /api/deposit.
func Deposit(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.DepositRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("invalid deposit request body", "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "invalid request body")
			return
		}
		if req.Account == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "account is required")
			return
		}

		receipt, err := deps.Engine.Deposit(r.Context(), req.Account, req.Amount, req.Destination)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.APIResponse{Data: receipt})
	}
}

// Withdraw handles POST /api/withdraw.
func Withdraw(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.WithdrawRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("invalid withdraw request body", "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "invalid request body")
			return
		}
		if req.Account == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "account is required")
			return
		}

		delivered, err := deps.Engine.Withdraw(r.Context(), req.Account, req.Amount, req.Destination)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.APIResponse{Data: models.WithdrawResponse{Delivered: delivered}})
	}
}

// Claim handles POST /api/claim.
func Claim(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ClaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("invalid claim request body", "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "invalid request body")
			return
		}
		if req.Account == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "account is required")
			return
		}

		claimed, err := deps.Engine.Claim(r.Context(), req.Account, req.Destination)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.APIResponse{Data: models.ClaimResponse{Claimed: claimed}})
	}
}
