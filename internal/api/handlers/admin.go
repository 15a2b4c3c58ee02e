package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tokenlaunch/salecore/internal/config"
	"github.com/tokenlaunch/salecore/internal/models"
)

// AdminWithdraw handles POST /api/admin/withdraw.
func AdminWithdraw(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.AdminWithdrawRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("invalid admin withdraw request body", "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "invalid request body")
			return
		}

		receipt, err := deps.Engine.AdminWithdraw(r.Context(), req.Destination, req.Amount)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.APIResponse{Data: receipt})
	}
}

// Distribute handles POST /api/admin/distribute.
func Distribute(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := deps.Engine.Distribute(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.APIResponse{Data: report})
	}
}

// SetTGE handles POST /api/admin/tge.
func SetTGE(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SetTGERequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("invalid TGE request body", "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "invalid request body")
			return
		}

		if err := deps.Engine.SetTGE(req.TGE); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.APIResponse{Data: map[string]int64{"tge": req.TGE}})
	}
}

// SetLock handles POST /api/admin/lock.
func SetLock(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SetLockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("invalid lock request body", "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "invalid request body")
			return
		}

		if err := deps.Engine.SetLocked(req.Locked); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.APIResponse{Data: map[string]bool{"locked": req.Locked}})
	}
}

// Whitelist handles POST /api/admin/whitelist.
func Whitelist(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.WhitelistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("invalid whitelist request body", "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "invalid request body")
			return
		}
		if len(req.Accounts) == 0 {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "accounts are required")
			return
		}

		if err := deps.Engine.AddWhitelist(req.Phase, req.Accounts); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: map[string]int{"added": len(req.Accounts)},
		})
	}
}
