package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tokenlaunch/salecore/internal/config"
	"github.com/tokenlaunch/salecore/internal/models"
)

// SaleStatus handles GET /api/status.
func SaleStatus(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: map[string]string{"status": string(deps.Engine.Status())},
		})
	}
}

// SaleInfo handles GET /api/sale.
func SaleInfo(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.APIResponse{Data: deps.Engine.Sale()})
	}
}

// Investment handles GET /api/investment/{account}.
func Investment(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account := chi.URLParam(r, "account")
		if account == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "account is required")
			return
		}

		view, found, err := deps.Engine.Investment(account)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, config.ErrorInvalidRequest, "no investment for account")
			return
		}
		writeJSON(w, http.StatusOK, models.APIResponse{Data: view})
	}
}

// Health handles GET /api/health.
func Health(deps *Deps, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("health check requested", "remoteAddr", r.RemoteAddr)

		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"sale":    string(deps.Engine.Status()),
			"dbPath":  deps.Config.DBPath,
		})
	}
}
