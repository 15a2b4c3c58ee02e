package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tokenlaunch/salecore/internal/api/handlers"
	"github.com/tokenlaunch/salecore/internal/api/middleware"
	"github.com/tokenlaunch/salecore/internal/config"
	"github.com/tokenlaunch/salecore/internal/engine"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(e *engine.Engine, cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogging)

	deps := &handlers.Deps{Engine: e, Config: cfg}

	slog.Info("router initialized", "middleware", []string{"requestLogging"})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health(deps, Version))
		r.Get("/status", handlers.SaleStatus(deps))
		r.Get("/sale", handlers.SaleInfo(deps))
		r.Get("/investment/{account}", handlers.Investment(deps))

		r.Post("/deposit", handlers.Deposit(deps))
		r.Post("/withdraw", handlers.Withdraw(deps))
		r.Post("/claim", handlers.Claim(deps))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.AdminToken))
			r.Post("/withdraw", handlers.AdminWithdraw(deps))
			r.Post("/distribute", handlers.Distribute(deps))
			r.Post("/tge", handlers.SetTGE(deps))
			r.Post("/lock", handlers.SetLock(deps))
			r.Post("/whitelist", handlers.Whitelist(deps))
		})
	})

	return r
}
