package api

import (
	"credit-ledger/internal/api/handler"
	mw "credit-ledger/internal/api/middleware"
	"credit-ledger/internal/config"
	"credit-ledger/internal/domain/borrower"
	"credit-ledger/internal/domain/loan"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Services struct {
	Borrowers  borrower.Service
	Loans      loan.LoanService
	DailyCycle handler.DailyCycleRunner
}

// SetupRouter wires every HTTP route. The rate limiter is owned by the caller so
// its cleanup goroutine can be stopped on shutdown.
func SetupRouter(svc Services, limiter *mw.RateLimiterMiddleware, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, limiter, logger)
	setupMetricsEndpoint(router, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	setupAuthRoutes(router, cfg, logger)
	setupBorrowerRoutes(router, svc.Borrowers, cfg, logger)
	setupLoanRoutes(router, svc.Loans, cfg, logger)
	setupAdminRoutes(router, svc.DailyCycle, cfg, logger)

	return router
}

func setupMiddleware(router *chi.Mux, limiter *mw.RateLimiterMiddleware, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	if limiter != nil {
		router.Use(limiter.Middleware)
	}
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupAuthRoutes(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(cfg.Server.Auth, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})
}

func setupBorrowerRoutes(router *chi.Mux, svc borrower.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewBorrowerHandler(svc, logger)

	router.Route("/borrowers", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.RegisterBorrower)
		r.Route("/{borrowerID}", func(r chi.Router) {
			r.Get("/", h.GetBorrower)
			r.Post("/score", h.ScoreBorrower)
		})
	})
}

func setupLoanRoutes(router *chi.Mux, svc loan.LoanService, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewLoanHandler(svc, logger)

	router.Route("/loans", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.ApplyLoan)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", h.GetLoan)
			r.Post("/payments", h.MakePayment)
			r.Get("/statement", h.GetStatement)
			r.Get("/bills", h.ListBills)
		})
	})
}

func setupAdminRoutes(router *chi.Mux, runner handler.DailyCycleRunner, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewAdminHandler(runner, logger)

	router.Route("/admin", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/daily-cycle", h.RunDailyCycle)
	})
}
