// Package handler wires the HTTP transport: routing, middleware, request
// decoding and the domain-error to status-code mapping.
package handler

import (
	"net/http"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/infra/observability"
	"github.com/lmoreira/fintrack-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(
	ledgerSvc *service.LedgerService,
	insightsSvc *service.InsightsService,
	authSvc *service.AuthService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(ledgerSvc, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Authentication
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(authSvc, logger))
			r.Post("/login", authLoginHandler(authSvc, logger))
			r.Post("/refresh", authRefreshHandler(authSvc, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(authSvc, logger))
				r.Post("/logout", authLogoutHandler(authSvc, logger))
			})
		})

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))

			// Ledgers
			r.Get("/ledgers", listLedgersHandler(ledgerSvc, logger))
			r.Post("/ledgers", createLedgerHandler(ledgerSvc, logger))
			r.Get("/ledgers/{ledgerId}", getLedgerHandler(ledgerSvc, logger))
			r.Put("/ledgers/{ledgerId}", updateLedgerHandler(ledgerSvc, logger))
			r.Delete("/ledgers/{ledgerId}", deleteLedgerHandler(ledgerSvc, logger))

			// Accounts
			r.Get("/ledgers/{ledgerId}/accounts", listAccountsHandler(ledgerSvc, logger))
			r.Post("/ledgers/{ledgerId}/accounts", createAccountHandler(ledgerSvc, logger))
			r.Get("/ledgers/{ledgerId}/accounts/tree", accountTreeHandler(ledgerSvc, logger))
			r.Get("/ledgers/{ledgerId}/accounts/{accountId}", getAccountHandler(ledgerSvc, logger))
			r.Put("/ledgers/{ledgerId}/accounts/{accountId}", updateAccountHandler(ledgerSvc, logger))
			r.Delete("/ledgers/{ledgerId}/accounts/{accountId}", deleteAccountHandler(ledgerSvc, logger))

			// Categories
			r.Get("/ledgers/{ledgerId}/categories", listCategoriesHandler(ledgerSvc, logger))
			r.Post("/ledgers/{ledgerId}/categories", createCategoryHandler(ledgerSvc, logger))
			r.Get("/ledgers/{ledgerId}/categories/tree", categoryTreeHandler(ledgerSvc, logger))
			r.Get("/ledgers/{ledgerId}/categories/{categoryId}", getCategoryHandler(ledgerSvc, logger))
			r.Put("/ledgers/{ledgerId}/categories/{categoryId}", updateCategoryHandler(ledgerSvc, logger))
			r.Delete("/ledgers/{ledgerId}/categories/{categoryId}", deleteCategoryHandler(ledgerSvc, logger))

			// Transactions & transfers
			r.Get("/ledgers/{ledgerId}/transactions", listTransactionsHandler(ledgerSvc, logger))
			r.Post("/ledgers/{ledgerId}/transactions", createTransactionHandler(ledgerSvc, logger))
			r.Get("/ledgers/{ledgerId}/transactions/{transactionId}", getTransactionHandler(ledgerSvc, logger))
			r.Delete("/ledgers/{ledgerId}/transactions/{transactionId}", deleteTransactionHandler(ledgerSvc, logger))
			r.Post("/ledgers/{ledgerId}/transfers", createTransferHandler(ledgerSvc, logger))

			// Split preview: pure form-state computation, no ledger access.
			r.Post("/transactions/split/preview", splitPreviewHandler(ledgerSvc, logger))

			// Insights
			r.Get("/ledgers/{ledgerId}/insights/summary", insightsSummaryHandler(insightsSvc, logger))
			r.Get("/ledgers/{ledgerId}/insights/categories", insightsCategoriesHandler(insightsSvc, logger))

			// Ops snapshot
			r.Get("/metrics/api", apiMetricsHandler(metrics))
		})
	})

	return r
}

// ============================================================
// Health
// ============================================================

func healthzHandler(ledgerSvc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "fintrack-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		start := time.Now()
		_, err := ledgerSvc.ListLedgers(ctx, "health-check")
		latency := time.Since(start).Milliseconds()
		status := "healthy"
		if err != nil {
			status = "degraded"
		}
		services = append(services, domain.ServiceHealth{
			Name: "store", Status: status, LatencyMs: latency, LastChecked: now,
		})

		overall := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overall = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overall = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func apiMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAPISnapshot())
	}
}
