package handler

import (
	"net/http"

	"github.com/lmoreira/fintrack-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Insights — /v1/ledgers/{ledgerId}/insights
// ============================================================

func insightsSummaryHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledgers/{ledgerId}/insights/summary")
		defer span.End()

		ledgerID := chi.URLParam(r, "ledgerId")
		span.SetAttributes(attribute.String("ledger.id", ledgerID))

		summary, err := svc.PeriodSummary(ctx, UserIDFromContext(ctx), ledgerID,
			r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func insightsCategoriesHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledgers/{ledgerId}/insights/categories")
		defer span.End()

		insights, err := svc.CategoryInsights(ctx, UserIDFromContext(ctx),
			chi.URLParam(r, "ledgerId"),
			r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": insights})
	}
}
