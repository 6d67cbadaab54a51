package handler

import (
	"encoding/json"
	"net/http"

	"github.com/lmoreira/fintrack-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Ledgers — /v1/ledgers
// ============================================================

type ledgerRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency,omitempty"`
}

func listLedgersHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledgers")
		defer span.End()

		ledgers, err := svc.ListLedgers(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ledgers": ledgers})
	}
}

func getLedgerHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledgers/{ledgerId}")
		defer span.End()

		ledgerID := chi.URLParam(r, "ledgerId")
		span.SetAttributes(attribute.String("ledger.id", ledgerID))

		ledger, err := svc.GetLedger(ctx, UserIDFromContext(ctx), ledgerID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ledger)
	}
}

func createLedgerHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/ledgers")
		defer span.End()

		var req ledgerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ledger, err := svc.CreateLedger(ctx, UserIDFromContext(ctx), req.Name, req.Currency)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, ledger)
	}
}

func updateLedgerHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/ledgers/{ledgerId}")
		defer span.End()

		var req ledgerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ledger, err := svc.UpdateLedger(ctx, UserIDFromContext(ctx), chi.URLParam(r, "ledgerId"), req.Name, req.Currency)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ledger)
	}
}

func deleteLedgerHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/ledgers/{ledgerId}")
		defer span.End()

		if err := svc.DeleteLedger(ctx, UserIDFromContext(ctx), chi.URLParam(r, "ledgerId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
