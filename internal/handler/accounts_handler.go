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
// Accounts — /v1/ledgers/{ledgerId}/accounts
// ============================================================

func listAccountsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledgers/{ledgerId}/accounts")
		defer span.End()

		accounts, err := svc.ListAccounts(ctx, UserIDFromContext(ctx), chi.URLParam(r, "ledgerId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
	}
}

func getAccountHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledgers/{ledgerId}/accounts/{accountId}")
		defer span.End()

		account, err := svc.GetAccount(ctx, UserIDFromContext(ctx),
			chi.URLParam(r, "ledgerId"), chi.URLParam(r, "accountId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func createAccountHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/ledgers/{ledgerId}/accounts")
		defer span.End()

		var req service.AccountInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		account, err := svc.CreateAccount(ctx, UserIDFromContext(ctx), chi.URLParam(r, "ledgerId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, account)
	}
}

func updateAccountHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/ledgers/{ledgerId}/accounts/{accountId}")
		defer span.End()

		var req service.AccountUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		account, err := svc.UpdateAccount(ctx, UserIDFromContext(ctx),
			chi.URLParam(r, "ledgerId"), chi.URLParam(r, "accountId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func deleteAccountHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/ledgers/{ledgerId}/accounts/{accountId}")
		defer span.End()

		err := svc.DeleteAccount(ctx, UserIDFromContext(ctx),
			chi.URLParam(r, "ledgerId"), chi.URLParam(r, "accountId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// accountTreeHandler renders the account forest with computed group
// balances. ?show_zero=true includes zero-balance rows.
func accountTreeHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledgers/{ledgerId}/accounts/tree")
		defer span.End()

		ledgerID := chi.URLParam(r, "ledgerId")
		showZero := parseBoolQuery(r, "show_zero", false)
		span.SetAttributes(
			attribute.String("ledger.id", ledgerID),
			attribute.Bool("show_zero", showZero),
		)

		rows, err := svc.AccountTree(ctx, UserIDFromContext(ctx), ledgerID, showZero)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
	}
}
