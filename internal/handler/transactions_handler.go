package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/port"
	"github.com/lmoreira/fintrack-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transactions — /v1/ledgers/{ledgerId}/transactions
// ============================================================

// parseTransactionFilter reads the listing query parameters:
// ?type=income,expense&category_id=&account_id=&from=YYYY-MM-DD&to=YYYY-MM-DD&limit=
func parseTransactionFilter(r *http.Request) (port.TransactionFilter, error) {
	var filter port.TransactionFilter
	q := r.URL.Query()

	if typeParam := q.Get("type"); typeParam != "" {
		for _, t := range strings.Split(typeParam, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				filter.Types = append(filter.Types, t)
			}
		}
	}
	filter.CategoryID = q.Get("category_id")
	filter.AccountID = q.Get("account_id")

	if from := q.Get("from"); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			return filter, &domain.ErrValidation{Field: "from", Message: "invalid format, use YYYY-MM-DD"}
		}
		filter.From = parsed
	}
	if to := q.Get("to"); to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			return filter, &domain.ErrValidation{Field: "to", Message: "invalid format, use YYYY-MM-DD"}
		}
		filter.To = parsed.Add(24*time.Hour - time.Second)
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	return filter, nil
}

func listTransactionsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledgers/{ledgerId}/transactions")
		defer span.End()

		filter, err := parseTransactionFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		txs, err := svc.ListTransactions(ctx, UserIDFromContext(ctx), chi.URLParam(r, "ledgerId"), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
	}
}

func getTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledgers/{ledgerId}/transactions/{transactionId}")
		defer span.End()

		tx, err := svc.GetTransaction(ctx, UserIDFromContext(ctx),
			chi.URLParam(r, "ledgerId"), chi.URLParam(r, "transactionId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func createTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/ledgers/{ledgerId}/transactions")
		defer span.End()

		var req service.TransactionInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(
			attribute.String("transaction.type", req.Type),
			attribute.Float64("transaction.amount", req.Amount),
		)

		tx, err := svc.CreateTransaction(ctx, UserIDFromContext(ctx), chi.URLParam(r, "ledgerId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

func deleteTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/ledgers/{ledgerId}/transactions/{transactionId}")
		defer span.End()

		err := svc.DeleteTransaction(ctx, UserIDFromContext(ctx),
			chi.URLParam(r, "ledgerId"), chi.URLParam(r, "transactionId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Transfers — POST /v1/ledgers/{ledgerId}/transfers
// ============================================================

func createTransferHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/ledgers/{ledgerId}/transfers")
		defer span.End()

		var req domain.TransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.Float64("transfer.amount", req.Amount))

		legs, err := svc.CreateTransfer(ctx, UserIDFromContext(ctx), chi.URLParam(r, "ledgerId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"transactions": legs})
	}
}

// ============================================================
// Split preview — POST /v1/transactions/split/preview
// ============================================================

func splitPreviewHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/split/preview")
		defer span.End()

		var req domain.SplitPreviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.PreviewSplit(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
