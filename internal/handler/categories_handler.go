package handler

import (
	"encoding/json"
	"net/http"

	"github.com/lmoreira/fintrack-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Categories — /v1/ledgers/{ledgerId}/categories
// ============================================================

func listCategoriesHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledgers/{ledgerId}/categories")
		defer span.End()

		categories, err := svc.ListCategories(ctx, UserIDFromContext(ctx), chi.URLParam(r, "ledgerId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
	}
}

func getCategoryHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledgers/{ledgerId}/categories/{categoryId}")
		defer span.End()

		category, err := svc.GetCategory(ctx, UserIDFromContext(ctx),
			chi.URLParam(r, "ledgerId"), chi.URLParam(r, "categoryId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, category)
	}
}

func createCategoryHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/ledgers/{ledgerId}/categories")
		defer span.End()

		var req service.CategoryInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		category, err := svc.CreateCategory(ctx, UserIDFromContext(ctx), chi.URLParam(r, "ledgerId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, category)
	}
}

func updateCategoryHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/ledgers/{ledgerId}/categories/{categoryId}")
		defer span.End()

		var req service.CategoryUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		category, err := svc.UpdateCategory(ctx, UserIDFromContext(ctx),
			chi.URLParam(r, "ledgerId"), chi.URLParam(r, "categoryId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, category)
	}
}

func deleteCategoryHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/ledgers/{ledgerId}/categories/{categoryId}")
		defer span.End()

		err := svc.DeleteCategory(ctx, UserIDFromContext(ctx),
			chi.URLParam(r, "ledgerId"), chi.URLParam(r, "categoryId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func categoryTreeHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledgers/{ledgerId}/categories/tree")
		defer span.End()

		rows, err := svc.CategoryTree(ctx, UserIDFromContext(ctx),
			chi.URLParam(r, "ledgerId"), parseBoolQuery(r, "show_zero", false))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
	}
}
