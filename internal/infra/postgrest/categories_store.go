package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/lmoreira/fintrack-api/internal/domain"
)

// ============================================================
// Categories — CRUD via PostgREST
// ============================================================

func (c *Client) ListCategories(ctx context.Context, ledgerID string) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.ListCategories")
	defer span.End()

	path := fmt.Sprintf("categories?ledger_id=eq.%s&order=created_at.asc", url.QueryEscape(ledgerID))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/categories", Err: err}
	}

	var rows []domain.Category
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return rows, nil
}

func (c *Client) GetCategory(ctx context.Context, ledgerID, categoryID string) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.GetCategory")
	defer span.End()

	path := fmt.Sprintf("categories?ledger_id=eq.%s&id=eq.%s&limit=1",
		url.QueryEscape(ledgerID), url.QueryEscape(categoryID))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/categories", Err: err}
	}

	category, ok, err := decodeSingle[domain.Category](body)
	if err != nil {
		return nil, fmt.Errorf("decode category: %w", err)
	}
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}
	return category, nil
}

func (c *Client) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.CreateCategory")
	defer span.End()

	body, err := c.doPost(ctx, "categories", category)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/categories", Err: err}
	}

	created, ok, err := decodeSingle[domain.Category](body)
	if err != nil || !ok {
		return nil, fmt.Errorf("decode created category: %w", err)
	}
	return created, nil
}

func (c *Client) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.UpdateCategory")
	defer span.End()

	err := c.doPatch(ctx, fmt.Sprintf("categories?id=eq.%s", url.QueryEscape(category.ID)), map[string]any{
		"name":      category.Name,
		"parent_id": nullable(category.ParentID),
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/categories", Err: err}
	}
	return c.GetCategory(ctx, category.LedgerID, category.ID)
}

func (c *Client) DeleteCategory(ctx context.Context, ledgerID, categoryID string) error {
	ctx, span := tracer.Start(ctx, "PostgREST.DeleteCategory")
	defer span.End()

	path := fmt.Sprintf("categories?ledger_id=eq.%s&id=eq.%s",
		url.QueryEscape(ledgerID), url.QueryEscape(categoryID))
	if err := c.doDelete(ctx, path); err != nil {
		return &domain.ErrExternalService{Service: "postgrest/categories", Err: err}
	}
	return nil
}

// AdjustCategoryBalance shifts a category's running balance by a delta.
func (c *Client) AdjustCategoryBalance(ctx context.Context, categoryID string, delta float64) error {
	ctx, span := tracer.Start(ctx, "PostgREST.AdjustCategoryBalance")
	defer span.End()

	path := fmt.Sprintf("categories?id=eq.%s&limit=1", url.QueryEscape(categoryID))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return &domain.ErrExternalService{Service: "postgrest/categories", Err: err}
	}
	category, ok, err := decodeSingle[domain.Category](body)
	if err != nil {
		return fmt.Errorf("decode category: %w", err)
	}
	if !ok {
		return &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}

	err = c.doPatch(ctx, fmt.Sprintf("categories?id=eq.%s", url.QueryEscape(categoryID)), map[string]any{
		"balance": category.Balance + delta,
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "postgrest/categories", Err: err}
	}
	return nil
}
