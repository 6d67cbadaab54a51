package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/lmoreira/fintrack-api/internal/domain"
)

// ============================================================
// Ledgers — CRUD via PostgREST
// ============================================================

func (c *Client) ListLedgers(ctx context.Context, ownerID string) ([]domain.Ledger, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.ListLedgers")
	defer span.End()

	path := fmt.Sprintf("ledgers?owner_id=eq.%s&order=created_at.asc", url.QueryEscape(ownerID))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/ledgers", Err: err}
	}

	var rows []domain.Ledger
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode ledgers: %w", err)
	}
	return rows, nil
}

func (c *Client) GetLedger(ctx context.Context, ownerID, ledgerID string) (*domain.Ledger, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.GetLedger")
	defer span.End()

	path := fmt.Sprintf("ledgers?owner_id=eq.%s&id=eq.%s&limit=1",
		url.QueryEscape(ownerID), url.QueryEscape(ledgerID))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/ledgers", Err: err}
	}

	ledger, ok, err := decodeSingle[domain.Ledger](body)
	if err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "ledger", ID: ledgerID}
	}
	return ledger, nil
}

func (c *Client) CreateLedger(ctx context.Context, ledger *domain.Ledger) (*domain.Ledger, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.CreateLedger")
	defer span.End()

	body, err := c.doPost(ctx, "ledgers", ledger)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/ledgers", Err: err}
	}

	created, ok, err := decodeSingle[domain.Ledger](body)
	if err != nil || !ok {
		return nil, fmt.Errorf("decode created ledger: %w", err)
	}
	return created, nil
}

func (c *Client) UpdateLedger(ctx context.Context, ledger *domain.Ledger) (*domain.Ledger, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.UpdateLedger")
	defer span.End()

	err := c.doPatch(ctx, fmt.Sprintf("ledgers?id=eq.%s", url.QueryEscape(ledger.ID)), map[string]any{
		"name":     ledger.Name,
		"currency": ledger.Currency,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/ledgers", Err: err}
	}
	return c.GetLedger(ctx, ledger.OwnerID, ledger.ID)
}

func (c *Client) DeleteLedger(ctx context.Context, ownerID, ledgerID string) error {
	ctx, span := tracer.Start(ctx, "PostgREST.DeleteLedger")
	defer span.End()

	path := fmt.Sprintf("ledgers?owner_id=eq.%s&id=eq.%s",
		url.QueryEscape(ownerID), url.QueryEscape(ledgerID))
	if err := c.doDelete(ctx, path); err != nil {
		return &domain.ErrExternalService{Service: "postgrest/ledgers", Err: err}
	}
	return nil
}
