package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/port"
)

// ============================================================
// Transactions — CRUD via PostgREST
// ============================================================

// Splits are stored as a jsonb column on the transactions table, so a
// transaction row round-trips through a single request.

func (c *Client) ListTransactions(ctx context.Context, ledgerID string, filter port.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.ListTransactions")
	defer span.End()

	var sb strings.Builder
	fmt.Fprintf(&sb, "transactions?ledger_id=eq.%s&order=date.desc", url.QueryEscape(ledgerID))
	if len(filter.Types) > 0 {
		fmt.Fprintf(&sb, "&type=in.(%s)", url.QueryEscape(strings.Join(filter.Types, ",")))
	}
	if filter.CategoryID != "" {
		fmt.Fprintf(&sb, "&category_id=eq.%s", url.QueryEscape(filter.CategoryID))
	}
	if filter.AccountID != "" {
		fmt.Fprintf(&sb, "&account_id=eq.%s", url.QueryEscape(filter.AccountID))
	}
	if !filter.From.IsZero() {
		fmt.Fprintf(&sb, "&date=gte.%s", filter.From.Format(time.RFC3339))
	}
	if !filter.To.IsZero() {
		fmt.Fprintf(&sb, "&date=lte.%s", filter.To.Format(time.RFC3339))
	}
	if filter.Limit > 0 {
		fmt.Fprintf(&sb, "&limit=%d", filter.Limit)
	}

	body, err := c.getWithRetry(ctx, sb.String())
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/transactions", Err: err}
	}

	var rows []domain.Transaction
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return rows, nil
}

func (c *Client) GetTransaction(ctx context.Context, ledgerID, transactionID string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.GetTransaction")
	defer span.End()

	path := fmt.Sprintf("transactions?ledger_id=eq.%s&id=eq.%s&limit=1",
		url.QueryEscape(ledgerID), url.QueryEscape(transactionID))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/transactions", Err: err}
	}

	tx, ok, err := decodeSingle[domain.Transaction](body)
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	return tx, nil
}

func (c *Client) CreateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.CreateTransaction")
	defer span.End()

	body, err := c.doPost(ctx, "transactions", tx)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/transactions", Err: err}
	}

	created, ok, err := decodeSingle[domain.Transaction](body)
	if err != nil || !ok {
		return nil, fmt.Errorf("decode created transaction: %w", err)
	}
	return created, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, ledgerID, transactionID string) error {
	ctx, span := tracer.Start(ctx, "PostgREST.DeleteTransaction")
	defer span.End()

	path := fmt.Sprintf("transactions?ledger_id=eq.%s&id=eq.%s",
		url.QueryEscape(ledgerID), url.QueryEscape(transactionID))
	if err := c.doDelete(ctx, path); err != nil {
		return &domain.ErrExternalService{Service: "postgrest/transactions", Err: err}
	}
	return nil
}
