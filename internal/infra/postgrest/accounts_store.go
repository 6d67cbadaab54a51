package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/lmoreira/fintrack-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Accounts — CRUD via PostgREST
// ============================================================

func (c *Client) ListAccounts(ctx context.Context, ledgerID string) ([]domain.Account, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.ListAccounts")
	defer span.End()

	path := fmt.Sprintf("accounts?ledger_id=eq.%s&order=created_at.asc", url.QueryEscape(ledgerID))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/accounts", Err: err}
	}

	var rows []domain.Account
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	return rows, nil
}

func (c *Client) GetAccount(ctx context.Context, ledgerID, accountID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.GetAccount")
	defer span.End()

	path := fmt.Sprintf("accounts?ledger_id=eq.%s&id=eq.%s&limit=1",
		url.QueryEscape(ledgerID), url.QueryEscape(accountID))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/accounts", Err: err}
	}

	account, ok, err := decodeSingle[domain.Account](body)
	if err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return account, nil
}

func (c *Client) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.CreateAccount")
	defer span.End()

	body, err := c.doPost(ctx, "accounts", account)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/accounts", Err: err}
	}

	created, ok, err := decodeSingle[domain.Account](body)
	if err != nil || !ok {
		return nil, fmt.Errorf("decode created account: %w", err)
	}
	return created, nil
}

func (c *Client) UpdateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.UpdateAccount")
	defer span.End()

	err := c.doPatch(ctx, fmt.Sprintf("accounts?id=eq.%s", url.QueryEscape(account.ID)), map[string]any{
		"name":      account.Name,
		"parent_id": nullable(account.ParentID),
		"archived":  account.Archived,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/accounts", Err: err}
	}
	return c.GetAccount(ctx, account.LedgerID, account.ID)
}

func (c *Client) DeleteAccount(ctx context.Context, ledgerID, accountID string) error {
	ctx, span := tracer.Start(ctx, "PostgREST.DeleteAccount")
	defer span.End()

	path := fmt.Sprintf("accounts?ledger_id=eq.%s&id=eq.%s",
		url.QueryEscape(ledgerID), url.QueryEscape(accountID))
	if err := c.doDelete(ctx, path); err != nil {
		return &domain.ErrExternalService{Service: "postgrest/accounts", Err: err}
	}
	return nil
}

// AdjustAccountBalance shifts an account's net balance by a delta.
func (c *Client) AdjustAccountBalance(ctx context.Context, accountID string, delta float64) error {
	ctx, span := tracer.Start(ctx, "PostgREST.AdjustAccountBalance")
	defer span.End()

	path := fmt.Sprintf("accounts?id=eq.%s&limit=1", url.QueryEscape(accountID))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return &domain.ErrExternalService{Service: "postgrest/accounts", Err: err}
	}
	account, ok, err := decodeSingle[domain.Account](body)
	if err != nil {
		return fmt.Errorf("decode account: %w", err)
	}
	if !ok {
		return &domain.ErrNotFound{Resource: "account", ID: accountID}
	}

	newBalance := account.NetBalance + delta
	err = c.doPatch(ctx, fmt.Sprintf("accounts?id=eq.%s", url.QueryEscape(accountID)), map[string]any{
		"net_balance": newBalance,
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "postgrest/accounts", Err: err}
	}

	c.logger.Info("postgrest: account balance adjusted",
		zap.String("account_id", accountID),
		zap.Float64("old_balance", account.NetBalance),
		zap.Float64("new_balance", newBalance),
	)
	return nil
}

// nullable maps an empty string to SQL NULL for optional foreign keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
