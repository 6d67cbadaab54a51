package service

import (
	"context"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/hierarchy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================================
// Accounts
// ============================================================

// AccountInput is the caller-supplied part of an account.
type AccountInput struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"` // asset, liability
	IsGroup  bool    `json:"is_group"`
	ParentID string  `json:"parent_id,omitempty"`
	Balance  float64 `json:"balance,omitempty"` // opening balance, leaves only
}

func (s *LedgerService) ListAccounts(ctx context.Context, ownerID, ledgerID string) ([]domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListAccounts")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	return s.loadAccounts(ctx, ledgerID)
}

func (s *LedgerService) GetAccount(ctx context.Context, ownerID, ledgerID, accountID string) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetAccount")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	return s.store.GetAccount(ctx, ledgerID, accountID)
}

func (s *LedgerService) CreateAccount(ctx context.Context, ownerID, ledgerID string, in *AccountInput) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateAccount")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if in.Type != domain.AccountTypeAsset && in.Type != domain.AccountTypeLiability {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be asset or liability"}
	}
	if in.IsGroup && in.Balance != 0 {
		return nil, &domain.ErrValidation{Field: "balance", Message: "group accounts hold no balance of their own"}
	}
	if in.ParentID != "" {
		if err := s.validateAccountParent(ctx, ledgerID, in.ParentID, in.Type, ""); err != nil {
			return nil, err
		}
	}

	account := &domain.Account{
		ID:         uuid.NewString(),
		LedgerID:   ledgerID,
		Name:       in.Name,
		Type:       in.Type,
		IsGroup:    in.IsGroup,
		ParentID:   in.ParentID,
		NetBalance: in.Balance,
		CreatedAt:  time.Now().UTC(),
	}

	created, err := s.store.CreateAccount(ctx, account)
	if err != nil {
		s.logger.Error("failed to create account", zap.String("ledger_id", ledgerID), zap.Error(err))
		return nil, err
	}

	s.invalidateLedgerCaches(ledgerID)
	s.logger.Info("account created",
		zap.String("ledger_id", ledgerID),
		zap.String("account_id", created.ID),
		zap.Bool("is_group", created.IsGroup),
	)
	return created, nil
}

// AccountUpdate carries the mutable account fields. Type and IsGroup are
// fixed at creation: changing them would silently re-sign or orphan the
// balances underneath.
type AccountUpdate struct {
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
	Archived *bool   `json:"archived,omitempty"`
}

func (s *LedgerService) UpdateAccount(ctx context.Context, ownerID, ledgerID, accountID string, upd *AccountUpdate) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateAccount")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	account, err := s.store.GetAccount(ctx, ledgerID, accountID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, &domain.ErrValidation{Field: "name", Message: "required"}
		}
		account.Name = *upd.Name
	}
	if upd.ParentID != nil {
		if *upd.ParentID != "" {
			if err := s.validateAccountParent(ctx, ledgerID, *upd.ParentID, account.Type, accountID); err != nil {
				return nil, err
			}
		}
		account.ParentID = *upd.ParentID
	}
	if upd.Archived != nil {
		account.Archived = *upd.Archived
	}

	updated, err := s.store.UpdateAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	s.invalidateLedgerCaches(ledgerID)
	return updated, nil
}

func (s *LedgerService) DeleteAccount(ctx context.Context, ownerID, ledgerID, accountID string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteAccount")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return err
	}
	if _, err := s.store.GetAccount(ctx, ledgerID, accountID); err != nil {
		return err
	}

	accounts, err := s.loadAccounts(ctx, ledgerID)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if a.ParentID == accountID {
			return &domain.ErrConflict{Message: "account has children; move or delete them first"}
		}
	}

	if err := s.store.DeleteAccount(ctx, ledgerID, accountID); err != nil {
		return err
	}
	s.invalidateLedgerCaches(ledgerID)
	s.logger.Info("account deleted",
		zap.String("ledger_id", ledgerID),
		zap.String("account_id", accountID),
	)
	return nil
}

// AccountTree renders the ledger's account forest as indented rows with
// computed group balances and display tones.
func (s *LedgerService) AccountTree(ctx context.Context, ownerID, ledgerID string, showZero bool) ([]domain.AccountTreeRow, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.AccountTree")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	accounts, err := s.loadAccounts(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	rendered, err := hierarchy.RenderTree(accounts, "", showZero)
	if err != nil {
		s.logger.Error("account tree render failed", zap.String("ledger_id", ledgerID), zap.Error(err))
		return nil, err
	}

	rows := make([]domain.AccountTreeRow, 0, len(rendered))
	for _, r := range rendered {
		rows = append(rows, domain.AccountTreeRow{
			Account: r.Node,
			Balance: r.Balance,
			Level:   r.Level,
			Tone:    string(hierarchy.ToneFor(r.Balance, r.Node.Type, r.Node.IsGroup)),
		})
	}
	return rows, nil
}

// loadAccounts returns the ledger's account list, cache-first.
func (s *LedgerService) loadAccounts(ctx context.Context, ledgerID string) ([]domain.Account, error) {
	key := accountCacheKey(ledgerID)
	if cached, ok := s.accountCache.Get(key); ok {
		s.metrics.IncrCacheHit("tree")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("tree")

	accounts, err := s.store.ListAccounts(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	s.accountCache.Set(key, accounts)
	return accounts, nil
}

// validateAccountParent enforces the forest invariants on a (re)parent:
// the parent must exist in the same ledger, be a group, share the child's
// type, and not sit below the child itself.
func (s *LedgerService) validateAccountParent(ctx context.Context, ledgerID, parentID, childType, childID string) error {
	parent, err := s.store.GetAccount(ctx, ledgerID, parentID)
	if err != nil {
		return err
	}
	if !parent.IsGroup {
		return &domain.ErrValidation{Field: "parent_id", Message: "parent must be a group account"}
	}
	if parent.Type != childType {
		return &domain.ErrValidation{Field: "parent_id", Message: "parent type must match"}
	}
	if childID == "" {
		return nil
	}

	// Walk up from the new parent; finding the child means the reparent
	// would close a loop.
	accounts, err := s.loadAccounts(ctx, ledgerID)
	if err != nil {
		return err
	}
	byID := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	for cur := parentID; cur != ""; {
		if cur == childID {
			return &domain.ErrValidation{Field: "parent_id", Message: "would create a cycle"}
		}
		node, ok := byID[cur]
		if !ok {
			break
		}
		cur = node.ParentID
	}
	return nil
}
