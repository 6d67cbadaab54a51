package service

import (
	"context"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/port"
	"github.com/lmoreira/fintrack-api/internal/split"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================================
// Transactions
// ============================================================

// TransactionInput is the caller-supplied part of a transaction.
type TransactionInput struct {
	AccountID  string         `json:"account_id"`
	Type       string         `json:"type"` // income, expense
	Amount     float64        `json:"amount"`
	Date       string         `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	Payee      string         `json:"payee,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	CategoryID string         `json:"category_id,omitempty"`
	Splits     []domain.Share `json:"splits,omitempty"`
}

func (s *LedgerService) ListTransactions(ctx context.Context, ownerID, ledgerID string, filter port.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListTransactions")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, ledgerID, filter)
}

func (s *LedgerService) GetTransaction(ctx context.Context, ownerID, ledgerID, transactionID string) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetTransaction")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	return s.store.GetTransaction(ctx, ledgerID, transactionID)
}

func (s *LedgerService) CreateTransaction(ctx context.Context, ownerID, ledgerID string, in *TransactionInput) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateTransaction")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_transaction", time.Since(start)) }()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	if in.Type != domain.TransactionTypeIncome && in.Type != domain.TransactionTypeExpense {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be income or expense"}
	}
	if in.Amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if in.AccountID == "" {
		return nil, &domain.ErrValidation{Field: "account_id", Message: "required"}
	}
	if in.CategoryID != "" && len(in.Splits) > 0 {
		return nil, &domain.ErrValidation{Field: "category_id", Message: "use either a single category or splits, not both"}
	}

	account, err := s.store.GetAccount(ctx, ledgerID, in.AccountID)
	if err != nil {
		return nil, err
	}
	if account.IsGroup {
		return nil, &domain.ErrValidation{Field: "account_id", Message: "cannot post to a group account"}
	}
	if account.Archived {
		return nil, &domain.ErrValidation{Field: "account_id", Message: "account is archived"}
	}

	if in.CategoryID != "" {
		if err := s.requireLeafCategory(ctx, ledgerID, in.CategoryID, in.Type); err != nil {
			return nil, err
		}
	}

	// A submitted split must balance exactly; the preview endpoint exists
	// so the frontend never has to send one that doesn't.
	if len(in.Splits) > 0 {
		if remaining := split.RemainingAmount(in.Splits, in.Amount); remaining != 0 {
			return nil, &domain.ErrUnbalancedSplit{Total: in.Amount, Allocated: in.Amount - remaining}
		}
		for _, share := range in.Splits {
			if share.CategoryID == "" {
				return nil, &domain.ErrValidation{Field: "splits", Message: "every share needs a category"}
			}
			if share.Amount < 0 {
				return nil, &domain.ErrValidation{Field: "splits", Message: "share amounts cannot be negative"}
			}
			if err := s.requireLeafCategory(ctx, ledgerID, share.CategoryID, in.Type); err != nil {
				return nil, err
			}
		}
	}

	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:         uuid.NewString(),
		LedgerID:   ledgerID,
		AccountID:  in.AccountID,
		Type:       in.Type,
		Amount:     in.Amount,
		Date:       date,
		Payee:      in.Payee,
		Notes:      in.Notes,
		CategoryID: in.CategoryID,
		Splits:     in.Splits,
		CreatedAt:  time.Now().UTC(),
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		s.metrics.IncrRequest("error")
		s.logger.Error("failed to create transaction", zap.String("ledger_id", ledgerID), zap.Error(err))
		return nil, err
	}
	s.metrics.IncrRequest("success")

	s.applyBalances(ctx, created, 1)
	s.invalidateLedgerCaches(ledgerID)

	s.logger.Info("transaction created",
		zap.String("ledger_id", ledgerID),
		zap.String("transaction_id", created.ID),
		zap.String("type", created.Type),
		zap.Float64("amount", created.Amount),
		zap.Int("splits", len(created.Splits)),
	)
	return created, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, ownerID, ledgerID, transactionID string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteTransaction")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return err
	}
	tx, err := s.store.GetTransaction(ctx, ledgerID, transactionID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteTransaction(ctx, ledgerID, transactionID); err != nil {
		return err
	}
	s.applyBalances(ctx, tx, -1)

	// A transfer leg takes its peer with it, balances included.
	if tx.TransferPeerID != "" {
		peer, peerErr := s.store.GetTransaction(ctx, ledgerID, tx.TransferPeerID)
		if peerErr == nil {
			if delErr := s.store.DeleteTransaction(ctx, ledgerID, peer.ID); delErr == nil {
				s.applyBalances(ctx, peer, -1)
			} else {
				s.logger.Error("failed to delete transfer peer",
					zap.String("transaction_id", transactionID),
					zap.String("peer_id", peer.ID),
					zap.Error(delErr),
				)
			}
		}
	}

	s.invalidateLedgerCaches(ledgerID)
	s.logger.Info("transaction deleted",
		zap.String("ledger_id", ledgerID),
		zap.String("transaction_id", transactionID),
	)
	return nil
}

// ============================================================
// Transfers
// ============================================================

// CreateTransfer moves an amount between two accounts of the same ledger
// by writing a pair of transfer transactions linked through
// TransferPeerID.
func (s *LedgerService) CreateTransfer(ctx context.Context, ownerID, ledgerID string, req *domain.TransferRequest) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateTransfer")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_transfer", time.Since(start)) }()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if req.FromAccountID == "" || req.ToAccountID == "" {
		return nil, &domain.ErrValidation{Field: "from_account_id", Message: "both accounts are required"}
	}
	if req.FromAccountID == req.ToAccountID {
		return nil, &domain.ErrValidation{Field: "to_account_id", Message: "cannot transfer to the same account"}
	}

	from, err := s.store.GetAccount(ctx, ledgerID, req.FromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := s.store.GetAccount(ctx, ledgerID, req.ToAccountID)
	if err != nil {
		return nil, err
	}
	for _, acc := range []*domain.Account{from, to} {
		if acc.IsGroup {
			return nil, &domain.ErrValidation{Field: "account_id", Message: "cannot transfer through a group account"}
		}
		if acc.Archived {
			return nil, &domain.ErrValidation{Field: "account_id", Message: "account is archived"}
		}
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	// Transfer legs carry signed amounts: negative on the outgoing leg,
	// positive on the incoming one. That lets applyBalances treat them
	// uniformly on create and delete.
	now := time.Now().UTC()
	outLeg := &domain.Transaction{
		ID:        uuid.NewString(),
		LedgerID:  ledgerID,
		AccountID: from.ID,
		Type:      domain.TransactionTypeTransfer,
		Amount:    -req.Amount,
		Date:      date,
		Payee:     "Transfer to " + to.Name,
		Notes:     req.Notes,
		CreatedAt: now,
	}
	inLeg := &domain.Transaction{
		ID:        uuid.NewString(),
		LedgerID:  ledgerID,
		AccountID: to.ID,
		Type:      domain.TransactionTypeTransfer,
		Amount:    req.Amount,
		Date:      date,
		Payee:     "Transfer from " + from.Name,
		Notes:     req.Notes,
		CreatedAt: now,
	}
	outLeg.TransferPeerID = inLeg.ID
	inLeg.TransferPeerID = outLeg.ID

	createdOut, err := s.store.CreateTransaction(ctx, outLeg)
	if err != nil {
		s.metrics.IncrRequest("error")
		s.logger.Error("failed to create transfer out leg", zap.String("ledger_id", ledgerID), zap.Error(err))
		return nil, err
	}
	createdIn, err := s.store.CreateTransaction(ctx, inLeg)
	if err != nil {
		// Unwind the half-written transfer.
		if delErr := s.store.DeleteTransaction(ctx, ledgerID, createdOut.ID); delErr != nil {
			s.logger.Error("failed to unwind transfer out leg",
				zap.String("transaction_id", createdOut.ID), zap.Error(delErr))
		}
		s.metrics.IncrRequest("error")
		return nil, err
	}
	s.metrics.IncrRequest("success")

	s.applyBalances(ctx, createdOut, 1)
	s.applyBalances(ctx, createdIn, 1)

	s.invalidateLedgerCaches(ledgerID)
	s.logger.Info("transfer completed",
		zap.String("ledger_id", ledgerID),
		zap.String("from_account_id", from.ID),
		zap.String("to_account_id", to.ID),
		zap.Float64("amount", req.Amount),
	)
	return []domain.Transaction{*createdOut, *createdIn}, nil
}

// ============================================================
// Split preview
// ============================================================

// PreviewSplit applies one split-form edit and returns the rebalanced
// share list. Pure computation, no storage involved.
func (s *LedgerService) PreviewSplit(ctx context.Context, req *domain.SplitPreviewRequest) (*domain.SplitPreviewResponse, error) {
	_, span := ledgerTracer.Start(ctx, "LedgerService.PreviewSplit")
	defer span.End()

	var shares []domain.Share
	switch req.Op {
	case domain.SplitOpSeed:
		shares = split.Seed(req.Total)
	case domain.SplitOpSet:
		if req.Index < 0 || req.Index >= len(req.Shares) {
			return nil, &domain.ErrValidation{Field: "index", Message: "out of range"}
		}
		shares = split.SetShareAmount(req.Shares, req.Index, req.Value, req.Total)
	case domain.SplitOpAdd:
		shares = split.AddShare(req.Shares, split.RemainingAmount(req.Shares, req.Total))
	case domain.SplitOpRemove:
		if req.Index < 0 || req.Index >= len(req.Shares) {
			return nil, &domain.ErrValidation{Field: "index", Message: "out of range"}
		}
		shares = split.RemoveShare(req.Shares, req.Index)
	default:
		return nil, &domain.ErrValidation{Field: "op", Message: "must be seed, set, add or remove"}
	}

	remaining := split.RemainingAmount(shares, req.Total)
	return &domain.SplitPreviewResponse{
		Shares:    shares,
		Remaining: remaining,
		Balanced:  remaining == 0,
	}, nil
}

// ============================================================
// Internal helpers
// ============================================================

// applyBalances posts a transaction's effect onto account and category
// running balances. direction is +1 on create, -1 on delete.
//
// Sign convention: income raises the account and its categories, expense
// lowers both. Expense categories therefore accumulate negative balances,
// which is what the tree's tone policy expects. Transfer legs already
// carry their sign in Amount and touch no category.
func (s *LedgerService) applyBalances(ctx context.Context, tx *domain.Transaction, direction float64) {
	signed := tx.Amount * direction
	if tx.Type == domain.TransactionTypeExpense {
		signed = -signed
	}
	if tx.Type == domain.TransactionTypeTransfer {
		if err := s.store.AdjustAccountBalance(ctx, tx.AccountID, signed); err != nil {
			s.metrics.IncrStoreError("balance")
			s.logger.Error("failed to adjust transfer account balance",
				zap.String("account_id", tx.AccountID), zap.Error(err))
		}
		return
	}

	if err := s.store.AdjustAccountBalance(ctx, tx.AccountID, signed); err != nil {
		s.metrics.IncrStoreError("balance")
		s.logger.Error("failed to adjust account balance",
			zap.String("account_id", tx.AccountID), zap.Error(err))
	}

	if len(tx.Splits) > 0 {
		for _, share := range tx.Splits {
			shareSigned := share.Amount * direction
			if tx.Type == domain.TransactionTypeExpense {
				shareSigned = -shareSigned
			}
			if err := s.store.AdjustCategoryBalance(ctx, share.CategoryID, shareSigned); err != nil {
				s.metrics.IncrStoreError("balance")
				s.logger.Error("failed to adjust split category balance",
					zap.String("category_id", share.CategoryID), zap.Error(err))
			}
		}
		return
	}
	if tx.CategoryID != "" {
		if err := s.store.AdjustCategoryBalance(ctx, tx.CategoryID, signed); err != nil {
			s.metrics.IncrStoreError("balance")
			s.logger.Error("failed to adjust category balance",
				zap.String("category_id", tx.CategoryID), zap.Error(err))
		}
	}
}

// requireLeafCategory checks the category exists, is a leaf, and matches
// the transaction type (income transactions go to income categories).
func (s *LedgerService) requireLeafCategory(ctx context.Context, ledgerID, categoryID, txType string) error {
	category, err := s.store.GetCategory(ctx, ledgerID, categoryID)
	if err != nil {
		return err
	}
	if category.IsGroup {
		return &domain.ErrValidation{Field: "category_id", Message: "cannot post to a group category"}
	}
	if category.Type != txType {
		return &domain.ErrValidation{Field: "category_id", Message: "category type must match transaction type"}
	}
	return nil
}

// parseDate parses a YYYY-MM-DD form date, defaulting to today.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, &domain.ErrValidation{Field: "date", Message: "invalid format, use YYYY-MM-DD"}
	}
	return date, nil
}
