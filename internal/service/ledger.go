// Package service provides the business logic layer (use cases).
// LedgerService orchestrates ledgers, accounts, categories, transactions
// and the rendered balance trees.
package service

import (
	"context"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/infra/observability"
	"github.com/lmoreira/fintrack-api/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerService orchestrates all ledger operations via the configured store.
type LedgerService struct {
	store         port.LedgerStore
	accountCache  port.Cache[[]domain.Account]
	categoryCache port.Cache[[]domain.Category]
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(
	store port.LedgerStore,
	accountCache port.Cache[[]domain.Account],
	categoryCache port.Cache[[]domain.Category],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		store:         store,
		accountCache:  accountCache,
		categoryCache: categoryCache,
		metrics:       metrics,
		logger:        logger,
	}
}

// ============================================================
// Ledgers
// ============================================================

func (s *LedgerService) ListLedgers(ctx context.Context, ownerID string) ([]domain.Ledger, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListLedgers")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	return s.store.ListLedgers(ctx, ownerID)
}

func (s *LedgerService) GetLedger(ctx context.Context, ownerID, ledgerID string) (*domain.Ledger, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetLedger")
	defer span.End()

	return s.store.GetLedger(ctx, ownerID, ledgerID)
}

func (s *LedgerService) CreateLedger(ctx context.Context, ownerID, name, currency string) (*domain.Ledger, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateLedger")
	defer span.End()

	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if currency == "" {
		currency = "EUR"
	}

	ledger := &domain.Ledger{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Currency:  currency,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.store.CreateLedger(ctx, ledger)
	if err != nil {
		s.logger.Error("failed to create ledger", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("ledger created",
		zap.String("owner_id", ownerID),
		zap.String("ledger_id", created.ID),
	)
	return created, nil
}

func (s *LedgerService) UpdateLedger(ctx context.Context, ownerID, ledgerID, name, currency string) (*domain.Ledger, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateLedger")
	defer span.End()

	ledger, err := s.store.GetLedger(ctx, ownerID, ledgerID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		ledger.Name = name
	}
	if currency != "" {
		ledger.Currency = currency
	}

	return s.store.UpdateLedger(ctx, ledger)
}

func (s *LedgerService) DeleteLedger(ctx context.Context, ownerID, ledgerID string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteLedger")
	defer span.End()

	// Ownership check before the delete hits the store.
	if _, err := s.store.GetLedger(ctx, ownerID, ledgerID); err != nil {
		return err
	}

	if err := s.store.DeleteLedger(ctx, ownerID, ledgerID); err != nil {
		return err
	}

	s.invalidateLedgerCaches(ledgerID)
	s.logger.Info("ledger deleted",
		zap.String("owner_id", ownerID),
		zap.String("ledger_id", ledgerID),
	)
	return nil
}

// requireLedger verifies the ledger exists and belongs to the caller.
// Every nested resource operation goes through it.
func (s *LedgerService) requireLedger(ctx context.Context, ownerID, ledgerID string) error {
	_, err := s.store.GetLedger(ctx, ownerID, ledgerID)
	return err
}

// invalidateLedgerCaches drops the cached account and category lists for
// a ledger after any write that can change a tree.
func (s *LedgerService) invalidateLedgerCaches(ledgerID string) {
	s.accountCache.Delete(accountCacheKey(ledgerID))
	s.categoryCache.Delete(categoryCacheKey(ledgerID))
}

func accountCacheKey(ledgerID string) string  { return "accounts:" + ledgerID }
func categoryCacheKey(ledgerID string) string { return "categories:" + ledgerID }
