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
// Categories
// ============================================================

// CategoryInput is the caller-supplied part of a category.
type CategoryInput struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // income, expense
	IsGroup  bool   `json:"is_group"`
	ParentID string `json:"parent_id,omitempty"`
}

func (s *LedgerService) ListCategories(ctx context.Context, ownerID, ledgerID string) ([]domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListCategories")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	return s.loadCategories(ctx, ledgerID)
}

func (s *LedgerService) GetCategory(ctx context.Context, ownerID, ledgerID, categoryID string) (*domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetCategory")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	return s.store.GetCategory(ctx, ledgerID, categoryID)
}

func (s *LedgerService) CreateCategory(ctx context.Context, ownerID, ledgerID string, in *CategoryInput) (*domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateCategory")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if in.Type != domain.CategoryTypeIncome && in.Type != domain.CategoryTypeExpense {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be income or expense"}
	}
	if in.ParentID != "" {
		if err := s.validateCategoryParent(ctx, ledgerID, in.ParentID, in.Type, ""); err != nil {
			return nil, err
		}
	}

	category := &domain.Category{
		ID:        uuid.NewString(),
		LedgerID:  ledgerID,
		Name:      in.Name,
		Type:      in.Type,
		IsGroup:   in.IsGroup,
		ParentID:  in.ParentID,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.store.CreateCategory(ctx, category)
	if err != nil {
		s.logger.Error("failed to create category", zap.String("ledger_id", ledgerID), zap.Error(err))
		return nil, err
	}

	s.invalidateLedgerCaches(ledgerID)
	s.logger.Info("category created",
		zap.String("ledger_id", ledgerID),
		zap.String("category_id", created.ID),
		zap.Bool("is_group", created.IsGroup),
	)
	return created, nil
}

// CategoryUpdate carries the mutable category fields.
type CategoryUpdate struct {
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
}

func (s *LedgerService) UpdateCategory(ctx context.Context, ownerID, ledgerID, categoryID string, upd *CategoryUpdate) (*domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateCategory")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	category, err := s.store.GetCategory(ctx, ledgerID, categoryID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, &domain.ErrValidation{Field: "name", Message: "required"}
		}
		category.Name = *upd.Name
	}
	if upd.ParentID != nil {
		if *upd.ParentID != "" {
			if err := s.validateCategoryParent(ctx, ledgerID, *upd.ParentID, category.Type, categoryID); err != nil {
				return nil, err
			}
		}
		category.ParentID = *upd.ParentID
	}

	updated, err := s.store.UpdateCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	s.invalidateLedgerCaches(ledgerID)
	return updated, nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, ownerID, ledgerID, categoryID string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteCategory")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return err
	}
	if _, err := s.store.GetCategory(ctx, ledgerID, categoryID); err != nil {
		return err
	}

	categories, err := s.loadCategories(ctx, ledgerID)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if c.ParentID == categoryID {
			return &domain.ErrConflict{Message: "category has children; move or delete them first"}
		}
	}

	if err := s.store.DeleteCategory(ctx, ledgerID, categoryID); err != nil {
		return err
	}
	s.invalidateLedgerCaches(ledgerID)
	s.logger.Info("category deleted",
		zap.String("ledger_id", ledgerID),
		zap.String("category_id", categoryID),
	)
	return nil
}

// CategoryTree renders the ledger's category forest as indented rows with
// computed group balances and display tones.
func (s *LedgerService) CategoryTree(ctx context.Context, ownerID, ledgerID string, showZero bool) ([]domain.CategoryTreeRow, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CategoryTree")
	defer span.End()

	if err := s.requireLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	categories, err := s.loadCategories(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	rendered, err := hierarchy.RenderTree(categories, "", showZero)
	if err != nil {
		s.logger.Error("category tree render failed", zap.String("ledger_id", ledgerID), zap.Error(err))
		return nil, err
	}

	rows := make([]domain.CategoryTreeRow, 0, len(rendered))
	for _, r := range rendered {
		rows = append(rows, domain.CategoryTreeRow{
			Category: r.Node,
			Balance:  r.Balance,
			Level:    r.Level,
			Tone:     string(hierarchy.ToneFor(r.Balance, r.Node.Type, r.Node.IsGroup)),
		})
	}
	return rows, nil
}

// loadCategories returns the ledger's category list, cache-first.
func (s *LedgerService) loadCategories(ctx context.Context, ledgerID string) ([]domain.Category, error) {
	key := categoryCacheKey(ledgerID)
	if cached, ok := s.categoryCache.Get(key); ok {
		s.metrics.IncrCacheHit("tree")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("tree")

	categories, err := s.store.ListCategories(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	s.categoryCache.Set(key, categories)
	return categories, nil
}

func (s *LedgerService) validateCategoryParent(ctx context.Context, ledgerID, parentID, childType, childID string) error {
	parent, err := s.store.GetCategory(ctx, ledgerID, parentID)
	if err != nil {
		return err
	}
	if !parent.IsGroup {
		return &domain.ErrValidation{Field: "parent_id", Message: "parent must be a group category"}
	}
	if parent.Type != childType {
		return &domain.ErrValidation{Field: "parent_id", Message: "parent type must match"}
	}
	if childID == "" {
		return nil
	}

	categories, err := s.loadCategories(ctx, ledgerID)
	if err != nil {
		return err
	}
	byID := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
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
