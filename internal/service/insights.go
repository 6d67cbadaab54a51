package service

import (
	"context"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/hierarchy"
	"github.com/lmoreira/fintrack-api/internal/infra/observability"
	"github.com/lmoreira/fintrack-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var insightsTracer = otel.Tracer("service/insights")

// InsightsService aggregates transactions into period summaries and
// per-category breakdowns.
type InsightsService struct {
	store   port.LedgerStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewInsightsService creates a new insights service.
func NewInsightsService(store port.LedgerStore, metrics *observability.Metrics, logger *zap.Logger) *InsightsService {
	return &InsightsService{store: store, metrics: metrics, logger: logger}
}

// PeriodSummary totals a ledger's income and expenses over a date range.
// Transfer legs move money between accounts without changing the net
// position, so they are excluded.
func (s *InsightsService) PeriodSummary(ctx context.Context, ownerID, ledgerID, from, to string) (*domain.PeriodSummary, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.PeriodSummary")
	defer span.End()
	span.SetAttributes(attribute.String("ledger.id", ledgerID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("insights_summary", time.Since(start)) }()

	if _, err := s.store.GetLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	fromDate, toDate, err := resolvePeriod(from, to)
	if err != nil {
		return nil, err
	}

	txs, err := s.store.ListTransactions(ctx, ledgerID, port.TransactionFilter{
		Types: []string{domain.TransactionTypeIncome, domain.TransactionTypeExpense},
		From:  fromDate,
		To:    toDate,
	})
	if err != nil {
		return nil, err
	}

	summary := &domain.PeriodSummary{
		LedgerID: ledgerID,
		From:     fromDate.Format("2006-01-02"),
		To:       toDate.Format("2006-01-02"),
	}
	for _, tx := range txs {
		summary.TransactionCount++
		switch tx.Type {
		case domain.TransactionTypeIncome:
			summary.IncomeCount++
			summary.TotalIncome += tx.Amount
			if tx.Amount > summary.LargestIncome {
				summary.LargestIncome = tx.Amount
			}
		case domain.TransactionTypeExpense:
			summary.ExpenseCount++
			summary.TotalExpenses += tx.Amount
			if tx.Amount > summary.LargestExpense {
				summary.LargestExpense = tx.Amount
			}
		}
	}
	summary.NetCashflow = summary.TotalIncome - summary.TotalExpenses

	return summary, nil
}

// CategoryInsights renders the per-category breakdown for a period:
// leaf categories carry the period's signed totals, group categories roll
// up their descendants. Categories and transactions load concurrently.
func (s *InsightsService) CategoryInsights(ctx context.Context, ownerID, ledgerID, from, to string) ([]domain.CategoryInsight, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.CategoryInsights")
	defer span.End()
	span.SetAttributes(attribute.String("ledger.id", ledgerID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("insights_categories", time.Since(start)) }()

	if _, err := s.store.GetLedger(ctx, ownerID, ledgerID); err != nil {
		return nil, err
	}
	fromDate, toDate, err := resolvePeriod(from, to)
	if err != nil {
		return nil, err
	}

	var (
		categories []domain.Category
		txs        []domain.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.store.ListCategories(gctx, ledgerID)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx, ledgerID, port.TransactionFilter{
			Types: []string{domain.TransactionTypeIncome, domain.TransactionTypeExpense},
			From:  fromDate,
			To:    toDate,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Period totals per leaf category: income positive, expense negative,
	// matching the running-balance sign convention.
	totals := make(map[string]float64)
	for _, tx := range txs {
		signed := tx.Amount
		if tx.Type == domain.TransactionTypeExpense {
			signed = -signed
		}
		if len(tx.Splits) > 0 {
			for _, share := range tx.Splits {
				shareSigned := share.Amount
				if tx.Type == domain.TransactionTypeExpense {
					shareSigned = -shareSigned
				}
				totals[share.CategoryID] += shareSigned
			}
			continue
		}
		if tx.CategoryID != "" {
			totals[tx.CategoryID] += signed
		}
	}

	// Overlay the period totals on the forest, then let the aggregator
	// roll groups up exactly like the main category tree.
	overlay := make([]domain.Category, len(categories))
	for i, c := range categories {
		c.Balance = totals[c.ID]
		overlay[i] = c
	}

	rendered, err := hierarchy.RenderTree(overlay, "", true)
	if err != nil {
		s.logger.Error("category insights render failed", zap.String("ledger_id", ledgerID), zap.Error(err))
		return nil, err
	}

	insights := make([]domain.CategoryInsight, 0, len(rendered))
	for _, r := range rendered {
		insights = append(insights, domain.CategoryInsight{
			CategoryID: r.Node.ID,
			Name:       r.Node.Name,
			Type:       r.Node.Type,
			IsGroup:    r.Node.IsGroup,
			Level:      r.Level,
			Total:      r.Balance,
			Tone:       string(hierarchy.ToneFor(r.Balance, r.Node.Type, r.Node.IsGroup)),
		})
	}
	return insights, nil
}

// resolvePeriod parses optional YYYY-MM-DD bounds, defaulting to the
// last 30 days ending today.
func resolvePeriod(from, to string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	toDate := now
	fromDate := now.AddDate(0, 0, -30)

	var err error
	if from != "" {
		fromDate, err = time.Parse("2006-01-02", from)
		if err != nil {
			return time.Time{}, time.Time{}, &domain.ErrValidation{Field: "from", Message: "invalid format, use YYYY-MM-DD"}
		}
	}
	if to != "" {
		toDate, err = time.Parse("2006-01-02", to)
		if err != nil {
			return time.Time{}, time.Time{}, &domain.ErrValidation{Field: "to", Message: "invalid format, use YYYY-MM-DD"}
		}
		// Make the upper bound inclusive of the whole day.
		toDate = toDate.Add(24*time.Hour - time.Second)
	}
	if toDate.Before(fromDate) {
		return time.Time{}, time.Time{}, &domain.ErrValidation{Field: "to", Message: "must not be before from"}
	}
	return fromDate, toDate, nil
}
