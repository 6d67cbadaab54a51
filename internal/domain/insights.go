package domain

// ============================================================
// Insights
// ============================================================

// PeriodSummary aggregates a ledger's transactions over a date range.
type PeriodSummary struct {
	LedgerID         string  `json:"ledger_id"`
	From             string  `json:"from"` // YYYY-MM-DD
	To               string  `json:"to"`
	TotalIncome      float64 `json:"total_income"`
	TotalExpenses    float64 `json:"total_expenses"`
	NetCashflow      float64 `json:"net_cashflow"`
	TransactionCount int     `json:"transaction_count"`
	IncomeCount      int     `json:"income_count"`
	ExpenseCount     int     `json:"expense_count"`
	LargestIncome    float64 `json:"largest_income"`
	LargestExpense   float64 `json:"largest_expense"`
}

// CategoryInsight is one row of the per-category breakdown: a category
// node with its rolled-up total (group categories sum their descendants).
type CategoryInsight struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	IsGroup    bool    `json:"is_group"`
	Level      int     `json:"level"`
	Total      float64 `json:"total"`
	Tone       string  `json:"tone"`
}
