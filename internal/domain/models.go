// Package domain defines the core business entities for fintrack.
// These models are independent of storage and transport and represent
// the canonical data structures used throughout the API.
package domain

import "time"

// ============================================================
// Ledgers
// ============================================================

// Ledger is the top-level container: one book of accounts, categories
// and transactions, owned by a single user.
type Ledger struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// ============================================================
// Accounts
// ============================================================

// Account types.
const (
	AccountTypeAsset     = "asset"
	AccountTypeLiability = "liability"
)

// Account is one node in a ledger's account forest. Group accounts are
// containers: they hold no balance of their own, their displayed balance
// is the recursive sum of their descendants.
type Account struct {
	ID         string    `json:"id"`
	LedgerID   string    `json:"ledger_id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"` // asset, liability
	IsGroup    bool      `json:"is_group"`
	ParentID   string    `json:"parent_id,omitempty"`
	NetBalance float64   `json:"net_balance"`
	Archived   bool      `json:"archived"`
	CreatedAt  time.Time `json:"created_at"`
}

// ============================================================
// Categories
// ============================================================

// Category types.
const (
	CategoryTypeIncome  = "income"
	CategoryTypeExpense = "expense"
)

// Category mirrors Account in shape: a parent-indexed forest where group
// nodes derive their balance from their children.
type Category struct {
	ID        string    `json:"id"`
	LedgerID  string    `json:"ledger_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"` // income, expense
	IsGroup   bool      `json:"is_group"`
	ParentID  string    `json:"parent_id,omitempty"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// ============================================================
// Transactions
// ============================================================

// Transaction types.
const (
	TransactionTypeIncome   = "income"
	TransactionTypeExpense  = "expense"
	TransactionTypeTransfer = "transfer"
)

// Share is one line item of a transaction split across multiple
// categories, each with its own amount.
type Share struct {
	Amount     float64 `json:"amount"`
	CategoryID string  `json:"category_id,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

// Transaction is a single ledger entry. When Splits is non-empty the
// transaction amount is divided across categories; otherwise CategoryID
// applies to the full amount. Transfer legs store a signed Amount:
// negative on the outgoing leg, positive on the incoming one.
type Transaction struct {
	ID         string    `json:"id"`
	LedgerID   string    `json:"ledger_id"`
	AccountID  string    `json:"account_id"`
	Type       string    `json:"type"` // income, expense, transfer
	Amount     float64   `json:"amount"`
	Date       time.Time `json:"date"`
	Payee      string    `json:"payee,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CategoryID string    `json:"category_id,omitempty"`
	// TransferPeerID links the two legs of a transfer.
	TransferPeerID string    `json:"transfer_peer_id,omitempty"`
	Splits         []Share   `json:"splits,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TransferRequest moves an amount between two accounts of the same ledger.
type TransferRequest struct {
	FromAccountID string  `json:"from_account_id"`
	ToAccountID   string  `json:"to_account_id"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	Notes         string  `json:"notes,omitempty"`
}

// ============================================================
// Health
// ============================================================

// ServiceHealth reports the status of one dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // healthy, degraded, unhealthy
	LatencyMs   int64  `json:"latency_ms"`
	LastChecked string `json:"last_checked"`
}

// HealthStatus is the aggregate health response.
type HealthStatus struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
}
