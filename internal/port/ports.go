// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	Types      []string
	CategoryID string
	AccountID  string
	From       time.Time
	To         time.Time
	Limit      int
}

// LedgerStore defines all data operations for ledgers, accounts,
// categories and transactions. Implemented by the PostgREST adapter and
// the direct Postgres adapter.
type LedgerStore interface {
	// Ledgers
	ListLedgers(ctx context.Context, ownerID string) ([]domain.Ledger, error)
	GetLedger(ctx context.Context, ownerID, ledgerID string) (*domain.Ledger, error)
	CreateLedger(ctx context.Context, ledger *domain.Ledger) (*domain.Ledger, error)
	UpdateLedger(ctx context.Context, ledger *domain.Ledger) (*domain.Ledger, error)
	DeleteLedger(ctx context.Context, ownerID, ledgerID string) error

	// Accounts
	ListAccounts(ctx context.Context, ledgerID string) ([]domain.Account, error)
	GetAccount(ctx context.Context, ledgerID, accountID string) (*domain.Account, error)
	CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)
	UpdateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)
	DeleteAccount(ctx context.Context, ledgerID, accountID string) error
	AdjustAccountBalance(ctx context.Context, accountID string, delta float64) error

	// Categories
	ListCategories(ctx context.Context, ledgerID string) ([]domain.Category, error)
	GetCategory(ctx context.Context, ledgerID, categoryID string) (*domain.Category, error)
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, ledgerID, categoryID string) error
	AdjustCategoryBalance(ctx context.Context, categoryID string, delta float64) error

	// Transactions
	ListTransactions(ctx context.Context, ledgerID string, filter TransactionFilter) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, ledgerID, transactionID string) (*domain.Transaction, error)
	CreateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, ledgerID, transactionID string) error
}

// AuthStore defines data operations for users, credentials and refresh
// tokens.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)

	GetCredentials(ctx context.Context, userID string) (*domain.AuthCredential, error)
	CreateCredentials(ctx context.Context, userID, passwordHash string) error
	UpdateCredentials(ctx context.Context, userID string, updates map[string]any) error

	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}
