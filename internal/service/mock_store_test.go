package service_test

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/infra/cache"
	"github.com/lmoreira/fintrack-api/internal/infra/observability"
	"github.com/lmoreira/fintrack-api/internal/port"
	"github.com/lmoreira/fintrack-api/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mockStore is an in-memory implementation of port.LedgerStore and
// port.AuthStore used across the service tests.
type mockStore struct {
	ledgers      map[string]domain.Ledger
	accounts     map[string]domain.Account
	categories   map[string]domain.Category
	transactions map[string]domain.Transaction

	users         map[string]domain.User
	credentials   map[string]domain.AuthCredential
	refreshTokens map[string]domain.RefreshToken

	// listAccountCalls counts store reads so tests can assert cache hits.
	listAccountCalls int

	// failCreateTransactionAfter makes the Nth CreateTransaction call
	// fail (1-based); 0 disables the fault.
	failCreateTransactionAfter int
	createTransactionCalls     int
}

func newMockStore() *mockStore {
	return &mockStore{
		ledgers:       make(map[string]domain.Ledger),
		accounts:      make(map[string]domain.Account),
		categories:    make(map[string]domain.Category),
		transactions:  make(map[string]domain.Transaction),
		users:         make(map[string]domain.User),
		credentials:   make(map[string]domain.AuthCredential),
		refreshTokens: make(map[string]domain.RefreshToken),
	}
}

// --- Ledgers ---

func (m *mockStore) ListLedgers(_ context.Context, ownerID string) ([]domain.Ledger, error) {
	var out []domain.Ledger
	for _, l := range m.ledgers {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) GetLedger(_ context.Context, ownerID, ledgerID string) (*domain.Ledger, error) {
	l, ok := m.ledgers[ledgerID]
	if !ok || l.OwnerID != ownerID {
		return nil, &domain.ErrNotFound{Resource: "ledger", ID: ledgerID}
	}
	return &l, nil
}

func (m *mockStore) CreateLedger(_ context.Context, ledger *domain.Ledger) (*domain.Ledger, error) {
	m.ledgers[ledger.ID] = *ledger
	return ledger, nil
}

func (m *mockStore) UpdateLedger(_ context.Context, ledger *domain.Ledger) (*domain.Ledger, error) {
	m.ledgers[ledger.ID] = *ledger
	return ledger, nil
}

func (m *mockStore) DeleteLedger(_ context.Context, _, ledgerID string) error {
	delete(m.ledgers, ledgerID)
	return nil
}

// --- Accounts ---

func (m *mockStore) ListAccounts(_ context.Context, ledgerID string) ([]domain.Account, error) {
	m.listAccountCalls++
	var out []domain.Account
	for _, a := range m.accounts {
		if a.LedgerID == ledgerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) GetAccount(_ context.Context, ledgerID, accountID string) (*domain.Account, error) {
	a, ok := m.accounts[accountID]
	if !ok || a.LedgerID != ledgerID {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return &a, nil
}

func (m *mockStore) CreateAccount(_ context.Context, account *domain.Account) (*domain.Account, error) {
	m.accounts[account.ID] = *account
	return account, nil
}

func (m *mockStore) UpdateAccount(_ context.Context, account *domain.Account) (*domain.Account, error) {
	m.accounts[account.ID] = *account
	return account, nil
}

func (m *mockStore) DeleteAccount(_ context.Context, _, accountID string) error {
	delete(m.accounts, accountID)
	return nil
}

func (m *mockStore) AdjustAccountBalance(_ context.Context, accountID string, delta float64) error {
	a, ok := m.accounts[accountID]
	if !ok {
		return &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	a.NetBalance += delta
	m.accounts[accountID] = a
	return nil
}

// --- Categories ---

func (m *mockStore) ListCategories(_ context.Context, ledgerID string) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range m.categories {
		if c.LedgerID == ledgerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) GetCategory(_ context.Context, ledgerID, categoryID string) (*domain.Category, error) {
	c, ok := m.categories[categoryID]
	if !ok || c.LedgerID != ledgerID {
		return nil, &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}
	return &c, nil
}

func (m *mockStore) CreateCategory(_ context.Context, category *domain.Category) (*domain.Category, error) {
	m.categories[category.ID] = *category
	return category, nil
}

func (m *mockStore) UpdateCategory(_ context.Context, category *domain.Category) (*domain.Category, error) {
	m.categories[category.ID] = *category
	return category, nil
}

func (m *mockStore) DeleteCategory(_ context.Context, _, categoryID string) error {
	delete(m.categories, categoryID)
	return nil
}

func (m *mockStore) AdjustCategoryBalance(_ context.Context, categoryID string, delta float64) error {
	c, ok := m.categories[categoryID]
	if !ok {
		return &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}
	c.Balance += delta
	m.categories[categoryID] = c
	return nil
}

// --- Transactions ---

func (m *mockStore) ListTransactions(_ context.Context, ledgerID string, filter port.TransactionFilter) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range m.transactions {
		if tx.LedgerID != ledgerID {
			continue
		}
		if len(filter.Types) > 0 {
			match := false
			for _, t := range filter.Types {
				if tx.Type == t {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if filter.AccountID != "" && tx.AccountID != filter.AccountID {
			continue
		}
		if filter.CategoryID != "" && tx.CategoryID != filter.CategoryID {
			continue
		}
		if !filter.From.IsZero() && tx.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && tx.Date.After(filter.To) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockStore) GetTransaction(_ context.Context, ledgerID, transactionID string) (*domain.Transaction, error) {
	tx, ok := m.transactions[transactionID]
	if !ok || tx.LedgerID != ledgerID {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	return &tx, nil
}

func (m *mockStore) CreateTransaction(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	m.createTransactionCalls++
	if m.failCreateTransactionAfter > 0 && m.createTransactionCalls >= m.failCreateTransactionAfter {
		return nil, errors.New("store write failed")
	}
	m.transactions[tx.ID] = *tx
	return tx, nil
}

func (m *mockStore) DeleteTransaction(_ context.Context, _, transactionID string) error {
	delete(m.transactions, transactionID)
	return nil
}

// --- Auth ---

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetUserByID(_ context.Context, userID string) (*domain.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return &u, nil
}

func (m *mockStore) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	m.users[user.ID] = *user
	return user, nil
}

func (m *mockStore) GetCredentials(_ context.Context, userID string) (*domain.AuthCredential, error) {
	c, ok := m.credentials[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	return &c, nil
}

func (m *mockStore) CreateCredentials(_ context.Context, userID, passwordHash string) error {
	m.credentials[userID] = domain.AuthCredential{
		ID:           uuid.NewString(),
		UserID:       userID,
		PasswordHash: passwordHash,
	}
	return nil
}

func (m *mockStore) UpdateCredentials(_ context.Context, userID string, updates map[string]any) error {
	c, ok := m.credentials[userID]
	if !ok {
		return &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	for col, val := range updates {
		switch col {
		case "failed_attempts":
			c.FailedAttempts = val.(int)
		case "locked_until":
			if val == nil {
				c.LockedUntil = nil
			} else if ts, err := time.Parse(time.RFC3339, val.(string)); err == nil {
				c.LockedUntil = &ts
			}
		case "last_login_at":
			if ts, err := time.Parse(time.RFC3339, val.(string)); err == nil {
				c.LastLoginAt = &ts
			}
		case "password_hash":
			c.PasswordHash = val.(string)
		}
	}
	m.credentials[userID] = c
	return nil
}

func (m *mockStore) StoreRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	m.refreshTokens[tokenHash] = domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (m *mockStore) GetRefreshToken(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	t, ok := m.refreshTokens[tokenHash]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *mockStore) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	delete(m.refreshTokens, tokenHash)
	return nil
}

func (m *mockStore) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	for hash, t := range m.refreshTokens {
		if t.UserID == userID {
			delete(m.refreshTokens, hash)
		}
	}
	return nil
}

// --- Helpers ---

func newTestLedgerService(store *mockStore) *service.LedgerService {
	return service.NewLedgerService(
		store,
		cache.New[[]domain.Account](5*time.Minute),
		cache.New[[]domain.Category](5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func seedLedger(store *mockStore, ownerID string) string {
	id := uuid.NewString()
	store.ledgers[id] = domain.Ledger{
		ID:        id,
		OwnerID:   ownerID,
		Name:      "Household",
		Currency:  "EUR",
		CreatedAt: time.Now(),
	}
	return id
}

func seedAccount(store *mockStore, ledgerID, name, accType string, isGroup bool, parentID string, balance float64) string {
	id := uuid.NewString()
	store.accounts[id] = domain.Account{
		ID:         id,
		LedgerID:   ledgerID,
		Name:       name,
		Type:       accType,
		IsGroup:    isGroup,
		ParentID:   parentID,
		NetBalance: balance,
	}
	return id
}

func seedCategory(store *mockStore, ledgerID, name, catType string, isGroup bool, parentID string, balance float64) string {
	id := uuid.NewString()
	store.categories[id] = domain.Category{
		ID:       id,
		LedgerID: ledgerID,
		Name:     name,
		Type:     catType,
		IsGroup:  isGroup,
		ParentID: parentID,
		Balance:  balance,
	}
	return id
}
