// Package postgres implements the ledger and auth stores directly against
// PostgreSQL, for deployments that skip the PostgREST layer.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/port"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Store implements port.LedgerStore and port.AuthStore over database/sql.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports backend reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ============================================================
// Ledgers
// ============================================================

func (s *Store) ListLedgers(ctx context.Context, ownerID string) ([]domain.Ledger, error) {
	const query = `SELECT id, owner_id, name, currency, created_at
		FROM ledgers WHERE owner_id = $1 ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close()

	var ledgers []domain.Ledger
	for rows.Next() {
		var l domain.Ledger
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Currency, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, rows.Err()
}

func (s *Store) GetLedger(ctx context.Context, ownerID, ledgerID string) (*domain.Ledger, error) {
	const query = `SELECT id, owner_id, name, currency, created_at
		FROM ledgers WHERE owner_id = $1 AND id = $2`

	var l domain.Ledger
	err := s.db.QueryRowContext(ctx, query, ownerID, ledgerID).
		Scan(&l.ID, &l.OwnerID, &l.Name, &l.Currency, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Resource: "ledger", ID: ledgerID}
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	return &l, nil
}

func (s *Store) CreateLedger(ctx context.Context, ledger *domain.Ledger) (*domain.Ledger, error) {
	const query = `INSERT INTO ledgers (id, owner_id, name, currency, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		ledger.ID, ledger.OwnerID, ledger.Name, ledger.Currency, ledger.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create ledger: %w", err)
	}
	return ledger, nil
}

func (s *Store) UpdateLedger(ctx context.Context, ledger *domain.Ledger) (*domain.Ledger, error) {
	const query = `UPDATE ledgers SET name = $1, currency = $2 WHERE id = $3`

	if _, err := s.db.ExecContext(ctx, query, ledger.Name, ledger.Currency, ledger.ID); err != nil {
		return nil, fmt.Errorf("update ledger: %w", err)
	}
	return s.GetLedger(ctx, ledger.OwnerID, ledger.ID)
}

func (s *Store) DeleteLedger(ctx context.Context, ownerID, ledgerID string) error {
	const query = `DELETE FROM ledgers WHERE owner_id = $1 AND id = $2`

	if _, err := s.db.ExecContext(ctx, query, ownerID, ledgerID); err != nil {
		return fmt.Errorf("delete ledger: %w", err)
	}
	return nil
}

// ============================================================
// Accounts
// ============================================================

func (s *Store) ListAccounts(ctx context.Context, ledgerID string) ([]domain.Account, error) {
	const query = `SELECT id, ledger_id, name, type, is_group, parent_id, net_balance, archived, created_at
		FROM accounts WHERE ledger_id = $1 ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, ledgerID, accountID string) (*domain.Account, error) {
	const query = `SELECT id, ledger_id, name, type, is_group, parent_id, net_balance, archived, created_at
		FROM accounts WHERE ledger_id = $1 AND id = $2`

	a, err := scanAccount(s.db.QueryRowContext(ctx, query, ledgerID, accountID))
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	const query = `INSERT INTO accounts (id, ledger_id, name, type, is_group, parent_id, net_balance, archived, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query,
		account.ID, account.LedgerID, account.Name, account.Type, account.IsGroup,
		nullString(account.ParentID), account.NetBalance, account.Archived, account.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (s *Store) UpdateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	const query = `UPDATE accounts SET name = $1, parent_id = $2, archived = $3 WHERE id = $4`

	_, err := s.db.ExecContext(ctx, query,
		account.Name, nullString(account.ParentID), account.Archived, account.ID)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return s.GetAccount(ctx, account.LedgerID, account.ID)
}

func (s *Store) DeleteAccount(ctx context.Context, ledgerID, accountID string) error {
	const query = `DELETE FROM accounts WHERE ledger_id = $1 AND id = $2`

	if _, err := s.db.ExecContext(ctx, query, ledgerID, accountID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (s *Store) AdjustAccountBalance(ctx context.Context, accountID string, delta float64) error {
	const query = `UPDATE accounts SET net_balance = net_balance + $1 WHERE id = $2`

	res, err := s.db.ExecContext(ctx, query, delta, accountID)
	if err != nil {
		return fmt.Errorf("adjust account balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	s.logger.Debug("postgres: account balance adjusted",
		zap.String("account_id", accountID),
		zap.Float64("delta", delta),
	)
	return nil
}

// ============================================================
// Categories
// ============================================================

func (s *Store) ListCategories(ctx context.Context, ledgerID string) ([]domain.Category, error) {
	const query = `SELECT id, ledger_id, name, type, is_group, parent_id, balance, created_at
		FROM categories WHERE ledger_id = $1 ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, ledgerID, categoryID string) (*domain.Category, error) {
	const query = `SELECT id, ledger_id, name, type, is_group, parent_id, balance, created_at
		FROM categories WHERE ledger_id = $1 AND id = $2`

	c, err := scanCategory(s.db.QueryRowContext(ctx, query, ledgerID, categoryID))
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	const query = `INSERT INTO categories (id, ledger_id, name, type, is_group, parent_id, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		category.ID, category.LedgerID, category.Name, category.Type, category.IsGroup,
		nullString(category.ParentID), category.Balance, category.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	const query = `UPDATE categories SET name = $1, parent_id = $2 WHERE id = $3`

	_, err := s.db.ExecContext(ctx, query,
		category.Name, nullString(category.ParentID), category.ID)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return s.GetCategory(ctx, category.LedgerID, category.ID)
}

func (s *Store) DeleteCategory(ctx context.Context, ledgerID, categoryID string) error {
	const query = `DELETE FROM categories WHERE ledger_id = $1 AND id = $2`

	if _, err := s.db.ExecContext(ctx, query, ledgerID, categoryID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func (s *Store) AdjustCategoryBalance(ctx context.Context, categoryID string, delta float64) error {
	const query = `UPDATE categories SET balance = balance + $1 WHERE id = $2`

	res, err := s.db.ExecContext(ctx, query, delta, categoryID)
	if err != nil {
		return fmt.Errorf("adjust category balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}
	return nil
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) ListTransactions(ctx context.Context, ledgerID string, filter port.TransactionFilter) ([]domain.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, ledger_id, account_id, type, amount, date, payee, notes,
		category_id, transfer_peer_id, splits, created_at
		FROM transactions WHERE ledger_id = $1`)
	args := []any{ledgerID}

	addArg := func(clause string, v any) {
		args = append(args, v)
		fmt.Fprintf(&sb, clause, len(args))
	}

	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			args = append(args, t)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		fmt.Fprintf(&sb, " AND type IN (%s)", strings.Join(placeholders, ", "))
	}
	if filter.CategoryID != "" {
		addArg(" AND category_id = $%d", filter.CategoryID)
	}
	if filter.AccountID != "" {
		addArg(" AND account_id = $%d", filter.AccountID)
	}
	if !filter.From.IsZero() {
		addArg(" AND date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		addArg(" AND date <= $%d", filter.To)
	}
	sb.WriteString(" ORDER BY date DESC")
	if filter.Limit > 0 {
		addArg(" LIMIT $%d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

func (s *Store) GetTransaction(ctx context.Context, ledgerID, transactionID string) (*domain.Transaction, error) {
	const query = `SELECT id, ledger_id, account_id, type, amount, date, payee, notes,
		category_id, transfer_peer_id, splits, created_at
		FROM transactions WHERE ledger_id = $1 AND id = $2`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, ledgerID, transactionID))
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	const query = `INSERT INTO transactions
		(id, ledger_id, account_id, type, amount, date, payee, notes, category_id, transfer_peer_id, splits, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	splits, err := json.Marshal(tx.Splits)
	if err != nil {
		return nil, fmt.Errorf("encode splits: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query,
		tx.ID, tx.LedgerID, tx.AccountID, tx.Type, tx.Amount, tx.Date, tx.Payee, tx.Notes,
		nullString(tx.CategoryID), nullString(tx.TransferPeerID), splits, tx.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return tx, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, ledgerID, transactionID string) error {
	const query = `DELETE FROM transactions WHERE ledger_id = $1 AND id = $2`

	if _, err := s.db.ExecContext(ctx, query, ledgerID, transactionID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// ============================================================
// Scan helpers
// ============================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	var parentID sql.NullString
	err := row.Scan(&a.ID, &a.LedgerID, &a.Name, &a.Type, &a.IsGroup,
		&parentID, &a.NetBalance, &a.Archived, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.ParentID = parentID.String
	return &a, nil
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var c domain.Category
	var parentID sql.NullString
	err := row.Scan(&c.ID, &c.LedgerID, &c.Name, &c.Type, &c.IsGroup,
		&parentID, &c.Balance, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.ParentID = parentID.String
	return &c, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var categoryID, peerID sql.NullString
	var splits []byte
	err := row.Scan(&tx.ID, &tx.LedgerID, &tx.AccountID, &tx.Type, &tx.Amount, &tx.Date,
		&tx.Payee, &tx.Notes, &categoryID, &peerID, &splits, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	tx.CategoryID = categoryID.String
	tx.TransferPeerID = peerID.String
	if len(splits) > 0 {
		if err := json.Unmarshal(splits, &tx.Splits); err != nil {
			return nil, fmt.Errorf("decode splits: %w", err)
		}
	}
	return &tx, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
