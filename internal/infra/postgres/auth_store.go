package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lmoreira/fintrack-api/internal/domain"
)

// ============================================================
// Auth — users, credentials, refresh tokens
// ============================================================

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, email, name, is_active, created_at FROM users WHERE email = $1`

	var u domain.User
	err := s.db.QueryRowContext(ctx, query, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // absence is not an error for lookups
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	const query = `SELECT id, email, name, is_active, created_at FROM users WHERE id = $1`

	var u domain.User
	err := s.db.QueryRowContext(ctx, query, userID).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	const query = `INSERT INTO users (id, email, name, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.IsActive, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Store) GetCredentials(ctx context.Context, userID string) (*domain.AuthCredential, error) {
	const query = `SELECT id, user_id, password_hash, failed_attempts, locked_until, last_login_at
		FROM auth_credentials WHERE user_id = $1`

	var cred domain.AuthCredential
	err := s.db.QueryRowContext(ctx, query, userID).
		Scan(&cred.ID, &cred.UserID, &cred.PasswordHash,
			&cred.FailedAttempts, &cred.LockedUntil, &cred.LastLoginAt)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	return &cred, nil
}

func (s *Store) CreateCredentials(ctx context.Context, userID, passwordHash string) error {
	const query = `INSERT INTO auth_credentials (id, user_id, password_hash, failed_attempts)
		VALUES ($1, $2, $3, 0)`

	if _, err := s.db.ExecContext(ctx, query, uuid.NewString(), userID, passwordHash); err != nil {
		return fmt.Errorf("create credentials: %w", err)
	}
	return nil
}

// credentialColumns whitelists the columns the service layer may patch.
var credentialColumns = map[string]bool{
	"failed_attempts": true,
	"locked_until":    true,
	"last_login_at":   true,
	"password_hash":   true,
}

func (s *Store) UpdateCredentials(ctx context.Context, userID string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	cols := make([]string, 0, len(updates))
	for col := range updates {
		if !credentialColumns[col] {
			return fmt.Errorf("update credentials: unknown column %q", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	assignments := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		args = append(args, updates[col])
		assignments[i] = fmt.Sprintf("%s = $%d", col, len(args))
	}
	args = append(args, userID)

	query := fmt.Sprintf("UPDATE auth_credentials SET %s WHERE user_id = $%d",
		strings.Join(assignments, ", "), len(args))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update credentials: %w", err)
	}
	return nil
}

func (s *Store) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	const query = `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), userID, tokenHash, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *Store) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	const query = `SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens WHERE token_hash = $1`

	var token domain.RefreshToken
	err := s.db.QueryRowContext(ctx, query, tokenHash).
		Scan(&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return &token, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	const query = `DELETE FROM refresh_tokens WHERE token_hash = $1`

	if _, err := s.db.ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1`

	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
