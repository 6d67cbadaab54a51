package postgrest

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
)

// ============================================================
// Auth — users, credentials, refresh tokens
// ============================================================

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.GetUserByEmail")
	defer span.End()

	path := fmt.Sprintf("users?email=eq.%s&limit=1", url.QueryEscape(email))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/users", Err: err}
	}

	user, ok, err := decodeSingle[domain.User](body)
	if err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if !ok {
		return nil, nil // absence is not an error for lookups
	}
	return user, nil
}

func (c *Client) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.GetUserByID")
	defer span.End()

	path := fmt.Sprintf("users?id=eq.%s&limit=1", url.QueryEscape(userID))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/users", Err: err}
	}

	user, ok, err := decodeSingle[domain.User](body)
	if err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return user, nil
}

func (c *Client) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.CreateUser")
	defer span.End()

	body, err := c.doPost(ctx, "users", user)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/users", Err: err}
	}

	created, ok, err := decodeSingle[domain.User](body)
	if err != nil || !ok {
		return nil, fmt.Errorf("decode created user: %w", err)
	}
	return created, nil
}

func (c *Client) GetCredentials(ctx context.Context, userID string) (*domain.AuthCredential, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.GetCredentials")
	defer span.End()

	path := fmt.Sprintf("auth_credentials?user_id=eq.%s&limit=1", url.QueryEscape(userID))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/auth", Err: err}
	}

	cred, ok, err := decodeSingle[domain.AuthCredential](body)
	if err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	return cred, nil
}

func (c *Client) CreateCredentials(ctx context.Context, userID, passwordHash string) error {
	ctx, span := tracer.Start(ctx, "PostgREST.CreateCredentials")
	defer span.End()

	_, err := c.doPost(ctx, "auth_credentials", map[string]any{
		"user_id":       userID,
		"password_hash": passwordHash,
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "postgrest/auth", Err: err}
	}
	return nil
}

func (c *Client) UpdateCredentials(ctx context.Context, userID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "PostgREST.UpdateCredentials")
	defer span.End()

	path := fmt.Sprintf("auth_credentials?user_id=eq.%s", url.QueryEscape(userID))
	if err := c.doPatch(ctx, path, updates); err != nil {
		return &domain.ErrExternalService{Service: "postgrest/auth", Err: err}
	}
	return nil
}

func (c *Client) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "PostgREST.StoreRefreshToken")
	defer span.End()

	_, err := c.doPost(ctx, "refresh_tokens", map[string]any{
		"user_id":    userID,
		"token_hash": tokenHash,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "postgrest/auth", Err: err}
	}
	return nil
}

func (c *Client) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.GetRefreshToken")
	defer span.End()

	path := fmt.Sprintf("refresh_tokens?token_hash=eq.%s&limit=1", url.QueryEscape(tokenHash))
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgrest/auth", Err: err}
	}

	token, ok, err := decodeSingle[domain.RefreshToken](body)
	if err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return token, nil
}

func (c *Client) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, span := tracer.Start(ctx, "PostgREST.RevokeRefreshToken")
	defer span.End()

	path := fmt.Sprintf("refresh_tokens?token_hash=eq.%s", url.QueryEscape(tokenHash))
	if err := c.doDelete(ctx, path); err != nil {
		return &domain.ErrExternalService{Service: "postgrest/auth", Err: err}
	}
	return nil
}

func (c *Client) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "PostgREST.RevokeAllRefreshTokens")
	defer span.End()

	path := fmt.Sprintf("refresh_tokens?user_id=eq.%s", url.QueryEscape(userID))
	if err := c.doDelete(ctx, path); err != nil {
		return &domain.ErrExternalService{Service: "postgrest/auth", Err: err}
	}
	return nil
}
