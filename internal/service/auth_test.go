package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/service"

	"go.uber.org/zap"
)

const testPassword = "correct-horse-battery"

func newTestAuthService(store *mockStore) *service.AuthService {
	return service.NewAuthService(store, "test-secret", 15*time.Minute, 24*time.Hour, zap.NewNop())
}

func registerTestUser(t *testing.T, svc *service.AuthService, email string) string {
	t.Helper()
	resp, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Email:    email,
		Name:     "Test User",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("register: expected no error, got %v", err)
	}
	return resp.UserID
}

func TestRegister_Success(t *testing.T) {
	store := newMockStore()
	svc := newTestAuthService(store)

	resp, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Email:    "  Ana@Example.COM ",
		Name:     "Ana",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.UserID == "" {
		t.Error("expected user id in response")
	}

	user := store.users[resp.UserID]
	if user.Email != "ana@example.com" {
		t.Errorf("expected normalized email, got %s", user.Email)
	}
	cred, ok := store.credentials[resp.UserID]
	if !ok {
		t.Fatal("expected credentials to be stored")
	}
	if cred.PasswordHash == testPassword {
		t.Error("password must not be stored in the clear")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestAuthService(newMockStore())

	tests := []struct {
		name string
		req  domain.RegisterRequest
	}{
		{"missing email", domain.RegisterRequest{Name: "A", Password: testPassword}},
		{"bad email", domain.RegisterRequest{Email: "not-an-email", Name: "A", Password: testPassword}},
		{"missing name", domain.RegisterRequest{Email: "a@b.com", Password: testPassword}},
		{"short password", domain.RegisterRequest{Email: "a@b.com", Name: "A", Password: "short"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), &tc.req)
			var verr *domain.ErrValidation
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMockStore()
	svc := newTestAuthService(store)
	registerTestUser(t, svc, "ana@example.com")

	_, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Email:    "ana@example.com",
		Name:     "Ana Again",
		Password: testPassword,
	})
	var cerr *domain.ErrConflict
	if !errors.As(err, &cerr) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	store := newMockStore()
	svc := newTestAuthService(store)
	userID := registerTestUser(t, svc, "ana@example.com")

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "ana@example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens in response")
	}
	if resp.UserID != userID {
		t.Errorf("expected user id %s, got %s", userID, resp.UserID)
	}

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("expected valid access token, got %v", err)
	}
	if claims.Sub != userID {
		t.Errorf("expected sub %s, got %s", userID, claims.Sub)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMockStore()
	svc := newTestAuthService(store)
	userID := registerTestUser(t, svc, "ana@example.com")

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "ana@example.com",
		Password: "wrong-password",
	})
	var uerr *domain.ErrUnauthorized
	if !errors.As(err, &uerr) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if store.credentials[userID].FailedAttempts != 1 {
		t.Errorf("expected 1 failed attempt recorded, got %d", store.credentials[userID].FailedAttempts)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := newTestAuthService(newMockStore())

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "nobody@example.com",
		Password: testPassword,
	})
	var uerr *domain.ErrUnauthorized
	if !errors.As(err, &uerr) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestLogin_LocksAfterMaxAttempts(t *testing.T) {
	store := newMockStore()
	svc := newTestAuthService(store)
	userID := registerTestUser(t, svc, "ana@example.com")

	for i := 0; i < 5; i++ {
		_, err := svc.Login(context.Background(), &domain.LoginRequest{
			Email:    "ana@example.com",
			Password: "wrong-password",
		})
		if err == nil {
			t.Fatalf("attempt %d: expected error", i+1)
		}
	}

	if store.credentials[userID].LockedUntil == nil {
		t.Fatal("expected account to be locked")
	}

	// Even the correct password is rejected while locked.
	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "ana@example.com",
		Password: testPassword,
	})
	var uerr *domain.ErrUnauthorized
	if !errors.As(err, &uerr) {
		t.Fatalf("expected unauthorized while locked, got %v", err)
	}
}

func TestLogin_ResetsAttemptsOnSuccess(t *testing.T) {
	store := newMockStore()
	svc := newTestAuthService(store)
	userID := registerTestUser(t, svc, "ana@example.com")

	_, _ = svc.Login(context.Background(), &domain.LoginRequest{
		Email: "ana@example.com", Password: "wrong-password",
	})
	if _, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "ana@example.com", Password: testPassword,
	}); err != nil {
		t.Fatalf("expected successful login, got %v", err)
	}

	if store.credentials[userID].FailedAttempts != 0 {
		t.Errorf("expected attempts reset, got %d", store.credentials[userID].FailedAttempts)
	}
	if store.credentials[userID].LastLoginAt == nil {
		t.Error("expected last login timestamp")
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	store := newMockStore()
	svc := newTestAuthService(store)
	registerTestUser(t, svc, "ana@example.com")

	login, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "ana@example.com", Password: testPassword,
	})
	if err != nil {
		t.Fatalf("login: expected no error, got %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: expected no error, got %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("expected a new refresh token")
	}

	// The old token died the moment it was used.
	_, err = svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken})
	var uerr *domain.ErrUnauthorized
	if !errors.As(err, &uerr) {
		t.Fatalf("expected unauthorized on reuse, got %v", err)
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	svc := newTestAuthService(newMockStore())

	_, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: "garbage"})
	var uerr *domain.ErrUnauthorized
	if !errors.As(err, &uerr) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestLogout_RevokesAllTokens(t *testing.T) {
	store := newMockStore()
	svc := newTestAuthService(store)
	userID := registerTestUser(t, svc, "ana@example.com")

	login, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "ana@example.com", Password: testPassword,
	})
	if err != nil {
		t.Fatalf("login: expected no error, got %v", err)
	}

	if err := svc.Logout(context.Background(), userID); err != nil {
		t.Fatalf("logout: expected no error, got %v", err)
	}

	_, err = svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken})
	var uerr *domain.ErrUnauthorized
	if !errors.As(err, &uerr) {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}

func TestValidateAccessToken_RejectsGarbage(t *testing.T) {
	svc := newTestAuthService(newMockStore())

	if _, err := svc.ValidateAccessToken("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestValidateAccessToken_RejectsForeignSecret(t *testing.T) {
	store := newMockStore()
	issuer := service.NewAuthService(store, "other-secret", 15*time.Minute, 24*time.Hour, zap.NewNop())
	registerTestUser(t, issuer, "ana@example.com")

	login, err := issuer.Login(context.Background(), &domain.LoginRequest{
		Email: "ana@example.com", Password: testPassword,
	})
	if err != nil {
		t.Fatalf("login: expected no error, got %v", err)
	}

	verifier := newTestAuthService(store)
	if _, err := verifier.ValidateAccessToken(login.AccessToken); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}
