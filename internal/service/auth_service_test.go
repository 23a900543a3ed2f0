package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/security"
)

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ada", "")

	_, err := f.auth.Register(context.Background(), RegisterInput{
		Name:     "Ada Again",
		Email:    "ADA@example.com",
		Password: "password123",
	})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestRegisterDefaultsRoleAndRefusesAdmin(t *testing.T) {
	f := newFixture(t)

	result := f.register(t, "Ada", "")
	if result.User.Role != models.RoleCustomer {
		t.Fatalf("role = %s, want customer", result.User.Role)
	}

	owner := f.register(t, "Grace", models.RoleShopOwner)
	if owner.User.Role != models.RoleShopOwner {
		t.Fatalf("role = %s, want shop-owner", owner.User.Role)
	}

	_, err := f.auth.Register(context.Background(), RegisterInput{
		Name: "Mallory", Email: "mallory@example.com", Password: "password123", Role: models.RoleAdmin,
	})
	assertStatus(t, err, http.StatusForbidden)

	_, err = f.auth.Register(context.Background(), RegisterInput{
		Name: "Eve", Email: "eve@example.com", Password: "password123", Role: "superuser",
	})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestRegisterStoresOnlyTokenDigest(t *testing.T) {
	f := newFixture(t)
	result := f.register(t, "Ada", "")

	stored, err := f.db.Users().GetByID(context.Background(), result.User.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if string(stored.RefreshTokenHash) == result.RefreshToken {
		t.Fatal("refresh token stored in clear")
	}
	if string(stored.RefreshTokenHash) != string(security.HashRefreshToken(result.RefreshToken)) {
		t.Fatal("stored digest does not match issued refresh token")
	}
	if string(stored.PasswordHash) == "password123" {
		t.Fatal("password stored in clear")
	}
}

func TestLoginIdentity(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "Ada", "")

	result, err := f.auth.Login(context.Background(), LoginInput{Email: " Ada@Example.com ", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	claims, err := f.tokens.ParseAccess(result.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccess() error: %v", err)
	}
	if claims.UserID != registered.User.ID {
		t.Fatalf("token user id = %d, want %d", claims.UserID, registered.User.ID)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ada", "")

	_, wrongPassword := f.auth.Login(context.Background(), LoginInput{Email: "ada@example.com", Password: "nope-nope"})
	_, unknownEmail := f.auth.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "nope-nope"})

	assertStatus(t, wrongPassword, http.StatusUnauthorized)
	assertStatus(t, unknownEmail, http.StatusUnauthorized)
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestLoginReplacesPreviousSession(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, "Ada", "")

	if _, err := f.auth.Login(context.Background(), LoginInput{Email: "ada@example.com", Password: "password123"}); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	_, err := f.auth.Refresh(context.Background(), first.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestRefreshRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "Ada", "")

	rotated, err := f.auth.Refresh(ctx, registered.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if rotated.RefreshToken == registered.RefreshToken {
		t.Fatal("refresh did not rotate the token")
	}

	_, err = f.auth.Refresh(ctx, registered.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized)

	_, err = f.auth.Refresh(ctx, registered.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized)

	if _, err := f.auth.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("Refresh(rotated) error: %v", err)
	}
}

func TestRefreshRejectsMissingAndForeignTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "Ada", "")

	_, err := f.auth.Refresh(ctx, "")
	assertStatus(t, err, http.StatusUnauthorized)

	_, err = f.auth.Refresh(ctx, registered.AccessToken)
	assertStatus(t, err, http.StatusUnauthorized)

	_, err = f.auth.Refresh(ctx, "garbage")
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestConcurrentRefreshHasSingleWinner(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "Ada", "")

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.auth.Refresh(context.Background(), registered.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if errors.Is(err, errInvalidRefresh) {
				failures++
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 || failures != workers-1 {
		t.Fatalf("successes=%d failures=%d, want 1 and %d", successes, failures, workers-1)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "Ada", "")

	f.auth.Logout(ctx, registered.RefreshToken)
	f.auth.Logout(ctx, registered.RefreshToken)
	f.auth.Logout(ctx, "")
	f.auth.Logout(ctx, "not-a-token")

	stored, _ := f.db.Users().GetByID(ctx, registered.User.ID)
	if stored.RefreshTokenHash != nil {
		t.Fatal("logout left the refresh token in place")
	}
	_, err := f.auth.Refresh(ctx, registered.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.ForgotPassword(context.Background(), "nobody@example.com", "http://x/reset/")
	assertStatus(t, err, http.StatusNotFound)
	if len(f.mail.sent) != 0 {
		t.Fatal("mail queued for unknown email")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	f.auth.now = func() time.Time { return now }
	registered := f.register(t, "Ada", "")

	result, err := f.auth.ForgotPassword(ctx, "ada@example.com", "http://localhost/api/v1/auth/reset-password/")
	if err != nil {
		t.Fatalf("ForgotPassword() error: %v", err)
	}
	if !result.ExpiresAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("expiresAt = %s", result.ExpiresAt)
	}
	if len(f.mail.sent) != 1 || f.mail.sent[0].ResetURL != result.ResetURL {
		t.Fatalf("reset mail not queued: %+v", f.mail.sent)
	}

	token := strings.TrimPrefix(result.ResetURL, "http://localhost/api/v1/auth/reset-password/")
	if len(token) != 40 {
		t.Fatalf("reset token length = %d, want 40 hex chars", len(token))
	}

	stored, _ := f.db.Users().GetByID(ctx, registered.User.ID)
	if stored.ResetTokenHash == nil || *stored.ResetTokenHash == token {
		t.Fatal("reset token must be stored hashed")
	}

	reset, err := f.auth.ResetPassword(ctx, token, "new-password-1")
	if err != nil {
		t.Fatalf("ResetPassword() error: %v", err)
	}
	if reset.AccessToken == "" || reset.RefreshToken == "" {
		t.Fatal("reset did not start a session")
	}

	_, err = f.auth.ResetPassword(ctx, token, "another-password")
	assertStatus(t, err, http.StatusBadRequest)

	if _, err := f.auth.Login(ctx, LoginInput{Email: "ada@example.com", Password: "new-password-1"}); err != nil {
		t.Fatalf("Login(new password) error: %v", err)
	}
	_, err = f.auth.Login(ctx, LoginInput{Email: "ada@example.com", Password: "password123"})
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	f.auth.now = func() time.Time { return now }
	f.register(t, "Ada", "")

	result, err := f.auth.ForgotPassword(ctx, "ada@example.com", "prefix/")
	if err != nil {
		t.Fatalf("ForgotPassword() error: %v", err)
	}

	now = now.Add(11 * time.Minute)
	_, err = f.auth.ResetPassword(ctx, strings.TrimPrefix(result.ResetURL, "prefix/"), "new-password-1")
	assertStatus(t, err, http.StatusBadRequest)
}

func TestForgotPasswordMailFailureClearsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "Ada", "")
	f.mail.err = errors.New("redis down")

	_, err := f.auth.ForgotPassword(ctx, "ada@example.com", "prefix/")
	assertStatus(t, err, http.StatusInternalServerError)

	stored, _ := f.db.Users().GetByID(ctx, registered.User.ID)
	if stored.ResetTokenHash != nil || stored.ResetExpiresAt != nil {
		t.Fatal("reset token left behind after mail failure")
	}
}
