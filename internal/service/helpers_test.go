package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/mailer"
	"storefront/internal/models"
	"storefront/internal/repository/memory"
	"storefront/internal/security"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.PasswordReset
	err  error
}

func (m *recordingMailer) EnqueuePasswordReset(_ context.Context, msg mailer.PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type recordingUploader struct {
	keys  []string
	types []string
	err   error
}

func (u *recordingUploader) PutAsset(_ context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != size {
		return "", errors.New("size mismatch")
	}
	u.keys = append(u.keys, key)
	u.types = append(u.types, contentType)
	return "http://assets.local/bucket/" + key, nil
}

type fixture struct {
	db     *memory.DB
	tokens *security.TokenIssuer
	mail   *recordingMailer
	auth   *AuthService
	users  *UserService
	roles  *RoleService
	stores *StoreService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := security.NewTokenIssuer(strings.Repeat("a", 32), strings.Repeat("r", 32), 15*time.Minute, 168*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error: %v", err)
	}
	db := memory.New()
	mail := &recordingMailer{}
	log := zerolog.Nop()
	return &fixture{
		db:     db,
		tokens: tokens,
		mail:   mail,
		auth:   NewAuthService(db.Users(), tokens, mail, 10*time.Minute, log),
		users:  NewUserService(db.Users(), log),
		roles:  NewRoleService(db.Roles(), db.Users(), log),
		stores: NewStoreService(db.Stores(), log),
	}
}

func (f *fixture) register(t *testing.T, name string, role models.UserRole) AuthResult {
	t.Helper()
	result, err := f.auth.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: "password123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("Register(%s) error: %v", name, err)
	}
	return result
}

func (f *fixture) admin(t *testing.T) models.User {
	t.Helper()
	user, err := f.db.Users().Create(context.Background(), models.User{
		Name:  "Root",
		Email: "root@example.com",
		Role:  models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Create(admin) error: %v", err)
	}
	return user
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", want)
	}
	if got := apperr.Status(err); got != want {
		t.Fatalf("status = %d, want %d (err: %v)", got, want, err)
	}
}

func ptr[T any](v T) *T { return &v }

