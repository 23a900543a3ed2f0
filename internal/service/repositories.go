package service

import (
	"context"
	"io"
	"time"

	"storefront/internal/mailer"
	"storefront/internal/models"
	"storefront/internal/repository"
)

// UserRepository is satisfied by repository.UserRepository and memory.Users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	FindByRefreshHash(ctx context.Context, hash []byte) (models.User, error)
	FindByResetHash(ctx context.Context, hash string, now time.Time) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SetRefreshToken(ctx context.Context, id int64, hash []byte) error
	RotateRefreshToken(ctx context.Context, id int64, previous []byte, next []byte) error
	SetResetToken(ctx context.Context, id int64, hash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash []byte) error
	Update(ctx context.Context, id int64, update repository.UserUpdate) (models.User, error)
	Delete(ctx context.Context, id int64) error
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
}

type RoleRepository interface {
	Create(ctx context.Context, role models.Role) (models.Role, error)
	GetByName(ctx context.Context, name models.UserRole) (models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	Update(ctx context.Context, name models.UserRole, update repository.RoleUpdate) (models.Role, error)
	Delete(ctx context.Context, name models.UserRole) error
	Count(ctx context.Context) (int, error)
}

type StoreRepository interface {
	Create(ctx context.Context, store models.Store) (models.Store, error)
	GetByID(ctx context.Context, id int64) (models.Store, error)
	List(ctx context.Context, filter repository.StoreFilter) ([]models.Store, error)
	Update(ctx context.Context, store models.Store) (models.Store, error)
	Delete(ctx context.Context, id int64) error
}

// ResetMailer queues password reset emails for delivery.
type ResetMailer interface {
	EnqueuePasswordReset(ctx context.Context, msg mailer.PasswordReset) error
}

// AssetUploader stores an uploaded object and returns its public URL.
type AssetUploader interface {
	PutAsset(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}
