package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/mailer"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/security"
)

const minPasswordLength = 8

var (
	errInvalidCredentials = apperr.Unauthorized("Invalid credentials")
	errInvalidRefresh     = apperr.Unauthorized("Invalid refresh token")
)

type AuthService struct {
	users    UserRepository
	tokens   *security.TokenIssuer
	mail     ResetMailer
	resetTTL time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	users UserRepository,
	tokens *security.TokenIssuer,
	mail ResetMailer,
	resetTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		mail:     mail,
		resetTTL: resetTTL,
		log:      log,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.UserRole
}

// AuthResult is a freshly issued session. RefreshToken belongs in the cookie.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	RefreshTTL   time.Duration
	User         models.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" || strings.TrimSpace(input.Name) == "" {
		return AuthResult{}, apperr.Validation("Please provide name, email and password")
	}
	if len(input.Password) < minPasswordLength {
		return AuthResult{}, apperr.Validation("Password must be at least 8 characters")
	}

	role := input.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() {
		return AuthResult{}, apperr.Validation("Invalid role")
	}
	if role == models.RoleAdmin {
		return AuthResult{}, apperr.Forbidden("The admin role cannot be self-assigned")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return AuthResult{}, apperr.Validation("User already exists")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.Create(ctx, models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return AuthResult{}, apperr.Validation("User already exists")
		}
		return AuthResult{}, err
	}

	s.log.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")

	return s.startSession(ctx, user)
}

type LoginInput struct {
	Email    string
	Password string
}

// Login answers unknown email and wrong password identically.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return AuthResult{}, apperr.Validation("Please provide email and password")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, errInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("stored password hash unreadable")
		return AuthResult{}, errInvalidCredentials
	}
	if !ok {
		return AuthResult{}, errInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// Refresh exchanges the presented refresh token for a new pair. The stored
// digest is swapped only if it still matches, so a replayed or concurrently
// rotated token fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if refreshToken == "" {
		return AuthResult{}, apperr.Unauthorized("Please login again")
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return AuthResult{}, errInvalidRefresh
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, errInvalidRefresh
		}
		return AuthResult{}, err
	}

	presented := security.HashRefreshToken(refreshToken)
	if user.RefreshTokenHash == nil || !bytes.Equal(user.RefreshTokenHash, presented) {
		s.log.Warn().Int64("user_id", user.ID).Msg("stale refresh token presented")
		return AuthResult{}, errInvalidRefresh
	}

	pair, err := s.tokens.IssuePair(user.ID, string(user.Role))
	if err != nil {
		return AuthResult{}, err
	}

	next := security.HashRefreshToken(pair.RefreshToken)
	if err := s.users.RotateRefreshToken(ctx, user.ID, presented, next); err != nil {
		if errors.Is(err, repository.ErrStaleRefreshToken) {
			return AuthResult{}, errInvalidRefresh
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	user.RefreshTokenHash = next

	return AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		RefreshTTL:   pair.RefreshTTL,
		User:         user,
	}, nil
}

// Logout clears the session owning refreshToken, if any. It never fails.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	user, err := s.users.FindByRefreshHash(ctx, security.HashRefreshToken(refreshToken))
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			s.log.Warn().Err(err).Msg("logout lookup failed")
		}
		return
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, nil); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("clear refresh token failed")
	}
}

type ForgotPasswordResult struct {
	ResetURL  string
	ExpiresAt time.Time
}

// ForgotPassword issues a reset token and queues the reset email. resetURLPrefix
// is joined with the raw token to form the link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, resetURLPrefix string) (ForgotPasswordResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return ForgotPasswordResult{}, apperr.Validation("Please provide an email address")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ForgotPasswordResult{}, apperr.NotFound("No user found with that email")
		}
		return ForgotPasswordResult{}, err
	}

	token, digest, err := security.GenerateResetToken()
	if err != nil {
		return ForgotPasswordResult{}, err
	}
	expiresAt := s.now().Add(s.resetTTL)

	if err := s.users.SetResetToken(ctx, user.ID, digest, expiresAt); err != nil {
		return ForgotPasswordResult{}, fmt.Errorf("store reset token: %w", err)
	}

	resetURL := resetURLPrefix + token

	if s.mail != nil {
		msg := mailer.PasswordReset{
			UserID:    user.ID,
			Name:      user.Name,
			Email:     user.Email,
			ResetURL:  resetURL,
			ExpiresAt: expiresAt,
		}
		if err := s.mail.EnqueuePasswordReset(ctx, msg); err != nil {
			s.log.Error().Err(err).Int64("user_id", user.ID).Msg("enqueue reset email failed")
			if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
				s.log.Error().Err(clearErr).Int64("user_id", user.ID).Msg("clear reset token failed")
			}
			return ForgotPasswordResult{}, apperr.Internal("Error sending reset email", err)
		}
	}

	return ForgotPasswordResult{ResetURL: resetURL, ExpiresAt: expiresAt}, nil
}

// ResetPassword consumes a reset token, sets the new password and logs the
// user in.
func (s *AuthService) ResetPassword(ctx context.Context, token string, password string) (AuthResult, error) {
	if len(password) < minPasswordLength {
		return AuthResult{}, apperr.Validation("Password must be at least 8 characters")
	}

	user, err := s.users.FindByResetHash(ctx, security.HashResetToken(token), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperr.Validation("Invalid or expired token")
		}
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return AuthResult{}, fmt.Errorf("update password: %w", err)
	}
	user.PasswordHash = passwordHash
	user.ResetTokenHash = nil
	user.ResetExpiresAt = nil

	s.log.Info().Int64("user_id", user.ID).Msg("password reset")

	return s.startSession(ctx, user)
}

// startSession issues a pair and makes its refresh token the only valid one.
func (s *AuthService) startSession(ctx context.Context, user models.User) (AuthResult, error) {
	pair, err := s.tokens.IssuePair(user.ID, string(user.Role))
	if err != nil {
		return AuthResult{}, err
	}

	hash := security.HashRefreshToken(pair.RefreshToken)
	if err := s.users.SetRefreshToken(ctx, user.ID, hash); err != nil {
		return AuthResult{}, fmt.Errorf("store refresh token: %w", err)
	}
	user.RefreshTokenHash = hash

	return AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		RefreshTTL:   pair.RefreshTTL,
		User:         user,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
