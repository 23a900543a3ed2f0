package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/security"
)

var (
	errUserNotFound = apperr.NotFound("User not found")
	errNoUserFields = apperr.Validation("No valid fields to update")
	errEmailInUse   = apperr.Validation("Email already in use")
)

type UserService struct {
	users UserRepository
	log   zerolog.Logger
}

func NewUserService(users UserRepository, log zerolog.Logger) *UserService {
	return &UserService{users: users, log: log}
}

func (s *UserService) Get(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, errUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// UpdateProfile lets a user change their own name and nothing else.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, name *string) (models.User, error) {
	if name == nil {
		return models.User{}, errNoUserFields
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return models.User{}, apperr.Validation("Name cannot be empty")
	}
	return s.update(ctx, id, repository.UserUpdate{Name: &trimmed})
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     models.UserRole
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (models.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" || strings.TrimSpace(input.Name) == "" {
		return models.User{}, apperr.Validation("Please provide name, email and password")
	}
	if len(input.Password) < minPasswordLength {
		return models.User{}, apperr.Validation("Password must be at least 8 characters")
	}

	role := input.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() {
		return models.User{}, apperr.Validation("Invalid role")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, errEmailInUse
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.Create(ctx, models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, errEmailInUse
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id int64, update repository.UserUpdate) (models.User, error) {
	if update.Name == nil && update.Email == nil && update.Role == nil {
		return models.User{}, errNoUserFields
	}
	if update.Role != nil && !update.Role.Valid() {
		return models.User{}, apperr.Validation("Invalid role")
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if email == "" {
			return models.User{}, apperr.Validation("Please provide a valid email")
		}
		update.Email = &email

		existing, err := s.users.FindByEmail(ctx, email)
		if err == nil && existing.ID != id {
			return models.User{}, errEmailInUse
		}
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, err
		}
	}
	return s.update(ctx, id, update)
}

// Delete removes a user. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor models.User, id int64) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.ID == actor.ID {
		return apperr.Validation("Cannot delete your own account")
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errUserNotFound
		}
		return err
	}
	s.log.Info().Int64("user_id", user.ID).Int64("actor_id", actor.ID).Msg("user deleted")
	return nil
}

func (s *UserService) update(ctx context.Context, id int64, update repository.UserUpdate) (models.User, error) {
	user, err := s.users.Update(ctx, id, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return models.User{}, errUserNotFound
		case errors.Is(err, repository.ErrEmailTaken):
			return models.User{}, errEmailInUse
		}
		return models.User{}, err
	}
	return user, nil
}
