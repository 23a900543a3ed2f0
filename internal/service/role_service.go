package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repository"
)

var errRoleNotFound = apperr.NotFound("Role not found")

type RoleService struct {
	roles RoleRepository
	users UserRepository
	log   zerolog.Logger
}

func NewRoleService(roles RoleRepository, users UserRepository, log zerolog.Logger) *RoleService {
	return &RoleService{roles: roles, users: users, log: log}
}

func describe(text string) *string { return &text }

// DefaultRoles are seeded into an empty roles table at startup.
var DefaultRoles = []models.Role{
	{
		Name:        models.RoleCustomer,
		Permissions: []string{"view_products", "place_orders", "view_own_orders"},
		Description: describe("Regular customer role"),
	},
	{
		Name: models.RoleShopOwner,
		Permissions: []string{
			"view_products",
			"place_orders",
			"view_own_orders",
			"manage_own_store",
			"manage_own_products",
		},
		Description: describe("Store owner role"),
	},
	{
		Name: models.RoleAdmin,
		Permissions: []string{
			"view_products",
			"place_orders",
			"view_all_orders",
			"manage_all_stores",
			"manage_all_products",
			"manage_users",
			"manage_roles",
		},
		Description: describe("Administrator role"),
	},
}

func (s *RoleService) EnsureDefaults(ctx context.Context) error {
	count, err := s.roles.Count(ctx)
	if err != nil {
		return fmt.Errorf("count roles: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, role := range DefaultRoles {
		if _, err := s.roles.Create(ctx, role); err != nil && !errors.Is(err, repository.ErrRoleExists) {
			return fmt.Errorf("seed role %s: %w", role.Name, err)
		}
	}
	s.log.Info().Int("count", len(DefaultRoles)).Msg("default roles created")
	return nil
}

func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	return s.roles.List(ctx)
}

func (s *RoleService) Create(ctx context.Context, role models.Role) (models.Role, error) {
	if !role.Name.Valid() {
		return models.Role{}, apperr.Validation("Invalid role name")
	}
	created, err := s.roles.Create(ctx, role)
	if err != nil {
		if errors.Is(err, repository.ErrRoleExists) {
			return models.Role{}, apperr.Validation("Role already exists")
		}
		return models.Role{}, err
	}
	return created, nil
}

func (s *RoleService) Update(ctx context.Context, name models.UserRole, update repository.RoleUpdate) (models.Role, error) {
	if update.Permissions == nil && update.Description == nil {
		return models.Role{}, apperr.Validation("No valid fields to update")
	}
	role, err := s.roles.Update(ctx, name, update)
	if err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return models.Role{}, errRoleNotFound
		}
		return models.Role{}, err
	}
	return role, nil
}

// Delete refuses while any user still holds the role.
func (s *RoleService) Delete(ctx context.Context, name models.UserRole) error {
	if _, err := s.roles.GetByName(ctx, name); err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return errRoleNotFound
		}
		return err
	}

	holders, err := s.users.CountByRole(ctx, name)
	if err != nil {
		return err
	}
	if holders > 0 {
		return apperr.Validation(fmt.Sprintf("Cannot delete role. %d users have this role assigned.", holders))
	}

	if err := s.roles.Delete(ctx, name); err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return errRoleNotFound
		}
		return err
	}
	return nil
}
