package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/models"
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

type RoleUpdate struct {
	Permissions *[]string
	Description *string
}

func (r *RoleRepository) Create(ctx context.Context, role models.Role) (models.Role, error) {
	const query = `
		INSERT INTO roles (name, permissions, description, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	err := r.pool.QueryRow(ctx, query, string(role.Name), role.Permissions, role.Description).
		Scan(&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Role{}, ErrRoleExists
		}
		return models.Role{}, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

func (r *RoleRepository) GetByName(ctx context.Context, name models.UserRole) (models.Role, error) {
	const query = `SELECT name, permissions, description, created_at, updated_at FROM roles WHERE name = $1`
	return scanRole(r.pool.QueryRow(ctx, query, string(name)))
}

func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	const query = `SELECT name, permissions, description, created_at, updated_at FROM roles ORDER BY created_at, name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]models.Role, 0, len(models.Roles))
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepository) Update(ctx context.Context, name models.UserRole, update RoleUpdate) (models.Role, error) {
	const query = `
		UPDATE roles
		SET permissions = COALESCE($2, permissions),
		    description = COALESCE($3, description),
		    updated_at = NOW()
		WHERE name = $1
		RETURNING name, permissions, description, created_at, updated_at
	`
	var permissions []string
	if update.Permissions != nil {
		permissions = *update.Permissions
		if permissions == nil {
			permissions = []string{}
		}
	}
	return scanRole(r.pool.QueryRow(ctx, query, string(name), permissions, update.Description))
}

func (r *RoleRepository) Delete(ctx context.Context, name models.UserRole) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE name = $1`, string(name))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanRole(row pgx.Row) (models.Role, error) {
	var (
		role models.Role
		name string
	)
	if err := row.Scan(&name, &role.Permissions, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Role{}, ErrRoleNotFound
		}
		return models.Role{}, err
	}
	role.Name = models.UserRole(name)
	return role, nil
}
