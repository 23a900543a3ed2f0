package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/models"
)

const storeColumns = `
	s.id, s.name, s.description, s.logo, s.cover_image, s.owner_id, s.contact_email, s.contact_phone,
	s.address, s.social_media, s.is_active, s.theme, s.settings, s.analytics, s.created_at, s.updated_at,
	u.name, u.email
`

type StoreRepository struct {
	pool *pgxpool.Pool
}

func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

// StoreFilter narrows List. Zero value lists every store.
type StoreFilter struct {
	ActiveOnly bool
	OwnerID    *int64
}

func (r *StoreRepository) Create(ctx context.Context, store models.Store) (models.Store, error) {
	const query = `
		INSERT INTO stores (
			id, name, description, logo, cover_image, owner_id, contact_email, contact_phone,
			address, social_media, is_active, theme, settings, analytics, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		id, err := nextSequence(ctx, tx, CounterStoreID)
		if err != nil {
			return err
		}
		store.ID = id
		return tx.QueryRow(ctx, query,
			store.ID,
			store.Name,
			store.Description,
			store.Logo,
			store.CoverImage,
			store.OwnerID,
			store.ContactEmail,
			store.ContactPhone,
			store.Address,
			store.SocialMedia,
			store.IsActive,
			store.Theme,
			store.Settings,
			store.Analytics,
		).Scan(&store.CreatedAt, &store.UpdatedAt)
	})
	if err != nil {
		return models.Store{}, fmt.Errorf("create store: %w", err)
	}
	return store, nil
}

func (r *StoreRepository) GetByID(ctx context.Context, id int64) (models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores s JOIN users u ON u.id = s.owner_id WHERE s.id = $1`
	return scanStore(r.pool.QueryRow(ctx, query, id))
}

func (r *StoreRepository) List(ctx context.Context, filter StoreFilter) ([]models.Store, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.ActiveOnly {
		conditions = append(conditions, "s.is_active")
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("s.owner_id = $%d", len(args)))
	}

	query := `SELECT ` + storeColumns + ` FROM stores s JOIN users u ON u.id = s.owner_id`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY s.id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := make([]models.Store, 0)
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, rows.Err()
}

// Update writes every mutable column of store. Owner and id never change.
func (r *StoreRepository) Update(ctx context.Context, store models.Store) (models.Store, error) {
	const query = `
		UPDATE stores
		SET name = $2,
		    description = $3,
		    logo = $4,
		    cover_image = $5,
		    contact_email = $6,
		    contact_phone = $7,
		    address = $8,
		    social_media = $9,
		    is_active = $10,
		    theme = $11,
		    settings = $12,
		    analytics = $13,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		store.ID,
		store.Name,
		store.Description,
		store.Logo,
		store.CoverImage,
		store.ContactEmail,
		store.ContactPhone,
		store.Address,
		store.SocialMedia,
		store.IsActive,
		store.Theme,
		store.Settings,
		store.Analytics,
	).Scan(&store.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Store{}, ErrStoreNotFound
		}
		return models.Store{}, err
	}
	return store, nil
}

func (r *StoreRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStoreNotFound
	}
	return nil
}

func scanStore(row pgx.Row) (models.Store, error) {
	var (
		store models.Store
		owner models.StoreOwner
	)
	if err := row.Scan(
		&store.ID,
		&store.Name,
		&store.Description,
		&store.Logo,
		&store.CoverImage,
		&store.OwnerID,
		&store.ContactEmail,
		&store.ContactPhone,
		&store.Address,
		&store.SocialMedia,
		&store.IsActive,
		&store.Theme,
		&store.Settings,
		&store.Analytics,
		&store.CreatedAt,
		&store.UpdatedAt,
		&owner.Name,
		&owner.Email,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Store{}, ErrStoreNotFound
		}
		return models.Store{}, err
	}
	owner.ID = store.OwnerID
	store.Owner = &owner
	return store, nil
}
