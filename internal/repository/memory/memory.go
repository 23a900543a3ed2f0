// Package memory holds in-process implementations of the repositories with
// the same error contract as the Postgres ones. Tests use them in place of a
// database.
package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"
)

type DB struct {
	mu       sync.Mutex
	counters map[string]int64
	users    map[int64]models.User
	roles    map[models.UserRole]models.Role
	stores   map[int64]models.Store
}

func New() *DB {
	return &DB{
		counters: make(map[string]int64),
		users:    make(map[int64]models.User),
		roles:    make(map[models.UserRole]models.Role),
		stores:   make(map[int64]models.Store),
	}
}

func (db *DB) Users() *Users   { return &Users{db: db} }
func (db *DB) Roles() *Roles   { return &Roles{db: db} }
func (db *DB) Stores() *Stores { return &Stores{db: db} }

func (db *DB) next(name string) int64 {
	db.counters[name]++
	return db.counters[name]
}

type Users struct {
	db *DB
}

func (r *Users) Create(_ context.Context, user models.User) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return models.User{}, repository.ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	user.ID = r.db.next(repository.CounterUserID)
	user.CreatedAt = now
	user.UpdatedAt = now
	r.db.users[user.ID] = user
	return user, nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (models.User, error) {
	return r.find(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *Users) GetByID(_ context.Context, id int64) (models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r *Users) FindByRefreshHash(_ context.Context, hash []byte) (models.User, error) {
	return r.find(func(u models.User) bool {
		return u.RefreshTokenHash != nil && bytes.Equal(u.RefreshTokenHash, hash)
	})
}

func (r *Users) FindByResetHash(_ context.Context, hash string, now time.Time) (models.User, error) {
	return r.find(func(u models.User) bool {
		return u.ResetTokenHash != nil && *u.ResetTokenHash == hash &&
			u.ResetExpiresAt != nil && u.ResetExpiresAt.After(now)
	})
}

func (r *Users) List(_ context.Context) ([]models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	users := make([]models.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *Users) SetRefreshToken(_ context.Context, id int64, hash []byte) error {
	return r.mutate(id, func(u *models.User) { u.RefreshTokenHash = hash })
}

func (r *Users) RotateRefreshToken(_ context.Context, id int64, previous []byte, next []byte) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok || user.RefreshTokenHash == nil || !bytes.Equal(user.RefreshTokenHash, previous) {
		return repository.ErrStaleRefreshToken
	}
	user.RefreshTokenHash = next
	user.UpdatedAt = time.Now().UTC()
	r.db.users[id] = user
	return nil
}

func (r *Users) SetResetToken(_ context.Context, id int64, hash string, expiresAt time.Time) error {
	return r.mutate(id, func(u *models.User) {
		u.ResetTokenHash = &hash
		u.ResetExpiresAt = &expiresAt
	})
}

func (r *Users) ClearResetToken(_ context.Context, id int64) error {
	return r.mutate(id, func(u *models.User) {
		u.ResetTokenHash = nil
		u.ResetExpiresAt = nil
	})
}

func (r *Users) UpdatePassword(_ context.Context, id int64, passwordHash []byte) error {
	return r.mutate(id, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.ResetTokenHash = nil
		u.ResetExpiresAt = nil
	})
}

func (r *Users) Update(_ context.Context, id int64, update repository.UserUpdate) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	if update.Email != nil {
		for _, other := range r.db.users {
			if other.ID != id && strings.EqualFold(other.Email, *update.Email) {
				return models.User{}, repository.ErrEmailTaken
			}
		}
		user.Email = *update.Email
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	user.UpdatedAt = time.Now().UTC()
	r.db.users[id] = user
	return user, nil
}

func (r *Users) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.db.users, id)
	for storeID, store := range r.db.stores {
		if store.OwnerID == id {
			delete(r.db.stores, storeID)
		}
	}
	return nil
}

func (r *Users) CountByRole(_ context.Context, role models.UserRole) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	count := 0
	for _, u := range r.db.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

func (r *Users) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var cleared int64
	for id, u := range r.db.users {
		if u.ResetExpiresAt != nil && !u.ResetExpiresAt.After(now) {
			u.ResetTokenHash = nil
			u.ResetExpiresAt = nil
			r.db.users[id] = u
			cleared++
		}
	}
	return cleared, nil
}

func (r *Users) find(match func(models.User) bool) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (r *Users) mutate(id int64, apply func(*models.User)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	apply(&user)
	user.UpdatedAt = time.Now().UTC()
	r.db.users[id] = user
	return nil
}

type Roles struct {
	db *DB
}

func (r *Roles) Create(_ context.Context, role models.Role) (models.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.roles[role.Name]; ok {
		return models.Role{}, repository.ErrRoleExists
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now
	r.db.roles[role.Name] = role
	return role, nil
}

func (r *Roles) GetByName(_ context.Context, name models.UserRole) (models.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	role, ok := r.db.roles[name]
	if !ok {
		return models.Role{}, repository.ErrRoleNotFound
	}
	return role, nil
}

func (r *Roles) List(_ context.Context) ([]models.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	roles := make([]models.Role, 0, len(r.db.roles))
	for _, name := range models.Roles {
		if role, ok := r.db.roles[name]; ok {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (r *Roles) Update(_ context.Context, name models.UserRole, update repository.RoleUpdate) (models.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	role, ok := r.db.roles[name]
	if !ok {
		return models.Role{}, repository.ErrRoleNotFound
	}
	if update.Permissions != nil {
		role.Permissions = append([]string{}, (*update.Permissions)...)
	}
	if update.Description != nil {
		description := *update.Description
		role.Description = &description
	}
	role.UpdatedAt = time.Now().UTC()
	r.db.roles[name] = role
	return role, nil
}

func (r *Roles) Delete(_ context.Context, name models.UserRole) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.roles[name]; !ok {
		return repository.ErrRoleNotFound
	}
	delete(r.db.roles, name)
	return nil
}

func (r *Roles) Count(_ context.Context) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.db.roles), nil
}

type Stores struct {
	db *DB
}

func (r *Stores) Create(_ context.Context, store models.Store) (models.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[store.OwnerID]; !ok {
		return models.Store{}, repository.ErrUserNotFound
	}
	now := time.Now().UTC()
	store.ID = r.db.next(repository.CounterStoreID)
	store.CreatedAt = now
	store.UpdatedAt = now
	store.Owner = nil
	r.db.stores[store.ID] = store
	return store, nil
}

func (r *Stores) GetByID(_ context.Context, id int64) (models.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	store, ok := r.db.stores[id]
	if !ok {
		return models.Store{}, repository.ErrStoreNotFound
	}
	return r.withOwner(store), nil
}

func (r *Stores) List(_ context.Context, filter repository.StoreFilter) ([]models.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stores := make([]models.Store, 0, len(r.db.stores))
	for _, store := range r.db.stores {
		if filter.ActiveOnly && !store.IsActive {
			continue
		}
		if filter.OwnerID != nil && store.OwnerID != *filter.OwnerID {
			continue
		}
		stores = append(stores, r.withOwner(store))
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].ID < stores[j].ID })
	return stores, nil
}

func (r *Stores) Update(_ context.Context, store models.Store) (models.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.stores[store.ID]
	if !ok {
		return models.Store{}, repository.ErrStoreNotFound
	}
	store.OwnerID = existing.OwnerID
	store.CreatedAt = existing.CreatedAt
	store.UpdatedAt = time.Now().UTC()
	store.Owner = nil
	r.db.stores[store.ID] = store
	return r.withOwner(store), nil
}

func (r *Stores) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.stores[id]; !ok {
		return repository.ErrStoreNotFound
	}
	delete(r.db.stores, id)
	return nil
}

func (r *Stores) withOwner(store models.Store) models.Store {
	if owner, ok := r.db.users[store.OwnerID]; ok {
		store.Owner = &models.StoreOwner{ID: owner.ID, Name: owner.Name, Email: owner.Email}
	}
	return store
}
