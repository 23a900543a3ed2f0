package models

import "time"

type UserRole string

const (
	RoleCustomer  UserRole = "customer"
	RoleShopOwner UserRole = "shop-owner"
	RoleAdmin     UserRole = "admin"
)

// Roles lists the closed set of role names, in seeding order.
var Roles = []UserRole{RoleCustomer, RoleShopOwner, RoleAdmin}

func (r UserRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleShopOwner, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID               int64
	Name             string
	Email            string
	PasswordHash     []byte
	Role             UserRole
	RefreshTokenHash []byte
	ResetTokenHash   *string
	ResetExpiresAt   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Role struct {
	Name        UserRole
	Permissions []string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
