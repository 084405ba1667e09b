// Package models contains database model definitions.
package models

import (
	"time"

	"github.com/GoLoginSystem/GoLoginSystem/internal/rbac"
)

// User is the durable local record of an externally authenticated identity.
// It exists for the audit trail and last-login tracking; the external
// directory or identity provider stays the source of truth for credentials.
//
// At most one active user exists per ExternalUsername. The unique index spans
// ExternalUsername and Tombstone: active rows keep Tombstone at zero, and
// deactivation stamps a non-zero value so the username can be reconciled into
// a fresh row later while the old row stays for the audit trail.
type User struct {
	// ID is the stable surrogate identifier (UUID), generated once at creation.
	ID string `gorm:"primaryKey;size:36" json:"id"`
	// ExternalUsername is the case-sensitive match key from the directory or IdP.
	ExternalUsername string `gorm:"size:256;not null;uniqueIndex:idx_users_username_tombstone" json:"username"`
	// Tombstone is zero for active users and the deactivation time in unix nanoseconds otherwise.
	Tombstone int64 `gorm:"not null;default:0;uniqueIndex:idx_users_username_tombstone" json:"-"`
	// DisplayName is refreshed from the identity source on every login.
	DisplayName string `gorm:"size:256" json:"displayName"`
	// Email is refreshed from the identity source on every login.
	Email string `gorm:"size:256" json:"email"`
	// Role is a snapshot taken at creation. Reconciliation never overwrites it;
	// only the administrative update path does.
	Role rbac.Role `gorm:"type:varchar(50);not null" json:"role"`
	// LastLoginAt is the time of the last successful authentication.
	LastLoginAt time.Time `json:"lastLoginAt"`
	// IsActive is the soft delete flag. Inactive users are excluded from all active lookups.
	IsActive bool `gorm:"not null;index" json:"isActive"`
	// CreatedAt is managed by gorm.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is managed by gorm.
	UpdatedAt time.Time `json:"-"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}
