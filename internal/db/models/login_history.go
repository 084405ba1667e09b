package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrLoginHistoryImmutable is returned when code tries to update or delete a login history entry.
var ErrLoginHistoryImmutable = errors.New("login history entries are append-only")

// LoginHistory is one authentication attempt, successful or not.
// Entries are written once and never mutated or deleted.
type LoginHistory struct {
	// ID is the entry identifier (UUID).
	ID string `gorm:"primaryKey;size:36" json:"id"`
	// Username is the username as attempted, even when it is unknown or invalid.
	Username string `gorm:"size:256;not null;index" json:"username"`
	// Timestamp is the time the outcome was known.
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	// Success reports whether the attempt authenticated the user.
	Success bool `gorm:"not null" json:"success"`
	// FailureReason is the precise internal reason of a failed attempt.
	FailureReason *string `gorm:"size:500" json:"failureReason,omitempty"`
	// SourceAddress is the client address of the attempt.
	SourceAddress *string `gorm:"size:45" json:"sourceAddress,omitempty"`
	// UserAgent is the client user agent of the attempt.
	UserAgent *string `gorm:"size:500" json:"userAgent,omitempty"`
	// UserID references the reconciled user of a successful attempt.
	UserID *string `gorm:"size:36;index" json:"userId,omitempty"`
}

// TableName specifies the database table name for the LoginHistory model.
func (LoginHistory) TableName() string {
	return "login_history"
}

// BeforeUpdate rejects every update through gorm.
func (LoginHistory) BeforeUpdate(_ *gorm.DB) error {
	return ErrLoginHistoryImmutable
}

// BeforeDelete rejects every delete through gorm.
func (LoginHistory) BeforeDelete(_ *gorm.DB) error {
	return ErrLoginHistoryImmutable
}
