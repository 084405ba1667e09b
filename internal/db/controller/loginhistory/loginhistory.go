// Package loginhistory is the append-only audit log of authentication attempts.
package loginhistory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GoLoginSystem/GoLoginSystem/internal/db/models"
)

const (
	// DefaultLimit is used by queries when the caller passes a non-positive limit.
	DefaultLimit = 50
	// MaxLimit caps the number of entries a single query returns.
	MaxLimit = 500
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrUsernameEmpty is returned when recording an attempt without a username.
	ErrUsernameEmpty = errors.New("username cannot be empty")
)

// Entry describes one attempt to record. Empty optional fields are stored as NULL.
type Entry struct {
	Username      string
	Success       bool
	FailureReason string
	SourceAddress string
	UserAgent     string
	UserID        string
}

// Log writes and queries login history.
type Log struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLog creates a new login history log.
func NewLog(db *gorm.DB) (*Log, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	return &Log{db: db, now: time.Now}, nil
}

// Record appends one entry stamped with the current time.
func (l *Log) Record(ctx context.Context, e Entry) (*models.LoginHistory, error) {
	if e.Username == "" {
		return nil, ErrUsernameEmpty
	}

	entry := models.LoginHistory{
		ID:            uuid.NewString(),
		Username:      truncate(e.Username, 256),
		Timestamp:     l.now().UTC(),
		Success:       e.Success,
		FailureReason: optional(truncate(e.FailureReason, 500)),
		SourceAddress: optional(truncate(e.SourceAddress, 45)),
		UserAgent:     optional(truncate(e.UserAgent, 500)),
		UserID:        optional(e.UserID),
	}

	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to record login attempt: %w", err)
	}

	return &entry, nil
}

// Recent returns the newest entries first.
func (l *Log) Recent(ctx context.Context, limit int) ([]models.LoginHistory, error) {
	return l.find(ctx, limit, "", nil)
}

// ByUsername returns the newest entries for an attempted username first.
func (l *Log) ByUsername(ctx context.Context, username string, limit int) ([]models.LoginHistory, error) {
	return l.find(ctx, limit, "username = ?", username)
}

// ByUserID returns the newest entries linked to a user first.
// Only successful attempts carry a user id.
func (l *Log) ByUserID(ctx context.Context, userID string, limit int) ([]models.LoginHistory, error) {
	return l.find(ctx, limit, "user_id = ?", userID)
}

func (l *Log) find(ctx context.Context, limit int, where string, arg interface{}) ([]models.LoginHistory, error) {
	var entries []models.LoginHistory

	q := l.db.WithContext(ctx).Order("timestamp DESC").Limit(clamp(limit))
	if where != "" {
		q = q.Where(where, arg)
	}

	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to query login history: %w", err)
	}

	return entries, nil
}

func clamp(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n])
}
