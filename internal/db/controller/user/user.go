// Package user owns the lifecycle of local user records: reconciliation of
// external identities on login and the administrative update path.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GoLoginSystem/GoLoginSystem/internal/db/models"
	"github.com/GoLoginSystem/GoLoginSystem/internal/identity"
	"github.com/GoLoginSystem/GoLoginSystem/internal/rbac"
)

const (
	whereActiveUsername = "external_username = ? AND is_active = ?"
	whereActiveID       = "id = ? AND is_active = ?"

	// maxReconcileAttempts bounds the insert/lookup loop when concurrent
	// first logins race for the same username.
	maxReconcileAttempts = 3
)

var (
	// ErrUserNotFound is returned when no active user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameEmpty is returned when reconciling an identity without a username.
	ErrUsernameEmpty = errors.New("external username cannot be empty")
	// ErrInvalidRole is returned by the admin update path for unknown roles.
	ErrInvalidRole = errors.New("invalid role")
	// ErrReconcileConflict is returned when the insert kept conflicting but no active row could be read back.
	ErrReconcileConflict = errors.New("user reconciliation kept conflicting")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Store persists users.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a new user store.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	return &Store{db: db, now: time.Now}, nil
}

// Reconcile upserts the local user for id.
//
// An existing active user gets display name, email and last login refreshed.
// Its role is left alone: role changes are an explicit admin action, so a
// directory side promotion is not reflected until an admin edits the user.
// A missing user is created with role.
//
// Creation is an atomic create-if-absent (insert ... on conflict do nothing);
// losing a race against a concurrent first login falls back to the lookup path
// so exactly one row exists per active username.
func (s *Store) Reconcile(ctx context.Context, id identity.Identity, role rbac.Role) (*models.User, error) {
	if id.ExternalUsername == "" {
		return nil, ErrUsernameEmpty
	}

	db := s.db.WithContext(ctx)

	for attempt := 0; attempt < maxReconcileAttempts; attempt++ {
		now := s.now().UTC()

		existing, err := s.activeByUsername(db, id.ExternalUsername)

		switch {
		case err == nil:
			return s.refresh(db, existing, id, now)
		case !errors.Is(err, ErrUserNotFound):
			return nil, err
		}

		user := models.User{
			ID:               uuid.NewString(),
			ExternalUsername: id.ExternalUsername,
			DisplayName:      id.DisplayName,
			Email:            id.Email,
			Role:             role,
			LastLoginAt:      now,
			IsActive:         true,
		}

		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to create user: %w", result.Error)
		}

		if result.RowsAffected == 1 {
			log.Info().Str("user_id", user.ID).Str("username", user.ExternalUsername).
				Str("role", user.Role.String()).Msg("created user on first login")

			return &user, nil
		}

		log.Debug().Str("username", id.ExternalUsername).Int("attempt", attempt+1).
			Msg("concurrent first login detected, retrying lookup")
	}

	return nil, ErrReconcileConflict
}

func (s *Store) refresh(db *gorm.DB, user *models.User, id identity.Identity, now time.Time) (*models.User, error) {
	err := db.Model(&models.User{}).
		Where(whereActiveID, user.ID, true).
		Updates(map[string]interface{}{
			"display_name":  id.DisplayName,
			"email":         id.Email,
			"last_login_at": now,
			"updated_at":    now,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	user.DisplayName = id.DisplayName
	user.Email = id.Email
	user.LastLoginAt = now
	user.UpdatedAt = now

	return user, nil
}

func (s *Store) activeByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User

	err := db.Where(whereActiveUsername, username, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// GetActiveByUsername returns the active user with the given external username.
func (s *Store) GetActiveByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.activeByUsername(s.db.WithContext(ctx), username)
}

// GetActiveByID returns the active user with the given id.
func (s *Store) GetActiveByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).Where(whereActiveID, id, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// ListActive returns all active users ordered by display name.
func (s *Store) ListActive(ctx context.Context) ([]models.User, error) {
	var users []models.User

	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_name ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// Patch holds the optional fields of an administrative update.
// Nil fields are left unchanged.
type Patch struct {
	DisplayName *string
	Email       *string
	Role        *rbac.Role
}

// Update applies an administrative patch to an active user.
// This is the only path that changes a stored role.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (*models.User, error) {
	user, err := s.GetActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if patch.DisplayName != nil {
		updates["display_name"] = *patch.DisplayName
	}

	if patch.Email != nil {
		updates["email"] = *patch.Email
	}

	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, ErrInvalidRole
		}

		updates["role"] = *patch.Role
	}

	if len(updates) == 0 {
		return user, nil
	}

	updates["updated_at"] = s.now().UTC()

	if err = s.db.WithContext(ctx).Model(&models.User{}).
		Where(whereActiveID, id, true).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if patch.Role != nil && *patch.Role != user.Role {
		log.Info().Str("user_id", id).Str("from", user.Role.String()).Str("to", patch.Role.String()).
			Msg("user role changed by admin")
	}

	return s.GetActiveByID(ctx, id)
}

// Deactivate soft deletes an active user. The row is kept for the audit trail.
func (s *Store) Deactivate(ctx context.Context, id string) error {
	now := s.now().UTC()

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where(whereActiveID, id, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"tombstone":  now.UnixNano(),
			"updated_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate user: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
