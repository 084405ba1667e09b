package loginhistory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GoLoginSystem/GoLoginSystem/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.LoginHistory{}), "failed to migrate test database")

	return db
}

// newTestLog returns a log whose clock advances one second per call.
func newTestLog(t *testing.T) (*Log, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)

	l, err := NewLog(db)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	return l, db
}

func TestNewLog_NilDB(t *testing.T) {
	_, err := NewLog(nil)
	require.ErrorIs(t, err, ErrDBNil)
}

func TestRecord(t *testing.T) {
	tests := []struct {
		name   string
		entry  Entry
		verify func(t *testing.T, got models.LoginHistory)
	}{
		{
			name:  "failed attempt keeps reason and leaves user id empty",
			entry: Entry{Username: "viewer", FailureReason: "InvalidCredentials", SourceAddress: "10.0.0.1", UserAgent: "curl/8"},
			verify: func(t *testing.T, got models.LoginHistory) {
				assert.False(t, got.Success)
				require.NotNil(t, got.FailureReason)
				assert.Equal(t, "InvalidCredentials", *got.FailureReason)
				require.NotNil(t, got.SourceAddress)
				assert.Equal(t, "10.0.0.1", *got.SourceAddress)
				assert.Nil(t, got.UserID)
			},
		},
		{
			name:  "successful attempt links the user",
			entry: Entry{Username: "admin", Success: true, UserID: "u-1"},
			verify: func(t *testing.T, got models.LoginHistory) {
				assert.True(t, got.Success)
				assert.Nil(t, got.FailureReason)
				assert.Nil(t, got.SourceAddress)
				assert.Nil(t, got.UserAgent)
				require.NotNil(t, got.UserID)
				assert.Equal(t, "u-1", *got.UserID)
			},
		},
		{
			name:  "long username is truncated to its column",
			entry: Entry{Username: strings.Repeat("u", 300), FailureReason: "InvalidCredentials"},
			verify: func(t *testing.T, got models.LoginHistory) {
				assert.Len(t, got.Username, 256)
				assert.False(t, got.Success)
			},
		},
		{
			name:  "long user agent is truncated",
			entry: Entry{Username: "x", UserAgent: strings.Repeat("a", 600)},
			verify: func(t *testing.T, got models.LoginHistory) {
				require.NotNil(t, got.UserAgent)
				assert.Len(t, *got.UserAgent, 500)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, db := newTestLog(t)

			rec, err := l.Record(context.Background(), tt.entry)
			require.NoError(t, err)
			assert.NotEmpty(t, rec.ID)
			assert.False(t, rec.Timestamp.IsZero())

			var stored models.LoginHistory
			require.NoError(t, db.First(&stored, "id = ?", rec.ID).Error)
			assert.Equal(t, tt.entry.Username, stored.Username)
			tt.verify(t, stored)
		})
	}
}

func TestRecord_EmptyUsername(t *testing.T) {
	l, _ := newTestLog(t)

	_, err := l.Record(context.Background(), Entry{})
	require.ErrorIs(t, err, ErrUsernameEmpty)
}

func TestEntriesAreImmutable(t *testing.T) {
	l, db := newTestLog(t)

	rec, err := l.Record(context.Background(), Entry{Username: "viewer", FailureReason: "InvalidCredentials"})
	require.NoError(t, err)

	err = db.Model(&models.LoginHistory{}).Where("id = ?", rec.ID).Update("success", true).Error
	require.ErrorIs(t, err, models.ErrLoginHistoryImmutable)

	err = db.Delete(&models.LoginHistory{ID: rec.ID}).Error
	require.ErrorIs(t, err, models.ErrLoginHistoryImmutable)

	var stored models.LoginHistory
	require.NoError(t, db.First(&stored, "id = ?", rec.ID).Error)
	assert.False(t, stored.Success)
}

func TestQueries(t *testing.T) {
	l, _ := newTestLog(t)
	ctx := context.Background()

	for _, e := range []Entry{
		{Username: "admin", Success: true, UserID: "u-admin"},
		{Username: "viewer", FailureReason: "InvalidCredentials"},
		{Username: "admin", Success: true, UserID: "u-admin"},
		{Username: "admin", FailureReason: "InvalidCredentials"},
	} {
		_, err := l.Record(ctx, e)
		require.NoError(t, err)
	}

	recent, err := l.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 4)
	assert.Equal(t, "admin", recent[0].Username)
	assert.False(t, recent[0].Success)
	assert.True(t, recent[0].Timestamp.After(recent[3].Timestamp))

	limited, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	byName, err := l.ByUsername(ctx, "admin", 10)
	require.NoError(t, err)
	assert.Len(t, byName, 3)

	byUser, err := l.ByUserID(ctx, "u-admin", 10)
	require.NoError(t, err)
	require.Len(t, byUser, 2)

	for _, e := range byUser {
		assert.True(t, e.Success)
	}

	none, err := l.ByUsername(ctx, "ghost", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, DefaultLimit, clamp(0))
	assert.Equal(t, DefaultLimit, clamp(-3))
	assert.Equal(t, 10, clamp(10))
	assert.Equal(t, MaxLimit, clamp(MaxLimit+1))
}
