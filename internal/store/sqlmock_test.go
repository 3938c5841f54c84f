package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDB creates a gorm handle over a sqlmock connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUpdateThreshold_SQL(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "slots" SET`)).
		WithArgs(Any{}, Any{}, Any{}, "A1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := s.UpdateThreshold(context.Background(), "A1", 20)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateThreshold_SQLSkippedWhenOutOfRange(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	// Out-of-range thresholds are rejected before any store access.
	ok, err := s.UpdateThreshold(context.Background(), "A1", 900)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentEvents_SQL(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "telemetry_events" WHERE slot_label = $1 AND device_code = $2 ORDER BY received_at DESC, id DESC LIMIT $3`)).
		WithArgs("A1", "NODE-001", 500).
		WillReturnRows(sqlmock.NewRows([]string{"id", "device_code", "sensor_code", "slot_label", "distance_cm", "status_after", "received_at"}).
			AddRow(1, "NODE-001", "S1", "A1", 12.5, "Occupied", now))

	events, err := s.RecentEvents(context.Background(), 9000, "A1", "NODE-001")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "NODE-001", events[0].DeviceCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
