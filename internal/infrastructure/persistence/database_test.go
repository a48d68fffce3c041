package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/propmgr/ledger/internal/infrastructure/config"
	"github.com/propmgr/ledger/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	gormlogger "gorm.io/gorm/logger"
)

func testDatabaseConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		DBName:          "ledger",
		MaxOpenConns:    7,
		MaxIdleConns:    3,
		ConnMaxLifetime: 60,
		ConnMaxIdleTime: 30,
	}
}

// newMockDatabase opens a Database over sqlmock; the mock expects the initial ping
func newMockDatabase(t *testing.T, opts ...DatabaseOption) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()

	dialector := postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"})
	db, err := NewDatabase(testDatabaseConfig(), append([]DatabaseOption{WithDialector(dialector)}, opts...)...)
	require.NoError(t, err)
	return db, mock
}

func TestNewDatabase(t *testing.T) {
	db, mock := newMockDatabase(t, WithLogger(zaptest.NewLogger(t), gormlogger.Warn))

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 7, stats.MaxOpenConnections)

	mock.ExpectClose()
	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewDatabase_PingFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()
	mock.ExpectPing().WillReturnError(assert.AnError)

	dialector := postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"})
	_, err = NewDatabase(testDatabaseConfig(), WithDialector(dialector))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping database")
}

func TestNewDatabase_WithTracing(t *testing.T) {
	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{Enabled: true}, zaptest.NewLogger(t))
	db, _ := newMockDatabase(t, WithTracing(plugin))

	assert.NotNil(t, db.DB.Callback().Query().Get("otel:after:select"))
	assert.NotNil(t, db.DB.Callback().Query().Get("ledger_tracing:after_query"))
}

func TestDatabase_Ping(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectPing()
	require.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(assert.AnError)
	assert.ErrorIs(t, db.Ping(context.Background()), assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
