package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-assistant-service/internal/config"
)

// mockDBTX is a no-op DBTX used for the interface check.
type mockDBTX struct{}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockDBTX) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (m *mockDBTX) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func TestDBTX_Interface(t *testing.T) {
	var _ DBTX = (*mockDBTX)(nil)
	var _ DBTX = (*DB)(nil)
	var _ TxRunner = (*DB)(nil)
}

func TestDatabaseConfig_DSNParses(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:           "localhost",
		Port:           5432,
		User:           "paperassist",
		Password:       "secret",
		Name:           "paper_assistant",
		SSLMode:        "disable",
		ConnectTimeout: 5 * time.Second,
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "localhost", poolCfg.ConnConfig.Host)
	assert.Equal(t, uint16(5432), poolCfg.ConnConfig.Port)
	assert.Equal(t, "paperassist", poolCfg.ConnConfig.User)
	assert.Equal(t, "paper_assistant", poolCfg.ConnConfig.Database)
	assert.Equal(t, "secret", poolCfg.ConnConfig.Password)
}

func TestHealthCheckTimeout(t *testing.T) {
	assert.Equal(t, 5*time.Second, HealthCheckTimeout)
}

func TestHealthStatus_JSON(t *testing.T) {
	t.Run("healthy omits error", func(t *testing.T) {
		data, err := json.Marshal(HealthStatus{Status: "healthy", TotalConns: 3, MaxConns: 10})
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "healthy", decoded["status"])
		assert.Equal(t, float64(3), decoded["total_conns"])
		assert.NotContains(t, decoded, "error")
	})

	t.Run("unhealthy carries error", func(t *testing.T) {
		data, err := json.Marshal(HealthStatus{Status: "unhealthy", Error: "connection refused"})
		require.NoError(t, err)
		assert.Contains(t, string(data), `"error":"connection refused"`)
	})
}

func TestNew_ConnectionError(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// 192.0.2.1 is TEST-NET-1 (RFC 5737), guaranteed unroutable.
	cfg := &config.DatabaseConfig{
		Host:              "192.0.2.1",
		Port:              5432,
		Name:              "testdb",
		User:              "user",
		Password:          "pass",
		SSLMode:           "disable",
		MaxConns:          5,
		MinConns:          1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    2 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := New(ctx, cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, db)
}

func TestDB_CloseNilPool(t *testing.T) {
	nilDB := &DB{}
	assert.NotPanics(t, func() {
		nilDB.Close()
	})
}

// The tests below need a reachable PostgreSQL and are skipped otherwise.

func TestDB_Methods(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	health := db.Health(ctx)
	assert.Equal(t, "healthy", health.Status)
	assert.GreaterOrEqual(t, health.MaxConns, int32(1))
}

func TestDB_WithTransaction(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	t.Run("successful transaction commits", func(t *testing.T) {
		var result int
		err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
			return tx.QueryRow(ctx, "SELECT 42").Scan(&result)
		})
		require.NoError(t, err)
		assert.Equal(t, 42, result)
	})

	t.Run("failed transaction rolls back", func(t *testing.T) {
		expectedErr := errors.New("intentional failure")
		err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
			return expectedErr
		})
		assert.Equal(t, expectedErr, err)
	})

	t.Run("panic in transaction rolls back and re-panics", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = db.WithTransaction(ctx, func(tx pgx.Tx) error {
				panic("intentional panic")
			})
		})
	})

	t.Run("read only transaction rejects writes", func(t *testing.T) {
		err := db.WithReadOnlyTransaction(ctx, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "CREATE TEMP TABLE ro_probe (id int)")
			return err
		})
		assert.Error(t, err)
	})
}

func TestDB_DBTX(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	var dbtx DBTX = db

	rows, err := dbtx.Query(ctx, "SELECT generate_series(1, 3)")
	require.NoError(t, err)
	var results []int
	for rows.Next() {
		var val int
		require.NoError(t, rows.Scan(&val))
		results = append(results, val)
	}
	rows.Close()
	assert.Equal(t, []int{1, 2, 3}, results)

	batch := &pgx.Batch{}
	batch.Queue("SELECT 1")
	batch.Queue("SELECT 2")
	br := dbtx.SendBatch(ctx, batch)
	var val1, val2 int
	require.NoError(t, br.QueryRow().Scan(&val1))
	require.NoError(t, br.QueryRow().Scan(&val2))
	require.NoError(t, br.Close())
	assert.Equal(t, 1, val1)
	assert.Equal(t, 2, val2)
}

// setupTestDB creates a test database connection.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Host:              "localhost",
		Port:              5432,
		Name:              "paper_assistant",
		User:              "paperassist",
		Password:          "password",
		SSLMode:           "disable",
		MaxConns:          5,
		MinConns:          1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    10 * time.Second,
	}

	db, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
	}

	return db
}
