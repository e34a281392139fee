//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/paper-assistant-service/internal/config"
	"github.com/helixir/paper-assistant-service/internal/database"
)

var testDB *database.DB

// TestMain starts a disposable PostgreSQL container unless
// PAPERASSIST_TEST_DB_URL points at an existing database, then applies the
// migrations once for the whole package.
func TestMain(m *testing.M) {
	os.Exit(runMain(m))
}

func runMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbURL := os.Getenv("PAPERASSIST_TEST_DB_URL")
	if dbURL == "" {
		container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("paper_assistant_test"),
			tcpostgres.WithUsername("paperassist"),
			tcpostgres.WithPassword("testpassword"),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
			return 1
		}
		defer func() {
			if err := testcontainers.TerminateContainer(container); err != nil {
				fmt.Fprintf(os.Stderr, "failed to terminate container: %v\n", err)
			}
		}()

		dbURL, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read connection string: %v\n", err)
			return 1
		}
	}

	cfg, err := databaseConfig(dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid test database URL: %v\n", err)
		return 1
	}

	db, err := database.New(ctx, cfg, zerolog.Nop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to test database: %v\n", err)
		return 1
	}
	defer db.Close()

	// Path is relative from tests/integration/ to migrations/.
	migrator, err := database.NewMigrator(db, "../../migrations", zerolog.Nop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create migrator: %v\n", err)
		return 1
	}
	if err := migrator.Up(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		return 1
	}
	_ = migrator.Close()

	testDB = db
	return m.Run()
}

func databaseConfig(raw string) (*config.DatabaseConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	password, _ := u.User.Password()
	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}
	return &config.DatabaseConfig{
		Host:           u.Hostname(),
		Port:           port,
		User:           u.User.Username(),
		Password:       password,
		Name:           u.Path[1:],
		SSLMode:        sslMode,
		MaxConns:       4,
		ConnectTimeout: 10 * time.Second,
	}, nil
}

// cleanTables truncates the paper tables between tests.
// Children go with CASCADE.
func cleanTables(t *testing.T) {
	t.Helper()
	if _, err := testDB.Exec(context.Background(), "TRUNCATE TABLE papers CASCADE"); err != nil {
		t.Fatalf("failed to truncate papers: %v", err)
	}
}
