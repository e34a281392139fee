// Package main provides a CLI tool for paper assistant schema migrations.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-assistant-service/internal/config"
	"github.com/helixir/paper-assistant-service/internal/database"
	"github.com/helixir/paper-assistant-service/internal/observability"
)

type action int

const (
	actionNone action = iota
	actionUp
	actionDown
	actionSteps
	actionVersion
	actionForce
)

var errNoAction = errors.New("no action specified")

// options holds the parsed command line.
type options struct {
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	path    string
	dsn     string
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseOptions(args []string, stderr io.Writer) (options, *flag.FlagSet, error) {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.up, "up", false, "Run all pending migrations")
	fs.BoolVar(&opts.down, "down", false, "Roll back all migrations")
	fs.IntVar(&opts.steps, "steps", 0, "Run N migration steps (positive=up, negative=down)")
	fs.BoolVar(&opts.version, "version", false, "Print the current migration version")
	fs.IntVar(&opts.force, "force", -1, "Force set migration version (use to recover from failed migrations)")
	fs.StringVar(&opts.path, "path", "", "Override the migrations directory path")
	fs.StringVar(&opts.dsn, "dsn", "", "Connect with this PostgreSQL URL instead of the configured database")
	if err := fs.Parse(args); err != nil {
		return opts, fs, err
	}
	return opts, fs, nil
}

// selectAction returns the single requested action.
func (o options) selectAction() (action, error) {
	selected := actionNone
	count := 0
	mark := func(on bool, a action) {
		if on {
			selected = a
			count++
		}
	}
	mark(o.up, actionUp)
	mark(o.down, actionDown)
	mark(o.steps != 0, actionSteps)
	mark(o.version, actionVersion)
	mark(o.force >= 0, actionForce)

	switch {
	case count == 0:
		return actionNone, errNoAction
	case count > 1:
		return actionNone, fmt.Errorf("specify only one action at a time")
	}
	return selected, nil
}

func run(args []string, stderr io.Writer) error {
	opts, fs, err := parseOptions(args, stderr)
	if err != nil {
		return err
	}

	act, err := opts.selectAction()
	if errors.Is(err, errNoAction) {
		fs.Usage()
		fmt.Fprintln(stderr, "\nPlease specify one of: -up, -down, -steps N, -version, -force V")
	}
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if opts.path != "" {
		migrationDir = opts.path
	}

	migrator, cleanup, err := openMigrator(cfg, opts.dsn, migrationDir, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	switch act {
	case actionUp:
		logger.Info().Msg("running all pending migrations")
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case actionDown:
		logger.Warn().Msg("rolling back all migrations")
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case actionSteps:
		logger.Info().Int("steps", opts.steps).Msg("running migration steps")
		if err := migrator.Steps(opts.steps); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case actionForce:
		logger.Warn().Int("version", opts.force).Msg("forcing migration version")
		if err := migrator.Force(opts.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	}

	printVersion(migrator, logger)
	return nil
}

// openMigrator connects either through lib/pq when a DSN is given or
// through the configured pgx pool.
func openMigrator(cfg *config.Config, dsn, dir string, logger zerolog.Logger) (*database.Migrator, func(), error) {
	if dsn != "" {
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		m, err := database.NewMigratorFromSQL(sqlDB, dir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("create migrator: %w", err)
		}
		return m, closeMigrator(m, logger), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("database connection established")

	m, err := database.NewMigrator(db, dir, logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}
	closeM := closeMigrator(m, logger)
	return m, func() {
		closeM()
		db.Close()
	}, nil
}

func closeMigrator(m *database.Migrator, logger zerolog.Logger) func() {
	return func() {
		if err := m.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close migrator")
		}
	}
}

// printVersion prints the current migration version to stdout.
func printVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
