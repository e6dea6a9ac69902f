package main

import (
	"database/sql"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	appmigrations "github.com/replyflow/replyflow/migrations"
	"github.com/replyflow/replyflow/pkg/logging"
)

// Applies all pending migrations from the embedded migrations directory.
// Usage: migrate [force <version>]
func main() {
	_ = godotenv.Load()
	logger := logging.New(os.Getenv("LOG_LEVEL")).WithComponent("migrate")

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	m, cleanup, err := newMigrator(databaseURL)
	if err != nil {
		logger.Error("migrator setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// force <version> clears a dirty state after a failed migration.
	if len(os.Args) >= 3 && os.Args[1] == "force" {
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			logger.Error("invalid version", "arg", os.Args[2], "error", err)
			os.Exit(1)
		}
		if err := m.Force(version); err != nil {
			logger.Error("force version failed", "version", version, "error", err)
			os.Exit(1)
		}
		logger.Info("forced schema version", "version", version)
		return
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("schema already up to date")
			return
		}
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")
}

func newMigrator(databaseURL string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_, _ = m.Close()
	}
	return m, cleanup, nil
}
