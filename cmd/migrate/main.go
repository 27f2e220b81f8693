package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/config"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

func main() {
	var (
		dbURL          string
		migrationsPath string
		direction      string
		steps          int
	)

	flag.StringVar(&dbURL, "db", "", "Database URL (defaults to the database section of the app config)")
	flag.StringVar(&migrationsPath, "path", "./migrations", "Path to migrations directory")
	flag.StringVar(&direction, "direction", "up", "Migration direction: up or down")
	flag.IntVar(&steps, "steps", 0, "Number of steps to migrate (0 means all)")
	flag.Parse()

	if err := logger.Init("info", ""); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if dbURL == "" {
		cfg, err := config.Load()
		if err != nil {
			logger.Log.Fatal("Failed to load config", zap.Error(err))
		}
		dbURL = cfg.Database.Pool().URL()
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), dbURL)
	if err != nil {
		logger.Log.Fatal("Failed to create migrate instance", zap.Error(err))
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	default:
		logger.Log.Fatal("Invalid direction (must be 'up' or 'down')", zap.String("direction", direction))
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Log.Fatal("Migration failed", zap.Error(err))
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Log.Info("Migration completed successfully (no version)")
	case err != nil:
		logger.Log.Fatal("Failed to get migration version", zap.Error(err))
	default:
		logger.Log.Info("Migration completed successfully",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
	}
}
