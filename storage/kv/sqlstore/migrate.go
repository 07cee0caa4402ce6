package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/masomo-portal/core"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrations embed.FS

// goose is configured through package globals
var gooseMu sync.Mutex

type gooseLogger struct {
	logger core.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (s *Store) dialect() string {
	if s.driver == DriverSQLite {
		return "sqlite3"
	}
	return s.driver
}

func (s *Store) goose(logger core.Logger, fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if logger == nil {
		logger = core.NewNopLogger()
	}
	goose.SetLogger(gooseLogger{logger: logger})
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(s.dialect()); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	return fn()
}

// Migrate applies all pending migrations.
func (s *Store) Migrate(ctx context.Context, logger core.Logger) error {
	return s.goose(logger, func() error {
		return errors.Wrap(goose.UpContext(ctx, s.db.DB, migrationsDir), "migrating up")
	})
}

// MigrateDown rolls back the last migration.
func (s *Store) MigrateDown(ctx context.Context, logger core.Logger) error {
	return s.goose(logger, func() error {
		return errors.Wrap(goose.DownContext(ctx, s.db.DB, migrationsDir), "migrating down")
	})
}

// MigrationStatus logs the state of every migration.
func (s *Store) MigrationStatus(ctx context.Context, logger core.Logger) error {
	return s.goose(logger, func() error {
		return errors.Wrap(goose.StatusContext(ctx, s.db.DB, migrationsDir), "getting migration status")
	})
}
