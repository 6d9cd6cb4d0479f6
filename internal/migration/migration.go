package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

const migrateTimeout = 2 * time.Minute

// Status is the schema state recorded by golang-migrate.
type Status struct {
	Current uint
	Latest  uint
	Dirty   bool
}

func (s Status) Pending() bool {
	return s.Current < s.Latest
}

// RunMigrations applies every embedded migration, seeds the SACU countries
// and activates the bootstrap state the API checks on start.
func RunMigrations(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	return withLock(ctx, db, func(m *migrate.Migrate, manifest Manifest) error {
		before, err := ensureNotDirty(m)
		if err != nil {
			return err
		}
		if before > 0 {
			if err := writeBootstrapState(ctx, db, bootstrapStatusInitializing, manifest); err != nil {
				return err
			}
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", err)
		}

		after, err := ensureNotDirty(m)
		if err != nil {
			return err
		}
		if after != manifest.Version {
			return fmt.Errorf("schema version mismatch after migrate: got %d want %d", after, manifest.Version)
		}

		if err := seedSystemImmutableData(ctx, db); err != nil {
			return err
		}
		if err := writeBootstrapState(ctx, db, bootstrapStatusActive, manifest); err != nil {
			return err
		}

		log.Info("schema migrated",
			zap.Uint("from_version", before),
			zap.Uint("to_version", after),
			zap.String("checksum", manifest.Checksum),
		)
		return nil
	})
}

// Rollback reverts the given number of migrations. The bootstrap state is
// left initializing so servers refuse to start on a partial schema.
func Rollback(ctx context.Context, db *sql.DB, steps int, log *zap.Logger) error {
	if steps <= 0 {
		return errors.New("rollback steps must be positive")
	}
	ctx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	return withLock(ctx, db, func(m *migrate.Migrate, manifest Manifest) error {
		if _, err := ensureNotDirty(m); err != nil {
			return err
		}
		if err := writeBootstrapState(ctx, db, bootstrapStatusInitializing, manifest); err != nil {
			return err
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("rollback migrations: %w", err)
		}

		current, err := ensureNotDirty(m)
		if err != nil {
			return err
		}
		log.Warn("schema rolled back", zap.Int("steps", steps), zap.Uint("version", current))
		return nil
	})
}

func ReadStatus(db *sql.DB) (Status, error) {
	manifest, err := LoadManifest()
	if err != nil {
		return Status{}, err
	}
	m, err := newMigrator(db)
	if err != nil {
		return Status{}, err
	}

	status := Status{Latest: manifest.Version}
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return status, nil
	case err != nil:
		return Status{}, fmt.Errorf("read migration version: %w", err)
	}
	status.Current = version
	status.Dirty = dirty
	return status, nil
}

func withLock(ctx context.Context, db *sql.DB, fn func(*migrate.Migrate, Manifest) error) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	unlock, err := acquireAdvisoryLock(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		_ = unlock(context.Background())
	}()

	manifest, err := LoadManifest()
	if err != nil {
		return err
	}
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	return fn(m, manifest)
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func ensureNotDirty(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database migrations are dirty at version %d", version)
	}
	return version, nil
}
