// Package database provides the schema migrations of the repository store.
package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx5:// driver
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsFromSource returns a migration source driver from the embedded migrations.
func migrationsFromSource() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}

// Migrator is the interface for the migration tooling.
type Migrator interface {
	Up() error
	Down() error
	Steps(int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// NewFromConnectionString returns a new migration instance from a postgres:// connection string.
func NewFromConnectionString(connString string) (Migrator, error) {
	d, err := migrationsFromSource()
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", d, toMigrateURL(connString))
}

// MigrateUp applies every pending migration. An up to date schema is not an error.
func MigrateUp(connString string) error {
	m, err := NewFromConnectionString(connString)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrateDown reverts numSteps migrations, or all of them when numSteps is zero.
func MigrateDown(connString string, numSteps uint) error {
	m, err := NewFromConnectionString(connString)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close()
	}()

	if numSteps == 0 {
		err = m.Down()
	} else {
		err = m.Steps(-int(numSteps))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}
	return nil
}

// GetVersion returns the current schema version
func GetVersion(connString string) (uint, bool, error) {
	m, err := NewFromConnectionString(connString)
	if err != nil {
		return 0, false, err
	}
	defer func() {
		_, _ = m.Close()
	}()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// toMigrateURL selects the pgx v5 migrate driver for postgres URLs
func toMigrateURL(connString string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(connString, scheme) {
			return "pgx5://" + strings.TrimPrefix(connString, scheme)
		}
	}
	return connString
}
