package migrations

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migrate_database "github.com/golang-migrate/migrate/v4/database"
	migrate_postgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migrate_sqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	migrate_iofs "github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/psanford/memfs"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/server/store"
)

// GolangMigrateRunner applies a MigrationSet to a database using the
// golang-migrate library. Migration SQL is templated per dialect before
// being handed to the migrator.
type GolangMigrateRunner struct {
	migrations MigrationSet
	logger.Log
}

func NewGolangMigrateRunner(migrations MigrationSet, logFactory logger.LogFactory) *GolangMigrateRunner {
	return &GolangMigrateRunner{
		migrations: migrations,
		Log:        logFactory("GolangMigrateRunner"),
	}
}

// NewConveyorMigrateRunner creates a runner for the standard Conveyor server
// schema migrations.
func NewConveyorMigrateRunner(logFactory logger.LogFactory) *GolangMigrateRunner {
	return NewGolangMigrateRunner(ConveyorServerMigrations, logFactory)
}

func (r *GolangMigrateRunner) Up(ctx context.Context, driver store.DBDriver, connectionString store.DatabaseConnectionString) error {
	return r.withMigrator(ctx, driver, connectionString, func(migrator *migrate.Migrate) error {
		r.Infof("Migrating up to latest database version...")
		return migrator.Up()
	})
}

func (r *GolangMigrateRunner) Down(ctx context.Context, driver store.DBDriver, connectionString store.DatabaseConnectionString) error {
	return r.withMigrator(ctx, driver, connectionString, func(migrator *migrate.Migrate) error {
		r.Infof("Migrating down to empty database...")
		return migrator.Down()
	})
}

// withMigrator renders the dialect-specific migration files, opens a dedicated
// connection for the migrator and runs fn against it.
// golang-migrate does not accept a context, so ctx is unused.
func (r *GolangMigrateRunner) withMigrator(
	ctx context.Context,
	driver store.DBDriver,
	connectionString store.DatabaseConnectionString,
	fn func(*migrate.Migrate) error,
) error {
	dialect, err := GetDialectForDriver(driver)
	if err != nil {
		return err
	}
	migrationFS, err := r.renderMigrationFiles(dialect)
	if err != nil {
		return err
	}
	sourceDriver, err := migrate_iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}

	// The migrator takes ownership of this connection and closes it.
	db, err := sqlx.Open(string(driver), string(connectionString))
	if err != nil {
		return fmt.Errorf("error opening %s database for migration: %w", driver, err)
	}
	databaseDriver, err := r.migrationDriverFor(db)
	if err != nil {
		db.Close()
		return err
	}
	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, string(driver), databaseDriver)
	if err != nil {
		db.Close()
		return err
	}
	defer migrator.Close()

	err = fn(migrator)
	if err == migrate.ErrNoChange {
		r.Infof("Database already at the requested version; no migrations applied")
		return nil
	}
	if err != nil {
		return err
	}
	r.Infof("Migration completed successfully")
	return nil
}

// migrationDriverFor wraps an open database in the golang-migrate driver
// matching its dialect.
func (r *GolangMigrateRunner) migrationDriverFor(db *sqlx.DB) (migrate_database.Driver, error) {
	switch db.DriverName() {
	case store.Sqlite.String():
		driver, err := migrate_sqlite3.WithInstance(db.DB, &migrate_sqlite3.Config{
			DatabaseName: "sqlite", // name is ignored for sqlite
		})
		if err != nil {
			return nil, fmt.Errorf("error creating sqlite migration driver: %w", err)
		}
		return driver, nil
	case store.Postgres.String():
		driver, err := migrate_postgres.WithInstance(db.DB, &migrate_postgres.Config{
			StatementTimeout:      5 * time.Second,
			MultiStatementEnabled: true, // migrations regularly contain several statements
			MultiStatementMaxSize: migrate_postgres.DefaultMultiStatementMaxSize,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating postgres migration driver: %w", err)
		}
		return driver, nil
	}
	return nil, fmt.Errorf("error unsupported migration database driver: %s", db.DriverName())
}

// renderMigrationFiles expands each migration's SQL template for the given
// dialect and lays the results out on an in-memory filesystem in the
// '{version}_{name}.{up-or-down}.sql' layout golang-migrate expects.
func (r *GolangMigrateRunner) renderMigrationFiles(dialect *DialectTemplate) (*memfs.FS, error) {
	fs := memfs.New()
	err := fs.MkdirAll("migrations", 0777)
	if err != nil {
		return nil, err
	}
	for _, migration := range r.migrations {
		for direction, sql := range map[string]string{"up": migration.UpSQL, "down": migration.DownSQL} {
			path := fmt.Sprintf("migrations/%06d_%s.%s.sql", migration.SequenceNumber, migration.Name, direction)
			r.Debugf("Templating migration: %s", path)
			tmpl, err := template.New(migration.Name).Parse(sql)
			if err != nil {
				return nil, fmt.Errorf("error parsing migration '%s' template: %w", path, err)
			}
			var rendered bytes.Buffer
			err = tmpl.Execute(&rendered, dialect)
			if err != nil {
				return nil, fmt.Errorf("error applying migration '%s' template: %w", path, err)
			}
			err = fs.WriteFile(path, rendered.Bytes(), 0755)
			if err != nil {
				return nil, fmt.Errorf("error writing migration '%s' to in-memory filesystem: %w", path, err)
			}
		}
	}
	return fs, nil
}
