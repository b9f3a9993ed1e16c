package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect captures the few places where SQLite and PostgreSQL differ.
type dialect struct {
	driverName string

	// versionTableQuery counts tables named schema_version.
	versionTableQuery string
	migrations        []migration

	// lowerFunc folds text to lower case for case-insensitive search.
	lowerFunc string
}

// unicodeLower is registered with the SQLite driver because SQLite's
// built-in LOWER only folds ASCII letters.
const unicodeLower = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(unicodeLower, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

var (
	sqliteDialect = dialect{
		driverName:        "sqlite",
		versionTableQuery: "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
		migrations:        sqliteMigrations,
		lowerFunc:         unicodeLower,
	}
	postgresDialect = dialect{
		driverName:        "postgres",
		versionTableQuery: "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'schema_version'",
		migrations:        postgresMigrations,
		lowerFunc:         "LOWER",
	}
)

// SQLStore implements Store on top of a relational database through sqlx.
// Queries are written with ? placeholders and rebound per driver.
type SQLStore struct {
	db      *sqlx.DB
	dialect dialect
}

var _ Store = (*SQLStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs any
// pending schema migrations. ":memory:" gives a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	inMemory := dbPath == ":memory:"

	dsn := dbPath
	if !inMemory {
		// Pragmas in the DSN apply to every pooled connection.
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sqlx.Open(sqliteDialect.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if inMemory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	return newSQLStore(db, sqliteDialect)
}

// NewPostgresStore connects to PostgreSQL using a lib/pq connection string
// and runs any pending schema migrations.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(postgresDialect.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres db: %w", err)
	}
	return newSQLStore(db, postgresDialect)
}

func newSQLStore(db *sqlx.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	if err := s.db.Get(&tableCount, s.dialect.versionTableQuery); err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range s.dialect.migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// q rebinds a ?-placeholder query for the store's driver.
func (s *SQLStore) q(query string) string {
	return s.db.Rebind(query)
}

// isUniqueViolation reports whether err is a uniqueness constraint failure
// from either supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// likePattern builds a LIKE pattern matching substr anywhere, with LIKE
// metacharacters escaped by a backslash.
func likePattern(substr string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(substr) + "%"
}
