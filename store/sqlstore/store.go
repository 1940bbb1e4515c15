/*
Package sqlstore provides a gorm-backed implementation of core.TxStore.

PURPOSE:
  Implements every persistence interface (Directory, EnrollmentStore,
  LedgerStore, AttendanceStore) plus the roster CRUD used by the API,
  on SQLite (mattn/go-sqlite3) or PostgreSQL (pgx through gorm).

APPEND-ONLY ENFORCEMENT:
  The transactions table is only ever inserted into. Deleting a student or
  category clears the reference on its transactions; the rows stay.

CONCURRENCY:
  PostgreSQL: row locks via SELECT ... FOR UPDATE (clause.Locking).
  SQLite: no row locks. Transactions start with BEGIN IMMEDIATE
  (_txlock=immediate) so writers serialize on the database lock, and a
  busy timeout turns contention into waiting instead of failure.
  Lock timeouts and serialization failures surface as
  core.ErrConcurrencyConflict.

IN-MEMORY DATABASES:
  ":memory:" gives every connection its own database, so the pool is
  capped at one connection.

USAGE:
  store, err := sqlstore.Open(sqlstore.Options{Driver: "sqlite", Path: "./garderie.db"})
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated by Migrate() through gorm.AutoMigrate.

SEE ALSO:
  - core/store.go: Interface definitions
  - errors.go: Driver error translation
*/
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/garderieflow/backoffice/core"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and tunes the database.
type Options struct {
	Driver       string // sqlite | postgres
	Path         string // sqlite file path or ":memory:"
	DSN          string // postgres connection string
	LogLevel     string // silent | error | warn | info
	MaxOpenConns int
	MaxIdleConns int
}

// Store implements core.TxStore on gorm.
type Store struct {
	db *gorm.DB
}

var _ core.TxStore = (*Store)(nil)

// Open connects to the configured database and migrates the schema.
func Open(opts Options) (*Store, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch opts.Driver {
	case DriverSQLite, "":
		db, err = openSQLite(opts)
	case DriverPostgres:
		db, err = openPostgres(opts)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewMemory opens a fresh in-memory SQLite store. Used by tests.
func NewMemory() (*Store, error) {
	return Open(Options{Driver: DriverSQLite, Path: ":memory:", LogLevel: "silent"})
}

// FromDB wraps an existing gorm handle without migrating.
func FromDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

func gormConfig(level string) *gorm.Config {
	return &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel(level)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func openSQLite(opts Options) (*gorm.DB, error) {
	path := opts.Path
	if path == "" {
		path = "garderie.db"
	}
	memory := path == ":memory:"

	params := "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if !memory {
		params += "&_journal_mode=WAL"
	}

	sqlDB, err := sql.Open("sqlite3", path+"?"+params)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		sqlDB.SetMaxOpenConns(1)
	}

	db, err := gorm.Open(&sqlite.Dialector{DriverName: "sqlite3", Conn: sqlDB}, gormConfig(opts.LogLevel))
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func openPostgres(opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  opts.DSN,
		PreferSimpleProtocol: true,
	}), gormConfig(opts.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&core.Organization{},
		&core.Student{},
		&core.ParentContact{},
		&core.Enrollment{},
		&core.TransactionCategory{},
		&core.Transaction{},
		&core.Attendance{},
	)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the gorm handle for maintenance commands.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// =============================================================================
// TRANSACTIONAL STORE (core.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store core.Store) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&Store{db: tx})
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		// Already translated by the store method that produced it.
		return fnErr
	}
	log.Printf("[Store] Transaction aborted: %v", err)
	return translate(err)
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}
