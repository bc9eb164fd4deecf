// Package devicestore is the durable device-local cache behind the
// notification subsystem: the notification list and a small key-value
// area for the push token cache and the user session blob.
package devicestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sitepulse/notify/internal/domain"
)

// Store implements domain.DeviceStore on a local SQLite database.
// The in-memory list is authoritative for the session; SQLite writes
// are best-effort so a full disk or corrupted file never takes the
// notification feed down with it.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger

	mu      sync.Mutex
	records []domain.NotificationRecord
	subs    map[int]func()
	nextSub int
}

// Open opens (or creates) the device database at dbPath, enables WAL
// mode, runs pending migrations, and loads the persisted notification
// list into memory.
func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening device db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		subs:   make(map[int]func()),
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	// A load failure is not fatal: the session starts with an empty
	// list, same as a fresh install.
	if err := s.loadRecords(context.Background()); err != nil {
		logger.Warn("could not load persisted notifications", zap.Error(err))
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}
