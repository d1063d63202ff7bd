package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a SQLite database and brings its schema to the current
// version. A migration failure is fatal for the caller: the store must not
// be used half-migrated.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "dday_keeper.db"
	}

	if err := ensureDBDir(dsn); err != nil {
		return nil, err
	}

	// Quiet by default; slow queries and real errors still surface.
	gormLog := logger.New(log.New(os.Stdout, "", log.LstdFlags), logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return db, nil
}

// ensureDBDir creates the parent directory of a file-backed DSN. Memory
// DSNs have no path to prepare.
func ensureDBDir(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	path := strings.SplitN(strings.TrimPrefix(dsn, "file:"), "?", 2)[0]
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
