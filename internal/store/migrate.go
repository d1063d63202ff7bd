package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrFutureSchema means the store was written by a newer release than this
// build knows about. Continuing would risk silent data loss, so opening the
// store fails instead.
var ErrFutureSchema = errors.New("store schema is newer than this build")

// migration is a single schema step with its target version.
type migration struct {
	version    int
	statements []string
}

// migrations is the ordered schema history. The declared store version is
// kept in PRAGMA user_version; the runner applies exactly the steps above
// the stored version, in ascending order, inside one transaction, and bumps
// user_version only after every step succeeded.
//
// Version 4 is the only structural rebuild: the original releases tracked
// countdowns only, so target_date was NOT NULL. Loosening it for undated
// to-dos cannot be expressed with ALTER TABLE in SQLite, hence the
// create-copy-drop-rename sequence.
var migrations = []migration{
	{
		version: 1,
		statements: []string{`
CREATE TABLE IF NOT EXISTS items (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	target_date DATETIME NOT NULL,
	memo        TEXT NOT NULL DEFAULT '',
	created_at  DATETIME,
	updated_at  DATETIME
);`},
	},
	{
		version: 2,
		statements: []string{
			`ALTER TABLE items ADD COLUMN is_completed INTEGER NOT NULL DEFAULT 0;`,
			`ALTER TABLE items ADD COLUMN completed_at DATETIME;`,
		},
	},
	{
		version: 3,
		statements: []string{
			`ALTER TABLE items ADD COLUMN category_tag TEXT NOT NULL DEFAULT '';`,
			`ALTER TABLE items ADD COLUMN custom_icon TEXT;`,
			`ALTER TABLE items ADD COLUMN custom_color TEXT;`,
			`CREATE INDEX IF NOT EXISTS idx_items_category_tag ON items(category_tag);`,
		},
	},
	{
		version: 4,
		statements: []string{`
CREATE TABLE items_v4 (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	title        TEXT NOT NULL,
	target_date  DATETIME,
	memo         TEXT NOT NULL DEFAULT '',
	is_completed INTEGER NOT NULL DEFAULT 0,
	completed_at DATETIME,
	category_tag TEXT NOT NULL DEFAULT '',
	custom_icon  TEXT,
	custom_color TEXT,
	sort_order   INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME,
	updated_at   DATETIME
);`,
			`INSERT INTO items_v4 (id, title, target_date, memo, is_completed, completed_at,
	category_tag, custom_icon, custom_color, created_at, updated_at)
SELECT id, title, target_date, memo, is_completed, completed_at,
	category_tag, custom_icon, custom_color, created_at, updated_at
FROM items;`,
			`DROP TABLE items;`,
			`ALTER TABLE items_v4 RENAME TO items;`,
			`CREATE INDEX IF NOT EXISTS idx_items_category_tag ON items(category_tag);`,
		},
	},
	{
		version: 5,
		statements: []string{
			`ALTER TABLE items ADD COLUMN recurrence TEXT NOT NULL DEFAULT 'none';`,
			`ALTER TABLE items ADD COLUMN recurrence_anchor INTEGER;`,
		},
	},
	{
		version: 6,
		statements: []string{
			`ALTER TABLE items ADD COLUMN sub_tasks TEXT;`,
			`ALTER TABLE items ADD COLUMN group_name TEXT;`,
		},
	},
	{
		version: 7,
		statements: []string{`
CREATE TABLE IF NOT EXISTS templates (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	title      TEXT NOT NULL,
	icon       TEXT,
	color      TEXT,
	sub_tasks  TEXT,
	created_at DATETIME,
	updated_at DATETIME
);`},
	},
}

// SchemaVersion is the newest schema this build understands.
var SchemaVersion = migrations[len(migrations)-1].version

// Migrate brings the store from its declared version to SchemaVersion.
// It is a no-op on an up-to-date store and fails without touching the store
// when the declared version is from the future.
func Migrate(db *gorm.DB) error {
	current, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("%w: store is v%d, newest known is v%d", ErrFutureSchema, current, SchemaVersion)
	}
	if current == SchemaVersion {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, m := range migrations {
			if m.version <= current {
				continue
			}
			for _, stmt := range m.statements {
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("migration v%d: %w", m.version, err)
				}
			}
		}
		if err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)).Error; err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	})
}

func schemaVersion(db *gorm.DB) (int, error) {
	var version int
	if err := db.Raw("PRAGMA user_version").Scan(&version).Error; err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
