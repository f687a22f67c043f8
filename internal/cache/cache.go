// Package cache provides a SQLite-based statistics cache for tasks that
// auto-rebuilds from the JSON source of truth using SHA256 freshness detection.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/leeovery/studyplan/internal/task"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
  id TEXT PRIMARY KEY,
  position INTEGER NOT NULL,
  title TEXT NOT NULL,
  subject TEXT NOT NULL,
  due_date TEXT NOT NULL,
  due_iso TEXT,
  status TEXT NOT NULL DEFAULT 'To Do'
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_subject ON tasks(subject);
CREATE INDEX IF NOT EXISTS idx_tasks_due_iso ON tasks(due_iso);
`

const isoDate = "2006-01-02"

// Cache wraps a SQLite database used as a statistics cache for tasks.
type Cache struct {
	db     *sql.DB
	path   string
	layout string
	warn   *log.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithDateLayout sets the layout due dates are stored in. The default is
// task.DefaultDateLayout.
func WithDateLayout(layout string) Option {
	return func(c *Cache) {
		if layout != "" {
			c.layout = layout
		}
	}
}

// WithWarnLogger sets the logger used when the cache has to be recreated.
func WithWarnLogger(l *log.Logger) Option {
	return func(c *Cache) {
		c.warn = l
	}
}

// New opens or creates a SQLite cache database at the given path and
// initializes the schema (tables and indexes) if not present.
func New(dbPath string, opts ...Option) (*Cache, error) {
	c := &Cache{path: dbPath, layout: task.DefaultDateLayout, warn: log.Default()}
	for _, opt := range opts {
		opt(c)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}

	c.db = db
	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Rebuild clears all existing data and repopulates the cache from the given
// tasks within a single transaction. It also stores the SHA256 hash of the
// serialized task file in the metadata table.
func (c *Cache) Rebuild(tasks []task.Task, data []byte) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning rebuild transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM tasks"); err != nil {
		return fmt.Errorf("clearing tasks: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("clearing metadata: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO tasks (id, position, title, subject, due_date, due_iso, status) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing task insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range tasks {
		var dueISO *string
		if d, err := time.Parse(c.layout, t.DueDate); err == nil {
			s := d.Format(isoDate)
			dueISO = &s
		}

		if _, err := stmt.Exec(t.ID, i, t.Title, t.Subject, t.DueDate, dueISO, string(t.Status)); err != nil {
			return fmt.Errorf("inserting task %s: %w", t.ID, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO metadata (key, value) VALUES ('json_hash', ?)`, computeHash(data)); err != nil {
		return fmt.Errorf("storing json hash: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rebuild transaction: %w", err)
	}
	return nil
}

// IsFresh computes the SHA256 hash of the given content and compares it with
// the hash stored in the metadata table. Returns true if they match.
func (c *Cache) IsFresh(data []byte) (bool, error) {
	var storedHash string
	err := c.db.QueryRow("SELECT value FROM metadata WHERE key='json_hash'").Scan(&storedHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("querying json hash: %w", err)
	}
	return storedHash == computeHash(data), nil
}

// EnsureFresh opens the cache at dbPath, checks freshness against the given
// content, and triggers a full rebuild if stale or missing. If the cache file
// is corrupted, it is deleted, recreated, and rebuilt.
func EnsureFresh(dbPath string, tasks []task.Task, data []byte, opts ...Option) (*Cache, error) {
	c, err := New(dbPath, opts...)
	if err != nil {
		warnLogger(opts).Warn("cache corrupt or unreadable, recreating", "path", dbPath, "err", err)
		c, err = recreate(dbPath, opts...)
		if err != nil {
			return nil, err
		}
	}

	fresh, err := c.IsFresh(data)
	if err != nil {
		c.warn.Warn("cache query failed, recreating", "path", dbPath, "err", err)
		c.Close()
		c, err = recreate(dbPath, opts...)
		if err != nil {
			return nil, err
		}
		fresh = false
	}

	if !fresh {
		if err := c.Rebuild(tasks, data); err != nil {
			c.Close()
			return nil, fmt.Errorf("rebuilding cache: %w", err)
		}
	}

	return c, nil
}

// recreate removes the cache file at dbPath and creates a fresh database.
func recreate(dbPath string, opts ...Option) (*Cache, error) {
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing corrupt cache: %w", err)
	}
	c, err := New(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("recreating cache: %w", err)
	}
	return c, nil
}

// warnLogger resolves the warning logger an option set would configure.
func warnLogger(opts []Option) *log.Logger {
	c := &Cache{warn: log.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c.warn
}

// computeHash returns the hex-encoded SHA256 hash of the given data.
func computeHash(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}
