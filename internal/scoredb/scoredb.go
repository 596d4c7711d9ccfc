// Package scoredb provides the SQLite-backed score store for bundlescope.
// Scores are review-preference data: writes are buffered and flushed in
// the background, and a write lost to a crash is acceptable.
package scoredb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/bundlescope/pkg/debug"
)

// DirEnvVar overrides the directory holding the score database.
const DirEnvVar = "BSC_DIR"

// dbFileName is the score database filename inside the bundlescope dir.
const dbFileName = "scores.db"

// defaultFlushInterval controls how often buffered writes hit the database.
const defaultFlushInterval = 100 * time.Millisecond

const schema = `
CREATE TABLE IF NOT EXISTS scores (
	node_id    TEXT PRIMARY KEY,
	score_key  TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Dir returns the bundlescope state directory for a project, respecting
// the BSC_DIR env var. Defaults to .bundlescope next to the manifest.
func Dir(manifestPath string) string {
	if envDir := os.Getenv(DirEnvVar); envDir != "" {
		return envDir
	}
	return filepath.Join(filepath.Dir(manifestPath), ".bundlescope")
}

// DB is a SQLite-backed score store. Put buffers the write and returns
// immediately; a background goroutine flushes pending entries, so the UI
// thread never waits on disk. ForEach reads the flushed state plus any
// still-pending entries, which keeps a replay scheduled right after a
// write consistent from the caller's point of view.
type DB struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	pending map[string]string

	stop    chan struct{}
	done    chan struct{}
	stopped bool
}

// Option configures a DB.
type Option func(*options)

type options struct {
	flushInterval time.Duration
}

// WithFlushInterval sets the background flush interval.
func WithFlushInterval(d time.Duration) Option {
	return func(o *options) {
		o.flushInterval = d
	}
}

// Open opens (creating if needed) the score database in the given
// directory and starts the background writer.
func Open(dir string, opts ...Option) (*DB, error) {
	o := options{flushInterval: defaultFlushInterval}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create score directory: %w", err)
	}

	path := filepath.Join(dir, dbFileName)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open score database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create scores table: %w", err)
	}

	d := &DB{
		db:      db,
		path:    path,
		pending: make(map[string]string),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go d.flushLoop(o.flushInterval)

	return d, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Put buffers a score write. The write becomes durable on the next flush.
func (d *DB) Put(_ context.Context, id, scoreKey string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return fmt.Errorf("score database is closed")
	}
	d.pending[id] = scoreKey
	return nil
}

// ForEach iterates every stored score: the flushed rows first, then any
// pending entries not yet written (pending values win over flushed ones).
func (d *DB) ForEach(ctx context.Context, fn func(id, scoreKey string) error) error {
	d.mu.Lock()
	pending := make(map[string]string, len(d.pending))
	for id, key := range d.pending {
		pending[id] = key
	}
	d.mu.Unlock()

	rows, err := d.db.QueryContext(ctx, `SELECT node_id, score_key FROM scores`)
	if err != nil {
		return fmt.Errorf("cannot read scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, scoreKey string
		if err := rows.Scan(&id, &scoreKey); err != nil {
			continue
		}
		if _, shadowed := pending[id]; shadowed {
			continue
		}
		if err := fn(id, scoreKey); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating scores: %w", err)
	}

	for id, scoreKey := range pending {
		if err := fn(id, scoreKey); err != nil {
			return err
		}
	}
	return nil
}

// Flush synchronously writes all pending entries.
func (d *DB) Flush() error {
	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return nil
	}
	batch := d.pending
	d.pending = make(map[string]string)
	d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		d.requeue(batch)
		return fmt.Errorf("cannot begin flush: %w", err)
	}

	now := time.Now().Unix()
	for id, scoreKey := range batch {
		_, err := tx.Exec(`
			INSERT INTO scores (node_id, score_key, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(node_id) DO UPDATE SET score_key = excluded.score_key, updated_at = excluded.updated_at`,
			id, scoreKey, now)
		if err != nil {
			tx.Rollback()
			d.requeue(batch)
			return fmt.Errorf("cannot write score for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		d.requeue(batch)
		return fmt.Errorf("cannot commit flush: %w", err)
	}
	return nil
}

// requeue puts a failed batch back, without clobbering newer writes.
func (d *DB) requeue(batch map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, scoreKey := range batch {
		if _, exists := d.pending[id]; !exists {
			d.pending[id] = scoreKey
		}
	}
}

// flushLoop periodically flushes pending writes until Close.
func (d *DB) flushLoop(interval time.Duration) {
	defer close(d.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := d.Flush(); err != nil {
				debug.Log("score flush: %v", err)
			}
		case <-d.stop:
			// Final flush on shutdown.
			if err := d.Flush(); err != nil {
				debug.Log("final score flush: %v", err)
			}
			return
		}
	}
}

// Close flushes pending writes and closes the database.
func (d *DB) Close() error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()

	close(d.stop)
	<-d.done
	return d.db.Close()
}
