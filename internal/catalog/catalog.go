// Package catalog is the local action catalog: action descriptors, server
// actions, button methods and the records the terminal views display, kept
// in the shared SQLite database and filled from JSON or TOML bundles.
//
// A Catalog satisfies the loader, runner and button interfaces of the
// navigation engine, so a terminal session can browse a bundle without a
// remote server.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"nathanbeddoewebdev/actionmgr/internal/database"
	"nathanbeddoewebdev/actionmgr/internal/domain"
	"nathanbeddoewebdev/actionmgr/internal/logging"
	"nathanbeddoewebdev/actionmgr/internal/retry"
	"nathanbeddoewebdev/actionmgr/internal/swrcache"
)

// Catalog implements the engine's storage-backed interfaces on SQLite.
type Catalog struct {
	db     *sql.DB
	cache  *swrcache.Cache
	retry  retry.Config
	logger logr.Logger
	now    func() time.Time
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithCache serves descriptors through cache. Without it every load reads
// the database.
func WithCache(cache *swrcache.Cache) Option {
	return func(c *Catalog) { c.cache = cache }
}

// WithRetry sets how reads and writes are retried on a busy database.
func WithRetry(cfg retry.Config) Option {
	return func(c *Catalog) { c.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(c *Catalog) { c.logger = logger }
}

// Open creates or opens the catalog in the default database.
func Open(opts ...Option) (*Catalog, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return OpenAt(path, opts...)
}

// OpenAt creates or opens a catalog in the SQLite database at path.
func OpenAt(path string, opts ...Option) (*Catalog, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	c := &Catalog{db: db, retry: retry.DefaultConfig(), logger: logr.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithName("catalog")
	c.retry.OnRetry = func(attempt int, err error) {
		c.logger.V(logging.VERBOSE).Info("database busy, retrying", "attempt", attempt, "error", err.Error())
	}

	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) migrate() error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS actions (
			id          INTEGER PRIMARY KEY,
			xml_id      TEXT    NOT NULL DEFAULT '',
			kind        TEXT    NOT NULL,
			name        TEXT    NOT NULL DEFAULT '',
			descriptor  TEXT    NOT NULL,
			updated_at  TEXT    NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_actions_xml_id ON actions(xml_id) WHERE xml_id <> '';
		CREATE TABLE IF NOT EXISTS server_actions (
			id          INTEGER PRIMARY KEY,
			name        TEXT    NOT NULL DEFAULT '',
			model       TEXT    NOT NULL DEFAULT '',
			result      TEXT    NOT NULL DEFAULT '',
			run_count   INTEGER NOT NULL DEFAULT 0,
			last_run_at TEXT    NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS methods (
			model       TEXT    NOT NULL,
			name        TEXT    NOT NULL,
			result      TEXT    NOT NULL DEFAULT '',
			PRIMARY KEY (model, name)
		);
		CREATE TABLE IF NOT EXISTS records (
			model       TEXT    NOT NULL,
			id          INTEGER NOT NULL,
			name        TEXT    NOT NULL DEFAULT '',
			vals        TEXT    NOT NULL DEFAULT '{}',
			PRIMARY KEY (model, id)
		);
	`
	if _, err := c.db.Exec(ddl); err != nil {
		return fmt.Errorf("catalog: migration failed: %w", err)
	}
	return nil
}

// Close releases database resources.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// ImportStats counts the rows written by Import.
type ImportStats struct {
	Actions       int
	ServerActions int
	Methods       int
	Records       int
}

// Import upserts every entry of b in one transaction and drops cached
// descriptors.
func (c *Catalog) Import(ctx context.Context, b *Bundle) (ImportStats, error) {
	var stats ImportStats
	if err := b.Validate(); err != nil {
		return stats, err
	}

	err := retry.Do(ctx, c.retry, retry.IsTransient, func() error {
		stats = ImportStats{}
		return c.importTx(ctx, b, &stats)
	})
	if err != nil {
		return ImportStats{}, err
	}

	if err := c.cache.InvalidatePrefix(cachePrefix); err != nil {
		c.logger.Error(err, "dropping cached descriptors")
	}
	c.logger.V(logging.VERBOSE).Info("imported bundle",
		"actions", stats.Actions, "serverActions", stats.ServerActions,
		"methods", stats.Methods, "records", stats.Records)
	return stats, nil
}

func (c *Catalog) importTx(ctx context.Context, b *Bundle, stats *ImportStats) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin import: %w", err)
	}
	defer tx.Rollback()

	stamp := c.now().UTC().Format(time.RFC3339Nano)
	for i := range b.Actions {
		a := &b.Actions[i]
		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("catalog: encode action %d: %w", a.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO actions (id, xml_id, kind, name, descriptor, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET xml_id=excluded.xml_id, kind=excluded.kind,
			       name=excluded.name, descriptor=excluded.descriptor, updated_at=excluded.updated_at`,
			a.ID, a.XMLID, string(a.Kind), a.Name, string(payload), stamp,
		)
		if err != nil {
			return fmt.Errorf("catalog: insert action %d: %w", a.ID, err)
		}
		stats.Actions++
	}

	for _, s := range b.ServerActions {
		result, err := encodeResult(s.Result)
		if err != nil {
			return fmt.Errorf("catalog: encode server action %d: %w", s.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO server_actions (id, name, model, result) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name=excluded.name, model=excluded.model, result=excluded.result`,
			s.ID, s.Name, s.Model, result,
		)
		if err != nil {
			return fmt.Errorf("catalog: insert server action %d: %w", s.ID, err)
		}
		stats.ServerActions++
	}

	for _, m := range b.Methods {
		result, err := encodeResult(m.Result)
		if err != nil {
			return fmt.Errorf("catalog: encode method %s.%s: %w", m.Model, m.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO methods (model, name, result) VALUES (?, ?, ?)
			ON CONFLICT(model, name) DO UPDATE SET result=excluded.result`,
			m.Model, m.Name, result,
		)
		if err != nil {
			return fmt.Errorf("catalog: insert method %s.%s: %w", m.Model, m.Name, err)
		}
		stats.Methods++
	}

	for _, r := range b.Records {
		vals, err := json.Marshal(r.Values)
		if err != nil {
			return fmt.Errorf("catalog: encode record %s/%d: %w", r.Model, r.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (model, id, name, vals) VALUES (?, ?, ?, ?)
			ON CONFLICT(model, id) DO UPDATE SET name=excluded.name, vals=excluded.vals`,
			r.Model, r.ID, r.Name, string(vals),
		)
		if err != nil {
			return fmt.Errorf("catalog: insert record %s/%d: %w", r.Model, r.ID, err)
		}
		stats.Records++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit import: %w", err)
	}
	return nil
}

func encodeResult(a *domain.Action) (string, error) {
	if a == nil {
		return "", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeResult(s string) (*domain.Action, error) {
	if s == "" {
		return nil, nil
	}
	var a domain.Action
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Summary is one line of the catalog listing.
type Summary struct {
	ID    int64       `json:"id"`
	XMLID string      `json:"xml_id,omitempty"`
	Kind  domain.Kind `json:"type"`
	Name  string      `json:"name"`
}

// List returns every stored action ordered by id.
func (c *Catalog) List(ctx context.Context) ([]Summary, error) {
	return retry.Value(ctx, c.retry, retry.IsTransient, func() ([]Summary, error) {
		rows, err := c.db.QueryContext(ctx, `SELECT id, xml_id, kind, name FROM actions ORDER BY id`)
		if err != nil {
			return nil, fmt.Errorf("catalog: query failed: %w", err)
		}
		defer rows.Close()

		var out []Summary
		for rows.Next() {
			var s Summary
			var kind string
			if err := rows.Scan(&s.ID, &s.XMLID, &kind, &s.Name); err != nil {
				return nil, fmt.Errorf("catalog: scan failed: %w", err)
			}
			s.Kind = domain.Kind(kind)
			out = append(out, s)
		}
		return out, rows.Err()
	})
}
