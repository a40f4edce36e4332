package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hazyhaar/pagewatch/dbopen"
)

// Schema is the SQLite schema for the snapshots table.
const Schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	target_fp  TEXT    NOT NULL,
	content_fp TEXT    NOT NULL,
	content    TEXT    NOT NULL,
	size       INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	written_at INTEGER NOT NULL,
	rev        INTEGER NOT NULL,
	PRIMARY KEY (target_fp, content_fp)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_latest ON snapshots(target_fp, rev DESC);
`

// SQLiteStore stores snapshots in a single SQLite table.
type SQLiteStore struct {
	db   *sql.DB
	opts options
	own  bool
}

// OpenSQLite opens (creating if needed) the database at path and returns a
// store that owns it.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	s := newSQLiteStore(db, opts)
	s.own = true
	return s, nil
}

// NewSQLiteStore wraps an already-opened database and applies the schema.
// The caller keeps ownership of db.
func NewSQLiteStore(db *sql.DB, opts ...Option) (*SQLiteStore, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, &Error{Op: "schema", Err: err}
	}
	return newSQLiteStore(db, opts), nil
}

func newSQLiteStore(db *sql.DB, opts []Option) *SQLiteStore {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &SQLiteStore{db: db, opts: o}
}

// Latest implements Store.
func (s *SQLiteStore) Latest(ctx context.Context, targetFP string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT target_fp, content_fp, content, size, written_at, rev
		FROM snapshots WHERE target_fp = ?
		ORDER BY rev DESC LIMIT 1`, targetFP)

	var snap Snapshot
	var writtenAt int64
	err := row.Scan(&snap.TargetFP, &snap.ContentFP, &snap.Content, &snap.Size, &writtenAt, &snap.Rev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "latest", Err: err}
	}
	snap.WrittenAt = time.UnixMilli(writtenAt)
	return &snap, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, targetFP, content string) (bool, error) {
	contentFP := Fingerprint(content)
	now := s.opts.now().UnixMilli()
	var created bool

	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		var next int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(rev), 0) + 1 FROM snapshots WHERE target_fp = ?`,
			targetFP).Scan(&next); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO snapshots (target_fp, content_fp, content, size, created_at, written_at, rev)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(target_fp, content_fp) DO NOTHING`,
			targetFP, contentFP, content, len(content), now, now, next)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 1 {
			created = true
			return nil
		}

		// Existing key: move it to the top only if another version was
		// written after it (content reverted to a known version).
		_, err = tx.ExecContext(ctx,
			`UPDATE snapshots SET rev = ?, written_at = ?
			WHERE target_fp = ? AND content_fp = ? AND rev < ?`,
			next, now, targetFP, contentFP, next-1)
		return err
	})
	if err != nil {
		return false, &Error{Op: "save", Err: err}
	}
	return created, nil
}

// History implements Store.
func (s *SQLiteStore) History(ctx context.Context, targetFP string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT target_fp, content_fp, size, written_at, rev
		FROM snapshots WHERE target_fp = ?
		ORDER BY rev DESC LIMIT ?`, targetFP, limit)
	if err != nil {
		return nil, &Error{Op: "history", Err: err}
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var writtenAt int64
		if err := rows.Scan(&snap.TargetFP, &snap.ContentFP, &snap.Size, &writtenAt, &snap.Rev); err != nil {
			return nil, &Error{Op: "history", Err: err}
		}
		snap.WrittenAt = time.UnixMilli(writtenAt)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "history", Err: err}
	}
	return out, nil
}

// Close closes the database if the store opened it.
func (s *SQLiteStore) Close() error {
	if s.own {
		return s.db.Close()
	}
	return nil
}
