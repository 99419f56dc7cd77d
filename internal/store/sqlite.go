package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/towerstats/analyzer-cli/internal/effects"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL UNIQUE,
	source       TEXT NOT NULL,
	path         TEXT NOT NULL DEFAULT '',
	imported_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS revisions (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_id    TEXT NOT NULL,
	level        INTEGER NOT NULL,
	content_hash TEXT NOT NULL,
	raw_fields   TEXT NOT NULL,
	first_seen   DATETIME NOT NULL,
	last_seen    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_content_hash ON reports(content_hash);
CREATE INDEX IF NOT EXISTS idx_revisions_entity_level ON revisions(entity_id, level);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveReport stores the byte-identical report text keyed by content hash,
// with path kept as provenance. The bool result is false when an identical
// report was already stored; the existing record is returned unchanged in
// that case.
func (s *SQLiteStore) SaveReport(ctx context.Context, source, path, contentHash string) (*ReportRecord, bool, error) {
	var existing ReportRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, content_hash, source, path, imported_at FROM reports WHERE content_hash = ?`,
		contentHash,
	).Scan(&existing.ID, &existing.ContentHash, &existing.Source, &existing.Path, &existing.ImportedAt)
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, eris.Wrap(err, "sqlite: lookup report")
	}

	rec := &ReportRecord{
		ID:          uuid.New().String(),
		ContentHash: contentHash,
		Source:      source,
		Path:        path,
		ImportedAt:  time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, content_hash, source, path, imported_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.ContentHash, rec.Source, rec.Path, rec.ImportedAt,
	)
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: insert report")
	}
	return rec, true, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context) ([]ReportRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_hash, source, path, imported_at FROM reports ORDER BY imported_at, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close()

	var out []ReportRecord
	for rows.Next() {
		var r ReportRecord
		if err := rows.Scan(&r.ID, &r.ContentHash, &r.Source, &r.Path, &r.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate reports")
}

// AppendRevision records an observed reference snapshot. Unchanged content
// refreshes last_seen on the newest revision for the entity/level; changed
// content inserts a new revision with a fresh sequence number. The
// newest-revision lookup and the write run in one transaction so concurrent
// scrapes cannot both insert the same content.
func (s *SQLiteStore) AppendRevision(ctx context.Context, in RevisionInput) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	var newestSeq int64
	var newestHash string
	err = tx.QueryRowContext(ctx,
		`SELECT seq, content_hash FROM revisions
		 WHERE entity_id = ? AND level = ?
		 ORDER BY last_seen DESC, seq DESC LIMIT 1`,
		in.EntityID, in.Level,
	).Scan(&newestSeq, &newestHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, false, eris.Wrap(err, "sqlite: newest revision")
	}

	if err == nil && newestHash == in.ContentHash {
		_, err = tx.ExecContext(ctx,
			`UPDATE revisions SET last_seen = ? WHERE seq = ?`,
			in.SeenAt.UTC(), newestSeq,
		)
		if err != nil {
			return 0, false, eris.Wrap(err, "sqlite: refresh revision")
		}
		if err := tx.Commit(); err != nil {
			return 0, false, eris.Wrap(err, "sqlite: commit")
		}
		return newestSeq, false, nil
	}

	fieldsJSON, err := json.Marshal(in.RawFields)
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: marshal raw fields")
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO revisions (entity_id, level, content_hash, raw_fields, first_seen, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.EntityID, in.Level, in.ContentHash, string(fieldsJSON), in.SeenAt.UTC(), in.SeenAt.UTC(),
	)
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: insert revision")
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: revision seq")
	}
	if err := tx.Commit(); err != nil {
		return 0, false, eris.Wrap(err, "sqlite: commit")
	}
	return seq, true, nil
}

func (s *SQLiteStore) LoadRevisionSet(ctx context.Context) (*effects.RevisionSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, entity_id, level, content_hash, raw_fields, first_seen, last_seen
		 FROM revisions ORDER BY seq`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load revisions")
	}
	defer rows.Close()

	var revs []effects.Revision
	for rows.Next() {
		var r effects.Revision
		var fieldsJSON string
		if err := rows.Scan(&r.Seq, &r.EntityID, &r.Level, &r.ContentHash, &fieldsJSON, &r.FirstSeen, &r.LastSeen); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan revision")
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &r.RawFields); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal raw fields")
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate revisions")
	}
	return effects.NewRevisionSet(revs), nil
}
