package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/towerstats/analyzer-cli/internal/effects"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL UNIQUE,
	source       TEXT NOT NULL,
	path         TEXT NOT NULL DEFAULT '',
	imported_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS revisions (
	seq          BIGSERIAL PRIMARY KEY,
	entity_id    TEXT NOT NULL,
	level        INTEGER NOT NULL,
	content_hash TEXT NOT NULL,
	raw_fields   JSONB NOT NULL,
	first_seen   TIMESTAMPTZ NOT NULL,
	last_seen    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_revisions_entity_level ON revisions(entity_id, level);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, source, path, contentHash string) (*ReportRecord, bool, error) {
	var existing ReportRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, content_hash, source, path, imported_at FROM reports WHERE content_hash = $1`,
		contentHash,
	).Scan(&existing.ID, &existing.ContentHash, &existing.Source, &existing.Path, &existing.ImportedAt)
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, eris.Wrap(err, "postgres: lookup report")
	}

	rec := &ReportRecord{
		ID:          uuid.New().String(),
		ContentHash: contentHash,
		Source:      source,
		Path:        path,
		ImportedAt:  time.Now().UTC(),
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (id, content_hash, source, path, imported_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.ContentHash, rec.Source, rec.Path, rec.ImportedAt,
	)
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: insert report")
	}
	return rec, true, nil
}

func (s *PostgresStore) ListReports(ctx context.Context) ([]ReportRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, content_hash, source, path, imported_at FROM reports ORDER BY imported_at, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	var out []ReportRecord
	for rows.Next() {
		var r ReportRecord
		if err := rows.Scan(&r.ID, &r.ContentHash, &r.Source, &r.Path, &r.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate reports")
}

// AppendRevision runs the newest-revision lookup and the write in one
// transaction so concurrent scrapes cannot both insert the same content.
func (s *PostgresStore) AppendRevision(ctx context.Context, in RevisionInput) (int64, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, false, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx)

	var newestSeq int64
	var newestHash string
	err = tx.QueryRow(ctx,
		`SELECT seq, content_hash FROM revisions
		 WHERE entity_id = $1 AND level = $2
		 ORDER BY last_seen DESC, seq DESC LIMIT 1
		 FOR UPDATE`,
		in.EntityID, in.Level,
	).Scan(&newestSeq, &newestHash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, eris.Wrap(err, "postgres: newest revision")
	}

	if err == nil && newestHash == in.ContentHash {
		_, err = tx.Exec(ctx,
			`UPDATE revisions SET last_seen = $1 WHERE seq = $2`,
			in.SeenAt.UTC(), newestSeq,
		)
		if err != nil {
			return 0, false, eris.Wrap(err, "postgres: refresh revision")
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, false, eris.Wrap(err, "postgres: commit")
		}
		return newestSeq, false, nil
	}

	fieldsJSON, err := json.Marshal(in.RawFields)
	if err != nil {
		return 0, false, eris.Wrap(err, "postgres: marshal raw fields")
	}
	var seq int64
	err = tx.QueryRow(ctx,
		`INSERT INTO revisions (entity_id, level, content_hash, raw_fields, first_seen, last_seen)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING seq`,
		in.EntityID, in.Level, in.ContentHash, fieldsJSON, in.SeenAt.UTC(), in.SeenAt.UTC(),
	).Scan(&seq)
	if err != nil {
		return 0, false, eris.Wrap(err, "postgres: insert revision")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, false, eris.Wrap(err, "postgres: commit")
	}
	return seq, true, nil
}

func (s *PostgresStore) LoadRevisionSet(ctx context.Context) (*effects.RevisionSet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT seq, entity_id, level, content_hash, raw_fields, first_seen, last_seen
		 FROM revisions ORDER BY seq`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load revisions")
	}
	defer rows.Close()

	var revs []effects.Revision
	for rows.Next() {
		var r effects.Revision
		var fieldsJSON []byte
		if err := rows.Scan(&r.Seq, &r.EntityID, &r.Level, &r.ContentHash, &fieldsJSON, &r.FirstSeen, &r.LastSeen); err != nil {
			return nil, eris.Wrap(err, "postgres: scan revision")
		}
		if err := json.Unmarshal(fieldsJSON, &r.RawFields); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal raw fields")
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate revisions")
	}
	return effects.NewRevisionSet(revs), nil
}

// Open picks a backend by driver name and runs migrations.
func Open(ctx context.Context, driver, databaseURL, sqlitePath string) (Store, error) {
	var st Store
	switch driver {
	case "sqlite":
		s, err := NewSQLite(sqlitePath)
		if err != nil {
			return nil, err
		}
		st = s
	case "postgres":
		s, err := NewPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
