package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSaveReport_New(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, content_hash, source, path, imported_at FROM reports").
		WithArgs("hash-a").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO reports").
		WithArgs(pgxmock.AnyArg(), "hash-a", "Tier: 5\n", "runs/a.txt", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithPool(mock)
	rec, created, err := s.SaveReport(context.Background(), "Tier: 5\n", "runs/a.txt", "hash-a")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "hash-a", rec.ContentHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveReport_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	imported := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, content_hash, source, path, imported_at FROM reports").
		WithArgs("hash-a").
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "content_hash", "source", "path", "imported_at"}).
				AddRow("existing-id", "hash-a", "Tier: 5\n", "runs/a.txt", imported),
		)

	s := NewPostgresWithPool(mock)
	rec, created, err := s.SaveReport(context.Background(), "Tier: 5\n", "runs/a-copy.txt", "hash-a")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "existing-id", rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendRevision_NewContent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	seen := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT seq, content_hash FROM revisions").
		WithArgs("chrono_field", 3).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO revisions").
		WithArgs("chrono_field", 3, "aaa", pgxmock.AnyArg(), seen, seen).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(1)))
	mock.ExpectCommit()

	s := NewPostgresWithPool(mock)
	seq, created, err := s.AppendRevision(context.Background(), RevisionInput{
		EntityID: "chrono_field", Level: 3, ContentHash: "aaa",
		RawFields: map[string]string{"Cooldown": "120s"},
		SeenAt:    seen,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendRevision_UnchangedContentRefreshes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	seen := time.Date(2026, 7, 8, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT seq, content_hash FROM revisions").
		WithArgs("chrono_field", 3).
		WillReturnRows(pgxmock.NewRows([]string{"seq", "content_hash"}).AddRow(int64(4), "aaa"))
	mock.ExpectExec("UPDATE revisions SET last_seen").
		WithArgs(seen, int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	s := NewPostgresWithPool(mock)
	seq, created, err := s.AppendRevision(context.Background(), RevisionInput{
		EntityID: "chrono_field", Level: 3, ContentHash: "aaa", SeenAt: seen,
	})
	require.NoError(t, err)
	assert.False(t, created, "unchanged content must not grow history")
	assert.Equal(t, int64(4), seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadRevisionSet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	d1 := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT seq, entity_id, level, content_hash, raw_fields, first_seen, last_seen").
		WillReturnRows(
			pgxmock.NewRows([]string{"seq", "entity_id", "level", "content_hash", "raw_fields", "first_seen", "last_seen"}).
				AddRow(int64(1), "chrono_field", 3, "aaa", []byte(`{"Cooldown":"120s"}`), d1, d1),
		)

	s := NewPostgresWithPool(mock)
	set, err := s.LoadRevisionSet(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	rev, err := set.Latest("chrono_field", 3)
	require.NoError(t, err)
	assert.Equal(t, "120s", rev.RawFields["Cooldown"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
