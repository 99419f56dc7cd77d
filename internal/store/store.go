// Package store persists imported reports and scraped reference revisions.
// It is the external collaborator the analysis core is written against: the
// core only ever sees plain values and immutable snapshots loaded from here.
package store

import (
	"context"
	"time"

	"github.com/towerstats/analyzer-cli/internal/effects"
)

// ReportRecord is one stored imported report. Source holds the byte-identical
// report text the content hash was computed from; typed fields are re-derived
// by extraction, which is idempotent. Path records where the text came from
// and is provenance only, never read back.
type ReportRecord struct {
	ID          string    `json:"id"`
	ContentHash string    `json:"content_hash"`
	Source      string    `json:"source"`
	Path        string    `json:"path,omitempty"`
	ImportedAt  time.Time `json:"imported_at"`
}

// RevisionInput is one observed reference-data snapshot for an entity/level.
type RevisionInput struct {
	EntityID    string            `json:"entity_id"`
	Level       int               `json:"level"`
	ContentHash string            `json:"content_hash"`
	RawFields   map[string]string `json:"raw_fields"`
	SeenAt      time.Time         `json:"seen_at"`
}

// Store defines the persistence interface for the analyzer host. Revision
// history is append-only: observing unchanged content refreshes last_seen on
// the newest revision, changed content inserts a new one. Nothing else is
// ever updated in place.
type Store interface {
	// Reports
	SaveReport(ctx context.Context, source, path, contentHash string) (*ReportRecord, bool, error)
	ListReports(ctx context.Context) ([]ReportRecord, error)

	// Revisions
	AppendRevision(ctx context.Context, in RevisionInput) (seq int64, created bool, err error)
	LoadRevisionSet(ctx context.Context) (*effects.RevisionSet, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
