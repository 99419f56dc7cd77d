// Package effects resolves revisioned reference data (scraped entity stat
// tables) and computes the closed set of derived effect metrics from it.
// Selection is a pure function over an immutable revision snapshot supplied
// by the caller; the package holds no cache and never writes.
package effects

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/towerstats/analyzer-cli/internal/quantity"
)

// Revision is one immutable snapshot of reference data for an entity/level.
// A change in underlying source content produces a new Revision with a new
// Seq; existing revisions are never mutated. Seq is the monotone insertion
// sequence used for deterministic tie-breaks.
type Revision struct {
	EntityID    string            `json:"entity_id"`
	Level       int               `json:"level"`
	Seq         int64             `json:"seq"`
	ContentHash string            `json:"content_hash"`
	RawFields   map[string]string `json:"raw_fields"`
	FirstSeen   time.Time         `json:"first_seen"`
	LastSeen    time.Time         `json:"last_seen"`
}

// NoRevisionError reports that no revision matched a selection. It is a
// return value; the caller decides whether absence is an error at all.
type NoRevisionError struct {
	EntityID string
	Level    int
	Reason   string
}

func (e *NoRevisionError) Error() string {
	return fmt.Sprintf("effects: no revision for %s level %d: %s", e.EntityID, e.Level, e.Reason)
}

// RevisionSet is an immutable snapshot of the full revision history, passed
// into every resolver call. Build a fresh one after each scrape; prior sets
// keep answering as-of queries unchanged.
type RevisionSet struct {
	revs []Revision
}

// NewRevisionSet copies revs into a snapshot. Input order does not matter;
// selection depends only on LastSeen and Seq.
func NewRevisionSet(revs []Revision) *RevisionSet {
	cp := make([]Revision, len(revs))
	copy(cp, revs)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Seq < cp[j].Seq })
	return &RevisionSet{revs: cp}
}

// Len returns the number of revisions in the snapshot.
func (s *RevisionSet) Len() int {
	return len(s.revs)
}

// Latest selects the revision for (entity, level) with the maximum LastSeen,
// ties broken by maximum Seq. The order is total: two revisions with the same
// LastSeen still resolve to exactly one winner.
func (s *RevisionSet) Latest(entityID string, level int) (Revision, error) {
	return s.selectMax(entityID, level, nil)
}

// AsOf selects the newest revision whose LastSeen is not after asOf.
func (s *RevisionSet) AsOf(entityID string, level int, asOf time.Time) (Revision, error) {
	return s.selectMax(entityID, level, &asOf)
}

func (s *RevisionSet) selectMax(entityID string, level int, asOf *time.Time) (Revision, error) {
	var best *Revision
	for i := range s.revs {
		r := &s.revs[i]
		if r.EntityID != entityID || r.Level != level {
			continue
		}
		if asOf != nil && r.LastSeen.After(*asOf) {
			continue
		}
		if best == nil || r.LastSeen.After(best.LastSeen) ||
			(r.LastSeen.Equal(best.LastSeen) && r.Seq > best.Seq) {
			best = r
		}
	}
	if best == nil {
		reason := "no revisions recorded"
		if asOf != nil {
			reason = fmt.Sprintf("no revision at or before %s", asOf.Format(time.RFC3339))
		}
		return Revision{}, &NoRevisionError{EntityID: entityID, Level: level, Reason: reason}
	}
	return *best, nil
}

// param looks up a raw field case-insensitively and parses it strictly with
// the expected unit kind.
func (r Revision) param(name string, kind quantity.UnitKind) (float64, bool) {
	for k, v := range r.RawFields {
		if strings.EqualFold(strings.TrimSpace(k), name) {
			q, err := quantity.Parse(v, kind)
			if err != nil {
				return 0, false
			}
			return q.Value, true
		}
	}
	return 0, false
}
