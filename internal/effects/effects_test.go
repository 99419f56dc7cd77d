package effects

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	d1 = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	d2 = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
)

func fixtureSet() *RevisionSet {
	return NewRevisionSet([]Revision{
		{EntityID: "chrono_field", Level: 3, Seq: 1, ContentHash: "aaa",
			RawFields: map[string]string{"Cooldown": "120s", "Duration": "30s"},
			FirstSeen: d1, LastSeen: d1},
		{EntityID: "chrono_field", Level: 3, Seq: 2, ContentHash: "bbb",
			RawFields: map[string]string{"Cooldown": "100s", "Duration": "30s"},
			FirstSeen: d2, LastSeen: d2},
	})
}

func TestLatest_PicksNewestLastSeen(t *testing.T) {
	rev, err := fixtureSet().Latest("chrono_field", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev.Seq)
	assert.Equal(t, "bbb", rev.ContentHash)
}

func TestLatest_TieBrokenBySeq(t *testing.T) {
	set := NewRevisionSet([]Revision{
		{EntityID: "e", Level: 1, Seq: 1, LastSeen: d1},
		{EntityID: "e", Level: 1, Seq: 2, LastSeen: d1},
	})
	rev, err := set.Latest("e", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev.Seq, "identical last_seen must still have one winner")
}

func TestAsOf_Selection(t *testing.T) {
	set := fixtureSet()

	rev, err := set.AsOf("chrono_field", 3, d1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev.Seq)

	rev, err = set.AsOf("chrono_field", 3, d2.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev.Seq)

	_, err = set.AsOf("chrono_field", 3, d1.Add(-time.Hour))
	var nre *NoRevisionError
	require.ErrorAs(t, err, &nre)
	assert.Equal(t, "chrono_field", nre.EntityID)
}

func TestLatest_UnknownEntity(t *testing.T) {
	_, err := fixtureSet().Latest("nope", 1)
	var nre *NoRevisionError
	require.ErrorAs(t, err, &nre)
}

func TestAppendOnly_NewScrapeChangesLatestNotAsOf(t *testing.T) {
	old := fixtureSet()
	oldAsOf, err := old.AsOf("chrono_field", 3, d1)
	require.NoError(t, err)

	d3 := d2.Add(30 * 24 * time.Hour)
	grown := NewRevisionSet([]Revision{
		{EntityID: "chrono_field", Level: 3, Seq: 1, ContentHash: "aaa",
			RawFields: map[string]string{"Cooldown": "120s", "Duration": "30s"},
			FirstSeen: d1, LastSeen: d1},
		{EntityID: "chrono_field", Level: 3, Seq: 2, ContentHash: "bbb",
			RawFields: map[string]string{"Cooldown": "100s", "Duration": "30s"},
			FirstSeen: d2, LastSeen: d2},
		{EntityID: "chrono_field", Level: 3, Seq: 3, ContentHash: "ccc",
			RawFields: map[string]string{"Cooldown": "90s", "Duration": "30s"},
			FirstSeen: d3, LastSeen: d3},
	})

	latest, err := grown.Latest("chrono_field", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest.Seq)

	pinned, err := grown.AsOf("chrono_field", 3, d1)
	require.NoError(t, err)
	assert.Equal(t, oldAsOf, pinned, "as-of answers must not shift when history grows")
}

func TestResolve_UptimePercent(t *testing.T) {
	d, err := Resolve(fixtureSet(), "chrono_field", 3, "uptime_percent", nil)
	require.NoError(t, err)
	require.NotNil(t, d.Value)
	assert.InDelta(t, 30.0, *d.Value, 1e-9) // 30s / 100s from the latest revision
	assert.Equal(t, int64(2), d.RevisionSeq)
	assert.Equal(t, "bbb", d.ContentHash)
}

func TestResolve_AsOfUsesPinnedRevision(t *testing.T) {
	asOf := d1
	d, err := Resolve(fixtureSet(), "chrono_field", 3, "uptime_percent", &asOf)
	require.NoError(t, err)
	require.NotNil(t, d.Value)
	assert.InDelta(t, 25.0, *d.Value, 1e-9) // 30s / 120s
	assert.Equal(t, int64(1), d.RevisionSeq)
}

func TestResolve_UptimeClamped(t *testing.T) {
	set := NewRevisionSet([]Revision{{
		EntityID: "perma", Level: 1, Seq: 1, LastSeen: d1,
		RawFields: map[string]string{"Cooldown": "10s", "Duration": "45s"},
	}})
	d, err := Resolve(set, "perma", 1, "uptime_percent", nil)
	require.NoError(t, err)
	require.NotNil(t, d.Value)
	assert.Equal(t, 100.0, *d.Value)
}

func TestResolve_MissingParamIsExplicit(t *testing.T) {
	set := NewRevisionSet([]Revision{{
		EntityID: "e", Level: 1, Seq: 1, LastSeen: d1,
		RawFields: map[string]string{"Duration": "30s", "Damage Bonus": "x1.5"},
	}})
	d, err := Resolve(set, "e", 1, "uptime_percent", nil)
	require.NoError(t, err)
	assert.Nil(t, d.Value, "missing context must not become zero")
	assert.Equal(t, []string{"cooldown"}, d.MissingParams)
	assert.Equal(t, int64(1), d.RevisionSeq, "traceability survives missing params")
}

func TestResolve_ExtraParamsIgnored(t *testing.T) {
	set := NewRevisionSet([]Revision{{
		EntityID: "e", Level: 1, Seq: 1, LastSeen: d1,
		RawFields: map[string]string{
			"Cooldown": "60s", "Duration": "30s",
			"Unrelated": "77", "Damage Multiplier": "x2.5",
		},
	}})
	d, err := Resolve(set, "e", 1, "uptime_percent", nil)
	require.NoError(t, err)
	require.NotNil(t, d.Value)
	assert.Equal(t, 50.0, *d.Value)
}

func TestResolve_UnknownFormula(t *testing.T) {
	_, err := Resolve(fixtureSet(), "chrono_field", 3, "not_a_formula", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown derived metric")
}

func TestResolve_EffectSecondsPerMinute(t *testing.T) {
	d, err := Resolve(fixtureSet(), "chrono_field", 3, "effect_seconds_per_minute", nil)
	require.NoError(t, err)
	require.NotNil(t, d.Value)
	assert.InDelta(t, 18.0, *d.Value, 1e-9) // 60 * 30/100
}

func TestResolve_Deterministic(t *testing.T) {
	set := fixtureSet()
	a, err1 := Resolve(set, "chrono_field", 3, "cooldown_ratio", nil)
	b, err2 := Resolve(set, "chrono_field", 3, "cooldown_ratio", nil)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, a, b)
}
