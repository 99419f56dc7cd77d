package effects

import (
	"fmt"
	"time"

	"github.com/towerstats/analyzer-cli/internal/quantity"
)

// paramSpec names one formula input and how its raw field parses.
type paramSpec struct {
	name string
	kind quantity.UnitKind
}

// formula is one entry of the closed derived-metric table.
type formula struct {
	params []paramSpec
	eval   func(args map[string]float64) float64
}

var (
	cooldownParam = paramSpec{name: "cooldown", kind: quantity.UnitDuration}
	durationParam = paramSpec{name: "duration", kind: quantity.UnitDuration}
)

// formulaTable is fixed and closed: no dynamic registration.
var formulaTable = map[string]formula{
	"uptime_percent": {
		params: []paramSpec{durationParam, cooldownParam},
		eval: func(a map[string]float64) float64 {
			return 100 * clamp(a["duration"]/a["cooldown"], 0, 1)
		},
	},
	"cooldown_ratio": {
		params: []paramSpec{durationParam, cooldownParam},
		eval: func(a map[string]float64) float64 {
			return a["duration"] / a["cooldown"]
		},
	},
	"effect_seconds_per_minute": {
		params: []paramSpec{durationParam, cooldownParam},
		eval: func(a map[string]float64) float64 {
			return 60 * clamp(a["duration"]/a["cooldown"], 0, 1)
		},
	},
}

// FormulaKeys returns the derived metric keys the resolver can compute.
func FormulaKeys() []string {
	keys := make([]string, 0, len(formulaTable))
	for k := range formulaTable {
		keys = append(keys, k)
	}
	return keys
}

// Derived is a computed effect metric paired with the revision identifiers
// consulted, for traceability. Value is nil when required parameters were
// absent from the revision; MissingParams then names them. A nil Value is
// an explicit missing-context marker, never a substituted zero.
type Derived struct {
	Metric        string    `json:"metric"`
	Value         *float64  `json:"value,omitempty"`
	MissingParams []string  `json:"missing_params,omitempty"`
	RevisionSeq   int64     `json:"revision_seq"`
	ContentHash   string    `json:"content_hash"`
	LastSeen      time.Time `json:"last_seen"`
}

// Resolve selects the applicable revision for (entity, level) and computes
// metricKey from it. A nil asOf means latest mode. Selection failures come
// back as *NoRevisionError; an unknown metricKey is a programming error in
// the caller and fails loudly.
func Resolve(set *RevisionSet, entityID string, level int, metricKey string, asOf *time.Time) (Derived, error) {
	f, ok := formulaTable[metricKey]
	if !ok {
		return Derived{}, fmt.Errorf("effects: unknown derived metric %q", metricKey)
	}

	var rev Revision
	var err error
	if asOf == nil {
		rev, err = set.Latest(entityID, level)
	} else {
		rev, err = set.AsOf(entityID, level, *asOf)
	}
	if err != nil {
		return Derived{}, err
	}

	d := Derived{
		Metric:      metricKey,
		RevisionSeq: rev.Seq,
		ContentHash: rev.ContentHash,
		LastSeen:    rev.LastSeen,
	}

	args := make(map[string]float64, len(f.params))
	for _, p := range f.params {
		v, found := rev.param(p.name, p.kind)
		if !found {
			d.MissingParams = append(d.MissingParams, p.name)
			continue
		}
		args[p.name] = v
	}
	if len(d.MissingParams) > 0 {
		return d, nil
	}
	if args["cooldown"] == 0 {
		// Zero cooldown makes every ratio formula degenerate.
		d.MissingParams = []string{"cooldown"}
		return d, nil
	}

	v := f.eval(args)
	d.Value = &v
	return d, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
