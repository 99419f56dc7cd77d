// Package quantity parses raw numeric tokens from battle reports into typed,
// unit-tagged values. Unit classification is lexical: the shape of the token
// (trailing %, leading x, h/m/s parts, leading $) decides the kind, never the
// surrounding context.
package quantity

import (
	"fmt"
	"time"
)

// UnitKind classifies what a parsed quantity measures.
type UnitKind string

const (
	UnitCount      UnitKind = "count"
	UnitCurrency   UnitKind = "currency"
	UnitDamage     UnitKind = "damage"
	UnitPercent    UnitKind = "percent"
	UnitMultiplier UnitKind = "multiplier"
	UnitDuration   UnitKind = "duration"
	UnitUnknown    UnitKind = "unknown"
)

// Magnitude is a compact multiplier suffix attached to a numeric token.
type Magnitude string

const (
	MagNone Magnitude = ""
	MagK    Magnitude = "K"
	MagM    Magnitude = "M"
	MagB    Magnitude = "B"
	MagT    Magnitude = "T"
	Magq    Magnitude = "q"
	MagQ    Magnitude = "Q"
)

// magnitudePowers maps each recognized suffix to its power of ten.
// Lookups are case-sensitive: "m" is minutes in a duration token, "M" is 1e6.
var magnitudePowers = map[Magnitude]float64{
	MagK: 1e3,
	MagM: 1e6,
	MagB: 1e9,
	MagT: 1e12,
	Magq: 1e15,
	MagQ: 1e18,
}

// Multiplier returns the power of ten for a magnitude suffix.
// MagNone yields 1. Unknown suffixes yield ok=false.
func (m Magnitude) Multiplier() (float64, bool) {
	if m == MagNone {
		return 1, true
	}
	p, ok := magnitudePowers[m]
	return p, ok
}

// Quantity is an immutable parsed numeric value with its unit classification.
// Value is fully normalized: magnitude suffixes are applied, durations are in
// seconds, multipliers and percents keep their face value (x1.25 -> 1.25,
// 15% -> 15).
type Quantity struct {
	Raw       string    `json:"raw"`
	Value     float64   `json:"value"`
	Magnitude Magnitude `json:"magnitude,omitempty"`
	Kind      UnitKind  `json:"kind"`
}

// Duration converts a duration-kind quantity to a time.Duration.
// Returns zero for any other kind.
func (q Quantity) Duration() time.Duration {
	if q.Kind != UnitDuration {
		return 0
	}
	return time.Duration(q.Value * float64(time.Second))
}

// FailReason identifies why a token could not be parsed.
type FailReason string

const (
	ReasonEmpty         FailReason = "empty"
	ReasonBadNumber     FailReason = "bad_number"
	ReasonUnknownSuffix FailReason = "unknown_suffix"
	ReasonUnitMismatch  FailReason = "unit_mismatch"
)

// ParseError reports a failed strict parse. It is a return value, not a
// control-flow exception: callers branch on it with errors.As and treat the
// field as missing.
type ParseError struct {
	Raw      string
	Reason   FailReason
	Expected UnitKind
	Detected UnitKind
}

func (e *ParseError) Error() string {
	if e.Reason == ReasonUnitMismatch {
		return fmt.Sprintf("quantity: %q parsed as %s where %s expected", e.Raw, e.Detected, e.Expected)
	}
	return fmt.Sprintf("quantity: cannot parse %q: %s", e.Raw, e.Reason)
}
