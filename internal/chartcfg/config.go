// Package chartcfg validates declarative chart configurations against the
// metric registry before any series are computed. Validation is total and
// side-effect-free; rejections are structured values naming the offending
// field, never opaque exceptions.
package chartcfg

import "fmt"

// ChartType is the requested chart rendering style.
type ChartType string

const (
	ChartLine       ChartType = "line"
	ChartBar        ChartType = "bar"
	ChartComparison ChartType = "comparison"
)

// GroupBy is the requested series grouping dimension.
type GroupBy string

const (
	GroupNone     GroupBy = ""
	GroupByTier   GroupBy = "by_tier"
	GroupByPreset GroupBy = "by_preset"
	GroupByEntity GroupBy = "by_entity"
)

// ComparisonMode selects how two series are set against each other.
type ComparisonMode string

const (
	CompareNone    ComparisonMode = "none"
	CompareOverlay ComparisonMode = "overlay"
	CompareDelta   ComparisonMode = "delta"
)

// Config is the external, JSON-shaped chart request. The validator is the
// sole gate between this shape and any computation.
type Config struct {
	Metrics        []string       `json:"metrics"`
	ChartType      ChartType      `json:"chart_type"`
	GroupBy        GroupBy        `json:"group_by,omitempty"`
	ComparisonMode ComparisonMode `json:"comparison_mode"`
	DerivedFormula string         `json:"derived_formula,omitempty"`
	Entities       []string       `json:"entities,omitempty"`
}

// Reason classifies a validation rejection.
type Reason string

const (
	ReasonNoMetrics           Reason = "no_metrics"
	ReasonUnknownMetric       Reason = "unknown_metric"
	ReasonBadChartType        Reason = "bad_chart_type"
	ReasonCategoryMix         Reason = "category_mix"
	ReasonBadGroupBy          Reason = "bad_group_by"
	ReasonUnsupportedGrouping Reason = "unsupported_grouping"
	ReasonEntityFilter        Reason = "entity_filter"
	ReasonBadComparisonMode   Reason = "bad_comparison_mode"
	ReasonGrammarViolation    Reason = "grammar_violation"
)

// ValidationError is a structured rejection with the rule reason and the
// offending field. Always recoverable by correcting the config.
type ValidationError struct {
	Reason Reason `json:"reason"`
	Field  string `json:"field"`
	Detail string `json:"detail,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("chartcfg: %s on %s: %s", e.Reason, e.Field, e.Detail)
}
