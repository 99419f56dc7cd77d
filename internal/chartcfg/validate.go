package chartcfg

import (
	"fmt"

	"github.com/towerstats/analyzer-cli/internal/metric"
)

// ValidConfig is a config that passed every rule, with its registry
// resolutions and parsed formula attached so downstream series computation
// never re-checks.
type ValidConfig struct {
	Config
	Definitions []metric.Definition
	Formula     Expr // nil when no derived formula was requested
}

var groupDimFor = map[GroupBy]metric.GroupDim{
	GroupByTier:   metric.GroupByTier,
	GroupByPreset: metric.GroupByPreset,
	GroupByEntity: metric.GroupByEntity,
}

// Validate checks cfg against the fixed rule set and the registry snapshot.
// It is total and side-effect-free: the same config and registry always yield
// the same verdict. Failures are *ValidationError values.
func Validate(cfg Config, reg *metric.Registry) (*ValidConfig, error) {
	if len(cfg.Metrics) == 0 {
		return nil, &ValidationError{Reason: ReasonNoMetrics, Field: "metrics", Detail: "at least one metric is required"}
	}

	switch cfg.ChartType {
	case ChartLine, ChartBar, ChartComparison:
	default:
		return nil, &ValidationError{
			Reason: ReasonBadChartType, Field: "chart_type",
			Detail: fmt.Sprintf("unknown chart type %q", cfg.ChartType),
		}
	}

	switch cfg.ComparisonMode {
	case CompareNone, CompareOverlay, CompareDelta:
	default:
		return nil, &ValidationError{
			Reason: ReasonBadComparisonMode, Field: "comparison_mode",
			Detail: fmt.Sprintf("unknown comparison mode %q", cfg.ComparisonMode),
		}
	}

	// Rule 1: every metric key must resolve in the registry.
	defs := make([]metric.Definition, 0, len(cfg.Metrics))
	for _, key := range cfg.Metrics {
		d, err := reg.DefinitionOf(key)
		if err != nil {
			return nil, &ValidationError{
				Reason: ReasonUnknownMetric, Field: "metrics",
				Detail: fmt.Sprintf("metric %q is not registered", key),
			}
		}
		defs = append(defs, d)
	}

	// Rule 2: one category per config, unless the chart type is comparison.
	if cfg.ChartType != ChartComparison {
		first := defs[0].Category
		for _, d := range defs[1:] {
			if d.Category != first {
				return nil, &ValidationError{
					Reason: ReasonCategoryMix, Field: "metrics",
					Detail: fmt.Sprintf("%s mixes categories %s and %s; only comparison charts may", d.Key, first, d.Category),
				}
			}
		}
	}

	// Rule 3: grouping must be supported by every referenced metric, and
	// by_entity needs exactly one entity filter.
	if cfg.GroupBy != GroupNone {
		dim, known := groupDimFor[cfg.GroupBy]
		if !known {
			return nil, &ValidationError{
				Reason: ReasonBadGroupBy, Field: "group_by",
				Detail: fmt.Sprintf("unknown grouping %q", cfg.GroupBy),
			}
		}
		for _, d := range defs {
			if !d.SupportsGrouping(dim) {
				return nil, &ValidationError{
					Reason: ReasonUnsupportedGrouping, Field: "group_by",
					Detail: fmt.Sprintf("metric %q does not support grouping %s", d.Key, cfg.GroupBy),
				}
			}
		}
		if cfg.GroupBy == GroupByEntity && len(cfg.Entities) != 1 {
			return nil, &ValidationError{
				Reason: ReasonEntityFilter, Field: "entities",
				Detail: fmt.Sprintf("by_entity requires exactly one entity filter, got %d", len(cfg.Entities)),
			}
		}
	}

	// Rule 4: derived formula grammar over this config's own metric keys.
	var formula Expr
	if cfg.DerivedFormula != "" {
		f, verr := ParseFormula(cfg.DerivedFormula, cfg.Metrics)
		if verr != nil {
			return nil, verr
		}
		formula = f
	}

	return &ValidConfig{Config: cfg, Definitions: defs, Formula: formula}, nil
}
