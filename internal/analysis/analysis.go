// Package analysis assembles metric series and run summaries from extracted
// reports. Like the rest of the core it is pure: callers pass in the reports
// and get plain series back.
package analysis

import (
	"strconv"

	"github.com/towerstats/analyzer-cli/internal/calc"
	"github.com/towerstats/analyzer-cli/internal/chartcfg"
	"github.com/towerstats/analyzer-cli/internal/metric"
	"github.com/towerstats/analyzer-cli/internal/report"
)

// Summary flattens a report's present quantity fields into metric values,
// keyed by field name. Missing fields are absent, never zero. Coins per hour
// is derived from coins earned and real time when the report itself did not
// carry the figure.
func Summary(rep *report.Report) map[string]float64 {
	out := make(map[string]float64)
	for _, f := range rep.Fields {
		if f.Missing || f.Type != report.FieldQuantity {
			continue
		}
		out[f.Name] = f.Quantity.Value
	}
	if _, have := out["coins_per_hour"]; !have {
		if v, ok := derivedCoinsPerHour(rep); ok {
			out["coins_per_hour"] = v
		}
	}
	return out
}

func derivedCoinsPerHour(rep *report.Report) (float64, bool) {
	coins, ok := rep.QuantityOf("coins_earned")
	if !ok {
		return 0, false
	}
	rt, ok := rep.QuantityOf("real_time")
	if !ok {
		return 0, false
	}
	rate, err := calc.RatePerHour(coins, rt.Duration())
	if err != nil {
		return 0, false
	}
	return rate.Value, true
}

// BuildSeries produces one series for a metric key across reports, in input
// order. The series carries a single X axis: battle-date unix timestamps when
// at least one matching report has a date (dateless reports are then
// skipped), input position when none does. Reports missing the metric are
// skipped; a context tier filter drops non-matching reports. Zero matching
// reports yield a typed-empty series.
func BuildSeries(reports []*report.Report, key string, ctx metric.SeriesContext) metric.Series {
	type entry struct {
		pos     int
		value   float64
		date    float64
		hasDate bool
	}

	var entries []entry
	dated := false
	for i, rep := range reports {
		if ctx.Tier != "" && !tierMatches(rep, ctx.Tier) {
			continue
		}
		v, ok := Summary(rep)[key]
		if !ok {
			continue
		}
		e := entry{pos: i, value: v}
		if date, found := rep.Field("battle_date"); found && !date.Missing {
			e.date = float64(date.Time.Unix())
			e.hasDate = true
			dated = true
		}
		entries = append(entries, e)
	}

	s := metric.NewSeries(key, ctx)
	for _, e := range entries {
		switch {
		case dated && e.hasDate:
			s.Points = append(s.Points, metric.Point{X: e.date, Value: e.value})
		case !dated:
			s.Points = append(s.Points, metric.Point{X: float64(e.pos), Value: e.value})
		}
	}
	return s
}

func tierMatches(rep *report.Report, tier string) bool {
	q, ok := rep.QuantityOf("tier")
	if !ok {
		return false
	}
	return strconv.FormatFloat(q.Value, 'f', -1, 64) == tier
}

// EvalFormula evaluates a validated config's derived formula over one
// report's summary. The bool result is false when the formula references a
// metric the report is missing or the arithmetic is undefined.
func EvalFormula(vc *chartcfg.ValidConfig, rep *report.Report) (float64, bool) {
	if vc.Formula == nil {
		return 0, false
	}
	return vc.Formula.Eval(Summary(rep))
}
