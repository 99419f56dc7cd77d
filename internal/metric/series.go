package metric

// Point is one (x, value) pair of a series. X is whatever ordering axis the
// caller chose: a wave number, a run index, or a unix timestamp.
type Point struct {
	X     float64 `json:"x"`
	Value float64 `json:"value"`
}

// SeriesContext narrows a series to a tier, preset, or entity. Empty fields
// mean unfiltered.
type SeriesContext struct {
	Tier   string `json:"tier,omitempty"`
	Preset string `json:"preset,omitempty"`
	Entity string `json:"entity,omitempty"`
}

// Series is an ordered sequence of points for one metric. A series over zero
// matching records has an empty Points slice; "missing" is not a series state.
type Series struct {
	Key     string        `json:"key"`
	Points  []Point       `json:"points"`
	Context SeriesContext `json:"context,omitempty"`
}

// NewSeries builds a typed-empty series for key.
func NewSeries(key string, ctx SeriesContext) Series {
	return Series{Key: key, Points: []Point{}, Context: ctx}
}
