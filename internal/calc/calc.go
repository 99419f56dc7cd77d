// Package calc holds the pure rate, delta, and windowing math. Every function
// is a deterministic computation over its arguments: no I/O, no caching, no
// package state. Degenerate arithmetic is surfaced as explicit sentinels,
// never coerced to zero or infinity.
package calc

import (
	"errors"
	"iter"
	"time"

	"github.com/towerstats/analyzer-cli/internal/metric"
	"github.com/towerstats/analyzer-cli/internal/quantity"
)

// ErrDivisionUndefined is returned when a rate's divisor is zero or missing.
var ErrDivisionUndefined = errors.New("calc: division undefined")

// ErrWindowTooSmall is returned for rolling-average windows below 2.
var ErrWindowTooSmall = errors.New("calc: window size must be at least 2")

// RatePerHour divides a quantity by a wall-clock duration, preserving the
// quantity's unit kind.
func RatePerHour(q quantity.Quantity, d time.Duration) (quantity.Quantity, error) {
	if d <= 0 {
		return quantity.Quantity{}, ErrDivisionUndefined
	}
	return quantity.Quantity{
		Raw:   q.Raw,
		Value: q.Value / d.Hours(),
		Kind:  q.Kind,
	}, nil
}

// RatePerWave divides a quantity by a wave count, preserving the unit kind.
func RatePerWave(q quantity.Quantity, waves int) (quantity.Quantity, error) {
	if waves <= 0 {
		return quantity.Quantity{}, ErrDivisionUndefined
	}
	return quantity.Quantity{
		Raw:   q.Raw,
		Value: q.Value / float64(waves),
		Kind:  q.Kind,
	}, nil
}

// Delta is the absolute and relative change from a to b. Percent is nil
// (undefined) when the baseline a is zero.
type Delta struct {
	Absolute float64  `json:"absolute"`
	Percent  *float64 `json:"percent,omitempty"`
}

// Diff computes the delta from a to b.
func Diff(a, b float64) Delta {
	d := Delta{Absolute: b - a}
	if a != 0 {
		pct := (b - a) / a * 100
		d.Percent = &pct
	}
	return d
}

// RollingAverage returns a lazy, finite, restartable sequence of averaged
// points aligned to the input ordering. Each output point keeps the X of the
// window's last input point; windows with fewer than window points are
// omitted, never partially computed. Ranging the sequence twice yields
// identical output.
func RollingAverage(points []metric.Point, window int) (iter.Seq[metric.Point], error) {
	if window < 2 {
		return nil, ErrWindowTooSmall
	}
	return func(yield func(metric.Point) bool) {
		if len(points) < window {
			return
		}
		var sum float64
		for i, p := range points {
			sum += p.Value
			if i >= window {
				sum -= points[i-window].Value
			}
			if i >= window-1 {
				if !yield(metric.Point{X: p.X, Value: sum / float64(window)}) {
					return
				}
			}
		}
	}, nil
}

// CollectRolling materializes a rolling average into a slice for callers that
// want the whole window set at once.
func CollectRolling(points []metric.Point, window int) ([]metric.Point, error) {
	seq, err := RollingAverage(points, window)
	if err != nil {
		return nil, err
	}
	out := []metric.Point{}
	for p := range seq {
		out = append(out, p)
	}
	return out, nil
}
