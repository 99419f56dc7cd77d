// Package metric defines the closed catalog of chartable metrics. The
// registry is built once at startup from a static table and is read-only
// afterwards; every metric surfaced anywhere downstream must have exactly one
// definition here.
package metric

import (
	"fmt"

	"github.com/towerstats/analyzer-cli/internal/quantity"
)

// Category is the semantic family a metric belongs to.
type Category string

const (
	CategoryEconomy Category = "economy"
	CategoryCombat  Category = "combat"
	CategoryFetch   Category = "fetch"
	CategoryUtility Category = "utility"
)

// GroupDim is a dimension a metric's series can be grouped by.
type GroupDim string

const (
	GroupByTime   GroupDim = "time"
	GroupByTier   GroupDim = "tier"
	GroupByPreset GroupDim = "preset"
	GroupByEntity GroupDim = "entity"
)

// Definition describes one metric: its display unit, semantic category, and
// which grouping dimensions it supports.
type Definition struct {
	Key       string            `json:"key"`
	Unit      quantity.UnitKind `json:"unit"`
	Category  Category          `json:"category"`
	GroupDims []GroupDim        `json:"group_dims"`
}

// SupportsGrouping reports whether the metric can be grouped by dim.
func (d Definition) SupportsGrouping(dim GroupDim) bool {
	for _, g := range d.GroupDims {
		if g == dim {
			return true
		}
	}
	return false
}

// NotFoundError reports a metric key absent from the registry.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("metric: no definition for key %q", e.Key)
}

// Registry is an indexed, read-only collection of metric definitions.
type Registry struct {
	defs  []Definition
	byKey map[string]*Definition
}

// New builds a Registry from a definition table. Duplicate keys are a
// programming error in the table, not input.
func New(defs []Definition) (*Registry, error) {
	r := &Registry{
		defs:  defs,
		byKey: make(map[string]*Definition, len(defs)),
	}
	for i := range r.defs {
		d := &r.defs[i]
		if d.Key == "" {
			return nil, fmt.Errorf("metric: definition %d has empty key", i)
		}
		if _, dup := r.byKey[d.Key]; dup {
			return nil, fmt.Errorf("metric: duplicate definition for key %q", d.Key)
		}
		r.byKey[d.Key] = d
	}
	return r, nil
}

// MustNew is New for static tables known at compile time.
func MustNew(defs []Definition) *Registry {
	r, err := New(defs)
	if err != nil {
		panic(err)
	}
	return r
}

// DefinitionOf returns the definition for key, or a *NotFoundError.
func (r *Registry) DefinitionOf(key string) (Definition, error) {
	if d, ok := r.byKey[key]; ok {
		return *d, nil
	}
	return Definition{}, &NotFoundError{Key: key}
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.byKey[key]
	return ok
}

// Keys returns all registered keys in table order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.defs))
	for i, d := range r.defs {
		keys[i] = d.Key
	}
	return keys
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}
