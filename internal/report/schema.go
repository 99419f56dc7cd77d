// Package report turns free-form battle-report text into typed field records.
// Extraction is tolerant: any of three delimiter styles per line, any line
// order, unknown labels kept as non-fatal residue, malformed fields recorded
// as missing rather than defaulted.
package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/towerstats/analyzer-cli/internal/quantity"
)

// FieldType distinguishes how a matched value is parsed.
type FieldType string

const (
	FieldQuantity FieldType = "quantity"
	FieldDate     FieldType = "date"
	FieldText     FieldType = "text"
)

// Rule maps one report label onto a schema field. Several labels may map to
// the same field (report wording drifts across game versions).
type Rule struct {
	Label    string            `yaml:"label"`
	Field    string            `yaml:"field"`
	Type     FieldType         `yaml:"type,omitempty"`
	Unit     quantity.UnitKind `yaml:"unit,omitempty"`
	Required bool              `yaml:"required,omitempty"`
}

// LabelSchema is the static label table the extractor matches against.
// Extending it (new labels, new fields) never requires extractor changes.
type LabelSchema struct {
	fieldOrder []string
	fieldRule  map[string]Rule // canonical rule per field (first rule wins)
	byLabel    map[string]Rule // folded label -> rule
}

var (
	foldCaser    = cases.Fold()
	spaceRunRe   = regexp.MustCompile(`\s+`)
	alignSplitRe = regexp.MustCompile(`\s{2,}`)
)

// foldLabel normalizes a label for matching: Unicode case fold plus
// whitespace collapse.
func foldLabel(label string) string {
	return foldCaser.String(spaceRunRe.ReplaceAllString(strings.TrimSpace(label), " "))
}

// NewSchema builds a LabelSchema from a rule table.
func NewSchema(rules []Rule) (*LabelSchema, error) {
	s := &LabelSchema{
		fieldRule: make(map[string]Rule),
		byLabel:   make(map[string]Rule, len(rules)),
	}
	for i, r := range rules {
		if r.Label == "" || r.Field == "" {
			return nil, fmt.Errorf("report: rule %d has empty label or field", i)
		}
		if r.Type == "" {
			r.Type = FieldQuantity
		}
		if r.Type == FieldQuantity && r.Unit == "" {
			return nil, fmt.Errorf("report: rule %q has no unit kind", r.Label)
		}
		folded := foldLabel(r.Label)
		if _, dup := s.byLabel[folded]; dup {
			return nil, fmt.Errorf("report: duplicate label %q", r.Label)
		}
		s.byLabel[folded] = r
		if _, seen := s.fieldRule[r.Field]; !seen {
			s.fieldOrder = append(s.fieldOrder, r.Field)
			s.fieldRule[r.Field] = r
		}
	}
	return s, nil
}

// MustNewSchema is NewSchema for static tables.
func MustNewSchema(rules []Rule) *LabelSchema {
	s, err := NewSchema(rules)
	if err != nil {
		panic(err)
	}
	return s
}

// LoadRules reads a rule table from YAML, the same format the defaults use.
func LoadRules(r io.Reader) ([]Rule, error) {
	var rules []Rule
	if err := yaml.NewDecoder(r).Decode(&rules); err != nil {
		return nil, fmt.Errorf("report: decode schema yaml: %w", err)
	}
	return rules, nil
}

// Fields returns the schema's field names in table order.
func (s *LabelSchema) Fields() []string {
	return s.fieldOrder
}

// RuleFor returns the canonical rule for a field name.
func (s *LabelSchema) RuleFor(field string) (Rule, bool) {
	r, ok := s.fieldRule[field]
	return r, ok
}

// match resolves a source label against the table.
func (s *LabelSchema) match(label string) (Rule, bool) {
	r, ok := s.byLabel[foldLabel(label)]
	return r, ok
}

// defaultRules is the built-in battle-report label table.
var defaultRules = []Rule{
	{Label: "Battle Date", Field: "battle_date", Type: FieldDate},
	{Label: "Date", Field: "battle_date", Type: FieldDate},
	{Label: "Tier", Field: "tier", Unit: quantity.UnitCount, Required: true},
	{Label: "Wave", Field: "highest_wave", Unit: quantity.UnitCount, Required: true},
	{Label: "Highest Wave", Field: "highest_wave", Unit: quantity.UnitCount, Required: true},
	{Label: "Real Time", Field: "real_time", Unit: quantity.UnitDuration, Required: true},
	{Label: "Game Time", Field: "game_time", Unit: quantity.UnitDuration},
	{Label: "Coins Earned", Field: "coins_earned", Unit: quantity.UnitCurrency, Required: true},
	{Label: "Coins Per Hour", Field: "coins_per_hour", Unit: quantity.UnitCurrency},
	{Label: "Coins/Hour", Field: "coins_per_hour", Unit: quantity.UnitCurrency},
	{Label: "Cash Earned", Field: "cash_earned", Unit: quantity.UnitCurrency},
	{Label: "Interest Earned", Field: "interest_earned", Unit: quantity.UnitCurrency},
	{Label: "Cells Earned", Field: "cells_earned", Unit: quantity.UnitCount},
	{Label: "Reroll Shards Earned", Field: "reroll_shards_earned", Unit: quantity.UnitCount},
	{Label: "Damage Dealt", Field: "damage_dealt", Unit: quantity.UnitDamage},
	{Label: "Damage Taken", Field: "damage_taken", Unit: quantity.UnitDamage},
	{Label: "Enemies Destroyed", Field: "enemies_destroyed", Unit: quantity.UnitCount},
	{Label: "Enemies Killed", Field: "enemies_destroyed", Unit: quantity.UnitCount},
	{Label: "Killed By", Field: "killed_by", Type: FieldText},
}

var defaultSchema = MustNewSchema(defaultRules)

// DefaultSchema returns the built-in label table.
func DefaultSchema() *LabelSchema {
	return defaultSchema
}
