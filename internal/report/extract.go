package report

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/towerstats/analyzer-cli/internal/quantity"
)

// FieldValue is one extracted schema field. Missing means the label was
// absent or its value failed strict parsing; consumers must render missing
// explicitly, never fabricate a number for it.
type FieldValue struct {
	Name     string            `json:"name"`
	Label    string            `json:"label,omitempty"` // matched source label
	Raw      string            `json:"raw,omitempty"`
	Type     FieldType         `json:"type"`
	Quantity quantity.Quantity `json:"quantity,omitempty"`
	Time     time.Time         `json:"time,omitempty"`
	Text     string            `json:"text,omitempty"`
	Missing  bool              `json:"missing"`
	FailWhy  string            `json:"fail_why,omitempty"` // parse failure, "" when label absent
}

// Report is the extraction result: typed fields in schema order, unknown
// labels in encounter order, and the byte-identical source text with its
// content hash for upstream dedup. Never mutated after creation.
type Report struct {
	Source        string       `json:"source"`
	ContentHash   string       `json:"content_hash"`
	Fields        []FieldValue `json:"fields"`
	UnknownLabels []string     `json:"unknown_labels"`

	byName map[string]int
}

// Field returns the value for a schema field name.
func (r *Report) Field(name string) (FieldValue, bool) {
	i, ok := r.byName[name]
	if !ok {
		return FieldValue{}, false
	}
	return r.Fields[i], true
}

// QuantityOf returns the parsed quantity for a present quantity field.
func (r *Report) QuantityOf(name string) (quantity.Quantity, bool) {
	f, ok := r.Field(name)
	if !ok || f.Missing || f.Type != FieldQuantity {
		return quantity.Quantity{}, false
	}
	return f.Quantity, true
}

// dateLayouts are tried in order for date fields.
var dateLayouts = []string{
	"2006-01-02",
	"Jan 2, 2006",
	"Jan 2 2006",
	"02/01/2006",
	"2006-01-02 15:04",
}

// Extract tokenizes raw report text against schema. It never aborts:
// unrecognized labels land in UnknownLabels, malformed values mark their
// field missing. Byte-identical input yields a structurally identical Report.
func Extract(raw string, schema *LabelSchema) *Report {
	sum := sha256.Sum256([]byte(raw))
	rep := &Report{
		Source:        raw,
		ContentHash:   hex.EncodeToString(sum[:]),
		UnknownLabels: []string{},
		byName:        make(map[string]int),
	}

	// Seed every schema field as missing; matched lines fill them in.
	for _, name := range schema.Fields() {
		rule, _ := schema.RuleFor(name)
		rep.byName[name] = len(rep.Fields)
		rep.Fields = append(rep.Fields, FieldValue{
			Name:    name,
			Type:    rule.Type,
			Missing: true,
		})
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		label, value, ok := splitLine(line)
		if !ok {
			continue
		}
		rule, known := schema.match(label)
		if !known {
			rep.UnknownLabels = append(rep.UnknownLabels, strings.TrimSpace(label))
			continue
		}
		idx := rep.byName[rule.Field]
		if !rep.Fields[idx].Missing {
			// First occurrence wins; repeats are residue, not overrides.
			continue
		}
		rep.Fields[idx] = parseField(rule, strings.TrimSpace(label), strings.TrimSpace(value))
	}

	return rep
}

// parseField parses one matched value per its rule, in fail-fast mode for
// quantity fields. A failed parse records the field missing with the reason.
func parseField(rule Rule, label, value string) FieldValue {
	fv := FieldValue{
		Name:  rule.Field,
		Label: label,
		Raw:   value,
		Type:  rule.Type,
	}

	switch rule.Type {
	case FieldText:
		fv.Text = value
		fv.Missing = value == ""
		return fv

	case FieldDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				fv.Time = t.UTC()
				return fv
			}
		}
		fv.Missing = true
		fv.FailWhy = "unrecognized date format"
		return fv

	default:
		q, err := quantity.Parse(value, rule.Unit)
		if err != nil {
			fv.Missing = true
			fv.FailWhy = err.Error()
			return fv
		}
		fv.Quantity = q
		return fv
	}
}

// splitLine tries the three delimiter strategies in order: tab, colon, then
// 2+-space alignment. The first strategy producing a non-empty label and
// value wins.
func splitLine(line string) (label, value string, ok bool) {
	if l, v, found := cutNonEmpty(line, "\t"); found {
		return l, v, true
	}
	if l, v, found := cutNonEmpty(line, ":"); found {
		return l, v, true
	}
	if loc := alignSplitRe.FindStringIndex(strings.TrimSpace(line)); loc != nil {
		trimmed := strings.TrimSpace(line)
		l := strings.TrimSpace(trimmed[:loc[0]])
		v := strings.TrimSpace(trimmed[loc[1]:])
		if l != "" && v != "" {
			return l, v, true
		}
	}
	return "", "", false
}

func cutNonEmpty(line, sep string) (string, string, bool) {
	l, v, found := strings.Cut(line, sep)
	if !found {
		return "", "", false
	}
	l, v = strings.TrimSpace(l), strings.TrimSpace(v)
	if l == "" || v == "" {
		return "", "", false
	}
	return l, v, true
}
