package quantity

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	durationRe = regexp.MustCompile(`^(?:(\d+)h)?(?:(\d+)m)?(?:(\d+(?:\.\d+)?)s)?$`)
	lenientRe  = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?\s*[KMBTqQ]?`)
)

// Parse parses a raw token in fail-fast mode: the token's lexical shape must
// be compatible with the expected kind, otherwise a ReasonUnitMismatch
// ParseError is returned. This is the entry point for every value that feeds
// rates, deltas, or derived metrics.
//
// Shape compatibility is narrow: a distinctive shape (percent, multiplier,
// composite duration, currency glyph) only satisfies its own kind. A plain
// magnitude-suffixed number satisfies count, damage, and currency (tagged with
// the expected kind), and bare digits satisfy duration as whole seconds.
func Parse(raw string, expected UnitKind) (Quantity, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Quantity{}, &ParseError{Raw: raw, Reason: ReasonEmpty, Expected: expected}
	}

	q, perr := detect(trimmed)
	if perr != nil {
		perr.Expected = expected
		return Quantity{}, perr
	}

	if expected == UnitUnknown || q.Kind == expected {
		return q, nil
	}

	// Plain numbers are shape-ambiguous across the scalar kinds.
	if q.Kind == UnitCount {
		switch expected {
		case UnitDamage, UnitCurrency:
			q.Kind = expected
			return q, nil
		case UnitDuration:
			// Bare seconds; a magnitude suffix makes no sense on a duration.
			if q.Magnitude == MagNone {
				q.Kind = UnitDuration
				return q, nil
			}
		}
	}

	return Quantity{}, &ParseError{
		Raw:      raw,
		Reason:   ReasonUnitMismatch,
		Expected: expected,
		Detected: q.Kind,
	}
}

// ParseLenient never fails. It is used only for opportunistic free-text
// scanning (pulling an approximate figure out of prose); anything ambiguous
// comes back with Kind UnitUnknown and must not feed rate or delta math.
func ParseLenient(raw string) Quantity {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Quantity{Raw: raw, Kind: UnitUnknown}
	}

	if q, perr := detect(trimmed); perr == nil {
		return q
	}

	// Salvage the first numeric run, with its suffix when recognizable.
	m := lenientRe.FindString(trimmed)
	if m == "" {
		return Quantity{Raw: raw, Kind: UnitUnknown}
	}
	if v, mag, perr := parseNumber(strings.ReplaceAll(m, " ", "")); perr == nil {
		return Quantity{Raw: raw, Value: v, Magnitude: mag, Kind: UnitUnknown}
	}
	// Recognized digits but an unusable suffix: keep the mantissa.
	digits := strings.TrimRight(m, "KMBTqQ ")
	if v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64); err == nil {
		return Quantity{Raw: raw, Value: v, Kind: UnitUnknown}
	}
	return Quantity{Raw: raw, Kind: UnitUnknown}
}

// detect classifies a trimmed token by lexical shape, in priority order:
// percent, multiplier, composite duration, currency, plain magnitude number.
func detect(s string) (Quantity, *ParseError) {
	switch {
	case strings.HasSuffix(s, "%"):
		v, mag, perr := parseNumber(strings.TrimSuffix(s, "%"))
		if perr != nil {
			perr.Raw = s
			return Quantity{}, perr
		}
		return Quantity{Raw: s, Value: v, Magnitude: mag, Kind: UnitPercent}, nil

	case isMultiplierShape(s):
		v, err := strconv.ParseFloat(s[1:], 64)
		if err != nil {
			return Quantity{}, &ParseError{Raw: s, Reason: ReasonBadNumber}
		}
		return Quantity{Raw: s, Value: v, Kind: UnitMultiplier}, nil

	case isDurationShape(s):
		secs, perr := parseDuration(s)
		if perr != nil {
			return Quantity{}, perr
		}
		return Quantity{Raw: s, Value: secs, Kind: UnitDuration}, nil

	case strings.HasPrefix(s, "$"):
		v, mag, perr := parseNumber(strings.TrimPrefix(s, "$"))
		if perr != nil {
			perr.Raw = s
			return Quantity{}, perr
		}
		return Quantity{Raw: s, Value: v, Magnitude: mag, Kind: UnitCurrency}, nil

	default:
		v, mag, perr := parseNumber(s)
		if perr != nil {
			perr.Raw = s
			return Quantity{}, perr
		}
		return Quantity{Raw: s, Value: v, Magnitude: mag, Kind: UnitCount}, nil
	}
}

// parseNumber parses a plain number with an optional trailing magnitude
// suffix. Thousands separators are tolerated. The suffix lookup is
// case-sensitive and exhaustive: an unrecognized trailing letter is a
// ReasonUnknownSuffix failure, never a best-effort guess.
func parseNumber(s string) (float64, Magnitude, *ParseError) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, MagNone, &ParseError{Reason: ReasonEmpty}
	}

	mag := MagNone
	last := s[len(s)-1]
	if last < '0' || last > '9' {
		if last == '.' {
			return 0, MagNone, &ParseError{Reason: ReasonBadNumber}
		}
		mag = Magnitude(s[len(s)-1:])
		s = strings.TrimSpace(s[:len(s)-1])
	}

	mult, ok := mag.Multiplier()
	if !ok {
		return 0, MagNone, &ParseError{Reason: ReasonUnknownSuffix}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, MagNone, &ParseError{Reason: ReasonBadNumber}
	}
	return v * mult, mag, nil
}

// isMultiplierShape reports whether s looks like x1.25: a leading x followed
// immediately by a digit or decimal point.
func isMultiplierShape(s string) bool {
	if len(s) < 2 || s[0] != 'x' {
		return false
	}
	c := s[1]
	return (c >= '0' && c <= '9') || c == '.' || c == '-'
}

// isDurationShape reports whether s is a composite duration such as 2h46m15s,
// 46m, or 90s. Bare digits are not a duration shape; they are reinterpreted
// as seconds only when the caller expects a duration.
func isDurationShape(s string) bool {
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	return m[1] != "" || m[2] != "" || m[3] != ""
}

func parseDuration(s string) (float64, *ParseError) {
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, &ParseError{Raw: s, Reason: ReasonBadNumber}
	}
	var secs float64
	if m[1] != "" {
		h, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, &ParseError{Raw: s, Reason: ReasonBadNumber}
		}
		secs += h * 3600
	}
	if m[2] != "" {
		min, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, &ParseError{Raw: s, Reason: ReasonBadNumber}
		}
		secs += min * 60
	}
	if m[3] != "" {
		sec, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return 0, &ParseError{Raw: s, Reason: ReasonBadNumber}
		}
		secs += sec
	}
	return secs, nil
}
