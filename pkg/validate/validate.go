// Package validate gates every externally-derived scalar before it enters
// a record. Values that fail a check are replaced by the caller's default,
// never rejected with an error; out-of-range numbers are clamped.
package validate

import (
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/tokscope/tokscope/pkg/count"
)

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)
)

// Validator applies type, range, and format checks. The zero value is
// usable and silent; New attaches a logger for clamp warnings.
type Validator struct {
	logger *slog.Logger
}

// New returns a Validator that logs clamped and rejected values.
func New(logger *slog.Logger) Validator {
	return Validator{logger: logger}
}

func (v Validator) warn(msg string, args ...any) {
	if v.logger != nil {
		v.logger.Warn(msg, args...)
	}
}

// String trims s and substitutes def when nothing remains.
func (Validator) String(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// Int clamps n into [min, max]. Out-of-range values are clamped and logged
// rather than rejected.
func (v Validator) Int(n, min, max int64) int64 {
	switch {
	case n < min:
		v.warn("count below minimum, clamping", "value", n, "min", min)
		return min
	case n > max:
		v.warn("count above maximum, clamping", "value", n, "max", max)
		return max
	default:
		return n
	}
}

// IntText coerces s through count.Parse and clamps the result into
// [min, max]. A string with no numeric content at all yields def (clamped).
func (v Validator) IntText(s string, def, min, max int64) int64 {
	if !strings.ContainsFunc(s, unicode.IsDigit) {
		return v.Int(def, min, max)
	}
	return v.Int(count.Parse(s), min, max)
}

// Float parses s and clamps the result into [min, max]; unparsable input
// yields def (clamped).
func (v Validator) Float(s string, def, min, max float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		f = def
	}
	switch {
	case f < min:
		v.warn("value below minimum, clamping", "value", f, "min", min)
		return min
	case f > max:
		v.warn("value above maximum, clamping", "value", f, "max", max)
		return max
	default:
		return f
	}
}

// URL accepts s only if it parses with both a scheme and a host.
func (Validator) URL(s, def string) string {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return def
	}
	return s
}

// Email accepts s only if it matches a standard local@domain pattern.
func (Validator) Email(s, def string) string {
	s = strings.TrimSpace(s)
	if !emailPattern.MatchString(s) {
		return def
	}
	return s
}

// Username strips a leading @ and accepts the rest only if it is a valid
// handle (letters, digits, underscore, period).
func (Validator) Username(s, def string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "@")
	if !handlePattern.MatchString(s) {
		return def
	}
	return s
}
