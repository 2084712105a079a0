// Package count parses localized, abbreviated count strings into integers.
package count

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericToken matches the leading digits-and-dots run after normalization.
var numericToken = regexp.MustCompile(`[\d.]+`)

// arabicDigits maps Arabic-Indic digit glyphs to ASCII digits.
var arabicDigits = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

// Parse converts a count string such as "1.2K", "3M", "٥٠٠" or "12,345"
// into a non-negative integer. Magnitude suffixes K/M/B and their Arabic
// spellings multiply the leading numeric token; thousands separators and
// whitespace are ignored. Parse is total: anything unparsable yields 0.
func Parse(text string) int64 {
	if text == "" {
		return 0
	}

	text = arabicDigits.Replace(text)
	text = strings.ReplaceAll(text, ",", "")
	text = strings.ReplaceAll(text, " ", "")
	text = strings.ReplaceAll(text, " ", "")
	text = strings.TrimSpace(text)

	upper := strings.ToUpper(text)
	multiplier := 1.0
	switch {
	case strings.Contains(upper, "K") || strings.Contains(text, "ألف") || strings.Contains(text, "الف"):
		multiplier = 1e3
	case strings.Contains(upper, "M") || strings.Contains(text, "مليون"):
		multiplier = 1e6
	case strings.Contains(upper, "B") || strings.Contains(text, "مليار"):
		multiplier = 1e9
	}

	token := numericToken.FindString(text)
	if token == "" {
		return 0
	}
	n, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}

	v := n * multiplier
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(v)
}
