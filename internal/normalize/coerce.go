package normalize

import (
	"strconv"
	"strings"
)

// absentValues are the placeholder strings providers emit for missing
// numerics.
var absentValues = map[string]bool{
	"":    true,
	"-":   true,
	"--":  true,
	"n/a": true,
	"na":  true,
	"nan": true,
}

// CoerceFloat parses numeric-looking text into a float, tolerating
// percent signs, thousands separators, currency symbols, and
// accounting-style negatives. Values that cannot be coerced are
// absent (nil), never an error.
func CoerceFloat(s string) *float64 {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
	if absentValues[strings.ToLower(s)] {
		return nil
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	for _, cut := range []string{"%", "$", "€", "£", ",", " "} {
		s = strings.ReplaceAll(s, cut, "")
	}
	if s == "" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if neg {
		v = -v
	}
	return &v
}
