package declaration

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// plainDecimal is what a locale number must look like once normalised.
// ParseFloat alone would also take NaN, Inf and exponents.
var plainDecimal = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// ParseNumber parses a Brazilian-formatted decimal ("1.234,56" -> 1234.56).
// Empty or unparseable input yields nil, never an error, so callers can tell
// "unparseable" apart from a genuine zero.
func ParseNumber(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, " ", " "))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	if !plainDecimal.MatchString(s) {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
