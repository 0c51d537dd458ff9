package ri

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"ric/css"
)

// Scalar is a converted magnitude together with its resulting unit symbol.
type Scalar struct {
	Value float64
	Unit  string
}

func (s Scalar) String() string {
	return css.FormatNumber(s.Value) + s.Unit
}

// branch identifies which leg of the scale-or-clamp rule produced a result.
// The string form needs it to keep untouched tokens verbatim.
type branch int

const (
	branchScale branch = iota
	branchClamp
	branchKeep
)

// ConvertScalar converts one structured (value, unit) pair.
//
// The absolute unit maps 1:1 onto the source unit, bypassing scaling. The
// source unit goes through the scale-or-clamp rule. Every other unit passes
// through unchanged, which makes the conversion idempotent on already
// converted values. Units compare by exact symbol, no case folding.
func (c *Config) ConvertScalar(v float64, unit string) Scalar {
	switch unit {
	case c.AbsoluteUnit:
		return Scalar{Value: v, Unit: c.Unit}
	case c.Unit:
		res, _ := c.scaleOrClamp(v)
		return res
	}
	return Scalar{Value: v, Unit: unit}
}

// ConvertToken converts one text token. A token whose suffix is neither the
// source nor the absolute unit, or whose prefix does not look numeric,
// comes back verbatim. A numeric looking prefix that fails to parse is a
// conversion error rather than a silent NaN.
func (c *Config) ConvertToken(token string) (string, error) {
	if strings.HasSuffix(token, c.AbsoluteUnit) {
		prefix := token[:len(token)-len(c.AbsoluteUnit)]
		if !numericPrefix(prefix) {
			return token, nil
		}
		return prefix + c.Unit, nil
	}

	if strings.HasSuffix(token, c.Unit) {
		prefix := token[:len(token)-len(c.Unit)]
		if !numericPrefix(prefix) {
			return token, nil
		}
		v, err := strconv.ParseFloat(prefix, 64)
		if err != nil {
			return "", fmt.Errorf("malformed length token %q: %w", token, err)
		}
		res, br := c.scaleOrClamp(v)
		if br == branchKeep {
			// the magnitude stays as-is, so keep the original spelling too
			return token, nil
		}
		return res.String(), nil
	}

	return token, nil
}

// scaleOrClamp applies the shared numeric core. A value whose scaled
// magnitude would land at or below the floor is clamped (or kept) in the
// source unit instead of scaled, everything else divides by the base size
// and rounds to the configured precision. Zero always scales, 0 in the
// source unit becomes 0 in the resolution independent unit.
func (c *Config) scaleOrClamp(v float64) (Scalar, branch) {
	scaled := math.Abs(v * c.MinScaleFactor)
	if scaled != 0 && scaled <= c.MinUnitSize {
		if math.Abs(v) < c.MinUnitSize {
			return Scalar{Value: v, Unit: c.Unit}, branchKeep
		}
		return Scalar{Value: math.Copysign(c.MinUnitSize, v), Unit: c.Unit}, branchClamp
	}
	return Scalar{Value: roundTo(v/c.BaseSize, c.Precision), Unit: c.RIUnit}, branchScale
}

// roundTo rounds half away from zero to the given number of fractional
// digits. A magnitude that overflows the scaled intermediate comes back
// unrounded instead of infinite.
func roundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	r := math.Round(v*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return v
	}
	return r
}

// numericPrefix reports whether s plausibly starts a decimal number.
// Keywords that merely end in a unit spelling ("snapx") must stay intact.
func numericPrefix(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '+', '-', '.':
		return true
	}
	return s[0] >= '0' && s[0] <= '9'
}

// lengthTokenPattern matches either a decimal number with an optional unit
// suffix or any other run free of whitespace and exclamation marks, so one
// scan captures convertible lengths and inert words in original order.
var lengthTokenPattern = regexp.MustCompile(`[+-]?\d*\.?\d+[a-zA-Z%]*|[^\s!]+`)

// convertTokens applies the token scan to one text segment, converting each
// token and rejoining with single spaces. A segment yielding no tokens
// stays exactly as it is.
func (c *Config) convertTokens(text string) (string, error) {
	tokens := lengthTokenPattern.FindAllString(text, -1)
	if tokens == nil {
		return text, nil
	}
	for i, tok := range tokens {
		conv, err := c.ConvertToken(tok)
		if err != nil {
			return "", err
		}
		tokens[i] = conv
	}
	return strings.Join(tokens, " "), nil
}
