package main

import (
	"math"
	"strconv"
	"strings"
)

// piFractions are the angles formatParam writes symbolically, in match order.
var piFractions = []struct {
	value float64
	text  string
}{
	{2 * math.Pi, "2*pi"},
	{math.Pi, "pi"},
	{math.Pi / 2, "pi/2"},
	{math.Pi / 3, "pi/3"},
	{math.Pi / 4, "pi/4"},
	{math.Pi / 6, "pi/6"},
	{math.Pi / 8, "pi/8"},
	{3 * math.Pi / 4, "3*pi/4"},
	{3 * math.Pi / 2, "3*pi/2"},
	{2 * math.Pi / 3, "2*pi/3"},
}

// parseParamExpr parses a gate angle. Accepted forms are plain floats
// ("1.5707", "-0.5", "3e-2") and pi expressions of the shape
// [-][k][*]pi[/d], e.g. "pi", "-pi/2", "3*pi/4", "2pi".
func parseParamExpr(s string) (float64, bool) {
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}

	sign := 1.0
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		sign, s = -1, rest
	}

	num, den, hasDen := strings.Cut(s, "/")
	coeffText, ok := strings.CutSuffix(num, "pi")
	if !ok {
		return 0, false
	}
	coeffText = strings.TrimSuffix(coeffText, "*")

	coeff := 1.0
	if coeffText != "" {
		c, err := strconv.ParseFloat(coeffText, 64)
		if err != nil || c < 0 {
			return 0, false
		}
		coeff = c
	}

	v := sign * coeff * math.Pi
	if hasDen {
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d <= 0 {
			return 0, false
		}
		v /= d
	}
	return v, true
}

// formatParam renders an angle, preferring pi notation for common fractions.
func formatParam(v float64) string {
	for _, f := range piFractions {
		switch {
		case math.Abs(v-f.value) < 1e-10:
			return f.text
		case math.Abs(v+f.value) < 1e-10:
			return "-" + f.text
		}
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
