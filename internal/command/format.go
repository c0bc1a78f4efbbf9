package command

import (
	"math"
	"strconv"
	"strings"
)

// Plain decimal notation is used for magnitudes in [1e-3, 1e7);
// anything else is written as mantissa "E" exponent.
const (
	plainMin = 1e-3
	plainMax = 1e7
)

// formatTemperature renders a float as the shortest decimal that round-trips,
// always with a fractional part: 23.5, 20.0, -0.5, 1.0E7.
func formatTemperature(v float64) string {
	abs := math.Abs(v)
	if abs == 0 || (abs >= plainMin && abs < plainMax) {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}

	// strconv gives e.g. "1E+07" or "1.25E-05".
	s := strconv.FormatFloat(v, 'E', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	sign := ""
	if strings.HasPrefix(exp, "-") {
		sign = "-"
	}
	exp = strings.TrimLeft(exp, "+-")
	exp = strings.TrimLeft(exp, "0")
	return mantissa + "E" + sign + exp
}

// parseTemperature reads a SetTemperature payload.
func parseTemperature(payload string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
