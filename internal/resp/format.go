package resp

import (
	"math"
	"strconv"
)

// FormatFloat renders a float64 using the single canonical text form
// used everywhere a score or float reply crosses the wire (ZSCORE,
// INCRBYFLOAT, the RESP3 Double type, ...). Spec §9 leaves this an open
// question ("pick one canonical text form and apply it everywhere");
// this mirrors Redis' own %.17g-then-trim behavior: shortest
// round-trippable decimal, integral values rendered without a
// fractional part, infinities as "inf"/"-inf".
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e17:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}
