package evaluator

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber renders a number the way Nexo prints it: integers without a
// decimal point, shortest round-trip digits otherwise, exponent notation
// outside [1e-6, 1e21).
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0" // also -0
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go pads the exponent to two digits: 1e-07 -> 1e-7
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Display is the text print writes for v. Null displays as the empty string,
// both on its own and inside arrays.
func Display(v Value) string {
	var sb strings.Builder
	writeDisplay(&sb, v, nil)
	return sb.String()
}

// ToStr is the tostr conversion: like Display, except a top-level Null
// renders as "null".
func ToStr(v Value) string {
	if _, ok := v.(Null); ok || v == nil {
		return "null"
	}
	return Display(v)
}

func writeDisplay(sb *strings.Builder, v Value, seen map[*Array]bool) {
	switch val := v.(type) {
	case nil, Null:
	case Bool:
		sb.WriteString(strconv.FormatBool(val.Value))
	case Number:
		sb.WriteString(FormatNumber(val.Value))
	case String:
		sb.WriteString(val.Value)
	case *Array:
		// a self-containing array renders the inner reference as empty
		if seen[val] {
			return
		}
		if seen == nil {
			seen = make(map[*Array]bool)
		}
		seen[val] = true
		for i, item := range val.Items {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeDisplay(sb, item, seen)
		}
		delete(seen, val)
	case *Function:
		sb.WriteString("<fc " + val.Name + ">")
	case *Builtin:
		sb.WriteString("<builtin " + val.Name + ">")
	case *Module:
		sb.WriteString("<module " + val.Name + ">")
	}
}
