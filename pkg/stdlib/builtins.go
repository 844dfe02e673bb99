package stdlib

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/thomasrohde/nexo/go/pkg/diagnostics"
	"github.com/thomasrohde/nexo/go/pkg/evaluator"
)

// RegisterDefaults adds all builtin functions.
func RegisterDefaults(r *Registry) {
	// Output
	r.Register(Fn{Name: "print", Execute: builtinPrint})
	r.Register(Fn{Name: "ehco", Execute: builtinPrint})

	// Math
	r.Register(Fn{Name: "abs", Execute: unaryMath(math.Abs)})
	r.Register(Fn{Name: "sqrt", Execute: unaryMath(math.Sqrt)})
	r.Register(Fn{Name: "sin", Execute: unaryMath(math.Sin)})
	r.Register(Fn{Name: "cos", Execute: unaryMath(math.Cos)})
	r.Register(Fn{Name: "tan", Execute: unaryMath(math.Tan)})
	r.Register(Fn{Name: "pow", Execute: builtinPow})

	// Conversion
	r.Register(Fn{Name: "len", Execute: builtinLen})
	r.Register(Fn{Name: "tostr", Execute: builtinToStr})
	r.Register(Fn{Name: "tonum", Execute: builtinToNum})
	r.Register(Fn{Name: "tobool", Execute: builtinToBool})
	r.Register(Fn{Name: "toarr", Execute: builtinToArr})

	// Strings
	r.Register(Fn{Name: "sub", Execute: builtinSub})
	r.Register(Fn{Name: "slice", Execute: builtinSlice})
	r.Register(Fn{Name: "index", Execute: builtinIndex})
	r.Register(Fn{Name: "rep", Execute: builtinRep})
	r.Register(Fn{Name: "up", Execute: stringMap(strings.ToUpper)})
	r.Register(Fn{Name: "low", Execute: stringMap(strings.ToLower)})
	r.Register(Fn{Name: "trim", Execute: stringMap(strings.TrimSpace)})
	r.Register(Fn{Name: "spl", Execute: builtinSpl})
	r.Register(Fn{Name: "join", Execute: builtinJoin})

	// Input and files
	r.Register(Fn{Name: "fin", Execute: builtinFin})
	r.Register(Fn{Name: "finp", Execute: builtinFinp})
	r.Register(Fn{Name: "ct", Execute: builtinCt})
	r.Register(Fn{Name: "wr", Execute: builtinWr})

	// Modules
	r.Register(Fn{Name: "imp", Execute: builtinImp})
}

// arg returns the i-th argument, or Null when it was not supplied.
func arg(args []evaluator.Value, i int) evaluator.Value {
	if i < len(args) {
		return args[i]
	}
	return evaluator.NewNull()
}

// print(values...) writes the values' display text, space separated.
func builtinPrint(in *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = evaluator.Display(a)
	}
	if _, err := fmt.Fprintln(in.Stdout(), strings.Join(parts, " ")); err != nil {
		return nil, evaluator.Wrap(diagnostics.EIO, err, "print")
	}
	return evaluator.NewNull(), nil
}

var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// toNumber converts v to a number, yielding NaN for text that is not
// numeric. Whitespace around numeric text is ignored and empty text is 0.
func toNumber(v evaluator.Value) float64 {
	switch val := v.(type) {
	case evaluator.Null:
		return 0
	case evaluator.Bool:
		if val.Value {
			return 1
		}
		return 0
	case evaluator.Number:
		return val.Value
	case evaluator.String:
		return parseNumber(val.Value)
	case *evaluator.Array:
		return parseNumber(evaluator.Display(val))
	}
	return math.NaN()
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	if !decimalLiteral.MatchString(s) {
		return math.NaN()
	}
	// out-of-range input parses to ±Inf with a range error, which is the
	// value we want
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// toInteger truncates toward zero; NaN becomes 0 and infinities are kept.
func toInteger(v evaluator.Value) float64 {
	f := toNumber(v)
	if math.IsNaN(f) {
		return 0
	}
	return math.Trunc(f)
}
