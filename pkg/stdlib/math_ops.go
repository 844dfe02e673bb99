package stdlib

import (
	"math"

	"github.com/thomasrohde/nexo/go/pkg/evaluator"
)

// unaryMath lifts a float function into a builtin. Non-numeric input
// becomes NaN rather than an error.
func unaryMath(f func(float64) float64) evaluator.BuiltinFunc {
	return func(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
		if len(args) == 0 {
			return evaluator.NewNumber(math.NaN()), nil
		}
		return evaluator.NewNumber(f(toNumber(args[0]))), nil
	}
}

// pow(x, y) → number
func builtinPow(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	if len(args) < 2 {
		return evaluator.NewNumber(math.NaN()), nil
	}
	x, y := toNumber(args[0]), toNumber(args[1])
	// math.Pow returns 1 for these; Nexo follows IEEE pow and yields NaN
	if math.IsNaN(y) || (math.Abs(x) == 1 && math.IsInf(y, 0)) {
		return evaluator.NewNumber(math.NaN()), nil
	}
	return evaluator.NewNumber(math.Pow(x, y)), nil
}
