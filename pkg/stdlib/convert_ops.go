package stdlib

import (
	"math"

	"github.com/thomasrohde/nexo/go/pkg/evaluator"
)

// tostr(x) → string; null renders as "null"
func builtinToStr(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	return evaluator.NewString(evaluator.ToStr(arg(args, 0))), nil
}

// tonum(x) → number; non-numeric input is 0
func builtinToNum(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	n := toNumber(arg(args, 0))
	if math.IsNaN(n) {
		n = 0
	}
	return evaluator.NewNumber(n), nil
}

// tobool(x) → truthiness of x
func builtinToBool(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	return evaluator.NewBool(evaluator.Truthiness(arg(args, 0))), nil
}
