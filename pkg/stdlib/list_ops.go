package stdlib

import (
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/nexo/go/pkg/evaluator"
)

// len(x) → rune count of a string, element count of an array, else 0
func builtinLen(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	switch v := arg(args, 0).(type) {
	case evaluator.String:
		return evaluator.NewNumber(float64(utf8.RuneCountInString(v.Value))), nil
	case *evaluator.Array:
		return evaluator.NewNumber(float64(len(v.Items))), nil
	}
	return evaluator.NewNumber(0), nil
}

// toarr(x) → the array itself, {} for null, or a one-element array
func builtinToArr(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	switch v := arg(args, 0).(type) {
	case *evaluator.Array:
		return v, nil
	case evaluator.Null:
		return evaluator.NewArray(nil), nil
	default:
		return evaluator.NewArray([]evaluator.Value{v}), nil
	}
}

// join(arr, sep) → string. A missing or falsy separator joins with "".
func builtinJoin(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	arr, ok := arg(args, 0).(*evaluator.Array)
	if !ok {
		return evaluator.NewString(""), nil
	}
	sep := ""
	if sv := arg(args, 1); evaluator.Truthiness(sv) {
		sep = evaluator.ToStr(sv)
	}
	parts := make([]string, len(arr.Items))
	for i, item := range arr.Items {
		parts[i] = evaluator.Display(item)
	}
	return evaluator.NewString(strings.Join(parts, sep)), nil
}
