package stdlib

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/nexo/go/pkg/evaluator"
)

// String builtins work in runes. A receiver that is not a string yields the
// builtin's default result instead of an error.

func stringArg(args []evaluator.Value, i int) (string, bool) {
	s, ok := arg(args, i).(evaluator.String)
	return s.Value, ok
}

// textArg is the tostr text of the i-th argument.
func textArg(args []evaluator.Value, i int) string {
	return evaluator.ToStr(arg(args, i))
}

// relativePos resolves a possibly negative position against size.
func relativePos(v evaluator.Value, size int) int {
	f := toInteger(v)
	if f < 0 {
		return int(math.Max(float64(size)+f, 0))
	}
	return int(math.Min(f, float64(size)))
}

func stringMap(f func(string) string) evaluator.BuiltinFunc {
	return func(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
		s, ok := stringArg(args, 0)
		if !ok {
			return evaluator.NewString(""), nil
		}
		return evaluator.NewString(f(s)), nil
	}
}

// sub(s, start, length) → string
func builtinSub(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	s, ok := stringArg(args, 0)
	if !ok {
		return evaluator.NewString(""), nil
	}
	runes := []rune(s)
	size := len(runes)
	start := relativePos(arg(args, 1), size)

	length := float64(size - start)
	if len(args) > 2 {
		length = math.Min(math.Max(toInteger(args[2]), 0), length)
	}
	if length <= 0 {
		return evaluator.NewString(""), nil
	}
	return evaluator.NewString(string(runes[start : start+int(length)])), nil
}

// slice(s, start, end) → string
func builtinSlice(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	s, ok := stringArg(args, 0)
	if !ok {
		return evaluator.NewString(""), nil
	}
	runes := []rune(s)
	size := len(runes)
	start := relativePos(arg(args, 1), size)
	end := size
	if len(args) > 2 {
		end = relativePos(args[2], size)
	}
	if start >= end {
		return evaluator.NewString(""), nil
	}
	return evaluator.NewString(string(runes[start:end])), nil
}

// index(s, sub) → position of the first occurrence, or -1
func builtinIndex(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	s, ok := stringArg(args, 0)
	if !ok {
		return evaluator.NewNumber(-1), nil
	}
	i := strings.Index(s, textArg(args, 1))
	if i < 0 {
		return evaluator.NewNumber(-1), nil
	}
	return evaluator.NewNumber(float64(utf8.RuneCountInString(s[:i]))), nil
}

// rep(s, old, new) replaces the first occurrence only.
func builtinRep(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	s, ok := stringArg(args, 0)
	if !ok {
		return evaluator.NewString(""), nil
	}
	return evaluator.NewString(strings.Replace(s, textArg(args, 1), textArg(args, 2), 1)), nil
}

// spl(s, sep) → array of strings. Without sep the whole string is the only
// element; an empty sep splits into characters.
func builtinSpl(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	s, ok := stringArg(args, 0)
	if !ok {
		return evaluator.NewArray(nil), nil
	}
	if len(args) < 2 {
		return evaluator.NewArray([]evaluator.Value{evaluator.NewString(s)}), nil
	}
	parts := strings.Split(s, textArg(args, 1))
	items := make([]evaluator.Value, len(parts))
	for i, p := range parts {
		items[i] = evaluator.NewString(p)
	}
	return evaluator.NewArray(items), nil
}
