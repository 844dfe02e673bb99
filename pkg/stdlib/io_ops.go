package stdlib

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/thomasrohde/nexo/go/pkg/diagnostics"
	"github.com/thomasrohde/nexo/go/pkg/evaluator"
)

// fin() → one line of input, "" at end of input
func builtinFin(in *evaluator.Interpreter, _ []evaluator.Value) (evaluator.Value, error) {
	line, err := in.ReadLine()
	if err != nil {
		return nil, evaluator.Wrap(diagnostics.EIO, err, "fin")
	}
	return evaluator.NewString(line), nil
}

// finp(prompt) writes the prompt, then reads a line like fin.
func builtinFinp(in *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	if _, err := fmt.Fprint(in.Stdout(), evaluator.Display(arg(args, 0))); err != nil {
		return nil, evaluator.Wrap(diagnostics.EIO, err, "finp")
	}
	return builtinFin(in, nil)
}

func pathArg(name string, args []evaluator.Value) (string, error) {
	p, ok := stringArg(args, 0)
	if !ok {
		return "", evaluator.Errorf(diagnostics.EType, "%s: path must be a string, got %s", name, evaluator.TypeName(arg(args, 0)))
	}
	resolved, err := filepath.Abs(p)
	if err != nil {
		return "", evaluator.Wrap(diagnostics.EIO, err, "%s: invalid path", name)
	}
	return resolved, nil
}

// ct(path) → file contents
func builtinCt(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	path, err := pathArg("ct", args)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, evaluator.Wrap(diagnostics.EIO, err, "ct")
	}
	return evaluator.NewString(string(data)), nil
}

// wr(path, text) writes text (its tostr form) and returns true. Missing
// parent directories are created.
func builtinWr(_ *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	path, err := pathArg("wr", args)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, evaluator.Wrap(diagnostics.EIO, err, "wr: cannot create directory")
	}
	if err := os.WriteFile(path, []byte(textArg(args, 1)), 0o644); err != nil {
		return nil, evaluator.Wrap(diagnostics.EIO, err, "wr")
	}
	return evaluator.NewBool(true), nil
}
