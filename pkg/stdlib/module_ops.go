package stdlib

import (
	"github.com/thomasrohde/nexo/go/pkg/diagnostics"
	"github.com/thomasrohde/nexo/go/pkg/evaluator"
)

// imp(name) → the module value, loading it on first use
func builtinImp(in *evaluator.Interpreter, args []evaluator.Value) (evaluator.Value, error) {
	name, ok := stringArg(args, 0)
	if !ok {
		return nil, evaluator.Errorf(diagnostics.EType, "imp: module name must be a string, got %s", evaluator.TypeName(arg(args, 0)))
	}
	mod, err := in.LoadModule(name)
	if err != nil {
		return nil, evaluator.Wrap(diagnostics.EModule, err, "cannot load module %s", name)
	}
	return mod, nil
}
