package evaluator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/thomasrohde/nexo/go/pkg/ast"
	"github.com/thomasrohde/nexo/go/pkg/diagnostics"
	"github.com/thomasrohde/nexo/go/pkg/parser"
)

// ResolveFunc finds the source of a module by name, returning its text and
// the filename to report in diagnostics.
type ResolveFunc func(name string) (text string, filename string, err error)

// Options configures an Interpreter.
type Options struct {
	Stdout  io.Writer
	Stdin   io.Reader
	Logger  *slog.Logger
	Limits  Limits
	Resolve ResolveFunc
}

// Interpreter evaluates Nexo programs against a persistent global
// environment. It is not safe for concurrent use.
type Interpreter struct {
	ctx     context.Context
	globals *Env
	modules map[string]*Module
	loading map[string]bool

	resolve ResolveFunc
	logger  *slog.Logger
	limits  Limits
	tracker tracker

	stdout io.Writer
	stdin  *bufio.Reader
}

// New creates an interpreter with an empty global environment.
func New(opts Options) *Interpreter {
	in := &Interpreter{
		ctx:     context.Background(),
		globals: NewEnv(),
		modules: make(map[string]*Module),
		loading: make(map[string]bool),
		resolve: opts.Resolve,
		logger:  opts.Logger,
		limits:  opts.Limits,
		stdout:  opts.Stdout,
	}
	if in.logger == nil {
		in.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if in.stdout == nil {
		in.stdout = io.Discard
	}
	stdin := opts.Stdin
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	in.stdin = bufio.NewReader(stdin)
	return in
}

// Globals returns the global environment.
func (in *Interpreter) Globals() *Env {
	return in.globals
}

// Define binds a value in the global environment.
func (in *Interpreter) Define(name string, val Value) {
	in.globals.Set(name, val)
}

// Stdout returns the writer print and finp write to.
func (in *Interpreter) Stdout() io.Writer {
	return in.stdout
}

// Logger returns the interpreter's logger.
func (in *Interpreter) Logger() *slog.Logger {
	return in.logger
}

// ReadLine reads one line of input without its line terminator. End of
// input yields whatever was read so far, possibly "".
func (in *Interpreter) ReadLine() (string, error) {
	line, err := in.stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Run evaluates the program's top-level statements in order against the
// global environment. It returns the value of the last top-level expression
// statement, or Null. A top-level return is an E_RETURN_TOP error.
func (in *Interpreter) Run(ctx context.Context, prog *ast.Program) (Value, error) {
	in.ctx = ctx
	in.tracker = tracker{}
	return in.runTop(prog.Body, in.globals)
}

// CallEntry invokes the zero-argument function bound to name, if any.
// It reports whether an entry point was found.
func (in *Interpreter) CallEntry(ctx context.Context, name string) (bool, error) {
	val, ok := in.globals.Get(name)
	if !ok {
		return false, nil
	}
	if _, callable := val.(Callable); !callable {
		in.logger.Debug("entry name bound to non-function, skipping", "name", name, "type", TypeName(val))
		return false, nil
	}
	in.ctx = ctx
	in.tracker = tracker{}
	in.logger.Debug("calling entry point", "name", name)
	_, err := in.callValue(val, nil, ast.Span{})
	return true, err
}

// Call invokes a callable value with arguments from host code.
func (in *Interpreter) Call(ctx context.Context, fn Value, args ...Value) (Value, error) {
	in.ctx = ctx
	return in.callValue(fn, args, ast.Span{})
}

// Module returns a cached module without loading it.
func (in *Interpreter) Module(name string) (*Module, bool) {
	m, ok := in.modules[name]
	return m, ok
}

// LoadModule returns the module called name, loading and caching it on first
// use. Later calls return the cached module even if its source changed.
func (in *Interpreter) LoadModule(name string) (*Module, error) {
	if m, ok := in.modules[name]; ok {
		in.logger.Debug("module cache hit", "module", name)
		return m, nil
	}
	if in.resolve == nil {
		return nil, fmt.Errorf("no module loader configured")
	}
	if in.loading[name] {
		return nil, fmt.Errorf("%w: %s", ErrImportCycle, name)
	}

	text, file, err := in.resolve(name)
	if err != nil {
		return nil, err
	}
	prog, diags := parser.Parse(text, file)
	if len(diags) > 0 {
		return nil, &SourceError{File: file, Diags: diags}
	}

	in.loading[name] = true
	defer delete(in.loading, name)

	env := in.globals.Snapshot()
	if _, err := in.runTop(prog.Body, env); err != nil {
		return nil, err
	}

	m := &Module{Name: name, File: file, Env: env}
	in.modules[name] = m
	in.logger.Info("module loaded", "module", name, "file", file)
	return m, nil
}

func (in *Interpreter) runTop(body []ast.Stmt, env *Env) (Value, error) {
	var last Value = NewNull()
	for _, stmt := range body {
		if expr, ok := stmt.(ast.Expr); ok {
			val, err := in.eval(expr, env)
			if err != nil {
				return nil, err
			}
			last = val
			continue
		}
		sig, err := in.exec(stmt, env)
		if err != nil {
			return nil, err
		}
		if sig != nil {
			return nil, newError(diagnostics.EReturnTop, sig.Span, "return outside of a function")
		}
		last = NewNull()
	}
	return last, nil
}

func (in *Interpreter) checkContext(span ast.Span) error {
	if err := in.ctx.Err(); err != nil {
		return &RuntimeError{Code: diagnostics.ECanceled, Message: "execution canceled", Span: &span, Err: err}
	}
	return nil
}

// --- Statements ---

func (in *Interpreter) execBlock(stmts []ast.Stmt, env *Env) (*ReturnSignal, error) {
	for _, stmt := range stmts {
		sig, err := in.exec(stmt, env)
		if err != nil || sig != nil {
			return sig, err
		}
	}
	return nil, nil
}

func (in *Interpreter) exec(stmt ast.Stmt, env *Env) (*ReturnSignal, error) {
	switch s := stmt.(type) {
	case *ast.FunctionDecl:
		env.Set(s.Name, &Function{
			Name:     s.Name,
			Params:   s.Params,
			Body:     s.Body,
			Defining: env,
		})
		return nil, nil

	case *ast.If:
		return in.execIf(s, env)

	case *ast.While:
		return in.execWhile(s, env)

	case *ast.Return:
		val, err := in.eval(s.Argument, env)
		if err != nil {
			return nil, err
		}
		return &ReturnSignal{Value: val, Span: s.Span}, nil

	case ast.Expr:
		_, err := in.eval(s, env)
		return nil, err

	default:
		panic(fmt.Sprintf("evaluator: unknown statement node %T", stmt))
	}
}

func (in *Interpreter) execIf(s *ast.If, env *Env) (*ReturnSignal, error) {
	cond, err := in.eval(s.Condition, env)
	if err != nil {
		return nil, err
	}
	if Truthiness(cond) {
		return in.execBlock(s.Consequent, env)
	}
	switch alt := s.Alternate.(type) {
	case nil:
		return nil, nil
	case *ast.If:
		return in.execIf(alt, env)
	case *ast.Block:
		return in.execBlock(alt.Body, env)
	default:
		panic(fmt.Sprintf("evaluator: unknown alternate node %T", alt))
	}
}

func (in *Interpreter) execWhile(s *ast.While, env *Env) (*ReturnSignal, error) {
	for {
		if err := in.checkContext(s.Span); err != nil {
			return nil, err
		}
		cond, err := in.eval(s.Condition, env)
		if err != nil {
			return nil, err
		}
		if !Truthiness(cond) {
			return nil, nil
		}
		if in.limits.MaxIterations > 0 && in.tracker.iterations >= in.limits.MaxIterations {
			return nil, newError(diagnostics.ELimit, s.Span, "iteration limit exceeded (max %d)", in.limits.MaxIterations)
		}
		in.tracker.iterations++
		sig, err := in.execBlock(s.Body, env)
		if err != nil || sig != nil {
			return sig, err
		}
	}
}

// --- Expressions ---

func (in *Interpreter) eval(expr ast.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		switch e.Type {
		case ast.LitNumber:
			return NewNumber(e.Number), nil
		case ast.LitString:
			return NewString(e.Str), nil
		default:
			return NewBool(e.Bool), nil
		}

	case *ast.Identifier:
		val, ok := env.Get(e.Name)
		if !ok {
			return nil, newError(diagnostics.EUnbound, e.Span, "undefined variable: %s", e.Name)
		}
		return val, nil

	case *ast.ArrayLit:
		items := make([]Value, 0, len(e.Elements))
		for _, el := range e.Elements {
			val, err := in.eval(el, env)
			if err != nil {
				return nil, err
			}
			items = append(items, val)
		}
		return NewArray(items), nil

	case *ast.ArrayAccess:
		return in.evalArrayAccess(e, env)

	case *ast.Assign:
		return in.evalAssign(e, env)

	case *ast.Call:
		return in.evalCall(e, env)

	case *ast.ModuleCall:
		return in.evalModuleCall(e, env)

	case *ast.MethodCall:
		return in.evalMethodCall(e, env)

	case *ast.Member:
		return in.evalMember(e, env)

	case *ast.Binary:
		return in.evalBinary(e, env)

	case *ast.Unary:
		return in.evalUnary(e, env)

	case *ast.Update:
		return in.evalUpdate(e, env)

	default:
		panic(fmt.Sprintf("evaluator: unknown expression node %T", expr))
	}
}

func (in *Interpreter) evalArgs(args []ast.Expr, env *Env) ([]Value, error) {
	vals := make([]Value, 0, len(args))
	for _, arg := range args {
		val, err := in.eval(arg, env)
		if err != nil {
			return nil, err
		}
		vals = append(vals, val)
	}
	return vals, nil
}

func (in *Interpreter) evalArrayAccess(e *ast.ArrayAccess, env *Env) (Value, error) {
	target, err := in.eval(e.Array, env)
	if err != nil {
		return nil, err
	}
	idx, err := in.eval(e.Index, env)
	if err != nil {
		return nil, err
	}
	arr, ok := target.(*Array)
	if !ok {
		return nil, newError(diagnostics.EType, e.Span, "cannot index a %s", TypeName(target))
	}
	return arr.Index(idx), nil
}

func (in *Interpreter) evalAssign(e *ast.Assign, env *Env) (Value, error) {
	switch left := e.Left.(type) {
	case *ast.Identifier:
		val, err := in.eval(e.Right, env)
		if err != nil {
			return nil, err
		}
		env.Set(left.Name, val)
		return val, nil

	case *ast.ArrayAccess:
		target, err := in.eval(left.Array, env)
		if err != nil {
			return nil, err
		}
		idx, err := in.eval(left.Index, env)
		if err != nil {
			return nil, err
		}
		val, err := in.eval(e.Right, env)
		if err != nil {
			return nil, err
		}
		arr, ok := target.(*Array)
		if !ok {
			return nil, newError(diagnostics.EType, left.Span, "cannot assign into an element of a %s", TypeName(target))
		}
		arr.SetIndex(idx, val)
		return val, nil

	default:
		return nil, newError(diagnostics.EAssignTarget, e.Span, "cannot assign to %s", e.Left.Kind())
	}
}

// --- Calls ---

func (in *Interpreter) evalCall(e *ast.Call, env *Env) (Value, error) {
	if id, ok := e.Callee.(*ast.Identifier); ok {
		args, err := in.evalArgs(e.Args, env)
		if err != nil {
			return nil, err
		}
		fn, bound := env.Get(id.Name)
		if !bound {
			return nil, newError(diagnostics.EUnknownFn, id.Span, "undefined function: %s", id.Name)
		}
		return in.callValue(fn, args, e.Span)
	}

	fn, err := in.eval(e.Callee, env)
	if err != nil {
		return nil, err
	}
	args, err := in.evalArgs(e.Args, env)
	if err != nil {
		return nil, err
	}
	return in.callValue(fn, args, e.Span)
}

func (in *Interpreter) callValue(fn Value, args []Value, span ast.Span) (Value, error) {
	switch f := fn.(type) {
	case *Function:
		return in.callFunction(f, args, span)
	case *Builtin:
		val, err := f.Fn(in, args)
		if err != nil {
			return nil, in.builtinError(f, err, span)
		}
		if val == nil {
			val = NewNull()
		}
		return val, nil
	default:
		return nil, newError(diagnostics.ENotCallable, span, "cannot call non-function (%s)", TypeName(fn))
	}
}

func (in *Interpreter) builtinError(f *Builtin, err error, span ast.Span) error {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		if rerr.Span == nil {
			rerr.Span = &span
		}
		return rerr
	}
	return &RuntimeError{Code: diagnostics.EType, Message: f.Name, Span: &span, Err: err}
}

// callFunction runs fn against a snapshot of its defining environment. When
// the body completes, normally or by return, every name the call created is
// attached to fn, replacing the previous attachment.
func (in *Interpreter) callFunction(fn *Function, args []Value, span ast.Span) (Value, error) {
	if err := in.checkContext(span); err != nil {
		return nil, err
	}
	if in.limits.MaxCallDepth > 0 && in.tracker.depth >= in.limits.MaxCallDepth {
		return nil, newError(diagnostics.ELimit, span, "maximum call depth exceeded (%d)", in.limits.MaxCallDepth)
	}
	in.tracker.depth++
	defer func() { in.tracker.depth-- }()

	callEnv := fn.Defining.Snapshot()
	for i, param := range fn.Params {
		if i < len(args) {
			callEnv.Set(param, args[i])
		} else {
			callEnv.Set(param, NewNull())
		}
	}

	sig, err := in.execBlock(fn.Body, callEnv)
	if err != nil {
		return nil, err
	}

	attached := make(map[string]Value)
	for name, val := range callEnv.bindings {
		if !fn.Defining.Has(name) {
			attached[name] = val
		}
	}
	fn.attached = attached

	if sig != nil {
		return sig.Value, nil
	}
	return NewNull(), nil
}

// applyMember resolves name on a value that carries members (array
// operations, a function's attached locals, a module's bindings) and applies
// args. A callable member is invoked; a plain member is returned only when
// no arguments were supplied. ok is false when nothing applied.
func (in *Interpreter) applyMember(obj Value, name string, args []Value, span ast.Span) (val Value, ok bool, err error) {
	switch o := obj.(type) {
	case *Array:
		switch name {
		case "add":
			return o.Add(args...), true, nil
		case "del":
			if len(args) == 0 {
				return o, true, nil
			}
			return o.Del(args[0]), true, nil
		}
		return nil, false, nil

	case *Function:
		member, found := o.Attached(name)
		if !found {
			return nil, false, nil
		}
		return in.applyValue(member, args, span)

	case *Module:
		member, found := o.Env.Get(name)
		if !found {
			return nil, false, nil
		}
		return in.applyValue(member, args, span)
	}
	return nil, false, nil
}

func (in *Interpreter) applyValue(member Value, args []Value, span ast.Span) (Value, bool, error) {
	if _, callable := member.(Callable); callable {
		val, err := in.callValue(member, args, span)
		return val, true, err
	}
	if len(args) == 0 {
		return member, true, nil
	}
	return nil, false, nil
}

func (in *Interpreter) evalModuleCall(e *ast.ModuleCall, env *Env) (Value, error) {
	args, err := in.evalArgs(e.Args, env)
	if err != nil {
		return nil, err
	}

	if obj, bound := env.Get(e.Module); bound && Truthiness(obj) {
		val, ok, err := in.applyMember(obj, e.Function, args, e.Span)
		if err != nil || ok {
			return val, err
		}
	}

	mod, err := in.LoadModule(e.Module)
	if err != nil {
		return nil, &RuntimeError{
			Code:    diagnostics.EModule,
			Message: fmt.Sprintf("undefined function or variable: %s.%s", e.Module, e.Function),
			Span:    &e.Span,
			Err:     err,
		}
	}
	val, ok, err := in.applyMember(mod, e.Function, args, e.Span)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(diagnostics.EModule, e.Span, "undefined function or variable: %s.%s", e.Module, e.Function)
	}
	return val, nil
}

func (in *Interpreter) evalMethodCall(e *ast.MethodCall, env *Env) (Value, error) {
	obj, err := in.eval(e.Object, env)
	if err != nil {
		return nil, err
	}
	args, err := in.evalArgs(e.Args, env)
	if err != nil {
		return nil, err
	}
	val, ok, err := in.applyMember(obj, e.Method, args, e.Span)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(diagnostics.EType, e.Span, "value has no method %s", e.Method)
	}
	return val, nil
}

func (in *Interpreter) evalMember(e *ast.Member, env *Env) (Value, error) {
	obj, err := in.eval(e.Object, env)
	if err != nil {
		return nil, err
	}
	switch o := obj.(type) {
	case *Function:
		if val, ok := o.Attached(e.Property); ok {
			return val, nil
		}
	case *Module:
		if val, ok := o.Env.Get(e.Property); ok {
			return val, nil
		}
	case *Array:
		if e.Property == "len" {
			return NewNumber(float64(len(o.Items))), nil
		}
	}
	return NewNull(), nil
}

// --- Operators ---

func (in *Interpreter) evalBinary(e *ast.Binary, env *Env) (Value, error) {
	left, err := in.eval(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := in.eval(e.Right, env)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case ast.OpEqEq:
		return NewBool(StrictEqual(left, right)), nil
	case ast.OpNeq:
		return NewBool(!StrictEqual(left, right)), nil
	case ast.OpAdd:
		return in.evalAdd(e, left, right)
	case ast.OpSub, ast.OpMul, ast.OpDiv:
		return in.evalArithmetic(e, left, right)
	case ast.OpLt, ast.OpGt, ast.OpLtEq, ast.OpGtEq:
		return in.evalComparison(e, left, right)
	}
	panic(fmt.Sprintf("evaluator: unknown binary operator %q", e.Op))
}

// evalAdd adds two numbers. If either side is a string the result is the
// concatenation of both sides' tostr text.
func (in *Interpreter) evalAdd(e *ast.Binary, left, right Value) (Value, error) {
	ln, lok := left.(Number)
	rn, rok := right.(Number)
	if lok && rok {
		return NewNumber(ln.Value + rn.Value), nil
	}
	_, lstr := left.(String)
	_, rstr := right.(String)
	if lstr || rstr {
		return NewString(ToStr(left) + ToStr(right)), nil
	}
	return nil, newError(diagnostics.EType, e.Span, "'+' cannot combine %s and %s", TypeName(left), TypeName(right))
}

func (in *Interpreter) evalArithmetic(e *ast.Binary, left, right Value) (Value, error) {
	ln, lok := left.(Number)
	rn, rok := right.(Number)
	if !lok || !rok {
		return nil, newError(diagnostics.EType, e.Span, "'%s' expects numbers, got %s and %s", e.Op, TypeName(left), TypeName(right))
	}
	switch e.Op {
	case ast.OpSub:
		return NewNumber(ln.Value - rn.Value), nil
	case ast.OpMul:
		return NewNumber(ln.Value * rn.Value), nil
	default:
		// IEEE division: x/0 is ±Inf, 0/0 is NaN
		return NewNumber(ln.Value / rn.Value), nil
	}
}

func (in *Interpreter) evalComparison(e *ast.Binary, left, right Value) (Value, error) {
	var cmp int
	switch l := left.(type) {
	case Number:
		r, ok := right.(Number)
		if !ok {
			break
		}
		if math.IsNaN(l.Value) || math.IsNaN(r.Value) {
			return NewBool(false), nil
		}
		switch {
		case l.Value < r.Value:
			cmp = -1
		case l.Value > r.Value:
			cmp = 1
		}
		return NewBool(compareResult(e.Op, cmp)), nil
	case String:
		r, ok := right.(String)
		if !ok {
			break
		}
		cmp = strings.Compare(l.Value, r.Value)
		return NewBool(compareResult(e.Op, cmp)), nil
	}
	return nil, newError(diagnostics.EType, e.Span, "'%s' cannot compare %s and %s", e.Op, TypeName(left), TypeName(right))
}

func compareResult(op ast.BinaryOp, cmp int) bool {
	switch op {
	case ast.OpLt:
		return cmp < 0
	case ast.OpGt:
		return cmp > 0
	case ast.OpLtEq:
		return cmp <= 0
	default:
		return cmp >= 0
	}
}

func (in *Interpreter) evalUnary(e *ast.Unary, env *Env) (Value, error) {
	operand, err := in.eval(e.Operand, env)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.OpNot:
		return NewBool(!Truthiness(operand)), nil
	case ast.OpNeg:
		n, ok := operand.(Number)
		if !ok {
			return nil, newError(diagnostics.EType, e.Span, "unary '-' expects a number, got %s", TypeName(operand))
		}
		return NewNumber(-n.Value), nil
	}
	panic(fmt.Sprintf("evaluator: unknown unary operator %q", e.Op))
}

func (in *Interpreter) evalUpdate(e *ast.Update, env *Env) (Value, error) {
	id, ok := e.Argument.(*ast.Identifier)
	if !ok {
		return nil, newError(diagnostics.EType, e.Span, "'%s' needs a variable, got %s", e.Op, e.Argument.Kind())
	}
	cur, bound := env.Get(id.Name)
	if !bound {
		return nil, newError(diagnostics.EUnbound, id.Span, "undefined variable: %s", id.Name)
	}
	n, isNum := cur.(Number)
	if !isNum {
		return nil, newError(diagnostics.EType, e.Span, "'%s' expects a number, %s is %s", e.Op, id.Name, TypeName(cur))
	}

	next := n.Value + 1
	if e.Op == ast.OpDec {
		next = n.Value - 1
	}
	env.Set(id.Name, NewNumber(next))
	if e.Prefix {
		return NewNumber(next), nil
	}
	return cur, nil
}
