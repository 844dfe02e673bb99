// Package runtime provides the top-level Nexo runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/thomasrohde/nexo/go/pkg/ast"
	"github.com/thomasrohde/nexo/go/pkg/config"
	"github.com/thomasrohde/nexo/go/pkg/diagnostics"
	"github.com/thomasrohde/nexo/go/pkg/evaluator"
	"github.com/thomasrohde/nexo/go/pkg/formatter"
	"github.com/thomasrohde/nexo/go/pkg/lexer"
	"github.com/thomasrohde/nexo/go/pkg/modules"
	"github.com/thomasrohde/nexo/go/pkg/parser"
	"github.com/thomasrohde/nexo/go/pkg/stdlib"
	"github.com/thomasrohde/nexo/go/pkg/validator"
)

// DefaultEntry is the function called after a program's top level runs.
const DefaultEntry = "mn"

// Result holds the outcome of a program execution.
type Result struct {
	// Value is the last top-level expression statement's value.
	Value evaluator.Value
	// EntryCalled reports whether an entry function was found and invoked.
	EntryCalled bool
}

// Runtime wires together all Nexo components for program execution.
type Runtime struct {
	stdlib      *stdlib.Registry
	stdout      io.Writer
	stdin       io.Reader
	logger      *slog.Logger
	limits      evaluator.Limits
	modulePaths []string
	entry       string
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdlib sets the builtin registry.
func WithStdlib(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.stdlib = r
	}
}

// WithStdout sets the writer programs print to.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithStdin sets the reader fin and finp read from.
func WithStdin(r io.Reader) Option {
	return func(rt *Runtime) {
		rt.stdin = r
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithLimits sets evaluation limits.
func WithLimits(l evaluator.Limits) Option {
	return func(rt *Runtime) {
		rt.limits = l
	}
}

// WithModulePaths appends directories to the module search path. They are
// searched after the script's own directory.
func WithModulePaths(dirs ...string) Option {
	return func(rt *Runtime) {
		rt.modulePaths = append(rt.modulePaths, dirs...)
	}
}

// WithEntry sets the entry function name. An empty name disables the
// entry call.
func WithEntry(name string) Option {
	return func(rt *Runtime) {
		rt.entry = name
	}
}

// WithConfig applies entry, module paths and limits from a loaded config.
// Relative module paths are taken relative to the config file.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		rt.entry = cfg.Entry
		rt.limits = cfg.EvalLimits()
		base := ""
		if cfg.Source != "" {
			base = filepath.Dir(cfg.Source)
		}
		for _, p := range cfg.ModulePaths {
			if base != "" && !filepath.IsAbs(p) {
				p = filepath.Join(base, p)
			}
			rt.modulePaths = append(rt.modulePaths, p)
		}
	}
}

// New creates a new Runtime with the given options. By default the full
// builtin set is installed, programs use the process's standard streams,
// logging is discarded and the entry function is mn.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stdlib: stdlib.Default(),
		stdout: os.Stdout,
		stdin:  os.Stdin,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		limits: evaluator.DefaultLimits(),
		entry:  DefaultEntry,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Run parses, validates and executes a Nexo program, then calls its entry
// function if the program defined one.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, err := rt.compile(source, filename)
	if err != nil {
		return nil, err
	}

	in := rt.newInterpreter(scriptDir(filename))
	rt.logger.Debug("running program", "file", filename, "statements", len(program.Body))
	val, err := in.Run(ctx, program)
	if err != nil {
		return &Result{Value: val}, err
	}
	res := &Result{Value: val}
	if rt.entry == "" {
		return res, nil
	}
	res.EntryCalled, err = in.CallEntry(ctx, rt.entry)
	return res, err
}

// RunFile reads and runs a program file.
func (rt *Runtime) RunFile(ctx context.Context, path string) (*Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, evaluator.Wrap(diagnostics.EIO, err, "cannot read file %s", path)
	}
	return rt.Run(ctx, string(source), path)
}

// Check parses and validates a Nexo program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(program)
}

// Format parses and formats a Nexo program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// Tokens lexes a program for debugging.
func (rt *Runtime) Tokens(source, filename string) ([]lexer.Token, error) {
	toks, err := lexer.Tokenize(source, filename)
	if err != nil {
		var lexErr *lexer.LexError
		if errors.As(err, &lexErr) {
			return nil, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{lexErr.Diag}}
		}
		return nil, err
	}
	return toks, nil
}

func (rt *Runtime) compile(source, filename string) (*ast.Program, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	if vDiags := validator.Validate(program); len(vDiags) > 0 {
		return nil, &DiagnosticError{Diagnostics: vDiags}
	}
	return program, nil
}

func (rt *Runtime) newInterpreter(dir string) *evaluator.Interpreter {
	loader := modules.NewLoader(dir, rt.modulePaths)
	rt.logger.Debug("module search path", "dirs", strings.Join(loader.SearchPaths, string(os.PathListSeparator)))
	in := evaluator.New(evaluator.Options{
		Stdout:  rt.stdout,
		Stdin:   rt.stdin,
		Logger:  rt.logger,
		Limits:  rt.limits,
		Resolve: loader.ResolveText,
	})
	rt.stdlib.Install(in)
	return in
}

func scriptDir(filename string) string {
	if filename == "" || strings.HasPrefix(filename, "<") {
		return ""
	}
	return filepath.Dir(filename)
}

// Session is an interactive evaluation context. Every Eval runs against the
// same global environment and module cache, and the entry function is
// never called automatically.
type Session struct {
	rt *Runtime
	in *evaluator.Interpreter
	n  int
}

// NewSession creates a REPL session. Modules resolve relative to the
// working directory and the configured module paths.
func (rt *Runtime) NewSession() *Session {
	return &Session{rt: rt, in: rt.newInterpreter("")}
}

// Eval runs one unit of input. Bindings made before an error persist.
func (s *Session) Eval(ctx context.Context, source string) (evaluator.Value, error) {
	s.n++
	program, err := s.rt.compile(source, fmt.Sprintf("<repl:%d>", s.n))
	if err != nil {
		return nil, err
	}
	return s.in.Run(ctx, program)
}

// Names returns the sorted global names, for completion.
func (s *Session) Names() []string {
	return s.in.Globals().Names()
}

// Interpreter exposes the session's interpreter.
func (s *Session) Interpreter() *evaluator.Interpreter {
	return s.in
}

// DiagnosticError wraps front-end diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Diagnostics converts any error returned by the runtime for reporting.
// Errors that carry no code are reported as E_IO, since only host failures
// reach the caller untyped.
func Diagnostics(err error) []diagnostics.Diagnostic {
	var diagErr *DiagnosticError
	if errors.As(err, &diagErr) {
		return diagErr.Diagnostics
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		return []diagnostics.Diagnostic{rtErr.Diagnostic()}
	}
	return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")}
}

// ExitCode maps an error to the CLI exit status: 0 for nil, 2 for lex,
// parse and static errors, 1 for host I/O and 4 for other runtime errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var diagErr *DiagnosticError
	if errors.As(err, &diagErr) {
		return 2
	}
	if Diagnostics(err)[0].Code == diagnostics.EIO {
		return 1
	}
	return 4
}
