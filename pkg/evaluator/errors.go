package evaluator

import (
	"errors"
	"fmt"

	"github.com/thomasrohde/nexo/go/pkg/ast"
	"github.com/thomasrohde/nexo/go/pkg/diagnostics"
)

// RuntimeError represents an error raised while evaluating a program.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	Err     error
}

func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Diagnostic converts the error for reporting.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Error(), e.Span, "")
}

// Errorf builds a RuntimeError without a span. The evaluator fills in the
// span of the call site when a builtin returns one.
func Errorf(code, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a RuntimeError around a cause.
func Wrap(code string, err error, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

func newError(code string, span ast.Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Span: &span}
}

// ErrImportCycle is returned when a module is loaded again while its own top
// level is still running.
var ErrImportCycle = errors.New("import cycle")

// SourceError reports a module that failed to lex or parse.
type SourceError struct {
	File  string
	Diags []diagnostics.Diagnostic
}

func (e *SourceError) Error() string {
	if len(e.Diags) == 0 {
		return e.File + ": invalid source"
	}
	d := e.Diags[0]
	if d.Span != nil {
		return fmt.Sprintf("%s:%d:%d: %s", d.Span.File, d.Span.StartLine, d.Span.StartCol, d.Message)
	}
	return e.File + ": " + d.Message
}

// ReturnSignal carries a value out of a function body. It travels up
// through statement sequences until the enclosing call absorbs it.
type ReturnSignal struct {
	Value Value
	Span  ast.Span
}
