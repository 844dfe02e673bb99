// Package validator implements static checks over Nexo AST programs.
package validator

import (
	"fmt"

	"github.com/thomasrohde/nexo/go/pkg/ast"
	"github.com/thomasrohde/nexo/go/pkg/diagnostics"
)

type validator struct {
	diags []diagnostics.Diagnostic
	// depth counts enclosing function declarations.
	depth int
}

// Validate checks a parsed program and returns diagnostics in source order.
// It reports returns outside of functions, unassignable targets and
// duplicate parameters; it does not check that names are bound, since
// bindings are only known at run time.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{}
	v.validateStatements(program.Body)
	return v.diags
}

func (v *validator) addDiag(code, msg string, span ast.Span, hint string) {
	s := span
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &s, hint))
}

func (v *validator) validateStatements(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		v.validateStmt(stmt)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.FunctionDecl:
		v.validateParams(s)
		v.depth++
		v.validateStatements(s.Body)
		v.depth--

	case *ast.If:
		v.validateIf(s)

	case *ast.While:
		v.validateExpr(s.Condition)
		v.validateStatements(s.Body)

	case *ast.Return:
		if v.depth == 0 {
			v.addDiag(diagnostics.EReturnTop, "return outside of a function", s.Span,
				"move the statement into a function such as mn()")
		}
		v.validateExpr(s.Argument)

	case ast.Expr:
		v.validateExpr(s)
	}
}

func (v *validator) validateIf(s *ast.If) {
	v.validateExpr(s.Condition)
	v.validateStatements(s.Consequent)
	switch alt := s.Alternate.(type) {
	case *ast.If:
		v.validateIf(alt)
	case *ast.Block:
		v.validateStatements(alt.Body)
	}
}

func (v *validator) validateParams(decl *ast.FunctionDecl) {
	seen := make(map[string]bool, len(decl.Params))
	for _, p := range decl.Params {
		if seen[p] {
			v.addDiag(diagnostics.EDupParam,
				fmt.Sprintf("duplicate parameter '%s' in function '%s'", p, decl.Name), decl.Span, "")
			continue
		}
		seen[p] = true
	}
}

func (v *validator) validateExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case nil, *ast.Literal, *ast.Identifier:
		// leaves

	case *ast.ArrayLit:
		v.validateExprs(e.Elements)

	case *ast.ArrayAccess:
		v.validateExpr(e.Array)
		v.validateExpr(e.Index)

	case *ast.Call:
		v.validateExpr(e.Callee)
		v.validateExprs(e.Args)

	case *ast.ModuleCall:
		v.validateExprs(e.Args)

	case *ast.MethodCall:
		v.validateExpr(e.Object)
		v.validateExprs(e.Args)

	case *ast.Member:
		v.validateExpr(e.Object)

	case *ast.Binary:
		v.validateExpr(e.Left)
		v.validateExpr(e.Right)

	case *ast.Unary:
		v.validateExpr(e.Operand)

	case *ast.Update:
		if _, ok := e.Argument.(*ast.Identifier); !ok {
			v.addDiag(diagnostics.EUpdateTarget,
				fmt.Sprintf("'%s' needs a variable name, got %s", e.Op, describe(e.Argument)), e.Span, "")
		}
		v.validateExpr(e.Argument)

	case *ast.Assign:
		switch e.Left.(type) {
		case *ast.Identifier, *ast.ArrayAccess:
		default:
			v.addDiag(diagnostics.EAssignTarget,
				fmt.Sprintf("cannot assign to %s", describe(e.Left)), e.Left.NodeSpan(),
				"only variables and array elements can be assigned")
		}
		v.validateExpr(e.Left)
		v.validateExpr(e.Right)
	}
}

func (v *validator) validateExprs(exprs []ast.Expr) {
	for _, e := range exprs {
		v.validateExpr(e)
	}
}

// describe names an expression kind for messages.
func describe(e ast.Expr) string {
	switch e.(type) {
	case *ast.Literal:
		return "a literal"
	case *ast.Call, *ast.ModuleCall, *ast.MethodCall:
		return "a call"
	case *ast.Member:
		return "a member access"
	case *ast.ArrayLit:
		return "an array literal"
	case *ast.ArrayAccess:
		return "an array element"
	default:
		return "an expression"
	}
}
