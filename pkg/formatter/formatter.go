// Package formatter implements the Nexo source code formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/nexo/go/pkg/ast"
)

const indent = "    "

// Binding strength of each expression form (higher = tighter binding).
const (
	precAssign = iota
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precPrimary
)

var binaryPrec = map[ast.BinaryOp]int{
	ast.OpEqEq: precEquality, ast.OpNeq: precEquality,
	ast.OpGt: precRelational, ast.OpLt: precRelational, ast.OpGtEq: precRelational, ast.OpLtEq: precRelational,
	ast.OpAdd: precAdditive, ast.OpSub: precAdditive,
	ast.OpMul: precMultiplicative, ast.OpDiv: precMultiplicative,
}

func exprPrec(e ast.Expr) int {
	switch n := e.(type) {
	case *ast.Assign:
		return precAssign
	case *ast.Binary:
		return binaryPrec[n.Op]
	case *ast.Unary:
		return precUnary
	case *ast.Update:
		if n.Prefix {
			return precUnary
		}
		return precPostfix
	case *ast.Call, *ast.ModuleCall, *ast.MethodCall, *ast.Member, *ast.ArrayAccess:
		return precPostfix
	default:
		return precPrimary
	}
}

// Format pretty-prints a Nexo AST back to source code. Top-level function
// declarations are separated from their neighbours by a blank line.
func Format(program *ast.Program) string {
	var b strings.Builder
	for i, s := range program.Body {
		_, isFn := s.(*ast.FunctionDecl)
		if i > 0 {
			_, prevFn := program.Body[i-1].(*ast.FunctionDecl)
			if isFn || prevFn {
				b.WriteString("\n")
			}
		}
		b.WriteString(formatStmt(s, 0))
		b.WriteString("\n")
	}
	return b.String()
}

// HasComments reports whether source contains `//` comments, which the
// formatter cannot preserve.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		switch c := source[i]; {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case !inString && c == '/' && i+1 < len(source) && source[i+1] == '/':
			return true
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.FunctionDecl:
		return prefix + "fc " + stmt.Name + "(" + strings.Join(stmt.Params, ", ") + ") " + formatBlock(stmt.Body, depth)
	case *ast.If:
		return prefix + formatIf(stmt, depth)
	case *ast.While:
		return prefix + "wh (" + formatExpr(stmt.Condition) + ") " + formatBlock(stmt.Body, depth)
	case *ast.Return:
		return prefix + "rt " + formatExpr(stmt.Argument)
	case ast.Expr:
		return prefix + formatExpr(stmt)
	}
	return ""
}

func formatIf(stmt *ast.If, depth int) string {
	out := "if (" + formatExpr(stmt.Condition) + ") " + formatBlock(stmt.Consequent, depth)
	switch alt := stmt.Alternate.(type) {
	case *ast.If:
		out += " el" + formatIf(alt, depth)
	case *ast.Block:
		out += " el " + formatBlock(alt.Body, depth)
	}
	return out
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	if len(stmts) == 0 {
		return "{}"
	}
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		lines[i] = formatStmt(s, depth+1)
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(indent, depth) + "}"
}

func formatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.Literal:
		return formatLiteral(expr)
	case *ast.Identifier:
		return expr.Name
	case *ast.ArrayLit:
		return "{" + formatList(expr.Elements) + "}"
	case *ast.ArrayAccess:
		return operand(expr.Array, precPostfix) + "[" + formatExpr(expr.Index) + "]"
	case *ast.Call:
		return operand(expr.Callee, precPostfix) + "(" + formatList(expr.Args) + ")"
	case *ast.ModuleCall:
		return expr.Module + "." + expr.Function + "(" + formatList(expr.Args) + ")"
	case *ast.MethodCall:
		return operand(expr.Object, precPostfix) + "." + expr.Method + "(" + formatList(expr.Args) + ")"
	case *ast.Member:
		return operand(expr.Object, precPostfix) + "." + expr.Property
	case *ast.Binary:
		p := binaryPrec[expr.Op]
		return operand(expr.Left, p) + " " + string(expr.Op) + " " + operand(expr.Right, p+1)
	case *ast.Unary:
		return prefixOp(string(expr.Op), operand(expr.Operand, precUnary))
	case *ast.Update:
		if expr.Prefix {
			return prefixOp(string(expr.Op), operand(expr.Argument, precUnary))
		}
		return operand(expr.Argument, precPostfix) + string(expr.Op)
	case *ast.Assign:
		return operand(expr.Left, precEquality) + " = " + operand(expr.Right, precAssign)
	}
	return ""
}

// operand formats e, parenthesized when it binds looser than minPrec.
func operand(e ast.Expr, minPrec int) string {
	s := formatExpr(e)
	if exprPrec(e) < minPrec {
		return "(" + s + ")"
	}
	return s
}

// prefixOp keeps `- -x` from lexing as `--x`.
func prefixOp(op, operand string) string {
	if strings.HasSuffix(op, "-") && strings.HasPrefix(operand, "-") {
		return op + " " + operand
	}
	return op + operand
}

func formatList(exprs []ast.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = formatExpr(e)
	}
	return strings.Join(parts, ", ")
}

func formatLiteral(lit *ast.Literal) string {
	switch lit.Type {
	case ast.LitNumber:
		return strconv.FormatFloat(lit.Number, 'f', -1, 64)
	case ast.LitString:
		return quote(lit.Str)
	case ast.LitBool:
		if lit.Bool {
			return "true"
		}
		return "false"
	}
	return ""
}

// quote escapes only what the lexer understands; everything else is kept
// verbatim.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
