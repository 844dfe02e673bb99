// Package parser implements the Nexo language parser.
package parser

import (
	"fmt"
	"strconv"

	"github.com/thomasrohde/nexo/go/pkg/ast"
	"github.com/thomasrohde/nexo/go/pkg/diagnostics"
	"github.com/thomasrohde/nexo/go/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic

	// set when the first error was raised at end of input
	incomplete bool
}

// Parse tokenizes source and parses it into an AST.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	prog, diags, _ := parse(source, filename)
	return prog, diags
}

// Incomplete reports whether source fails to parse only because the input
// ended early (an open block, call or string). The REPL uses it to ask for a
// continuation line instead of reporting an error.
func Incomplete(source string) bool {
	_, diags, incomplete := parse(source, "<repl>")
	return len(diags) > 0 && incomplete
}

func parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic, bool) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}, le.AtEnd
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}, false
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags, p.incomplete
	}
	return prog, nil, false
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.errorAt(tok, fmt.Sprintf("expected %s, got %s", typ, describe(tok)))
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) errorAt(tok lexer.Token, msg string) {
	if len(p.diags) == 0 && tok.Type == lexer.TokEOF {
		p.incomplete = true
	}
	span := tok.Span
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, &span, ""))
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokEOF:
		return "end of file"
	case lexer.TokString:
		return strconv.Quote(tok.Value)
	default:
		return fmt.Sprintf("'%s'", tok.Value)
	}
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span

	var stmts []ast.Stmt
	for p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}

	return &ast.Program{
		Span: p.spanFromTo(startSpan, p.current().Span),
		Body: stmts,
	}
}

// --- Statements ---

func (p *parser) parseStmt() ast.Stmt {
	switch p.peek() {
	case lexer.TokFc:
		return p.parseFunctionDecl()
	case lexer.TokIf:
		return p.parseIf()
	case lexer.TokWh:
		return p.parseWhile()
	case lexer.TokRt:
		return p.parseReturn()
	case lexer.TokEl, lexer.TokElif:
		tok := p.current()
		p.errorAt(tok, fmt.Sprintf("'%s' without a matching 'if'", tok.Value))
		return nil
	default:
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		return expr
	}
}

// parseBlock parses `{ stmt* }` and returns the body and the span of the
// closing brace.
func (p *parser) parseBlock() ([]ast.Stmt, ast.Span, bool) {
	if _, ok := p.expect(lexer.TokLBrace); !ok {
		return nil, ast.Span{}, false
	}
	var stmts []ast.Stmt
	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil, ast.Span{}, false
		}
		stmts = append(stmts, stmt)
	}
	end, ok := p.expect(lexer.TokRBrace)
	if !ok {
		return nil, ast.Span{}, false
	}
	return stmts, end.Span, true
}

func (p *parser) parseFunctionDecl() ast.Stmt {
	start := p.advance() // consume 'fc'

	nameTok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}

	var params []string
	for p.peek() == lexer.TokIdent {
		params = append(params, p.advance().Value)
		if p.peek() == lexer.TokComma {
			p.advance()
		}
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}

	body, end, ok := p.parseBlock()
	if !ok {
		return nil
	}

	return &ast.FunctionDecl{
		Span:   p.spanFromTo(start.Span, end),
		Name:   nameTok.Value,
		Params: params,
		Body:   body,
	}
}

func (p *parser) parseCondition() ast.Expr {
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	return cond
}

// parseIf handles `if (c) {..} elif (c) {..}* el {..}?`. Each elif becomes an
// *ast.If hung off the Alternate of the previous link.
func (p *parser) parseIf() ast.Stmt {
	start := p.advance() // consume 'if'

	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	body, end, ok := p.parseBlock()
	if !ok {
		return nil
	}
	root := &ast.If{Condition: cond, Consequent: body}
	root.Span = p.spanFromTo(start.Span, end)

	tail := root
	for p.peek() == lexer.TokElif {
		elifTok := p.advance()
		cond := p.parseCondition()
		if cond == nil {
			return nil
		}
		body, end, ok := p.parseBlock()
		if !ok {
			return nil
		}
		link := &ast.If{
			Span:       p.spanFromTo(elifTok.Span, end),
			Condition:  cond,
			Consequent: body,
		}
		tail.Alternate = link
		tail = link
		root.Span = p.spanFromTo(start.Span, end)
	}

	if p.peek() == lexer.TokEl {
		elTok := p.advance()
		body, end, ok := p.parseBlock()
		if !ok {
			return nil
		}
		tail.Alternate = &ast.Block{Span: p.spanFromTo(elTok.Span, end), Body: body}
		root.Span = p.spanFromTo(start.Span, end)
	}

	return root
}

func (p *parser) parseWhile() ast.Stmt {
	start := p.advance() // consume 'wh'

	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	body, end, ok := p.parseBlock()
	if !ok {
		return nil
	}
	return &ast.While{
		Span:      p.spanFromTo(start.Span, end),
		Condition: cond,
		Body:      body,
	}
}

func (p *parser) parseReturn() ast.Stmt {
	start := p.advance() // consume 'rt'
	arg := p.parseExpr()
	if arg == nil {
		return nil
	}
	return &ast.Return{
		Span:     p.spanFromTo(start.Span, arg.NodeSpan()),
		Argument: arg,
	}
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Expr {
	return p.parseAssign()
}

// parseAssign is right associative. Any expression is accepted on the left;
// the validator and evaluator reject targets that are not assignable.
func (p *parser) parseAssign() ast.Expr {
	left := p.parseEquality()
	if left == nil {
		return nil
	}
	if p.peek() != lexer.TokAssign {
		return left
	}
	p.advance() // consume '='
	right := p.parseAssign()
	if right == nil {
		return nil
	}
	return &ast.Assign{
		Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
		Left:  left,
		Right: right,
	}
}

func (p *parser) parseBinaryLevel(next func() ast.Expr, ops map[lexer.TokenType]ast.BinaryOp) ast.Expr {
	left := next()
	if left == nil {
		return nil
	}
	for {
		op, ok := ops[p.peek()]
		if !ok {
			return left
		}
		p.advance()
		right := next()
		if right == nil {
			return nil
		}
		left = &ast.Binary{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

var (
	equalityOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokEqEq:   ast.OpEqEq,
		lexer.TokBangEq: ast.OpNeq,
	}
	relationalOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokLt:   ast.OpLt,
		lexer.TokLtEq: ast.OpLtEq,
		lexer.TokGt:   ast.OpGt,
		lexer.TokGtEq: ast.OpGtEq,
	}
	additiveOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokPlus:  ast.OpAdd,
		lexer.TokMinus: ast.OpSub,
	}
	multiplicativeOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokStar:  ast.OpMul,
		lexer.TokSlash: ast.OpDiv,
	}
)

func (p *parser) parseEquality() ast.Expr {
	return p.parseBinaryLevel(p.parseRelational, equalityOps)
}

func (p *parser) parseRelational() ast.Expr {
	return p.parseBinaryLevel(p.parseAdditive, relationalOps)
}

func (p *parser) parseAdditive() ast.Expr {
	return p.parseBinaryLevel(p.parseMultiplicative, additiveOps)
}

func (p *parser) parseMultiplicative() ast.Expr {
	return p.parseBinaryLevel(p.parseUnary, multiplicativeOps)
}

func (p *parser) parseUnary() ast.Expr {
	switch p.peek() {
	case lexer.TokBang, lexer.TokMinus:
		opTok := p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		op := ast.OpNot
		if opTok.Type == lexer.TokMinus {
			op = ast.OpNeg
		}
		return &ast.Unary{
			Span:    p.spanFromTo(opTok.Span, operand.NodeSpan()),
			Op:      op,
			Operand: operand,
		}
	case lexer.TokPlusPlus, lexer.TokMinusMinus:
		opTok := p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.Update{
			Span:     p.spanFromTo(opTok.Span, operand.NodeSpan()),
			Op:       updateOp(opTok.Type),
			Argument: operand,
			Prefix:   true,
		}
	default:
		return p.parsePostfix()
	}
}

func updateOp(t lexer.TokenType) ast.UpdateOp {
	if t == lexer.TokMinusMinus {
		return ast.OpDec
	}
	return ast.OpInc
}

// parsePostfix parses a primary followed by any chain of `.name`,
// `.name(args)`, `[index]` and `(args)`, then an optional `++`/`--`.
func (p *parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}

	for {
		switch p.peek() {
		case lexer.TokDot:
			p.advance() // consume '.'
			nameTok, ok := p.expect(lexer.TokIdent)
			if !ok {
				return nil
			}
			if p.peek() != lexer.TokLParen {
				expr = &ast.Member{
					Span:     p.spanFromTo(expr.NodeSpan(), nameTok.Span),
					Object:   expr,
					Property: nameTok.Value,
				}
				continue
			}
			args, end, ok := p.parseArgs()
			if !ok {
				return nil
			}
			if ident, isIdent := expr.(*ast.Identifier); isIdent {
				expr = &ast.ModuleCall{
					Span:     p.spanFromTo(ident.Span, end),
					Module:   ident.Name,
					Function: nameTok.Value,
					Args:     args,
				}
			} else {
				expr = &ast.MethodCall{
					Span:   p.spanFromTo(expr.NodeSpan(), end),
					Object: expr,
					Method: nameTok.Value,
					Args:   args,
				}
			}
		case lexer.TokLBracket:
			p.advance() // consume '['
			index := p.parseExpr()
			if index == nil {
				return nil
			}
			end, ok := p.expect(lexer.TokRBracket)
			if !ok {
				return nil
			}
			expr = &ast.ArrayAccess{
				Span:  p.spanFromTo(expr.NodeSpan(), end.Span),
				Array: expr,
				Index: index,
			}
		case lexer.TokLParen:
			args, end, ok := p.parseArgs()
			if !ok {
				return nil
			}
			expr = &ast.Call{
				Span:   p.spanFromTo(expr.NodeSpan(), end),
				Callee: expr,
				Args:   args,
			}
		case lexer.TokPlusPlus, lexer.TokMinusMinus:
			opTok := p.advance()
			return &ast.Update{
				Span:     p.spanFromTo(expr.NodeSpan(), opTok.Span),
				Op:       updateOp(opTok.Type),
				Argument: expr,
				Prefix:   false,
			}
		default:
			return expr
		}
	}
}

// parseArgs parses `( expr* )`; commas between arguments are optional.
func (p *parser) parseArgs() ([]ast.Expr, ast.Span, bool) {
	p.advance() // consume '('
	var args []ast.Expr
	for p.peek() != lexer.TokRParen && p.peek() != lexer.TokEOF {
		arg := p.parseExpr()
		if arg == nil {
			return nil, ast.Span{}, false
		}
		args = append(args, arg)
		if p.peek() == lexer.TokComma {
			p.advance()
		}
	}
	end, ok := p.expect(lexer.TokRParen)
	if !ok {
		return nil, ast.Span{}, false
	}
	return args, end.Span, true
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.current()

	switch tok.Type {
	case lexer.TokNumber:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.errorAt(tok, fmt.Sprintf("invalid number literal '%s'", tok.Value))
			return nil
		}
		return ast.NumberLit(tok.Span, v)

	case lexer.TokString:
		p.advance()
		return ast.StringLit(tok.Span, tok.Value)

	case lexer.TokTrue, lexer.TokFalse:
		p.advance()
		return ast.BoolLit(tok.Span, tok.Type == lexer.TokTrue)

	case lexer.TokIdent:
		p.advance()
		return &ast.Identifier{Span: tok.Span, Name: tok.Value}

	case lexer.TokLParen:
		p.advance()
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return expr

	case lexer.TokLBrace:
		return p.parseArrayLit()

	default:
		p.errorAt(tok, fmt.Sprintf("unexpected %s", describe(tok)))
		return nil
	}
}

// parseArrayLit parses `{ expr* }`; commas between elements are optional.
func (p *parser) parseArrayLit() ast.Expr {
	start := p.advance() // consume '{'
	elements := []ast.Expr{}
	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		el := p.parseExpr()
		if el == nil {
			return nil
		}
		elements = append(elements, el)
		if p.peek() == lexer.TokComma {
			p.advance()
		}
	}
	end, ok := p.expect(lexer.TokRBrace)
	if !ok {
		return nil
	}
	return &ast.ArrayLit{
		Span:     p.spanFromTo(start.Span, end.Span),
		Elements: elements,
	}
}
