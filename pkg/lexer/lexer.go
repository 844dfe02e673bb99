// Package lexer implements the Nexo language tokenizer.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/thomasrohde/nexo/go/pkg/ast"
	"github.com/thomasrohde/nexo/go/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokFc TokenType = iota
	TokIf
	TokEl
	TokElif
	TokRt
	TokWh
	TokTrue
	TokFalse

	// Literals
	TokNumber
	TokString

	// Identifiers
	TokIdent

	// Punctuation
	TokLBrace   // {
	TokRBrace   // }
	TokLBracket // [
	TokRBracket // ]
	TokLParen   // (
	TokRParen   // )
	TokComma    // ,
	TokDot      // .
	TokAssign   // =

	// Comparison operators
	TokEqEq   // ==
	TokBangEq // !=
	TokLt     // <
	TokLtEq   // <=
	TokGt     // >
	TokGtEq   // >=

	// Arithmetic and logical operators
	TokPlus       // +
	TokPlusPlus   // ++
	TokMinus      // -
	TokMinusMinus // --
	TokStar       // *
	TokSlash      // /
	TokBang       // !

	// Special
	TokEOF
)

var tokenNames = map[TokenType]string{
	TokFc: "fc", TokIf: "if", TokEl: "el", TokElif: "elif", TokRt: "rt", TokWh: "wh",
	TokTrue: "true", TokFalse: "false",
	TokNumber: "number", TokString: "string", TokIdent: "identifier",
	TokLBrace: "'{'", TokRBrace: "'}'", TokLBracket: "'['", TokRBracket: "']'",
	TokLParen: "'('", TokRParen: "')'", TokComma: "','", TokDot: "'.'", TokAssign: "'='",
	TokEqEq: "'=='", TokBangEq: "'!='", TokLt: "'<'", TokLtEq: "'<='", TokGt: "'>'", TokGtEq: "'>='",
	TokPlus: "'+'", TokPlusPlus: "'++'", TokMinus: "'-'", TokMinusMinus: "'--'",
	TokStar: "'*'", TokSlash: "'/'", TokBang: "'!'",
	TokEOF: "end of file",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokFc && t <= TokFalse
}

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

// Keywords maps reserved words to their token types. `mn` is deliberately
// absent: the entry point is an ordinary identifier.
var Keywords = map[string]TokenType{
	"fc":    TokFc,
	"if":    TokIf,
	"el":    TokEl,
	"elif":  TokElif,
	"rt":    TokRt,
	"wh":    TokWh,
	"true":  TokTrue,
	"false": TokFalse,
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) peekRune() (rune, int) {
	if s.atEnd() {
		return 0, 0
	}
	return utf8.DecodeRuneInString(s.source[s.pos:])
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

// advanceRune consumes a whole UTF-8 sequence as one column.
func (s *scanner) advanceRune() rune {
	r, size := s.peekRune()
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.pos += size
	return r
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		ch := s.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.advance()
		} else if ch == '/' && s.peekAt(1) == '/' {
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || unicode.Is(unicode.Han, r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (s *scanner) scanString() (Token, error) {
	startLine, startCol := s.line, s.col
	s.advance() // consume opening "

	var buf strings.Builder
	for !s.atEnd() {
		ch := s.peek()
		if ch == '"' {
			s.advance() // consume closing "
			return Token{
				Type:  TokString,
				Value: buf.String(),
				Span:  s.span(startLine, startCol),
			}, nil
		}
		if ch == '\\' {
			s.advance() // consume backslash
			if s.atEnd() {
				break
			}
			esc := s.advanceRune()
			switch esc {
			case 'n':
				buf.WriteByte('\n')
			case 't':
				buf.WriteByte('\t')
			default:
				// \" and \\ fall in here too: unknown escapes keep the character
				buf.WriteRune(esc)
			}
			continue
		}
		r, size := s.peekRune()
		if r == utf8.RuneError && size == 1 {
			return Token{}, s.lexError(startLine, startCol, "invalid UTF-8 character in string", false)
		}
		buf.WriteRune(s.advanceRune())
	}
	return Token{}, s.lexError(startLine, startCol, "unterminated string literal", true)
}

func (s *scanner) scanNumber() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	// A dot only belongs to the number when a digit follows it.
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance()
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	return Token{
		Type:  TokNumber,
		Value: s.source[startPos:s.pos],
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() {
		r, _ := s.peekRune()
		if !isIdentPart(r) {
			break
		}
		s.advanceRune()
	}

	text := s.source[startPos:s.pos]
	if tokType, ok := Keywords[text]; ok {
		return Token{
			Type:  tokType,
			Value: text,
			Span:  s.span(startLine, startCol),
		}
	}

	return Token{
		Type:  TokIdent,
		Value: text,
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) lexError(line, col int, msg string, atEnd bool) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag, AtEnd: atEnd}
}

// LexError wraps a diagnostic for lex errors. AtEnd is set when the input
// ran out mid-token, which callers treat as incomplete input.
type LexError struct {
	Diag  diagnostics.Diagnostic
	AtEnd bool
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

func (s *scanner) twoChar(next byte, long, short TokenType, longText, shortText string) Token {
	startLine, startCol := s.line, s.col
	s.advance()
	if s.peek() == next {
		s.advance()
		return Token{Type: long, Value: longText, Span: s.span(startLine, startCol)}
	}
	return Token{Type: short, Value: shortText, Span: s.span(startLine, startCol)}
}

func (s *scanner) nextToken() (Token, error) {
	s.skipWhitespaceAndComments()

	if s.atEnd() {
		return Token{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	// Single-char tokens
	switch ch {
	case '{':
		s.advance()
		return Token{Type: TokLBrace, Value: "{", Span: s.span(startLine, startCol)}, nil
	case '}':
		s.advance()
		return Token{Type: TokRBrace, Value: "}", Span: s.span(startLine, startCol)}, nil
	case '[':
		s.advance()
		return Token{Type: TokLBracket, Value: "[", Span: s.span(startLine, startCol)}, nil
	case ']':
		s.advance()
		return Token{Type: TokRBracket, Value: "]", Span: s.span(startLine, startCol)}, nil
	case '(':
		s.advance()
		return Token{Type: TokLParen, Value: "(", Span: s.span(startLine, startCol)}, nil
	case ')':
		s.advance()
		return Token{Type: TokRParen, Value: ")", Span: s.span(startLine, startCol)}, nil
	case ',':
		s.advance()
		return Token{Type: TokComma, Value: ",", Span: s.span(startLine, startCol)}, nil
	case '.':
		s.advance()
		return Token{Type: TokDot, Value: ".", Span: s.span(startLine, startCol)}, nil
	case '*':
		s.advance()
		return Token{Type: TokStar, Value: "*", Span: s.span(startLine, startCol)}, nil
	case '/':
		// `//` comments were consumed above
		s.advance()
		return Token{Type: TokSlash, Value: "/", Span: s.span(startLine, startCol)}, nil
	}

	// Multi-char tokens
	switch ch {
	case '=':
		return s.twoChar('=', TokEqEq, TokAssign, "==", "="), nil
	case '!':
		return s.twoChar('=', TokBangEq, TokBang, "!=", "!"), nil
	case '<':
		return s.twoChar('=', TokLtEq, TokLt, "<=", "<"), nil
	case '>':
		return s.twoChar('=', TokGtEq, TokGt, ">=", ">"), nil
	case '+':
		return s.twoChar('+', TokPlusPlus, TokPlus, "++", "+"), nil
	case '-':
		return s.twoChar('-', TokMinusMinus, TokMinus, "--", "-"), nil
	}

	// Numbers
	if isDigit(ch) {
		return s.scanNumber(), nil
	}

	// Strings
	if ch == '"' {
		return s.scanString()
	}

	// Identifiers and keywords
	if r, _ := s.peekRune(); isIdentStart(r) {
		return s.scanIdentOrKeyword(), nil
	}

	r := s.advanceRune()
	return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("unexpected character '%c'", r), false)
}

// Tokenize breaks source code into a slice of tokens ending with TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
