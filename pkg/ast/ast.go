// Package ast defines the Nexo language AST node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpGt   BinaryOp = ">"
	OpLt   BinaryOp = "<"
	OpGtEq BinaryOp = ">="
	OpLtEq BinaryOp = "<="
	OpEqEq BinaryOp = "=="
	OpNeq  BinaryOp = "!="
)

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNot UnaryOp = "!"
	OpNeg UnaryOp = "-"
)

// UpdateOp represents an increment or decrement operator.
type UpdateOp string

const (
	OpInc UpdateOp = "++"
	OpDec UpdateOp = "--"
)

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Expr is the interface for all expression nodes ---
// Every expression may stand on its own as a statement.

type Expr interface {
	Stmt
	exprNode() // sealed marker
}

// Alternate is the else-part of an If: a *Block (el) or an *If (elif).
type Alternate interface {
	Node
	alternateNode() // sealed marker
}

// --- Literals ---

// LiteralKind tags the host type carried by a Literal.
type LiteralKind int

const (
	LitNumber LiteralKind = iota
	LitString
	LitBool
)

type Literal struct {
	Span   Span
	Type   LiteralKind
	Number float64
	Str    string
	Bool   bool
}

func (n *Literal) Kind() string   { return "Literal" }
func (n *Literal) NodeSpan() Span { return n.Span }
func (n *Literal) stmtNode()      {}
func (n *Literal) exprNode()      {}

type Identifier struct {
	Span Span
	Name string
}

func (n *Identifier) Kind() string   { return "Identifier" }
func (n *Identifier) NodeSpan() Span { return n.Span }
func (n *Identifier) stmtNode()      {}
func (n *Identifier) exprNode()      {}

// --- Arrays ---

type ArrayLit struct {
	Span     Span
	Elements []Expr
}

func (n *ArrayLit) Kind() string   { return "ArrayLit" }
func (n *ArrayLit) NodeSpan() Span { return n.Span }
func (n *ArrayLit) stmtNode()      {}
func (n *ArrayLit) exprNode()      {}

type ArrayAccess struct {
	Span  Span
	Array Expr
	Index Expr
}

func (n *ArrayAccess) Kind() string   { return "ArrayAccess" }
func (n *ArrayAccess) NodeSpan() Span { return n.Span }
func (n *ArrayAccess) stmtNode()      {}
func (n *ArrayAccess) exprNode()      {}

// --- Calls and member access ---

type Call struct {
	Span   Span
	Callee Expr
	Args   []Expr
}

func (n *Call) Kind() string   { return "Call" }
func (n *Call) NodeSpan() Span { return n.Span }
func (n *Call) stmtNode()      {}
func (n *Call) exprNode()      {}

// ModuleCall is `name.fn(args)` where name is a bare identifier.
type ModuleCall struct {
	Span     Span
	Module   string
	Function string
	Args     []Expr
}

func (n *ModuleCall) Kind() string   { return "ModuleCall" }
func (n *ModuleCall) NodeSpan() Span { return n.Span }
func (n *ModuleCall) stmtNode()      {}
func (n *ModuleCall) exprNode()      {}

// MethodCall is `expr.method(args)` on anything other than a bare identifier.
type MethodCall struct {
	Span   Span
	Object Expr
	Method string
	Args   []Expr
}

func (n *MethodCall) Kind() string   { return "MethodCall" }
func (n *MethodCall) NodeSpan() Span { return n.Span }
func (n *MethodCall) stmtNode()      {}
func (n *MethodCall) exprNode()      {}

type Member struct {
	Span     Span
	Object   Expr
	Property string
}

func (n *Member) Kind() string   { return "Member" }
func (n *Member) NodeSpan() Span { return n.Span }
func (n *Member) stmtNode()      {}
func (n *Member) exprNode()      {}

// --- Operators ---

type Binary struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *Binary) Kind() string   { return "Binary" }
func (n *Binary) NodeSpan() Span { return n.Span }
func (n *Binary) stmtNode()      {}
func (n *Binary) exprNode()      {}

type Unary struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *Unary) Kind() string   { return "Unary" }
func (n *Unary) NodeSpan() Span { return n.Span }
func (n *Unary) stmtNode()      {}
func (n *Unary) exprNode()      {}

type Update struct {
	Span     Span
	Op       UpdateOp
	Argument Expr
	Prefix   bool
}

func (n *Update) Kind() string   { return "Update" }
func (n *Update) NodeSpan() Span { return n.Span }
func (n *Update) stmtNode()      {}
func (n *Update) exprNode()      {}

// Assign binds Right to Left. The parser accepts any expression on the
// left; only *Identifier and *ArrayAccess are assignable.
type Assign struct {
	Span  Span
	Left  Expr
	Right Expr
}

func (n *Assign) Kind() string   { return "Assign" }
func (n *Assign) NodeSpan() Span { return n.Span }
func (n *Assign) stmtNode()      {}
func (n *Assign) exprNode()      {}

// --- Statements ---

type FunctionDecl struct {
	Span   Span
	Name   string
	Params []string
	Body   []Stmt
}

func (n *FunctionDecl) Kind() string   { return "FunctionDecl" }
func (n *FunctionDecl) NodeSpan() Span { return n.Span }
func (n *FunctionDecl) stmtNode()      {}

type If struct {
	Span       Span
	Condition  Expr
	Consequent []Stmt
	Alternate  Alternate // nil, *Block or *If
}

func (n *If) Kind() string   { return "If" }
func (n *If) NodeSpan() Span { return n.Span }
func (n *If) stmtNode()      {}
func (n *If) alternateNode() {}

// Block is a braced statement sequence used as an `el` branch.
type Block struct {
	Span Span
	Body []Stmt
}

func (n *Block) Kind() string   { return "Block" }
func (n *Block) NodeSpan() Span { return n.Span }
func (n *Block) alternateNode() {}

type While struct {
	Span      Span
	Condition Expr
	Body      []Stmt
}

func (n *While) Kind() string   { return "While" }
func (n *While) NodeSpan() Span { return n.Span }
func (n *While) stmtNode()      {}

type Return struct {
	Span     Span
	Argument Expr
}

func (n *Return) Kind() string   { return "Return" }
func (n *Return) NodeSpan() Span { return n.Span }
func (n *Return) stmtNode()      {}

// --- Program ---

type Program struct {
	Span Span
	Body []Stmt
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }

// NumberLit builds a numeric literal.
func NumberLit(span Span, v float64) *Literal {
	return &Literal{Span: span, Type: LitNumber, Number: v}
}

// StringLit builds a string literal.
func StringLit(span Span, v string) *Literal {
	return &Literal{Span: span, Type: LitString, Str: v}
}

// BoolLit builds a boolean literal.
func BoolLit(span Span, v bool) *Literal {
	return &Literal{Span: span, Type: LitBool, Bool: v}
}
