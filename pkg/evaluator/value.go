// Package evaluator implements the Nexo tree-walking runtime: values, the
// snapshot environment model, function and module semantics.
package evaluator

import (
	"math"
	"sort"

	"github.com/thomasrohde/nexo/go/pkg/ast"
)

// Value is the interface for all Nexo runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// Null represents the absence of a value.
type Null struct{}

func (Null) value() {}

// Bool represents a boolean value.
type Bool struct {
	Value bool
}

func (Bool) value() {}

// Number represents a numeric value. All numbers are IEEE doubles.
type Number struct {
	Value float64
}

func (Number) value() {}

// String represents a string value.
type String struct {
	Value string
}

func (String) value() {}

// Array is a mutable, ordered sequence. Arrays are shared by reference:
// every binding of the same array observes add/del and index writes.
type Array struct {
	Items []Value
}

func (*Array) value() {}

// Callable is implemented by user functions and host builtins.
type Callable interface {
	Value
	CallableName() string
}

// Function is a user-defined function. Calls run against a snapshot of
// Defining; the names a call creates are attached to the function afterwards.
type Function struct {
	Name     string
	Params   []string
	Body     []ast.Stmt
	Defining *Env

	attached map[string]Value
}

func (*Function) value() {}

// CallableName returns the declared name.
func (f *Function) CallableName() string { return f.Name }

// Attached returns the local name left behind by the most recent call.
func (f *Function) Attached(name string) (Value, bool) {
	v, ok := f.attached[name]
	return v, ok
}

// AttachedNames returns the attached local names in sorted order.
func (f *Function) AttachedNames() []string {
	names := make([]string, 0, len(f.attached))
	for name := range f.attached {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuiltinFunc is the host implementation of a builtin. Missing arguments are
// simply absent from args; builtins decide their own defaults.
type BuiltinFunc func(in *Interpreter, args []Value) (Value, error)

// Builtin is a host-provided callable.
type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

func (*Builtin) value() {}

// CallableName returns the registered name.
func (b *Builtin) CallableName() string { return b.Name }

// Module is a loaded source file. Its environment starts as a snapshot of the
// globals at load time and holds everything the module's top level bound.
type Module struct {
	Name string
	File string
	Env  *Env
}

func (*Module) value() {}

// NewNull creates a null value.
func NewNull() Value {
	return Null{}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Bool{Value: b}
}

// NewNumber creates a numeric value.
func NewNumber(n float64) Value {
	return Number{Value: n}
}

// NewString creates a string value.
func NewString(s string) Value {
	return String{Value: s}
}

// NewArray creates an array owning items.
func NewArray(items []Value) *Array {
	if items == nil {
		items = []Value{}
	}
	return &Array{Items: items}
}

// Add appends values and returns the same array.
func (a *Array) Add(vals ...Value) *Array {
	a.Items = append(a.Items, vals...)
	return a
}

// Del removes an element and returns the same array. A number is a position
// (truncated; negative counts from the end; past the end is a no-op). Any
// other value removes the first strictly equal element, if present.
func (a *Array) Del(x Value) *Array {
	n, ok := x.(Number)
	if !ok {
		for i, item := range a.Items {
			if StrictEqual(item, x) {
				a.removeAt(i)
				break
			}
		}
		return a
	}

	pos := n.Value
	if math.IsNaN(pos) {
		pos = 0
	}
	pos = math.Trunc(pos)
	size := float64(len(a.Items))
	if pos < 0 {
		pos = math.Max(size+pos, 0)
	}
	if pos >= size {
		return a
	}
	a.removeAt(int(pos))
	return a
}

func (a *Array) removeAt(i int) {
	copy(a.Items[i:], a.Items[i+1:])
	a.Items[len(a.Items)-1] = nil
	a.Items = a.Items[:len(a.Items)-1]
}

// Index reads the element at idx; anything but an in-range integral number
// yields Null.
func (a *Array) Index(idx Value) Value {
	i, ok := arrayIndex(idx)
	if !ok || i >= len(a.Items) {
		return NewNull()
	}
	return a.Items[i]
}

// SetIndex writes v at idx, padding with Null when idx is past the end.
// Negative or non-integral indexes are ignored.
func (a *Array) SetIndex(idx Value, v Value) {
	i, ok := arrayIndex(idx)
	if !ok {
		return
	}
	for len(a.Items) <= i {
		a.Items = append(a.Items, NewNull())
	}
	a.Items[i] = v
}

// maxArrayIndex bounds padding writes.
const maxArrayIndex = 1<<32 - 2

func arrayIndex(idx Value) (int, bool) {
	n, ok := idx.(Number)
	if !ok {
		return 0, false
	}
	if n.Value < 0 || n.Value != math.Trunc(n.Value) || n.Value > maxArrayIndex {
		return 0, false
	}
	return int(n.Value), true
}

// Truthiness returns the boolean interpretation of a value.
// false, 0, NaN, "" and null are falsy; everything else is truthy,
// including empty arrays.
func Truthiness(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return val.Value
	case Number:
		return val.Value != 0 && !math.IsNaN(val.Value)
	case String:
		return val.Value != ""
	default:
		return true
	}
}

// StrictEqual compares without coercion: same variant and same value.
// Arrays, functions, builtins and modules compare by identity.
func StrictEqual(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value
	case Number:
		bv, ok := b.(Number)
		return ok && av.Value == bv.Value
	case String:
		bv, ok := b.(String)
		return ok && av.Value == bv.Value
	case *Array:
		bv, ok := b.(*Array)
		return ok && av == bv
	case *Function:
		bv, ok := b.(*Function)
		return ok && av == bv
	case *Builtin:
		bv, ok := b.(*Builtin)
		return ok && av == bv
	case *Module:
		bv, ok := b.(*Module)
		return ok && av == bv
	}
	return false
}

// TypeName names the variant of v for error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case *Array:
		return "array"
	case *Function, *Builtin:
		return "function"
	case *Module:
		return "module"
	}
	return "unknown"
}
