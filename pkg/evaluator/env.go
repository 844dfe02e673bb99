package evaluator

import "sort"

// Env is a flat environment of name bindings. There is no parent chain:
// function calls work on a Snapshot of the defining environment.
type Env struct {
	bindings map[string]Value
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{bindings: make(map[string]Value)}
}

// Get looks up a binding.
func (e *Env) Get(name string) (Value, bool) {
	val, ok := e.bindings[name]
	return val, ok
}

// Set creates or overwrites a binding.
func (e *Env) Set(name string, val Value) {
	e.bindings[name] = val
}

// Has checks whether name is bound.
func (e *Env) Has(name string) bool {
	_, ok := e.bindings[name]
	return ok
}

// Snapshot returns a shallow copy. Arrays and functions inside are shared;
// the bindings themselves are not.
func (e *Env) Snapshot() *Env {
	cp := make(map[string]Value, len(e.bindings))
	for k, v := range e.bindings {
		cp[k] = v
	}
	return &Env{bindings: cp}
}

// Names returns the bound names in sorted order.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for k := range e.bindings {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of bindings.
func (e *Env) Len() int {
	return len(e.bindings)
}
