// Package stdlib provides the Nexo builtin function registry.
package stdlib

import (
	"sort"

	"github.com/thomasrohde/nexo/go/pkg/evaluator"
)

// Fn represents a builtin function.
type Fn struct {
	Name    string
	Execute evaluator.BuiltinFunc
}

// Registry holds registered builtin functions.
type Registry struct {
	fns map[string]*Fn
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*Fn),
	}
}

// Register adds a builtin to the registry, replacing any previous entry of
// the same name.
func (r *Registry) Register(fn Fn) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a builtin by name.
func (r *Registry) Get(name string) *Fn {
	return r.fns[name]
}

// All returns all registered builtins.
func (r *Registry) All() map[string]*Fn {
	return r.fns
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install binds every registered builtin in the interpreter's globals.
func (r *Registry) Install(in *evaluator.Interpreter) {
	for name, fn := range r.fns {
		in.Define(name, &evaluator.Builtin{Name: name, Fn: fn.Execute})
	}
}

// Default returns a registry holding the full builtin surface.
func Default() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
