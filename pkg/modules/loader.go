// Package modules resolves Nexo module names to source files.
package modules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Ext is the file extension of Nexo source files.
const Ext = ".nexo"

var (
	// ErrNotFound is returned when no search directory holds the module.
	ErrNotFound = errors.New("module not found")
	// ErrInvalidName is returned for names that are not plain identifiers
	// of a file in a search directory.
	ErrInvalidName = errors.New("invalid module name")
)

// Source is the resolved text of a module.
type Source struct {
	Name string
	File string // absolute path
	Text string
}

// Loader finds `<dir>/<name>.nexo` over an ordered list of directories.
type Loader struct {
	SearchPaths []string
}

// NewLoader builds the search path: the script's directory (when known),
// then extra, then the working directory. Duplicates are dropped.
func NewLoader(scriptDir string, extra []string) *Loader {
	var dirs []string
	if scriptDir != "" {
		dirs = append(dirs, scriptDir)
	}
	dirs = append(dirs, extra...)
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	l := &Loader{}
	seen := make(map[string]bool)
	for _, d := range dirs {
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			continue
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		l.SearchPaths = append(l.SearchPaths, abs)
	}
	return l
}

// Resolve reads the first `<name>.nexo` found on the search path.
func (l *Loader) Resolve(name string) (Source, error) {
	if err := validateName(name); err != nil {
		return Source{}, err
	}
	for _, dir := range l.SearchPaths {
		path := filepath.Join(dir, name+Ext)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Source{}, fmt.Errorf("reading module %s: %w", name, err)
		}
		return Source{Name: name, File: filepath.Clean(path), Text: string(data)}, nil
	}
	return Source{}, fmt.Errorf("%w: %s (searched %s)", ErrNotFound, name, strings.Join(l.SearchPaths, ", "))
}

// ResolveText adapts Resolve to the interpreter's resolver signature.
func (l *Loader) ResolveText(name string) (string, string, error) {
	src, err := l.Resolve(name)
	if err != nil {
		return "", "", err
	}
	return src.Text, src.File, nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case strings.ContainsAny(name, `/\`), strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case filepath.IsAbs(name) || filepath.VolumeName(name) != "":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
