package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thomasrohde/nexo/go/pkg/config"
	"github.com/thomasrohde/nexo/go/pkg/diagnostics"
	"github.com/thomasrohde/nexo/go/pkg/evaluator"
	"github.com/thomasrohde/nexo/go/pkg/lexer"
	"github.com/thomasrohde/nexo/go/pkg/runtime"
)

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newRuntime(out *bytes.Buffer, opts ...runtime.Option) *runtime.Runtime {
	base := []runtime.Option{runtime.WithStdout(out), runtime.WithStdin(strings.NewReader(""))}
	return runtime.New(append(base, opts...)...)
}

func diagCodes(err error) []string {
	var codes []string
	for _, d := range runtime.Diagnostics(err) {
		codes = append(codes, d.Code)
	}
	return codes
}

func TestRunCallsEntryAfterTopLevel(t *testing.T) {
	var out bytes.Buffer
	rt := newRuntime(&out)
	src := `print("top") fc mn() { print("main") } print("end")`
	res, err := rt.Run(context.Background(), src, "prog.nexo")
	if err != nil {
		t.Fatal(err)
	}
	if !res.EntryCalled {
		t.Error("expected entry call")
	}
	if got := out.String(); got != "top\nend\nmain\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRunWithoutEntry(t *testing.T) {
	var out bytes.Buffer
	res, err := newRuntime(&out).Run(context.Background(), `x = 1 + 2 x`, "prog.nexo")
	if err != nil {
		t.Fatal(err)
	}
	if res.EntryCalled {
		t.Error("no entry function was defined")
	}
	if diff := cmp.Diff(evaluator.NewNumber(3), res.Value); diff != "" {
		t.Errorf("value mismatch:\n%s", diff)
	}
}

func TestCustomEntry(t *testing.T) {
	var out bytes.Buffer
	rt := newRuntime(&out, runtime.WithEntry("start"))
	_, err := rt.Run(context.Background(), `fc mn() { print("mn") } fc start() { print("start") }`, "p.nexo")
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "start\n" {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	rt = newRuntime(&out, runtime.WithEntry(""))
	if _, err := rt.Run(context.Background(), `fc mn() { print("mn") }`, "p.nexo"); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("entry disabled but got %q", out.String())
	}
}

func TestRunFrontEndErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"lex", `x = "open`, diagnostics.ELex},
		{"parse", `fc (`, diagnostics.EParse},
		{"return at top", `rt 1`, diagnostics.EReturnTop},
		{"bad assign", `1 = 2`, diagnostics.EAssignTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := newRuntime(&out).Run(context.Background(), `print("never") `+tt.src, "p.nexo")
			var diagErr *runtime.DiagnosticError
			if !errors.As(err, &diagErr) {
				t.Fatalf("expected DiagnosticError, got %v", err)
			}
			if diff := cmp.Diff([]string{tt.code}, diagCodes(err)); diff != "" {
				t.Errorf("codes mismatch:\n%s", diff)
			}
			if runtime.ExitCode(err) != 2 {
				t.Errorf("exit code = %d", runtime.ExitCode(err))
			}
			if out.Len() != 0 {
				t.Errorf("nothing should run, got %q", out.String())
			}
		})
	}
}

func TestRunRuntimeError(t *testing.T) {
	var out bytes.Buffer
	_, err := newRuntime(&out).Run(context.Background(), `print("before") nope()`, "p.nexo")
	if diff := cmp.Diff([]string{diagnostics.EUnknownFn}, diagCodes(err)); diff != "" {
		t.Errorf("codes mismatch:\n%s", diff)
	}
	if runtime.ExitCode(err) != 4 {
		t.Errorf("exit code = %d", runtime.ExitCode(err))
	}
	if out.String() != "before\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunFileLoadsSiblingModules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "util.nexo"), `greeting = "hi" fc greet(n) { rt greeting + " " + n }`)
	main := filepath.Join(dir, "main.nexo")
	writeFile(t, main, `fc mn() { print(util.greet("bob")) u = imp("util") print(u.greeting) }`)

	var out bytes.Buffer
	if _, err := newRuntime(&out).RunFile(context.Background(), main); err != nil {
		t.Fatal(err)
	}
	if out.String() != "hi bob\nhi\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestModulePathsFromConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, "lib", "shapes.nexo"), `fc area(w, h) { rt w * h }`)
	writeFile(t, filepath.Join(project, config.ProjectFile), "module_paths: [lib]\nentry: go\n")
	cfg, err := config.Load("", project)
	if err != nil {
		t.Fatal(err)
	}

	scriptDir := t.TempDir()
	script := filepath.Join(scriptDir, "main.nexo")
	writeFile(t, script, `fc go() { print(shapes.area(3, 4)) }`)

	var out bytes.Buffer
	res, err := newRuntime(&out, runtime.WithConfig(cfg)).RunFile(context.Background(), script)
	if err != nil {
		t.Fatal(err)
	}
	if !res.EntryCalled || out.String() != "12\n" {
		t.Errorf("entry called %v, output %q", res.EntryCalled, out.String())
	}
}

func TestRunFileMissing(t *testing.T) {
	var out bytes.Buffer
	_, err := newRuntime(&out).RunFile(context.Background(), filepath.Join(t.TempDir(), "none.nexo"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
	if runtime.ExitCode(err) != 1 {
		t.Errorf("exit code = %d", runtime.ExitCode(err))
	}
}

func TestMissingModule(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.nexo")
	writeFile(t, main, `ghost.run()`)
	var out bytes.Buffer
	_, err := newRuntime(&out).RunFile(context.Background(), main)
	if diff := cmp.Diff([]string{diagnostics.EModule}, diagCodes(err)); diff != "" {
		t.Errorf("codes mismatch:\n%s", diff)
	}
}

func TestLimits(t *testing.T) {
	var out bytes.Buffer
	rt := newRuntime(&out, runtime.WithLimits(evaluator.Limits{MaxCallDepth: 50}))
	_, err := rt.Run(context.Background(), `fc f(n) { rt f(n + 1) } f(0)`, "p.nexo")
	if diff := cmp.Diff([]string{diagnostics.ELimit}, diagCodes(err)); diff != "" {
		t.Errorf("codes mismatch:\n%s", diff)
	}
}

func TestStdin(t *testing.T) {
	var out bytes.Buffer
	rt := runtime.New(runtime.WithStdout(&out), runtime.WithStdin(strings.NewReader("ada\n")))
	if _, err := rt.Run(context.Background(), `name = finp("name: ") print("hello " + name)`, "p.nexo"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "name: hello ada\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestSessionPersistsBindings(t *testing.T) {
	var out bytes.Buffer
	s := newRuntime(&out).NewSession()
	ctx := context.Background()

	if _, err := s.Eval(ctx, `x = 1 fc inc() { rt x + 1 }`); err != nil {
		t.Fatal(err)
	}
	// bindings made before the failure persist
	if _, err := s.Eval(ctx, `y = inc() boom()`); err == nil {
		t.Fatal("expected error")
	}
	v, err := s.Eval(ctx, `y`)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(evaluator.NewNumber(2), v); diff != "" {
		t.Errorf("value mismatch:\n%s", diff)
	}
	if _, err := s.Eval(ctx, `fc mn() { print("no") }`); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("sessions never call the entry function, got %q", out.String())
	}

	names := s.Names()
	for _, want := range []string{"x", "y", "inc", "mn", "print"} {
		found := false
		for _, n := range names {
			found = found || n == want
		}
		if !found {
			t.Errorf("Names() missing %q", want)
		}
	}
}

func TestSessionRejectsTopLevelReturn(t *testing.T) {
	var out bytes.Buffer
	s := newRuntime(&out).NewSession()
	_, err := s.Eval(context.Background(), `rt 5`)
	if diff := cmp.Diff([]string{diagnostics.EReturnTop}, diagCodes(err)); diff != "" {
		t.Errorf("codes mismatch:\n%s", diff)
	}
}

func TestCheck(t *testing.T) {
	rt := runtime.New()
	if diags := rt.Check(`fc f(a) { rt a }`, "ok.nexo"); len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	diags := rt.Check(`fc f(a, a) { rt a }`, "bad.nexo")
	if len(diags) != 1 || diags[0].Code != diagnostics.EDupParam {
		t.Errorf("diagnostics = %v", diags)
	}
}

func TestFormat(t *testing.T) {
	rt := runtime.New()
	got, err := rt.Format(`x=1`, "f.nexo")
	if err != nil || got != "x = 1\n" {
		t.Errorf("Format = %q, %v", got, err)
	}
	if _, err := rt.Format(`x = (`, "f.nexo"); runtime.ExitCode(err) != 2 {
		t.Errorf("expected front-end error, got %v", err)
	}
}

func TestTokens(t *testing.T) {
	rt := runtime.New()
	toks, err := rt.Tokens(`x = 1`, "t.nexo")
	if err != nil {
		t.Fatal(err)
	}
	var types []lexer.TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	want := []lexer.TokenType{lexer.TokIdent, lexer.TokAssign, lexer.TokNumber, lexer.TokEOF}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("token types mismatch:\n%s", diff)
	}

	_, err = rt.Tokens(`"open`, "t.nexo")
	if diff := cmp.Diff([]string{diagnostics.ELex}, diagCodes(err)); diff != "" {
		t.Errorf("codes mismatch:\n%s", diff)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	_, err := newRuntime(&out).Run(ctx, `wh (true) { }`, "p.nexo")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if diff := cmp.Diff([]string{diagnostics.ECanceled}, diagCodes(err)); diff != "" {
		t.Errorf("codes mismatch:\n%s", diff)
	}
}
