package evaluator_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thomasrohde/nexo/go/pkg/diagnostics"
	"github.com/thomasrohde/nexo/go/pkg/evaluator"
	"github.com/thomasrohde/nexo/go/pkg/parser"
	"github.com/thomasrohde/nexo/go/pkg/stdlib"
)

// --- helpers ---

// mapResolver serves module sources from memory and counts lookups.
type mapResolver struct {
	files map[string]string
	calls map[string]int
}

func (m *mapResolver) resolve(name string) (string, string, error) {
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
	src, ok := m.files[name]
	if !ok {
		return "", "", fmt.Errorf("module %q not found", name)
	}
	return src, name + ".nexo", nil
}

type harness struct {
	in       *evaluator.Interpreter
	out      *bytes.Buffer
	resolver *mapResolver
}

func newHarness(t *testing.T, modules map[string]string, opts ...func(*evaluator.Options)) *harness {
	t.Helper()
	h := &harness{out: &bytes.Buffer{}, resolver: &mapResolver{files: modules}}
	o := evaluator.Options{
		Stdout:  h.out,
		Limits:  evaluator.DefaultLimits(),
		Resolve: h.resolver.resolve,
	}
	for _, fn := range opts {
		fn(&o)
	}
	h.in = evaluator.New(o)
	stdlib.Default().Install(h.in)
	return h
}

// exec parses and runs src against the harness globals.
func (h *harness) exec(t *testing.T, src string) (evaluator.Value, error) {
	t.Helper()
	prog, diags := parser.Parse(src, "test.nexo")
	if len(diags) > 0 {
		t.Fatalf("parse errors: %s", diagnostics.FormatDiagnostics(diags, true))
	}
	return h.in.Run(context.Background(), prog)
}

func (h *harness) mustExec(t *testing.T, src string) evaluator.Value {
	t.Helper()
	val, err := h.exec(t, src)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	return val
}

// run evaluates src in a fresh interpreter.
func run(t *testing.T, src string) (evaluator.Value, error) {
	t.Helper()
	return newHarness(t, nil).exec(t, src)
}

// mustRun is like run but also fails on runtime errors.
func mustRun(t *testing.T, src string) evaluator.Value {
	t.Helper()
	val, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	return val
}

// expectNumber asserts the value is a Number with the expected value.
func expectNumber(t *testing.T, val evaluator.Value, expected float64) {
	t.Helper()
	num, ok := val.(evaluator.Number)
	if !ok {
		t.Fatalf("expected Number, got %T (%v)", val, val)
	}
	if num.Value != expected {
		t.Errorf("got %v, want %v", num.Value, expected)
	}
}

// expectString asserts the value is a String with the expected value.
func expectString(t *testing.T, val evaluator.Value, expected string) {
	t.Helper()
	s, ok := val.(evaluator.String)
	if !ok {
		t.Fatalf("expected String, got %T (%v)", val, val)
	}
	if s.Value != expected {
		t.Errorf("got %q, want %q", s.Value, expected)
	}
}

// expectBool asserts the value is a Bool with the expected value.
func expectBool(t *testing.T, val evaluator.Value, expected bool) {
	t.Helper()
	b, ok := val.(evaluator.Bool)
	if !ok {
		t.Fatalf("expected Bool, got %T (%v)", val, val)
	}
	if b.Value != expected {
		t.Errorf("got %v, want %v", b.Value, expected)
	}
}

// expectCode asserts err is a RuntimeError carrying code.
func expectCode(t *testing.T, err error, code string) *evaluator.RuntimeError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var rerr *evaluator.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if rerr.Code != code {
		t.Errorf("code = %s, want %s (%v)", rerr.Code, code, err)
	}
	return rerr
}

func expectDisplay(t *testing.T, val evaluator.Value, want string) {
	t.Helper()
	if got := evaluator.Display(val); got != want {
		t.Errorf("display = %q, want %q", got, want)
	}
}

// --- top level ---

func TestTopLevelRunsInOrder(t *testing.T) {
	h := newHarness(t, nil)
	h.mustExec(t, `print("a")
print("b")
x = 1
print(x)`)
	if got := h.out.String(); got != "a\nb\n1\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRunReturnsLastExpressionValue(t *testing.T) {
	expectNumber(t, mustRun(t, "x = 2\nx * 21"), 42)
	if _, ok := mustRun(t, "fc f() {}").(evaluator.Null); !ok {
		t.Error("a trailing declaration yields null")
	}
}

func TestTopLevelReturnIsRejected(t *testing.T) {
	_, err := run(t, "x = 1\nrt x")
	rerr := expectCode(t, err, diagnostics.EReturnTop)
	if rerr.Span == nil || rerr.Span.StartLine != 2 {
		t.Errorf("expected span on line 2, got %+v", rerr.Span)
	}
}

func TestTopLevelReturnInsideBlockIsRejected(t *testing.T) {
	_, err := run(t, "if (true) { rt 1 }")
	expectCode(t, err, diagnostics.EReturnTop)
}

func TestUnboundVariable(t *testing.T) {
	_, err := run(t, "print(nope)")
	rerr := expectCode(t, err, diagnostics.EUnbound)
	if rerr.Message != "undefined variable: nope" {
		t.Errorf("message = %q", rerr.Message)
	}
}

// --- functions and snapshots ---

func TestFunctionReturn(t *testing.T) {
	expectNumber(t, mustRun(t, "fc add(a, b) { rt a + b }\nadd(2, 3)"), 5)
}

func TestMissingArgsAreNullAndExtraIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.mustExec(t, `fc f(a, b) { print(tostr(a), tostr(b)) }
f(1)
f(1, 2, 3)`)
	if got := h.out.String(); got != "1 null\n1 2\n" {
		t.Errorf("output = %q", got)
	}
}

func TestFunctionWithoutReturnYieldsNull(t *testing.T) {
	val := mustRun(t, "fc f() { x = 1 }\nf()")
	if _, ok := val.(evaluator.Null); !ok {
		t.Errorf("expected Null, got %T", val)
	}
}

func TestCalleeWritesDoNotLeak(t *testing.T) {
	expectNumber(t, mustRun(t, "x = 1\nfc f() { x = 2 }\nf()\nx"), 1)
}

func TestCallerChangesAfterCallStartAreInvisible(t *testing.T) {
	h := newHarness(t, nil)
	h.mustExec(t, `x = 1
fc show() { print(x) }
show()
x = 2
show()`)
	// each call snapshots at call time
	if got := h.out.String(); got != "1\n2\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRecursion(t *testing.T) {
	expectNumber(t, mustRun(t, `fc fact(n) {
    if (n <= 1) { rt 1 }
    rt n * fact(n - 1)
}
fact(10)`), 3628800)
}

func TestArraysAreSharedThroughSnapshots(t *testing.T) {
	expectDisplay(t, mustRun(t, "a = {1}\nfc push() { a.add(2) }\npush()\na"), "1,2")
}

// --- attached locals ---

func TestAttachedLocals(t *testing.T) {
	expectNumber(t, mustRun(t, "fc f() { x = 5 }\nf()\nf.x"), 5)
}

func TestAttachedLocalsIncludeParams(t *testing.T) {
	expectNumber(t, mustRun(t, "fc f(p) { q = p * 2 }\nf(4)\nf.p + f.q"), 12)
}

func TestAttachedLocalsAreReplacedEachCall(t *testing.T) {
	h := newHarness(t, nil)
	h.mustExec(t, `fc f(first) {
    if (first) { a = 1 } el { b = 2 }
}
f(true)`)
	val := h.mustExec(t, "f.a")
	expectNumber(t, val, 1)

	h.mustExec(t, "f(false)")
	if _, ok := h.mustExec(t, "f.a").(evaluator.Null); !ok {
		t.Error("a from the earlier call must be gone")
	}
	expectNumber(t, h.mustExec(t, "f.b"), 2)
}

func TestRedeclaredFunctionOverwritesAttachment(t *testing.T) {
	h := newHarness(t, nil)
	h.mustExec(t, "fc f() { x = 5 }\nf()")
	h.mustExec(t, "fc f() { x = 7 }\nf()")
	expectNumber(t, h.mustExec(t, "f.x"), 7)
}

func TestAttachedLocalsExcludeGlobals(t *testing.T) {
	h := newHarness(t, nil)
	h.mustExec(t, "g = 1\nfc f() { g = 2\nl = 3 }\nf()")
	fn, _ := h.in.Globals().Get("f")
	names := fn.(*evaluator.Function).AttachedNames()
	if diff := cmp.Diff([]string{"l"}, names); diff != "" {
		t.Errorf("attached mismatch (-want +got):\n%s", diff)
	}
}

func TestAttachmentRunsOnEarlyReturn(t *testing.T) {
	expectNumber(t, mustRun(t, "fc f() { y = 9\nrt 1\nz = 2 }\nf()\nf.y"), 9)
}

func TestAttachmentSkippedOnError(t *testing.T) {
	h := newHarness(t, nil)
	h.mustExec(t, "fc f(fail) { y = 1\nif (fail) { nope() } }\nf(false)")
	_, err := h.exec(t, "f(true)")
	expectCode(t, err, diagnostics.EUnknownFn)
	// the attachment from the successful call survives; fail is still false
	expectBool(t, h.mustExec(t, "f.fail"), false)
}

func TestAttachedFunctionCallableViaModuleCall(t *testing.T) {
	expectNumber(t, mustRun(t, `fc outer() {
    fc inner(n) { rt n + 1 }
}
outer()
outer.inner(41)`), 42)
}

// --- control flow ---

func TestElifChain(t *testing.T) {
	expectNumber(t, mustRun(t, `fc pick() {
    if (false) { rt 1 } elif (true) { rt 2 } el { rt 3 }
}
pick()`), 2)
	expectNumber(t, mustRun(t, `fc pick() {
    if (false) { rt 1 } elif (false) { rt 2 } el { rt 3 }
}
pick()`), 3)
}

func TestReturnInsideWhileExitsLoopAndCall(t *testing.T) {
	h := newHarness(t, nil)
	val := h.mustExec(t, `fc find() {
    i = 0
    wh (true) {
        i++
        if (i == 5) { rt i }
    }
    print("unreachable")
}
find()`)
	expectNumber(t, val, 5)
	if h.out.Len() != 0 {
		t.Errorf("unexpected output %q", h.out.String())
	}
}

func TestWhileLoop(t *testing.T) {
	expectNumber(t, mustRun(t, "i = 0\ns = 0\nwh (i < 5) { s = s + i\ni++ }\ns"), 10)
}

// --- arrays ---

func TestArrayAddDel(t *testing.T) {
	h := newHarness(t, nil)
	h.mustExec(t, "a = {1, 2, 3}\nb = a.add(4)")
	expectBool(t, h.mustExec(t, "a == b"), true)
	expectDisplay(t, h.mustExec(t, "a"), "1,2,3,4")
	expectDisplay(t, h.mustExec(t, "a.del(0)"), "2,3,4")
	expectDisplay(t, h.mustExec(t, "a.del(99)"), "2,3,4")
	expectDisplay(t, h.mustExec(t, "a.del(3)"), "2,4")
	expectDisplay(t, h.mustExec(t, "a.add(5, 6)"), "2,4,5,6")
}

func TestArrayIndexing(t *testing.T) {
	h := newHarness(t, nil)
	h.mustExec(t, "a = {10, 20}")
	expectNumber(t, h.mustExec(t, "a[1]"), 20)
	if _, ok := h.mustExec(t, "a[5]").(evaluator.Null); !ok {
		t.Error("out-of-range read yields null")
	}
	expectNumber(t, h.mustExec(t, "a[3] = 7"), 7)
	expectDisplay(t, h.mustExec(t, "a"), "10,20,,7")
	expectNumber(t, h.mustExec(t, "a.len"), 4)
}

func TestIndexNonArray(t *testing.T) {
	_, err := run(t, `s = "abc"
s[0]`)
	expectCode(t, err, diagnostics.EType)
	_, err = run(t, "n = 1\nn[0] = 2")
	expectCode(t, err, diagnostics.EType)
}

func TestMethodCallOnChain(t *testing.T) {
	expectDisplay(t, mustRun(t, "m = {{1}, {2}}\nm[0].add(9)\nm"), "1,9,2")
}

func TestMethodCallOnNonReceiver(t *testing.T) {
	_, err := run(t, `"abc".up()`)
	rerr := expectCode(t, err, diagnostics.EType)
	if !strings.Contains(rerr.Message, "no method up") {
		t.Errorf("message = %q", rerr.Message)
	}
}

// --- operators ---

func TestArithmetic(t *testing.T) {
	expectNumber(t, mustRun(t, "1 + 2 * 3"), 7)
	expectNumber(t, mustRun(t, "(1 + 2) * 3"), 9)
	expectNumber(t, mustRun(t, "7 / 2"), 3.5)
	expectNumber(t, mustRun(t, "-3 - 4"), -7)
	expectDisplay(t, mustRun(t, "1 / 0"), "Infinity")
}

func TestConcatenation(t *testing.T) {
	expectString(t, mustRun(t, `"n=" + 1`), "n=1")
	expectString(t, mustRun(t, `1 + "x"`), "1x")
	expectString(t, mustRun(t, `"a" + true`), "atrue")
	expectString(t, mustRun(t, `"v:" + {1, 2}`), "v:1,2")
}

func TestOperatorTypeErrors(t *testing.T) {
	for _, src := range []string{
		"true + 1",
		`"a" - 1`,
		"{1} * 2",
		`1 < "2"`,
		"-true",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := run(t, src)
			expectCode(t, err, diagnostics.EType)
		})
	}
}

func TestStrictEquality(t *testing.T) {
	expectBool(t, mustRun(t, `1 == "1"`), false)
	expectBool(t, mustRun(t, `1 != "1"`), true)
	expectBool(t, mustRun(t, `"a" == "a"`), true)
	expectBool(t, mustRun(t, "{1} == {1}"), false)
	expectBool(t, mustRun(t, "a = {1}\nb = a\na == b"), true)
}

func TestComparison(t *testing.T) {
	expectBool(t, mustRun(t, "2 > 1"), true)
	expectBool(t, mustRun(t, "2 <= 1"), false)
	expectBool(t, mustRun(t, `"apple" < "banana"`), true)
	expectBool(t, mustRun(t, `"b" >= "b"`), true)
}

func TestNot(t *testing.T) {
	expectBool(t, mustRun(t, "!0"), true)
	expectBool(t, mustRun(t, `!""`), true)
	expectBool(t, mustRun(t, "!{}"), false)
}

func TestUpdateExpressions(t *testing.T) {
	h := newHarness(t, nil)
	h.mustExec(t, "x = 5\ny = x++")
	expectNumber(t, h.mustExec(t, "y"), 5)
	expectNumber(t, h.mustExec(t, "x"), 6)

	h.mustExec(t, "x = 5\ny = ++x")
	expectNumber(t, h.mustExec(t, "y"), 6)
	expectNumber(t, h.mustExec(t, "x"), 6)

	h.mustExec(t, "x--")
	expectNumber(t, h.mustExec(t, "x"), 5)
}

func TestUpdateErrors(t *testing.T) {
	_, err := run(t, "nope++")
	expectCode(t, err, diagnostics.EUnbound)
	_, err = run(t, `s = "a"
s++`)
	expectCode(t, err, diagnostics.EType)
	_, err = run(t, "a = {1}\na[0]++")
	expectCode(t, err, diagnostics.EType)
}

// --- calls ---

func TestCallErrors(t *testing.T) {
	_, err := run(t, "nope()")
	rerr := expectCode(t, err, diagnostics.EUnknownFn)
	if rerr.Message != "undefined function: nope" {
		t.Errorf("message = %q", rerr.Message)
	}
	_, err = run(t, "x = 1\nx()")
	expectCode(t, err, diagnostics.ENotCallable)
}

func TestAssignToInvalidTarget(t *testing.T) {
	_, err := run(t, "fc f() {}\nf.x = 1")
	expectCode(t, err, diagnostics.EAssignTarget)
}

// --- modules ---

func TestModuleCallLoadsAndCaches(t *testing.T) {
	h := newHarness(t, map[string]string{
		"util": "fc sq(n) { rt n * n }\nversion = 1",
	})
	expectNumber(t, h.mustExec(t, "util.sq(3)"), 9)
	expectNumber(t, h.mustExec(t, "util.version()"), 1)

	// changing the source has no effect once cached
	h.resolver.files["util"] = "fc sq(n) { rt 0 }"
	expectNumber(t, h.mustExec(t, "util.sq(4)"), 16)
	if got := h.resolver.calls["util"]; got != 1 {
		t.Errorf("resolver called %d times, want 1", got)
	}
}

func TestModuleSeesGlobalsAtLoadTime(t *testing.T) {
	h := newHarness(t, map[string]string{
		"cfg": "fc get() { rt base }",
	})
	h.mustExec(t, "base = 10")
	expectNumber(t, h.mustExec(t, "cfg.get()"), 10)
	h.mustExec(t, "base = 20")
	expectNumber(t, h.mustExec(t, "cfg.get()"), 10)
}

func TestModuleErrors(t *testing.T) {
	h := newHarness(t, map[string]string{
		"broken": "fc (",
		"bad":    "rt 1",
		"util":   "x = 1",
	})

	_, err := h.exec(t, "missing.f()")
	rerr := expectCode(t, err, diagnostics.EModule)
	if rerr.Message != "undefined function or variable: missing.f" {
		t.Errorf("message = %q", rerr.Message)
	}

	_, err = h.exec(t, "broken.f()")
	expectCode(t, err, diagnostics.EModule)
	var serr *evaluator.SourceError
	if !errors.As(err, &serr) {
		t.Errorf("expected wrapped SourceError, got %v", err)
	}

	_, err = h.exec(t, "bad.f()")
	expectCode(t, err, diagnostics.EModule)

	_, err = h.exec(t, "util.nope()")
	expectCode(t, err, diagnostics.EModule)

	// a plain binding is not returned when arguments are supplied
	_, err = h.exec(t, "util.x(1)")
	expectCode(t, err, diagnostics.EModule)
}

func TestImportCycle(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a": "b.f()",
		"b": "a.f()",
	})
	_, err := h.exec(t, "a.f()")
	expectCode(t, err, diagnostics.EModule)
	if !errors.Is(err, evaluator.ErrImportCycle) {
		t.Errorf("expected ErrImportCycle in chain, got %v", err)
	}
}

func TestImpBuiltinReturnsModule(t *testing.T) {
	h := newHarness(t, map[string]string{
		"util": "fc sq(n) { rt n * n }\nname = \"util\"",
	})
	expectNumber(t, h.mustExec(t, `m = imp("util")
m.sq(5)`), 25)
	expectString(t, h.mustExec(t, "m.name"), "util")
	expectBool(t, h.mustExec(t, `imp("util") == m`), true)
}

func TestBoundNameWinsOverModule(t *testing.T) {
	h := newHarness(t, map[string]string{
		"a": "fc add(x) { rt 0 }",
	})
	expectDisplay(t, h.mustExec(t, "a = {1}\na.add(2)"), "1,2")
	if got := h.resolver.calls["a"]; got != 0 {
		t.Errorf("module should not be loaded, resolver calls = %d", got)
	}
}

func TestFalsyBindingFallsBackToModule(t *testing.T) {
	h := newHarness(t, map[string]string{
		"util": "fc one() { rt 1 }",
	})
	expectNumber(t, h.mustExec(t, "util = 0\nutil.one()"), 1)
}

// --- entry point and limits ---

func TestCallEntry(t *testing.T) {
	h := newHarness(t, nil)
	h.mustExec(t, `fc mn() { print("main") }
print("top")`)
	found, err := h.in.CallEntry(context.Background(), "mn")
	if err != nil || !found {
		t.Fatalf("CallEntry = %v, %v", found, err)
	}
	if got := h.out.String(); got != "top\nmain\n" {
		t.Errorf("output = %q", got)
	}

	found, err = h.in.CallEntry(context.Background(), "absent")
	if err != nil || found {
		t.Errorf("absent entry: %v, %v", found, err)
	}
}

func TestCallDepthLimit(t *testing.T) {
	h := newHarness(t, nil, func(o *evaluator.Options) {
		o.Limits.MaxCallDepth = 50
	})
	_, err := h.exec(t, "fc down() { down() }\ndown()")
	expectCode(t, err, diagnostics.ELimit)
}

func TestIterationLimit(t *testing.T) {
	h := newHarness(t, nil, func(o *evaluator.Options) {
		o.Limits.MaxIterations = 100
	})
	_, err := h.exec(t, "wh (true) { }")
	expectCode(t, err, diagnostics.ELimit)
}

func TestCancellation(t *testing.T) {
	h := newHarness(t, nil)
	prog, _ := parser.Parse("wh (true) { }", "test.nexo")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.in.Run(ctx, prog)
	expectCode(t, err, diagnostics.ECanceled)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestBindingsBeforeFailurePersist(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.exec(t, "kept = 1\nnope()")
	expectCode(t, err, diagnostics.EUnknownFn)
	expectNumber(t, h.mustExec(t, "kept"), 1)
}
