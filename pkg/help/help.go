// Package help holds the text shown by `nexo help`.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/nexo/go/pkg/stdlib"
)

// Version is reported by the quick reference and the CLI.
const Version = "v0.3"

// TopicList is the display order of help topics.
var TopicList = []string{"syntax", "values", "functions", "modules", "builtins", "diagnostics", "config", "examples"}

// QUICKREF is printed by `nexo help` without a topic.
var QUICKREF = `Nexo ` + Version + ` quick reference

  nexo                      start the REPL
  nexo <file>               run a program, then its mn() entry point
  nexo run <file>           same as above
  nexo check <file>         report static errors without running
  nexo fmt <file> [--write] print (or rewrite) canonical source
  nexo tokens <file>        dump the token stream
  nexo config               print the effective configuration
  nexo help [topic]         show a help topic

Global flags: --json --config <path> --module-path <dir> --log-level <level>

Topics: ` + strings.Join(TopicList, ", ") + `
`

// Topics maps topic names to their text.
var Topics = map[string]string{
	"syntax": `Syntax
  x = 1                       assignment (creates or overwrites)
  // comment                  line comment
  fc name(a, b) { ... }       function declaration
  rt expr                     return (only inside a function)
  if (c) { } elif (c) { } el { }
  wh (c) { }                  while loop
  {1, 2, 3}                   array literal (commas optional)
  a[0]  a[0] = 5              index read and write
  x++  ++x  x--  --x          update a variable
  + - * /  == != < <= > >=  !  unary -
`,
	"values": `Values
  null, true/false, numbers (float64), strings, arrays, functions, modules.
  Falsy: null, false, 0, NaN, "". Everything else is truthy.
  == compares without coercion: 1 == "1" is false.
  "a" + 1 concatenates when either side is a string.
  Arrays compare by identity and share their storage.
  Array methods: a.add(v) appends, a.del(i) removes index i,
  a.del(v) removes the first element equal to v, a.len is the length.
`,
	"functions": `Functions
  Each call runs in a copy of the environment the function was declared in.
  Assignments inside a call never change the caller's variables.
  Variables a call creates stay readable afterwards as f.name:
    fc f() { x = 5 }  f()  print(f.x)   // 5
  The next call replaces that set.
`,
	"modules": `Modules
  util.fn(args) loads util.nexo on first use, runs it once and calls fn.
  imp("util") loads a module explicitly and returns it.
  Search order: the script's directory, module_paths from the config,
  --module-path flags, then the working directory.
  A module is loaded once per interpreter; later edits are not seen.
`,
	"diagnostics": `Diagnostics
  E_LEX E_PARSE              malformed source (exit 2)
  E_RETURN_TOP E_ASSIGN_TARGET E_UPDATE_TARGET E_DUP_PARAM
                             static checks (exit 2)
  E_UNBOUND E_UNKNOWN_FN     unknown variable or function
  E_TYPE E_NOT_CALLABLE      operation on the wrong kind of value
  E_MODULE                   module could not be loaded
  E_LIMIT E_CANCELED         call depth or iteration limit, interrupt
  E_IO                       file or stream failure (exit 1)
  Other runtime errors exit 4. --json prints diagnostics as JSON.
`,
	"config": `Configuration
  Read from --config, else ./.nexo.yaml, else ~/.nexo/config.yaml.
    entry: mn
    module_paths: [lib]
    prompt: "nexo> "
    history_file: ~/.nexo_history
    log_level: warn
    limits:
      max_call_depth: 10000
      max_iterations: 0      # 0 means unlimited
`,
	"examples": `Examples
  fc fib(n) {
      if (n < 2) { rt n }
      rt fib(n - 1) + fib(n - 2)
  }
  fc mn() { print("fib(10) =", fib(10)) }

  words = spl("a b c", " ")
  words.add("d")
  print(join(words, "-"))     // a-b-c-d
`,
}

func init() {
	Topics["builtins"] = "Builtins\n" + BuiltinIndex()
}

// MatchTopic finds a topic by exact name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}
	var matches []string
	if q != "" {
		for _, name := range TopicList {
			if strings.HasPrefix(name, q) {
				matches = append(matches, name)
			}
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", query)
	default:
		return "", "", fmt.Errorf("ambiguous help topic %q matches %s", query, strings.Join(matches, ", "))
	}
}

var builtinGroups = []struct {
	title string
	names []string
}{
	{"output", []string{"print", "ehco"}},
	{"math", []string{"abs", "sqrt", "sin", "cos", "tan", "pow"}},
	{"conversion", []string{"len", "tostr", "tonum", "tobool", "toarr"}},
	{"strings", []string{"sub", "slice", "index", "rep", "up", "low", "trim", "spl", "join"}},
	{"input and files", []string{"fin", "finp", "ct", "wr"}},
	{"modules", []string{"imp"}},
}

// BuiltinIndex lists the registered builtins by group. Builtins missing
// from every group are listed under "other".
func BuiltinIndex() string {
	reg := stdlib.Default()
	grouped := make(map[string]bool)
	var b strings.Builder
	for _, g := range builtinGroups {
		var present []string
		for _, n := range g.names {
			if reg.Get(n) != nil {
				present = append(present, n)
				grouped[n] = true
			}
		}
		if len(present) > 0 {
			fmt.Fprintf(&b, "  %-16s %s\n", g.title, strings.Join(present, " "))
		}
	}
	var other []string
	for _, n := range reg.Names() {
		if !grouped[n] {
			other = append(other, n)
		}
	}
	if len(other) > 0 {
		sort.Strings(other)
		fmt.Fprintf(&b, "  %-16s %s\n", "other", strings.Join(other, " "))
	}
	fmt.Fprintf(&b, "\nTotal: %d functions\n", len(reg.Names()))
	return b.String()
}
