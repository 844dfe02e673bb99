package parser_test

import (
	"testing"

	"github.com/thomasrohde/nexo/go/pkg/parser"
)

// FuzzParse feeds random inputs to the parser to catch panics.
// The parser should never panic; it returns diagnostics for invalid input.
func FuzzParse(f *testing.F) {
	seeds := []string{
		// Assignment and arithmetic
		`x = 1 + 2 * 3`,
		// Function with return
		`fc add(a, b) { rt a + b }
print(add(1, 2))`,
		// Conditional chain
		`if (x > 1) { print("a") } elif (x == 1) { print("b") } el { print("c") }`,
		// Loop with update
		`i = 0
wh (i < 10) { i++ }`,
		// Arrays
		`a = {1, 2, 3}
a.add(4)
a.del(0)
print(a[0], a.len)`,
		// Module call
		`util.sq(3)`,
		// Method chain
		`a[0].add(1).del(2)`,
		// Attached locals
		`fc f() { x = 5 }
f()
print(f.x)`,
		// Entry point
		`fc mn() { print("hi") }`,
		// Unary
		`print(!true, -3, --x, ++y)`,
		// Empty program
		``,
		// Unclosed brace
		`fc f() {`,
		// Unclosed call
		`print(1, 2`,
		// Unterminated string
		`print("hello`,
		// Stray keywords
		`el elif rt`,
		// Assign to call
		`f() = 3`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("parser.Parse panicked on input %q: %v", input, r)
				}
			}()
			parser.Parse(input, "fuzz.nexo")
			parser.Incomplete(input)
		}()
	})
}
