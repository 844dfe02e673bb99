package lexer

import (
	"testing"
)

// FuzzTokenize feeds random inputs to the lexer to catch panics.
// The lexer should never panic; invalid input returns an error.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		`fc if el elif rt wh true false mn`,
		`42 3.14 -1 0 1.`,
		`"hello" "with\nescape" "quote\""`,
		`+ ++ - -- * / > < >= <= == != ! =`,
		`{ } [ ] ( ) , .`,
		`x foo bar_baz 变量`,
		`// comment only`,
		`a = {1, 2, 3} a.add(4)`,
		``,
		"\t\n\r",
		`"unterminated`,
		`"\`,
		`@#$^&`,
		"\xff\xfe",
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Tokenize panicked on input %q: %v", input, r)
				}
			}()
			Tokenize(input, "fuzz.nexo")
		}()
	})
}
