package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/thomasrohde/nexo/go/pkg/help"
	"github.com/thomasrohde/nexo/go/pkg/lexer"
	"github.com/thomasrohde/nexo/go/pkg/parser"
	"github.com/thomasrohde/nexo/go/pkg/runtime"
)

const (
	exitCommand = ".exit"
	contPrompt  = "...   "
)

func (c *cli) cmdRepl() int {
	fmt.Fprintf(c.stdout, "Nexo %s\nType %s to quit\n", help.Version, exitCommand)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	session := c.newRuntime().NewSession()
	ln.SetCompleter(func(line string) []string {
		return complete(line, session.Names())
	})

	histPath := c.cfg.HistoryPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			f, err := os.Create(histPath)
			if err != nil {
				c.logger.Warn("cannot save history", "file", histPath, "err", err)
				return
			}
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}()
	}

	for {
		src, ok := readInput(ln, c.cfg.Prompt)
		if !ok {
			fmt.Fprintln(c.stdout)
			return 0
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		if trimmed == exitCommand {
			return 0
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		_, err := session.Eval(ctx, src)
		stop()
		if err != nil {
			c.printDiags(runtime.Diagnostics(err))
		}
	}
}

// readInput reads one unit of input, prompting for more lines while the
// source so far is incomplete. ok is false at end of input.
func readInput(ln *liner.State, prompt string) (string, bool) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = contPrompt
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl-C drops the pending input
			b.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			if b.Len() > 0 {
				return b.String(), true
			}
			return "", false
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		src := b.String()
		if strings.TrimSpace(src) == exitCommand || !parser.Incomplete(src) {
			return src, true
		}
	}
}

// complete offers global names and keywords for the identifier at the end
// of line.
func complete(line string, names []string) []string {
	start := len(line)
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	prefix := line[start:]
	if prefix == "" {
		return nil
	}

	candidates := append([]string(nil), names...)
	for kw := range lexer.Keywords {
		candidates = append(candidates, kw)
	}
	sort.Strings(candidates)

	var out []string
	seen := make(map[string]bool)
	for _, name := range candidates {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			out = append(out, line[:start]+name)
		}
	}
	return out
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
