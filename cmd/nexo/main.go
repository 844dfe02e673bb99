// Command nexo is the Nexo interpreter CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/nexo/go/pkg/config"
	"github.com/thomasrohde/nexo/go/pkg/diagnostics"
	"github.com/thomasrohde/nexo/go/pkg/formatter"
	"github.com/thomasrohde/nexo/go/pkg/help"
	"github.com/thomasrohde/nexo/go/pkg/runtime"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cli holds the parsed global flags and the streams commands use.
type cli struct {
	jsonOut     bool
	configPath  string
	modulePaths []string
	logLevel    string
	write       bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}

	fs := pflag.NewFlagSet("nexo", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&c.jsonOut, "json", false, "print diagnostics as JSON")
	fs.StringVar(&c.configPath, "config", "", "config file (default .nexo.yaml, then ~/.nexo/config.yaml)")
	fs.StringArrayVar(&c.modulePaths, "module-path", nil, "extra module directory (repeatable)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.BoolVarP(&c.write, "write", "w", false, "fmt: rewrite the file in place")
	showHelp := fs.BoolP("help", "h", false, "show help")
	fs.Usage = func() {
		fmt.Fprint(stderr, help.QUICKREF)
		fmt.Fprintln(stderr)
		fmt.Fprint(stderr, fs.FlagUsages())
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *showHelp {
		fmt.Fprint(stdout, help.QUICKREF)
		return 0
	}

	if code := c.setup(); code != 0 {
		return code
	}

	pos := fs.Args()
	if len(pos) == 0 {
		return c.cmdRepl()
	}
	cmd, rest := pos[0], pos[1:]
	switch cmd {
	case "run":
		return c.withFile("run", rest, c.cmdRun)
	case "repl":
		return c.cmdRepl()
	case "check":
		return c.withFile("check", rest, c.cmdCheck)
	case "fmt":
		return c.withFile("fmt", rest, c.cmdFmt)
	case "tokens":
		return c.withFile("tokens", rest, c.cmdTokens)
	case "config":
		return c.cmdConfig()
	case "help":
		return c.cmdHelp(rest)
	case "version":
		fmt.Fprintln(stdout, "nexo", help.Version)
		return 0
	default:
		// `nexo prog.nexo` runs the file
		return c.cmdRun(cmd)
	}
}

// setup loads the config and builds the logger.
func (c *cli) setup() int {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, err := config.Load(c.configPath, cwd)
	if err != nil {
		fmt.Fprintf(c.stderr, "nexo: %s\n", err)
		return 1
	}
	c.cfg = cfg

	levelName := cfg.LogLevel
	if c.logLevel != "" {
		levelName = c.logLevel
	}
	level, err := config.ParseLevel(levelName)
	if err != nil {
		fmt.Fprintf(c.stderr, "nexo: %s\n", err)
		return 1
	}
	c.logger = slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
	if cfg.Source != "" {
		c.logger.Debug("config loaded", "file", cfg.Source)
	}
	return 0
}

func (c *cli) newRuntime() *runtime.Runtime {
	return runtime.New(
		runtime.WithConfig(c.cfg),
		runtime.WithModulePaths(c.modulePaths...),
		runtime.WithLogger(c.logger),
		runtime.WithStdout(c.stdout),
		runtime.WithStdin(c.stdin),
	)
}

func (c *cli) withFile(name string, rest []string, fn func(file string) int) int {
	if len(rest) == 0 {
		fmt.Fprintf(c.stderr, "usage: nexo %s <file>\n", name)
		return 1
	}
	return fn(rest[0])
}

func (c *cli) printDiags(diags []diagnostics.Diagnostic) {
	fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, !c.jsonOut))
}

func (c *cli) report(err error) int {
	c.printDiags(runtime.Diagnostics(err))
	return runtime.ExitCode(err)
}

func (c *cli) readSource(file string) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			fmt.Fprintf(c.stderr, "error reading stdin: %s\n", err)
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}
	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		c.printDiags([]diagnostics.Diagnostic{diag})
		return "", "", 1
	}
	return string(source), file, 0
}

func (c *cli) cmdRun(file string) int {
	source, filename, code := c.readSource(file)
	if code != 0 {
		return code
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := c.newRuntime().Run(ctx, source, filename); err != nil {
		return c.report(err)
	}
	return 0
}

func (c *cli) cmdCheck(file string) int {
	source, filename, code := c.readSource(file)
	if code != 0 {
		return code
	}
	diags := c.newRuntime().Check(source, filename)
	if len(diags) > 0 {
		c.printDiags(diags)
		return 2
	}
	if c.jsonOut {
		fmt.Fprintln(c.stdout, "[]")
	} else {
		fmt.Fprintln(c.stdout, "No errors found.")
	}
	return 0
}

func (c *cli) cmdFmt(file string) int {
	source, filename, code := c.readSource(file)
	if code != 0 {
		return code
	}
	formatted, err := c.newRuntime().Format(source, filename)
	if err != nil {
		return c.report(err)
	}
	if formatter.HasComments(source) {
		fmt.Fprintln(c.stderr, "warning: comments are not preserved by the formatter")
	}
	if c.write && file != "-" {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			fmt.Fprintf(c.stderr, "error writing file: %s\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprint(c.stdout, formatted)
	return 0
}

type tokenJSON struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Line  int    `json:"line"`
	Col   int    `json:"col"`
}

func (c *cli) cmdTokens(file string) int {
	source, filename, code := c.readSource(file)
	if code != 0 {
		return code
	}
	toks, err := c.newRuntime().Tokens(source, filename)
	if err != nil {
		return c.report(err)
	}
	if c.jsonOut {
		out := make([]tokenJSON, len(toks))
		for i, tok := range toks {
			out[i] = tokenJSON{Type: tok.Type.String(), Value: tok.Value, Line: tok.Span.StartLine, Col: tok.Span.StartCol}
		}
		b, _ := json.Marshal(out)
		fmt.Fprintln(c.stdout, string(b))
		return 0
	}
	for _, tok := range toks {
		fmt.Fprintf(c.stdout, "%d:%d\t%s\t%q\n", tok.Span.StartLine, tok.Span.StartCol, tok.Type, tok.Value)
	}
	return 0
}

func (c *cli) cmdConfig() int {
	if c.cfg.Source != "" {
		fmt.Fprintf(c.stdout, "# %s\n", c.cfg.Source)
	} else {
		fmt.Fprintln(c.stdout, "# defaults")
	}
	enc := yaml.NewEncoder(c.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(c.cfg); err != nil {
		fmt.Fprintf(c.stderr, "nexo: %s\n", err)
		return 1
	}
	if err := enc.Close(); err != nil {
		fmt.Fprintf(c.stderr, "nexo: %s\n", err)
		return 1
	}
	return 0
}

func (c *cli) cmdHelp(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.stdout, help.QUICKREF)
		return 0
	}
	_, content, err := help.MatchTopic(args[0])
	if err != nil {
		fmt.Fprintf(c.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return 1
	}
	fmt.Fprint(c.stdout, content)
	return 0
}
