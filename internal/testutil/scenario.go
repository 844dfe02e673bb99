// Package testutil provides shared test helpers for Nexo Go tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ScenariosDir is the scenario root relative to the module root.
const ScenariosDir = "testdata/scenarios"

// Scenario is a test program plus its expected observable behavior, loaded
// from a scenario.yaml file.
type Scenario struct {
	// Cmd is [run, file], [check, file] or [session]. A session evaluates
	// Inputs one after another against the same globals.
	Cmd    []string        `yaml:"cmd"`
	Inputs []string        `yaml:"inputs,omitempty"`
	Stdin  string          `yaml:"stdin,omitempty"`
	Entry  *string         `yaml:"entry,omitempty"`
	Limits *ScenarioLimits `yaml:"limits,omitempty"`
	Meta   *ScenarioMeta   `yaml:"meta,omitempty"`
	Expect ExpectedResult  `yaml:"expect"`
}

// ScenarioLimits overrides evaluation limits.
type ScenarioLimits struct {
	MaxCallDepth  int   `yaml:"maxCallDepth,omitempty"`
	MaxIterations int64 `yaml:"maxIterations,omitempty"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
// Stdout is compared exactly when set; Codes lists the diagnostic codes
// reported, in order.
type ExpectedResult struct {
	ExitCode       int      `yaml:"exitCode"`
	Stdout         *string  `yaml:"stdout,omitempty"`
	StdoutContains string   `yaml:"stdoutContains,omitempty"`
	Codes          []string `yaml:"codes,omitempty"`
	StderrContains string   `yaml:"stderrContains,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.yaml.
// Unknown keys are an error so typos in expectations do not pass silently.
func LoadScenario(dir string) (*Scenario, error) {
	f, err := os.Open(filepath.Join(dir, "scenario.yaml"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s Scenario
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	if len(s.Cmd) == 0 {
		return nil, fmt.Errorf("%s: cmd is required", dir)
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under root, sorted.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), "scenario.yaml")); err == nil {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ReadProgramFile reads the program file named by the scenario cmd and
// returns its source and absolute path.
func ReadProgramFile(scenarioDir string, cmd []string) (string, string, error) {
	if len(cmd) < 2 {
		return "", "", nil
	}
	path, err := filepath.Abs(filepath.Join(scenarioDir, cmd[1]))
	if err != nil {
		return "", "", err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return string(source), path, nil
}
