// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/awslabs/ar-evm-tools/internal/funcutil"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config contains the analysis options, the checkers to run and the user-defined taint policies.
// If some field is not defined in the config file, it keeps the value set by NewDefault.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:"options"`

	sourceFile string

	// Checkers lists the names of the checkers to run. All checkers run if the list is empty.
	Checkers []string `yaml:"checkers"`

	// TaintPolicies lists user-defined taint policies. Each policy is checked by the custom checker.
	TaintPolicies []PolicySpec `yaml:"taint-policies"`

	// StorageSnapshot is a path to a yaml file mapping storage slots to values. Slots found in the snapshot are
	// used to answer SLOAD instructions whose slot is not known from the analysis.
	StorageSnapshot string `yaml:"storage-snapshot"`
}

// PolicySpec identifies a taint tracking problem over opcodes. Opcodes are named by their mnemonics, e.g.
// CALLDATALOAD or SSTORE.
type PolicySpec struct {
	// Name of the policy, used in warnings
	Name string `yaml:"name"`

	// Sources is the list of opcodes whose result is tainted
	Sources []string `yaml:"sources"`

	// Sanitizers is the list of opcodes whose result is always clean
	Sanitizers []string `yaml:"sanitizers"`

	// Sinks is the list of opcodes that must not receive tainted operands
	Sinks []string `yaml:"sinks"`
}

// Options are the analysis settings
type Options struct {
	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// StackSize is the number of slots of abstract stacks
	StackSize int `yaml:"stack-size"`

	// StackSetBound is the maximum number of abstract stacks tracked at a program point. Beyond it, the set of
	// stacks collapses to top.
	StackSetBound int `yaml:"stackset-bound"`

	// WideningThreshold is the number of joins applied at a widening point before using widening. A negative
	// value disables widening.
	WideningThreshold int `yaml:"widening-threshold"`

	// DescendingPhase is one of "none", "glb" or "narrowing"
	DescendingPhase string `yaml:"descending-phase"`

	// DescendingThreshold bounds the number of refinements per node in the descending phase
	DescendingThreshold int `yaml:"descending-threshold"`

	// MaxIterations bounds the number of node visits of a single fixpoint computation. Zero means no bound.
	MaxIterations int `yaml:"max-iterations"`

	// LinkUnsoundJumps links jumps whose target is unknown to every jump destination of the contract.
	LinkUnsoundJumps bool `yaml:"link-unsound-jumps"`

	// NumWorkers is the number of contracts analyzed concurrently
	NumWorkers int `yaml:"num-workers"`

	// TimeoutSeconds is the wall-clock budget of the analysis of a single contract. Zero means no timeout.
	TimeoutSeconds int `yaml:"timeout-seconds"`

	// ReportsDir is the directory where reports are written. Reports are not written when empty.
	ReportsDir string `yaml:"reports-dir"`

	// ContractAddress is the hex address pushed by the ADDRESS instruction. The result of ADDRESS is unknown when
	// empty.
	ContractAddress string `yaml:"contract-address"`
}

// NewDefault returns a config with the default options.
func NewDefault() *Config {
	return &Config{
		sourceFile:      "",
		Checkers:        nil,
		TaintPolicies:   nil,
		StorageSnapshot: "",
		Options: Options{
			LogLevel:            int(InfoLevel),
			StackSize:           DefaultStackSize,
			StackSetBound:       DefaultStackSetBound,
			WideningThreshold:   DefaultWideningThreshold,
			DescendingPhase:     DescendingNone,
			DescendingThreshold: DefaultDescendingThreshold,
			MaxIterations:       0,
			LinkUnsoundJumps:    false,
			NumWorkers:          runtime.NumCPU(),
			TimeoutSeconds:      0,
			ReportsDir:          "",
			ContractAddress:     "",
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return Parse(filename, b)
}

// Parse builds a configuration from the yaml contents b of the file filename. Relative paths in the configuration
// are resolved against the directory of filename.
func Parse(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}
	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel <= 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.StackSize <= 0 {
		cfg.StackSize = DefaultStackSize
	}
	if cfg.StackSetBound <= 0 {
		cfg.StackSetBound = DefaultStackSetBound
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	if cfg.DescendingPhase == "" {
		cfg.DescendingPhase = DescendingNone
	}
	cfg.DescendingPhase = strings.ToLower(cfg.DescendingPhase)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return cfg, nil
}

// Validate returns an error if some option has a value that cannot be used by the analyses.
func (c Config) Validate() error {
	switch c.DescendingPhase {
	case DescendingNone, DescendingGLB, DescendingNarrowing:
	default:
		return fmt.Errorf("unknown descending phase %q (expected %s, %s or %s)",
			c.DescendingPhase, DescendingNone, DescendingGLB, DescendingNarrowing)
	}
	for _, name := range c.Checkers {
		if !funcutil.Contains(AllCheckers, name) {
			return fmt.Errorf("unknown checker %q (expected one of %s)", name, strings.Join(AllCheckers, ", "))
		}
	}
	for i, p := range c.TaintPolicies {
		if p.Name == "" {
			return fmt.Errorf("taint policy #%d has no name", i)
		}
		if len(p.Sources) == 0 {
			return fmt.Errorf("taint policy %q has no source", p.Name)
		}
	}
	if c.ContractAddress != "" && !isHexString(c.ContractAddress) {
		return fmt.Errorf("contract address %q is not an hexadecimal string", c.ContractAddress)
	}
	return nil
}

func isHexString(s string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	if path.IsAbs(filename) {
		return filename
	}
	return path.Join(path.Dir(c.sourceFile), filename)
}

// EnabledCheckers returns the names of the checkers that should run
func (c Config) EnabledCheckers() []string {
	if len(c.Checkers) == 0 {
		return AllCheckers
	}
	return c.Checkers
}

// IsCheckerEnabled returns true if the checker with that name should run
func (c Config) IsCheckerEnabled(name string) bool {
	return funcutil.Contains(c.EnabledCheckers(), name)
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}

// WideningDisabled returns true when the fixpoint should never apply widening
func (c Config) WideningDisabled() bool {
	return c.WideningThreshold < 0
}
