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

// Package tools contains utility types and functions for the argot-evm sub-commands.
package tools

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/analysis/contract"
	"github.com/awslabs/ar-evm-tools/analysis/jumps"
)

// UnparsedCommonFlags represents an unparsed CLI sub-command flags.
type UnparsedCommonFlags struct {
	FlagSet    *flag.FlagSet
	ConfigPath *string
	Verbose    *bool
}

// NewUnparsedCommonFlags returns an unparsed flag set with a given name.
// This is useful for creating sub-commands that have the flags -config and -verbose but need other flags in
// addition.
func NewUnparsedCommonFlags(name string) UnparsedCommonFlags {
	cmd := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := cmd.String("config", "", "config file path for analysis")
	verbose := cmd.Bool("verbose", false, "verbose printing on standard output")
	return UnparsedCommonFlags{
		FlagSet:    cmd,
		ConfigPath: configPath,
		Verbose:    verbose,
	}
}

// CommonFlags represents a parsed CLI sub-command flags.
// E.g., for the command `argot-evm jumps ...`, "jumps" is the sub-command.
type CommonFlags struct {
	FlagSet    *flag.FlagSet
	ConfigPath string
	Verbose    bool
}

// Parse parses args and returns the common flags
func (f UnparsedCommonFlags) Parse(args []string) (CommonFlags, error) {
	if err := f.FlagSet.Parse(args); err != nil {
		return CommonFlags{}, fmt.Errorf("failed to parse command %s with args %v: %v", f.FlagSet.Name(), args, err)
	}
	return CommonFlags{
		FlagSet:    f.FlagSet,
		ConfigPath: *f.ConfigPath,
		Verbose:    *f.Verbose,
	}, nil
}

// NewCommonFlags returns a parsed flag set with a given name.
// Returns an error if args are invalid.
// Prints cmdUsage along with flag docs as the --help message.
func NewCommonFlags(name string, args []string, cmdUsage string) (CommonFlags, error) {
	flags := NewUnparsedCommonFlags(name)
	SetUsage(flags.FlagSet, cmdUsage)
	return flags.Parse(args)
}

// SetUsage sets cmd's usage (for --help flag) to output the string cmdUsage
// followed by each flag's documentation.
func SetUsage(cmd *flag.FlagSet, cmdUsage string) {
	cmd.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", cmdUsage)
		fmt.Fprintf(os.Stderr, "Options:\n")
		cmd.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  %s: %s (default: %q)\n", f.Name, f.Usage, f.DefValue)
		})
	}
}

// LoadConfig loads the config file from configPath. The default configuration is returned when configPath is
// empty. Verbose raises the log level to debug.
func LoadConfig(configPath string, verbose bool) (*config.Config, error) {
	c := config.NewDefault()
	if configPath != "" {
		config.SetGlobalConfig(configPath)
		loaded, err := config.LoadGlobal()
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		c = loaded
	}
	if verbose && c.LogLevel < int(config.DebugLevel) {
		c.LogLevel = int(config.DebugLevel)
	}
	return c, nil
}

// NewLogger returns the log group of the configuration, writing to w
func NewLogger(c *config.Config, w io.Writer) *config.LogGroup {
	return config.NewWriterLogGroup(config.LogLevel(c.LogLevel), w)
}

// LoadSingle loads the only contract named by the arguments of a sub-command
func LoadSingle(args []string) (contract.Contract, error) {
	if len(args) != 1 {
		return contract.Contract{}, fmt.Errorf("expected one contract file, got %d arguments", len(args))
	}
	return contract.Load(args[0])
}

// Context returns the context of a single-contract command, bounded by the timeout of the configuration
func Context(conf *config.Config) (context.Context, context.CancelFunc) {
	if conf.TimeoutSeconds > 0 {
		return context.WithTimeout(context.Background(), time.Duration(conf.TimeoutSeconds)*time.Second)
	}
	return context.WithCancel(context.Background())
}

// Resolve builds the graph of c and resolves its jumps with the options of the configuration
func Resolve(ctx context.Context, c contract.Contract, conf *config.Config,
	logger *config.LogGroup) (*jumps.Resolution, error) {
	g, err := cfg.Build(c.Bytecode)
	if err != nil {
		return nil, err
	}
	opts, err := jumps.OptionsFromConfig(conf, logger)
	if err != nil {
		return nil, err
	}
	return jumps.Resolve(ctx, g, opts, logger)
}
