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

// Package render implements the front-end writing the resolved control-flow graph of a contract.
package render

import (
	"fmt"
	"io"
	"os"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/cmd/argot-evm/tools"
	"github.com/awslabs/ar-evm-tools/internal/formatutil"
)

// Usage of the render sub-command
const Usage = `Render the control-flow graph of a contract, with its resolved jumps, in the Graphviz DOT format.

Usage:
  argot-evm render [options] <contract file>

Examples:
% argot-evm render -o token.dot token.hex
% argot-evm render -unresolved token.hex | dot -Tsvg > token.svg
`

// Flags represents the flags for the render sub-command.
type Flags struct {
	tools.CommonFlags
	output     string
	unresolved bool
}

// NewFlags returns parsed flags for render.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("render")
	output := flags.FlagSet.String("o", "", "output file, standard output when empty")
	unresolved := flags.FlagSet.Bool("unresolved", false, "render the graph before jump resolution")
	tools.SetUsage(flags.FlagSet, Usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: common, output: *output, unresolved: *unresolved}, nil
}

// Run writes the graph of the contract
func Run(flags Flags) error {
	conf, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	logger := tools.NewLogger(conf, os.Stderr)
	c, err := tools.LoadSingle(flags.FlagSet.Args())
	if err != nil {
		return err
	}

	var g *cfg.Graph
	if flags.unresolved {
		if g, err = cfg.Build(c.Bytecode); err != nil {
			return err
		}
	} else {
		ctx, cancel := tools.Context(conf)
		defer cancel()
		r, err := tools.Resolve(ctx, c, conf, logger)
		if err != nil {
			return fmt.Errorf("jump resolution of %s failed: %w", c.Name, err)
		}
		g = r.Graph
	}

	var w io.Writer = os.Stdout
	if flags.output != "" {
		f, err := os.Create(flags.output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := cfg.WriteDOT(w, g, c.Name); err != nil {
		return err
	}
	if flags.output != "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", formatutil.Faint("Graph written in"), flags.output)
	}
	return nil
}
