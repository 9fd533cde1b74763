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

// Package jumps implements the front-end of the jump resolution.
package jumps

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awslabs/ar-evm-tools/analysis/jumps"
	"github.com/awslabs/ar-evm-tools/cmd/argot-evm/tools"
	"github.com/awslabs/ar-evm-tools/internal/formatutil"
	"github.com/awslabs/ar-evm-tools/internal/funcutil"
	"github.com/olekukonko/tablewriter"
)

// Usage of the jumps sub-command
const Usage = `Resolve the jumps of a contract and print their classification.

Usage:
  argot-evm jumps [options] <contract file>

Examples:
% argot-evm jumps -config config.yaml token.hex
`

// Run resolves the jumps of the contract and prints a table of the jumps
func Run(flags tools.CommonFlags) error {
	conf, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	logger := tools.NewLogger(conf, os.Stderr)
	c, err := tools.LoadSingle(flags.FlagSet.Args())
	if err != nil {
		return err
	}
	ctx, cancel := tools.Context(conf)
	defer cancel()
	r, err := tools.Resolve(ctx, c, conf, logger)
	if err != nil {
		return fmt.Errorf("jump resolution of %s failed: %w", c.Name, err)
	}
	PrintJumps(os.Stdout, r)
	s := r.Stats()
	fmt.Printf("%s: %d jumps, %s resolved, %s unreachable, %s maybe unsound (%d rounds, %d edges added, %d loops, %.3f s)\n",
		formatutil.Bold(c.Name), s.Jumps, formatutil.Green(s.Resolved), formatutil.Faint(s.Unreachable),
		formatutil.Yellow(s.MaybeUnsound), s.Rounds, s.EdgesAdded, s.Loops, s.Duration.Seconds())
	return nil
}

// PrintJumps writes a table of the jumps of r
func PrintJumps(w io.Writer, r *jumps.Resolution) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"PC", "Op", "Pushed", "Class", "Targets"})
	for _, j := range r.Jumps {
		targets := funcutil.Map(j.Targets, func(t uint64) string { return fmt.Sprintf("%#x", t) })
		table.Append([]string{
			fmt.Sprintf("%#x", j.PC),
			j.Op.String(),
			fmt.Sprint(r.Graph.IsPushedJump(j.Node)),
			j.Class.String(),
			strings.Join(targets, " "),
		})
	}
	table.Render()
}
