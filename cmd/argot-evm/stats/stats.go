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

// Package stats implements the front-end printing statistics about the control-flow graph of a contract.
package stats

import (
	"fmt"
	"io"
	"os"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/contract"
	"github.com/awslabs/ar-evm-tools/cmd/argot-evm/tools"
	"github.com/awslabs/ar-evm-tools/internal/funcutil"
	"github.com/awslabs/ar-evm-tools/internal/graphutil"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/exp/slices"
)

// Usage of the stats sub-command
const Usage = `Print statistics about the resolved control-flow graph of a contract.

Usage:
  argot-evm stats [options] <contract file>

Examples:
% argot-evm stats -cycles 1000 token.hex
`

// Flags represents the flags for the stats sub-command.
type Flags struct {
	tools.CommonFlags
	cycleLimit int
	top        int
}

// NewFlags returns parsed flags for stats.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("stats")
	cycleLimit := flags.FlagSet.Int("cycles", 10000, "maximum number of elementary cycles to enumerate")
	top := flags.FlagSet.Int("top", 10, "number of most frequent opcodes to print")
	tools.SetUsage(flags.FlagSet, Usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: common, cycleLimit: *cycleLimit, top: *top}, nil
}

// OpcodeCount is the number of occurrences of an opcode
type OpcodeCount struct {
	Op    cfg.Opcode
	Count int
}

// Stats are the statistics of a graph
type Stats struct {
	Instructions    int
	BasicBlocks     int
	Edges           int
	Jumpdests       int
	Jumps           int
	PushedJumps     int
	WideningPoints  int
	Loops           int
	Cycles          int
	CyclesTruncated bool
	Selectors       int
	Opcodes         []OpcodeCount
}

// Compute returns the statistics of g. At most cycleLimit elementary cycles are enumerated.
func Compute(g *cfg.Graph, cycleLimit int) Stats {
	counts := map[cfg.Opcode]int{}
	for _, n := range g.Nodes {
		counts[n.Op]++
	}
	ops := make([]OpcodeCount, 0, len(counts))
	for _, op := range funcutil.SortedKeys(counts) {
		ops = append(ops, OpcodeCount{Op: op, Count: counts[op]})
	}
	slices.SortStableFunc(ops, func(a, b OpcodeCount) bool { return a.Count > b.Count })

	nodes := make([]int, len(g.Nodes))
	for i := range nodes {
		nodes[i] = i
	}
	ig := graphutil.NewIntGraph(len(g.Nodes), g.Successors)
	cycles := graphutil.FindAllElementaryCycles(ig, cycleLimit)
	return Stats{
		Instructions:    len(g.Nodes),
		BasicBlocks:     len(g.BasicBlocks()),
		Edges:           g.NumEdges(),
		Jumpdests:       g.Jumpdests().Len(),
		Jumps:           len(g.Jumps()),
		PushedJumps:     len(g.PushedJumps()),
		WideningPoints:  len(graphutil.WideningPoints(nodes, []int{g.Entry}, g.Successors)),
		Loops:           len(graphutil.Loops(ig)),
		Cycles:          len(cycles),
		CyclesTruncated: cycleLimit > 0 && len(cycles) >= cycleLimit,
		Selectors:       len(contract.FindSelectors(g)),
		Opcodes:         ops,
	}
}

// Run prints the statistics of the resolved graph of the contract
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
	ctx, cancel := tools.Context(conf)
	defer cancel()
	r, err := tools.Resolve(ctx, c, conf, logger)
	if err != nil {
		return fmt.Errorf("jump resolution of %s failed: %w", c.Name, err)
	}
	Print(os.Stdout, Compute(r.Graph, flags.cycleLimit), flags.top)
	return nil
}

// Print writes s as two tables: the graph counts and the top most frequent opcodes
func Print(w io.Writer, s Stats, top int) {
	cycles := fmt.Sprint(s.Cycles)
	if s.CyclesTruncated {
		cycles += "+"
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.AppendBulk([][]string{
		{"instructions", fmt.Sprint(s.Instructions)},
		{"basic blocks", fmt.Sprint(s.BasicBlocks)},
		{"edges", fmt.Sprint(s.Edges)},
		{"jumpdests", fmt.Sprint(s.Jumpdests)},
		{"jumps", fmt.Sprint(s.Jumps)},
		{"pushed jumps", fmt.Sprint(s.PushedJumps)},
		{"widening points", fmt.Sprint(s.WideningPoints)},
		{"loops", fmt.Sprint(s.Loops)},
		{"elementary cycles", cycles},
		{"selectors", fmt.Sprint(s.Selectors)},
	})
	table.Render()

	ops := tablewriter.NewWriter(w)
	ops.SetHeader([]string{"Opcode", "Count"})
	for i, oc := range s.Opcodes {
		if i >= top {
			break
		}
		ops.Append([]string{oc.Op.String(), fmt.Sprint(oc.Count)})
	}
	ops.Render()
}
