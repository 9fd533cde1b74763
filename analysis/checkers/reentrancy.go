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

package checkers

import (
	"context"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/analysis/evm"
	"github.com/awslabs/ar-evm-tools/analysis/jumps"
	"github.com/awslabs/ar-evm-tools/analysis/lattice"
	"github.com/awslabs/ar-evm-tools/internal/funcutil"
)

// ReentrancyChecker reports the storage writes that follow a CALL to an address that is not known. The warning
// is placed on the last SSTORE of the straight-line code containing the write.
type ReentrancyChecker struct{}

func (c *ReentrancyChecker) Name() string { return config.CheckerReentrancy }

func (c *ReentrancyChecker) Check(ctx context.Context, in *Input) ([]Warning, error) {
	stores := in.Graph.NodesWithOp(cfg.SSTORE)
	if len(stores) == 0 {
		return nil, nil
	}
	var warnings []Warning
	for _, call := range in.Graph.NodesWithOp(cfg.CALL) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st, ok := in.Numeric.StateBefore(call).Get()
		if !ok || st.IsBottom() || !unknownCallee(st) {
			continue
		}
		for _, s := range stores {
			if !in.Graph.ReachableFrom(call, s) {
				continue
			}
			last := lastStore(in.Graph, stores, s)
			warnings = append(warnings, in.warning(c.Name(), High, last,
				"storage written after the external call at pc %#x", in.Graph.Nodes[call].PC))
		}
	}
	return warnings, nil
}

// unknownCallee returns true when the address operand of the CALL may be any address in st
func unknownCallee(st evm.State) bool {
	return st.IsTop() || funcutil.Exists(st.Stacks.Stacks(), func(stack lattice.Stack) bool {
		addr := stack.Second()
		return addr.IsTop() || addr.IsTopNotJumpdest()
	})
}

// lastStore returns the SSTORE with the highest program counter sequentially reachable from s
func lastStore(g *cfg.Graph, stores []int, s int) int {
	last := s
	for _, o := range stores {
		if g.Nodes[o].PC > g.Nodes[last].PC && g.ReachableFromSequentially(s, o) {
			last = o
		}
	}
	return last
}

// JumpsChecker reports the jumps whose targets could not be resolved. The control-flow graph may miss edges
// leaving them, so other checkers may miss warnings in the code they reach.
type JumpsChecker struct{}

func (c *JumpsChecker) Name() string { return config.CheckerJumps }

func (c *JumpsChecker) Check(_ context.Context, in *Input) ([]Warning, error) {
	var warnings []Warning
	for _, j := range in.Jumps {
		if j.Class == jumps.MaybeUnsound {
			warnings = append(warnings, in.warning(c.Name(), Info, j.Node, "target of %s is unknown", j.Op))
		}
	}
	return warnings, nil
}
