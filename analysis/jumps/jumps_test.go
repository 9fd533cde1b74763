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

package jumps

import (
	"context"
	"io"
	"testing"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/analysis/evm"
)

var logger = config.NewWriterLogGroup(config.ErrLevel, io.Discard)

func build(t *testing.T, hex string) *cfg.Graph {
	code, err := cfg.ParseHex(hex)
	if err != nil {
		t.Fatalf("invalid bytecode: %v", err)
	}
	g, err := cfg.Build(code)
	if err != nil {
		t.Fatalf("could not build graph: %v", err)
	}
	return g
}

func resolve(t *testing.T, g *cfg.Graph, opts Options) *Resolution {
	r, err := Resolve(context.Background(), g, opts, logger)
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}
	if !r.Saturated() {
		t.Errorf("resolution should be saturated")
	}
	return r
}

func jumpAt(t *testing.T, r *Resolution, pc uint64) Jump {
	for _, j := range r.Jumps {
		if j.PC == pc {
			return j
		}
	}
	t.Fatalf("no jump at pc %d", pc)
	return Jump{}
}

func TestResolveIndirectJump(t *testing.T) {
	// PUSH1 6 DUP1 POP JUMP INVALID JUMPDEST STOP
	g := build(t, "6006805056fe5b00")
	r := resolve(t, g, Options{EVM: evm.DefaultOptions()})
	j := jumpAt(t, r, 4)
	if j.Class != Resolved || len(j.Targets) != 1 || j.Targets[0] != 6 {
		t.Errorf("unexpected jump %+v", j)
	}
	if r.EdgesAdded != 1 || r.Rounds != 2 {
		t.Errorf("expected one edge in two rounds, got %d edges in %d rounds", r.EdgesAdded, r.Rounds)
	}
	if g.NumEdges() == r.Graph.NumEdges() {
		t.Errorf("the input graph should not be modified")
	}
	stop := len(r.Graph.Nodes) - 1
	if !r.Result.Visited(stop) {
		t.Errorf("the jump target should be reachable after resolution")
	}
	if got := r.Targets()[4]; len(got) != 1 {
		t.Errorf("unexpected targets %v", r.Targets())
	}
}

func TestResolveChainedJumps(t *testing.T) {
	// the second indirect jump is only reachable once the first one is resolved
	g := build(t, "6006805056fe5b600d805056fe5b00")
	r := resolve(t, g, Options{EVM: evm.DefaultOptions()})
	if r.Rounds != 3 || r.EdgesAdded != 2 {
		t.Errorf("expected 2 edges in 3 rounds, got %d edges in %d rounds", r.EdgesAdded, r.Rounds)
	}
	for _, pc := range []uint64{4, 11} {
		if j := jumpAt(t, r, pc); j.Class != Resolved {
			t.Errorf("jump at %d should be resolved, got %v", pc, j.Class)
		}
	}
	// resolving again the resolved graph adds nothing
	again := resolve(t, r.Graph, Options{EVM: evm.DefaultOptions()})
	if again.EdgesAdded != 0 || again.Rounds != 1 {
		t.Errorf("resolution of a saturated graph added %d edges", again.EdgesAdded)
	}
	if again.Graph.ID() != r.Graph.ID() {
		t.Errorf("the graph changed")
	}
}

func TestUnreachableJump(t *testing.T) {
	// STOP JUMPDEST CALLVALUE JUMP
	g := build(t, "005b3456")
	r := resolve(t, g, Options{EVM: evm.DefaultOptions()})
	j := jumpAt(t, r, 3)
	if j.Class != Unreachable {
		t.Errorf("expected an unreachable jump, got %v", j.Class)
	}
	if r.EdgesAdded != 0 || r.Graph.NumEdges() != g.NumEdges() {
		t.Errorf("no edge should be added")
	}
	s := r.Stats()
	if s.Unreachable != 1 || s.Jumps != 1 || s.Resolved != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.Loops != 0 {
		t.Errorf("no loop expected, got %d", s.Loops)
	}
}

func TestResolvedLoop(t *testing.T) {
	// JUMPDEST PUSH1 0 JUMP
	g := build(t, "5b600056")
	r := resolve(t, g, Options{EVM: evm.DefaultOptions()})
	if j := jumpAt(t, r, 3); j.Class != Resolved || len(j.Targets) != 1 || j.Targets[0] != 0 {
		t.Errorf("unexpected jump %+v", j)
	}
	if s := r.Stats(); s.Loops != 1 {
		t.Errorf("expected one loop, got %+v", s)
	}
}

func TestStackSetOverflowIsUnsound(t *testing.T) {
	code := "34600d573460135760016019565b60026019565b60036019565b56"
	g := build(t, code)
	// with room for the three stacks, the targets 1, 2 and 3 are not jumpdests
	r := resolve(t, g, Options{EVM: evm.DefaultOptions()})
	if j := jumpAt(t, r, 26); j.Class != Resolved || len(j.Targets) != 0 {
		t.Errorf("expected a resolved jump without target, got %+v", j)
	}
	opts := evm.DefaultOptions()
	opts.StackSetBound = 2
	r = resolve(t, g, Options{EVM: opts})
	head, err := r.Graph.NodeAt(25)
	if err != nil {
		t.Fatalf("no node at 25: %v", err)
	}
	if st := r.Result.StateBefore(head).Value(); !st.IsTop() {
		t.Errorf("expected the stack set to collapse, got %v", st)
	}
	if j := jumpAt(t, r, 26); j.Class != MaybeUnsound {
		t.Errorf("expected a maybe unsound jump, got %+v", j)
	}
	if r.Stats().MaybeUnsound != 1 {
		t.Errorf("unexpected stats %+v", r.Stats())
	}
}

func TestLinkUnsoundJumps(t *testing.T) {
	// PUSH1 0 SLOAD JUMP JUMPDEST STOP JUMPDEST STOP
	g := build(t, "600054565b005b00")
	jump := g.NodesWithOp(cfg.JUMP)[0]
	r := resolve(t, g, Options{EVM: evm.DefaultOptions()})
	if j := jumpAt(t, r, 3); j.Class != MaybeUnsound {
		t.Errorf("expected a maybe unsound jump, got %v", j.Class)
	}
	if len(r.Graph.Out(jump)) != 0 {
		t.Errorf("unsound jumps are not linked by default")
	}
	r = resolve(t, g, Options{EVM: evm.DefaultOptions(), LinkUnsoundJumps: true})
	if len(r.Graph.Out(jump)) != 2 || r.EdgesAdded != 2 {
		t.Errorf("expected the jump to be linked to both jumpdests, got %v", r.Graph.Out(jump))
	}
	for _, pc := range []uint64{5, 7} {
		i, _ := r.Graph.NodeAt(pc)
		if !r.Result.Visited(i) {
			t.Errorf("node at %d should be reachable", pc)
		}
	}
}

func TestJumpToNonJumpdestData(t *testing.T) {
	// CALLDATASIZE JUMP JUMPDEST STOP: the target is known not to be a jumpdest
	g := build(t, "36565b00")
	r := resolve(t, g, Options{EVM: evm.DefaultOptions(), LinkUnsoundJumps: true})
	if j := jumpAt(t, r, 1); j.Class != Resolved || len(j.Targets) != 0 {
		t.Errorf("expected a resolved jump without targets, got %+v", j)
	}
	if r.EdgesAdded != 0 {
		t.Errorf("no edge should be added")
	}
}

func TestUnresolved(t *testing.T) {
	g := build(t, "6006805056fe5b00")
	jumps := Unresolved(g)
	if len(jumps) != 1 || jumps[0].Class != MaybeUnsound || jumps[0].PC != 4 {
		t.Errorf("unexpected jumps %+v", jumps)
	}
}
