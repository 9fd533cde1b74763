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

package fixpoint

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/analysis/evm"
	"github.com/awslabs/ar-evm-tools/analysis/lattice"
)

// counter is a domain where states count the PUSH instructions executed so far. Its ascending chains are
// infinite on loops, so termination depends on widening.
type counter struct {
	g *cfg.Graph
}

const (
	noCount  = -1
	anyCount = math.MaxInt32
)

func (c counter) Bottom() int               { return noCount }
func (c counter) IsBottom(s int) bool       { return s == noCount }
func (c counter) LessOrEqual(a, b int) bool { return a <= b }

func (c counter) Lub(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (c counter) Glb(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (c counter) Widen(a, b int) int {
	if b > a {
		return anyCount
	}
	return a
}

func (c counter) Narrow(a, b int) int {
	if a == anyCount {
		return b
	}
	return a
}

func (c counter) Transfer(i int, s int) int {
	if s == noCount || s == anyCount || !c.g.Nodes[i].Op.IsPush() {
		return s
	}
	return s + 1
}

func (c counter) Branch(_ cfg.Edge, s int) int { return s }

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

// infiniteLoop is JUMPDEST PUSH1 0 JUMP
const infiniteLoop = "5b600056"

// countingLoop increments a counter from 0 while it is below 10, then stops
const countingLoop = "60005b60010180600a1160025700"

func TestWideningTerminates(t *testing.T) {
	g := build(t, infiniteLoop)
	for _, threshold := range []int{0, 1, 5} {
		res, err := Run[int](context.Background(), g, 0, counter{g}, Options{WideningThreshold: threshold})
		if err != nil {
			t.Fatalf("threshold %d: unexpected error %v", threshold, err)
		}
		if got := res.StateBefore(0).Value(); got != anyCount {
			t.Errorf("threshold %d: expected the loop head to be widened, got %d", threshold, got)
		}
		if res.Iterations > 3*(threshold+3) {
			t.Errorf("threshold %d: too many iterations %d", threshold, res.Iterations)
		}
	}
}

func TestIterationLimit(t *testing.T) {
	g := build(t, infiniteLoop)
	_, err := Run[int](context.Background(), g, 0, counter{g}, Options{WideningThreshold: -1, MaxIterations: 50})
	if !errors.Is(err, ErrIterationLimit) {
		t.Errorf("expected the iteration limit, got %v", err)
	}
}

func TestCancellation(t *testing.T) {
	g := build(t, infiniteLoop)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run[int](ctx, g, 0, counter{g}, Options{WideningThreshold: -1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestUnreachableNodesHaveNoState(t *testing.T) {
	// PUSH1 0 STOP PUSH1 1
	g := build(t, "6000006001")
	res, err := Run[int](context.Background(), g, 0, counter{g}, Options{})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if res.StateAfter(1).IsNone() || res.StateAfter(1).Value() != 1 {
		t.Errorf("unexpected state after STOP: %v", res.StateAfter(1))
	}
	if res.StateBefore(2).IsSome() || res.Visited(2) {
		t.Errorf("node after STOP should not be visited")
	}
	if res.Visited(-1) || res.Visited(10) {
		t.Errorf("out of range nodes are never visited")
	}
	if res.NumVisited() != 2 {
		t.Errorf("expected 2 visited nodes, got %d", res.NumVisited())
	}
}

func runEVM(t *testing.T, g *cfg.Graph, opts Options) *Result[evm.State] {
	sem := evm.NewSemantics(g, evm.DefaultOptions())
	res, err := Run[evm.State](context.Background(), g, sem.Initial(), sem, opts)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	return res
}

func TestEVMCountingLoop(t *testing.T) {
	g := build(t, countingLoop)
	stop := g.NodesWithOp(cfg.STOP)
	if len(stop) != 1 {
		t.Fatalf("expected one STOP in %v", g.Nodes)
	}
	for _, threshold := range []int{-1, 0, 3} {
		res := runEVM(t, g, Options{WideningThreshold: threshold})
		if !res.Visited(stop[0]) {
			t.Errorf("threshold %d: loop exit should be reachable", threshold)
		}
		head := g.NodesWithOp(cfg.JUMPDEST)[0]
		st := res.StateBefore(head).Value()
		if st.IsTop() {
			// without widening the stack set exceeds its bound
			continue
		}
		top := st.Stacks.Stacks()
		if len(top) == 0 {
			t.Fatalf("threshold %d: no stack at the loop head", threshold)
		}
		if !lattice.ConstUint64(0).LessOrEqual(top[0].Top()) {
			t.Errorf("threshold %d: the initial counter should be in %v", threshold, top[0].Top())
		}
	}
}

func TestDescendingRefines(t *testing.T) {
	g := build(t, countingLoop)
	asc := runEVM(t, g, Options{WideningThreshold: 0})
	for _, phase := range []string{config.DescendingGLB, config.DescendingNarrowing} {
		desc := runEVM(t, g, Options{WideningThreshold: 0, Descending: phase, DescendingThreshold: 3})
		for i := range g.Nodes {
			if asc.Visited(i) != desc.Visited(i) {
				if desc.Visited(i) {
					t.Errorf("%s: node %d visited only in the descending phase", phase, i)
				}
				continue
			}
			if !asc.Visited(i) {
				continue
			}
			a, d := asc.StateBefore(i).Value(), desc.StateBefore(i).Value()
			if !d.LessOrEqual(a) {
				t.Errorf("%s: state before node %d is not refined:\n%v\nvs\n%v", phase, i, d, a)
			}
		}
	}
}
