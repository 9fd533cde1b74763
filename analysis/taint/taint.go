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

package taint

import (
	"context"
	"fmt"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/analysis/fixpoint"
)

// Engine gives the taint semantics of the instructions of a graph for one policy
type Engine struct {
	graph     *cfg.Graph
	policy    Policy
	stackSize int
}

// NewEngine returns the engine for policy over the graph g. A non-positive stack size selects the default one.
func NewEngine(g *cfg.Graph, policy Policy, stackSize int) *Engine {
	if stackSize <= 0 {
		stackSize = config.DefaultStackSize
	}
	return &Engine{graph: g, policy: policy, stackSize: stackSize}
}

func (e *Engine) Policy() Policy { return e.policy }

// Initial returns the state at the entry of the contract: an empty stack and a clean memory
func (e *Engine) Initial() State { return NewState(NewStack(e.stackSize), Clean) }

func (e *Engine) Bottom() State { return BottomState() }

func (e *Engine) IsBottom(s State) bool { return s.IsBottom() }

func (e *Engine) Lub(a, b State) State { return a.Lub(b) }

func (e *Engine) Glb(a, b State) State { return a.Glb(b) }

// Widen is the join: the lattice has finite height
func (e *Engine) Widen(a, b State) State { return a.Lub(b) }

func (e *Engine) Narrow(a, b State) State { return a.Glb(b) }

func (e *Engine) LessOrEqual(a, b State) bool { return a.LessOrEqual(b) }

// Branch is the identity: taint states do not depend on the branch taken
func (e *Engine) Branch(_ cfg.Edge, s State) State { return s }

func depth(op cfg.Opcode) int {
	switch {
	case op.IsDup():
		return op.DupDepth()
	case op.IsSwap():
		return op.SwapDepth() + 1
	}
	return op.Pops()
}

// Transfer returns the state after node i executes from state s
func (e *Engine) Transfer(i int, s State) State {
	if s.IsBottom() || s.IsTop() {
		return s
	}
	op := e.graph.Nodes[i].Op
	if s.Stack.HasBottomUntil(depth(op)) {
		return BottomState()
	}
	st := s.Stack.Clone()
	mem := s.Memory
	switch {
	case op.IsDup():
		st.Push(st.Peek(op.DupDepth() - 1))
		return NewState(st, mem)
	case op.IsSwap():
		n, k := len(st.elts), op.SwapDepth()
		st.elts[n-1], st.elts[n-1-k] = st.elts[n-1-k], st.elts[n-1]
		return NewState(st, mem)
	}
	operands := st.PopN(op.Pops())
	result := Semantics(operands...)
	switch op {
	case cfg.MLOAD:
		result = Semantics(mem)
	case cfg.MSTORE, cfg.MSTORE8:
		mem = Semantics(mem, operands[1])
	case cfg.TLOAD:
		result = Top
	case cfg.CALLDATACOPY, cfg.CODECOPY, cfg.RETURNDATACOPY, cfg.EXTCODECOPY, cfg.MCOPY:
		if e.policy.IsSource(op) {
			mem = Taint
		}
	}
	if e.policy.IsSource(op) {
		result = Taint
	}
	if e.policy.IsSanitizer(op) {
		result = Clean
	}
	for k := 0; k < op.Pushes(); k++ {
		st.Push(result)
	}
	return NewState(st, mem)
}

// Options of a taint analysis
type Options struct {
	StackSize int
	Fixpoint  fixpoint.Options
}

// OptionsFromConfig returns the taint analysis options set by the configuration
func OptionsFromConfig(c *config.Config, logger *config.LogGroup) Options {
	return Options{StackSize: c.StackSize, Fixpoint: fixpoint.OptionsFromConfig(c, logger)}
}

// Analyze computes the taint states of the nodes of g for the policy
func Analyze(ctx context.Context, g *cfg.Graph, policy Policy, opts Options) (*fixpoint.Result[State], error) {
	engine := NewEngine(g, policy, opts.StackSize)
	res, err := fixpoint.Run[State](ctx, g, engine.Initial(), engine, opts.Fixpoint)
	if err != nil {
		return nil, fmt.Errorf("taint analysis %s: %w", policy.Name(), err)
	}
	return res, nil
}
