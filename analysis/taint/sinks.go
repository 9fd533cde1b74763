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
	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/fixpoint"
)

// SinkOperands returns the positions, from the top of the stack, of the operands of op that must not be
// tainted when op is a sink
func SinkOperands(op cfg.Opcode) []int {
	switch op {
	case cfg.JUMP:
		return []int{0}
	case cfg.JUMPI, cfg.SSTORE, cfg.SHA3, cfg.RETURN, cfg.REVERT:
		return []int{0, 1}
	case cfg.DELEGATECALL, cfg.CALL, cfg.CALLCODE, cfg.STATICCALL:
		// the address of the callee
		return []int{1}
	}
	res := make([]int, op.Pops())
	for i := range res {
		res[i] = i
	}
	return res
}

// TaintedOperand returns true when one of the sink operands of op may be tainted in s. When strict, only Taint
// counts; otherwise Top counts too.
func TaintedOperand(s State, op cfg.Opcode, strict bool) bool {
	if s.IsBottom() {
		return false
	}
	for _, i := range SinkOperands(op) {
		e := s.Peek(i)
		if e.IsTaint() || (!strict && e.IsTop()) {
			return true
		}
	}
	return false
}

// TaintedSinks returns the nodes executing a sink of the policy with a tainted operand in the state before them
func TaintedSinks(res *fixpoint.Result[State], p Policy, strict bool) []int {
	var nodes []int
	for i, n := range res.Graph.Nodes {
		if !p.IsSink(n.Op) {
			continue
		}
		if s, ok := res.StateBefore(i).Get(); ok && TaintedOperand(s, n.Op, strict) {
			nodes = append(nodes, i)
		}
	}
	return nodes
}
