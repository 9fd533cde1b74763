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
	"testing"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
)

func TestSinkOperands(t *testing.T) {
	s := NewState(StackOf(32, Taint, Clean, Top), Clean)
	for _, tc := range []struct {
		op     cfg.Opcode
		strict bool
		want   bool
	}{
		{cfg.JUMP, true, false},
		{cfg.JUMP, false, true},
		{cfg.JUMPI, true, false},
		{cfg.ADDMOD, true, true},
		{cfg.DELEGATECALL, true, false},
		{cfg.SSTORE, false, true},
	} {
		if got := TaintedOperand(s, tc.op, tc.strict); got != tc.want {
			t.Errorf("TaintedOperand(%v, %v, strict=%v) = %v", s, tc.op, tc.strict, got)
		}
	}
	if TaintedOperand(BottomState(), cfg.JUMP, false) {
		t.Errorf("unreachable sinks are never tainted")
	}
	if !TaintedOperand(TopState(32), cfg.JUMP, false) || TaintedOperand(TopState(32), cfg.JUMP, true) {
		t.Errorf("⊤ operands are tainted only when not strict")
	}
}
