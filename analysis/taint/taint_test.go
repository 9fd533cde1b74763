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
	"testing"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/fixpoint"
)

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

// run executes the nodes of the straight-line program hex in sequence
func run(t *testing.T, hex string, p Policy) State {
	g := build(t, hex)
	e := NewEngine(g, p, 0)
	s := e.Initial()
	for i := range g.Nodes {
		s = e.Transfer(i, s)
	}
	return s
}

var calldata = NewOpcodePolicy("calldata", []cfg.Opcode{cfg.CALLDATALOAD, cfg.CALLDATACOPY}, nil, nil)

func TestCleanAddition(t *testing.T) {
	// PUSH1 5 PUSH1 3 ADD
	s := run(t, "6005600301", calldata)
	if s.First() != Clean {
		t.Errorf("expected a clean sum, got %v", s)
	}
}

func TestTaintDominatesAddition(t *testing.T) {
	// PUSH1 0 CALLDATALOAD PUSH1 3 ADD
	s := run(t, "600035600301", calldata)
	if s.First() != Taint {
		t.Errorf("expected a tainted sum, got %v", s)
	}
}

func TestSanitizer(t *testing.T) {
	p := NewOpcodePolicy("sanitized", []cfg.Opcode{cfg.CALLDATALOAD}, []cfg.Opcode{cfg.ISZERO}, nil)
	// PUSH1 0 CALLDATALOAD ISZERO
	if s := run(t, "60003515", p); s.First() != Clean {
		t.Errorf("sanitizer should produce a clean value, got %v", s)
	}
}

func TestMemoryTaint(t *testing.T) {
	// PUSH1 0 CALLDATALOAD PUSH1 0 MSTORE PUSH1 0x20 MLOAD
	s := run(t, "600035600052602051", calldata)
	if s.First() != Taint || s.Memory != Taint {
		t.Errorf("expected tainted memory, got %v", s)
	}
	// PUSH1 32 PUSH1 0 PUSH1 0 CALLDATACOPY PUSH1 0 MLOAD
	s = run(t, "60206000600037600051", calldata)
	if s.First() != Taint {
		t.Errorf("expected a tainted load after CALLDATACOPY, got %v", s)
	}
	// clean stores keep a clean memory
	if s := run(t, "602a600052600051", calldata); s.First() != Clean || s.Memory != Clean {
		t.Errorf("expected clean memory, got %v", s)
	}
}

func TestStackUnderflowIsBottom(t *testing.T) {
	// PUSH1 1 ADD
	if s := run(t, "600101", calldata); !s.IsBottom() {
		t.Errorf("expected ⊥, got %v", s)
	}
	// PUSH1 1 SWAP1
	if s := run(t, "600190", calldata); !s.IsBottom() {
		t.Errorf("expected ⊥, got %v", s)
	}
}

func TestDupSwap(t *testing.T) {
	// PUSH1 0 CALLDATALOAD PUSH1 1 DUP2 SWAP1
	s := run(t, "60003560018190", calldata)
	if s.Peek(0) != Clean || s.Peek(1) != Taint || s.Peek(2) != Taint {
		t.Errorf("unexpected stack %v", s)
	}
}

func TestAnalyzeTxOrigin(t *testing.T) {
	// ORIGIN CALLER EQ PUSH1 8 JUMPI STOP JUMPDEST STOP
	g := build(t, "32331460085700fe5b00")
	res, err := Analyze(context.Background(), g, TxOrigin, Options{Fixpoint: fixpoint.Options{}})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	jumpi := g.NodesWithOp(cfg.JUMPI)[0]
	before := res.StateBefore(jumpi).Value()
	if before.Second() != Taint || before.First() != Clean {
		t.Errorf("unexpected state before JUMPI: %v", before)
	}
	sinks := TaintedSinks(res, TxOrigin, true)
	if len(sinks) != 1 || sinks[0] != jumpi {
		t.Errorf("expected the JUMPI to be a tainted sink, got %v", sinks)
	}
	if !res.Visited(len(g.Nodes) - 1) {
		t.Errorf("jump target should be reached")
	}
}
