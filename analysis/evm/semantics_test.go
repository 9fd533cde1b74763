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

package evm

import (
	"testing"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/lattice"
	"github.com/holiman/uint256"
)

func newSemantics(t *testing.T, hex string, opts Options) *Semantics {
	code, err := cfg.ParseHex(hex)
	if err != nil {
		t.Fatalf("invalid bytecode %s: %v", hex, err)
	}
	g, err := cfg.Build(code)
	if err != nil {
		t.Fatalf("could not build graph of %s: %v", hex, err)
	}
	return NewSemantics(g, opts)
}

// runTo executes the first n nodes of the graph in sequence, from the initial state
func runTo(sem *Semantics, n int) State {
	st := sem.Initial()
	for i := 0; i < n; i++ {
		st = sem.Transfer(i, st)
	}
	return st
}

func topOf(t *testing.T, st State) lattice.Cell {
	if st.IsBottom() || st.Stacks.Len() != 1 {
		t.Fatalf("expected a single stack in %v", st)
	}
	return st.Stacks.Stacks()[0].Top()
}

func TestTransferArithmetic(t *testing.T) {
	for _, tc := range []struct {
		name string
		code string
		want uint64
	}{
		{"add", "6003600501", 8},
		{"sub", "6003600503", 2},
		{"div", "6002600804", 4},
		{"div-by-zero", "6000600804", 0},
		{"shl", "600160041b", 16},
		{"shr", "601060041c", 1},
		{"lt", "6005600310", 1},
		{"eq", "6005600314", 0},
		{"iszero", "600015", 1},
		{"addmod", "60056004600308", 2},
		{"byte", "60ff601f1a", 0xff},
		{"pc", "600058", 2},
		{"push0", "5f", 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sem := newSemantics(t, tc.code, DefaultOptions())
			st := runTo(sem, len(sem.Graph().Nodes))
			if got := topOf(t, st); !got.Equal(lattice.ConstUint64(tc.want)) {
				t.Errorf("expected %d, got %v", tc.want, got)
			}
		})
	}
}

func TestTransferUnknownOperands(t *testing.T) {
	// CALLVALUE ISZERO: comparison of an unknown word
	sem := newSemantics(t, "3415", DefaultOptions())
	if got := topOf(t, runTo(sem, 2)); !got.IsTopNotJumpdest() {
		t.Errorf("expected ⊤njd, got %v", got)
	}
	// ADDRESS with a known contract address
	opts := DefaultOptions()
	opts.Address = lattice.ConstUint64(0xc0ffee)
	sem = newSemantics(t, "30", opts)
	if got := topOf(t, runTo(sem, 1)); !got.Equal(opts.Address) {
		t.Errorf("expected the contract address, got %v", got)
	}
}

func TestTransferDupSwap(t *testing.T) {
	sem := newSemantics(t, "600160028090", DefaultOptions())
	st := runTo(sem, 3)
	s := st.Stacks.Stacks()[0]
	if !s.Top().Equal(lattice.ConstUint64(2)) || !s.Second().Equal(lattice.ConstUint64(2)) {
		t.Errorf("unexpected stack after DUP1: %v", s)
	}
	st = sem.Transfer(3, st)
	s = st.Stacks.Stacks()[0]
	if !s.Top().Equal(lattice.ConstUint64(2)) || !s.Peek(2).Equal(lattice.ConstUint64(1)) {
		t.Errorf("unexpected stack after SWAP1: %v", s)
	}
	// DUP2 on a stack holding one element
	sem = newSemantics(t, "600181", DefaultOptions())
	if st := runTo(sem, 2); !st.IsBottom() {
		t.Errorf("DUP2 on a one element stack should be unreachable, got %v", st)
	}
}

func TestTransferPopsToEmpty(t *testing.T) {
	sem := newSemantics(t, "600160025050500000", DefaultOptions())
	st := runTo(sem, 4)
	if st.IsBottom() {
		t.Fatalf("two pops of two pushes should leave an empty stack")
	}
	if !st.Stacks.Stacks()[0].IsEmpty() {
		t.Errorf("expected an empty stack, got %v", st)
	}
	if after := sem.Transfer(4, st); !after.IsBottom() {
		t.Errorf("a third pop should be unreachable, got %v", after)
	}
	// STOP right after the two pops
	sem = newSemantics(t, "60016002505000", DefaultOptions())
	if st := runTo(sem, 5); !st.IsBottom() {
		t.Errorf("halting on an empty stack should yield ⊥, got %v", st)
	}
}

func TestTransferMemory(t *testing.T) {
	sem := newSemantics(t, "602a600052600051", DefaultOptions())
	st := runTo(sem, 3)
	if !st.MemWords.Equal(lattice.One) {
		t.Errorf("expected one active word, got %v", st.MemWords)
	}
	if got := topOf(t, sem.Transfer(4, sem.Transfer(3, st))); !got.Equal(lattice.ConstUint64(0x2a)) {
		t.Errorf("expected 0x2a, got %v", got)
	}
	// never written memory reads as zero
	sem = newSemantics(t, "600051", DefaultOptions())
	if got := topOf(t, runTo(sem, 2)); !got.Equal(lattice.Zero) {
		t.Errorf("expected 0, got %v", got)
	}
	// a byte write invalidates the word
	sem = newSemantics(t, "602a6000526001600153600051", DefaultOptions())
	if got := topOf(t, runTo(sem, 8)); !got.IsTop() {
		t.Errorf("expected ⊤, got %v", got)
	}
	// a copy of unknown size clobbers memory
	sem = newSemantics(t, "602a600052366000600037600051", DefaultOptions())
	if got := topOf(t, runTo(sem, 9)); !got.IsTop() {
		t.Errorf("expected ⊤ after CALLDATACOPY, got %v", got)
	}
}

func TestTransferStorage(t *testing.T) {
	opts := DefaultOptions()
	opts.Source = NewSnapshotSource(map[uint256.Int]uint256.Int{*uint256.NewInt(0): *uint256.NewInt(42)})
	sem := newSemantics(t, "600054", opts)
	if got := topOf(t, runTo(sem, 2)); !got.Equal(lattice.ConstUint64(42)) {
		t.Errorf("expected the initial value, got %v", got)
	}
	sem = newSemantics(t, "6005600055600054", opts)
	if got := topOf(t, runTo(sem, 5)); !got.Equal(lattice.ConstUint64(5)) {
		t.Errorf("expected the stored value, got %v", got)
	}
	// CREATE may reenter and modify the storage
	sem = newSemantics(t, "600060006000f050600054", opts)
	if got := topOf(t, runTo(sem, 7)); !got.IsTop() {
		t.Errorf("expected ⊤ after CREATE, got %v", got)
	}
}

func TestTransferJumpFiltersStacks(t *testing.T) {
	// PUSH1 3 JUMP: 3 is not a jumpdest
	sem := newSemantics(t, "600356", DefaultOptions())
	if st := runTo(sem, 2); !st.IsBottom() {
		t.Errorf("jump to a non jumpdest should be unreachable, got %v", st)
	}
	sem = newSemantics(t, "6003565b00", DefaultOptions())
	if st := runTo(sem, 2); st.IsBottom() {
		t.Errorf("jump to a jumpdest should be reachable")
	}
}

func TestBranchJumpi(t *testing.T) {
	for _, tc := range []struct {
		name     string
		code     string
		taken    bool
		notTaken bool
	}{
		{"false", "600060075700fe5b00", false, true},
		{"true", "600160075700fe5b00", true, false},
		{"unknown", "3460065700fe5b00", true, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sem := newSemantics(t, tc.code, DefaultOptions())
			g := sem.Graph()
			jumpi := g.NodesWithOp(cfg.JUMPI)[0]
			st := runTo(sem, jumpi)
			after := sem.Transfer(jumpi, st)
			kinds := map[cfg.EdgeKind]bool{}
			for _, e := range g.Out(jumpi) {
				kinds[e.Kind] = true
				b := sem.Branch(e, after)
				want := tc.notTaken
				if e.Kind == cfg.True {
					want = tc.taken
				}
				if b.IsBottom() == want {
					t.Errorf("unexpected state along %v edge: %v", e.Kind, b)
				}
				if !b.IsBottom() && !b.Stacks.Stacks()[0].IsEmpty() {
					t.Errorf("jump operands should be popped along %v edge, got %v", e.Kind, b)
				}
			}
			if !kinds[cfg.True] || !kinds[cfg.False] {
				t.Errorf("expected both edges out of the JUMPI, got %v", g.Out(jumpi))
			}
		})
	}
}

func TestTopStateIsAbsorbing(t *testing.T) {
	sem := newSemantics(t, "6001", DefaultOptions())
	st := TopState(sem.Options().StackSetBound)
	if after := sem.Transfer(0, st); !after.IsTop() {
		t.Errorf("expected ⊤ after transfer of ⊤, got %v", after)
	}
	if after := sem.Transfer(0, BottomState()); !after.IsBottom() {
		t.Errorf("expected ⊥ after transfer of ⊥, got %v", after)
	}
}
