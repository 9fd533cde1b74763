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
	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/lattice"
	"github.com/holiman/uint256"
)

// maxTrackedOffset bounds the memory offsets that are tracked precisely
const maxTrackedOffset = 1 << 32

func shiftAmount(x *uint256.Int) uint {
	if x.LtUint64(256) {
		return uint(x.Uint64())
	}
	return 256
}

// binaryOps maps opcodes to their concrete semantics. x is the top of the stack, y the element below it.
var binaryOps = map[cfg.Opcode]func(z, x, y *uint256.Int){
	cfg.ADD:        func(z, x, y *uint256.Int) { z.Add(x, y) },
	cfg.MUL:        func(z, x, y *uint256.Int) { z.Mul(x, y) },
	cfg.SUB:        func(z, x, y *uint256.Int) { z.Sub(x, y) },
	cfg.DIV:        func(z, x, y *uint256.Int) { z.Div(x, y) },
	cfg.SDIV:       func(z, x, y *uint256.Int) { z.SDiv(x, y) },
	cfg.MOD:        func(z, x, y *uint256.Int) { z.Mod(x, y) },
	cfg.SMOD:       func(z, x, y *uint256.Int) { z.SMod(x, y) },
	cfg.EXP:        func(z, x, y *uint256.Int) { z.Exp(x, y) },
	cfg.SIGNEXTEND: func(z, x, y *uint256.Int) { z.ExtendSign(y, x) },
	cfg.AND:        func(z, x, y *uint256.Int) { z.And(x, y) },
	cfg.OR:         func(z, x, y *uint256.Int) { z.Or(x, y) },
	cfg.XOR:        func(z, x, y *uint256.Int) { z.Xor(x, y) },
	cfg.BYTE:       func(z, x, y *uint256.Int) { z.Set(y).Byte(x) },
	cfg.SHL:        func(z, x, y *uint256.Int) { z.Lsh(y, shiftAmount(x)) },
	cfg.SHR:        func(z, x, y *uint256.Int) { z.Rsh(y, shiftAmount(x)) },
	cfg.SAR:        func(z, x, y *uint256.Int) { z.SRsh(y, shiftAmount(x)) },
}

var compareOps = map[cfg.Opcode]func(x, y *uint256.Int) bool{
	cfg.LT:  func(x, y *uint256.Int) bool { return x.Lt(y) },
	cfg.GT:  func(x, y *uint256.Int) bool { return x.Gt(y) },
	cfg.SLT: func(x, y *uint256.Int) bool { return x.Slt(y) },
	cfg.SGT: func(x, y *uint256.Int) bool { return x.Sgt(y) },
	cfg.EQ:  func(x, y *uint256.Int) bool { return x.Eq(y) },
}

var ternaryOps = map[cfg.Opcode]func(z, x, y, m *uint256.Int){
	cfg.ADDMOD: func(z, x, y, m *uint256.Int) { z.AddMod(x, y, m) },
	cfg.MULMOD: func(z, x, y, m *uint256.Int) { z.MulMod(x, y, m) },
}

// Semantics gives the abstract semantics of the instructions of one control-flow graph
type Semantics struct {
	graph *cfg.Graph
	opts  Options
}

// NewSemantics returns the semantics of the instructions of g
func NewSemantics(g *cfg.Graph, opts Options) *Semantics {
	return &Semantics{graph: g, opts: opts.withDefaults()}
}

// Graph returns the control-flow graph interpreted by the semantics
func (sem *Semantics) Graph() *cfg.Graph { return sem.graph }

// Options returns the options of the semantics
func (sem *Semantics) Options() Options { return sem.opts }

// Initial returns the state at the entry of the contract: an empty stack, memory never written
func (sem *Semantics) Initial() State {
	stacks := lattice.NewStackSet(sem.opts.StackSetBound, lattice.NewStack(sem.opts.StackSize))
	return NewState(stacks, Memory{}, Storage{}, lattice.Zero)
}

func (sem *Semantics) Bottom() State { return BottomState() }

func (sem *Semantics) IsBottom(s State) bool { return s.IsBottom() }

func (sem *Semantics) Lub(a, b State) State { return a.Lub(b) }

func (sem *Semantics) Glb(a, b State) State { return a.Glb(b) }

func (sem *Semantics) Widen(a, b State) State { return a.Widen(b) }

func (sem *Semantics) Narrow(a, b State) State { return a.Narrow(b) }

func (sem *Semantics) LessOrEqual(a, b State) bool { return a.LessOrEqual(b) }

// mapStacks applies f to a clone of every stack holding at least depth cells. Other stacks, and stacks for
// which f returns false, are dropped. The result is Bottom when no stack remains.
func (s State) mapStacks(depth int, f func(st *lattice.Stack) bool) State {
	return s.withStacks(s.Stacks.Map(func(st *lattice.Stack) bool {
		return !st.HasBottomUntil(depth) && f(st)
	}))
}

func (s State) filterStacks(depth int, keep func(st lattice.Stack) bool) State {
	return s.withStacks(s.Stacks.Filter(func(st lattice.Stack) bool {
		return !st.HasBottomUntil(depth) && keep(st)
	}))
}

func (s State) push(c lattice.Cell) State {
	return s.mapStacks(0, func(st *lattice.Stack) bool {
		st.Push(c)
		return true
	})
}

func (s State) popPush(pops, pushes int, c lattice.Cell) State {
	return s.mapStacks(pops, func(st *lattice.Stack) bool {
		st.PopN(pops)
		for i := 0; i < pushes; i++ {
			st.Push(c)
		}
		return true
	})
}

// Transfer returns the state after the execution of node i from state st
func (sem *Semantics) Transfer(i int, st State) State {
	if st.IsBottom() {
		return st
	}
	if st.IsTop() {
		return TopState(sem.opts.StackSetBound)
	}
	n := sem.graph.Nodes[i]
	op := n.Op
	switch {
	case op.IsPush():
		return st.push(lattice.Const(n.Immediate))
	case op.IsDup():
		k := op.DupDepth()
		return st.mapStacks(k, func(s *lattice.Stack) bool { return s.Dup(k) })
	case op.IsSwap():
		k := op.SwapDepth()
		return st.mapStacks(k+1, func(s *lattice.Stack) bool { return s.Swap(k) })
	case op.IsTerminal():
		return terminal(st, op.Pops())
	}
	if f, ok := binaryOps[op]; ok {
		return st.mapStacks(2, func(s *lattice.Stack) bool {
			x, y := s.Pop(), s.Pop()
			s.Push(lattice.Binary(x, y, f))
			return true
		})
	}
	if f, ok := compareOps[op]; ok {
		return st.mapStacks(2, func(s *lattice.Stack) bool {
			x, y := s.Pop(), s.Pop()
			s.Push(lattice.Compare(x, y, f))
			return true
		})
	}
	if f, ok := ternaryOps[op]; ok {
		return st.mapStacks(3, func(s *lattice.Stack) bool {
			x, y, m := s.Pop(), s.Pop(), s.Pop()
			s.Push(lattice.Ternary(x, y, m, f))
			return true
		})
	}
	switch op {
	case cfg.ISZERO:
		return st.mapStacks(1, func(s *lattice.Stack) bool {
			s.Push(lattice.Test(s.Pop(), func(x *uint256.Int) bool { return x.IsZero() }))
			return true
		})
	case cfg.NOT:
		return st.mapStacks(1, func(s *lattice.Stack) bool {
			s.Push(lattice.Unary(s.Pop(), func(z, x *uint256.Int) { z.Not(x) }))
			return true
		})
	case cfg.ADDRESS:
		return st.push(sem.opts.Address)
	case cfg.PC:
		return st.push(lattice.ConstUint64(n.PC))
	case cfg.MLOAD:
		return st.mapStacks(1, func(s *lattice.Stack) bool {
			s.Push(loadMemory(st, s.Pop()))
			return true
		})
	case cfg.MSTORE:
		return sem.writeMemory(st, wordSize)
	case cfg.MSTORE8:
		return sem.writeMemory(st, 1)
	case cfg.CALLDATACOPY, cfg.CODECOPY, cfg.RETURNDATACOPY, cfg.MCOPY, cfg.EXTCODECOPY:
		return copyToMemory(st, op.Pops())
	case cfg.SLOAD:
		return st.mapStacks(1, func(s *lattice.Stack) bool {
			s.Push(sem.loadStorage(st.Storage, s.Pop()))
			return true
		})
	case cfg.SSTORE:
		return sem.writeStorage(st)
	case cfg.CALL, cfg.CALLCODE:
		return call(st, op.Pops(), 6, true)
	case cfg.DELEGATECALL:
		return call(st, op.Pops(), 5, true)
	case cfg.STATICCALL:
		return call(st, op.Pops(), 5, false)
	case cfg.CREATE, cfg.CREATE2:
		next := st.popPush(op.Pops(), 1, lattice.NotJumpdest)
		if !next.IsBottom() {
			next.Storage = next.Storage.Clobber()
		}
		return next
	case cfg.JUMP:
		return st.filterStacks(1, func(s lattice.Stack) bool { return sem.mayJump(s.Top()) })
	case cfg.JUMPI:
		return st.filterStacks(2, func(s lattice.Stack) bool {
			return (s.Second().MayBeTrue() && sem.mayJump(s.Top())) || s.Second().MayBeFalse()
		})
	}
	// environment reads, hashes, logs and the other instructions without effect on the tracked state
	return st.popPush(op.Pops(), op.Pushes(), lattice.NotJumpdest)
}

// terminal pops the operands of a halting instruction. Stacks left empty are dropped, so a halting
// instruction executed on an empty stack yields Bottom.
func terminal(st State, pops int) State {
	return st.mapStacks(pops, func(s *lattice.Stack) bool {
		s.PopN(pops)
		return !s.IsEmpty()
	})
}

// mayJump returns true if target can be a valid jump destination
func (sem *Semantics) mayJump(target lattice.Cell) bool {
	if target.IsUnknown() {
		return true
	}
	for _, v := range target.Values() {
		if v.IsUint64() && sem.graph.IsJumpdest(v.Uint64()) {
			return true
		}
	}
	return false
}

func mayJumpTo(target lattice.Cell, pc uint64) bool {
	return target.IsUnknown() || target.Contains(uint256.NewInt(pc))
}

// Branch returns the state flowing along edge e from the state st after the source of e. Jumps pop their
// operands here: only the stacks whose target can be the destination of e, and whose condition allows
// the edge, flow along it.
func (sem *Semantics) Branch(e cfg.Edge, st State) State {
	from := sem.graph.Nodes[e.From]
	if st.IsBottom() || st.IsTop() || !from.Op.IsJump() {
		return st
	}
	dest := sem.graph.Nodes[e.To].PC
	switch {
	case from.Op == cfg.JUMP:
		return st.mapStacks(1, func(s *lattice.Stack) bool {
			return mayJumpTo(s.Pop(), dest)
		})
	case e.Kind == cfg.False:
		return st.mapStacks(2, func(s *lattice.Stack) bool {
			keep := s.Second().MayBeFalse()
			s.PopN(2)
			return keep
		})
	}
	return st.mapStacks(2, func(s *lattice.Stack) bool {
		keep := s.Second().MayBeTrue() && mayJumpTo(s.Top(), dest)
		s.PopN(2)
		return keep
	})
}

// trackedOffsets returns the concrete offsets of a memory address, false if they are unknown or too large
func trackedOffsets(off lattice.Cell) ([]uint64, bool) {
	if !off.IsValue() {
		return nil, false
	}
	vals := off.Values()
	res := make([]uint64, len(vals))
	for i := range vals {
		if !vals[i].LtUint64(maxTrackedOffset) {
			return nil, false
		}
		res[i] = vals[i].Uint64()
	}
	return res, true
}

func loadMemory(st State, off lattice.Cell) lattice.Cell {
	if st.MemWords.Equal(lattice.Zero) {
		return lattice.Zero
	}
	if off.IsTopNotJumpdest() {
		return lattice.NotJumpdest
	}
	offsets, ok := trackedOffsets(off)
	if !ok {
		return lattice.Top
	}
	res := lattice.Bottom
	for _, o := range offsets {
		res = res.Lub(st.Memory.Load(o))
	}
	return res
}

// grow returns the number of memory words after an access of size bytes at off
func grow(words, off lattice.Cell, size uint64) lattice.Cell {
	end := lattice.Unary(off, func(z, x *uint256.Int) {
		z.AddUint64(x, size+wordSize-1)
		z.Rsh(z, 5)
		if z.IsZero() {
			z.SetOne()
		}
	})
	return lattice.Binary(words, end, func(z, x, y *uint256.Int) {
		if x.Gt(y) {
			z.Set(x)
		} else {
			z.Set(y)
		}
	})
}

func countDeep(st State, depth int) int {
	n := 0
	for _, s := range st.Stacks.Stacks() {
		if !s.HasBottomUntil(depth) {
			n++
		}
	}
	return n
}

// writeMemory is MSTORE (size 32) and MSTORE8 (size 1). The update is strong only when there is one stack
// and one offset.
func (sem *Semantics) writeMemory(st State, size uint64) State {
	mem := st.Memory
	words := lattice.Bottom
	strong := countDeep(st, 2) == 1
	for _, s := range st.Stacks.Stacks() {
		if s.HasBottomUntil(2) {
			continue
		}
		off, v := s.Top(), s.Second()
		words = words.Lub(grow(st.MemWords, off, size))
		offsets, ok := trackedOffsets(off)
		switch {
		case !ok:
			mem = mem.Clobber()
		case size == 1:
			for _, o := range offsets {
				mem = mem.StoreByte(o)
			}
		case strong && len(offsets) == 1:
			mem = mem.Store(offsets[0], v)
		default:
			for _, o := range offsets {
				mem = mem.WeakStore(o, v)
			}
		}
	}
	next := st.popPush(2, 0, lattice.Bottom)
	if next.IsBottom() {
		return next
	}
	next.Memory = mem
	next.MemWords = words
	return next
}

// copyToMemory handles the instructions copying data of unknown content to memory. The size operand is the
// deepest one.
func copyToMemory(st State, pops int) State {
	written := false
	for _, s := range st.Stacks.Stacks() {
		if !s.HasBottomUntil(pops) && !s.Peek(pops-1).IsDefinitelyFalse() {
			written = true
		}
	}
	next := st.popPush(pops, 0, lattice.Bottom)
	if !next.IsBottom() && written {
		next.Memory = next.Memory.Clobber()
		next.MemWords = next.MemWords.Lub(lattice.TopNumeric)
	}
	return next
}

// call handles the message calls: the callee may write its return data to memory, and may reenter the
// contract and modify its storage unless the call is static.
func call(st State, pops int, retLengthIndex int, writesStorage bool) State {
	written := false
	for _, s := range st.Stacks.Stacks() {
		if !s.HasBottomUntil(pops) && !s.Peek(retLengthIndex).IsDefinitelyFalse() {
			written = true
		}
	}
	next := st.popPush(pops, 1, lattice.NotJumpdest)
	if next.IsBottom() {
		return next
	}
	if written {
		next.Memory = next.Memory.Clobber()
		next.MemWords = next.MemWords.Lub(lattice.TopNumeric)
	}
	if writesStorage {
		next.Storage = next.Storage.Clobber()
	}
	return next
}

func (sem *Semantics) loadStorage(storage Storage, key lattice.Cell) lattice.Cell {
	if !key.IsValue() {
		return lattice.Top
	}
	res := lattice.Bottom
	for _, k := range key.Values() {
		k := k
		res = res.Lub(storage.Load(&k, sem.opts.Source))
	}
	return res
}

func (sem *Semantics) writeStorage(st State) State {
	storage := st.Storage
	strong := countDeep(st, 2) == 1
	for _, s := range st.Stacks.Stacks() {
		if s.HasBottomUntil(2) {
			continue
		}
		key, v := s.Top(), s.Second()
		if !key.IsValue() {
			storage = storage.Clobber()
			continue
		}
		keys := key.Values()
		for i := range keys {
			if strong && len(keys) == 1 {
				storage = storage.Store(&keys[i], v)
			} else {
				storage = storage.WeakStore(&keys[i], v, sem.opts.Source)
			}
		}
	}
	next := st.popPush(2, 0, lattice.Bottom)
	if next.IsBottom() {
		return next
	}
	next.Storage = storage
	return next
}
