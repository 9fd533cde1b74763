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

package lattice

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Stack is an abstract EVM operand stack of fixed capacity. Slot capacity-1 is the top of the stack; the
// slots below the tracked part of the stack are Bottom.
//
// Push, Pop, Dup and Swap mutate the stack in place: transfer functions work on a Clone.
type Stack struct {
	cells []Cell
}

// NewStack returns an empty stack
func NewStack(capacity int) Stack {
	return Stack{cells: make([]Cell, capacity)}
}

// StackOf returns a stack of the given capacity whose top is the last cell of cells
func StackOf(capacity int, cells ...Cell) Stack {
	s := NewStack(capacity)
	for _, c := range cells {
		s.Push(c)
	}
	return s
}

// Capacity returns the number of slots of the stack
func (s Stack) Capacity() int { return len(s.cells) }

// Clone returns a copy of s that can be mutated independently
func (s Stack) Clone() Stack {
	return Stack{cells: slices.Clone(s.cells)}
}

// Push shifts the content towards the bottom, dropping the lowest slot, and puts c on top
func (s *Stack) Push(c Cell) {
	n := len(s.cells)
	copy(s.cells, s.cells[1:])
	s.cells[n-1] = c
}

// Pop removes and returns the top of the stack. The lowest slot is refilled with Bottom if it was Bottom,
// and with Top otherwise since the popped window hides untracked values.
func (s *Stack) Pop() Cell {
	n := len(s.cells)
	top := s.cells[n-1]
	copy(s.cells[1:], s.cells[:n-1])
	if n > 1 && !s.cells[1].IsBottom() {
		s.cells[0] = Top
	} else {
		s.cells[0] = Bottom
	}
	return top
}

// PopN pops n cells and returns them, top first
func (s *Stack) PopN(n int) []Cell {
	res := make([]Cell, n)
	for i := range res {
		res[i] = s.Pop()
	}
	return res
}

// Peek returns the i-th cell from the top, Peek(0) being the top. Out of range is Bottom.
func (s Stack) Peek(i int) Cell {
	if i < 0 || i >= len(s.cells) {
		return Bottom
	}
	return s.cells[len(s.cells)-1-i]
}

// Top returns the top of the stack
func (s Stack) Top() Cell { return s.Peek(0) }

// Second returns the cell right below the top
func (s Stack) Second() Cell { return s.Peek(1) }

// HasBottomUntil returns true if one of the x topmost slots is Bottom. Depths larger than the capacity are
// untracked and count as Bottom.
func (s Stack) HasBottomUntil(x int) bool {
	if x > len(s.cells) {
		return true
	}
	for i := 0; i < x; i++ {
		if s.cells[len(s.cells)-1-i].IsBottom() {
			return true
		}
	}
	return false
}

// IsEmpty returns true if no value is tracked on the stack
func (s Stack) IsEmpty() bool { return s.Top().IsBottom() }

// Dup pushes a copy of the k-th cell from the top. It returns false, leaving s unchanged, when the stack
// does not hold k cells.
func (s *Stack) Dup(k int) bool {
	if k < 1 || s.HasBottomUntil(k) {
		return false
	}
	s.Push(s.Peek(k - 1))
	return true
}

// Swap exchanges the top with the cell k slots below it. It returns false, leaving s unchanged, when the
// stack does not hold k+1 cells.
func (s *Stack) Swap(k int) bool {
	if k < 1 || s.HasBottomUntil(k+1) {
		return false
	}
	n := len(s.cells)
	s.cells[n-1], s.cells[n-1-k] = s.cells[n-1-k], s.cells[n-1]
	return true
}

func (s Stack) pointwise(t Stack, f func(a, b Cell) Cell) Stack {
	res := NewStack(len(s.cells))
	for i := range s.cells {
		res.cells[i] = f(s.cells[i], t.cells[i])
	}
	return res
}

// Lub returns the slot-wise least upper bound of two stacks of the same capacity
func (s Stack) Lub(t Stack) Stack { return s.pointwise(t, Cell.Lub) }

// Glb returns the slot-wise greatest lower bound of two stacks of the same capacity
func (s Stack) Glb(t Stack) Stack { return s.pointwise(t, Cell.Glb) }

// Widen returns the slot-wise widening of s with t
func (s Stack) Widen(t Stack) Stack { return s.pointwise(t, Cell.Widen) }

// Narrow returns the slot-wise narrowing of s with t
func (s Stack) Narrow(t Stack) Stack { return s.pointwise(t, Cell.Narrow) }

// LessOrEqual returns true if every slot of s is below the same slot of t
func (s Stack) LessOrEqual(t Stack) bool {
	for i := range s.cells {
		if !s.cells[i].LessOrEqual(t.cells[i]) {
			return false
		}
	}
	return true
}

// Equal returns true if both stacks hold the same cells
func (s Stack) Equal(t Stack) bool {
	return slices.EqualFunc(s.cells, t.cells, Cell.Equal)
}

// Key returns a string identifying the content of the stack
func (s Stack) Key() string {
	var b strings.Builder
	for i, c := range s.cells {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(c.String())
	}
	return b.String()
}

// String prints the tracked part of the stack, top last
func (s Stack) String() string {
	i := 0
	for i < len(s.cells) && s.cells[i].IsBottom() {
		i++
	}
	parts := make([]string, 0, len(s.cells)-i)
	for _, c := range s.cells[i:] {
		parts = append(parts, c.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}
