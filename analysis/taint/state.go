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
	"strings"

	"golang.org/x/exp/slices"
)

// Stack is a fixed capacity stack of taint elements. The last slot is the top of the stack.
type Stack struct {
	elts []Element
}

// NewStack returns an empty stack
func NewStack(capacity int) Stack {
	return Stack{elts: make([]Element, capacity)}
}

// StackOf returns a stack whose top is the last element of elts
func StackOf(capacity int, elts ...Element) Stack {
	s := NewStack(capacity)
	for _, e := range elts {
		s.Push(e)
	}
	return s
}

func (s Stack) Capacity() int { return len(s.elts) }

func (s Stack) Clone() Stack {
	return Stack{elts: slices.Clone(s.elts)}
}

func (s *Stack) Push(e Element) {
	n := len(s.elts)
	copy(s.elts, s.elts[1:])
	s.elts[n-1] = e
}

// Pop removes the top. The lowest slot becomes Top when the stack was full.
func (s *Stack) Pop() Element {
	n := len(s.elts)
	top := s.elts[n-1]
	copy(s.elts[1:], s.elts[:n-1])
	if n > 1 && s.elts[1] != Bottom {
		s.elts[0] = Top
	} else {
		s.elts[0] = Bottom
	}
	return top
}

func (s *Stack) PopN(n int) []Element {
	res := make([]Element, n)
	for i := range res {
		res[i] = s.Pop()
	}
	return res
}

// Peek returns the i-th element from the top, Bottom when out of range
func (s Stack) Peek(i int) Element {
	if i < 0 || i >= len(s.elts) {
		return Bottom
	}
	return s.elts[len(s.elts)-1-i]
}

func (s Stack) HasBottomUntil(x int) bool {
	if x > len(s.elts) {
		return true
	}
	for i := 0; i < x; i++ {
		if s.elts[len(s.elts)-1-i] == Bottom {
			return true
		}
	}
	return false
}

func (s Stack) pointwise(t Stack, f func(a, b Element) Element) Stack {
	res := NewStack(len(s.elts))
	for i := range s.elts {
		res.elts[i] = f(s.elts[i], t.elts[i])
	}
	return res
}

func (s Stack) String() string {
	i := 0
	for i < len(s.elts) && s.elts[i] == Bottom {
		i++
	}
	parts := make([]string, 0, len(s.elts)-i)
	for _, e := range s.elts[i:] {
		parts = append(parts, e.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

type stateKind uint8

const (
	bottomState stateKind = iota
	valueState
	topState
)

// State is the taint state at a program point: the taint of the stack slots and of the memory
type State struct {
	kind   stateKind
	Stack  Stack
	Memory Element
}

// BottomState is the state of unreachable program points
func BottomState() State { return State{kind: bottomState} }

// TopState is the state where every value may be tainted
func TopState(capacity int) State {
	s := NewStack(capacity)
	for i := range s.elts {
		s.elts[i] = Top
	}
	return State{kind: topState, Stack: s, Memory: Top}
}

// NewState returns the state with the given stack and memory taint
func NewState(stack Stack, memory Element) State {
	return State{kind: valueState, Stack: stack, Memory: memory}
}

func (s State) IsBottom() bool { return s.kind == bottomState }

func (s State) IsTop() bool { return s.kind == topState }

// Peek returns the taint of the i-th element from the top of the stack
func (s State) Peek(i int) Element {
	switch s.kind {
	case bottomState:
		return Bottom
	case topState:
		return Top
	}
	return s.Stack.Peek(i)
}

// First returns the taint of the top of the stack
func (s State) First() Element { return s.Peek(0) }

// Second returns the taint of the element below the top of the stack
func (s State) Second() Element { return s.Peek(1) }

func (s State) Lub(o State) State {
	switch {
	case s.kind == bottomState || o.kind == topState:
		return o
	case o.kind == bottomState || s.kind == topState:
		return s
	}
	return NewState(s.Stack.pointwise(o.Stack, Element.Lub), s.Memory.Lub(o.Memory))
}

func (s State) Glb(o State) State {
	switch {
	case s.kind == bottomState || o.kind == topState:
		return s
	case o.kind == bottomState || s.kind == topState:
		return o
	}
	return NewState(s.Stack.pointwise(o.Stack, Element.Glb), s.Memory.Glb(o.Memory))
}

func (s State) LessOrEqual(o State) bool {
	switch {
	case s.kind == bottomState || o.kind == topState:
		return true
	case o.kind == bottomState || s.kind == topState:
		return false
	}
	if !s.Memory.LessOrEqual(o.Memory) {
		return false
	}
	for i := range s.Stack.elts {
		if !s.Stack.elts[i].LessOrEqual(o.Stack.elts[i]) {
			return false
		}
	}
	return true
}

func (s State) Equal(o State) bool {
	if s.kind != o.kind {
		return false
	}
	return s.kind != valueState || (s.Memory == o.Memory && slices.Equal(s.Stack.elts, o.Stack.elts))
}

func (s State) String() string {
	switch s.kind {
	case bottomState:
		return "⊥"
	case topState:
		return "⊤"
	}
	return s.Stack.String() + " mem:" + s.Memory.String()
}
