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
	"fmt"

	"github.com/awslabs/ar-evm-tools/analysis/lattice"
)

type stateKind uint8

const (
	bottomState stateKind = iota
	valueState
	topState
)

// State is the abstract state of the EVM at a program point: the possible operand stacks, the memory, the
// storage and the number of active memory words.
type State struct {
	kind    stateKind
	Stacks  lattice.StackSet
	Memory  Memory
	Storage Storage
	// MemWords is the number of active memory words
	MemWords lattice.Cell
}

// BottomState returns the state of unreachable program points
func BottomState() State { return State{kind: bottomState} }

// TopState returns the state where nothing is known
func TopState(bound int) State {
	return State{
		kind:     topState,
		Stacks:   lattice.TopStackSet(bound),
		Storage:  Storage{clobbered: true},
		MemWords: lattice.Top,
	}
}

// NewState returns the state holding the given stacks, or Bottom if there is none
func NewState(stacks lattice.StackSet, mem Memory, storage Storage, memWords lattice.Cell) State {
	if stacks.IsBottom() {
		return BottomState()
	}
	return State{kind: valueState, Stacks: stacks, Memory: mem, Storage: storage, MemWords: memWords}
}

func (s State) IsBottom() bool { return s.kind == bottomState }

// IsTop returns true if the state or its stack set is unknown
func (s State) IsTop() bool { return s.kind == topState || (s.kind == valueState && s.Stacks.IsTop()) }

func (s State) withStacks(stacks lattice.StackSet) State {
	return NewState(stacks, s.Memory, s.Storage, s.MemWords)
}

// Lub returns the least upper bound of s and o
func (s State) Lub(o State) State {
	switch {
	case s.kind == bottomState:
		return o
	case o.kind == bottomState:
		return s
	case s.kind == topState:
		return s
	case o.kind == topState:
		return o
	}
	return NewState(s.Stacks.Lub(o.Stacks), s.Memory.Lub(o.Memory), s.Storage.Lub(o.Storage),
		s.MemWords.Lub(o.MemWords))
}

// Glb returns the greatest lower bound of s and o
func (s State) Glb(o State) State {
	switch {
	case s.kind == bottomState || o.kind == topState:
		return s
	case o.kind == bottomState || s.kind == topState:
		return o
	}
	return NewState(s.Stacks.Glb(o.Stacks), s.Memory.Glb(o.Memory), s.Storage.Glb(o.Storage),
		s.MemWords.Glb(o.MemWords))
}

// Widen returns the widening of the previous state s with o
func (s State) Widen(o State) State {
	switch {
	case s.kind == bottomState:
		return o
	case o.kind == bottomState:
		return s
	case s.kind == topState:
		return s
	case o.kind == topState:
		return o
	}
	return NewState(s.Stacks.Widen(o.Stacks), s.Memory.Widen(o.Memory), s.Storage.Widen(o.Storage),
		s.MemWords.Widen(o.MemWords))
}

// Narrow refines the unknown parts of s with o
func (s State) Narrow(o State) State {
	switch {
	case s.kind == bottomState || o.kind == bottomState:
		return s.Glb(o)
	case s.kind == topState:
		return o
	case o.kind == topState:
		return s
	}
	return NewState(s.Stacks.Narrow(o.Stacks), s.Memory, s.Storage, s.MemWords.Narrow(o.MemWords))
}

// LessOrEqual returns true if s is at most as general as o
func (s State) LessOrEqual(o State) bool {
	switch {
	case s.kind == bottomState || o.kind == topState:
		return true
	case o.kind == bottomState || s.kind == topState:
		return false
	}
	return s.Stacks.LessOrEqual(o.Stacks) && s.Memory.LessOrEqual(o.Memory) &&
		s.Storage.LessOrEqual(o.Storage) && s.MemWords.LessOrEqual(o.MemWords)
}

// Equal returns true if both states are identical
func (s State) Equal(o State) bool {
	if s.kind != o.kind {
		return false
	}
	if s.kind != valueState {
		return true
	}
	return s.Stacks.Equal(o.Stacks) && s.Memory.Equal(o.Memory) && s.Storage.Equal(o.Storage) &&
		s.MemWords.Equal(o.MemWords)
}

func (s State) String() string {
	switch s.kind {
	case bottomState:
		return "⊥"
	case topState:
		return "⊤"
	}
	return fmt.Sprintf("%s %s %s msize=%s", s.Stacks, s.Memory, s.Storage, s.MemWords)
}
