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

// StackSet is a set of abstract stacks holding at most Bound stacks. A set that would grow beyond the bound
// becomes Top, meaning any stack is possible. The empty set is Bottom.
//
// StackSet values are immutable: every operation returns a new set.
type StackSet struct {
	bound  int
	top    bool
	stacks []Stack
	// keys[i] is stacks[i].Key(); keys are sorted
	keys []string
}

// NewStackSet returns the set holding the given stacks, or Top if there are more than bound distinct ones
func NewStackSet(bound int, stacks ...Stack) StackSet {
	s := StackSet{bound: bound}
	for _, st := range stacks {
		s = s.Add(st)
	}
	return s
}

// TopStackSet returns the Top set
func TopStackSet(bound int) StackSet {
	return StackSet{bound: bound, top: true}
}

// Bound returns the maximum cardinality of the set
func (s StackSet) Bound() int { return s.bound }

// IsTop returns true if any stack is possible
func (s StackSet) IsTop() bool { return s.top }

// IsBottom returns true if the set is empty
func (s StackSet) IsBottom() bool { return !s.top && len(s.stacks) == 0 }

// Len returns the number of stacks, 0 for Top
func (s StackSet) Len() int { return len(s.stacks) }

// Stacks returns the stacks of the set ordered by key. The stacks must be cloned before being mutated.
func (s StackSet) Stacks() []Stack { return s.stacks }

func (s StackSet) find(key string) (int, bool) {
	return slices.BinarySearch(s.keys, key)
}

func (s StackSet) insert(i int, st Stack, key string) StackSet {
	return StackSet{
		bound:  s.bound,
		stacks: slices.Insert(slices.Clone(s.stacks), i, st),
		keys:   slices.Insert(slices.Clone(s.keys), i, key),
	}
}

// Add returns the set with st added
func (s StackSet) Add(st Stack) StackSet {
	if s.top {
		return s
	}
	key := st.Key()
	i, found := s.find(key)
	if found {
		return s
	}
	if len(s.stacks)+1 > s.bound {
		return TopStackSet(s.bound)
	}
	return s.insert(i, st, key)
}

// Map applies f to a clone of every stack. Stacks for which f returns false are dropped.
func (s StackSet) Map(f func(st *Stack) bool) StackSet {
	if s.top {
		return s
	}
	res := StackSet{bound: s.bound}
	for _, st := range s.stacks {
		c := st.Clone()
		if f(&c) {
			res = res.Add(c)
		}
	}
	return res
}

// Filter returns the stacks satisfying keep
func (s StackSet) Filter(keep func(st Stack) bool) StackSet {
	if s.top {
		return s
	}
	res := StackSet{bound: s.bound}
	for i, st := range s.stacks {
		if keep(st) {
			res.stacks = append(res.stacks, st)
			res.keys = append(res.keys, s.keys[i])
		}
	}
	return res
}

// Lub returns the union of the sets, Top when the union holds more than Bound stacks
func (s StackSet) Lub(t StackSet) StackSet {
	if s.top || t.top {
		return TopStackSet(s.bound)
	}
	res := StackSet{bound: s.bound}
	i, j := 0, 0
	for i < len(s.keys) || j < len(t.keys) {
		switch {
		case j == len(t.keys) || (i < len(s.keys) && s.keys[i] < t.keys[j]):
			res.stacks = append(res.stacks, s.stacks[i])
			res.keys = append(res.keys, s.keys[i])
			i++
		case i == len(s.keys) || t.keys[j] < s.keys[i]:
			res.stacks = append(res.stacks, t.stacks[j])
			res.keys = append(res.keys, t.keys[j])
			j++
		default:
			res.stacks = append(res.stacks, s.stacks[i])
			res.keys = append(res.keys, s.keys[i])
			i++
			j++
		}
		if len(res.stacks) > s.bound {
			return TopStackSet(s.bound)
		}
	}
	return res
}

// Glb returns the intersection of the sets
func (s StackSet) Glb(t StackSet) StackSet {
	if s.top {
		return t
	}
	if t.top {
		return s
	}
	return s.Filter(func(st Stack) bool {
		_, found := t.find(st.Key())
		return found
	})
}

// Widen returns the widening of the previous set s with t. When t brings new stacks, all the stacks are
// merged into one by slot-wise widening.
func (s StackSet) Widen(t StackSet) StackSet {
	if s.IsBottom() {
		return t
	}
	u := s.Lub(t)
	if u.top || u.Len() <= s.Len() {
		return u
	}
	w := u.stacks[0]
	for _, st := range u.stacks[1:] {
		w = w.Widen(st)
	}
	return NewStackSet(s.bound, w)
}

// Narrow refines a Top set with t
func (s StackSet) Narrow(t StackSet) StackSet {
	if s.top {
		return t
	}
	return s
}

// LessOrEqual returns true if every stack of s is below some stack of t
func (s StackSet) LessOrEqual(t StackSet) bool {
	if t.top {
		return true
	}
	if s.top {
		return false
	}
	for i, st := range s.stacks {
		if _, found := t.find(s.keys[i]); found {
			continue
		}
		if slices.IndexFunc(t.stacks, st.LessOrEqual) < 0 {
			return false
		}
	}
	return true
}

// Equal returns true if both sets hold the same stacks
func (s StackSet) Equal(t StackSet) bool {
	if s.top || t.top {
		return s.top == t.top
	}
	return slices.Equal(s.keys, t.keys)
}

func (s StackSet) String() string {
	if s.top {
		return "⊤"
	}
	if len(s.stacks) == 0 {
		return "⊥"
	}
	parts := make([]string, len(s.stacks))
	for i, st := range s.stacks {
		parts[i] = st.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
