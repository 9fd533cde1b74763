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
	"math/rand"
	"testing"
)

func single(capacity int, xs ...uint64) Stack {
	cells := make([]Cell, len(xs))
	for i, x := range xs {
		cells[i] = values(x)
	}
	return StackOf(capacity, cells...)
}

func TestStackSetBound(t *testing.T) {
	const k = 3
	a := NewStackSet(k, single(8, 1), single(8, 2))
	b := NewStackSet(k, single(8, 2), single(8, 3))
	u := a.Lub(b)
	if u.IsTop() || u.Len() != 3 {
		t.Fatalf("expected 3 stacks, got %s", u)
	}
	c := NewStackSet(k, single(8, 4))
	if !u.Lub(c).IsTop() || !c.Lub(u).IsTop() {
		t.Errorf("a join beyond the bound should be top")
	}
	if !NewStackSet(k, single(8, 1), single(8, 2), single(8, 3), single(8, 4)).IsTop() {
		t.Errorf("construction beyond the bound should be top")
	}
	if !u.Add(single(8, 2)).Equal(u) {
		t.Errorf("adding a present stack should not change the set")
	}
}

func TestStackSetJoinDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	const k = 4
	randomSet := func() StackSet {
		s := NewStackSet(k)
		for i := 0; i < r.Intn(4); i++ {
			s = s.Add(single(8, uint64(r.Intn(6)), uint64(r.Intn(3))))
		}
		return s
	}
	for i := 0; i < 500; i++ {
		a, b := randomSet(), randomSet()
		u := a.Lub(b)
		if !u.Equal(b.Lub(a)) {
			t.Fatalf("join not deterministic: %s %s", a, b)
		}
		if !u.IsTop() && u.Len() > k {
			t.Fatalf("join exceeds the bound: %s", u)
		}
		if !a.LessOrEqual(u) || !b.LessOrEqual(u) {
			t.Fatalf("join is not an upper bound: %s %s", a, b)
		}
		if g := a.Glb(b); !g.LessOrEqual(a) || !g.LessOrEqual(b) {
			t.Fatalf("meet is not a lower bound: %s %s", a, b)
		}
		if w := a.Widen(b); !u.LessOrEqual(w) {
			t.Fatalf("widening %s is below the join %s", w, u)
		}
	}
}

func TestStackSetOrder(t *testing.T) {
	bottom := NewStackSet(4)
	top := TopStackSet(4)
	s := NewStackSet(4, single(8, 1))
	if !bottom.IsBottom() || !bottom.LessOrEqual(s) || !s.LessOrEqual(top) || top.LessOrEqual(s) {
		t.Errorf("wrong order of the extremes")
	}
	wide := NewStackSet(4, StackOf(8, TopNumeric))
	if !s.LessOrEqual(wide) || wide.LessOrEqual(s) {
		t.Errorf("stacks should be compared slot-wise")
	}
	if !top.Glb(s).Equal(s) || !top.Narrow(s).Equal(s) || !s.Narrow(top).Equal(s) {
		t.Errorf("wrong refinement of top")
	}
}

func TestStackSetWidenCollapses(t *testing.T) {
	old := NewStackSet(8, single(8, 1))
	grown := old.Widen(NewStackSet(8, single(8, 2)))
	if grown.Len() != 1 || !grown.Stacks()[0].Top().IsTopNumeric() {
		t.Errorf("growing set should collapse into one widened stack, got %s", grown)
	}
	if stable := grown.Widen(NewStackSet(8, single(8, 5))); !stable.Equal(grown) {
		t.Errorf("widening should be stable, got %s", stable)
	}
	if w := NewStackSet(8).Widen(NewStackSet(8, single(8, 1), single(8, 2))); w.Len() != 2 {
		t.Errorf("widening bottom should keep the new set, got %s", w)
	}
}

func TestStackSetMapFilter(t *testing.T) {
	s := NewStackSet(4, single(8, 1), single(8, 1, 2))
	popped := s.Map(func(st *Stack) bool {
		if st.HasBottomUntil(2) {
			return false
		}
		st.Pop()
		return true
	})
	if popped.Len() != 1 || !popped.Stacks()[0].Top().Equal(values(1)) {
		t.Errorf("wrong map result %s", popped)
	}
	if !s.Equal(NewStackSet(4, single(8, 1), single(8, 1, 2))) {
		t.Errorf("map should not mutate the original set")
	}
	if f := s.Filter(func(st Stack) bool { return false }); !f.IsBottom() {
		t.Errorf("empty filter should be bottom")
	}
}
