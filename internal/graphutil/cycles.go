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

package graphutil

import (
	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
)

// FindAllElementaryCycles finds the elementary cycles in the graph g, stopping once limit cycles have been found
// when limit > 0.
// This uses Donald B. Johnson's algorithm presented in
// "Finding All The Elementary Circuits of a Directed Graph", 1975
func FindAllElementaryCycles(g IntGraph, limit int) [][]int {
	s := &state{
		blocked: map[int]bool{},
		blist:   map[int]map[int]bool{},
		stack:   []int{},
		cycles:  [][]int{},
		limit:   limit,
	}
	for nodeid := 0; nodeid < len(g.Keys); nodeid++ {
		fg := Subgraph(g, g.Keys[nodeid:])
		least := -1
		for _, component := range graph.StrongComponents(fg) {
			if len(component) < 2 && !fg.Edges[component[0]][component[0]] {
				continue
			}
			slices.Sort(component)
			if least < 0 || component[0] < least {
				least = component[0]
			}
		}
		if least < 0 {
			return s.cycles
		}
		s.stack = []int{}
		s.blocked = map[int]bool{}
		s.blist = map[int]map[int]bool{}
		s.circuit(least, least, fg)
		if s.full() {
			return s.cycles
		}
		nodeid, _ = slices.BinarySearch(g.Keys, least)
	}
	return s.cycles
}

type state struct {
	blocked map[int]bool
	blist   map[int]map[int]bool
	stack   []int
	cycles  [][]int
	limit   int
}

func (s *state) full() bool {
	return s.limit > 0 && len(s.cycles) >= s.limit
}

func (s *state) unblock(u int) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		delete(s.blist[u], w)
		if s.blocked[w] {
			s.unblock(w)
		}
	}
}

func (s *state) circuit(v int, i int, g IntGraph) bool {
	f := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	for _, w := range g.Successors(v) {
		if s.full() {
			break
		}
		if w == i {
			stackCopy := make([]int, len(s.stack), len(s.stack)+1)
			copy(stackCopy, s.stack)
			stackCopy = append(stackCopy, w)
			s.cycles = append(s.cycles, stackCopy)
			f = true
		} else if !s.blocked[w] {
			if s.circuit(w, i, g) {
				f = true
			}
		}
	}

	if f {
		s.unblock(v)
	} else {
		for _, w := range g.Successors(v) {
			if s.blist[w] == nil {
				s.blist[w] = map[int]bool{}
			}
			s.blist[w][v] = true
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return f
}
