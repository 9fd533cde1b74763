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
	"math/rand"
	"testing"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type adjacency map[int][]int

// randomAdjacency returns a graph over [0, size) where every node has up to three successors
func randomAdjacency(size int, seed int64) adjacency {
	r := rand.New(rand.NewSource(seed))
	m := adjacency{}
	for i := 0; i < size; i++ {
		m[i] = nil
		for j := 0; j < 3; j++ {
			if r.Intn(10) < 7 {
				m[i] = append(m[i], r.Intn(size))
			}
		}
	}
	return m
}

func (m adjacency) nodes() []int {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

func (m adjacency) successors(i int) []int { return m[i] }

func (m adjacency) graph(order int) IntGraph { return NewIntGraph(order, m.successors) }

// reachable returns the nodes reachable from x by a path of at least one edge
func (m adjacency) reachable(x int) map[int]bool {
	seen := map[int]bool{}
	todo := slices.Clone(m[x])
	for len(todo) > 0 {
		n := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		if !seen[n] {
			seen[n] = true
			todo = append(todo, m[n]...)
		}
	}
	return seen
}

func TestLoops(t *testing.T) {
	m := adjacency{
		0: {1},
		1: {2, 4},
		2: {0, 3},
		3: {3},
		4: {1},
		5: {6},
		6: {},
	}
	loops := Loops(m.graph(7))
	if len(loops) != 2 || !slices.Equal(loops[0], []int{0, 1, 2, 4}) || !slices.Equal(loops[1], []int{3}) {
		t.Errorf("expected loops [0 1 2 4] and [3], got %v", loops)
	}
	if in := InCycle(m.graph(7)); in[5] || in[6] || !in[3] || len(in) != 5 {
		t.Errorf("unexpected nodes in cycles: %v", in)
	}
}

func TestLoopsRandom(t *testing.T) {
	for i := 0; i < 50; i++ {
		m := randomAdjacency(30, 5521+int64(i))
		in := InCycle(m.graph(30))
		for _, x := range m.nodes() {
			// a node is in a cycle exactly when it can reach itself
			if in[x] != m.reachable(x)[x] {
				t.Fatalf("node %d: in cycle is %v\nin:%v", x, in[x], m)
			}
		}
		for _, loop := range Loops(m.graph(30)) {
			for _, x := range loop {
				r := m.reachable(x)
				for _, y := range loop {
					if !r[y] {
						t.Fatalf("%d does not reach %d in loop %v\nin:%v", x, y, loop, m)
					}
				}
			}
		}
	}
}
