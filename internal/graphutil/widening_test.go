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
	"testing"
)

func TestWideningPointsCoverCycles(t *testing.T) {
	for i := 0; i < 50; i++ {
		m := randomAdjacency(20, 9127+int64(i))
		points := WideningPoints(m.nodes(), []int{0}, m.successors)
		// removing the widening points must leave an acyclic graph
		pruned := adjacency{}
		for n, succs := range m {
			if points[n] {
				continue
			}
			for _, s := range succs {
				if !points[s] {
					pruned[n] = append(pruned[n], s)
				}
			}
		}
		if loops := Loops(pruned.graph(20)); len(loops) > 0 {
			t.Fatalf("cycles left after removing widening points %v: %v\nin:%v", points, loops, m)
		}
		in := InCycle(m.graph(20))
		for p := range points {
			if !in[p] {
				t.Errorf("widening point %d is not in a cycle", p)
			}
		}
	}
}

func TestWideningPointsLoop(t *testing.T) {
	m := adjacency{
		0: {1},
		1: {2},
		2: {3, 1},
		3: {},
	}
	points := WideningPoints(m.nodes(), []int{0}, m.successors)
	if len(points) != 1 || !points[1] {
		t.Errorf("expected loop head 1 to be the only widening point, got %v", points)
	}
}

func TestWideningPointsSelfLoop(t *testing.T) {
	m := adjacency{
		0: {0, 1},
		1: {},
	}
	points := WideningPoints(m.nodes(), []int{0}, m.successors)
	if len(points) != 1 || !points[0] {
		t.Errorf("expected the self loop 0 to be the only widening point, got %v", points)
	}
}
