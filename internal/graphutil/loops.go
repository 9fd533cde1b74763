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

// Loops returns the strongly connected components of g that contain a cycle: the components with more than
// one node, and the single nodes with a self loop. Each loop is sorted, and loops are ordered by their
// smallest node.
func Loops(g IntGraph) [][]int {
	var loops [][]int
	for _, component := range graph.StrongComponents(g) {
		if len(component) == 1 && !g.Edges[component[0]][component[0]] {
			continue
		}
		loop := slices.Clone(component)
		slices.Sort(loop)
		loops = append(loops, loop)
	}
	slices.SortFunc(loops, func(a, b []int) bool { return a[0] < b[0] })
	return loops
}

// InCycle returns the set of nodes of g that belong to some cycle
func InCycle(g IntGraph) map[int]bool {
	res := map[int]bool{}
	for _, loop := range Loops(g) {
		for _, x := range loop {
			res[x] = true
		}
	}
	return res
}
