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
	"golang.org/x/exp/slices"
)

// IntGraph is a directed graph over dense integer node ids [0, order). It implements graph.Iterator from
// github.com/yourbasic/graph so that the algorithms of that library can run on it.
type IntGraph struct {
	// The order of the graph
	order int

	// Keys are the node IDs included in the graph, in increasing order
	Keys []int

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge from x to y
	Edges map[int]map[int]bool
}

// NewIntGraph returns a graph of the given order containing all node ids, with successors given by succ.
func NewIntGraph(order int, succ func(int) []int) IntGraph {
	keys := make([]int, order)
	edges := make(map[int]map[int]bool, order)
	for i := 0; i < order; i++ {
		keys[i] = i
		edges[i] = map[int]bool{}
		for _, j := range succ(i) {
			edges[i][j] = true
		}
	}
	return IntGraph{order: order, Keys: keys, Edges: edges}
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// The subgraph's order is the same as in origin, meaning that node indices stay consistent across subgraphs.
func Subgraph(original IntGraph, include []int) IntGraph {
	in := make(map[int]bool, len(include))
	keys := make([]int, len(include))
	for j, i := range include {
		keys[j] = i
		in[i] = true
	}
	slices.Sort(keys)

	edges := make(map[int]map[int]bool, len(include))
	for _, i := range include {
		edges[i] = map[int]bool{}
		for e := range original.Edges[i] {
			if in[e] {
				edges[i][e] = true
			}
		}
	}
	return IntGraph{order: original.order, Keys: keys, Edges: edges}
}

// Order implements the order of the graph.Iterator interface
func (g IntGraph) Order() int {
	return g.order
}

// Visit implements the graph.Iterator interface. Successors are visited in increasing order.
func (g IntGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	succ, ok := g.Edges[v]
	if !ok {
		return false
	}
	ws := make([]int, 0, len(succ))
	for w := range succ {
		ws = append(ws, w)
	}
	slices.Sort(ws)
	for _, w := range ws {
		if do(w, 1) {
			return true
		}
	}
	return false
}

// Successors returns the successors of v in increasing order.
func (g IntGraph) Successors(v int) []int {
	var res []int
	g.Visit(v, func(w int, _ int64) bool {
		res = append(res, w)
		return false
	})
	return res
}
