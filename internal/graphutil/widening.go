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

type color int

const (
	white color = iota
	grey
	black
)

// WideningPoints returns the targets of the retreating edges found by a depth-first traversal that starts from
// the entries, in order, and then from every node not yet visited. Every cycle of the graph contains at least one
// of the returned nodes, which makes them suitable places to apply widening in a fixpoint computation.
func WideningPoints[T comparable](nodes []T, entries []T, successors func(T) []T) map[T]bool {
	points := map[T]bool{}
	colors := make(map[T]color, len(nodes))

	type frame struct {
		node  T
		succs []T
		next  int
	}

	visit := func(root T) {
		if colors[root] != white {
			return
		}
		colors[root] = grey
		stack := []*frame{{node: root, succs: successors(root)}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next >= len(top.succs) {
				colors[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}
			w := top.succs[top.next]
			top.next++
			switch colors[w] {
			case white:
				colors[w] = grey
				stack = append(stack, &frame{node: w, succs: successors(w)})
			case grey:
				points[w] = true
			}
		}
	}

	for _, e := range entries {
		visit(e)
	}
	for _, n := range nodes {
		visit(n)
	}
	return points
}
