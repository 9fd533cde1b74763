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

package fixpoint

import (
	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/internal/funcutil"
)

// Result holds the states computed by Run
type Result[S any] struct {
	Graph *cfg.Graph
	// Iterations is the number of node visits of both phases
	Iterations int

	before  []S
	after   []S
	visited []bool
}

func newResult[S any](g *cfg.Graph, dom Domain[S]) *Result[S] {
	n := len(g.Nodes)
	r := &Result[S]{
		Graph:   g,
		before:  make([]S, n),
		after:   make([]S, n),
		visited: make([]bool, n),
	}
	for i := 0; i < n; i++ {
		r.before[i] = dom.Bottom()
		r.after[i] = dom.Bottom()
	}
	return r
}

// StateBefore returns the state before node i, or none if the node was never visited
func (r *Result[S]) StateBefore(i int) funcutil.Optional[S] {
	if !r.Visited(i) {
		return funcutil.None[S]()
	}
	return funcutil.Some(r.before[i])
}

// StateAfter returns the state after node i, or none if the node was never visited
func (r *Result[S]) StateAfter(i int) funcutil.Optional[S] {
	if !r.Visited(i) {
		return funcutil.None[S]()
	}
	return funcutil.Some(r.after[i])
}

// Visited returns true if node i was reached by the analysis
func (r *Result[S]) Visited(i int) bool {
	return i >= 0 && i < len(r.visited) && r.visited[i]
}

// NumVisited returns the number of nodes reached by the analysis
func (r *Result[S]) NumVisited() int {
	n := 0
	for _, v := range r.visited {
		if v {
			n++
		}
	}
	return n
}
