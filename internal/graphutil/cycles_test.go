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

package graphutil_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/awslabs/ar-evm-tools/internal/funcutil"
	"github.com/awslabs/ar-evm-tools/internal/graphutil"
	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
)

func cycleStrings(cycles [][]int) []string {
	results := make([]string, len(cycles))
	for i, cycle := range cycles {
		results[i] = strings.Join(funcutil.Map(cycle, strconv.Itoa), "")
	}
	slices.Sort(results)
	return results
}

func TestFindAllElementaryCycles(t *testing.T) {
	adj := map[int][]int{
		0: {1},
		1: {2, 4},
		2: {0, 3},
		3: {3},
		4: {1},
		5: {},
	}
	g := graphutil.NewIntGraph(6, func(i int) []int { return adj[i] })
	stats := graph.Check(g)
	t.Logf("Stats:\n\tsize: %d\n\tloops: %d\n\tisolated: %d", stats.Size, stats.Loops, stats.Isolated)
	if stats.Loops != 1 {
		t.Errorf("expected one self loop, got %d", stats.Loops)
	}

	results := cycleStrings(graphutil.FindAllElementaryCycles(g, 0))
	expected := []string{"0120", "141", "33"}
	if !slices.Equal(results, expected) {
		for i, s := range results {
			t.Logf("Cycle %d: %s", i, s)
		}
		t.Fatalf("Cycles not as expected: %v", results)
	}
}

func TestFindAllElementaryCyclesLimit(t *testing.T) {
	// complete graph on 5 nodes has many elementary cycles
	g := graphutil.NewIntGraph(5, func(i int) []int {
		var s []int
		for j := 0; j < 5; j++ {
			if j != i {
				s = append(s, j)
			}
		}
		return s
	})
	all := graphutil.FindAllElementaryCycles(g, 0)
	if len(all) != 84 {
		t.Errorf("expected 84 elementary cycles in K5, got %d", len(all))
	}
	limited := graphutil.FindAllElementaryCycles(g, 10)
	if len(limited) != 10 {
		t.Errorf("expected limit of 10 cycles to be honored, got %d", len(limited))
	}
}

func TestFindAllElementaryCyclesAcyclic(t *testing.T) {
	g := graphutil.NewIntGraph(4, func(i int) []int {
		if i < 3 {
			return []int{i + 1}
		}
		return nil
	})
	if c := graphutil.FindAllElementaryCycles(g, 0); len(c) != 0 {
		t.Errorf("expected no cycle, got %v", c)
	}
}
