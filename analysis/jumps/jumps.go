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

// Package jumps resolves the targets of the jumps of EVM bytecode. Jumps whose target is not pushed right before
// them are only known after an abstract interpretation of the contract; resolving them adds edges to the graph,
// which in turn may make other jumps reachable. Resolve alternates the two phases until no edge is added.
package jumps

import (
	"context"
	"fmt"
	"time"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/analysis/evm"
	"github.com/awslabs/ar-evm-tools/analysis/fixpoint"
	"github.com/awslabs/ar-evm-tools/internal/graphutil"
	"golang.org/x/tools/container/intsets"
)

// Class is the classification of a jump
type Class int

const (
	// Unreachable jumps have no state in the fixpoint
	Unreachable Class = iota
	// MaybeUnsound jumps have a target that is not known, the graph may miss some of their edges
	MaybeUnsound
	// Resolved jumps have a finite set of possible targets
	Resolved
)

func (c Class) String() string {
	switch c {
	case Unreachable:
		return "unreachable"
	case MaybeUnsound:
		return "maybe-unsound"
	}
	return "resolved"
}

// Jump is the classification of one JUMP or JUMPI
type Jump struct {
	Node  int
	PC    uint64
	Op    cfg.Opcode
	Class Class
	// Targets are the program counters of the jumpdests the jump may reach, in increasing order
	Targets []uint64
}

// Stats summarizes a resolution
type Stats struct {
	Jumps        int
	Pushed       int
	Resolved     int
	Unreachable  int
	MaybeUnsound int
	Rounds       int
	EdgesAdded   int
	// Loops is the number of strongly connected components of the resolved graph that contain a cycle
	Loops    int
	Duration time.Duration
}

// Resolution is the result of Resolve
type Resolution struct {
	// Graph is the graph with the resolved edges. It is a copy of the input graph.
	Graph *cfg.Graph
	// Result is the fixpoint over the final graph
	Result *fixpoint.Result[evm.State]
	// Jumps are the classified jumps, in program counter order
	Jumps      []Jump
	Rounds     int
	EdgesAdded int
	Duration   time.Duration

	linkUnsound bool
}

// Options of the resolution
type Options struct {
	EVM      evm.Options
	Fixpoint fixpoint.Options
	// LinkUnsoundJumps links the jumps with unknown targets to every jumpdest
	LinkUnsoundJumps bool
}

// OptionsFromConfig returns the resolution options of the configuration
func OptionsFromConfig(c *config.Config, logger *config.LogGroup) (Options, error) {
	evmOpts, err := evm.OptionsFromConfig(c)
	if err != nil {
		return Options{}, err
	}
	return Options{
		EVM:              evmOpts,
		Fixpoint:         fixpoint.OptionsFromConfig(c, logger),
		LinkUnsoundJumps: c.LinkUnsoundJumps,
	}, nil
}

// Resolve computes the edges of the jumps of g. The input graph is not modified.
func Resolve(ctx context.Context, g *cfg.Graph, opts Options, logger *config.LogGroup) (*Resolution, error) {
	start := time.Now()
	r := &Resolution{Graph: g.Clone(), linkUnsound: opts.LinkUnsoundJumps}
	opts.Fixpoint.Logger = logger
	for {
		r.Rounds++
		// analyze to a fixpoint on the current graph
		sem := evm.NewSemantics(r.Graph, opts.EVM)
		res, err := fixpoint.Run[evm.State](ctx, r.Graph, sem.Initial(), sem, opts.Fixpoint)
		if err != nil {
			return nil, fmt.Errorf("round %d of jump resolution: %w", r.Rounds, err)
		}
		r.Result = res
		r.Jumps = Classify(r.Graph, res)

		// grow the graph, or stop
		added := addEdges(r.Graph, r.Jumps)
		if added == 0 && opts.LinkUnsoundJumps {
			added = linkUnsound(r.Graph, r.Jumps)
		}
		logger.Debugf("jump resolution round %d: %d edges added", r.Rounds, added)
		if added == 0 {
			break
		}
		r.EdgesAdded += added
	}
	r.Duration = time.Since(start)
	s := r.Stats()
	logger.Debugf("%d jumps in %s: %d resolved, %d unreachable, %d maybe unsound (%d rounds)",
		s.Jumps, r.Graph.ID(), s.Resolved, s.Unreachable, s.MaybeUnsound, s.Rounds)
	return r, nil
}

// Classify classifies every jump of g from the states of res
func Classify(g *cfg.Graph, res *fixpoint.Result[evm.State]) []Jump {
	jumps := make([]Jump, 0, len(g.Jumps()))
	for _, i := range g.Jumps() {
		n := g.Nodes[i]
		j := Jump{Node: i, PC: n.PC, Op: n.Op}
		st, ok := res.StateBefore(i).Get()
		switch {
		case !ok || st.IsBottom():
			j.Class = Unreachable
		case st.IsTop():
			j.Class = MaybeUnsound
		default:
			j.Class, j.Targets = targets(g, st)
		}
		jumps = append(jumps, j)
	}
	return jumps
}

// targets returns the jumpdests that are on top of one of the stacks of st
func targets(g *cfg.Graph, st evm.State) (Class, []uint64) {
	var pcs intsets.Sparse
	for _, s := range st.Stacks.Stacks() {
		top := s.Top()
		if top.IsUnknown() {
			return MaybeUnsound, nil
		}
		for _, v := range top.Values() {
			if v.IsUint64() && g.IsJumpdest(v.Uint64()) {
				pcs.Insert(int(v.Uint64()))
			}
		}
	}
	res := make([]uint64, 0, pcs.Len())
	var pc int
	for pcs.TakeMin(&pc) {
		res = append(res, uint64(pc))
	}
	return Resolved, res
}

func edgeKind(op cfg.Opcode) cfg.EdgeKind {
	if op == cfg.JUMPI {
		return cfg.True
	}
	return cfg.Sequential
}

func link(g *cfg.Graph, j Jump, pcs []uint64) int {
	added := 0
	for _, pc := range pcs {
		to, err := g.NodeAt(pc)
		if err != nil {
			continue
		}
		if g.AddEdge(j.Node, to, edgeKind(j.Op)) {
			added++
		}
	}
	return added
}

func addEdges(g *cfg.Graph, jumps []Jump) int {
	added := 0
	for _, j := range jumps {
		if j.Class == Resolved {
			added += link(g, j, j.Targets)
		}
	}
	return added
}

func jumpdests(g *cfg.Graph) []uint64 {
	var all []uint64
	for _, pc := range g.Jumpdests().AppendTo(nil) {
		all = append(all, uint64(pc))
	}
	return all
}

func linkUnsound(g *cfg.Graph, jumps []Jump) int {
	added := 0
	all := jumpdests(g)
	for _, j := range jumps {
		if j.Class == MaybeUnsound {
			added += link(g, j, all)
		}
	}
	return added
}

// Saturated returns true if classifying the jumps again from the final states would not add any edge
func (r *Resolution) Saturated() bool {
	all := jumpdests(r.Graph)
	for _, j := range Classify(r.Graph, r.Result) {
		pcs := j.Targets
		switch {
		case j.Class == MaybeUnsound && r.linkUnsound:
			pcs = all
		case j.Class != Resolved:
			continue
		}
		for _, pc := range pcs {
			to, err := r.Graph.NodeAt(pc)
			if err == nil && !r.Graph.HasEdge(j.Node, to, edgeKind(j.Op)) {
				return false
			}
		}
	}
	return true
}

// Filter returns the jumps of class c
func (r *Resolution) Filter(c Class) []Jump {
	var res []Jump
	for _, j := range r.Jumps {
		if j.Class == c {
			res = append(res, j)
		}
	}
	return res
}

// Targets maps the program counters of the resolved jumps to their targets
func (r *Resolution) Targets() map[uint64][]uint64 {
	res := map[uint64][]uint64{}
	for _, j := range r.Filter(Resolved) {
		res[j.PC] = j.Targets
	}
	return res
}

// Stats returns the counts of jumps per class
func (r *Resolution) Stats() Stats {
	s := Stats{
		Jumps:      len(r.Jumps),
		Pushed:     len(r.Graph.PushedJumps()),
		Rounds:     r.Rounds,
		EdgesAdded: r.EdgesAdded,
		Loops:      len(graphutil.Loops(graphutil.NewIntGraph(len(r.Graph.Nodes), r.Graph.Successors))),
		Duration:   r.Duration,
	}
	for _, j := range r.Jumps {
		switch j.Class {
		case Unreachable:
			s.Unreachable++
		case MaybeUnsound:
			s.MaybeUnsound++
		case Resolved:
			s.Resolved++
		}
	}
	return s
}

// Unresolved returns the classification of the jumps of g when the resolution failed: every jump may be unsound
func Unresolved(g *cfg.Graph) []Jump {
	jumps := make([]Jump, 0, len(g.Jumps()))
	for _, i := range g.Jumps() {
		n := g.Nodes[i]
		jumps = append(jumps, Jump{Node: i, PC: n.PC, Op: n.Op, Class: MaybeUnsound})
	}
	return jumps
}
