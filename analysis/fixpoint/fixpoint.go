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
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/internal/graphutil"
	"golang.org/x/tools/container/intsets"
)

// ErrIterationLimit is returned when the number of node visits exceeds the configured maximum
var ErrIterationLimit = errors.New("fixpoint iteration limit reached")

// Domain is an abstract domain over states of type S together with the abstract semantics of the nodes of a
// graph.
type Domain[S any] interface {
	Bottom() S
	IsBottom(s S) bool
	Lub(a, b S) S
	Glb(a, b S) S
	// Widen returns an upper bound of a and b. Any sequence x, Widen(x, y1), ... stabilizes.
	Widen(a, b S) S
	Narrow(a, b S) S
	LessOrEqual(a, b S) bool
	// Transfer returns the state after node i executes from state s
	Transfer(i int, s S) S
	// Branch returns the state flowing along edge e, given the state s after the source of e
	Branch(e cfg.Edge, s S) S
}

// Options controls the iteration strategy
type Options struct {
	// WideningThreshold is the number of joins performed at a widening point before widening. A negative
	// threshold disables widening.
	WideningThreshold int
	// Descending is one of config.DescendingNone, config.DescendingGLB and config.DescendingNarrowing
	Descending string
	// DescendingThreshold bounds the number of refinements of each node in the descending phase
	DescendingThreshold int
	// MaxIterations bounds the total number of node visits, 0 means unbounded
	MaxIterations int
	Logger        *config.LogGroup
}

// OptionsFromConfig returns the iteration options of the configuration
func OptionsFromConfig(c *config.Config, logger *config.LogGroup) Options {
	return Options{
		WideningThreshold:   c.WideningThreshold,
		Descending:          c.DescendingPhase,
		DescendingThreshold: c.DescendingThreshold,
		MaxIterations:       c.MaxIterations,
		Logger:              logger,
	}
}

// analysis holds the state of one fixpoint computation
type analysis[S any] struct {
	ctx      context.Context
	g        *cfg.Graph
	dom      Domain[S]
	opts     Options
	initial  S
	widening map[int]bool
	// budget[i] counts the joins at node i in the ascending phase and its refinements in the descending phase
	budget     []int
	res        *Result[S]
	worklist   intsets.Sparse
	iterations int
}

// Run computes the states of the nodes of g reachable from g.Entry, starting with the state initial.
// It returns ErrIterationLimit when the options bound the number of visits and the bound is reached, and the
// context error when ctx is done before the computation ends.
func Run[S any](ctx context.Context, g *cfg.Graph, initial S, dom Domain[S], opts Options) (*Result[S], error) {
	if opts.Logger == nil {
		opts.Logger = config.NewWriterLogGroup(config.ErrLevel, io.Discard)
	}
	n := len(g.Nodes)
	a := &analysis[S]{
		ctx:     ctx,
		g:       g,
		dom:     dom,
		opts:    opts,
		initial: initial,
		budget:  make([]int, n),
		res:     newResult[S](g, dom),
	}
	if n == 0 {
		return a.res, nil
	}
	nodes := make([]int, n)
	for i := range nodes {
		nodes[i] = i
	}
	a.widening = graphutil.WideningPoints(nodes, []int{g.Entry}, g.Successors)
	opts.Logger.Tracef("%d widening points in graph %s", len(a.widening), g.ID())

	if err := a.ascend(); err != nil {
		return nil, err
	}
	switch opts.Descending {
	case config.DescendingGLB, config.DescendingNarrowing:
		if err := a.descend(); err != nil {
			return nil, err
		}
	}
	a.res.Iterations = a.iterations
	opts.Logger.Debugf("fixpoint of %s reached after %d visits", g.ID(), a.iterations)
	return a.res, nil
}

// visit accounts for one visit of a node and reports cancellation or exhaustion of the budget
func (a *analysis[S]) visit() error {
	if err := a.ctx.Err(); err != nil {
		return err
	}
	a.iterations++
	if a.opts.MaxIterations > 0 && a.iterations > a.opts.MaxIterations {
		return fmt.Errorf("%w (%d visits)", ErrIterationLimit, a.opts.MaxIterations)
	}
	return nil
}

// join returns the new state before node j after receiving s from a predecessor
func (a *analysis[S]) join(j int, old S, s S) S {
	if a.opts.WideningThreshold < 0 || !a.widening[j] || a.budget[j] < a.opts.WideningThreshold {
		a.budget[j]++
		return a.dom.Lub(old, s)
	}
	return a.dom.Widen(old, a.dom.Lub(old, s))
}

func (a *analysis[S]) ascend() error {
	r := a.res
	r.before[a.g.Entry] = a.initial
	a.worklist.Insert(a.g.Entry)
	var i int
	for a.worklist.TakeMin(&i) {
		if err := a.visit(); err != nil {
			return err
		}
		out := a.dom.Transfer(i, r.before[i])
		r.after[i] = out
		r.visited[i] = true
		for _, e := range a.g.Out(i) {
			s := a.dom.Branch(e, out)
			if a.dom.IsBottom(s) {
				continue
			}
			old := r.before[e.To]
			if r.visited[e.To] && a.dom.LessOrEqual(s, old) {
				continue
			}
			next := a.join(e.To, old, s)
			if r.visited[e.To] && a.dom.LessOrEqual(next, old) {
				continue
			}
			r.before[e.To] = next
			a.worklist.Insert(e.To)
		}
	}
	return nil
}

// incoming recomputes the state before node j from the states after its predecessors
func (a *analysis[S]) incoming(j int) S {
	r := a.res
	in := a.dom.Bottom()
	if j == a.g.Entry {
		in = a.initial
	}
	for _, e := range a.g.In(j) {
		if r.visited[e.From] {
			in = a.dom.Lub(in, a.dom.Branch(e, r.after[e.From]))
		}
	}
	return in
}

func (a *analysis[S]) descend() error {
	r := a.res
	for i := range a.budget {
		a.budget[i] = 0
	}
	for i, v := range r.visited {
		if v {
			a.worklist.Insert(i)
		}
	}
	var i int
	for a.worklist.TakeMin(&i) {
		if a.budget[i] >= a.opts.DescendingThreshold {
			continue
		}
		if err := a.visit(); err != nil {
			return err
		}
		old := r.before[i]
		in := a.incoming(i)
		var refined S
		if a.opts.Descending == config.DescendingGLB {
			refined = a.dom.Glb(old, in)
		} else {
			refined = a.dom.Narrow(old, in)
		}
		if a.dom.LessOrEqual(old, refined) {
			continue
		}
		a.budget[i]++
		r.before[i] = refined
		r.after[i] = a.dom.Transfer(i, refined)
		for _, j := range a.g.Successors(i) {
			if r.visited[j] {
				a.worklist.Insert(j)
			}
		}
	}
	return nil
}
