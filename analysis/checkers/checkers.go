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

// Package checkers implements the vulnerability detectors that read the results of the numeric and taint
// analyses of a contract.
package checkers

import (
	"context"
	"fmt"
	"sync"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/analysis/evm"
	"github.com/awslabs/ar-evm-tools/analysis/fixpoint"
	"github.com/awslabs/ar-evm-tools/analysis/jumps"
	"github.com/awslabs/ar-evm-tools/analysis/taint"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// Severity of a warning
type Severity int

const (
	// Info warnings report a limitation of the analysis rather than a vulnerability
	Info Severity = iota
	// High warnings report a likely vulnerability
	High
)

func (s Severity) String() string {
	if s == Info {
		return "info"
	}
	return "high"
}

// Warning is a finding of a checker at one instruction
type Warning struct {
	Checker  string
	Severity Severity
	PC       uint64
	Line     int
	Message  string
	// Key identifies the warning across runs: <checker>:<cfg-id>:<pc>
	Key string
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s at pc %#x (line %d): %s", w.Checker, w.Severity, w.PC, w.Line, w.Message)
}

// A Checker reports warnings from the analysis results of one contract
type Checker interface {
	Name() string
	Check(ctx context.Context, in *Input) ([]Warning, error)
}

type taintEntry struct {
	once sync.Once
	res  *fixpoint.Result[taint.State]
	err  error
}

// Input holds the analysis results shared by the checkers of one contract. Taint analyses are computed on
// demand, at most once per policy.
type Input struct {
	// ID identifies the contract in the warning keys
	ID      string
	Graph   *cfg.Graph
	Numeric *fixpoint.Result[evm.State]
	Jumps   []jumps.Jump
	// Policies are the user-defined policies checked by the custom checker
	Policies []taint.Policy
	Logger   *config.LogGroup

	taintOpts taint.Options

	mu    sync.Mutex
	taint map[string]*taintEntry
}

// NewInput returns the input of the checkers for the resolution r of the contract identified by id
func NewInput(id string, r *jumps.Resolution, taintOpts taint.Options, policies []taint.Policy,
	logger *config.LogGroup) *Input {
	return &Input{
		ID:        id,
		Graph:     r.Graph,
		Numeric:   r.Result,
		Jumps:     r.Jumps,
		Policies:  policies,
		Logger:    logger,
		taintOpts: taintOpts,
		taint:     map[string]*taintEntry{},
	}
}

// Taint returns the result of the taint analysis of the graph for the policy. Concurrent calls with the same
// policy share one computation.
func (in *Input) Taint(ctx context.Context, p taint.Policy) (*fixpoint.Result[taint.State], error) {
	in.mu.Lock()
	e, ok := in.taint[p.Name()]
	if !ok {
		e = &taintEntry{}
		in.taint[p.Name()] = e
	}
	in.mu.Unlock()
	e.once.Do(func() {
		in.Logger.Debugf("running taint analysis %s on %s", p.Name(), in.ID)
		e.res, e.err = taint.Analyze(ctx, in.Graph, p, in.taintOpts)
	})
	return e.res, e.err
}

// warning builds the warning of checker at node i
func (in *Input) warning(checker string, sev Severity, i int, format string, args ...any) Warning {
	n := in.Graph.Nodes[i]
	return Warning{
		Checker:  checker,
		Severity: sev,
		PC:       n.PC,
		Line:     n.Line,
		Message:  fmt.Sprintf(format, args...),
		Key:      fmt.Sprintf("%s:%s:%d", checker, in.ID, n.PC),
	}
}

// All returns every checker, in the order of config.AllCheckers
func All() []Checker {
	return []Checker{
		&TxOriginChecker{},
		&TaintChecker{name: config.CheckerTimestamp, policy: taint.Timestamp, strict: true,
			what: "block timestamp or block value"},
		&TaintChecker{name: config.CheckerRandomness, policy: taint.Randomness, strict: false,
			what: "block value used as randomness"},
		&ReentrancyChecker{},
		&TaintChecker{name: config.CheckerUncheckedCall, policy: taint.UncheckedCall, strict: true,
			what: "unchecked result of an external call"},
		&TaintChecker{name: config.CheckerDelegatecall, policy: taint.Delegatecall, strict: true,
			what: "call data used as delegatecall address"},
		&JumpsChecker{},
		&CustomChecker{},
	}
}

// ByName returns the checker with the given name
func ByName(name string) (Checker, bool) {
	for _, c := range All() {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Run runs the named checkers in parallel and returns their warnings sorted by program counter, then by
// checker name. Warnings with the same key are reported once.
func Run(ctx context.Context, in *Input, names []string) ([]Warning, error) {
	selected := make([]Checker, 0, len(names))
	for _, name := range names {
		c, ok := ByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown checker %q", name)
		}
		selected = append(selected, c)
	}

	results := make([][]Warning, len(selected))
	group, gctx := errgroup.WithContext(ctx)
	for i, c := range selected {
		i, c := i, c
		group.Go(func() error {
			ws, err := c.Check(gctx, in)
			if err != nil {
				return fmt.Errorf("checker %s: %w", c.Name(), err)
			}
			results[i] = ws
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var warnings []Warning
	for _, ws := range results {
		for _, w := range ws {
			if !seen[w.Key] {
				seen[w.Key] = true
				warnings = append(warnings, w)
			}
		}
	}
	slices.SortFunc(warnings, func(a, b Warning) bool {
		if a.PC != b.PC {
			return a.PC < b.PC
		}
		return a.Checker < b.Checker
	})
	return warnings, nil
}
