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

package contract

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/awslabs/ar-evm-tools/analysis/cache"
	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/checkers"
	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/analysis/evm"
	"github.com/awslabs/ar-evm-tools/analysis/jumps"
	"github.com/awslabs/ar-evm-tools/analysis/lattice"
	"github.com/awslabs/ar-evm-tools/analysis/taint"
	"github.com/panjf2000/ants/v2"
)

// Options of the pipeline
type Options struct {
	Jumps    jumps.Options
	Taint    taint.Options
	Checkers []string
	Policies []taint.Policy
	// Timeout bounds the analysis of one contract. Zero means no bound.
	Timeout    time.Duration
	NumWorkers int
	ReportsDir string
	// Cache receives the artifacts of every batch run with these options. When nil, each call to AnalyzeAll
	// uses a fresh cache.
	Cache *cache.Cache
	// OnWarning, if set, is called with every warning the cache did not hold yet. Workers call it
	// concurrently.
	OnWarning func(c Contract, w checkers.Warning)
}

// OptionsFromConfig returns the pipeline options of the configuration. The storage snapshot is loaded once and
// shared by all the contracts.
func OptionsFromConfig(c *config.Config, logger *config.LogGroup) (Options, error) {
	jumpOpts, err := jumps.OptionsFromConfig(c, logger)
	if err != nil {
		return Options{}, err
	}
	userPolicies, err := taint.PoliciesFromConfig(c)
	if err != nil {
		return Options{}, err
	}
	policies := make([]taint.Policy, len(userPolicies))
	for i, p := range userPolicies {
		policies[i] = p
	}
	workers := c.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	opts := Options{
		Jumps:      jumpOpts,
		Taint:      taint.OptionsFromConfig(c, logger),
		Checkers:   c.EnabledCheckers(),
		Policies:   policies,
		Timeout:    time.Duration(c.TimeoutSeconds) * time.Second,
		NumWorkers: workers,
	}
	if c.ReportsDir != "" {
		opts.ReportsDir = c.RelPath(c.ReportsDir)
	}
	return opts, nil
}

// Stats are the statistics of the analysis of one contract
type Stats struct {
	Opcodes      int
	BasicBlocks  int
	Jumps        int
	PushedJumps  int
	Resolved     int
	Unreachable  int
	MaybeUnsound int
	Rounds       int
	Loops        int
	Warnings     int
	Duration     time.Duration
}

// Result is the outcome of the analysis of a contract. When Err is set, the jumps are all classified as
// possibly unsound and no checker ran.
type Result struct {
	Contract   Contract
	CFGID      string
	Resolution *jumps.Resolution
	Jumps      []jumps.Jump
	Selectors  []Entry
	Warnings   []checkers.Warning
	Stats      Stats
	Err        error
}

// Failed returns true if the analysis did not complete
func (r Result) Failed() bool { return r.Err != nil }

func (r *Result) countJumps(g *cfg.Graph) {
	r.Stats.Jumps = len(r.Jumps)
	r.Stats.PushedJumps = len(g.PushedJumps())
	r.Stats.Resolved, r.Stats.Unreachable, r.Stats.MaybeUnsound = 0, 0, 0
	for _, j := range r.Jumps {
		switch j.Class {
		case jumps.Resolved:
			r.Stats.Resolved++
		case jumps.Unreachable:
			r.Stats.Unreachable++
		case jumps.MaybeUnsound:
			r.Stats.MaybeUnsound++
		}
	}
}

func withAddress(opts jumps.Options, address string) (jumps.Options, error) {
	if address == "" {
		return opts, nil
	}
	addr, err := evm.ParseWord("0x" + strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X"))
	if err != nil {
		return opts, fmt.Errorf("invalid address %q: %w", address, err)
	}
	opts.EVM.Address = lattice.Const(addr)
	return opts, nil
}

// Analyze runs the pipeline on c and posts the warnings and counters in the cache. Failures are reported in
// the result.
func Analyze(ctx context.Context, c Contract, opts Options, logger *config.LogGroup, cc *cache.Cache) (r Result) {
	start := time.Now()
	r.Contract = c
	defer func() {
		r.Stats.Duration = time.Since(start)
	}()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	g, err := cfg.Build(c.Bytecode)
	if err != nil {
		r.Err = fmt.Errorf("contract %s: %w", c.Name, err)
		cc.AddError(r.Err)
		logger.Warnf("%v", r.Err)
		return r
	}
	r.CFGID = g.ID()
	r.Stats.Opcodes = len(g.Nodes)
	r.Stats.BasicBlocks = len(g.BasicBlocks())
	r.Selectors = FindSelectors(g)
	for _, e := range r.Selectors {
		cc.Merge(r.CFGID, "selectors", uint64(e.Selector))
	}

	fail := func(err error) Result {
		r.Err = fmt.Errorf("contract %s: %w", c.Name, err)
		r.Jumps = jumps.Unresolved(g)
		r.countJumps(g)
		cc.Increment(r.CFGID, "failures", 1)
		cc.AddError(r.Err)
		logger.Warnf("analysis of %s failed, all its jumps may be unsound: %v", c.Name, err)
		return r
	}

	jumpOpts, err := withAddress(opts.Jumps, c.Address)
	if err != nil {
		return fail(err)
	}
	res, err := jumps.Resolve(ctx, g, jumpOpts, logger)
	if err != nil {
		return fail(err)
	}
	r.Resolution = res
	r.Jumps = res.Jumps
	r.Stats.Rounds = res.Rounds
	r.Stats.Loops = res.Stats().Loops
	r.countJumps(res.Graph)
	for _, j := range res.Filter(jumps.Resolved) {
		cc.Merge(r.CFGID, fmt.Sprintf("jump:%d", j.PC), j.Targets...)
	}

	in := checkers.NewInput(r.CFGID, res, opts.Taint, opts.Policies, logger)
	warnings, err := checkers.Run(ctx, in, opts.Checkers)
	if err != nil {
		return fail(err)
	}
	for _, w := range warnings {
		if cc.AddWarning(r.CFGID, w) {
			cc.Increment(r.CFGID, w.Checker, 1)
			if opts.OnWarning != nil {
				opts.OnWarning(c, w)
			}
		}
	}
	r.Warnings = warnings
	r.Stats.Warnings = len(warnings)
	cc.Increment(r.CFGID, "analyses", 1)

	if opts.ReportsDir != "" {
		if err := WriteReports(opts.ReportsDir, r); err != nil {
			logger.Errorf("could not write the reports of %s: %v", c.Name, err)
			cc.AddError(err)
		}
	}
	logger.Infof("%s: %d jumps (%d resolved, %d unreachable, %d maybe unsound), %d warnings",
		c.Name, r.Stats.Jumps, r.Stats.Resolved, r.Stats.Unreachable, r.Stats.MaybeUnsound, r.Stats.Warnings)
	return r
}

// AnalyzeAll analyzes the contracts on a pool of opts.NumWorkers goroutines and returns the cache they posted
// into, opts.Cache when set. The results are in the order of contracts. A failing contract never stops the
// others. The error is only set when the pool cannot be created.
func AnalyzeAll(ctx context.Context, contracts []Contract, opts Options,
	logger *config.LogGroup) ([]Result, *cache.Cache, error) {
	cc := opts.Cache
	if cc == nil {
		cc = cache.NewCache()
	}
	workers := opts.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create worker pool: %w", err)
	}
	defer pool.Release()

	start := time.Now()
	results := make([]Result, len(contracts))
	var wg sync.WaitGroup
	for i := range contracts {
		i := i
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i] = Analyze(ctx, contracts[i], opts, logger, cc)
		})
		if err != nil {
			wg.Done()
			results[i] = Result{Contract: contracts[i], Err: fmt.Errorf("could not schedule: %w", err)}
			cc.AddError(results[i].Err)
		}
	}
	wg.Wait()
	logger.Infof("analyzed %d contracts in %.2f s", len(contracts), time.Since(start).Seconds())
	return results, cc, nil
}
