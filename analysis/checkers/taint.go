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

package checkers

import (
	"context"
	"strings"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/analysis/taint"
	"github.com/awslabs/ar-evm-tools/internal/funcutil"
)

// TaintChecker reports the sinks of a policy that may receive a tainted operand. When strict, only definitely
// tainted operands are reported; otherwise unknown taint is reported too.
type TaintChecker struct {
	name   string
	policy taint.Policy
	strict bool
	what   string
}

func (c *TaintChecker) Name() string { return c.name }

func (c *TaintChecker) Check(ctx context.Context, in *Input) ([]Warning, error) {
	res, err := in.Taint(ctx, c.policy)
	if err != nil {
		return nil, err
	}
	var warnings []Warning
	for _, i := range taint.TaintedSinks(res, c.policy, c.strict) {
		warnings = append(warnings,
			in.warning(c.name, High, i, "%s reaches %s", c.what, in.Graph.Nodes[i].Op))
	}
	return warnings, nil
}

// TxOriginChecker reports the conditional jumps whose condition or target depends on tx.origin
type TxOriginChecker struct{}

func (c *TxOriginChecker) Name() string { return config.CheckerTxOrigin }

func (c *TxOriginChecker) Check(ctx context.Context, in *Input) ([]Warning, error) {
	origins := in.Graph.NodesWithOp(cfg.ORIGIN)
	if len(origins) == 0 {
		return nil, nil
	}
	res, err := in.Taint(ctx, taint.TxOrigin)
	if err != nil {
		return nil, err
	}
	var warnings []Warning
	for _, j := range taint.TaintedSinks(res, taint.TxOrigin, true) {
		for _, o := range origins {
			if in.Graph.ReachableFrom(o, j) {
				warnings = append(warnings, in.warning(c.Name(), High, j,
					"tx.origin read at pc %#x decides the branch", in.Graph.Nodes[o].PC))
				break
			}
		}
	}
	return warnings, nil
}

// CustomChecker reports the sinks of the user-defined policies that may receive a tainted operand
type CustomChecker struct{}

func (c *CustomChecker) Name() string { return config.CheckerCustom }

func (c *CustomChecker) Check(ctx context.Context, in *Input) ([]Warning, error) {
	byNode := map[int][]string{}
	for _, p := range in.Policies {
		res, err := in.Taint(ctx, p)
		if err != nil {
			return nil, err
		}
		for _, i := range taint.TaintedSinks(res, p, true) {
			byNode[i] = append(byNode[i], p.Name())
		}
	}
	var warnings []Warning
	for _, i := range funcutil.SortedKeys(byNode) {
		warnings = append(warnings, in.warning(c.Name(), High, i, "tainted operand of %s (policies: %s)",
			in.Graph.Nodes[i].Op, strings.Join(byNode[i], ", ")))
	}
	return warnings, nil
}
