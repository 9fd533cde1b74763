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

package taint

import (
	"strings"
	"testing"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/config"
)

func TestBuiltinPolicies(t *testing.T) {
	for _, tc := range []struct {
		name   string
		source cfg.Opcode
		sink   cfg.Opcode
	}{
		{TxOriginPolicy, cfg.ORIGIN, cfg.JUMPI},
		{TimestampPolicy, cfg.TIMESTAMP, cfg.SSTORE},
		{RandomnessPolicy, cfg.BLOCKHASH, cfg.SHA3},
		{DelegatecallPolicy, cfg.CALLDATALOAD, cfg.DELEGATECALL},
		{UncheckedCallPolicy, cfg.CALL, cfg.RETURN},
	} {
		p, ok := Builtin(tc.name)
		if !ok {
			t.Errorf("missing built-in policy %s", tc.name)
			continue
		}
		if !p.IsSource(tc.source) || !p.IsSink(tc.sink) {
			t.Errorf("policy %v: expected source %v and sink %v", p, tc.source, tc.sink)
		}
		if p.IsSource(cfg.ADD) {
			t.Errorf("policy %s should not taint ADD", tc.name)
		}
	}
	if _, ok := Builtin("nope"); ok {
		t.Errorf("unexpected built-in policy")
	}
}

func TestPolicyFromSpec(t *testing.T) {
	p, err := PolicyFromSpec(config.PolicySpec{
		Name:       "caller-to-selfdestruct",
		Sources:    []string{"caller"},
		Sanitizers: []string{"EQ"},
		Sinks:      []string{"SELFDESTRUCT", "keccak256"},
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !p.IsSource(cfg.CALLER) || !p.IsSanitizer(cfg.EQ) || !p.IsSink(cfg.SELFDESTRUCT) || !p.IsSink(cfg.SHA3) {
		t.Errorf("unexpected policy %v", p)
	}
	if sinks := p.Sinks(); len(sinks) != 2 || sinks[0] != cfg.SHA3 {
		t.Errorf("unexpected sinks %v", sinks)
	}
	if s := p.String(); !strings.Contains(s, "sinks: SHA3,SELFDESTRUCT") || !strings.Contains(s, "sources: CALLER;") {
		t.Errorf("unexpected policy text %s", s)
	}
	_, err = PolicyFromSpec(config.PolicySpec{Name: "bad", Sources: []string{"NOTANOPCODE"}})
	if err == nil || !strings.Contains(err.Error(), "NOTANOPCODE") {
		t.Errorf("expected an unknown opcode error, got %v", err)
	}
	c := config.NewDefault()
	c.TaintPolicies = []config.PolicySpec{{Name: "a", Sources: []string{"GAS"}}, {Name: "b", Sources: []string{"COINBASE"}}}
	ps, err := PoliciesFromConfig(c)
	if err != nil || len(ps) != 2 || ps[1].Name() != "b" {
		t.Errorf("unexpected policies %v (%v)", ps, err)
	}
}
