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
	"fmt"
	"strings"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/internal/funcutil"
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"
)

// A Policy decides which instructions introduce taint, which ones produce clean values regardless of their
// operands, and which ones must not receive tainted operands.
type Policy interface {
	Name() string
	IsSource(op cfg.Opcode) bool
	IsSanitizer(op cfg.Opcode) bool
	IsSink(op cfg.Opcode) bool
}

// OpcodePolicy is a Policy defined by sets of opcodes
type OpcodePolicy struct {
	name       string
	sources    mapset.Set[cfg.Opcode]
	sanitizers mapset.Set[cfg.Opcode]
	sinks      mapset.Set[cfg.Opcode]
}

// NewOpcodePolicy returns the policy with the given sources, sanitizers and sinks
func NewOpcodePolicy(name string, sources, sanitizers, sinks []cfg.Opcode) *OpcodePolicy {
	return &OpcodePolicy{
		name:       name,
		sources:    mapset.NewSet(sources...),
		sanitizers: mapset.NewSet(sanitizers...),
		sinks:      mapset.NewSet(sinks...),
	}
}

func (p *OpcodePolicy) Name() string { return p.name }

func (p *OpcodePolicy) IsSource(op cfg.Opcode) bool { return p.sources.Contains(op) }

func (p *OpcodePolicy) IsSanitizer(op cfg.Opcode) bool { return p.sanitizers.Contains(op) }

func (p *OpcodePolicy) IsSink(op cfg.Opcode) bool { return p.sinks.Contains(op) }

// Sinks returns the sink opcodes in increasing order
func (p *OpcodePolicy) Sinks() []cfg.Opcode {
	res := p.sinks.ToSlice()
	slices.Sort(res)
	return res
}

func (p *OpcodePolicy) String() string {
	names := func(s mapset.Set[cfg.Opcode]) string {
		ops := s.ToSlice()
		slices.Sort(ops)
		return strings.Join(funcutil.Map(ops, cfg.Opcode.String), ",")
	}
	return fmt.Sprintf("%s{sources: %s; sanitizers: %s; sinks: %s}",
		p.name, names(p.sources), names(p.sanitizers), names(p.sinks))
}

// Names of the built-in policies
const (
	TxOriginPolicy      = "tx-origin"
	TimestampPolicy     = "timestamp"
	RandomnessPolicy    = "randomness"
	DelegatecallPolicy  = "delegatecall-address"
	UncheckedCallPolicy = "unchecked-call"
)

var (
	// TxOrigin taints the value of ORIGIN
	TxOrigin = NewOpcodePolicy(TxOriginPolicy,
		[]cfg.Opcode{cfg.ORIGIN}, nil, []cfg.Opcode{cfg.JUMPI})
	// Timestamp taints the block values a miner can influence
	Timestamp = NewOpcodePolicy(TimestampPolicy,
		[]cfg.Opcode{cfg.TIMESTAMP, cfg.BLOCKHASH, cfg.DIFFICULTY, cfg.BALANCE}, nil,
		[]cfg.Opcode{cfg.JUMP, cfg.JUMPI, cfg.SSTORE, cfg.SHA3})
	// Randomness taints the block values used as a source of randomness
	Randomness = NewOpcodePolicy(RandomnessPolicy,
		[]cfg.Opcode{cfg.TIMESTAMP, cfg.BLOCKHASH, cfg.DIFFICULTY, cfg.BALANCE}, nil,
		[]cfg.Opcode{cfg.JUMP, cfg.JUMPI, cfg.SSTORE, cfg.SHA3})
	// Delegatecall taints the call data
	Delegatecall = NewOpcodePolicy(DelegatecallPolicy,
		[]cfg.Opcode{cfg.CALLDATALOAD, cfg.CALLDATACOPY}, nil, []cfg.Opcode{cfg.DELEGATECALL})
	// UncheckedCall taints the success flag of external calls
	UncheckedCall = NewOpcodePolicy(UncheckedCallPolicy,
		[]cfg.Opcode{cfg.CALL, cfg.STATICCALL, cfg.CALLCODE, cfg.DELEGATECALL}, nil, []cfg.Opcode{cfg.RETURN})
)

// Builtin returns the built-in policy with that name
func Builtin(name string) (*OpcodePolicy, bool) {
	for _, p := range []*OpcodePolicy{TxOrigin, Timestamp, Randomness, Delegatecall, UncheckedCall} {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

func opcodes(names []string) ([]cfg.Opcode, error) {
	res := make([]cfg.Opcode, 0, len(names))
	for _, name := range names {
		op, ok := cfg.OpcodeByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown opcode %q", name)
		}
		res = append(res, op)
	}
	return res, nil
}

// PolicyFromSpec builds the policy declared in a configuration file
func PolicyFromSpec(spec config.PolicySpec) (*OpcodePolicy, error) {
	sources, err := opcodes(spec.Sources)
	if err != nil {
		return nil, fmt.Errorf("sources of policy %s: %w", spec.Name, err)
	}
	sanitizers, err := opcodes(spec.Sanitizers)
	if err != nil {
		return nil, fmt.Errorf("sanitizers of policy %s: %w", spec.Name, err)
	}
	sinks, err := opcodes(spec.Sinks)
	if err != nil {
		return nil, fmt.Errorf("sinks of policy %s: %w", spec.Name, err)
	}
	return NewOpcodePolicy(spec.Name, sources, sanitizers, sinks), nil
}

// PoliciesFromConfig returns the user-defined policies of the configuration
func PoliciesFromConfig(c *config.Config) ([]*OpcodePolicy, error) {
	res := make([]*OpcodePolicy, 0, len(c.TaintPolicies))
	for _, spec := range c.TaintPolicies {
		p, err := PolicyFromSpec(spec)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}
