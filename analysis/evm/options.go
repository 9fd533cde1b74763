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

package evm

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/analysis/lattice"
)

// storageCacheBytes is the size of the cache in front of storage snapshots
const storageCacheBytes = 32 * 1024 * 1024

// Options parameterize the EVM semantics
type Options struct {
	// StackSize is the capacity of the abstract stacks
	StackSize int
	// StackSetBound is the maximum number of stacks at a program point
	StackSetBound int
	// Address is the value pushed by ADDRESS
	Address lattice.Cell
	// Source answers loads of storage slots that were never written. Can be nil.
	Source StorageSource
}

// DefaultOptions returns the options of the default configuration
func DefaultOptions() Options {
	return Options{
		StackSize:     config.DefaultStackSize,
		StackSetBound: config.DefaultStackSetBound,
		Address:       lattice.NotJumpdest,
	}
}

// OptionsFromConfig builds the options from the configuration. The storage snapshot, if any, is loaded and
// cached.
func OptionsFromConfig(c *config.Config) (Options, error) {
	opts := DefaultOptions()
	opts.StackSize = c.StackSize
	opts.StackSetBound = c.StackSetBound
	if c.ContractAddress != "" {
		addr, err := ParseWord("0x" + strings.TrimPrefix(strings.TrimPrefix(c.ContractAddress, "0x"), "0X"))
		if err != nil {
			return opts, fmt.Errorf("invalid contract address: %w", err)
		}
		opts.Address = lattice.Const(addr)
	}
	if c.StorageSnapshot != "" {
		snapshot, err := LoadSnapshot(c.RelPath(c.StorageSnapshot))
		if err != nil {
			return opts, err
		}
		opts.Source = NewCachedSource(snapshot, storageCacheBytes)
	}
	return opts, nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.StackSize <= 0 {
		o.StackSize = d.StackSize
	}
	if o.StackSetBound <= 0 {
		o.StackSetBound = d.StackSetBound
	}
	if o.Address.IsBottom() {
		o.Address = d.Address
	}
	return o
}
