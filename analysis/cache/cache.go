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

// Package cache implements the cache shared by the analyses of all the contracts of a batch. Entries are keyed
// by the content-addressed identifier of a control-flow graph, so identical contracts share their entries.
package cache

import (
	"sync"

	"github.com/awslabs/ar-evm-tools/analysis/checkers"
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Cache is safe for concurrent use. Every read-modify-write happens under a single lock.
type Cache struct {
	mu sync.Mutex

	warnings map[string]mapset.Set[checkers.Warning]
	counters map[string]map[string]int
	sets     map[string]map[string]mapset.Set[uint64]

	// Stored errors
	errors     map[error]bool
	errorMutex sync.Mutex
}

// NewCache returns a properly initialized cache
func NewCache() *Cache {
	return &Cache{
		warnings: map[string]mapset.Set[checkers.Warning]{},
		counters: map[string]map[string]int{},
		sets:     map[string]map[string]mapset.Set[uint64]{},
		errors:   map[error]bool{},
	}
}

// AddWarning records w for the graph cfgID. It returns false when the warning was already recorded.
func (c *Cache) AddWarning(cfgID string, w checkers.Warning) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.warnings[cfgID]
	if !ok {
		s = mapset.NewThreadUnsafeSet[checkers.Warning]()
		c.warnings[cfgID] = s
	}
	return s.Add(w)
}

// Warnings returns the warnings of cfgID sorted by program counter and checker
func (c *Cache) Warnings(cfgID string) []checkers.Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.warnings[cfgID]
	if !ok {
		return nil
	}
	res := s.ToSlice()
	slices.SortFunc(res, func(a, b checkers.Warning) bool {
		if a.PC != b.PC {
			return a.PC < b.PC
		}
		return a.Checker < b.Checker
	})
	return res
}

// NumWarnings returns the number of distinct warnings of every graph
func (c *Cache) NumWarnings() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.warnings {
		n += s.Cardinality()
	}
	return n
}

// Increment adds n to the counter of cfgID and returns the new value
func (c *Cache) Increment(cfgID, counter string, n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.counters[cfgID]
	if !ok {
		m = map[string]int{}
		c.counters[cfgID] = m
	}
	m[counter] += n
	return m[counter]
}

// Counters returns a copy of the counters of cfgID
func (c *Cache) Counters(cfgID string) map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := maps.Clone(c.counters[cfgID])
	if res == nil {
		res = map[string]int{}
	}
	return res
}

// Merge adds values to the set stored under key for cfgID, e.g. the targets of a jump
func (c *Cache) Merge(cfgID, key string, values ...uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.sets[cfgID]
	if !ok {
		m = map[string]mapset.Set[uint64]{}
		c.sets[cfgID] = m
	}
	s, ok := m[key]
	if !ok {
		s = mapset.NewThreadUnsafeSet[uint64]()
		m[key] = s
	}
	for _, v := range values {
		s.Add(v)
	}
}

// Set returns the values merged under key for cfgID, in increasing order
func (c *Cache) Set(cfgID, key string) []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sets[cfgID][key]
	if !ok {
		return nil
	}
	res := s.ToSlice()
	slices.Sort(res)
	return res
}

func (c *Cache) AddError(e error) {
	c.errorMutex.Lock()
	defer c.errorMutex.Unlock()
	if e != nil {
		c.errors[e] = true
	}
}

// Errors returns the errors stored in the cache
func (c *Cache) Errors() []error {
	c.errorMutex.Lock()
	defer c.errorMutex.Unlock()
	res := maps.Keys(c.errors)
	slices.SortFunc(res, func(a, b error) bool { return a.Error() < b.Error() })
	return res
}
