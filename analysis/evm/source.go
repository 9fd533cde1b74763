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
	"math/big"
	"os"
	"strings"
	"sync/atomic"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// StorageSource gives the initial value of storage slots
type StorageSource interface {
	// Load returns the value of slot, and false if the value is not known
	Load(slot *uint256.Int) (*uint256.Int, bool)
}

// ParseWord parses a 256-bit word written in hexadecimal with a 0x prefix, or in decimal
func ParseWord(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	b := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = b.SetString(s[2:], 16)
	} else {
		_, ok = b.SetString(s, 10)
	}
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("invalid word %q", s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("word %q does not fit in 256 bits", s)
	}
	return v, nil
}

// SnapshotSource is a storage source holding a fixed set of slot values
type SnapshotSource struct {
	values map[uint256.Int]uint256.Int
}

// NewSnapshotSource returns a source holding a copy of values
func NewSnapshotSource(values map[uint256.Int]uint256.Int) *SnapshotSource {
	s := &SnapshotSource{values: make(map[uint256.Int]uint256.Int, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// LoadSnapshot reads a yaml file mapping slots to values
func LoadSnapshot(filename string) (*SnapshotSource, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read storage snapshot: %w", err)
	}
	raw := map[string]string{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("could not parse storage snapshot %s: %w", filename, err)
	}
	values := make(map[uint256.Int]uint256.Int, len(raw))
	for k, v := range raw {
		slot, err := ParseWord(k)
		if err != nil {
			return nil, fmt.Errorf("storage snapshot %s: %w", filename, err)
		}
		val, err := ParseWord(v)
		if err != nil {
			return nil, fmt.Errorf("storage snapshot %s: %w", filename, err)
		}
		values[*slot] = *val
	}
	return &SnapshotSource{values: values}, nil
}

func (s *SnapshotSource) Load(slot *uint256.Int) (*uint256.Int, bool) {
	v, ok := s.values[*slot]
	if !ok {
		return nil, false
	}
	return &v, true
}

// Len returns the number of slots in the snapshot
func (s *SnapshotSource) Len() int { return len(s.values) }

// CachedSource keeps the answers of another source in a fastcache. Unknown slots are cached too.
// It is safe for concurrent use if the inner source is.
type CachedSource struct {
	inner  StorageSource
	cache  *fastcache.Cache
	misses uint64
}

// NewCachedSource wraps inner with a cache of at most maxBytes bytes
func NewCachedSource(inner StorageSource, maxBytes int) *CachedSource {
	return &CachedSource{inner: inner, cache: fastcache.New(maxBytes)}
}

func (c *CachedSource) Load(slot *uint256.Int) (*uint256.Int, bool) {
	key := slot.Bytes32()
	if b, ok := c.cache.HasGet(nil, key[:]); ok {
		if len(b) == 0 {
			return nil, false
		}
		return new(uint256.Int).SetBytes(b), true
	}
	atomic.AddUint64(&c.misses, 1)
	v, ok := c.inner.Load(slot)
	if !ok {
		c.cache.Set(key[:], nil)
		return nil, false
	}
	val := v.Bytes32()
	c.cache.Set(key[:], val[:])
	return v, true
}

// Misses returns the number of queries forwarded to the inner source
func (c *CachedSource) Misses() uint64 { return atomic.LoadUint64(&c.misses) }
