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
	"strings"

	"github.com/awslabs/ar-evm-tools/analysis/lattice"
	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// wordSize is the number of bytes of an EVM word
const wordSize = 32

// cellMap maps addresses to cells. Maps are never mutated once built: updates return a copy.
type cellMap[K comparable] map[K]lattice.Cell

func (m cellMap[K]) with(k K, v lattice.Cell) cellMap[K] {
	res := maps.Clone(m)
	if res == nil {
		res = cellMap[K]{}
	}
	res[k] = v
	return res
}

// join combines the entries present in both maps with both, and maps the keys present in only one of them
// to one(value).
func (m cellMap[K]) join(o cellMap[K], both func(a, b lattice.Cell) lattice.Cell,
	one func(v lattice.Cell) lattice.Cell) cellMap[K] {
	res := make(cellMap[K], len(m))
	for k, v := range m {
		if w, ok := o[k]; ok {
			res[k] = both(v, w)
		} else {
			res[k] = one(v)
		}
	}
	for k, w := range o {
		if _, ok := m[k]; !ok {
			res[k] = one(w)
		}
	}
	return res
}

func toTop(lattice.Cell) lattice.Cell { return lattice.Top }

func keep(v lattice.Cell) lattice.Cell { return v }

// lessOrEqual compares the maps entry-wise. A key absent from o stands for Top when absentTopO is set, and
// for an unknown initial value otherwise, which is only below Top.
func (m cellMap[K]) lessOrEqual(o cellMap[K], absentTopO bool) bool {
	for k, v := range m {
		w, ok := o[k]
		switch {
		case ok:
			if !v.LessOrEqual(w) {
				return false
			}
		case !absentTopO:
			return false
		}
	}
	for k, w := range o {
		if _, ok := m[k]; ok {
			continue
		}
		if !w.IsTop() {
			return false
		}
	}
	return true
}

func (m cellMap[K]) equal(o cellMap[K]) bool {
	return maps.EqualFunc(m, o, lattice.Cell.Equal)
}

// Memory abstracts the linear memory by the words stored at concrete byte offsets. Offsets that are not
// tracked hold an unknown word.
type Memory struct {
	words cellMap[uint64]
}

// Load returns the word at offset
func (m Memory) Load(offset uint64) lattice.Cell {
	if v, ok := m.words[offset]; ok {
		return v
	}
	return lattice.Top
}

func (m Memory) update(offset uint64, v lattice.Cell, size uint64, track bool) Memory {
	res := maps.Clone(m.words)
	if res == nil {
		res = cellMap[uint64]{}
	}
	// forget the words sharing a byte with [offset, offset+size)
	maps.DeleteFunc(res, func(k uint64, _ lattice.Cell) bool {
		return k == offset || (k < offset+size && offset < k+wordSize)
	})
	if track && !v.IsTop() {
		res[offset] = v
	}
	return Memory{words: res}
}

// Store returns the memory where the word at offset is exactly v. The words overlapping it are forgotten.
func (m Memory) Store(offset uint64, v lattice.Cell) Memory {
	return m.update(offset, v, wordSize, true)
}

// WeakStore returns the memory where the word at offset may be v or its previous content
func (m Memory) WeakStore(offset uint64, v lattice.Cell) Memory {
	return m.update(offset, m.Load(offset).Lub(v), wordSize, true)
}

// StoreByte returns the memory after a single byte write at offset
func (m Memory) StoreByte(offset uint64) Memory {
	return m.update(offset, lattice.Top, 1, false)
}

// Clobber returns the memory where nothing is known
func (m Memory) Clobber() Memory { return Memory{} }

// Len returns the number of tracked words
func (m Memory) Len() int { return len(m.words) }

func (m Memory) Lub(o Memory) Memory {
	return Memory{words: m.words.join(o.words, lattice.Cell.Lub, toTop)}
}

func (m Memory) Glb(o Memory) Memory {
	return Memory{words: m.words.join(o.words, lattice.Cell.Glb, keep)}
}

func (m Memory) Widen(o Memory) Memory {
	return Memory{words: m.words.join(o.words, lattice.Cell.Widen, toTop)}
}

func (m Memory) LessOrEqual(o Memory) bool { return m.words.lessOrEqual(o.words, true) }

func (m Memory) Equal(o Memory) bool { return m.words.equal(o.words) }

func (m Memory) String() string {
	keys := maps.Keys(m.words)
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = uint256.NewInt(k).Hex() + ":" + m.words[k].String()
	}
	return "mem{" + strings.Join(parts, " ") + "}"
}

// Storage abstracts the persistent storage of the contract. A slot that was never written holds its
// initial value, given by a StorageSource when one is available, unless the storage was clobbered by a write
// to an unknown slot.
type Storage struct {
	slots     cellMap[uint256.Int]
	clobbered bool
}

// Load returns the word stored at slot
func (s Storage) Load(slot *uint256.Int, src StorageSource) lattice.Cell {
	if v, ok := s.slots[*slot]; ok {
		return v
	}
	if s.clobbered || src == nil {
		return lattice.Top
	}
	if v, ok := src.Load(slot); ok {
		return lattice.Const(v)
	}
	return lattice.Top
}

// Store returns the storage where slot holds exactly v
func (s Storage) Store(slot *uint256.Int, v lattice.Cell) Storage {
	return Storage{slots: s.slots.with(*slot, v), clobbered: s.clobbered}
}

// WeakStore returns the storage where slot may hold v or its previous content
func (s Storage) WeakStore(slot *uint256.Int, v lattice.Cell, src StorageSource) Storage {
	return s.Store(slot, s.Load(slot, src).Lub(v))
}

// Clobber returns the storage after a write to an unknown slot
func (s Storage) Clobber() Storage { return Storage{clobbered: true} }

// IsClobbered returns true if a write to an unknown slot happened
func (s Storage) IsClobbered() bool { return s.clobbered }

// Len returns the number of tracked slots
func (s Storage) Len() int { return len(s.slots) }

func (s Storage) Lub(o Storage) Storage {
	return Storage{slots: s.slots.join(o.slots, lattice.Cell.Lub, toTop), clobbered: s.clobbered || o.clobbered}
}

func (s Storage) Glb(o Storage) Storage {
	return Storage{slots: s.slots.join(o.slots, lattice.Cell.Glb, keep), clobbered: s.clobbered && o.clobbered}
}

func (s Storage) Widen(o Storage) Storage {
	return Storage{slots: s.slots.join(o.slots, lattice.Cell.Widen, toTop), clobbered: s.clobbered || o.clobbered}
}

func (s Storage) LessOrEqual(o Storage) bool {
	if s.clobbered && !o.clobbered {
		return false
	}
	return s.slots.lessOrEqual(o.slots, o.clobbered)
}

func (s Storage) Equal(o Storage) bool {
	return s.clobbered == o.clobbered && s.slots.equal(o.slots)
}

func (s Storage) String() string {
	keys := maps.Keys(s.slots)
	slices.SortFunc(keys, func(a, b uint256.Int) bool { return a.Lt(&b) })
	parts := make([]string, len(keys))
	for i := range keys {
		parts[i] = keys[i].Hex() + ":" + s.slots[keys[i]].String()
	}
	prefix := "storage{"
	if s.clobbered {
		prefix = "storage*{"
	}
	return prefix + strings.Join(parts, " ") + "}"
}
