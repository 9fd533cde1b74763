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

package lattice

import (
	"sort"
	"strings"

	"github.com/holiman/uint256"
)

// SetBound is the maximum number of concrete values a cell tracks before it becomes TopNumeric
const SetBound = 8

// Tag is the kind of a Cell
type Tag uint8

const (
	// BottomTag is the tag of the unreachable cell
	BottomTag Tag = iota
	// ValueTag is the tag of a cell holding a bounded set of concrete words
	ValueTag
	// TopNotJumpdestTag is the tag of an unknown word that cannot be a jump target
	TopNotJumpdestTag
	// TopNumericTag is the tag of an unknown numeric word
	TopNumericTag
	// TopTag is the tag of the unrestricted unknown word
	TopTag
)

// Cell is an abstract 256-bit word. The zero value is Bottom.
//
// Order: Bottom < Value < TopNumeric < Top and Bottom < TopNotJumpdest < TopNumeric. Values are ordered by
// inclusion.
type Cell struct {
	tag Tag
	// vals is sorted, without duplicates and never mutated once the cell is built
	vals []uint256.Int
}

var (
	// Bottom is the unreachable cell
	Bottom = Cell{tag: BottomTag}
	// Top is any word
	Top = Cell{tag: TopTag}
	// TopNumeric is any numeric word
	TopNumeric = Cell{tag: TopNumericTag}
	// NotJumpdest is any word that is not used as a jump target
	NotJumpdest = Cell{tag: TopNotJumpdestTag}
	// Zero is the constant 0
	Zero = ConstUint64(0)
	// One is the constant 1
	One = ConstUint64(1)
	// ZeroOrOne is the result of an unknown comparison between concrete values
	ZeroOrOne = Values(*uint256.NewInt(0), *uint256.NewInt(1))
)

// Const returns the cell holding exactly v
func Const(v *uint256.Int) Cell {
	return Cell{tag: ValueTag, vals: []uint256.Int{*v}}
}

// ConstUint64 returns the cell holding exactly v
func ConstUint64(v uint64) Cell {
	return Cell{tag: ValueTag, vals: []uint256.Int{*uint256.NewInt(v)}}
}

// Values returns the cell holding the given words. An empty list is Bottom, more than SetBound distinct
// words is TopNumeric.
func Values(vs ...uint256.Int) Cell {
	if len(vs) == 0 {
		return Bottom
	}
	s := make([]uint256.Int, len(vs))
	copy(s, vs)
	sort.Slice(s, func(i, j int) bool { return s[i].Lt(&s[j]) })
	k := 0
	for i := range s {
		if i == 0 || !s[i].Eq(&s[k-1]) {
			s[k] = s[i]
			k++
		}
	}
	if k > SetBound {
		return TopNumeric
	}
	return Cell{tag: ValueTag, vals: s[:k]}
}

// Tag returns the kind of the cell
func (c Cell) Tag() Tag { return c.tag }

func (c Cell) IsBottom() bool { return c.tag == BottomTag }

func (c Cell) IsTop() bool { return c.tag == TopTag }

func (c Cell) IsTopNumeric() bool { return c.tag == TopNumericTag }

func (c Cell) IsTopNotJumpdest() bool { return c.tag == TopNotJumpdestTag }

func (c Cell) IsValue() bool { return c.tag == ValueTag }

// IsUnknown returns true for Top and TopNumeric: cells that may hold any jump target
func (c Cell) IsUnknown() bool { return c.tag == TopTag || c.tag == TopNumericTag }

// Values returns a copy of the concrete words of a Value cell, nil otherwise
func (c Cell) Values() []uint256.Int {
	if c.tag != ValueTag {
		return nil
	}
	res := make([]uint256.Int, len(c.vals))
	copy(res, c.vals)
	return res
}

// Len returns the number of concrete words of the cell
func (c Cell) Len() int { return len(c.vals) }

// Single returns the word of a cell holding exactly one value
func (c Cell) Single() (*uint256.Int, bool) {
	if c.tag == ValueTag && len(c.vals) == 1 {
		v := c.vals[0]
		return &v, true
	}
	return nil, false
}

// Contains returns true if v is one of the concrete words of the cell
func (c Cell) Contains(v *uint256.Int) bool {
	if c.tag != ValueTag {
		return false
	}
	i := sort.Search(len(c.vals), func(i int) bool { return !c.vals[i].Lt(v) })
	return i < len(c.vals) && c.vals[i].Eq(v)
}

// Equal returns true if both cells represent the same set of words
func (c Cell) Equal(d Cell) bool {
	if c.tag != d.tag || len(c.vals) != len(d.vals) {
		return false
	}
	for i := range c.vals {
		if !c.vals[i].Eq(&d.vals[i]) {
			return false
		}
	}
	return true
}

func subset(a, b []uint256.Int) bool {
	j := 0
	for i := range a {
		for j < len(b) && b[j].Lt(&a[i]) {
			j++
		}
		if j == len(b) || !b[j].Eq(&a[i]) {
			return false
		}
	}
	return true
}

// LessOrEqual returns true if c is at most as general as d
func (c Cell) LessOrEqual(d Cell) bool {
	switch {
	case c.tag == BottomTag || d.tag == TopTag:
		return true
	case d.tag == BottomTag || c.tag == TopTag:
		return false
	case d.tag == TopNumericTag:
		return true
	case c.tag == TopNumericTag:
		return false
	case c.tag == TopNotJumpdestTag || d.tag == TopNotJumpdestTag:
		return c.tag == d.tag
	}
	return subset(c.vals, d.vals)
}

// Lub returns the least upper bound of c and d
func (c Cell) Lub(d Cell) Cell {
	if c.LessOrEqual(d) {
		return d
	}
	if d.LessOrEqual(c) {
		return c
	}
	if c.tag == ValueTag && d.tag == ValueTag {
		vs := make([]uint256.Int, 0, len(c.vals)+len(d.vals))
		return Values(append(append(vs, c.vals...), d.vals...)...)
	}
	return TopNumeric
}

// Glb returns the greatest lower bound of c and d
func (c Cell) Glb(d Cell) Cell {
	if c.LessOrEqual(d) {
		return c
	}
	if d.LessOrEqual(c) {
		return d
	}
	if c.tag == ValueTag && d.tag == ValueTag {
		var vs []uint256.Int
		for i := range c.vals {
			if d.Contains(&c.vals[i]) {
				vs = append(vs, c.vals[i])
			}
		}
		return Values(vs...)
	}
	return Bottom
}

// Widen returns the widening of the previous cell c with the new cell d: a set of values that keeps growing
// jumps to TopNumeric.
func (c Cell) Widen(d Cell) Cell {
	if d.LessOrEqual(c) {
		return c
	}
	if c.tag == ValueTag && d.tag == ValueTag {
		return TopNumeric
	}
	return c.Lub(d)
}

// Narrow refines an unknown cell c with the more precise cell d
func (c Cell) Narrow(d Cell) Cell {
	switch c.tag {
	case TopTag, TopNumericTag, TopNotJumpdestTag:
		return c.Glb(d)
	}
	return c
}

// IsDefinitelyTrue returns true if all the words of the cell are non-zero
func (c Cell) IsDefinitelyTrue() bool {
	if c.tag != ValueTag {
		return false
	}
	for i := range c.vals {
		if c.vals[i].IsZero() {
			return false
		}
	}
	return true
}

// IsDefinitelyFalse returns true if the cell is exactly zero
func (c Cell) IsDefinitelyFalse() bool {
	return c.tag == ValueTag && len(c.vals) == 1 && c.vals[0].IsZero()
}

// MayBeTrue returns true if some execution can see a non-zero word
func (c Cell) MayBeTrue() bool { return c.tag != BottomTag && !c.IsDefinitelyFalse() }

// MayBeFalse returns true if some execution can see zero
func (c Cell) MayBeFalse() bool { return c.tag != BottomTag && !c.IsDefinitelyTrue() }

func (c Cell) String() string {
	switch c.tag {
	case BottomTag:
		return "⊥"
	case TopTag:
		return "⊤"
	case TopNumericTag:
		return "⊤num"
	case TopNotJumpdestTag:
		return "⊤njd"
	}
	if len(c.vals) == 1 {
		return c.vals[0].Hex()
	}
	parts := make([]string, len(c.vals))
	for i := range c.vals {
		parts[i] = c.vals[i].Hex()
	}
	return "{" + strings.Join(parts, ",") + "}"
}
