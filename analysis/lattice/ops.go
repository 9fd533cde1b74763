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

import "github.com/holiman/uint256"

// special returns the result of an operation on cells when one of them is not a set of values, and false
// when all of them are. Bottom is absorbing, then Top, TopNumeric and TopNotJumpdest dominate in that order.
func special(cells ...Cell) (Cell, bool) {
	best := ValueTag
	for _, c := range cells {
		if c.tag == BottomTag {
			return Bottom, true
		}
		if rank(c.tag) > rank(best) {
			best = c.tag
		}
	}
	switch best {
	case TopTag:
		return Top, true
	case TopNumericTag:
		return TopNumeric, true
	case TopNotJumpdestTag:
		return NotJumpdest, true
	}
	return Cell{}, false
}

func rank(t Tag) int {
	switch t {
	case TopTag:
		return 3
	case TopNumericTag:
		return 2
	case TopNotJumpdestTag:
		return 1
	}
	return 0
}

// Unary applies f to every word of c. f must write its result in z.
func Unary(c Cell, f func(z, x *uint256.Int)) Cell {
	if r, ok := special(c); ok {
		return r
	}
	res := make([]uint256.Int, len(c.vals))
	for i := range c.vals {
		f(&res[i], &c.vals[i])
	}
	return Values(res...)
}

// Binary applies f to every pair of words of a and b
func Binary(a, b Cell, f func(z, x, y *uint256.Int)) Cell {
	if r, ok := special(a, b); ok {
		return r
	}
	res := make([]uint256.Int, 0, len(a.vals)*len(b.vals))
	for i := range a.vals {
		for j := range b.vals {
			var z uint256.Int
			f(&z, &a.vals[i], &b.vals[j])
			res = append(res, z)
		}
	}
	return Values(res...)
}

// Ternary applies f to every triple of words of a, b and c
func Ternary(a, b, c Cell, f func(z, x, y, w *uint256.Int)) Cell {
	if r, ok := special(a, b, c); ok {
		return r
	}
	res := make([]uint256.Int, 0, len(a.vals)*len(b.vals)*len(c.vals))
	for i := range a.vals {
		for j := range b.vals {
			for k := range c.vals {
				var z uint256.Int
				f(&z, &a.vals[i], &b.vals[j], &c.vals[k])
				res = append(res, z)
			}
		}
	}
	return Values(res...)
}

func boolCell(sawTrue, sawFalse bool) Cell {
	switch {
	case sawTrue && sawFalse:
		return ZeroOrOne
	case sawTrue:
		return One
	}
	return Zero
}

// Compare evaluates the predicate on every pair of words and returns 0, 1 or both. A comparison involving
// an unknown word is NotJumpdest.
func Compare(a, b Cell, pred func(x, y *uint256.Int) bool) Cell {
	if a.IsBottom() || b.IsBottom() {
		return Bottom
	}
	if !a.IsValue() || !b.IsValue() {
		return NotJumpdest
	}
	sawTrue, sawFalse := false, false
	for i := range a.vals {
		for j := range b.vals {
			if pred(&a.vals[i], &b.vals[j]) {
				sawTrue = true
			} else {
				sawFalse = true
			}
		}
	}
	return boolCell(sawTrue, sawFalse)
}

// Test is the unary version of Compare
func Test(a Cell, pred func(x *uint256.Int) bool) Cell {
	if a.IsBottom() {
		return Bottom
	}
	if !a.IsValue() {
		return NotJumpdest
	}
	sawTrue, sawFalse := false, false
	for i := range a.vals {
		if pred(&a.vals[i]) {
			sawTrue = true
		} else {
			sawFalse = true
		}
	}
	return boolCell(sawTrue, sawFalse)
}
