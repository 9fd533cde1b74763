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

// Element is the taint of one value. Bottom and Top are the extremes of the lattice; Taint and Clean are
// incomparable.
type Element uint8

const (
	Bottom Element = iota
	Clean
	Taint
	Top
)

func (e Element) IsBottom() bool { return e == Bottom }

func (e Element) IsTop() bool { return e == Top }

func (e Element) IsTaint() bool { return e == Taint }

func (e Element) IsClean() bool { return e == Clean }

// IsTaintedOrTop returns true when the value may be tainted
func (e Element) IsTaintedOrTop() bool { return e == Taint || e == Top }

func (e Element) Lub(f Element) Element {
	switch {
	case e == f || f == Bottom:
		return e
	case e == Bottom:
		return f
	}
	return Top
}

func (e Element) Glb(f Element) Element {
	switch {
	case e == f || f == Top:
		return e
	case e == Top:
		return f
	}
	return Bottom
}

func (e Element) LessOrEqual(f Element) bool {
	return e == f || e == Bottom || f == Top
}

func (e Element) String() string {
	switch e {
	case Bottom:
		return "⊥"
	case Clean:
		return "clean"
	case Taint:
		return "taint"
	}
	return "⊤"
}

// Semantics is the taint of a value computed from operands: Bottom if an operand is Bottom, otherwise Taint if an
// operand is tainted, otherwise Top if an operand is Top, otherwise Clean.
func Semantics(elts ...Element) Element {
	res := Clean
	for _, e := range elts {
		switch {
		case e == Bottom:
			return Bottom
		case e == Taint:
			res = Taint
		case e == Top && res == Clean:
			res = Top
		}
	}
	return res
}
