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

import "testing"

var allElements = []Element{Bottom, Clean, Taint, Top}

func TestElementLattice(t *testing.T) {
	for _, a := range allElements {
		if !Bottom.LessOrEqual(a) || !a.LessOrEqual(Top) {
			t.Errorf("%v is not between ⊥ and ⊤", a)
		}
		for _, b := range allElements {
			lub, glb := a.Lub(b), a.Glb(b)
			if lub != b.Lub(a) || glb != b.Glb(a) {
				t.Errorf("lub or glb of %v and %v is not commutative", a, b)
			}
			if !a.LessOrEqual(lub) || !b.LessOrEqual(lub) {
				t.Errorf("%v is not an upper bound of %v and %v", lub, a, b)
			}
			if !glb.LessOrEqual(a) || !glb.LessOrEqual(b) {
				t.Errorf("%v is not a lower bound of %v and %v", glb, a, b)
			}
			if a.LessOrEqual(b) != (lub == b) {
				t.Errorf("order and lub disagree on %v, %v", a, b)
			}
		}
	}
	if Taint.Lub(Clean) != Top || Taint.Glb(Clean) != Bottom {
		t.Errorf("taint and clean should be incomparable")
	}
}

func TestSemantics(t *testing.T) {
	for _, tc := range []struct {
		in   []Element
		want Element
	}{
		{nil, Clean},
		{[]Element{Clean, Clean}, Clean},
		{[]Element{Clean, Taint}, Taint},
		{[]Element{Top, Clean}, Top},
		{[]Element{Top, Taint}, Taint},
		{[]Element{Taint, Bottom}, Bottom},
	} {
		if got := Semantics(tc.in...); got != tc.want {
			t.Errorf("Semantics(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if !Top.IsTaintedOrTop() || !Taint.IsTaintedOrTop() || Clean.IsTaintedOrTop() {
		t.Errorf("unexpected IsTaintedOrTop")
	}
	if !Clean.IsClean() || Top.IsClean() {
		t.Errorf("unexpected IsClean")
	}
}
