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

package config

const (
	// DefaultStackSize is the number of slots of an abstract stack
	DefaultStackSize = 32
	// DefaultStackSetBound is the maximum number of abstract stacks kept at a program point before the stack set
	// collapses to top
	DefaultStackSetBound = 8
	// DefaultWideningThreshold is the number of joins at a widening point before widening is applied
	DefaultWideningThreshold = 5
	// DefaultDescendingThreshold is the number of greatest-lower-bound refinements per node in the descending phase
	DefaultDescendingThreshold = 5
	// DescendingNone disables the descending phase
	DescendingNone = "none"
	// DescendingGLB refines the ascending post-fixpoint with greatest lower bounds
	DescendingGLB = "glb"
	// DescendingNarrowing refines the ascending post-fixpoint with narrowing
	DescendingNarrowing = "narrowing"
)

// Checker names accepted in the configuration file
const (
	CheckerTxOrigin      = "txorigin"
	CheckerTimestamp     = "timestamp"
	CheckerRandomness    = "randomness"
	CheckerReentrancy    = "reentrancy"
	CheckerUncheckedCall = "uncheckedcall"
	CheckerDelegatecall  = "delegatecall"
	CheckerJumps         = "jumps"
	CheckerCustom        = "custom"
)

// AllCheckers lists the checkers that run when the configuration does not select any
var AllCheckers = []string{
	CheckerTxOrigin,
	CheckerTimestamp,
	CheckerRandomness,
	CheckerReentrancy,
	CheckerUncheckedCall,
	CheckerDelegatecall,
	CheckerJumps,
	CheckerCustom,
}
