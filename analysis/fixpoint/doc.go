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

// Package fixpoint computes the abstract states of every node of a control-flow graph for an abstract domain.
//
// The ascending phase is a worklist iteration in program counter order. At widening points (the entries of
// the cycles of the graph) the incoming states are joined a bounded number of times before the widening
// operator is applied, so that every ascending chain is finite. An optional descending phase then refines the
// post-fixpoint, either with greatest lower bounds for a bounded number of rounds or with the narrowing
// operator of the domain.
//
// A Result gives access to the state before and after every node. Nodes that were never reached have no
// state.
package fixpoint
