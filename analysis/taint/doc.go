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

/*
Package taint implements a taint analysis of EVM bytecode. The taint state tracks, for each slot of a fixed size
operand stack, whether the value may derive from a taint source, and keeps a single taint element summarizing the
whole memory.

What is a source, a sanitizer or a sink is decided by a [Policy]. The built-in policies cover the detectors of the
checkers package, and additional [OpcodePolicy] values can be declared in the configuration file. The main entry
point is [Analyze], which computes the taint states of every node of a control-flow graph for one policy.
*/
package taint
