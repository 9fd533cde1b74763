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

package tools

import "regexp"

// Captures errors happening when a contract file does not hold hex-encoded bytecode
var regexInvalidBytecode = regexp.MustCompile("invalid bytecode")

// Captures errors of the checker selection
var regexUnknownChecker = regexp.MustCompile("unknown checker")

// Captures errors in user-defined taint policies
var regexUnknownOpcode = regexp.MustCompile("unknown opcode")

// Captures the kind of error that happen when you put a flag at the end instead of contract files
var regexFlagAfterFiles = regexp.MustCompile("could not read contract: open -(\\w)")

// HintForErrorMessage looks for specific error message and returns some other message that might help the user
// resolve the problem.
func HintForErrorMessage(errMsg string) string {
	if regexFlagAfterFiles.MatchString(errMsg) {
		return "all command line flags should be before the paths to the contracts to analyze"
	}
	if regexInvalidBytecode.MatchString(errMsg) {
		return "contract files must contain the hex-encoded runtime bytecode, optionally prefixed by 0x"
	}
	if regexUnknownChecker.MatchString(errMsg) {
		return "valid checkers are txorigin, timestamp, randomness, reentrancy, uncheckedcall, delegatecall, jumps " +
			"and custom"
	}
	if regexUnknownOpcode.MatchString(errMsg) {
		return "opcodes of taint policies are named by their mnemonic, e.g. CALLDATALOAD or SSTORE"
	}
	return ""
}
