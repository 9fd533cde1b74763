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

import (
	"strings"
	"testing"
)

func validateHint(t *testing.T, errorMsg string, containedHint string) {
	hint := HintForErrorMessage(errorMsg)
	if !strings.Contains(hint, containedHint) {
		t.Fatalf("incorrect hint; check and update error message if necessary")
	}
}

func TestHintForFlagAfterFiles(t *testing.T) {
	errorMsg := "error: could not read contract: open -verbose: no such file or directory"
	validateHint(t, errorMsg, "all command line flags should be before the paths")
}

func TestHintForInvalidBytecode(t *testing.T) {
	errorMsg := "error: contract a.hex: encoding/hex: invalid byte: U+007A 'z': invalid bytecode"
	validateHint(t, errorMsg, "hex-encoded runtime bytecode")
}

func TestHintForUnknownChecker(t *testing.T) {
	validateHint(t, `error: unknown checker "overflow"`, "valid checkers are")
}

func TestHintForUnknownOpcode(t *testing.T) {
	validateHint(t, `error: sources of policy p: unknown opcode "CALLDATA"`, "named by their mnemonic")
}

func TestNoHint(t *testing.T) {
	if hint := HintForErrorMessage("error: something else"); hint != "" {
		t.Errorf("unexpected hint %q", hint)
	}
}
