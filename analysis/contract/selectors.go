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

package contract

import (
	"encoding/binary"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"golang.org/x/crypto/sha3"
)

// Selector returns the function selector of a signature such as "transfer(address,uint256)": the first four
// bytes of its Keccak-256 hash
func Selector(signature string) uint32 {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return binary.BigEndian.Uint32(h.Sum(nil)[:4])
}

// Entry is a public function found in the dispatcher of a contract
type Entry struct {
	Selector uint32
	// PC is the program counter of the PUSH4 of the selector
	PC uint64
	// Target is the program counter of the function body, when the dispatcher jumps to a pushed constant
	Target uint64
	HasTarget bool
}

// FindSelectors returns the selectors compared by the dispatcher of g, i.e. the PUSH4 instructions followed by
// EQ. The target is the constant pushed before the following JUMPI.
func FindSelectors(g *cfg.Graph) []Entry {
	var entries []Entry
	for i, n := range g.Nodes {
		if n.Op != cfg.PUSH4 || i+1 >= len(g.Nodes) || g.Nodes[i+1].Op != cfg.EQ {
			continue
		}
		e := Entry{Selector: uint32(n.Immediate.Uint64()), PC: n.PC}
		if i+3 < len(g.Nodes) && g.Nodes[i+2].Op.IsPush() && g.Nodes[i+3].Op == cfg.JUMPI {
			if target := g.Nodes[i+2].Immediate; target.IsUint64() {
				e.Target, e.HasTarget = target.Uint64(), true
			}
		}
		entries = append(entries, e)
	}
	return entries
}
