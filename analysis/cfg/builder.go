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

package cfg

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/holiman/uint256"
	"github.com/willf/bitset"
)

// ErrInvalidBytecode is returned when the bytecode cannot be decoded
var ErrInvalidBytecode = errors.New("invalid bytecode")

// ParseHex decodes a hexadecimal bytecode string. An optional 0x prefix and whitespace are accepted.
func ParseHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, fmt.Errorf("empty input: %w", ErrInvalidBytecode)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidBytecode)
	}
	return b, nil
}

// immediateBitmap marks the bytes of code that are PUSH operands
func immediateBitmap(code []byte) *bitset.BitSet {
	bits := bitset.New(uint(len(code)))
	for pc := 0; pc < len(code); {
		op := Opcode(code[pc])
		n := op.ImmediateSize()
		for i := 1; i <= n && pc+i < len(code); i++ {
			bits.Set(uint(pc + i))
		}
		pc += 1 + n
	}
	return bits
}

// ValidJumpdests returns the program counters of the JUMPDEST bytes that are not PUSH operands
func ValidJumpdests(code []byte) []uint64 {
	bits := immediateBitmap(code)
	var res []uint64
	for pc, b := range code {
		if Opcode(b) == JUMPDEST && !bits.Test(uint(pc)) {
			res = append(res, uint64(pc))
		}
	}
	return res
}

// Build decodes the bytecode and returns its initial control-flow graph. Every instruction is linked to the
// next one unless it is a JUMP or a terminal instruction; a JUMPI is linked to the next instruction by a
// false edge. Jumps whose target is pushed by the preceding instruction are linked to that target when it
// is a valid jump destination. The other jumps are left for the jump resolution.
func Build(code []byte) (*Graph, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("no instruction: %w", ErrInvalidBytecode)
	}
	var nodes []*Node
	for pc := 0; pc < len(code); {
		op := Opcode(code[pc])
		n := &Node{ID: len(nodes), PC: uint64(pc), Op: op, Line: len(nodes) + 1}
		if op.IsPush() {
			size := op.ImmediateSize()
			// missing trailing bytes read as zeros
			imm := make([]byte, size)
			if pc+1 < len(code) {
				copy(imm, code[pc+1:min(pc+1+size, len(code))])
			}
			n.Immediate = new(uint256.Int).SetBytes(imm)
		}
		nodes = append(nodes, n)
		pc += 1 + op.ImmediateSize()
	}

	g := newGraph(nodes)
	for _, pc := range ValidJumpdests(code) {
		if _, ok := g.pcIndex[pc]; !ok {
			return nil, fmt.Errorf("jumpdest at %#x is not an instruction: %w", pc, ErrInvalidBytecode)
		}
	}
	for i, n := range nodes {
		last := i == len(nodes)-1
		switch {
		case n.Op == JUMP:
		case n.Op == JUMPI:
			if !last {
				g.AddEdge(i, i+1, False)
			}
		case n.Op.IsTerminal():
		default:
			if !last {
				g.AddEdge(i, i+1, Sequential)
			}
		}
		if n.Op.IsJump() && i > 0 && nodes[i-1].Op.IsPush() {
			g.pushedJumps[i] = true
			target := nodes[i-1].Immediate
			if target.IsUint64() && g.IsJumpdest(target.Uint64()) {
				kind := Sequential
				if n.Op == JUMPI {
					kind = True
				}
				g.AddEdge(i, g.pcIndex[target.Uint64()], kind)
			}
		}
	}
	return g, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
