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
	"fmt"
	"strings"
)

// Opcode is a single EVM instruction byte
type Opcode byte

// Opcodes with a dedicated treatment in the analyses. The other opcodes are accessed through the table.
const (
	STOP           Opcode = 0x00
	ADD            Opcode = 0x01
	MUL            Opcode = 0x02
	SUB            Opcode = 0x03
	DIV            Opcode = 0x04
	SDIV           Opcode = 0x05
	MOD            Opcode = 0x06
	SMOD           Opcode = 0x07
	ADDMOD         Opcode = 0x08
	MULMOD         Opcode = 0x09
	EXP            Opcode = 0x0a
	SIGNEXTEND     Opcode = 0x0b
	LT             Opcode = 0x10
	GT             Opcode = 0x11
	SLT            Opcode = 0x12
	SGT            Opcode = 0x13
	EQ             Opcode = 0x14
	ISZERO         Opcode = 0x15
	AND            Opcode = 0x16
	OR             Opcode = 0x17
	XOR            Opcode = 0x18
	NOT            Opcode = 0x19
	BYTE           Opcode = 0x1a
	SHL            Opcode = 0x1b
	SHR            Opcode = 0x1c
	SAR            Opcode = 0x1d
	SHA3           Opcode = 0x20
	ADDRESS        Opcode = 0x30
	BALANCE        Opcode = 0x31
	ORIGIN         Opcode = 0x32
	CALLER         Opcode = 0x33
	CALLVALUE      Opcode = 0x34
	CALLDATALOAD   Opcode = 0x35
	CALLDATASIZE   Opcode = 0x36
	CALLDATACOPY   Opcode = 0x37
	CODESIZE       Opcode = 0x38
	CODECOPY       Opcode = 0x39
	GASPRICE       Opcode = 0x3a
	EXTCODESIZE    Opcode = 0x3b
	EXTCODECOPY    Opcode = 0x3c
	RETURNDATASIZE Opcode = 0x3d
	RETURNDATACOPY Opcode = 0x3e
	EXTCODEHASH    Opcode = 0x3f
	BLOCKHASH      Opcode = 0x40
	COINBASE       Opcode = 0x41
	TIMESTAMP      Opcode = 0x42
	NUMBER         Opcode = 0x43
	DIFFICULTY     Opcode = 0x44
	GASLIMIT       Opcode = 0x45
	CHAINID        Opcode = 0x46
	SELFBALANCE    Opcode = 0x47
	BASEFEE        Opcode = 0x48
	BLOBHASH       Opcode = 0x49
	BLOBBASEFEE    Opcode = 0x4a
	POP            Opcode = 0x50
	MLOAD          Opcode = 0x51
	MSTORE         Opcode = 0x52
	MSTORE8        Opcode = 0x53
	SLOAD          Opcode = 0x54
	SSTORE         Opcode = 0x55
	JUMP           Opcode = 0x56
	JUMPI          Opcode = 0x57
	PC             Opcode = 0x58
	MSIZE          Opcode = 0x59
	GAS            Opcode = 0x5a
	JUMPDEST       Opcode = 0x5b
	TLOAD          Opcode = 0x5c
	TSTORE         Opcode = 0x5d
	MCOPY          Opcode = 0x5e
	PUSH0          Opcode = 0x5f
	PUSH1          Opcode = 0x60
	PUSH2          Opcode = 0x61
	PUSH4          Opcode = 0x63
	PUSH32         Opcode = 0x7f
	DUP1           Opcode = 0x80
	DUP16          Opcode = 0x8f
	SWAP1          Opcode = 0x90
	SWAP16         Opcode = 0x9f
	LOG0           Opcode = 0xa0
	LOG4           Opcode = 0xa4
	CREATE         Opcode = 0xf0
	CALL           Opcode = 0xf1
	CALLCODE       Opcode = 0xf2
	RETURN         Opcode = 0xf3
	DELEGATECALL   Opcode = 0xf4
	CREATE2        Opcode = 0xf5
	STATICCALL     Opcode = 0xfa
	REVERT         Opcode = 0xfd
	INVALID        Opcode = 0xfe
	SELFDESTRUCT   Opcode = 0xff
)

type opInfo struct {
	name   string
	pops   int
	pushes int
	known  bool
}

var opTable [256]opInfo

var opByName = map[string]Opcode{}

func def(op Opcode, name string, pops, pushes int) {
	opTable[op] = opInfo{name: name, pops: pops, pushes: pushes, known: true}
	opByName[name] = op
}

func init() {
	def(STOP, "STOP", 0, 0)
	for op, name := range map[Opcode]string{ADD: "ADD", MUL: "MUL", SUB: "SUB", DIV: "DIV", SDIV: "SDIV",
		MOD: "MOD", SMOD: "SMOD", EXP: "EXP", SIGNEXTEND: "SIGNEXTEND", LT: "LT", GT: "GT", SLT: "SLT",
		SGT: "SGT", EQ: "EQ", AND: "AND", OR: "OR", XOR: "XOR", BYTE: "BYTE", SHL: "SHL", SHR: "SHR",
		SAR: "SAR", SHA3: "SHA3"} {
		def(op, name, 2, 1)
	}
	def(ADDMOD, "ADDMOD", 3, 1)
	def(MULMOD, "MULMOD", 3, 1)
	for op, name := range map[Opcode]string{ISZERO: "ISZERO", NOT: "NOT", BALANCE: "BALANCE",
		CALLDATALOAD: "CALLDATALOAD", EXTCODESIZE: "EXTCODESIZE", EXTCODEHASH: "EXTCODEHASH",
		BLOCKHASH: "BLOCKHASH", BLOBHASH: "BLOBHASH", MLOAD: "MLOAD", SLOAD: "SLOAD", TLOAD: "TLOAD"} {
		def(op, name, 1, 1)
	}
	for op, name := range map[Opcode]string{ADDRESS: "ADDRESS", ORIGIN: "ORIGIN", CALLER: "CALLER",
		CALLVALUE: "CALLVALUE", CALLDATASIZE: "CALLDATASIZE", CODESIZE: "CODESIZE", GASPRICE: "GASPRICE",
		RETURNDATASIZE: "RETURNDATASIZE", COINBASE: "COINBASE", TIMESTAMP: "TIMESTAMP", NUMBER: "NUMBER",
		DIFFICULTY: "DIFFICULTY", GASLIMIT: "GASLIMIT", CHAINID: "CHAINID", SELFBALANCE: "SELFBALANCE",
		BASEFEE: "BASEFEE", BLOBBASEFEE: "BLOBBASEFEE", PC: "PC", MSIZE: "MSIZE", GAS: "GAS"} {
		def(op, name, 0, 1)
	}
	for op, name := range map[Opcode]string{CALLDATACOPY: "CALLDATACOPY", CODECOPY: "CODECOPY",
		RETURNDATACOPY: "RETURNDATACOPY", MCOPY: "MCOPY"} {
		def(op, name, 3, 0)
	}
	def(EXTCODECOPY, "EXTCODECOPY", 4, 0)
	def(POP, "POP", 1, 0)
	def(JUMP, "JUMP", 1, 0)
	def(SELFDESTRUCT, "SELFDESTRUCT", 1, 0)
	for op, name := range map[Opcode]string{MSTORE: "MSTORE", MSTORE8: "MSTORE8", SSTORE: "SSTORE",
		JUMPI: "JUMPI", TSTORE: "TSTORE", RETURN: "RETURN", REVERT: "REVERT"} {
		def(op, name, 2, 0)
	}
	def(JUMPDEST, "JUMPDEST", 0, 0)
	def(INVALID, "INVALID", 0, 0)
	def(PUSH0, "PUSH0", 0, 1)
	for i := 1; i <= 32; i++ {
		def(PUSH1+Opcode(i-1), fmt.Sprintf("PUSH%d", i), 0, 1)
	}
	for i := 1; i <= 16; i++ {
		def(DUP1+Opcode(i-1), fmt.Sprintf("DUP%d", i), i, i+1)
		def(SWAP1+Opcode(i-1), fmt.Sprintf("SWAP%d", i), i+1, i+1)
	}
	for i := 0; i <= 4; i++ {
		def(LOG0+Opcode(i), fmt.Sprintf("LOG%d", i), i+2, 0)
	}
	def(CREATE, "CREATE", 3, 1)
	def(CREATE2, "CREATE2", 4, 1)
	def(CALL, "CALL", 7, 1)
	def(CALLCODE, "CALLCODE", 7, 1)
	def(DELEGATECALL, "DELEGATECALL", 6, 1)
	def(STATICCALL, "STATICCALL", 6, 1)

	// aliases introduced by later forks
	opByName["KECCAK256"] = SHA3
	opByName["PREVRANDAO"] = DIFFICULTY
}

// OpcodeByName returns the opcode with the given mnemonic, ignoring case.
func OpcodeByName(name string) (Opcode, bool) {
	op, ok := opByName[strings.ToUpper(strings.TrimSpace(name))]
	return op, ok
}

func (op Opcode) String() string {
	if opTable[op].known {
		return opTable[op].name
	}
	return fmt.Sprintf("UNKNOWN_0x%02x", byte(op))
}

// IsKnown returns true if op is a defined instruction
func (op Opcode) IsKnown() bool { return opTable[op].known }

// Pops returns the number of stack operands consumed by op
func (op Opcode) Pops() int { return opTable[op].pops }

// Pushes returns the number of stack values produced by op
func (op Opcode) Pushes() int { return opTable[op].pushes }

// IsPush returns true for PUSH0 to PUSH32
func (op Opcode) IsPush() bool { return op >= PUSH0 && op <= PUSH32 }

// ImmediateSize returns the number of immediate bytes following op in the bytecode
func (op Opcode) ImmediateSize() int {
	if op >= PUSH1 && op <= PUSH32 {
		return int(op-PUSH1) + 1
	}
	return 0
}

// IsDup returns true for DUP1 to DUP16
func (op Opcode) IsDup() bool { return op >= DUP1 && op <= DUP16 }

// DupDepth returns n for DUPn
func (op Opcode) DupDepth() int { return int(op-DUP1) + 1 }

// IsSwap returns true for SWAP1 to SWAP16
func (op Opcode) IsSwap() bool { return op >= SWAP1 && op <= SWAP16 }

// SwapDepth returns n for SWAPn
func (op Opcode) SwapDepth() int { return int(op-SWAP1) + 1 }

// IsLog returns true for LOG0 to LOG4
func (op Opcode) IsLog() bool { return op >= LOG0 && op <= LOG4 }

// IsJump returns true for JUMP and JUMPI
func (op Opcode) IsJump() bool { return op == JUMP || op == JUMPI }

// IsCall returns true for the instructions that transfer control to another contract
func (op Opcode) IsCall() bool {
	return op == CALL || op == CALLCODE || op == DELEGATECALL || op == STATICCALL
}

// IsTerminal returns true if the execution cannot continue after op. Undefined opcodes behave like INVALID.
func (op Opcode) IsTerminal() bool {
	switch op {
	case STOP, RETURN, REVERT, INVALID, SELFDESTRUCT:
		return true
	}
	return !op.IsKnown()
}
