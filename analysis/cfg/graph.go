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
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/yourbasic/graph"
	"golang.org/x/crypto/sha3"
	"golang.org/x/tools/container/intsets"
)

// ErrUnknownNode is returned when a node index or program counter does not belong to the graph
var ErrUnknownNode = errors.New("unknown node")

const reachabilityMemoSize = 1 << 14

// EdgeKind is the label of a control-flow edge
type EdgeKind uint8

const (
	// Sequential edges link an instruction to the next one, or an unconditional jump to its target
	Sequential EdgeKind = iota
	// True edges link a JUMPI to its target when the condition holds
	True
	// False edges link a JUMPI to the next instruction
	False
)

func (k EdgeKind) String() string {
	switch k {
	case Sequential:
		return "seq"
	case True:
		return "true"
	case False:
		return "false"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Node is a decoded instruction
type Node struct {
	// ID is the index of the node in Graph.Nodes
	ID int
	// PC is the program counter of the instruction
	PC uint64
	Op Opcode
	// Immediate is the operand of a PUSH, nil for other instructions
	Immediate *uint256.Int
	// Line is the 1-based line of the instruction in the disassembly
	Line int
}

func (n *Node) String() string {
	if n.Immediate != nil && n.Op != PUSH0 {
		return fmt.Sprintf("%#x: %s %s", n.PC, n.Op, n.Immediate.Hex())
	}
	return fmt.Sprintf("%#x: %s", n.PC, n.Op)
}

// Edge is a directed control-flow edge between two node indices
type Edge struct {
	From int
	To   int
	Kind EdgeKind
}

type reachKey struct {
	from, to   int
	sequential bool
}

// Graph is the control-flow graph of one contract. Nodes are stored in program-counter order and never
// change once built; edges can only be added.
type Graph struct {
	Nodes []*Node
	Entry int

	out     [][]Edge
	in      [][]Edge
	edges   map[Edge]bool
	pcIndex map[uint64]int

	jumpdests   *intsets.Sparse
	jumps       []int
	pushedJumps map[int]bool

	// reach mirrors the edges for reachability queries
	reach *graph.Mutable
	memo  *lru.Cache

	idMu sync.Mutex
	id   string
}

func newGraph(nodes []*Node) *Graph {
	memo, _ := lru.New(reachabilityMemoSize)
	g := &Graph{
		Nodes:       nodes,
		out:         make([][]Edge, len(nodes)),
		in:          make([][]Edge, len(nodes)),
		edges:       map[Edge]bool{},
		pcIndex:     make(map[uint64]int, len(nodes)),
		jumpdests:   &intsets.Sparse{},
		pushedJumps: map[int]bool{},
		reach:       graph.New(len(nodes)),
		memo:        memo,
	}
	for i, n := range nodes {
		g.pcIndex[n.PC] = i
		if n.Op == JUMPDEST {
			g.jumpdests.Insert(int(n.PC))
		}
		if n.Op.IsJump() {
			g.jumps = append(g.jumps, i)
		}
	}
	return g
}

// AddEdge adds the edge from -> to with the given kind. It returns false when the edge is already present.
func (g *Graph) AddEdge(from, to int, kind EdgeKind) bool {
	if from < 0 || from >= len(g.Nodes) || to < 0 || to >= len(g.Nodes) {
		return false
	}
	e := Edge{From: from, To: to, Kind: kind}
	if g.edges[e] {
		return false
	}
	g.edges[e] = true
	g.out[from] = insertSorted(g.out[from], e, func(a, b Edge) bool {
		return a.To < b.To || (a.To == b.To && a.Kind < b.Kind)
	})
	g.in[to] = insertSorted(g.in[to], e, func(a, b Edge) bool {
		return a.From < b.From || (a.From == b.From && a.Kind < b.Kind)
	})
	g.reach.Add(from, to)
	g.memo.Purge()
	g.idMu.Lock()
	g.id = ""
	g.idMu.Unlock()
	return true
}

func insertSorted(edges []Edge, e Edge, less func(a, b Edge) bool) []Edge {
	i := sort.Search(len(edges), func(i int) bool { return !less(edges[i], e) })
	edges = append(edges, Edge{})
	copy(edges[i+1:], edges[i:])
	edges[i] = e
	return edges
}

// HasEdge returns true if the edge is in the graph
func (g *Graph) HasEdge(from, to int, kind EdgeKind) bool {
	return g.edges[Edge{From: from, To: to, Kind: kind}]
}

// Out returns the outgoing edges of node i, sorted by destination
func (g *Graph) Out(i int) []Edge { return g.out[i] }

// In returns the incoming edges of node i, sorted by source
func (g *Graph) In(i int) []Edge { return g.in[i] }

// Successors returns the indices of the successors of node i
func (g *Graph) Successors(i int) []int {
	var res []int
	for _, e := range g.out[i] {
		if len(res) == 0 || res[len(res)-1] != e.To {
			res = append(res, e.To)
		}
	}
	return res
}

// NumEdges returns the number of edges in the graph
func (g *Graph) NumEdges() int { return len(g.edges) }

// Edges returns all the edges, sorted by source then destination
func (g *Graph) Edges() []Edge {
	var res []Edge
	for _, out := range g.out {
		res = append(res, out...)
	}
	return res
}

// NodeAt returns the index of the instruction at program counter pc
func (g *Graph) NodeAt(pc uint64) (int, error) {
	if i, ok := g.pcIndex[pc]; ok {
		return i, nil
	}
	return -1, fmt.Errorf("pc %#x: %w", pc, ErrUnknownNode)
}

// Jumpdests returns the set of program counters of the JUMPDEST instructions. The caller must not modify it.
func (g *Graph) Jumpdests() *intsets.Sparse { return g.jumpdests }

// IsJumpdest returns true if pc is the program counter of a JUMPDEST
func (g *Graph) IsJumpdest(pc uint64) bool {
	return pc <= uint64(intsets.MaxInt) && g.jumpdests.Has(int(pc))
}

// Jumps returns the indices of the JUMP and JUMPI nodes, in program-counter order
func (g *Graph) Jumps() []int { return g.jumps }

// IsPushedJump returns true if node i is a jump whose target is pushed by the instruction right before it
func (g *Graph) IsPushedJump(i int) bool { return g.pushedJumps[i] }

// PushedJumps returns the indices of the pushed jumps, in program-counter order
func (g *Graph) PushedJumps() []int {
	var res []int
	for _, j := range g.jumps {
		if g.pushedJumps[j] {
			res = append(res, j)
		}
	}
	return res
}

// NodesWithOp returns the indices of the nodes executing op
func (g *Graph) NodesWithOp(op Opcode) []int {
	var res []int
	for i, n := range g.Nodes {
		if n.Op == op {
			res = append(res, i)
		}
	}
	return res
}

// ReachableFrom returns true if there is a path (possibly empty) from node a to node b
func (g *Graph) ReachableFrom(a, b int) bool {
	if a == b {
		return true
	}
	key := reachKey{from: a, to: b}
	if v, ok := g.memo.Get(key); ok {
		return v.(bool)
	}
	found := false
	graph.BFS(g.reach, a, func(_, w int, _ int64) {
		if w == b {
			found = true
		}
	})
	g.memo.Add(key, found)
	return found
}

// ReachableFromSequentially returns true if there is a path from a to b that does not leave a JUMP or a JUMPI
func (g *Graph) ReachableFromSequentially(a, b int) bool {
	if a == b {
		return true
	}
	key := reachKey{from: a, to: b, sequential: true}
	if v, ok := g.memo.Get(key); ok {
		return v.(bool)
	}
	visited := make([]bool, len(g.Nodes))
	stack := []int{a}
	visited[a] = true
	found := false
	for len(stack) > 0 && !found {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if g.Nodes[cur].Op.IsJump() {
			continue
		}
		for _, e := range g.out[cur] {
			if e.To == b {
				found = true
				break
			}
			if !visited[e.To] {
				visited[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	g.memo.Add(key, found)
	return found
}

// ID returns the content-addressed identifier of the graph: the Keccak-256 hash of the instruction sequence
// and of the sorted edges. It changes when edges are added.
func (g *Graph) ID() string {
	g.idMu.Lock()
	defer g.idMu.Unlock()
	if g.id != "" {
		return g.id
	}
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte
	for _, n := range g.Nodes {
		binary.BigEndian.PutUint64(buf[:], n.PC)
		h.Write(buf[:])
		h.Write([]byte{byte(n.Op)})
		if n.Immediate != nil {
			b := n.Immediate.Bytes32()
			h.Write(b[:])
		}
	}
	for _, e := range g.Edges() {
		binary.BigEndian.PutUint64(buf[:], uint64(e.From))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(e.To))
		h.Write(buf[:])
		h.Write([]byte{byte(e.Kind)})
	}
	g.id = hex.EncodeToString(h.Sum(nil))
	return g.id
}

// Clone returns a copy of the graph sharing the immutable nodes. Edges added to the copy are not visible in
// the original.
func (g *Graph) Clone() *Graph {
	c := newGraph(g.Nodes)
	c.Entry = g.Entry
	for j := range g.pushedJumps {
		c.pushedJumps[j] = true
	}
	for _, e := range g.Edges() {
		c.AddEdge(e.From, e.To, e.Kind)
	}
	return c
}

// BasicBlock is a maximal sequence of instructions entered only at its first instruction
type BasicBlock struct {
	// Start is the program counter of the first instruction
	Start uint64
	// Nodes are the indices of the instructions of the block
	Nodes []int
	// Succs are the program counters of the successor blocks
	Succs []uint64
}

// BasicBlocks splits the graph into basic blocks. A block starts at the entry, at every JUMPDEST and after
// every jump or terminal instruction.
func (g *Graph) BasicBlocks() []BasicBlock {
	var blocks []BasicBlock
	var cur *BasicBlock
	closeBlock := func() {
		if cur == nil {
			return
		}
		last := cur.Nodes[len(cur.Nodes)-1]
		for _, s := range g.Successors(last) {
			cur.Succs = append(cur.Succs, g.Nodes[s].PC)
		}
		blocks = append(blocks, *cur)
		cur = nil
	}
	for i, n := range g.Nodes {
		if n.Op == JUMPDEST || len(g.in[i]) > 1 {
			closeBlock()
		}
		if cur == nil {
			cur = &BasicBlock{Start: n.PC}
		}
		cur.Nodes = append(cur.Nodes, i)
		if n.Op.IsJump() || n.Op.IsTerminal() {
			closeBlock()
		}
	}
	closeBlock()
	return blocks
}
