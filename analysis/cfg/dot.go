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
	"io"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/multi"
)

type dotNode struct {
	node *Node
}

func (n dotNode) ID() int64 { return int64(n.node.ID) }

func (n dotNode) DOTID() string { return fmt.Sprintf("pc_%d", n.node.PC) }

func (n dotNode) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "label", Value: n.node.String()}, {Key: "shape", Value: "box"}}
	if n.node.Op.IsJump() {
		attrs = append(attrs, encoding.Attribute{Key: "color", Value: "blue"})
	}
	return attrs
}

type dotLine struct {
	id       int64
	from, to dotNode
	kind     EdgeKind
}

func (l dotLine) From() graph.Node { return l.from }

func (l dotLine) To() graph.Node { return l.to }

func (l dotLine) ID() int64 { return l.id }

func (l dotLine) ReversedLine() graph.Line {
	return dotLine{id: l.id, from: l.to, to: l.from, kind: l.kind}
}

func (l dotLine) Attributes() []encoding.Attribute {
	switch l.kind {
	case True:
		return []encoding.Attribute{{Key: "color", Value: "green"}, {Key: "label", Value: "true"}}
	case False:
		return []encoding.Attribute{{Key: "color", Value: "red"}, {Key: "label", Value: "false"}}
	}
	return nil
}

// WriteDOT writes the graph in the Graphviz DOT format, with the given graph name
func WriteDOT(w io.Writer, g *Graph, name string) error {
	dg := multi.NewDirectedGraph()
	nodes := make([]dotNode, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = dotNode{node: n}
		dg.AddNode(nodes[i])
	}
	for i, e := range g.Edges() {
		dg.SetLine(dotLine{id: int64(i), from: nodes[e.From], to: nodes[e.To], kind: e.Kind})
	}
	b, err := dot.MarshalMulti(dg, name, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	_, err = w.Write(b)
	return err
}
