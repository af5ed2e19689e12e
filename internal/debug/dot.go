package debug

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/pkg/errors"

	"github.com/mpyw/reflectfold/internal/chain"
)

// Graph converts a snapshot into a directed graph keyed by node ID.
// Vertex and edge attributes carry the DOT styling.
func Graph(s *chain.Snapshot) (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, n := range s.Nodes {
		attrs := []func(*graph.VertexProperties){
			graph.VertexAttribute("label", vertexLabel(n)),
			graph.VertexAttribute("shape", "box"),
		}
		if n.Parent == chain.NoNode {
			attrs = append(attrs, graph.VertexAttribute("style", "bold"))
			if !n.Resolved {
				attrs = append(attrs, graph.VertexAttribute("color", "red"))
			}
		}
		if err := g.AddVertex(vertexID(n.ID), attrs...); err != nil {
			return nil, errors.Wrapf(err, "add node %d", n.ID)
		}
	}
	for _, n := range s.Nodes {
		if n.Parent == chain.NoNode {
			continue
		}
		var attrs []func(*graph.EdgeProperties)
		if n.Wrapped {
			attrs = append(attrs, graph.EdgeAttribute("style", "dashed"))
		}
		if err := g.AddEdge(vertexID(n.Parent), vertexID(n.ID), attrs...); err != nil {
			return nil, errors.Wrapf(err, "add edge %d -> %d", n.Parent, n.ID)
		}
	}
	return g, nil
}

// WriteDOT writes a snapshot as a Graphviz DOT digraph.
func WriteDOT(w io.Writer, s *chain.Snapshot) error {
	g, err := Graph(s)
	if err != nil {
		return errors.Wrapf(err, "build graph of %s", s.Method)
	}
	return errors.Wrapf(draw.DOT(g, w), "draw graph of %s", s.Method)
}

func vertexID(id chain.NodeID) string {
	return "n" + strconv.Itoa(int(id))
}

// vertexLabel returns a label escaped for a quoted DOT attribute.
func vertexLabel(n chain.SnapshotNode) string {
	label := fmt.Sprintf("%s\n%s", n.Kind, n.Insn)
	if n.Parent == chain.NoNode {
		label = fmt.Sprintf("%s %s\n%s", n.Kind, n.Class, n.Insn)
	}
	return labelEscaper.Replace(label)
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
