package debug

import (
	"fmt"
	"strings"

	"github.com/mpyw/reflectfold/internal/chain"
)

// FormatGraph returns an indented tree of a graph snapshot.
//
//	Method: test.Main.main
//	  Root: pkg.A (resolved)
//	    r0:java.lang.Class = invoke static java.lang.Class.forName(...) ("pkg.A")
//	    ├─ CONSTRUCTOR: r1:... = invoke virtual java.lang.Class.getConstructor(...) (...)
//	    │  └─ NEWINSTANCE: r2:... = invoke virtual ...newInstance(...) (...)
//	    └─ GETMETHOD: ...
func FormatGraph(s *chain.Snapshot) string {
	if s == nil {
		return ""
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "Method: %s\n", s.Method)
	if len(s.Nodes) == 0 {
		buf.WriteString("  (no reflective chains)\n")
		return buf.String()
	}

	children := make(map[chain.NodeID][]chain.SnapshotNode)
	var roots []chain.SnapshotNode
	for _, n := range s.Nodes {
		if n.Parent == chain.NoNode {
			roots = append(roots, n)
			continue
		}
		children[n.Parent] = append(children[n.Parent], n)
	}

	for _, r := range roots {
		status := "resolved"
		if !r.Resolved {
			status = "unresolved"
		}
		fmt.Fprintf(&buf, "  Root: %s (%s)\n", r.Class, status)
		fmt.Fprintf(&buf, "    %s\n", r.Insn)
		writeChildren(&buf, children, r.ID, "    ")
	}
	return buf.String()
}

func writeChildren(buf *strings.Builder, children map[chain.NodeID][]chain.SnapshotNode, id chain.NodeID, prefix string) {
	kids := children[id]
	for i, k := range kids {
		branch, next := "├─ ", "│  "
		if i == len(kids)-1 {
			branch, next = "└─ ", "   "
		}
		via := ""
		if k.Wrapped {
			via = " (wrapped)"
		}
		fmt.Fprintf(buf, "%s%s%s%s: %s\n", prefix, branch, k.Kind, via, k.Insn)
		writeChildren(buf, children, k.ID, prefix+next)
	}
}
