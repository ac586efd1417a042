package deadcode

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Reach marks every node reachable from roots. Traversal is an iterative
// depth-first search that visits roots in ascending id order and children in
// ascending id order, so the visit order is deterministic. Dynamic
// candidate edges are not followed.
func Reach(g *SymbolGraph, roots *SymbolSet) *SymbolSet {
	visited := NewSymbolSet()
	stack := make([]uint32, 0, 64)

	for _, root := range roots.ToSlice() {
		if int(root) >= g.NodeCount() || visited.Contains(root) {
			continue
		}
		stack = append(stack[:0], root)
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !visited.Add(n) {
				continue
			}
			out := g.Out(n)
			for i := len(out) - 1; i >= 0; i-- {
				e := out[i]
				if e.Kind == EdgeDynamicCandidate || visited.Contains(e.To) {
					continue
				}
				stack = append(stack, e.To)
			}
		}
	}
	return visited
}

// DeadCycles returns the strongly connected components with at least two
// dead symbols, each sorted by id and ordered by their smallest id.
func DeadCycles(g *SymbolGraph, reachable *SymbolSet) [][]uint32 {
	dg := simple.NewDirectedGraph()
	for _, n := range g.Nodes {
		if n.Reportable() && !reachable.Contains(n.ID) {
			dg.AddNode(simple.Node(int64(n.ID)))
		}
	}

	for _, n := range g.Nodes {
		if dg.Node(int64(n.ID)) == nil {
			continue
		}
		for _, e := range g.Out(n.ID) {
			if e.Kind != EdgeReferences && e.Kind != EdgeImports {
				continue
			}
			if e.From == e.To || dg.Node(int64(e.To)) == nil {
				continue
			}
			dg.SetEdge(simple.Edge{F: simple.Node(int64(e.From)), T: simple.Node(int64(e.To))})
		}
	}

	var cycles [][]uint32
	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]uint32, len(scc))
		for i, node := range scc {
			ids[i] = uint32(node.ID())
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		cycles = append(cycles, ids)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}
