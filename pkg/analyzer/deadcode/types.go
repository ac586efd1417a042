package deadcode

import (
	"sort"
	"time"

	"github.com/panbanda/deadwood/pkg/extract"
	"github.com/panbanda/deadwood/pkg/models"
)

// NodeKind classifies graph nodes.
type NodeKind uint8

const (
	// NodeFile stands for a whole file. It declares every node of the file.
	NodeFile NodeKind = iota
	// NodeModule stands for the top-level statements that run when the
	// module is loaded.
	NodeModule
	// NodeSymbol is a top-level declaration. Only symbols are reported.
	NodeSymbol
)

func (k NodeKind) String() string {
	switch k {
	case NodeFile:
		return "file"
	case NodeModule:
		return "module"
	default:
		return "symbol"
	}
}

// EdgeKind classifies graph edges.
type EdgeKind uint8

const (
	// EdgeDeclares links a file node to its module node and symbols.
	EdgeDeclares EdgeKind = iota
	// EdgeReferences is a use of a name declared in the same file.
	EdgeReferences
	// EdgeImports follows an import binding or specifier to another file.
	EdgeImports
	// EdgeDynamicCandidate marks a possible runtime lookup by name. It is
	// never followed during reachability.
	EdgeDynamicCandidate
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeDeclares:
		return "declares"
	case EdgeReferences:
		return "references"
	case EdgeImports:
		return "imports"
	default:
		return "dynamic-candidate"
	}
}

// Node is a vertex of the symbol graph. IDs are dense and assigned in path
// order, then source order within a file.
type Node struct {
	ID       uint32
	Kind     NodeKind
	File     int
	Name     string
	Symbol   extract.Kind
	Line     uint32
	EndLine  uint32
	Column   uint32
	Exported bool
}

// Reportable reports whether the node is a declared symbol.
func (n Node) Reportable() bool { return n.Kind == NodeSymbol }

// Edge is a directed, typed edge.
type Edge struct {
	From uint32
	To   uint32
	Kind EdgeKind
}

// File describes one analyzed file in the graph.
type File struct {
	Path    string
	Node    uint32 // file node
	Module  uint32 // module node
	Symbols []uint32
	Failed  bool
	Test    bool

	// Imports lists the files this file loads or re-exports, in order.
	Imports []int

	byName map[string]uint32
}

// Symbol returns the id of the top-level declaration named name.
func (f *File) Symbol(name string) (uint32, bool) {
	id, ok := f.byName[name]
	return id, ok
}

// SymbolGraph is an arena of nodes and typed edges for one project.
type SymbolGraph struct {
	Nodes []Node
	Files []File

	out    [][]Edge
	in     [][]Edge
	edges  int
	byPath map[string]int

	exports []map[string][]uint32
}

func newSymbolGraph() *SymbolGraph {
	return &SymbolGraph{byPath: make(map[string]int)}
}

func (g *SymbolGraph) addNode(n Node) uint32 {
	n.ID = uint32(len(g.Nodes))
	g.Nodes = append(g.Nodes, n)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return n.ID
}

func (g *SymbolGraph) addEdge(e Edge) {
	g.out[e.From] = append(g.out[e.From], e)
	g.in[e.To] = append(g.in[e.To], e)
	g.edges++
}

// sortEdges orders adjacency lists by target then kind.
func (g *SymbolGraph) sortEdges() {
	for _, list := range g.out {
		sort.Slice(list, func(i, j int) bool {
			if list[i].To != list[j].To {
				return list[i].To < list[j].To
			}
			return list[i].Kind < list[j].Kind
		})
	}
	for _, list := range g.in {
		sort.Slice(list, func(i, j int) bool {
			if list[i].From != list[j].From {
				return list[i].From < list[j].From
			}
			return list[i].Kind < list[j].Kind
		})
	}
}

// Out returns the outgoing edges of id ordered by target.
func (g *SymbolGraph) Out(id uint32) []Edge { return g.out[id] }

// In returns the incoming edges of id ordered by source.
func (g *SymbolGraph) In(id uint32) []Edge { return g.in[id] }

// NodeCount returns the number of nodes.
func (g *SymbolGraph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of edges.
func (g *SymbolGraph) EdgeCount() int { return g.edges }

// FileByPath returns the index of the file with the given relative path.
func (g *SymbolGraph) FileByPath(path string) (int, bool) {
	i, ok := g.byPath[path]
	return i, ok
}

// SymbolCount returns the number of reportable nodes.
func (g *SymbolGraph) SymbolCount() int {
	n := 0
	for _, f := range g.Files {
		n += len(f.Symbols)
	}
	return n
}

// Lookup returns the symbol id for path and name.
func (g *SymbolGraph) Lookup(path, name string) (uint32, bool) {
	fi, ok := g.byPath[path]
	if !ok {
		return 0, false
	}
	return g.Files[fi].Symbol(name)
}

// Exports returns the export table of file fi: export name to the symbol
// ids it stands for.
func (g *SymbolGraph) Exports(fi int) map[string][]uint32 {
	return g.exports[fi]
}

// Stats summarizes one analysis run.
type Stats struct {
	Files         int           `json:"files"`
	Symbols       int           `json:"symbols"`
	Reachable     int           `json:"reachable"`
	Unreachable   int           `json:"unreachable"` // before the confidence filter
	Edges         int           `json:"edges"`
	CacheHits     int           `json:"cache_hits"`
	CacheMisses   int           `json:"cache_misses"`
	ParseFailures int           `json:"parse_failures"`
	Duration      time.Duration `json:"duration"`
}

// Analysis is the full outcome of a run: the report plus everything needed
// to explain it.
type Analysis struct {
	RunID       string                 `json:"run_id"`
	Result      *models.DeadCodeResult `json:"result"`
	Diagnostics []extract.Diagnostic   `json:"diagnostics"`
	DeadCycles  [][]string             `json:"dead_cycles,omitempty"`
	Stats       Stats                  `json:"stats"`
}

func sortDiagnostics(d []extract.Diagnostic) {
	sort.SliceStable(d, func(i, j int) bool {
		if d[i].Path != d[j].Path {
			return d[i].Path < d[j].Path
		}
		if d[i].Line != d[j].Line {
			return d[i].Line < d[j].Line
		}
		return d[i].Message < d[j].Message
	})
}
