package models

import "sort"

// Reason codes explain each confidence deduction.
const (
	ReasonExported         = "exported"
	ReasonTransitivelyDead = "transitively-dead"
	ReasonDynamicPattern   = "dynamic-pattern"
	ReasonDynamicAccess    = "dynamic-access"
	ReasonRecentlyModified = "recently-modified"
)

// DeadSymbol is a top-level declaration no entry point can reach.
type DeadSymbol struct {
	Name       string   `json:"name" toon:"name"`
	Kind       string   `json:"kind" toon:"kind"`
	Line       uint32   `json:"line" toon:"line"`
	Confidence int      `json:"confidence" toon:"confidence"` // 0-100
	Reasons    []string `json:"reasons" toon:"reasons"`
}

// DeadCodeFile groups the dead symbols of one file.
type DeadCodeFile struct {
	Path        string       `json:"path" toon:"path"`
	DeadSymbols []DeadSymbol `json:"deadSymbols" toon:"deadSymbols"`
}

// DeadCodeSummary provides aggregate statistics.
type DeadCodeSummary struct {
	TotalSymbols  int     `json:"totalSymbols" toon:"totalSymbols"`
	DeadSymbols   int     `json:"deadSymbols" toon:"deadSymbols"`
	DeadCodeRatio float64 `json:"deadCodeRatio" toon:"deadCodeRatio"`
}

// DeadCodeResult is the report of a dead code analysis.
type DeadCodeResult struct {
	Summary DeadCodeSummary `json:"summary" toon:"summary"`
	Files   []DeadCodeFile  `json:"files" toon:"files"`
}

// NewDeadCodeResult creates an empty result.
func NewDeadCodeResult() *DeadCodeResult {
	return &DeadCodeResult{Files: []DeadCodeFile{}}
}

// Add records a dead symbol under path.
func (r *DeadCodeResult) Add(path string, sym DeadSymbol) {
	if sym.Reasons == nil {
		sym.Reasons = []string{}
	}
	for i := range r.Files {
		if r.Files[i].Path == path {
			r.Files[i].DeadSymbols = append(r.Files[i].DeadSymbols, sym)
			return
		}
	}
	r.Files = append(r.Files, DeadCodeFile{Path: path, DeadSymbols: []DeadSymbol{sym}})
}

// Finalize sorts files by path and symbols by line then name, and computes
// the summary for totalSymbols declared symbols.
func (r *DeadCodeResult) Finalize(totalSymbols int) {
	sort.Slice(r.Files, func(i, j int) bool { return r.Files[i].Path < r.Files[j].Path })

	dead := 0
	for i := range r.Files {
		syms := r.Files[i].DeadSymbols
		sort.Slice(syms, func(a, b int) bool {
			if syms[a].Line != syms[b].Line {
				return syms[a].Line < syms[b].Line
			}
			return syms[a].Name < syms[b].Name
		})
		dead += len(syms)
	}

	r.Summary = DeadCodeSummary{TotalSymbols: totalSymbols, DeadSymbols: dead}
	if totalSymbols > 0 {
		r.Summary.DeadCodeRatio = float64(dead) / float64(totalSymbols)
	}
}

// Symbol returns the dead symbol with the given path and name.
func (r *DeadCodeResult) Symbol(path, name string) (DeadSymbol, bool) {
	for _, f := range r.Files {
		if f.Path != path {
			continue
		}
		for _, s := range f.DeadSymbols {
			if s.Name == name {
				return s, true
			}
		}
	}
	return DeadSymbol{}, false
}
