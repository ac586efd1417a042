package deadcode

import (
	"math"
	"time"

	"github.com/gobwas/glob"
	"github.com/panbanda/deadwood/pkg/models"
)

// Confidence deductions.
const (
	BaseConfidence       = 100
	ExportedDeduction    = 30
	PatternDeduction     = 40
	DynamicDeduction     = 45
	MaxRecencyDeduction  = 20
	DefaultRecencyWindow = 30 * 24 * time.Hour
	hoursPerDay          = 24
)

// Signals are the facts about a dead symbol that lower its confidence.
type Signals struct {
	Exported         bool
	TransitivelyDead bool
	DynamicPattern   bool
	DynamicAccess    bool

	// Age is the time since the symbol's file last changed. It is only
	// considered when Modified is set.
	Age      time.Duration
	Modified bool
}

// ScoreSignals returns the confidence for s and the reasons that lowered
// it, in a fixed order. Export and transitive deadness share one
// deduction, as do the two dynamic signals (the larger applies).
func ScoreSignals(s Signals, window time.Duration) (int, []string) {
	score := BaseConfidence
	reasons := []string{}

	switch {
	case s.Exported:
		score -= ExportedDeduction
		reasons = append(reasons, models.ReasonExported)
	case s.TransitivelyDead:
		score -= ExportedDeduction
		reasons = append(reasons, models.ReasonTransitivelyDead)
	}

	switch {
	case s.DynamicAccess:
		score -= DynamicDeduction
		reasons = append(reasons, models.ReasonDynamicAccess)
	case s.DynamicPattern:
		score -= PatternDeduction
		reasons = append(reasons, models.ReasonDynamicPattern)
	}

	if s.Modified {
		if d := RecencyDeduction(s.Age, window); d > 0 {
			score -= d
			reasons = append(reasons, models.ReasonRecentlyModified)
		}
	}

	return clamp(score, 0, BaseConfidence), reasons
}

// RecencyDeduction decays linearly from MaxRecencyDeduction for a change
// made now to zero at the window boundary.
func RecencyDeduction(age, window time.Duration) int {
	if window <= 0 || age >= window {
		return 0
	}
	if age < 0 {
		age = 0
	}
	days := age.Hours() / hoursPerDay
	windowDays := window.Hours() / hoursPerDay
	return int(math.Round(MaxRecencyDeduction * (1 - days/windowDays)))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Scorer assigns confidence to dead symbols of one graph.
type Scorer struct {
	g        *SymbolGraph
	patterns []glob.Glob
	modified map[string]time.Time
	window   time.Duration
	now      time.Time
}

// NewScorer creates a scorer. modified maps relative file paths to their
// last change; files missing from it carry no recency signal.
func NewScorer(g *SymbolGraph, patterns []glob.Glob, modified map[string]time.Time, window time.Duration, now time.Time) *Scorer {
	return &Scorer{g: g, patterns: patterns, modified: modified, window: window, now: now}
}

// CompileNamePatterns compiles identifier globs such as "handle*".
func CompileNamePatterns(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, &ValidationError{Field: "dynamic pattern", Value: p, Err: ErrInvalidPattern}
		}
		out = append(out, g)
	}
	return out, nil
}

// Signals collects the signals of node id.
func (s *Scorer) Signals(id uint32) Signals {
	n := s.g.Nodes[id]
	sig := Signals{Exported: n.Exported}

	for _, e := range s.g.In(id) {
		switch e.Kind {
		case EdgeReferences, EdgeImports:
			sig.TransitivelyDead = true
		case EdgeDynamicCandidate:
			sig.DynamicAccess = true
		}
	}

	// a private name matching a dispatch pattern cannot be looked up from
	// outside its module
	if n.Exported && s.matchesPattern(n.Name) {
		sig.DynamicPattern = true
	}

	if when, ok := s.modified[s.g.Files[n.File].Path]; ok {
		sig.Modified = true
		sig.Age = s.now.Sub(when)
	}
	return sig
}

func (s *Scorer) matchesPattern(name string) bool {
	for _, p := range s.patterns {
		if p.Match(name) {
			return true
		}
	}
	return false
}

// Score returns the confidence and reasons for dead node id.
func (s *Scorer) Score(id uint32) (int, []string) {
	return ScoreSignals(s.Signals(id), s.window)
}
