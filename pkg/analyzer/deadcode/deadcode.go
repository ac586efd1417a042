// Package deadcode finds top-level JavaScript and TypeScript declarations
// that no entry point can reach and scores how safe each is to delete.
package deadcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/panbanda/deadwood/internal/cache"
	"github.com/panbanda/deadwood/internal/fileproc"
	"github.com/panbanda/deadwood/internal/manifest"
	"github.com/panbanda/deadwood/internal/scanner"
	"github.com/panbanda/deadwood/internal/vcs"
	"github.com/panbanda/deadwood/pkg/analyzer"
	"github.com/panbanda/deadwood/pkg/config"
	"github.com/panbanda/deadwood/pkg/extract"
	"github.com/panbanda/deadwood/pkg/models"
	"github.com/panbanda/deadwood/pkg/parser"
)

// Walker lists the source files of a project, already filtered.
type Walker interface {
	Walk(ctx context.Context, root string) ([]scanner.SourceFile, error)
}

// RecencyProvider reports when files under root last changed.
type RecencyProvider interface {
	LastModified(ctx context.Context, root string, since time.Time) (map[string]time.Time, error)
}

// Cache stores extraction results between runs.
type Cache interface {
	Get(path, fingerprint string) (*extract.FileResult, error)
	PutBatch(ctx context.Context, entries []cache.Entry) error
}

// MetricsRecorder receives the statistics of every completed run.
type MetricsRecorder interface {
	ObserveRun(stats Stats)
}

// Analyzer runs dead code analysis over a project directory.
type Analyzer struct {
	walker    Walker
	manifests manifest.Reader
	recency   RecencyProvider
	cache     Cache
	logger    *slog.Logger
	metrics   MetricsRecorder
	validate  *validator.Validate

	minConfidence   int
	dynamicPatterns []string
	entryPatterns   []string
	aliases         map[string]string
	library         string
	window          time.Duration
	useMTime        bool
	maxWorkers      int
	now             func() time.Time
}

// Compile-time check that Analyzer implements analyzer.RootAnalyzer[*Analysis]
var _ analyzer.RootAnalyzer[*Analysis] = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithWalker sets the source file walker.
func WithWalker(w Walker) Option {
	return func(a *Analyzer) {
		if w != nil {
			a.walker = w
		}
	}
}

// WithManifestReader sets how package.json is read.
func WithManifestReader(r manifest.Reader) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.manifests = r
		}
	}
}

// WithRecency sets the recency source. A nil provider disables the
// recently-modified signal.
func WithRecency(r RecencyProvider) Option {
	return func(a *Analyzer) {
		a.recency = r
	}
}

// WithCache enables the extraction cache. The caller owns c and closes it.
func WithCache(c Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// WithMinConfidence sets the threshold used by Analyze.
func WithMinConfidence(n int) Option {
	return func(a *Analyzer) {
		a.minConfidence = n
	}
}

// WithDynamicPatterns replaces the dynamic dispatch name globs.
func WithDynamicPatterns(patterns []string) Option {
	return func(a *Analyzer) {
		a.dynamicPatterns = append([]string(nil), patterns...)
	}
}

// WithEntryPatterns adds path globs whose files are entry points.
func WithEntryPatterns(patterns []string) Option {
	return func(a *Analyzer) {
		a.entryPatterns = append([]string(nil), patterns...)
	}
}

// WithAliases sets import path aliases, e.g. "@app" to "src".
func WithAliases(aliases map[string]string) Option {
	return func(a *Analyzer) {
		a.aliases = aliases
	}
}

// WithLibraryMode forces library mode on or off, or leaves it to the
// manifest with config.LibraryAuto.
func WithLibraryMode(mode string) Option {
	return func(a *Analyzer) {
		a.library = mode
	}
}

// WithRecencyWindow sets how far back a change lowers confidence. Zero
// disables the signal.
func WithRecencyWindow(d time.Duration) Option {
	return func(a *Analyzer) {
		a.window = d
	}
}

// WithModTimeFingerprint includes file modification times in cache
// fingerprints.
func WithModTimeFingerprint(enabled bool) Option {
	return func(a *Analyzer) {
		a.useMTime = enabled
	}
}

// WithMaxWorkers limits extraction parallelism (0 = 2x NumCPU).
func WithMaxWorkers(n int) Option {
	return func(a *Analyzer) {
		a.maxWorkers = n
	}
}

// WithNow sets the clock used for recency.
func WithNow(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithConfig applies the deadcode, exclude and cache sections of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(a *Analyzer) {
		if cfg == nil {
			return
		}
		a.walker = scanner.NewScanner(cfg)
		a.minConfidence = cfg.DeadCode.MinConfidence
		a.dynamicPatterns = append([]string(nil), cfg.DeadCode.DynamicPatterns...)
		a.entryPatterns = append([]string(nil), cfg.DeadCode.EntryPatterns...)
		a.aliases = cfg.DeadCode.Aliases
		a.library = cfg.DeadCode.Library
		a.window = time.Duration(cfg.DeadCode.RecencyDays) * 24 * time.Hour
		a.useMTime = cfg.Cache.UseMTime
	}
}

// New creates a dead code analyzer with the default collaborators: the
// project scanner, package.json reader and git history, without a cache.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		walker:          scanner.NewScanner(config.DefaultConfig()),
		manifests:       manifest.FileReader{},
		recency:         vcs.NewRecency(nil),
		logger:          slog.Default(),
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		dynamicPatterns: append([]string(nil), config.DefaultDynamicPatterns...),
		library:         config.LibraryAuto,
		window:          DefaultRecencyWindow,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeDeadCode analyzes root with the default analyzer and returns the
// symbols whose confidence is at least minConfidence.
func AnalyzeDeadCode(ctx context.Context, root string, minConfidence int) (*models.DeadCodeResult, error) {
	return New().AnalyzeDeadCode(ctx, root, minConfidence)
}

// AnalyzeDeadCode returns the dead symbols of root whose confidence is at
// least minConfidence.
func (a *Analyzer) AnalyzeDeadCode(ctx context.Context, root string, minConfidence int) (*models.DeadCodeResult, error) {
	analysis, err := a.run(ctx, root, minConfidence)
	if err != nil {
		return nil, err
	}
	return analysis.Result, nil
}

// Analyze runs a full analysis with the configured threshold.
func (a *Analyzer) Analyze(ctx context.Context, root string) (*Analysis, error) {
	return a.run(ctx, root, a.minConfidence)
}

type request struct {
	MinConfidence int    `validate:"min=0,max=100"`
	Root          string `validate:"required"`
}

// extraction is one file's result and where it came from.
type extraction struct {
	result      *extract.FileResult
	fingerprint string
	hit         bool
}

func (a *Analyzer) run(ctx context.Context, root string, minConfidence int) (*Analysis, error) {
	start := time.Now()

	if err := a.validate.Struct(request{MinConfidence: minConfidence, Root: root}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Field() == "Root" {
			return nil, &ConfigError{Path: root, Err: ErrInvalidRoot}
		}
		return nil, &ValidationError{Field: "min_confidence", Value: minConfidence, Err: ErrInvalidThreshold}
	}
	namePatterns, err := CompileNamePatterns(a.dynamicPatterns)
	if err != nil {
		return nil, err
	}
	entryPatterns, err := CompilePatterns(a.entryPatterns)
	if err != nil {
		return nil, err
	}
	absRoot, err := checkRoot(root)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := a.logger.With(slog.String("run_id", runID), slog.String("root", absRoot))
	log.Debug("dead code analysis started", slog.Int("min_confidence", minConfidence))

	files, err := a.walker.Walk(ctx, absRoot)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, err)
	}

	var diags []extract.Diagnostic
	mf, err := a.manifests.Read(absRoot)
	if err != nil {
		diags = append(diags, extract.Diagnostic{Path: manifest.FileName, Severity: extract.SeverityWarning, Message: err.Error()})
		mf = nil
	}

	extracted, err := a.extractAll(ctx, files)
	if err != nil {
		var failed fileproc.FileErrors
		if !errors.As(err, &failed) {
			return nil, err
		}
		for _, pe := range failed {
			diags = append(diags, extract.Diagnostic{Path: pe.Path, Severity: extract.SeverityWarning, Message: pe.Err.Error()})
		}
	}

	stats := Stats{Files: len(files)}
	results := make([]*extract.FileResult, 0, len(extracted))
	for _, ex := range extracted {
		if ex.result == nil {
			continue
		}
		if ex.hit {
			stats.CacheHits++
		} else {
			stats.CacheMisses++
		}
		if ex.result.Failed {
			stats.ParseFailures++
		}
		results = append(results, ex.result)
		diags = append(diags, ex.result.Diagnostics...)
	}

	g, buildDiags := BuildGraph(results, BuildOptions{Aliases: a.aliases})
	diags = append(diags, buildDiags...)

	entries := DetectEntries(g, EntryOptions{Manifest: mf, Patterns: entryPatterns, Library: a.library})
	reachable := Reach(g, entries.Roots)
	log.Debug("reachability computed",
		slog.Int("roots", entries.Roots.Len()),
		slog.Int("reachable", reachable.Len()),
		slog.Bool("library", entries.Library))

	scorer := NewScorer(g, namePatterns, a.lastModified(ctx, log, absRoot), a.window, a.now())
	result := models.NewDeadCodeResult()
	for _, n := range g.Nodes {
		if !n.Reportable() || reachable.Contains(n.ID) {
			continue
		}
		stats.Unreachable++
		confidence, reasons := scorer.Score(n.ID)
		if confidence < minConfidence {
			continue
		}
		result.Add(g.Files[n.File].Path, models.DeadSymbol{
			Name:       n.Name,
			Kind:       string(n.Symbol),
			Line:       n.Line,
			Confidence: confidence,
			Reasons:    reasons,
		})
	}
	result.Finalize(g.SymbolCount())

	cycles := describeCycles(g, DeadCycles(g, reachable))
	for _, c := range cycles {
		diags = append(diags, extract.Diagnostic{
			Path:     strings.SplitN(c[0], "#", 2)[0],
			Severity: extract.SeverityInfo,
			Message:  "dead reference cycle: " + strings.Join(c, " -> "),
		})
	}
	sortDiagnostics(diags)

	a.persist(ctx, log, extracted)

	stats.Symbols = g.SymbolCount()
	stats.Reachable = reachable.Len()
	stats.Edges = g.EdgeCount()
	stats.Duration = time.Since(start)
	if a.metrics != nil {
		a.metrics.ObserveRun(stats)
	}
	log.Info("dead code analysis finished",
		slog.Int("files", stats.Files),
		slog.Int("symbols", stats.Symbols),
		slog.Int("dead", result.Summary.DeadSymbols),
		slog.Int("cache_hits", stats.CacheHits),
		slog.Int("cache_misses", stats.CacheMisses),
		slog.Duration("duration", stats.Duration))

	if diags == nil {
		diags = []extract.Diagnostic{}
	}
	return &Analysis{
		RunID:       runID,
		Result:      result,
		Diagnostics: diags,
		DeadCycles:  cycles,
		Stats:       stats,
	}, nil
}

func checkRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &ConfigError{Path: root, Err: fmt.Errorf("%w: %w", ErrInvalidRoot, err)}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &ConfigError{Path: root, Err: fmt.Errorf("%w: %w", ErrInvalidRoot, err)}
	}
	if !info.IsDir() {
		return "", &ConfigError{Path: root, Err: fmt.Errorf("%w: not a directory", ErrInvalidRoot)}
	}
	return abs, nil
}

// extractAll serves each file from the cache or extracts it. Cache reads
// run on the workers alongside parsing.
func (a *Analyzer) extractAll(ctx context.Context, files []scanner.SourceFile) ([]extraction, error) {
	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(files))
	}

	return fileproc.Map(ctx, files, a.maxWorkers,
		func(ctx context.Context, psr *parser.Parser, f scanner.SourceFile) (extraction, error) {
			fp := cache.Fingerprint(f.Content, f.ModTime, a.useMTime)
			if a.cache != nil {
				if r, err := a.cache.Get(f.Rel, fp); err == nil {
					if tracker != nil {
						tracker.TickCached(f.Rel)
					}
					return extraction{result: r, fingerprint: fp, hit: true}, nil
				}
			}
			ex := extraction{result: extract.Extract(ctx, psr, f.Rel, f.Content), fingerprint: fp}
			if tracker != nil {
				tracker.Tick(f.Rel)
			}
			return ex, nil
		})
}

func (a *Analyzer) lastModified(ctx context.Context, log *slog.Logger, root string) map[string]time.Time {
	if a.recency == nil || a.window <= 0 {
		return nil
	}
	modified, err := a.recency.LastModified(ctx, root, a.now().Add(-a.window))
	if err != nil {
		log.Warn("recency unavailable", slog.String("error", err.Error()))
		return nil
	}
	return modified
}

// persist writes fresh extractions once the graph is built. Nothing is
// written for a cancelled run.
func (a *Analyzer) persist(ctx context.Context, log *slog.Logger, extracted []extraction) {
	if a.cache == nil || ctx.Err() != nil {
		return
	}
	var entries []cache.Entry
	for _, ex := range extracted {
		if ex.result == nil || ex.hit {
			continue
		}
		entries = append(entries, cache.Entry{Path: ex.result.Path, Fingerprint: ex.fingerprint, Result: ex.result})
	}
	if len(entries) == 0 {
		return
	}
	if err := a.cache.PutBatch(ctx, entries); err != nil {
		log.Warn("cache write failed", slog.String("error", err.Error()))
	}
}

func describeCycles(g *SymbolGraph, cycles [][]uint32) [][]string {
	out := make([][]string, 0, len(cycles))
	for _, c := range cycles {
		names := make([]string, len(c))
		for i, id := range c {
			n := g.Nodes[id]
			names[i] = g.Files[n.File].Path + "#" + n.Name
		}
		out = append(out, names)
	}
	return out
}
