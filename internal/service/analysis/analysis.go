// Package analysis runs dead code analyses for the CLI, watch mode and the
// MCP server. It owns the cache handle and configuration lookup, and
// collapses concurrent runs over the same root into one.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/panbanda/deadwood/internal/cache"
	"github.com/panbanda/deadwood/internal/vcs"
	"github.com/panbanda/deadwood/pkg/analyzer"
	"github.com/panbanda/deadwood/pkg/analyzer/deadcode"
	"github.com/panbanda/deadwood/pkg/config"
	"golang.org/x/sync/singleflight"
)

// Service orchestrates dead code analysis runs.
type Service struct {
	config     *config.Config
	configPath string
	opener     vcs.Opener
	logger     *slog.Logger
	metrics    deadcode.MetricsRecorder
	noCache    bool
	noRecency  bool

	group singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithConfig fixes the configuration instead of looking it up per root.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithConfigPath loads configuration from an explicit file.
func WithConfigPath(path string) Option {
	return func(s *Service) {
		s.configPath = path
	}
}

// WithOpener sets the VCS opener used for recency.
func WithOpener(opener vcs.Opener) Option {
	return func(s *Service) {
		s.opener = opener
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records every run.
func WithMetrics(m deadcode.MetricsRecorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithoutCache disables the extraction cache regardless of configuration.
func WithoutCache() Option {
	return func(s *Service) {
		s.noCache = true
	}
}

// WithoutRecency skips the git history lookup, for example on shallow
// clones where every file looks freshly committed.
func WithoutRecency() Option {
	return func(s *Service) {
		s.noRecency = true
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		opener: vcs.GitOpener{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeadCodeOptions configures one analysis.
type DeadCodeOptions struct {
	// MinConfidence overrides the configured threshold when set.
	MinConfidence *int
	OnProgress    analyzer.ProgressFunc
}

// AnalyzeDeadCode analyzes the project at root. Concurrent calls for the
// same root and threshold share one run; only the first caller's progress
// callback and context are used.
func (s *Service) AnalyzeDeadCode(ctx context.Context, root string, opts DeadCodeOptions) (*deadcode.Analysis, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Config(abs)
	if err != nil {
		return nil, err
	}
	minConfidence := cfg.DeadCode.MinConfidence
	if opts.MinConfidence != nil {
		minConfidence = *opts.MinConfidence
	}

	key := abs + "\x00" + strconv.Itoa(minConfidence)
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.run(ctx, abs, cfg, minConfidence, opts.OnProgress)
	})
	if shared {
		s.logger.Debug("joined in-flight analysis", slog.String("root", abs))
	}
	if err != nil {
		return nil, err
	}
	return v.(*deadcode.Analysis), nil
}

func (s *Service) run(ctx context.Context, root string, cfg *config.Config, minConfidence int, onProgress analyzer.ProgressFunc) (*deadcode.Analysis, error) {
	opts := []deadcode.Option{
		deadcode.WithConfig(cfg),
		deadcode.WithMinConfidence(minConfidence),
		deadcode.WithLogger(s.logger),
	}
	if s.noRecency {
		opts = append(opts, deadcode.WithRecency(nil))
	} else {
		opts = append(opts, deadcode.WithRecency(vcs.NewRecency(s.opener)))
	}
	if s.metrics != nil {
		opts = append(opts, deadcode.WithMetrics(s.metrics))
	}

	if store := s.openCache(root, cfg); store != nil {
		defer store.Close()
		opts = append(opts, deadcode.WithCache(store))
	}

	if onProgress != nil {
		ctx = analyzer.WithTracker(ctx, analyzer.NewTracker(onProgress))
	}
	return deadcode.New(opts...).Analyze(ctx, root)
}

// openCache returns nil when caching is off or the store cannot be opened,
// for example while another process holds the badger directory lock. The
// run then proceeds uncached.
func (s *Service) openCache(root string, cfg *config.Config) *cache.Store {
	if s.noCache || !cfg.Cache.Enabled {
		return nil
	}
	store, err := cache.Open(cache.Options{Dir: cacheDir(root, cfg), Logger: s.logger})
	if err != nil {
		s.logger.Warn("cache unavailable, running uncached",
			slog.String("dir", cacheDir(root, cfg)),
			slog.String("error", err.Error()))
		return nil
	}
	return store
}

// Config returns the configuration that applies to root.
func (s *Service) Config(root string) (*config.Config, error) {
	if s.config != nil {
		return s.config, nil
	}
	cfg, err := config.LoadOrDefault(root, s.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// CacheStats reports the extraction cache of root.
func (s *Service) CacheStats(root string) (*cache.Stats, error) {
	store, err := s.openForMaintenance(root)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.GetStats()
}

// ClearCache drops every cached extraction of root.
func (s *Service) ClearCache(root string) error {
	store, err := s.openForMaintenance(root)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Clear()
}

func (s *Service) openForMaintenance(root string) (*cache.Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Config(abs)
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(cache.Options{Dir: cacheDir(abs, cfg), Logger: s.logger})
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return store, nil
}

func cacheDir(root string, cfg *config.Config) string {
	dir := cfg.Cache.Dir
	if dir == "" {
		dir = config.DefaultConfig().Cache.Dir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, filepath.FromSlash(dir))
}
