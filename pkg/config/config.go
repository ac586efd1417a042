package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Config holds all configuration options for deadwood.
type Config struct {
	DeadCode DeadCodeConfig `koanf:"deadcode" toml:"deadcode"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	Cache CacheConfig `koanf:"cache" toml:"cache"`

	Output OutputConfig `koanf:"output" toml:"output"`
}

// DeadCodeConfig tunes entry detection and confidence scoring.
type DeadCodeConfig struct {
	MinConfidence   int               `koanf:"min_confidence" toml:"min_confidence"`
	DynamicPatterns []string          `koanf:"dynamic_patterns" toml:"dynamic_patterns"`
	EntryPatterns   []string          `koanf:"entry_patterns" toml:"entry_patterns"`
	RecencyDays     int               `koanf:"recency_days" toml:"recency_days"`
	Library         string            `koanf:"library" toml:"library"` // auto, true, false
	Aliases         map[string]string `koanf:"aliases" toml:"aliases"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls the extraction cache.
type CacheConfig struct {
	Enabled  bool   `koanf:"enabled" toml:"enabled"`
	Dir      string `koanf:"dir" toml:"dir"` // relative to the analyzed root
	UseMTime bool   `koanf:"use_mtime" toml:"use_mtime"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color  bool   `koanf:"color" toml:"color"`
}

// Library modes.
const (
	LibraryAuto = "auto"
	LibraryOn   = "true"
	LibraryOff  = "false"
)

// DefaultDynamicPatterns are name globs for symbols commonly dispatched by
// name at runtime.
var DefaultDynamicPatterns = []string{
	"handle*",
	"on[A-Z]*",
	"*Handler",
	"*_handler",
	"*Plugin",
	"*_plugin",
	"*Callback",
	"*_callback",
	"*Listener",
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DeadCode: DeadCodeConfig{
			MinConfidence:   0,
			DynamicPatterns: append([]string(nil), DefaultDynamicPatterns...),
			RecencyDays:     30,
			Library:         LibraryAuto,
			Aliases:         map[string]string{},
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.bundle.js",
			},
			Dirs: []string{
				"node_modules",
				".git",
				".deadwood",
				"dist",
				"build",
				"coverage",
				".next",
				"out",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".deadwood/cache",
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

//go:embed schema.json
var schemaJSON []byte

// Load loads configuration from a file. The document is validated against
// the embedded schema before it is merged over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := Validate(k.Raw()); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	// Lists in the document replace the defaults rather than overlaying them.
	lists := map[string]*[]string{
		"deadcode.dynamic_patterns": &cfg.DeadCode.DynamicPatterns,
		"deadcode.entry_patterns":   &cfg.DeadCode.EntryPatterns,
		"exclude.patterns":          &cfg.Exclude.Patterns,
		"exclude.dirs":              &cfg.Exclude.Dirs,
	}
	for key, list := range lists {
		if k.Exists(key) {
			*list = nil
		}
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks a decoded configuration document against the schema.
func Validate(doc map[string]any) error {
	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("deadwood.schema.json", schemaDoc); err != nil {
		return err
	}
	sch, err := c.Compile("deadwood.schema.json")
	if err != nil {
		return err
	}
	return sch.Validate(normalize(doc))
}

// normalize converts parser-specific numeric types into the float64/int
// shapes the validator understands.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	case int64:
		return int(t)
	case uint64:
		return int(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// ConfigNames lists the file names searched by LoadOrDefault.
var ConfigNames = []string{
	"deadwood.toml",
	"deadwood.yaml",
	"deadwood.yml",
	"deadwood.json",
	".deadwood.toml",
	".deadwood.yaml",
	".deadwood.yml",
	".deadwood.json",
}

// Find returns the first config file found in dir or dir/.deadwood.
func Find(dir string) (string, bool) {
	for _, d := range []string{dir, filepath.Join(dir, ".deadwood")} {
		for _, name := range ConfigNames {
			path := filepath.Join(d, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
	}
	return "", false
}

// LoadOrDefault loads the config found under dir or returns defaults.
// An explicit path takes precedence over the search.
func LoadOrDefault(dir, explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	if path, ok := Find(dir); ok {
		return Load(path)
	}
	return DefaultConfig(), nil
}

// ShouldExclude reports whether a slash-separated path relative to the
// analyzed root lies in an excluded directory or has a base name matching
// an exclude pattern. Patterns are globs with {a,b} alternation; invalid
// ones never match.
func (c *Config) ShouldExclude(rel string) bool {
	for _, dir := range c.Exclude.Dirs {
		if strings.HasPrefix(rel, dir+"/") || strings.Contains(rel, "/"+dir+"/") {
			return true
		}
	}

	base := path.Base(rel)
	for _, pattern := range c.Exclude.Patterns {
		if g, err := glob.Compile(pattern); err == nil && g.Match(base) {
			return true
		}
	}
	return false
}
