package deadcode

import (
	"path"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultResolveCacheSize bounds the specifier resolution memo.
const DefaultResolveCacheSize = 4096

var resolveExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"}

// TypeScript ESM imports name the emitted .js file.
var tsCounterparts = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

type resolveStatus uint8

const (
	resolvedFile resolveStatus = iota
	resolvedExternal
	unresolved
)

type resolution struct {
	status resolveStatus
	file   int
}

type alias struct {
	prefix string
	target string
}

// resolver maps import specifiers to analyzed files. It never touches the
// filesystem: candidates are checked against the scanned file set.
type resolver struct {
	files   map[string]int
	aliases []alias
	memo    *lru.Cache[string, resolution]
}

func newResolver(files map[string]int, aliases map[string]string, cacheSize int) *resolver {
	if cacheSize <= 0 {
		cacheSize = DefaultResolveCacheSize
	}
	memo, _ := lru.New[string, resolution](cacheSize)

	r := &resolver{files: files, memo: memo}
	for prefix, target := range aliases {
		p := strings.TrimSuffix(strings.TrimSuffix(prefix, "*"), "/")
		t := strings.TrimSuffix(strings.TrimSuffix(target, "*"), "/")
		t = strings.TrimPrefix(path.Clean("/"+t), "/")
		if p == "" {
			continue
		}
		r.aliases = append(r.aliases, alias{prefix: p, target: t})
	}
	// longest prefix wins
	sort.Slice(r.aliases, func(i, j int) bool {
		if len(r.aliases[i].prefix) != len(r.aliases[j].prefix) {
			return len(r.aliases[i].prefix) > len(r.aliases[j].prefix)
		}
		return r.aliases[i].prefix < r.aliases[j].prefix
	})
	return r
}

// resolve resolves spec as imported from the file at fromPath.
func (r *resolver) resolve(fromPath, spec string) resolution {
	dir := path.Dir(fromPath)
	key := dir + "\x00" + spec
	if res, ok := r.memo.Get(key); ok {
		return res
	}
	res := r.lookup(dir, spec)
	r.memo.Add(key, res)
	return res
}

func (r *resolver) lookup(dir, spec string) resolution {
	if i := strings.IndexAny(spec, "?#"); i > 0 {
		spec = spec[:i]
	}

	var base string
	switch {
	case spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../"):
		base = path.Join(dir, spec)
	case strings.HasPrefix(spec, "/"):
		base = strings.TrimPrefix(path.Clean(spec), "/")
	default:
		var ok bool
		if base, ok = r.applyAlias(spec); !ok {
			return resolution{status: resolvedExternal}
		}
	}

	if base == ".." || strings.HasPrefix(base, "../") {
		return resolution{status: unresolved}
	}

	for _, cand := range candidates(base) {
		if fi, ok := r.files[cand]; ok {
			return resolution{status: resolvedFile, file: fi}
		}
	}
	return resolution{status: unresolved}
}

func (r *resolver) applyAlias(spec string) (string, bool) {
	for _, a := range r.aliases {
		if spec == a.prefix || strings.HasPrefix(spec, a.prefix+"/") {
			return path.Join(a.target, strings.TrimPrefix(spec, a.prefix)), true
		}
	}
	return "", false
}

// candidates lists the file paths base may refer to, in lookup order.
func candidates(base string) []string {
	out := make([]string, 0, 2+2*len(resolveExtensions))
	if base != "." {
		out = append(out, base)
		for _, ext := range resolveExtensions {
			out = append(out, base+ext)
		}
		ext := path.Ext(base)
		if swaps, ok := tsCounterparts[ext]; ok {
			stem := strings.TrimSuffix(base, ext)
			for _, s := range swaps {
				out = append(out, stem+s)
			}
		}
	}
	for _, ext := range resolveExtensions {
		out = append(out, path.Join(base, "index"+ext))
	}
	return out
}
