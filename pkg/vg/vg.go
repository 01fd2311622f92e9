// Package vg is the reusable compile API for the filesystem-driven template
// language implemented in internal/lang. It exposes a small Options/Result
// contract independent of any CLI, analogous to templr's RenderSingle but
// rooted at a filesystem tree instead of in-memory strings.
package vg

import (
	"fmt"

	"github.com/kanopi/vg/internal/lang"
)

// Implementation is one --implementation/-i seed: a plain string value bound
// at the bottom environment frame, visible to every file compiled against
// this Options value.
type Implementation struct {
	Key   string
	Value string
}

// Cached is one --cached/-c seed: a virtual document the Cache treats as
// already-resolved content for Key, without ever touching the filesystem.
type Cached struct {
	Key   string
	Value string
}

// Options configures a single compile of one target file against a root
// directory. Root anchors every absolute path_expr and every relative
// include/for lookup rooted at the target's own directory.
type Options struct {
	Root            string
	Target          string
	Implementations []Implementation
	Cached          []Cached
	NoCache         bool
	Markdowner      lang.Markdowner
	MaxDepth        int
	WarnFunc        func(string, ...any)

	// Cache lets a caller reuse one Cache (and its Document cache) across
	// several Compile calls rooted at the same Root, e.g. a deployment
	// driver compiling many mapped targets without re-parsing shared
	// includes/parents. Nil means Compile builds a fresh one internally.
	Cache *lang.Cache
}

// Result is the successful compile result plus the Cache used to produce
// it, so a caller can pass the same Cache into a subsequent Options.Cache
// to amortize Document parsing across many targets sharing one Root.
type Result struct {
	Output []byte
	Cache  *lang.Cache
}

// Compile renders opts.Target against opts.Root per the directive grammar
// implemented in internal/lang, returning the rendered bytes.
func Compile(opts Options) (Result, error) {
	if opts.Root == "" {
		return Result{}, fmt.Errorf("vg: Options.Root must not be empty")
	}
	if opts.Target == "" {
		return Result{}, fmt.Errorf("vg: Options.Target must not be empty")
	}

	env := lang.NewEnvironment()
	for _, impl := range opts.Implementations {
		env.BindBottom(impl.Key, lang.TextValue{Bytes: []byte(impl.Value)})
	}

	cache := opts.Cache
	if cache == nil {
		cache = lang.NewCache(opts.Root, opts.NoCache)
	}
	for _, c := range opts.Cached {
		if err := cache.SeedCached(c.Key, c.Value); err != nil {
			return Result{}, fmt.Errorf("vg: seeding --cached %q: %w", c.Key, err)
		}
	}

	out, usedCache, err := lang.CompileFile(opts.Target, env, lang.CompileOptions{
		Root:       opts.Root,
		Markdowner: opts.Markdowner,
		MaxDepth:   opts.MaxDepth,
		Warnf:      opts.WarnFunc,
		Cache:      cache,
		NoCache:    opts.NoCache,
	})
	if err != nil {
		return Result{Cache: usedCache}, err
	}
	return Result{Output: out, Cache: usedCache}, nil
}
