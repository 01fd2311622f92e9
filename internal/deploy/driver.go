package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kanopi/vg/internal/lang"
	"github.com/kanopi/vg/pkg/vg"
)

// Status classifies the outcome of compiling and placing one mapping entry.
type Status int

const (
	StatusSuccess Status = iota
	StatusUnchanged
	StatusIgnored
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "written"
	case StatusUnchanged:
		return "unchanged"
	case StatusIgnored:
		return "ignored"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the structured outcome of one expanded mapping entry (one
// source file resolved from a Mapping, possibly via glob expansion).
type Result struct {
	Src      string
	Dst      string
	Status   Status
	Err      error
	Duration time.Duration
}

// Driver walks a Config's mappings, compiling (or raw-copying) each
// resolved source into its destination.
type Driver struct {
	Root       string
	Cache      *lang.Cache
	Markdowner lang.Markdowner
	Warnf      func(string, ...any)

	// Validate, when true, compiles every mapping but performs no writes
	// (vgd's -r flag).
	Validate bool

	InjectGuard    bool
	GuardString    string
	PruneEmptyDirs bool
	NoCache        bool

	Implementations map[string]string
	Cached          map[string]string
}

// NewDriver builds a Driver from a loaded Config, seeding one shared
// *lang.Cache reused across every mapping in the run (§5's single-writer
// policy: the core is synchronous, so one Cache can be walked sequentially
// without a mutex).
func NewDriver(cfg *Config, warnf func(string, ...any)) (*Driver, error) {
	cache := lang.NewCache(cfg.Root, cfg.NoCache)
	for k, v := range cfg.Cached {
		if err := cache.SeedCached(k, v); err != nil {
			return nil, fmt.Errorf("seeding cached %q: %w", k, err)
		}
	}
	return &Driver{
		Root:            cfg.Root,
		Cache:           cache,
		Warnf:           warnf,
		InjectGuard:     cfg.Render.InjectGuard,
		GuardString:     cfg.Render.GuardString,
		PruneEmptyDirs:  cfg.Render.PruneEmptyDirs,
		NoCache:         cfg.NoCache,
		Implementations: cfg.Implementations,
		Cached:          cfg.Cached,
	}, nil
}

// Run expands and processes every mapping in mappings, returning one
// Result per resolved source file.
func (d *Driver) Run(mappings []Mapping) ([]Result, error) {
	var results []Result
	for _, m := range mappings {
		entries, err := d.expand(m)
		if err != nil {
			return results, fmt.Errorf("expand mapping %q: %w", m.Src, err)
		}
		for _, e := range entries {
			start := time.Now()
			res := d.process(e)
			res.Duration = time.Since(start)
			results = append(results, res)
		}

		// A glob mapping's Dst is a directory root that receives one file
		// per match; prune any subdirectories that ended up empty (e.g. a
		// source subtree whose only files were all guard-skipped). A
		// single-file mapping's Dst names the output file itself, not a
		// directory, so there is nothing under it to prune.
		if d.PruneEmptyDirs && !d.Validate && strings.ContainsAny(m.Src, "*?[{") {
			_ = PruneEmptyDirs(m.Dst)
		}
	}

	return results, nil
}

type resolvedEntry struct {
	src, dst string
	raw      bool
}

// expand turns one Mapping into a concrete list of (src, dst) file pairs,
// expanding m.Src as a doublestar glob (relative to d.Root) when it
// contains glob metacharacters, mirroring each match's relative path under
// m.Dst; otherwise treats m.Src/m.Dst as a single literal file pair.
func (d *Driver) expand(m Mapping) ([]resolvedEntry, error) {
	if !strings.ContainsAny(m.Src, "*?[{") {
		return []resolvedEntry{{src: m.Src, dst: m.Dst, raw: m.Raw}}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(d.Root), strings.TrimPrefix(m.Src, "/"))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", m.Src, err)
	}
	out := make([]resolvedEntry, 0, len(matches))
	for _, rel := range matches {
		out = append(out, resolvedEntry{
			src: "/" + filepath.ToSlash(rel),
			dst: filepath.Join(m.Dst, filepath.FromSlash(rel)),
			raw: m.Raw,
		})
	}
	return out, nil
}

func (d *Driver) process(e resolvedEntry) Result {
	res := Result{Src: e.src, Dst: e.dst}

	var out []byte
	var err error
	if e.raw {
		out, err = d.Cache.ReadRaw(d.resolvePath(e.src))
	} else {
		out, err = d.compile(e.src)
	}
	if err != nil {
		if lang.IsIgnored(err) {
			res.Status = StatusIgnored
			return res
		}
		res.Status = StatusError
		res.Err = err
		return res
	}

	if d.InjectGuard && !e.raw {
		out = injectGuardForExt(e.dst, out, d.GuardString)
	}

	if d.Validate {
		res.Status = StatusSuccess
		return res
	}

	ok, gerr := canOverwrite(e.dst, d.GuardString)
	if gerr != nil {
		res.Status = StatusError
		res.Err = gerr
		return res
	}
	if !ok {
		if d.Warnf != nil {
			d.Warnf("skip (guard missing) %s", e.dst)
		}
		res.Status = StatusIgnored
		return res
	}

	changed, werr := writeIfChanged(e.dst, out, 0o644)
	if werr != nil {
		res.Status = StatusError
		res.Err = werr
		return res
	}
	if !changed {
		res.Status = StatusUnchanged
		return res
	}
	res.Status = StatusSuccess
	return res
}

func (d *Driver) compile(src string) ([]byte, error) {
	opts := vg.Options{
		Root:       d.Root,
		Target:     src,
		NoCache:    d.NoCache,
		Markdowner: d.Markdowner,
		WarnFunc:   d.Warnf,
		Cache:      d.Cache,
	}
	for k, v := range d.Implementations {
		opts.Implementations = append(opts.Implementations, vg.Implementation{Key: k, Value: v})
	}
	res, err := vg.Compile(opts)
	if err != nil {
		return nil, err
	}
	return res.Output, nil
}

func (d *Driver) resolvePath(rawPath string) string {
	canon, err := d.Cache.Resolve(rawPath, d.Root)
	if err != nil {
		return filepath.Join(d.Root, strings.TrimPrefix(rawPath, "/"))
	}
	return canon
}
