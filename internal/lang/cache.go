package lang

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Cache resolves path expressions to parsed Documents and memoizes them by
// canonical path. One Cache is owned by a single compilation session; a
// deployment driver that compiles many files in sequence may retain and
// reuse one Cache across the whole run (§5's single-writer/single-reader
// shared-resource policy), since the core is synchronous and never
// compiles two files concurrently.
type Cache struct {
	root    string
	noCache bool
	docs    map[string]*Document
	seeded  map[string]bool
}

// NewCache returns a Cache rooted at root. When noCache is true, previously
// loaded (non-seeded) documents are re-read and re-parsed on every Load;
// seeded entries are always honored regardless.
func NewCache(root string, noCache bool) *Cache {
	return &Cache{
		root:    root,
		noCache: noCache,
		docs:    map[string]*Document{},
		seeded:  map[string]bool{},
	}
}

// SeedCached registers a virtual document at path key whose source is
// value, as if value were the content of a file at that path — the
// `--cached key:value` CLI form.
func (c *Cache) SeedCached(key, value string) error {
	canon, err := c.canonicalizeSeed(key)
	if err != nil {
		return err
	}
	doc, err := Parse(canon, []byte(value))
	if err != nil {
		return err
	}
	c.docs[canon] = doc
	c.seeded[canon] = true
	return nil
}

func (c *Cache) canonicalizeSeed(key string) (string, error) {
	if strings.HasPrefix(key, "/") {
		return filepath.Join(c.root, strings.TrimPrefix(key, "/")), nil
	}
	abs, err := filepath.Abs(key)
	if err != nil {
		return "", wrapErr(KindIO, key, 0, err, "resolving cache seed key")
	}
	return abs, nil
}

// Resolve turns a concrete (already meta-path-substituted) path string into
// a canonical filesystem path, per §4.3: absolute against root if it starts
// with '/', else relative to baseDir.
func (c *Cache) Resolve(rawPath, baseDir string) (string, error) {
	var joined string
	if strings.HasPrefix(rawPath, "/") {
		joined = filepath.Join(c.root, strings.TrimPrefix(rawPath, "/"))
	} else {
		joined = filepath.Join(baseDir, rawPath)
	}
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", wrapErr(KindIO, rawPath, 0, err, "resolving path")
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

// Load returns the parsed Document at canonPath, honoring cache/no-cache
// semantics (§4.3 step 4-5).
func (c *Cache) Load(canonPath string) (*Document, error) {
	if doc, ok := c.docs[canonPath]; ok {
		if c.seeded[canonPath] || !c.noCache {
			return doc, nil
		}
	}
	data, err := os.ReadFile(canonPath)
	if err != nil {
		return nil, wrapErr(KindIO, canonPath, 0, err, "reading template file")
	}
	doc, err := Parse(canonPath, data)
	if err != nil {
		return nil, err
	}
	c.docs[canonPath] = doc
	return doc, nil
}

// ReadRaw returns the raw bytes of the file at canonPath, for `include raw`
// and `include md`.
func (c *Cache) ReadRaw(canonPath string) ([]byte, error) {
	data, err := os.ReadFile(canonPath)
	if err != nil {
		return nil, wrapErr(KindIO, canonPath, 0, err, "reading file")
	}
	return data, nil
}

// ListRegularFiles returns the lexicographically sorted regular-file entries
// of dir, for `for`-loop directory enumeration, as paths joined onto dir.
// Symlinks are followed when classifying an entry, but the returned path
// is the link's own path, not its target. Entries
// that are neither regular files nor stat-able (sockets, devices, broken
// symlinks) are skipped; warn, if non-nil, is called once per skipped entry
// with a diagnostic message.
func ListRegularFiles(dir string, warn func(string)) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wrapErr(KindIO, dir, 0, err, "reading directory")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	var out []string
	for _, name := range names {
		full := filepath.Join(dir, name)
		info, err := os.Stat(full) // Stat follows symlinks, per the file system note
		if err != nil {
			if warn != nil {
				warn("skipping unreadable directory entry " + full + ": " + err.Error())
			}
			continue
		}
		if info.Mode().IsRegular() {
			out = append(out, full)
		} else if warn != nil {
			warn("skipping non-regular directory entry " + full)
		}
	}
	return out, nil
}

// IsDir reports whether path names an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
