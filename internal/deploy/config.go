// Package deploy implements the bulk deployment driver: a declarative
// configuration of source->destination mappings, each compiled (or raw
// copied) into place with atomic writes and guard-marker protection.
package deploy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Mapping pairs a source template (or doublestar glob of templates) with a
// destination file (or destination directory, when Src is a glob).
type Mapping struct {
	Src string `yaml:"src" toml:"src"`
	Dst string `yaml:"dst" toml:"dst"`
	Raw bool   `yaml:"raw" toml:"raw"`
}

// RenderConfig holds driver-wide rendering defaults, mirroring the
// teacher's render section.
type RenderConfig struct {
	InjectGuard    bool   `yaml:"inject_guard" toml:"inject_guard"`
	GuardString    string `yaml:"guard_string" toml:"guard_string"`
	PruneEmptyDirs bool   `yaml:"prune_empty_dirs" toml:"prune_empty_dirs"`
}

// Config is the full contents of a vg.yaml/vg.toml deployment configuration.
type Config struct {
	Root            string            `yaml:"root" toml:"root"`
	Mappings        []Mapping         `yaml:"mappings" toml:"mappings"`
	Implementations map[string]string `yaml:"implementations" toml:"implementations"`
	Cached          map[string]string `yaml:"cached" toml:"cached"`
	Render          RenderConfig      `yaml:"render" toml:"render"`
	NoCache         bool              `yaml:"no_cache" toml:"no_cache"`
}

// NewDefaultConfig returns a Config with default values, mirroring the
// teacher's NewDefaultConfig baseline-struct pattern.
func NewDefaultConfig() *Config {
	return &Config{
		Root: ".",
		Render: RenderConfig{
			InjectGuard:    true,
			GuardString:    "vg:generated",
			PruneEmptyDirs: true,
		},
	}
}

// LoadConfig loads configuration with the following precedence:
//  1. explicit configPath (--config flag)
//  2. ./vg.yaml, ./vg.yml or ./vg.toml in the current directory
//  3. built-in defaults
//
// When both are present, the project-local file is merged onto the defaults
// first and configPath is merged after it, so the fields configPath sets
// win; fields it leaves unset keep the project-local values. A project-local
// file that fails to load is skipped; a configPath that fails to load is an
// error.
func LoadConfig(configPath string) (*Config, error) {
	config := NewDefaultConfig()

	var files []string
	if projectConfig := projectConfigPath(); projectConfig != "" {
		files = append(files, projectConfig)
	}
	if configPath != "" {
		files = append(files, configPath)
	}

	for _, path := range files {
		if err := loadAndMergeConfig(config, path); err != nil {
			if path == configPath && configPath != "" {
				return nil, fmt.Errorf("load config %s: %w", path, err)
			}
			continue
		}
	}

	return config, nil
}

// projectConfigPath returns the first of "vg.yaml", "vg.yml" and "vg.toml"
// that exists in the current directory, in that order, or "" if none does.
func projectConfigPath() string {
	for _, name := range []string{"vg.yaml", "vg.yml", "vg.toml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func loadAndMergeConfig(base *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var loaded Config
	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("parse toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
	}

	mergeConfigs(base, &loaded)
	return nil
}

// mergeConfigs merges src into dst, src taking precedence for non-zero
// fields (a src Root of "." counts as unset). Booleans are unconditionally copied when src was the file being
// merged in (the same "can't distinguish unset from false" constraint the
// teacher's own mergeConfigs documents), since later files in the
// precedence chain are expected to fully restate render-behavior toggles.
func mergeConfigs(dst, src *Config) {
	if src.Root != "" && src.Root != "." {
		dst.Root = src.Root
	}
	if len(src.Mappings) > 0 {
		dst.Mappings = src.Mappings
	}
	if len(src.Implementations) > 0 {
		if dst.Implementations == nil {
			dst.Implementations = map[string]string{}
		}
		for k, v := range src.Implementations {
			dst.Implementations[k] = v
		}
	}
	if len(src.Cached) > 0 {
		if dst.Cached == nil {
			dst.Cached = map[string]string{}
		}
		for k, v := range src.Cached {
			dst.Cached[k] = v
		}
	}
	if src.Render.GuardString != "" {
		dst.Render.GuardString = src.Render.GuardString
	}
	dst.Render.InjectGuard = src.Render.InjectGuard
	dst.Render.PruneEmptyDirs = src.Render.PruneEmptyDirs
	dst.NoCache = src.NoCache
}

// ExampleYAML returns a sample configuration document for `vgd -e`.
func ExampleYAML() string {
	return `# vg.yaml - deployment mapping configuration
root: .
mappings:
  - src: templates/**/*.tpl
    dst: build
  - src: templates/static/logo.svg
    dst: build/static/logo.svg
    raw: true
implementations:
  env: production
cached: {}
render:
  inject_guard: true
  guard_string: "vg:generated"
  prune_empty_dirs: true
no_cache: false
`
}
