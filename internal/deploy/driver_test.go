package deploy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDriverSingleMappingWritesGuardedOutput(t *testing.T) {
	root := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), `Hello, {{ name }}!`)

	cfg := NewDefaultConfig()
	cfg.Root = root
	cfg.Implementations = map[string]string{"name": "Kanopi"}
	cfg.Render.GuardString = "GUARD"

	drv, err := NewDriver(cfg, nil)
	require.NoError(t, err)

	results, err := drv.Run([]Mapping{{Src: "/a.txt", Dst: filepath.Join(dst, "a.txt")}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, StatusSuccess, results[0].Status)

	out, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	require.Contains(t, string(out), "GUARD")
	require.Contains(t, string(out), "Hello, Kanopi!")
}

func TestDriverSkipsUnchangedWrite(t *testing.T) {
	root := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), `static`)

	cfg := NewDefaultConfig()
	cfg.Root = root
	drv, err := NewDriver(cfg, nil)
	require.NoError(t, err)

	mappings := []Mapping{{Src: "/a.txt", Dst: filepath.Join(dst, "a.txt")}}
	first, err := drv.Run(mappings)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, first[0].Status)

	second, err := drv.Run(mappings)
	require.NoError(t, err)
	require.Equal(t, StatusUnchanged, second[0].Status)
}

func TestDriverRespectsExistingGuardlessFile(t *testing.T) {
	root := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), `generated`)
	writeFile(t, filepath.Join(dst, "a.txt"), `hand-written, no guard here`)

	cfg := NewDefaultConfig()
	cfg.Root = root
	drv, err := NewDriver(cfg, nil)
	require.NoError(t, err)

	results, err := drv.Run([]Mapping{{Src: "/a.txt", Dst: filepath.Join(dst, "a.txt")}})
	require.NoError(t, err)
	require.Equal(t, StatusIgnored, results[0].Status)

	out, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hand-written, no guard here", string(out))
}

func TestDriverGlobExpansion(t *testing.T) {
	root := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(root, "tpl", "a.txt"), "A")
	writeFile(t, filepath.Join(root, "tpl", "b.txt"), "B")

	cfg := NewDefaultConfig()
	cfg.Root = root
	drv, err := NewDriver(cfg, nil)
	require.NoError(t, err)

	results, err := drv.Run([]Mapping{{Src: "tpl/*.txt", Dst: dst}})
	require.NoError(t, err)
	require.Len(t, results, 2)

	outA, err := os.ReadFile(filepath.Join(dst, "tpl", "a.txt"))
	require.NoError(t, err)
	require.Contains(t, string(outA), "A")
}

func TestDriverValidateModePerformsNoWrites(t *testing.T) {
	root := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "A")

	cfg := NewDefaultConfig()
	cfg.Root = root
	drv, err := NewDriver(cfg, nil)
	require.NoError(t, err)
	drv.Validate = true

	results, err := drv.Run([]Mapping{{Src: "/a.txt", Dst: filepath.Join(dst, "a.txt")}})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, results[0].Status)

	_, statErr := os.Stat(filepath.Join(dst, "a.txt"))
	require.True(t, os.IsNotExist(statErr))
}

func TestDriverRawCopyModeSkipsCompilation(t *testing.T) {
	root := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), `{{ not_substituted }}`)

	cfg := NewDefaultConfig()
	cfg.Root = root
	cfg.Render.InjectGuard = false
	drv, err := NewDriver(cfg, nil)
	require.NoError(t, err)

	results, err := drv.Run([]Mapping{{Src: "/a.txt", Dst: filepath.Join(dst, "a.txt"), Raw: true}})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, results[0].Status)

	out, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "{{ not_substituted }}", string(out))
}
