package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmdExampleFlag(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"-e"})
	require.NoError(t, cmd.Execute())
}

func TestRootCmdRunsConfiguredMappings(t *testing.T) {
	root := t.TempDir()
	dst := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tpl"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tpl", "a.txt"), []byte(`Hi {{ name }}`), 0o644))

	cfgPath := filepath.Join(root, "vg.yaml")
	cfgContent := "root: " + root + "\nmappings:\n  - src: /tpl/a.txt\n    dst: " + filepath.Join(dst, "a.txt") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgContent), 0o644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "-i", "name:Kanopi", "-t", "-o", "-v"})
	require.NoError(t, cmd.Execute())

	out, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	require.Contains(t, string(out), "Hi Kanopi")
}

func TestParseKeyValuesRejectsMissingColon(t *testing.T) {
	_, err := parseKeyValues([]string{"bad"})
	require.Error(t, err)
}
