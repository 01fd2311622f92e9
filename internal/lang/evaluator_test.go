package lang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// compile is a small test helper mirroring pkg/vg's public Compile entry
// point, scoped to internal/lang so these tests don't need to import the
// outer package.
func compile(t *testing.T, root, target string, implementations map[string]string) string {
	t.Helper()
	env := NewEnvironment()
	for k, v := range implementations {
		env.BindBottom(k, TextValue{Bytes: []byte(v)})
	}
	out, _, err := CompileFile(target, env, CompileOptions{Root: root})
	require.NoError(t, err)
	return string(out)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLiteralPassthrough(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "plain.txt"), "just some bytes, no braces at all")
	got := compile(t, root, "/plain.txt", nil)
	require.Equal(t, "just some bytes, no braces at all", got)
}

func TestCommentErasure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "c.txt"), "A{# this vanishes #}B")
	got := compile(t, root, "/c.txt", nil)
	require.Equal(t, "AB", got)
}

func TestUndefinedNonNullablePassthrough(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "v.txt"), "{{ foo }}")
	got := compile(t, root, "/v.txt", nil)
	require.Equal(t, "{{ foo }}", got)
}

func TestNullableErasure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "v.txt"), "{{ foo? }}")
	got := compile(t, root, "/v.txt", nil)
	require.Equal(t, "", got)
}

func TestScenarioPlainConditional(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "cond.txt"), `{% if title %}{{ title }}{% else %}Home{% endif %}`)
	require.Equal(t, "Home", compile(t, root, "/cond.txt", nil))
	require.Equal(t, "Hello", compile(t, root, "/cond.txt", map[string]string{"title": "Hello"}))
}

func TestScenarioBlockThenReference(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), `{% block t %}X{% endblock %}<{{ t }}>`)
	require.Equal(t, "<X>", compile(t, root, "/b.txt", nil))
}

func TestScenarioFilterPipeline(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "f.txt"), "{% block s %}\n\tA\n\tB\n{% endblock %}[{{ s | detab | flatten | trim }}]")
	require.Equal(t, "[A  B]", compile(t, root, "/f.txt", nil))
}

func TestScenarioEmptyLoop(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "d"), 0o755))
	writeFile(t, filepath.Join(root, "loop.txt"), `{% for i in "/d" %}x{% else %}none{% endfor %}`)
	require.Equal(t, "none", compile(t, root, "/loop.txt", nil))
}

func TestScenarioLoopOverFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "d", "a.j"), `{% block n %}A{% endblock %}`)
	writeFile(t, filepath.Join(root, "d", "b.j"), `{% block n %}B{% endblock %}`)
	writeFile(t, filepath.Join(root, "loop.txt"), `{% for i in "/d" %}[{{ i.n }}]{% endfor %}`)
	require.Equal(t, "[A][B]", compile(t, root, "/loop.txt", nil))
}

func TestScenarioExtends(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "p.j"), `T:{% if title %}{{ title }}{% else %}H{% endif %}`)
	writeFile(t, filepath.Join(root, "c.j"), `{% extends "/p.j" %}{% block title %}C{% endblock %}`)
	require.Equal(t, "T:C", compile(t, root, "/c.j", nil))
}

func TestScenarioMetaPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "d", "a.j"), `{% block n %}A{% endblock %}`)
	writeFile(t, filepath.Join(root, "d", "b.j"), `{% block n %}B{% endblock %}`)
	writeFile(t, filepath.Join(root, "meta.txt"), `{% for i in "{{ d }}" %}{{ i.n }}{% endfor %}`)
	got := compile(t, root, "/meta.txt", map[string]string{"d": "/d"})
	require.Equal(t, "AB", got)
}

func TestIgnoreSentinel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "skip.txt"), `{% ignore %}whatever follows does not matter`)
	env := NewEnvironment()
	_, _, err := CompileFile("/skip.txt", env, CompileOptions{Root: root})
	require.Error(t, err)
	require.True(t, IsIgnored(err))
}

func TestIncludeParsedTransparency(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "inc.txt"), "B-CONTENT")
	writeFile(t, filepath.Join(root, "main.txt"), `A{% include "/inc.txt" %}C`)
	require.Equal(t, "AB-CONTENTC", compile(t, root, "/main.txt", nil))
}

func TestIncludeRawVerbatim(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "inc.txt"), `{{ not_substituted }}`)
	writeFile(t, filepath.Join(root, "main.txt"), `{% include raw "/inc.txt" %}`)
	require.Equal(t, "{{ not_substituted }}", compile(t, root, "/main.txt", nil))
}

func TestIncludeAliasNamespacesBlocks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "inc.txt"), `{% block greeting %}Hi{% endblock %}`)
	writeFile(t, filepath.Join(root, "main.txt"), `{% include "/inc.txt" as other %}[{{ other.greeting }}]`)
	require.Equal(t, "[Hi]", compile(t, root, "/main.txt", nil))
}

func TestCycleDetection(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), `{% include "/b.txt" %}`)
	writeFile(t, filepath.Join(root, "b.txt"), `{% include "/a.txt" %}`)
	env := NewEnvironment()
	_, _, err := CompileFile("/a.txt", env, CompileOptions{Root: root})
	require.Error(t, err)
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	require.Equal(t, KindCycle, lerr.Kind)
}

func TestMisplacedExtendsReclassifiedAsLiteral(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "t.txt"), `x{% extends "/p.j" %}`)
	got := compile(t, root, "/t.txt", nil)
	require.Equal(t, `x{% extends "/p.j" %}`, got)
}
