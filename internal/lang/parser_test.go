package lang

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUnknownDirectiveIsError(t *testing.T) {
	_, err := Parse("t", []byte(`{% frobnicate %}`))
	require.Error(t, err)
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	require.Equal(t, KindParse, lerr.Kind)
}

func TestParseUnmatchedCloserIsError(t *testing.T) {
	_, err := Parse("t", []byte(`{% if x %}body{% endfor %}`))
	require.Error(t, err)
}

func TestParseDuplicateExtendsBecomesContent(t *testing.T) {
	doc, err := Parse("t", []byte(`{% extends "/p.j" %}{% extends "/q.j" %}`))
	require.NoError(t, err)
	require.Equal(t, Extending, doc.Prelude)
	require.Len(t, doc.Nodes, 1)
	lit, ok := doc.Nodes[0].(*Literal)
	require.True(t, ok)
	require.Equal(t, `{% extends "/q.j" %}`, string(lit.Bytes))
}

func TestParseIgnoreAsFirstNode(t *testing.T) {
	doc, err := Parse("t", []byte(`{% ignore %}rest of the file is irrelevant`))
	require.NoError(t, err)
	require.Equal(t, Ignored, doc.Prelude)
	require.Nil(t, doc.Nodes)
}

func TestParseIgnoreAfterContentBecomesLiteral(t *testing.T) {
	doc, err := Parse("t", []byte(`hi{% ignore %}`))
	require.NoError(t, err)
	require.Equal(t, Normal, doc.Prelude)
	require.Len(t, doc.Nodes, 2)
	lit, ok := doc.Nodes[1].(*Literal)
	require.True(t, ok)
	require.Equal(t, `{% ignore %}`, string(lit.Bytes))
}

func TestParseIfConditionGrammar(t *testing.T) {
	doc, err := Parse("t", []byte(`{% if x not empty %}a{% endif %}`))
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)
	ifNode, ok := doc.Nodes[0].(*If)
	require.True(t, ok)
	require.Equal(t, CondNotEmpty, ifNode.Kind)
	require.Equal(t, "x", ifNode.NamePath)
}

func TestParseVariableRefWithFilters(t *testing.T) {
	doc, err := Parse("t", []byte(`{{ x | replace "A" "B" | upper }}`))
	require.NoError(t, err)
	ref, ok := doc.Nodes[0].(*VariableRef)
	require.True(t, ok)
	require.Equal(t, "x", ref.NamePath)
	require.Len(t, ref.Filters, 2)
	require.Equal(t, "replace", ref.Filters[0].Name)
	require.Equal(t, []string{"A", "B"}, ref.Filters[0].Args)
	require.Equal(t, "upper", ref.Filters[1].Name)
}

func TestParseMetaPathInForLoop(t *testing.T) {
	doc, err := Parse("t", []byte(`{% for x in "{{ d }}" %}{% endfor %}`))
	require.NoError(t, err)
	forNode, ok := doc.Nodes[0].(*For)
	require.True(t, ok)
	require.Len(t, forNode.PathExpr, 1)
	require.True(t, forNode.PathExpr[0].IsVarRef)
	require.Equal(t, "d", forNode.PathExpr[0].NamePath)
}
