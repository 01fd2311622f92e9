package lang

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanLiteralPassthrough(t *testing.T) {
	toks, err := Scan("t", []byte("hello world, no delimiters here"))
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.Equal(t, TokContent, toks[0].Kind)
}

func TestScanVariableRef(t *testing.T) {
	toks, err := Scan("t", []byte("a{{ foo.bar }}b"))
	require.NoError(t, err)
	var kinds []TokenKind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Equal(t, []TokenKind{TokContent, TokVariableOpen, TokIdentifier, TokVariableClose, TokContent}, kinds)
}

func TestScanTrimMarkers(t *testing.T) {
	toks, err := Scan("t", []byte("  left  {%- if x -%}  right  "))
	require.NoError(t, err)
	// the Content token before the directive should be right-trimmed, and
	// the Content token after it left-trimmed.
	require.Equal(t, TokContent, toks[0].Kind)
	require.Equal(t, "  left", string(toks[0].Bytes))
	last := toks[len(toks)-1]
	require.Equal(t, TokContent, last.Kind)
	require.Equal(t, "right  ", string(last.Bytes))
}

func TestScanUnterminatedDelimiter(t *testing.T) {
	_, err := Scan("t", []byte("hello {{ foo"))
	require.Error(t, err)
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	require.Equal(t, KindScan, lerr.Kind)
}

func TestScanUnterminatedString(t *testing.T) {
	_, err := Scan("t", []byte(`{% for i in "unterminated %}`))
	require.Error(t, err)
}

func TestScanFilterPipeline(t *testing.T) {
	toks, err := Scan("t", []byte(`{{ x | replace "A" "B" | upper }}`))
	require.NoError(t, err)
	var idents []string
	for _, tok := range toks {
		if tok.Kind == TokIdentifier {
			idents = append(idents, string(tok.Bytes))
		}
	}
	require.Equal(t, []string{"x", "replace", "upper"}, idents)
}
