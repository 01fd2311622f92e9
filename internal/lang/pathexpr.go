package lang

import "strings"

// parsePathExpr splits the raw text of a quoted path-expression string into
// literal and variable-ref fragments, re-entering the scanner's {{ }}
// delimiter recognition over the string's content. No filters are
// supported here — only a bare name_path between the delimiters.
func parsePathExpr(path string, raw []byte, offset int) ([]PathFragment, error) {
	var frags []PathFragment
	i := 0
	n := len(raw)
	litStart := 0
	flush := func(end int) {
		if end > litStart {
			frags = append(frags, PathFragment{Literal: string(raw[litStart:end])})
		}
	}
	for i < n {
		if raw[i] == '{' && i+1 < n && raw[i+1] == '{' {
			flush(i)
			openerEnd := i + 2
			end := strings.Index(string(raw[openerEnd:]), "}}")
			if end < 0 {
				return nil, newErr(KindScan, path, offset+i, "unterminated variable reference in path expression")
			}
			innerEnd := openerEnd + end
			name := strings.TrimSpace(string(raw[openerEnd:innerEnd]))
			if name == "" {
				return nil, newErr(KindParse, path, offset+openerEnd, "empty variable reference in path expression")
			}
			frags = append(frags, PathFragment{IsVarRef: true, NamePath: name})
			i = innerEnd + 2
			litStart = i
			continue
		}
		i++
	}
	flush(n)
	return frags, nil
}

// resolvePathExpr evaluates a path expression's fragments against env,
// producing the concrete path string. A variable-ref fragment that does
// not resolve is a ResolveError: meta-paths require their referenced
// variables to exist, unlike ordinary variable references.
func resolvePathExpr(path string, offset int, frags []PathFragment, env *Environment) (string, error) {
	var b strings.Builder
	for _, f := range frags {
		if !f.IsVarRef {
			b.WriteString(f.Literal)
			continue
		}
		v, ok := env.Lookup(f.NamePath)
		if !ok {
			return "", newErr(KindResolve, path, offset, "undefined variable %q in path expression", f.NamePath)
		}
		b.Write(textOf(v))
	}
	return b.String(), nil
}
