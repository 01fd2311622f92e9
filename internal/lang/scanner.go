package lang

import "strings"

// Scan tokenizes src (the raw bytes of one template file) into a flat token
// sequence. It runs in three passes, matching the structure of the trim-
// marker rule in the core design: trim markers affect only the surrounding
// Content tokens, never the directive's own semantics, so trimming is a
// pure post-pass over the token list rather than something the parser has
// to reason about.
//
//  1. splitSpans breaks src into delimiter spans ({{ }}, {% %}, {# #}) and
//     the Content runs between them.
//  2. lexPayload tokenizes the inner text of every {{ }} / {% %} span into
//     Identifier/String/Punct sub-tokens.
//  3. applyTrim walks the finished token list and trims adjacent Content
//     tokens wherever a delimiter token's Trim flag is set.
func Scan(path string, src []byte) ([]Token, error) {
	spans, err := splitSpans(path, src)
	if err != nil {
		return nil, err
	}
	toks, err := lexPayloads(path, spans)
	if err != nil {
		return nil, err
	}
	applyTrim(toks)
	return toks, nil
}

type rawSpan struct {
	kind      TokenKind // TokContent, TokComment, TokVariableOpen (variable span), TokDirectiveOpen (directive span)
	bytes     []byte    // Content bytes, or the inner payload between delimiters
	pos       int       // for delimiter spans, the payload's start offset (after the opener)
	spanStart int       // for delimiter spans, the offset of the opening '{'
	spanEnd   int       // for delimiter spans, the offset just past the closer
	trimL     bool      // '-' immediately after opener
	trimR     bool      // '-' immediately before closer
}

// splitSpans performs the delimiter-recognition pass.
func splitSpans(path string, src []byte) ([]rawSpan, error) {
	var spans []rawSpan
	i := 0
	n := len(src)
	contentStart := 0
	flushContent := func(end int) {
		if end > contentStart {
			spans = append(spans, rawSpan{kind: TokContent, bytes: src[contentStart:end], pos: contentStart})
		}
	}
	for i < n {
		if src[i] == '{' && i+1 < n {
			var closer string
			var kind TokenKind
			switch src[i+1] {
			case '{':
				closer, kind = "}}", TokVariableOpen
			case '%':
				closer, kind = "%}", TokDirectiveOpen
			case '#':
				closer, kind = "#}", TokComment
			default:
				i++
				continue
			}
			openerEnd := i + 2
			end := strings.Index(string(src[openerEnd:]), closer)
			if end < 0 {
				return nil, newErr(KindScan, path, i, "unterminated %s delimiter", delimName(kind))
			}
			innerEnd := openerEnd + end
			inner := src[openerEnd:innerEnd]
			trimL, trimR := false, false
			payload := inner
			trimmed := strings.TrimLeft(string(payload), " \t\r\n")
			if strings.HasPrefix(trimmed, "-") {
				trimL = true
				payload = trimLeadAfterMarker(payload)
			}
			trimmedR := strings.TrimRight(string(payload), " \t\r\n")
			if strings.HasSuffix(trimmedR, "-") {
				trimR = true
				payload = trimTrailBeforeMarker(payload)
			}
			flushContent(i)
			spanEnd := innerEnd + len(closer)
			spans = append(spans, rawSpan{kind: kind, bytes: payload, pos: openerEnd, spanStart: i, spanEnd: spanEnd, trimL: trimL, trimR: trimR})
			i = spanEnd
			contentStart = i
			continue
		}
		i++
	}
	flushContent(n)
	return spans, nil
}

// trimLeadAfterMarker strips a leading (possibly whitespace-prefixed) '-'
// marker from a delimiter's inner payload, returning the remainder.
func trimLeadAfterMarker(inner []byte) []byte {
	s := string(inner)
	ws := len(s) - len(strings.TrimLeft(s, " \t\r\n"))
	rest := s[ws:]
	return []byte(strings.TrimPrefix(rest, "-"))
}

// trimTrailBeforeMarker strips a trailing (possibly whitespace-suffixed)
// '-' marker from a delimiter's inner payload, returning the remainder.
func trimTrailBeforeMarker(payload []byte) []byte {
	s := string(payload)
	ws := len(s) - len(strings.TrimRight(s, " \t\r\n"))
	rest := s[:len(s)-ws]
	return []byte(strings.TrimSuffix(rest, "-"))
}

func delimName(kind TokenKind) string {
	switch kind {
	case TokVariableOpen:
		return "variable"
	case TokDirectiveOpen:
		return "directive"
	case TokComment:
		return "comment"
	default:
		return "delimiter"
	}
}

// lexPayloads converts the span list into the final flat Token sequence,
// further tokenizing {{ }} and {% %} inner payloads.
func lexPayloads(path string, spans []rawSpan) ([]Token, error) {
	var toks []Token
	for _, s := range spans {
		switch s.kind {
		case TokContent:
			toks = append(toks, Token{Kind: TokContent, Bytes: s.bytes, Pos: s.pos})
		case TokComment:
			toks = append(toks, Token{Kind: TokComment, Bytes: s.bytes, Pos: s.spanStart, End: s.spanEnd, Trim: s.trimL || s.trimR})
		case TokVariableOpen:
			toks = append(toks, Token{Kind: TokVariableOpen, Pos: s.spanStart, Trim: s.trimL})
			inner, err := lexInner(path, s.pos, s.bytes)
			if err != nil {
				return nil, err
			}
			toks = append(toks, inner...)
			toks = append(toks, Token{Kind: TokVariableClose, Pos: s.pos + len(s.bytes), End: s.spanEnd, Trim: s.trimR})
		case TokDirectiveOpen:
			toks = append(toks, Token{Kind: TokDirectiveOpen, Pos: s.spanStart, Trim: s.trimL})
			inner, err := lexInner(path, s.pos, s.bytes)
			if err != nil {
				return nil, err
			}
			toks = append(toks, inner...)
			toks = append(toks, Token{Kind: TokDirectiveClose, Pos: s.pos + len(s.bytes), End: s.spanEnd, Trim: s.trimR})
		}
	}
	return toks, nil
}

// lexInner tokenizes the payload of a {{ }} or {% %} span into
// Identifier/String/Punct tokens, skipping whitespace.
func lexInner(path string, base int, payload []byte) ([]Token, error) {
	var toks []Token
	i := 0
	n := len(payload)
	for i < n {
		c := payload[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '!' || c == '?' || c == '|':
			toks = append(toks, Token{Kind: TokPunct, Bytes: payload[i : i+1], Pos: base + i})
			i++
		case c == '"':
			start := i + 1
			j := start
			for j < n && payload[j] != '"' {
				j++
			}
			if j >= n {
				return nil, newErr(KindScan, path, base+i, "unterminated string literal")
			}
			toks = append(toks, Token{Kind: TokString, Bytes: payload[start:j], Pos: base + start})
			i = j + 1
		case isIdentStart(c):
			start := i
			j := i + 1
			for j < n && isIdentCont(payload[j]) {
				j++
			}
			toks = append(toks, Token{Kind: TokIdentifier, Bytes: payload[start:j], Pos: base + start})
			i = j
		default:
			return nil, newErr(KindScan, path, base+i, "unexpected character %q in directive", c)
		}
	}
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.' || c == '-'
}

// applyTrim trims adjacent Content tokens in place wherever a delimiter
// token requested it: a VariableOpen/DirectiveOpen/Comment with Trim set
// right-trims the Content token immediately before it; a
// VariableClose/DirectiveClose/Comment with Trim set left-trims the
// Content token immediately after it.
func applyTrim(toks []Token) {
	for i, t := range toks {
		if !t.Trim {
			continue
		}
		switch t.Kind {
		case TokVariableOpen, TokDirectiveOpen:
			if i > 0 && toks[i-1].Kind == TokContent {
				toks[i-1].Bytes = []byte(strings.TrimRight(string(toks[i-1].Bytes), " \t\r\n\f\v"))
			}
		case TokVariableClose, TokDirectiveClose:
			if i+1 < len(toks) && toks[i+1].Kind == TokContent {
				toks[i+1].Bytes = []byte(strings.TrimLeft(string(toks[i+1].Bytes), " \t\r\n\f\v"))
			}
		case TokComment:
			if i > 0 && toks[i-1].Kind == TokContent {
				toks[i-1].Bytes = []byte(strings.TrimRight(string(toks[i-1].Bytes), " \t\r\n\f\v"))
			}
			if i+1 < len(toks) && toks[i+1].Kind == TokContent {
				toks[i+1].Bytes = []byte(strings.TrimLeft(string(toks[i+1].Bytes), " \t\r\n\f\v"))
			}
		}
	}
}
