package lang

import "strings"

// parser turns a flat token sequence into a Document tree. It is a plain
// recursive-descent parser over the Token slice produced by Scan; there is
// no separate lexer step here since Scan already did that work.
type parser struct {
	path string
	src  []byte
	toks []Token
	pos  int
}

func (p *parser) atEnd() bool      { return p.pos >= len(p.toks) }
func (p *parser) cur() Token       { return p.toks[p.pos] }
func (p *parser) advance() Token   { t := p.toks[p.pos]; p.pos++; return t }

func (p *parser) lastPos() int {
	if len(p.toks) == 0 {
		return 0
	}
	return p.toks[len(p.toks)-1].Pos
}

// parseDocument parses the entire token stream into a Document, handling
// the prelude-positional rules for `extends` and `ignore`.
func (p *parser) parseDocument() (*Document, error) {
	doc := &Document{Path: p.path}
	significant := false
	var nodes []Node
	for !p.atEnd() {
		tok := p.cur()
		switch tok.Kind {
		case TokContent:
			p.advance()
			nodes = append(nodes, &Literal{Bytes: tok.Bytes})
			if !isWhitespaceOnly(tok.Bytes) {
				significant = true
			}
		case TokComment:
			p.advance()
		case TokVariableOpen:
			node, err := p.parseVariableRef()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
			significant = true
		case TokDirectiveOpen:
			openTok := p.advance()
			if p.atEnd() || p.cur().Kind != TokIdentifier {
				return nil, newErr(KindParse, p.path, openTok.Pos, "expected directive keyword")
			}
			kwTok := p.advance()
			kw := string(kwTok.Bytes)
			switch kw {
			case "ignore":
				if significant {
					lit, err := p.reclassifyDirective(openTok)
					if err != nil {
						return nil, err
					}
					nodes = append(nodes, lit)
					significant = true
					continue
				}
				if err := p.expectClose(); err != nil {
					return nil, err
				}
				doc.Prelude = Ignored
				doc.Nodes = nil
				return doc, nil
			case "extends":
				if significant {
					lit, err := p.reclassifyDirective(openTok)
					if err != nil {
						return nil, err
					}
					nodes = append(nodes, lit)
					significant = true
					continue
				}
				if p.atEnd() || p.cur().Kind != TokString {
					return nil, newErr(KindParse, p.path, openTok.Pos, "extends requires a quoted path expression")
				}
				strTok := p.advance()
				frags, err := parsePathExpr(p.path, strTok.Bytes, strTok.Pos)
				if err != nil {
					return nil, err
				}
				if err := p.expectClose(); err != nil {
					return nil, err
				}
				doc.Prelude = Extending
				doc.ExtendsExpr = frags
				significant = true
			default:
				node, err := p.parseDirectiveBody(kw, openTok)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, node)
				significant = true
			}
		default:
			return nil, newErr(KindParse, p.path, tok.Pos, "unexpected token %s", tok.Kind)
		}
	}
	doc.Nodes = nodes
	return doc, nil
}

// parseBody parses nodes until a directive keyword in stops is reached;
// that closer is consumed (including its own trailing tokens, e.g. an
// optional name on `endblock`) and its keyword returned.
func (p *parser) parseBody(stops map[string]bool) ([]Node, string, error) {
	var nodes []Node
	for !p.atEnd() {
		tok := p.cur()
		switch tok.Kind {
		case TokContent:
			p.advance()
			nodes = append(nodes, &Literal{Bytes: tok.Bytes})
		case TokComment:
			p.advance()
		case TokVariableOpen:
			node, err := p.parseVariableRef()
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node)
		case TokDirectiveOpen:
			openTok := p.advance()
			if p.atEnd() || p.cur().Kind != TokIdentifier {
				return nil, "", newErr(KindParse, p.path, openTok.Pos, "expected directive keyword")
			}
			kwTok := p.advance()
			kw := string(kwTok.Bytes)
			if stops[kw] {
				if kw == "endblock" && !p.atEnd() && p.cur().Kind == TokIdentifier {
					p.advance() // trailing name on endblock, unvalidated
				}
				if err := p.expectClose(); err != nil {
					return nil, "", err
				}
				return nodes, kw, nil
			}
			node, err := p.parseDirectiveBody(kw, openTok)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node)
		default:
			return nil, "", newErr(KindParse, p.path, tok.Pos, "unexpected token %s", tok.Kind)
		}
	}
	return nil, "", newErr(KindParse, p.path, p.lastPos(), "unexpected end of input, unmatched block/if/for")
}

// parseDirectiveBody dispatches a non-closer, non-prelude directive
// keyword. `ignore`/`extends` reaching here are, by construction, not the
// document's first significant node, so they are reclassified as literal
// content per the positional invariant.
func (p *parser) parseDirectiveBody(kw string, openTok Token) (Node, error) {
	switch kw {
	case "ignore", "extends":
		return p.reclassifyDirective(openTok)
	case "block":
		return p.parseBlock(openTok)
	case "if":
		return p.parseIf(openTok)
	case "for":
		return p.parseFor(openTok)
	case "include":
		return p.parseInclude(openTok)
	default:
		return nil, newErr(KindParse, p.path, openTok.Pos, "unknown directive %q", kw)
	}
}

// reclassifyDirective skips forward to the matching DirectiveClose and
// returns the directive's own source text (including delimiters) as a
// Literal node.
func (p *parser) reclassifyDirective(openTok Token) (*Literal, error) {
	for !p.atEnd() {
		t := p.advance()
		if t.Kind == TokDirectiveClose {
			raw := make([]byte, t.End-openTok.Pos)
			copy(raw, p.src[openTok.Pos:t.End])
			return &Literal{Bytes: raw}, nil
		}
	}
	return nil, newErr(KindParse, p.path, openTok.Pos, "unterminated directive")
}

func (p *parser) expectClose() error {
	if p.atEnd() || p.cur().Kind != TokDirectiveClose {
		return newErr(KindParse, p.path, p.lastPos(), "expected closing %%}")
	}
	p.advance()
	return nil
}

func (p *parser) parseBlock(openTok Token) (Node, error) {
	if p.atEnd() || p.cur().Kind != TokIdentifier {
		return nil, newErr(KindParse, p.path, openTok.Pos, "block requires a name")
	}
	nameTok := p.advance()
	name := string(nameTok.Bytes)
	if name == "" {
		return nil, newErr(KindParse, p.path, openTok.Pos, "block name must be non-empty")
	}
	if err := p.expectClose(); err != nil {
		return nil, err
	}
	body, _, err := p.parseBody(map[string]bool{"endblock": true})
	if err != nil {
		return nil, err
	}
	return &Block{Name: name, Body: body}, nil
}

func (p *parser) parseIf(openTok Token) (Node, error) {
	kind, name, err := p.parseCondition(openTok)
	if err != nil {
		return nil, err
	}
	if err := p.expectClose(); err != nil {
		return nil, err
	}
	thenBody, stopKw, err := p.parseBody(map[string]bool{"else": true, "endif": true})
	if err != nil {
		return nil, err
	}
	var elseBody []Node
	if stopKw == "else" {
		elseBody, _, err = p.parseBody(map[string]bool{"endif": true})
		if err != nil {
			return nil, err
		}
	}
	return &If{Kind: kind, NamePath: name, ThenBody: thenBody, ElseBody: elseBody}, nil
}

// parseCondition implements the `if` grammar: NAME -> Exists; ! NAME ->
// NotExists; NAME empty -> Empty; NAME not empty -> NotEmpty.
func (p *parser) parseCondition(openTok Token) (CondKind, string, error) {
	if !p.atEnd() && p.cur().Kind == TokPunct && string(p.cur().Bytes) == "!" {
		p.advance()
		if p.atEnd() || p.cur().Kind != TokIdentifier {
			return 0, "", newErr(KindParse, p.path, openTok.Pos, "expected name after !")
		}
		nameTok := p.advance()
		return CondNotExists, string(nameTok.Bytes), nil
	}
	if p.atEnd() || p.cur().Kind != TokIdentifier {
		return 0, "", newErr(KindParse, p.path, openTok.Pos, "expected condition name")
	}
	nameTok := p.advance()
	name := string(nameTok.Bytes)
	if !p.atEnd() && p.cur().Kind == TokIdentifier && string(p.cur().Bytes) == "empty" {
		p.advance()
		return CondEmpty, name, nil
	}
	if !p.atEnd() && p.cur().Kind == TokIdentifier && string(p.cur().Bytes) == "not" {
		p.advance()
		if p.atEnd() || p.cur().Kind != TokIdentifier || string(p.cur().Bytes) != "empty" {
			return 0, "", newErr(KindParse, p.path, openTok.Pos, "expected 'empty' after 'not'")
		}
		p.advance()
		return CondNotEmpty, name, nil
	}
	return CondExists, name, nil
}

func (p *parser) parseFor(openTok Token) (Node, error) {
	if p.atEnd() || p.cur().Kind != TokIdentifier {
		return nil, newErr(KindParse, p.path, openTok.Pos, "for requires a loop variable")
	}
	loopVarTok := p.advance()
	loopVar := string(loopVarTok.Bytes)
	if p.atEnd() || p.cur().Kind != TokIdentifier || string(p.cur().Bytes) != "in" {
		return nil, newErr(KindParse, p.path, openTok.Pos, "expected 'in' in for directive")
	}
	p.advance()
	if p.atEnd() || p.cur().Kind != TokString {
		return nil, newErr(KindParse, p.path, openTok.Pos, "for requires a quoted path expression")
	}
	strTok := p.advance()
	frags, err := parsePathExpr(p.path, strTok.Bytes, strTok.Pos)
	if err != nil {
		return nil, err
	}
	if err := p.expectClose(); err != nil {
		return nil, err
	}
	body, stopKw, err := p.parseBody(map[string]bool{"else": true, "endfor": true})
	if err != nil {
		return nil, err
	}
	var elseBody []Node
	if stopKw == "else" {
		elseBody, _, err = p.parseBody(map[string]bool{"endfor": true})
		if err != nil {
			return nil, err
		}
	}
	return &For{LoopVar: loopVar, PathExpr: frags, Body: body, ElseBody: elseBody}, nil
}

func (p *parser) parseInclude(openTok Token) (Node, error) {
	mode := IncludeParsed
	if !p.atEnd() && p.cur().Kind == TokIdentifier {
		switch string(p.cur().Bytes) {
		case "raw":
			mode = IncludeRaw
			p.advance()
		case "md":
			mode = IncludeMarkdown
			p.advance()
		}
	}
	if p.atEnd() || p.cur().Kind != TokString {
		return nil, newErr(KindParse, p.path, openTok.Pos, "include requires a quoted path expression")
	}
	strTok := p.advance()
	frags, err := parsePathExpr(p.path, strTok.Bytes, strTok.Pos)
	if err != nil {
		return nil, err
	}
	alias := ""
	if !p.atEnd() && p.cur().Kind == TokIdentifier && string(p.cur().Bytes) == "as" {
		p.advance()
		if p.atEnd() || p.cur().Kind != TokIdentifier {
			return nil, newErr(KindParse, p.path, openTok.Pos, "expected alias name after 'as'")
		}
		aliasTok := p.advance()
		alias = string(aliasTok.Bytes)
	}
	if err := p.expectClose(); err != nil {
		return nil, err
	}
	return &Include{PathExpr: frags, Mode: mode, Alias: alias}, nil
}

func (p *parser) parseVariableRef() (*VariableRef, error) {
	openTok := p.advance()
	if p.atEnd() || p.cur().Kind != TokIdentifier {
		return nil, newErr(KindParse, p.path, openTok.Pos, "expected variable name")
	}
	nameTok := p.advance()
	namePath := string(nameTok.Bytes)
	nullable := false
	if !p.atEnd() && p.cur().Kind == TokPunct && string(p.cur().Bytes) == "?" {
		p.advance()
		nullable = true
	}
	var filters []FilterCall
	for !p.atEnd() && p.cur().Kind == TokPunct && string(p.cur().Bytes) == "|" {
		p.advance()
		if p.atEnd() || p.cur().Kind != TokIdentifier {
			return nil, newErr(KindParse, p.path, openTok.Pos, "expected filter name after |")
		}
		fnTok := p.advance()
		fname := string(fnTok.Bytes)
		var args []string
		if fname == "replace" {
			for k := 0; k < 2; k++ {
				if p.atEnd() || p.cur().Kind != TokString {
					return nil, newErr(KindParse, p.path, fnTok.Pos, "replace filter requires two string arguments")
				}
				args = append(args, string(p.advance().Bytes))
			}
		}
		filters = append(filters, FilterCall{Name: fname, Args: args})
	}
	if p.atEnd() || p.cur().Kind != TokVariableClose {
		return nil, newErr(KindParse, p.path, openTok.Pos, "expected closing }}")
	}
	closeTok := p.advance()
	src := make([]byte, closeTok.End-openTok.Pos)
	copy(src, p.src[openTok.Pos:closeTok.End])
	return &VariableRef{NamePath: namePath, Nullable: nullable, Filters: filters, Source: string(src)}, nil
}

func isWhitespaceOnly(b []byte) bool {
	return strings.TrimLeft(string(b), " \t\r\n\f\v") == ""
}
