package lang

// PreludeKind classifies how a Document begins, per the positional
// Extends/Ignore invariant: only the first significant node may set it.
type PreludeKind int

const (
	Normal PreludeKind = iota
	Extending
	Ignored
)

// Document is one parsed, immutable file. The Evaluator never mutates a
// Document's fields once Parse returns it; the Cache hands out shared
// pointers to the same Document across every caller that resolves the
// same canonical path.
type Document struct {
	Path       string
	Nodes      []Node
	Prelude    PreludeKind
	ExtendsExpr []PathFragment // valid iff Prelude == Extending
}

// Parse scans and parses src (the raw bytes of the file at path) into a
// Document.
func Parse(path string, src []byte) (*Document, error) {
	toks, err := Scan(path, src)
	if err != nil {
		return nil, err
	}
	p := &parser{path: path, src: src, toks: toks}
	return p.parseDocument()
}
