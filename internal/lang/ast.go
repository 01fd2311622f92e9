package lang

// Node is one element of a parsed Document's tree. Every concrete node type
// below implements Node purely as a marker; the Evaluator type-switches on
// the concrete type rather than dispatching through an interface method,
// since evaluation needs the environment and output buffer as explicit
// arguments anyway.
type Node interface {
	node()
}

// Literal is verbatim output.
type Literal struct {
	Bytes []byte
}

func (*Literal) node() {}

// FilterCall is one pipeline stage applied to a VariableRef's value.
type FilterCall struct {
	Name string
	Args []string // positional string-literal arguments (only `replace` uses these)
}

// VariableRef is a qualified dotted name with optional nullability and a
// left-to-right filter pipeline.
type VariableRef struct {
	NamePath string
	Nullable bool
	Filters  []FilterCall
	Source   string // the exact source text of "{{ ... }}", for passthrough on miss
}

func (*VariableRef) node() {}

// Block defines a named content region; at evaluation time its body is
// captured into a buffer rather than emitted in place.
type Block struct {
	Name string
	Body []Node
}

func (*Block) node() {}

// CondKind identifies one of the four If condition forms.
type CondKind int

const (
	CondExists CondKind = iota
	CondNotExists
	CondEmpty
	CondNotEmpty
)

// If is a conditional node; exactly one of ThenBody/ElseBody renders.
type If struct {
	Kind      CondKind
	NamePath  string
	ThenBody  []Node
	ElseBody  []Node
}

func (*If) node() {}

// PathFragment is one element of a path expression: either literal text or
// a variable reference to be resolved at evaluation time (a meta-path).
type PathFragment struct {
	Literal  string
	IsVarRef bool
	NamePath string
}

// For is a filesystem-driven loop: path_expr resolves to a directory (whose
// regular-file entries are iterated in lexicographic order) or a single
// file (a one-element iteration).
type For struct {
	LoopVar  string
	PathExpr []PathFragment
	Body     []Node
	ElseBody []Node
}

func (*For) node() {}

// IncludeMode selects how an included file's content is incorporated.
type IncludeMode int

const (
	IncludeParsed IncludeMode = iota
	IncludeRaw
	IncludeMarkdown
)

// Include splices another file's content into the current document.
type Include struct {
	PathExpr []PathFragment
	Mode     IncludeMode
	Alias    string // empty if no "as alias" suffix
}

func (*Include) node() {}

// Extends and Ignore are positional-only constructs: legal solely as the
// document's first significant node. Rather than modeling them as Node
// variants that the evaluator would have to special-case at position 0,
// the parser folds a legitimate occurrence directly into the Document's
// Prelude/ExtendsExpr fields (see document.go) and never emits it into the
// node list at all; any later occurrence is reclassified as a Literal of
// its own source text. There is deliberately no Extends/Ignore Node type.
