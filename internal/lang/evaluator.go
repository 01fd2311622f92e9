package lang

import (
	"bytes"
	"path/filepath"
)

// Evaluator walks a Document tree given an Environment, emitting bytes to
// an output buffer. It owns the recursion-depth counter and active-chain
// cycle guard for one compilation session; it is not safe for concurrent
// use, matching the core's single-threaded, synchronous design (§5).
type Evaluator struct {
	cache    *Cache
	md       Markdowner
	maxDepth int
	warnf    func(string, ...any)
	depth    int
	chain    map[string]bool
}

// NewEvaluator constructs an Evaluator. md defaults to DefaultMarkdowner,
// maxDepth to 256, and warnf to a no-op, if zero-valued.
func NewEvaluator(cache *Cache, md Markdowner, maxDepth int, warnf func(string, ...any)) *Evaluator {
	if md == nil {
		md = DefaultMarkdowner{}
	}
	if maxDepth <= 0 {
		maxDepth = 256
	}
	if warnf == nil {
		warnf = func(string, ...any) {}
	}
	return &Evaluator{cache: cache, md: md, maxDepth: maxDepth, warnf: warnf, chain: map[string]bool{}}
}

// CompileOptions configures a top-level compilation entry point.
type CompileOptions struct {
	Root       string
	Markdowner Markdowner
	MaxDepth   int
	Warnf      func(string, ...any)
	// Cache, when non-nil, is reused across this and other compilations
	// (e.g. the deployment driver compiling many mappings in one run). If
	// nil, a fresh Cache rooted at Root is created for this call alone.
	Cache   *Cache
	NoCache bool
}

// CompileFile resolves target against opts.Root and compiles it under env,
// returning the rendered bytes and the Cache used (so a caller can reuse it
// across further calls).
func CompileFile(target string, env *Environment, opts CompileOptions) ([]byte, *Cache, error) {
	cache := opts.Cache
	if cache == nil {
		cache = NewCache(opts.Root, opts.NoCache)
	}
	ev := NewEvaluator(cache, opts.Markdowner, opts.MaxDepth, opts.Warnf)
	canon, err := cache.Resolve(target, opts.Root)
	if err != nil {
		return nil, cache, err
	}
	out, err := ev.compilePath(canon, env)
	return out, cache, err
}

func (ev *Evaluator) pushDepth(path string) error {
	if ev.depth >= ev.maxDepth {
		return newErr(KindDepth, path, 0, "maximum recursion depth %d exceeded", ev.maxDepth)
	}
	ev.depth++
	return nil
}

func (ev *Evaluator) popDepth() { ev.depth-- }

func (ev *Evaluator) pushChain(path string) error {
	if err := ev.pushDepth(path); err != nil {
		return err
	}
	if ev.chain[path] {
		ev.popDepth()
		return newErr(KindCycle, path, 0, "cycle detected: %s is already on the active extends/include chain", path)
	}
	ev.chain[path] = true
	return nil
}

func (ev *Evaluator) popChain(path string) {
	delete(ev.chain, path)
	ev.popDepth()
}

// compilePath loads and evaluates the document at canonPath, guarding it
// against cycles and excess recursion depth.
func (ev *Evaluator) compilePath(canonPath string, env *Environment) ([]byte, error) {
	if err := ev.pushChain(canonPath); err != nil {
		return nil, err
	}
	defer ev.popChain(canonPath)
	doc, err := ev.cache.Load(canonPath)
	if err != nil {
		return nil, err
	}
	return ev.evalDocument(doc, env)
}

// evalDocument renders doc under env and returns the emitted bytes,
// handling the Ignored/Extending/Normal prelude dispatch of §4.5.
func (ev *Evaluator) evalDocument(doc *Document, env *Environment) ([]byte, error) {
	baseDir := filepath.Dir(doc.Path)
	switch doc.Prelude {
	case Ignored:
		return nil, newErr(KindIgnored, doc.Path, 0, "document's first significant node is {%% ignore %%}")
	case Extending:
		env.PushFrame()
		var discard bytes.Buffer
		if err := ev.pushDepth(doc.Path); err != nil {
			env.PopFrame()
			return nil, err
		}
		everr := ev.evalNodes(doc.Nodes, env, doc.Path, baseDir, &discard)
		ev.popDepth()
		if everr != nil {
			env.PopFrame()
			return nil, everr
		}
		parentRaw, err := resolvePathExpr(doc.Path, 0, doc.ExtendsExpr, env)
		if err != nil {
			env.PopFrame()
			return nil, err
		}
		parentCanon, err := ev.cache.Resolve(parentRaw, baseDir)
		if err != nil {
			env.PopFrame()
			return nil, err
		}
		out, err := ev.compilePath(parentCanon, env)
		env.PopFrame()
		return out, err
	default:
		var out bytes.Buffer
		if err := ev.evalNodes(doc.Nodes, env, doc.Path, baseDir, &out); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	}
}

// evalCompileWithBlocks compiles doc under env, capturing both its
// rendered emission and the top-level block bindings it produced. For an
// Extending document, the blocks returned are the leaf child's own blocks
// (captured during step (a) of extends evaluation) even though the
// emission is the parent's rendered output — this is what lets `item.n` be
// addressable from a `for` loop body over files that extend a shared
// layout, and what an aliased `include ... as` binds under the alias.
func (ev *Evaluator) evalCompileWithBlocks(doc *Document, env *Environment) ([]byte, map[string]TextValue, error) {
	baseDir := filepath.Dir(doc.Path)
	switch doc.Prelude {
	case Ignored:
		return nil, nil, newErr(KindIgnored, doc.Path, 0, "document's first significant node is {%% ignore %%}")
	case Extending:
		env.PushFrame()
		var discard bytes.Buffer
		if err := ev.pushDepth(doc.Path); err != nil {
			env.PopFrame()
			return nil, nil, err
		}
		everr := ev.evalNodes(doc.Nodes, env, doc.Path, baseDir, &discard)
		ev.popDepth()
		if everr != nil {
			env.PopFrame()
			return nil, nil, everr
		}
		blocks := env.TopFrameText()
		parentRaw, err := resolvePathExpr(doc.Path, 0, doc.ExtendsExpr, env)
		if err != nil {
			env.PopFrame()
			return nil, nil, err
		}
		parentCanon, err := ev.cache.Resolve(parentRaw, baseDir)
		if err != nil {
			env.PopFrame()
			return nil, nil, err
		}
		emission, err := ev.compilePath(parentCanon, env)
		env.PopFrame()
		if err != nil {
			return nil, nil, err
		}
		return emission, blocks, nil
	default:
		env.PushFrame()
		var buf bytes.Buffer
		if err := ev.pushDepth(doc.Path); err != nil {
			env.PopFrame()
			return nil, nil, err
		}
		everr := ev.evalNodes(doc.Nodes, env, doc.Path, baseDir, &buf)
		ev.popDepth()
		if everr != nil {
			env.PopFrame()
			return nil, nil, everr
		}
		blocks := env.TopFrameText()
		env.PopFrame()
		return buf.Bytes(), blocks, nil
	}
}

// evalNodes renders nodes in order, writing to out under env.
func (ev *Evaluator) evalNodes(nodes []Node, env *Environment, docPath, baseDir string, out *bytes.Buffer) error {
	for _, n := range nodes {
		switch v := n.(type) {
		case *Literal:
			out.Write(v.Bytes)

		case *VariableRef:
			if err := ev.evalVariableRef(v, env, out); err != nil {
				return err
			}

		case *Block:
			var buf bytes.Buffer
			if err := ev.pushDepth(docPath); err != nil {
				return err
			}
			err := ev.evalNodes(v.Body, env, docPath, baseDir, &buf)
			ev.popDepth()
			if err != nil {
				return err
			}
			env.Bind(v.Name, TextValue{Bytes: buf.Bytes()})

		case *If:
			taken := ev.evalCondition(v, env)
			body := v.ElseBody
			if taken {
				body = v.ThenBody
			}
			if err := ev.pushDepth(docPath); err != nil {
				return err
			}
			err := ev.evalNodes(body, env, docPath, baseDir, out)
			ev.popDepth()
			if err != nil {
				return err
			}

		case *For:
			if err := ev.evalFor(v, env, docPath, baseDir, out); err != nil {
				return err
			}

		case *Include:
			if err := ev.evalInclude(v, env, docPath, baseDir, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ev *Evaluator) evalVariableRef(v *VariableRef, env *Environment, out *bytes.Buffer) error {
	val, ok := env.Lookup(v.NamePath)
	if !ok {
		if !v.Nullable {
			out.WriteString(v.Source)
		}
		return nil
	}
	data := textOf(val)
	for _, f := range v.Filters {
		var err error
		data, err = ev.applyFilter(f, data)
		if err != nil {
			return err
		}
	}
	out.Write(data)
	return nil
}

// evalCondition implements Exists/NotExists/Empty/NotEmpty: Exists is true
// iff lookup succeeds; Empty/NotEmpty additionally test textual emptiness,
// treating a missing name as empty (there being no content to be non-empty
// about).
func (ev *Evaluator) evalCondition(n *If, env *Environment) bool {
	exists := env.Exists(n.NamePath)
	switch n.Kind {
	case CondExists:
		return exists
	case CondNotExists:
		return !exists
	case CondEmpty:
		return !exists || env.IsEmpty(n.NamePath)
	case CondNotEmpty:
		return exists && !env.IsEmpty(n.NamePath)
	default:
		return false
	}
}

// evalFor implements the filesystem-driven loop of §4.5.
func (ev *Evaluator) evalFor(n *For, env *Environment, docPath, baseDir string, out *bytes.Buffer) error {
	rawPath, err := resolvePathExpr(docPath, 0, n.PathExpr, env)
	if err != nil {
		return err
	}
	canonPath, err := ev.cache.Resolve(rawPath, baseDir)
	if err != nil {
		return err
	}
	var files []string
	if IsDir(canonPath) {
		files, err = ListRegularFiles(canonPath, func(msg string) { ev.warnf("%s", msg) })
		if err != nil {
			return err
		}
	} else {
		files = []string{canonPath}
	}
	if len(files) == 0 {
		if err := ev.pushDepth(docPath); err != nil {
			return err
		}
		err := ev.evalNodes(n.ElseBody, env, docPath, baseDir, out)
		ev.popDepth()
		return err
	}
	for _, f := range files {
		doc, err := ev.cache.Load(f)
		if err != nil {
			return err
		}
		if doc.Prelude == Ignored {
			continue
		}
		if err := ev.pushChain(f); err != nil {
			return err
		}
		emission, blocks, err := ev.evalCompileWithBlocks(doc, env)
		ev.popChain(f)
		if err != nil {
			return err
		}
		env.PushFrame()
		env.Bind(n.LoopVar, LoopItemValue{Path: f, Emission: emission, Blocks: blocks})
		if err := ev.pushDepth(docPath); err != nil {
			env.PopFrame()
			return err
		}
		err = ev.evalNodes(n.Body, env, docPath, baseDir, out)
		ev.popDepth()
		env.PopFrame()
		if err != nil {
			return err
		}
	}
	return nil
}

// evalInclude implements the three include modes of §4.5.
func (ev *Evaluator) evalInclude(n *Include, env *Environment, docPath, baseDir string, out *bytes.Buffer) error {
	rawPath, err := resolvePathExpr(docPath, 0, n.PathExpr, env)
	if err != nil {
		return err
	}
	canonPath, err := ev.cache.Resolve(rawPath, baseDir)
	if err != nil {
		return err
	}
	switch n.Mode {
	case IncludeRaw:
		data, err := ev.cache.ReadRaw(canonPath)
		if err != nil {
			return err
		}
		out.Write(data)
		return nil

	case IncludeMarkdown:
		data, err := ev.cache.ReadRaw(canonPath)
		if err != nil {
			return err
		}
		rendered, err := ev.md.Markdown(data)
		if err != nil {
			return err
		}
		out.Write(rendered)
		return nil

	default: // IncludeParsed
		if err := ev.pushChain(canonPath); err != nil {
			return err
		}
		doc, err := ev.cache.Load(canonPath)
		if err != nil {
			ev.popChain(canonPath)
			return err
		}
		if doc.Prelude == Ignored {
			ev.popChain(canonPath)
			return newErr(KindIgnored, canonPath, 0, "included document's first significant node is {%% ignore %%}")
		}
		if n.Alias != "" {
			_, blocks, everr := ev.evalCompileWithBlocks(doc, env)
			ev.popChain(canonPath)
			if everr != nil {
				return everr
			}
			for name, tv := range blocks {
				env.Bind(n.Alias+"."+name, tv)
			}
			return nil
		}
		data, everr := ev.evalDocument(doc, env)
		ev.popChain(canonPath)
		if everr != nil {
			return everr
		}
		out.Write(data)
		return nil
	}
}
