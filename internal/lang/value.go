package lang

import "strings"

// Value is what an identifier binds to in an Environment frame. It is a
// closed, two-member tagged variant: resist the temptation to model this as
// a single string with side-channel metadata (see spec notes on LoopItem
// vs Text dispatch) — the dual behavior of a loop variable (bare reference
// emits rendered body, dotted reference indexes per-file blocks) needs a
// real type switch.
type Value interface {
	value()
}

// TextValue is a rendered string: the captured body of a Block, a CLI
// --implementation seed, or the per-file block namespace entry of a
// LoopItemValue.
type TextValue struct {
	Bytes []byte
}

func (TextValue) value() {}

// LoopItemValue is the binding of a for-loop variable to one compiled file:
// Path is its resolved filesystem path, Emission is the rendered output of
// compiling it (what a bare `{{ loop_var }}` reference emits), and Blocks is
// the top-level block namespace it produced (what `loop_var.block_name`
// indexes into).
type LoopItemValue struct {
	Path     string
	Emission []byte
	Blocks   map[string]TextValue
}

func (LoopItemValue) value() {}

// Environment is a stack of nested name->Value frames. Frame 0 is the
// bottom (seeded with --implementation bindings); new frames push on top
// for block/loop/alias scoping and pop when that scope ends.
type Environment struct {
	frames []map[string]Value
}

// NewEnvironment returns an Environment with a single empty bottom frame.
func NewEnvironment() *Environment {
	return &Environment{frames: []map[string]Value{{}}}
}

// PushFrame opens a new scope on top of the stack.
func (e *Environment) PushFrame() {
	e.frames = append(e.frames, map[string]Value{})
}

// PopFrame closes the topmost scope. Calling PopFrame on the bottom frame
// is a programmer error and panics, since it would corrupt CLI seed state.
func (e *Environment) PopFrame() {
	if len(e.frames) <= 1 {
		panic("lang: PopFrame called on bottom-most environment frame")
	}
	e.frames = e.frames[:len(e.frames)-1]
}

// Bind sets name in the topmost frame.
func (e *Environment) Bind(name string, v Value) {
	e.frames[len(e.frames)-1][name] = v
}

// BindBottom sets name in the bottom-most frame, used for CLI
// --implementation seeds, which must be visible for the whole compilation.
func (e *Environment) BindBottom(name string, v Value) {
	e.frames[0][name] = v
}

// Lookup splits name_path on '.', resolves the head against the frame
// stack top-down, then walks remaining segments into a LoopItemValue's
// Blocks map. A Text value with remaining segments fails the lookup. Within
// each frame, a binding whose key is the whole dotted namePath (as an
// `include ... as alias` binds "alias.block") is matched before the head.
func (e *Environment) Lookup(namePath string) (Value, bool) {
	segs := strings.Split(namePath, ".")
	head := segs[0]
	var v Value
	found := false
	for i := len(e.frames) - 1; i >= 0; i-- {
		if val, ok := e.frames[i][namePath]; ok {
			return val, true
		}
		if val, ok := e.frames[i][head]; ok {
			v, found = val, true
			break
		}
	}
	if !found {
		return nil, false
	}
	rest := segs[1:]
	for _, seg := range rest {
		li, ok := v.(LoopItemValue)
		if !ok {
			return nil, false
		}
		tv, ok := li.Blocks[seg]
		if !ok {
			return nil, false
		}
		v = tv
	}
	return v, true
}

// TopFrameText returns a copy of the topmost frame's Text bindings, used by
// the Evaluator to snapshot the blocks a capture-scoped document produced
// before that frame is popped.
func (e *Environment) TopFrameText() map[string]TextValue {
	out := map[string]TextValue{}
	for name, v := range e.frames[len(e.frames)-1] {
		if tv, ok := v.(TextValue); ok {
			out[name] = tv
		}
	}
	return out
}

// Exists reports whether namePath resolves to any value.
func (e *Environment) Exists(namePath string) bool {
	_, ok := e.Lookup(namePath)
	return ok
}

// IsEmpty reports whether namePath resolves to a Text value whose bytes,
// stripped of ASCII whitespace, have zero length. A LoopItemValue's
// emptiness is judged by its rendered Emission. A missing name is not
// considered empty (callers check Exists separately).
func (e *Environment) IsEmpty(namePath string) bool {
	v, ok := e.Lookup(namePath)
	if !ok {
		return false
	}
	return isEmptyBytes(textOf(v))
}

// textOf returns the bytes a bare reference to v would emit.
func textOf(v Value) []byte {
	switch t := v.(type) {
	case TextValue:
		return t.Bytes
	case LoopItemValue:
		return t.Emission
	default:
		return nil
	}
}

func isEmptyBytes(b []byte) bool {
	return len(strings.Trim(string(b), " \t\r\n\f\v")) == 0
}
