package mulvm

// RefKind classifies how a compiled name reference resolves (spec §4.D).
type RefKind byte

const (
	RefLocal RefKind = iota
	RefClosure
	RefGlobal
)

// Reference is the result of resolving a bare name at compile time.
type Reference struct {
	Kind   RefKind
	Offset int
}

// Scope is one block's declared names within a Frame, plus the base local
// slot offset where its names begin.
type Scope struct {
	names map[string]int // name -> local slot
	base  int
}

// closureRef records one entry in a frame's ordered closure list: the name
// captured, and the position assigned to it (spec §4.D "append the outer
// reference to G's closure list unless already present").
type closureRef struct {
	name string
	pos  int
}

// Frame is one function's compile-time activation: a stack of block scopes,
// innermost on top, plus the running/maximum local-slot count, loop-nesting
// depth, and the ordered list of variables this frame must receive as
// closure captures (spec §4.D).
type Frame struct {
	scopes      []*Scope
	locals      int
	maxLocals   int
	loopDepth   int
	closureList []closureRef
}

// NewFrame returns an empty frame for a function about to be compiled.
func NewFrame() *Frame { return &Frame{} }

// EnterBlock pushes a new scope declaring names, starting at the frame's
// current local-slot high-water mark. It returns the local slot assigned to
// each name (same order as given) and whether the emitter must clear those
// slots on entry (spec §4.D "Block-scope entry and exit"): clearing is
// needed only when a loop may re-enter this program point with stale
// values, i.e. when we are inside a loop and the high-water mark was
// already reached on some prior pass. A freshly grown high-water slot
// already holds Null (call pads a callee's locals past its arguments with
// Null), so clearing it would be redundant.
func (f *Frame) EnterBlock(names []string) (slots []int, needClear bool) {
	base := f.locals
	sc := &Scope{names: make(map[string]int, len(names)), base: base}
	slots = make([]int, len(names))
	for i, n := range names {
		slot := base + i
		sc.names[n] = slot
		slots[i] = slot
	}
	f.locals += len(names)
	f.scopes = append(f.scopes, sc)

	alreadyHighWater := f.locals <= f.maxLocals
	if f.locals > f.maxLocals {
		f.maxLocals = f.locals
	}
	needClear = f.loopDepth > 0 && alreadyHighWater
	return slots, needClear
}

// ExitBlock pops the innermost scope without reclaiming its local slots: a
// closure captured within the block may outlive it and still needs its
// cell (spec §4.D).
func (f *Frame) ExitBlock() {
	f.scopes = f.scopes[:len(f.scopes)-1]
}

// EnterLoop / ExitLoop bracket a loop body so EnterBlock knows whether a
// back-edge can revisit a given program point.
func (f *Frame) EnterLoop() { f.loopDepth++ }
func (f *Frame) ExitLoop()  { f.loopDepth-- }

// localLookup searches this frame's own scopes, innermost first, for name.
func (f *Frame) localLookup(name string) (slot int, ok bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if slot, ok := f.scopes[i].names[name]; ok {
			return slot, true
		}
	}
	return 0, false
}

// captureIndex returns the position of name in this frame's closure list,
// appending it if not already present.
func (f *Frame) captureIndex(name string) int {
	for _, c := range f.closureList {
		if c.name == name {
			return c.pos
		}
	}
	pos := len(f.closureList)
	f.closureList = append(f.closureList, closureRef{name: name, pos: pos})
	return pos
}

// CapturedNames returns, in position order, the names this frame must
// receive as closure captures from its immediately enclosing frame — used
// by the emitter to build the `closure N` instruction's reference list.
func (f *Frame) CapturedNames() []string {
	names := make([]string, len(f.closureList))
	for _, c := range f.closureList {
		names[c.pos] = c.name
	}
	return names
}

// Resolver walks a stack of Frames, innermost (currently-compiling
// function) last, implementing the name-resolution algorithm of spec §4.D.
type Resolver struct {
	frames  []*Frame
	globals *Globals
}

// NewResolver returns a resolver over globals, with no frames pushed (i.e.
// top-level/module scope — every name resolves as global there).
func NewResolver(globals *Globals) *Resolver {
	return &Resolver{globals: globals}
}

// PushFrame begins compiling a nested function.
func (r *Resolver) PushFrame() *Frame {
	f := NewFrame()
	r.frames = append(r.frames, f)
	return f
}

// PopFrame finishes compiling the innermost function, returning it so the
// emitter can read its CapturedNames/maxLocals.
func (r *Resolver) PopFrame() *Frame {
	f := r.frames[len(r.frames)-1]
	r.frames = r.frames[:len(r.frames)-1]
	return f
}

// Current returns the innermost (currently compiling) frame.
func (r *Resolver) Current() *Frame {
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

// globalPrefix is recognized as the "skip all frames, force a global
// lookup" escape hatch spec §4.D describes.
const globalPrefix = "global:"

// Resolve classifies a bare name reference per spec §4.D's algorithm.
func (r *Resolver) Resolve(name string) Reference {
	if len(name) > len(globalPrefix) && name[:len(globalPrefix)] == globalPrefix {
		return Reference{Kind: RefGlobal, Offset: r.globals.Lookup(name[len(globalPrefix):])}
	}

	n := len(r.frames)
	if n == 0 {
		return Reference{Kind: RefGlobal, Offset: r.globals.Lookup(name)}
	}

	// Innermost frame: a plain local hit.
	if slot, ok := r.frames[n-1].localLookup(name); ok {
		return Reference{Kind: RefLocal, Offset: slot}
	}

	// Search outer frames for a hit.
	hit := -1
	for i := n - 2; i >= 0; i-- {
		if _, ok := r.frames[i].localLookup(name); ok {
			hit = i
			break
		}
	}
	if hit < 0 {
		return Reference{Kind: RefGlobal, Offset: r.globals.Lookup(name)}
	}

	// Every frame strictly between the hit (exclusive) and the innermost
	// (inclusive) must capture this name exactly once, threading the
	// shared *variable* box across each intervening closure boundary.
	var pos int
	for i := hit + 1; i < n; i++ {
		pos = r.frames[i].captureIndex(name)
	}
	return Reference{Kind: RefClosure, Offset: pos}
}
