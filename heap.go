package mulvm

import (
	"encoding/binary"
	"fmt"
)

// Tag identifies the kind of a heap object. The set is closed (spec §3).
type Tag byte

const (
	TagCode Tag = iota
	TagClosure
	TagVariable
	TagPrimitive
	TagVarargsPrimitive
	TagSecurePrimitive
	TagString
	TagVector
	TagPair
	TagSymbol
	TagTable
	TagFloat
	TagBigint
	TagCharacter
	TagObject
	TagOutputPort
	TagInternal
	TagPrivate
	tagCount
)

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", byte(t))
}

var tagNames = [...]string{
	TagCode:             "code",
	TagClosure:          "closure",
	TagVariable:         "variable",
	TagPrimitive:        "primitive",
	TagVarargsPrimitive: "varargs-primitive",
	TagSecurePrimitive:  "secure-primitive",
	TagString:           "string",
	TagVector:           "vector",
	TagPair:             "pair",
	TagSymbol:           "symbol",
	TagTable:            "table",
	TagFloat:            "float",
	TagBigint:           "bigint",
	TagCharacter:        "character",
	TagObject:           "object",
	TagOutputPort:       "output-port",
	TagInternal:         "internal",
	TagPrivate:          "private",
}

// Flag bits live in the object header's flags byte.
const (
	flagReadOnly byte = 1 << iota
	flagImmutable
	flagForwarded
)

// headerSize is the number of bytes every heap object's header occupies:
// 4-byte size, 1-byte tag, 1-byte flags, 2-byte reserved, 4-byte forwarding
// slot (valid only while flagForwarded is set).
const headerSize = 12

// codeFixedSize is the byte length of a code object's fixed fields, which sit
// between the common header and the constant-pool cells (spec §3 "code").
const codeFixedSize = 12

// Heap is a copying, precise, stop-the-world collected arena (spec §4.B).
// It holds exactly one live space at a time ("from"); collect allocates a
// fresh "to" space, copies the live set into it, and swaps.
type Heap struct {
	space   []byte
	free    uint32
	maxSize uint32

	staticRoots  []*Value
	staticRootFn []func() []*Value
	dynamicRoots []*Value

	watermarkPct int // trigger collection once live/cap exceeds this percent

	logging

	gcCycles int
}

// NewHeap allocates a heap with the given initial and maximum sizes in
// bytes. A maxSize of 0 means unbounded (growth is still geometric).
func NewHeap(initialSize, maxSize int) *Heap {
	if initialSize <= 0 {
		initialSize = 64 * 1024
	}
	return &Heap{
		space:        make([]byte, initialSize),
		maxSize:      uint32(maxSize),
		watermarkPct: 70,
	}
}

// Size returns the current space's capacity in bytes.
func (h *Heap) Size() int { return len(h.space) }

// Used returns the number of bytes allocated (the bump pointer) in the
// current space.
func (h *Heap) Used() int { return int(h.free) }

// RootDepth returns the current dynamic-root stack height, used by sessions
// to record and later restore a bracket (spec §5 "Resource discipline").
func (h *Heap) RootDepth() int { return len(h.dynamicRoots) }

// TruncateRoots pops the dynamic-root stack back down to depth, used on
// session exit (normal or via thrown error) to restore the LIFO invariant.
func (h *Heap) TruncateRoots(depth int) {
	h.dynamicRoots = h.dynamicRoots[:depth]
}

// StaticPro registers a process-wide root (spec §6 staticpro), swept on
// every collection for the lifetime of the VM.
func (h *Heap) StaticPro(root *Value) {
	h.staticRoots = append(h.staticRoots, root)
}

// StaticProFunc registers a root provider invoked fresh at the start of
// every collection cycle, rather than a fixed pointer. The global
// environment's value vector uses this: Globals.Lookup grows that vector by
// ordinary Go append, which can relocate its backing array between
// collections, so Heap must re-fetch &values[i] on every cycle rather than
// trust a pointer taken once at registration time.
func (h *Heap) StaticProFunc(fn func() []*Value) {
	h.staticRootFn = append(h.staticRootFn, fn)
}

func (h *Heap) allStaticRoots() []*Value {
	roots := append([]*Value(nil), h.staticRoots...)
	for _, fn := range h.staticRootFn {
		roots = append(roots, fn()...)
	}
	return roots
}

// RootScope is a LIFO bracket of dynamic roots (spec glossary "dynamic
// root"): push on Enter, pop on Close, guaranteeing a scoped holder that
// pops on every control-flow exit including a thrown error, per spec §9
// "Precise roots".
type RootScope struct {
	h     *Heap
	depth int
}

// EnterRoots registers refs as dynamic roots and returns a scope that
// unregisters exactly them (and anything pushed after them) on Close.
// Callers bracket any region that holds a live heap reference across an
// allocation point: rs := h.EnterRoots(&a, &b); defer rs.Close().
func (h *Heap) EnterRoots(refs ...*Value) *RootScope {
	depth := len(h.dynamicRoots)
	h.dynamicRoots = append(h.dynamicRoots, refs...)
	return &RootScope{h: h, depth: depth}
}

// Close pops this scope's roots (and any pushed after it) off the stack.
func (rs *RootScope) Close() {
	if rs.depth < len(rs.h.dynamicRoots) {
		rs.h.dynamicRoots = rs.h.dynamicRoots[:rs.depth]
	}
}

// --- header access -------------------------------------------------------

func (h *Heap) sizeAt(addr uint32) uint32 {
	return binary.BigEndian.Uint32(h.space[addr:])
}

func (h *Heap) setSizeAt(addr, size uint32) {
	binary.BigEndian.PutUint32(h.space[addr:], size)
}

func (h *Heap) tagAt(addr uint32) Tag { return Tag(h.space[addr+4]) }

func (h *Heap) flagsAt(addr uint32) byte { return h.space[addr+5] }

func (h *Heap) setFlag(addr uint32, bit byte) { h.space[addr+5] |= bit }

// ReadOnly reports whether the object at v is marked read-only.
func (h *Heap) ReadOnly(v Value) bool {
	if IsInt(v) || IsNull(v) {
		return true
	}
	return h.flagsAt(Addr(v))&flagReadOnly != 0
}

// Immutable reports whether the object at v is marked immutable (implies
// read-only on itself and, by construction, on everything reachable
// through it — spec §3 invariants).
func (h *Heap) Immutable(v Value) bool {
	if IsInt(v) || IsNull(v) {
		return true
	}
	return h.flagsAt(Addr(v))&flagImmutable != 0
}

// MarkReadOnly / MarkImmutable set the corresponding header flags.
func (h *Heap) MarkReadOnly(v Value) {
	if !IsInt(v) && !IsNull(v) {
		h.setFlag(Addr(v), flagReadOnly)
	}
}
func (h *Heap) MarkImmutable(v Value) {
	if !IsInt(v) && !IsNull(v) {
		h.setFlag(Addr(v), flagReadOnly|flagImmutable)
	}
}

func (h *Heap) forwarded(addr uint32) bool { return h.flagsAt(addr)&flagForwarded != 0 }

func (h *Heap) forwardTarget(addr uint32) uint32 {
	return binary.BigEndian.Uint32(h.space[addr+8:])
}

func (h *Heap) setForward(addr, newAddr uint32) {
	h.setFlag(addr, flagForwarded)
	binary.BigEndian.PutUint32(h.space[addr+8:], newAddr)
}

// TypeOf returns the pointed-to object's tag and true for a heap reference
// (spec §4.A). For a tagged integer and for Null it returns (0, false):
// there is no integer tag, so integers are told apart with IsInt, not by tag.
func TypeOf(v Value, h *Heap) (Tag, bool) {
	if IsInt(v) {
		return 0, false
	}
	if IsNull(v) {
		return 0, false
	}
	return h.tagAt(Addr(v)), true
}

// --- allocation ------------------------------------------------------------

// ErrHeapExhausted is the spec's declared fatal, non-recoverable allocation
// failure: running out of to-space even after growth. It is never wrapped
// as a catchable runtimeError; it propagates past any catch_error handler.
type ErrHeapExhausted struct{ Requested, Cap int }

func (e ErrHeapExhausted) Error() string {
	return fmt.Sprintf("heap exhausted: requested %d bytes, capacity %d", e.Requested, e.Cap)
}

// Alloc reserves a header + payloadLen bytes, zeroing the payload, and
// returns a Value referencing it. gc is consulted (and possibly invoked) if
// the watermark is exceeded; gc may be nil only during VM bootstrap before
// any roots exist.
func (h *Heap) Alloc(tag Tag, payloadLen int, gc func() error) (Value, error) {
	size := uint32(headerSize + payloadLen)
	if h.free+size > uint32(len(h.space))*uint32(h.watermarkPct)/100 {
		if gc != nil {
			if err := gc(); err != nil {
				return Null, err
			}
		}
	}
	if h.free+size > uint32(len(h.space)) {
		if err := h.grow(size); err != nil {
			return Null, err
		}
	}
	addr := h.free
	h.setSizeAt(addr, size)
	h.space[addr+4] = byte(tag)
	h.space[addr+5] = 0
	h.free += size
	return ValueFromAddr(addr), nil
}

func (h *Heap) grow(need uint32) error {
	newSize := uint32(len(h.space)) * 2
	if newSize == 0 {
		newSize = 64 * 1024
	}
	for newSize < h.free+need {
		newSize *= 2
	}
	if h.maxSize != 0 && newSize > h.maxSize {
		if h.maxSize < h.free+need {
			return ErrHeapExhausted{Requested: int(need), Cap: int(h.maxSize)}
		}
		newSize = h.maxSize
	}
	bigger := make([]byte, newSize)
	copy(bigger, h.space)
	h.space = bigger
	return nil
}

// --- cell / byte payload access --------------------------------------------

func payloadOffset(addr uint32) uint32 { return addr + headerSize }

// cellRange returns the byte offset (within the object, header-relative)
// where relocatable Value cells begin, and how many there are. Everything
// in the payload outside that range is raw, non-pointer bytes (spec §4.B
// closing paragraph: "must know, per type tag, whether the object's payload
// is raw bytes or a cell array, and the cell count").
func (h *Heap) cellRange(addr uint32) (off, count int) {
	tag := h.tagAt(addr)
	size := int(h.sizeAt(addr)) - headerSize
	switch tag {
	case TagCode:
		bcLen := int(binary.BigEndian.Uint32(h.space[addr+headerSize+codeOffBytecodeLen:]))
		padded := (bcLen + 7) &^ 7
		constCount := int(binary.BigEndian.Uint32(h.space[addr+headerSize+codeOffConstCount:]))
		return codeFixedSize + padded, constCount
	case TagClosure, TagVector, TagTable:
		return 0, size / 8
	case TagVariable:
		return 0, 1
	case TagPair, TagSymbol, TagPrivate:
		return 0, 2
	default:
		return 0, 0
	}
}

// Cell reads the i-th Value cell of the object at v.
func (h *Heap) Cell(v Value, i int) Value {
	addr := Addr(v)
	off, _ := h.cellRange(addr)
	p := payloadOffset(addr) + uint32(off) + uint32(i)*8
	return Value(binary.BigEndian.Uint64(h.space[p:]))
}

// SetCell writes the i-th Value cell of the object at v. It does not check
// the object's read-only flag.
func (h *Heap) SetCell(v Value, i int, cell Value) {
	addr := Addr(v)
	off, _ := h.cellRange(addr)
	p := payloadOffset(addr) + uint32(off) + uint32(i)*8
	binary.BigEndian.PutUint64(h.space[p:], uint64(cell))
}

// CellCount returns how many relocatable Value cells the object at v has.
func (h *Heap) CellCount(v Value) int {
	_, n := h.cellRange(Addr(v))
	return n
}

// Bytes returns the raw, non-cell payload bytes of the object at v (for
// string/float/bigint/character/object/output-port/internal kinds, and for
// a code object, its fixed header fields followed by bytecode).
func (h *Heap) Bytes(v Value) []byte {
	addr := Addr(v)
	size := int(h.sizeAt(addr)) - headerSize
	return h.space[payloadOffset(addr) : payloadOffset(addr)+uint32(size)]
}

// ObjSize returns the total payload length in bytes of the object at v
// (header excluded).
func (h *Heap) ObjSize(v Value) int {
	return int(h.sizeAt(Addr(v))) - headerSize
}
