package mulvm

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Collect runs one stop-the-world copying GC cycle: mark static roots and
// mark the dynamic-root stack as two concurrent phases, then breadth-first
// walk the copied frontier rewriting pointers via each object's forwarding
// header (spec §4.B). It is precise: every live reference must already be
// registered as a root, per spec §5's resource discipline.
//
// The two root-marking phases are genuinely concurrent, coordinated by an
// errgroup.Group the same way the teacher's generator tooling used one to
// run a subprocess and its timeout context side by side: static roots
// (globals) and dynamic roots (the VM's bracketed stack/frame registrations,
// vm.go's rootScope) are disjoint root sets, so both goroutines race to
// copy live objects into to-space through one mutex-guarded bump allocator;
// g.Wait()'s combined error is what Collect returns. The copy-and-fixup
// (Cheney scan) phase runs afterward in the calling goroutine, since it
// depends on every root having already been marked.
func (h *Heap) Collect() error {
	h.gcCycles++
	cycle := h.gcCycles

	if h.logfn != nil {
		h.logf("GC", "cycle %d start: used=%d/%d roots=%d+%d",
			cycle, h.free, len(h.space), len(h.staticRoots)+len(h.staticRootFn), len(h.dynamicRoots))
	}

	to := make([]byte, len(h.space))
	var free uint32
	var mu sync.Mutex

	copyVal := func(v Value) Value {
		if IsInt(v) || IsNull(v) {
			return v
		}
		addr := Addr(v)
		mu.Lock()
		defer mu.Unlock()
		if h.forwarded(addr) {
			return ValueFromAddr(h.forwardTarget(addr))
		}
		size := h.sizeAt(addr)
		if free+size > uint32(len(to)) {
			grown := make([]byte, (uint32(len(to))+size)*2)
			copy(grown, to[:free])
			to = grown
		}
		newAddr := free
		copy(to[newAddr:newAddr+size], h.space[addr:addr+size])
		free += size
		h.setForward(addr, newAddr)
		return ValueFromAddr(newAddr)
	}

	var g errgroup.Group
	g.Go(func() error {
		for _, r := range h.allStaticRoots() {
			*r = copyVal(*r)
		}
		return nil
	})
	g.Go(func() error {
		for _, r := range h.dynamicRoots {
			*r = copyVal(*r)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// Cheney scan: walk the copied frontier in to-space, relocating every
	// child cell as we go, until the scan pointer catches the free pointer.
	var scan uint32
	for scan < free {
		addr := scan
		size := toSizeAt(to, addr)
		off, count := toCellRange(to, addr)
		for i := 0; i < count; i++ {
			p := addr + headerSize + uint32(off) + uint32(i)*8
			cell := toCellAt(to, p)
			toSetCellAt(to, p, copyVal(cell))
		}
		scan = addr + size
	}

	h.space = to
	h.free = free

	if h.logfn != nil {
		h.logf("GC", "cycle %d done: live=%d/%d", cycle, h.free, len(h.space))
	}
	return nil
}

// --- to-space helpers (operate on a plain []byte rather than *Heap, since
// the to-space is not yet installed as h.space during a collection cycle).

func toSizeAt(b []byte, addr uint32) uint32 {
	return beUint32(b[addr:])
}

func toTagAt(b []byte, addr uint32) Tag { return Tag(b[addr+4]) }

func toCellRange(b []byte, addr uint32) (off, count int) {
	tag := toTagAt(b, addr)
	size := int(toSizeAt(b, addr)) - headerSize
	switch tag {
	case TagCode:
		bcLen := int(beUint32(b[addr+headerSize+codeOffBytecodeLen:]))
		padded := (bcLen + 7) &^ 7
		constCount := int(beUint32(b[addr+headerSize+codeOffConstCount:]))
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

func toCellAt(b []byte, p uint32) Value {
	return Value(beUint64(b[p:]))
}

func toSetCellAt(b []byte, p uint32, v Value) {
	beePutUint64(b[p:], uint64(v))
}

// small big-endian helpers kept local so gc.go does not need to import
// encoding/binary twice over for a handful of call sites.
func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func beUint64(b []byte) uint64 {
	return uint64(beUint32(b))<<32 | uint64(beUint32(b[4:]))
}
func beePutUint64(b []byte, v uint64) {
	beePutUint32(b, uint32(v>>32))
	beePutUint32(b[4:], uint32(v))
}
func beePutUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// CollectIfNeeded forces a collection unconditionally; exposed for tests and
// for the save/load path, which wants a maximally compacted graph before
// serializing.
func (h *Heap) CollectIfNeeded() error { return h.Collect() }
