package mulvm

import (
	"github.com/local/mulvm/internal/wire"
)

// GCSave serialises the transitive closure of v into a byte buffer (spec
// §4.B "Save/load", §6 wire format, §8 round-trip law). Traversal is
// breadth-first and keyed on the object's heap address at the time of the
// call, so a later mutation of h does not affect an in-flight save; sharing
// and cycles are preserved via that address->offset memo, exactly the
// identity-keyed visited-set approach spec §9 prescribes (an arena offset
// standing in for pointer identity).
func GCSave(v Value, h *Heap) ([]byte, error) {
	var buf []byte
	seen := make(map[uint32]int) // heap addr -> index into order

	// First pass just discovers reachable addresses in BFS order and
	// assigns them stable slot indices; a second pass emits records once
	// every address has a final offset, so forward references (including
	// cycles) can be written as resolved offsets in one walk.
	order := []uint32{Addr(v)}
	if IsInt(v) || IsNull(v) {
		order = nil
	} else {
		seen[Addr(v)] = 0
	}
	for i := 0; i < len(order); i++ {
		addr := order[i]
		_, count := h.cellRange(addr)
		for c := 0; c < count; c++ {
			cell := h.Cell(ValueFromAddr(addr), c)
			if IsInt(cell) || IsNull(cell) {
				continue
			}
			ca := Addr(cell)
			if _, ok := seen[ca]; !ok {
				seen[ca] = len(order)
				order = append(order, ca)
			}
		}
	}

	// offsets[i] will hold the byte offset of order[i]'s record once known.
	offsets := make([]int, len(order))
	for i, addr := range order {
		size := h.ObjSize(ValueFromAddr(addr))
		tag := h.tagAt(addr)
		payload := make([]byte, size)
		copy(payload, h.Bytes(ValueFromAddr(addr)))
		cellOff, cellCount := h.cellRange(addr)
		for c := 0; c < cellCount; c++ {
			cell := h.Cell(ValueFromAddr(addr), c)
			p := cellOff + c*8
			putRef(payload[p:p+8], cell)
		}
		var rec int
		buf, rec = wire.AppendRecord(buf, byte(tag), payload)
		offsets[i] = rec
	}

	// Patch forward references: any cell we wrote via putRef for an
	// address whose offset was not yet known at write time used the
	// placeholder sentinel; resolve those now.
	for i, addr := range order {
		_, cellCount := h.cellRange(addr)
		cellOff, _ := h.cellRange(addr)
		recOff := offsets[i]
		payloadStart := recOff + wire.RecordHeaderSize
		for c := 0; c < cellCount; c++ {
			cell := h.Cell(ValueFromAddr(addr), c)
			if IsInt(cell) || IsNull(cell) {
				continue
			}
			ca := Addr(cell)
			idx := indexOf(order, ca)
			p := payloadStart + cellOff + c*8
			// byte 0 already holds refMarker (written by putRef below);
			// bytes 4:8 hold the resolved target record offset.
			wire.PutOffset(buf[p+4:p+8], offsets[idx])
		}
	}

	root := -1
	if order != nil {
		root = offsets[0]
	}
	header := make([]byte, 9)
	if root >= 0 {
		header[0] = 1
		wire.PutOffset(header[1:5], root)
	}
	if IsInt(v) {
		header[0] = 2
		wire.PutOffset(header[5:9], encodeImmediate(v))
	}
	return wire.Frame(append(header, buf...)), nil
}

const refMarker = 0xFF

func putRef(dst []byte, cell Value) {
	if IsInt(cell) {
		dst[0] = 0
		wire.PutOffset(dst[4:8], encodeImmediate(cell))
		return
	}
	if IsNull(cell) {
		dst[0] = 1
		return
	}
	dst[0] = refMarker
	// offset patched in the second pass once all records exist.
}

func indexOf(order []uint32, addr uint32) int {
	for i, a := range order {
		if a == addr {
			return i
		}
	}
	return -1
}

func encodeImmediate(v Value) int { return int(int32(IntVal(v))) }
func decodeImmediate(n int) Value { return MakeInt(int64(int32(n))) }

// GCLoad reconstructs the graph saved by GCSave into h, preserving sharing
// and cycles (spec §8 round-trip law): gc_save(v) followed by gc_load
// yields a value structurally equal to v.
func GCLoad(buf []byte, h *Heap) (Value, error) {
	payload, err := wire.Split(buf)
	if err != nil {
		return Null, err
	}
	kind := payload[0]
	if kind == 0 {
		return Null, nil
	}
	if kind == 2 {
		n := wire.GetOffset(payload[5:9])
		return decodeImmediate(n), nil
	}
	root := wire.GetOffset(payload[1:5])
	body := payload[9:]

	memo := make(map[int]Value)
	var resolve func(off int) (Value, error)
	resolve = func(off int) (Value, error) {
		if v, ok := memo[off]; ok {
			return v, nil
		}
		rec, _, err := wire.ReadRecord(body, off)
		if err != nil {
			return Null, err
		}
		tag := Tag(rec.Tag)
		v, err := h.Alloc(tag, len(rec.Payload), h.Collect)
		if err != nil {
			return Null, err
		}
		memo[off] = v // register before recursing: preserves cycles
		copy(h.Bytes(v), rec.Payload)

		cellOff, cellCount := h.cellRange(Addr(v))
		for c := 0; c < cellCount; c++ {
			p := cellOff + c*8
			marker := rec.Payload[p]
			switch marker {
			case 0:
				h.SetCell(v, c, decodeImmediate(wire.GetOffset(rec.Payload[p+4:p+8])))
			case 1:
				h.SetCell(v, c, Null)
			case refMarker:
				childOff := wire.GetOffset(rec.Payload[p+4 : p+8])
				child, err := resolve(childOff)
				if err != nil {
					return Null, err
				}
				h.SetCell(v, c, child)
			}
		}
		return v, nil
	}

	return resolve(root)
}
