package mulvm

import "encoding/binary"

// Code object fixed-field layout, within the 12-byte codeFixedSize region
// that follows the common object header (spec §3 "code"):
//
//	bytes 0:4  bytecodeLen  uint32
//	bytes 4:6  maxLocals    uint16
//	bytes 6:8  maxStack     uint16
//	bytes 8:12 constCount   uint32
//
// The bytecode itself follows immediately, padded out to an 8-byte
// boundary so the constant pool's cell array (one Value per constant) is
// properly aligned; cellRange (heap.go) already knows to read constCount
// from this fixed region and treat only the constant pool as GC cells —
// the bytecode bytes themselves are opaque payload, never scanned.
const (
	codeOffBytecodeLen = 0
	codeOffMaxLocals   = 4
	codeOffMaxStack    = 6
	codeOffConstCount  = 8
)

// NewCodeObject allocates a code object from an assembled instruction
// stream, its declared frame shape, and its constant pool (spec §4.E/§8
// invariant "max local index in bytecode < declared local count").
func NewCodeObject(h *Heap, bytecode []byte, maxLocals, maxStack int, consts []Value, gc func() error) (Value, error) {
	padded := (len(bytecode) + 7) &^ 7
	payload := codeFixedSize + padded + len(consts)*8

	v, err := h.Alloc(TagCode, payload, gc)
	if err != nil {
		return Null, err
	}
	b := h.Bytes(v)
	binary.BigEndian.PutUint32(b[codeOffBytecodeLen:], uint32(len(bytecode)))
	binary.BigEndian.PutUint16(b[codeOffMaxLocals:], uint16(maxLocals))
	binary.BigEndian.PutUint16(b[codeOffMaxStack:], uint16(maxStack))
	binary.BigEndian.PutUint32(b[codeOffConstCount:], uint32(len(consts)))
	copy(b[codeFixedSize:], bytecode)
	for i, c := range consts {
		h.SetCell(v, i, c)
	}
	return v, nil
}

// CodeBytecodeLen/CodeMaxLocals/CodeMaxStack/CodeConstCount read a code
// object's fixed fields.
func CodeBytecodeLen(h *Heap, v Value) int {
	return int(binary.BigEndian.Uint32(h.Bytes(v)[codeOffBytecodeLen:]))
}
func CodeMaxLocals(h *Heap, v Value) int {
	return int(binary.BigEndian.Uint16(h.Bytes(v)[codeOffMaxLocals:]))
}
func CodeMaxStack(h *Heap, v Value) int {
	return int(binary.BigEndian.Uint16(h.Bytes(v)[codeOffMaxStack:]))
}
func CodeConstCount(h *Heap, v Value) int {
	return int(binary.BigEndian.Uint32(h.Bytes(v)[codeOffConstCount:]))
}

// CodeBytecode returns the raw instruction stream (read-only view).
func CodeBytecode(h *Heap, v Value) []byte {
	b := h.Bytes(v)
	n := CodeBytecodeLen(h, v)
	return b[codeFixedSize : codeFixedSize+n]
}

// CodeConstant returns the i'th constant-pool entry.
func CodeConstant(h *Heap, v Value, i int) Value { return h.Cell(v, i) }
