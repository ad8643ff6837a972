package mulvm

// Character objects wrap a single byte codepoint in one cell (spec §3
// "character" kind), distinct from a tagged integer so typecheck can
// distinguish `?a` from `97`.
func NewCharacter(h *Heap, c byte, gc func() error) (Value, error) {
	v, err := h.Alloc(TagCharacter, 8, gc)
	if err != nil {
		return Null, err
	}
	h.SetCell(v, 0, MakeInt(int64(c)))
	return v, nil
}

func CharByte(h *Heap, v Value) byte { return byte(IntVal(h.Cell(v, 0))) }
