package mulvm

// BuildClosure allocates a TagClosure object pairing a code object with its
// captured-variable vector (spec §4.A "closure", §4.D). capture[i] is
// either an existing TagVariable box (threaded through from an outer
// frame's own closure vector) or a freshly boxed local value, matching the
// CapturedNames order the resolver assigned at compile time.
func BuildClosure(h *Heap, code Value, capture []Value, gc func() error) (Value, error) {
	v, err := h.Alloc(TagClosure, (1+len(capture))*8, gc)
	if err != nil {
		return Null, err
	}
	h.SetCell(v, 0, code)
	for i, c := range capture {
		h.SetCell(v, 1+i, c)
	}
	return v, nil
}

// NewVariable boxes val in a fresh TagVariable cell, so later mutation
// through any closure sharing the box is visible to every holder (spec §4.A
// "variable", §8 "3-closure shared counter" scenario).
func NewVariable(h *Heap, val Value, gc func() error) (Value, error) {
	v, err := h.Alloc(TagVariable, 8, gc)
	if err != nil {
		return Null, err
	}
	h.SetCell(v, 0, val)
	return v, nil
}

// VariableGet/VariableSet read and write through a TagVariable box.
func VariableGet(h *Heap, v Value) Value      { return h.Cell(v, 0) }
func VariableSet(h *Heap, v Value, val Value) { h.SetCell(v, 0, val) }

// ClosureCode returns the code object a closure was built from.
func ClosureCode(h *Heap, closure Value) Value { return h.Cell(closure, 0) }

// ClosureCapture returns the i'th captured variable box.
func ClosureCapture(h *Heap, closure Value, i int) Value { return h.Cell(closure, 1+i) }
