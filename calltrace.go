package mulvm

// captureCallTrace snapshots the current frame stack as a vector of
// (code, offset) pairs, innermost frame first (spec §4.G "the interpreter
// snapshots a call trace"), generalizing the teacher's wordOf/codeName
// debug helpers (internals.go) from name-only breadcrumbs into a structured
// trace usable by both the error report path and a core primitive that
// exposes it to user code.
func (vm *VM) captureCallTrace() []CallFrame {
	trace := make([]CallFrame, 0, len(vm.frames)+1)
	trace = append(trace, CallFrame{Code: vm.code, Offset: vm.pc})
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		trace = append(trace, CallFrame{Code: f.retCode, Offset: f.retPC})
	}
	return trace
}

// CallTraceVector builds the heap vector object a "call trace" core
// primitive hands back to user code: one pair per frame of (code .
// offset), outermost last.
func CallTraceVector(h *Heap, trace []CallFrame, gc func() error) (Value, error) {
	v, err := h.Alloc(TagVector, len(trace)*8, gc)
	if err != nil {
		return Null, err
	}
	for i, f := range trace {
		pair, err := h.Alloc(TagPair, 16, gc)
		if err != nil {
			return Null, err
		}
		h.SetCell(pair, 0, f.Code)
		h.SetCell(pair, 1, MakeInt(int64(f.Offset)))
		h.SetCell(v, i, pair)
	}
	return v, nil
}
