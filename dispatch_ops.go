package mulvm

import "context"

// refClassOf/isWide decode a family member back into its reference class
// and immediate width, since the three families (recall/assign/
// closure-var) share one {local,closure,global}×{1,2} layout (opcodes.go).
func refClassOf(op, base Op) RefClass { return RefClass((op - base) / 2) }
func isWide(op, base Op) bool         { return (op-base)%2 == 1 }

func (vm *VM) execRecall(op Op, code []byte) {
	class := refClassOf(op, OpRecallLocal1)
	var idx int
	if isWide(op, OpRecallLocal1) {
		idx = int(vm.u16(code))
	} else {
		idx = int(vm.u8(code))
	}
	switch class {
	case ClassLocal:
		vm.push(vm.readLocal(idx))
	case ClassClosure:
		vm.push(VariableGet(vm.heap, ClosureCapture(vm.heap, vm.closure, idx)))
	case ClassGlobal:
		vm.push(vm.globals.Value(idx))
	}
}

func (vm *VM) execAssign(op Op, code []byte) {
	class := refClassOf(op, OpAssignLocal1)
	var idx int
	if isWide(op, OpAssignLocal1) {
		idx = int(vm.u16(code))
	} else {
		idx = int(vm.u8(code))
	}
	val := vm.top() // assign leaves top (spec §6)
	switch class {
	case ClassLocal:
		vm.writeLocal(idx, val)
	case ClassClosure:
		VariableSet(vm.heap, ClosureCapture(vm.heap, vm.closure, idx), val)
	case ClassGlobal:
		name := vm.globals.Name(idx)
		if !vm.globals.Writable(name, "", vm.currentSecurityLevel()) {
			vm.throw(ErrVariableReadOnly)
		}
		vm.globals.SetValue(idx, val)
	}
}

func (vm *VM) execClosureVar(op Op, code []byte) {
	class := refClassOf(op, OpClosureVarLocal1)
	var idx int
	if isWide(op, OpClosureVarLocal1) {
		idx = int(vm.u16(code))
	} else {
		idx = int(vm.u8(code))
	}
	switch class {
	case ClassLocal:
		vm.push(vm.boxLocal(idx))
	case ClassClosure:
		vm.push(ClosureCapture(vm.heap, vm.closure, idx))
	case ClassGlobal:
		// A boxed snapshot, not a live write-through binding: globals are
		// looked up by index on every access, so capturing one "by
		// reference" for a closure has no use the emitter exercises; this
		// variant exists for opcode-table completeness (spec §6).
		box, err := NewVariable(vm.heap, vm.globals.Value(idx), vm.gc)
		if err != nil {
			vm.throw(ErrBadValue)
		}
		vm.push(box)
	}
}

// readLocal/writeLocal transparently thread through a boxed Variable cell
// if this slot was captured by some inner closure (boxLocal below), so a
// mutation via recall/assign-local stays visible to every closure sharing
// the box (spec §8 "3-closure shared counter" scenario).
func (vm *VM) readLocal(i int) Value {
	v := vm.local(i)
	if tag, ok := TypeOf(v, vm.heap); ok && tag == TagVariable {
		return VariableGet(vm.heap, v)
	}
	return v
}

func (vm *VM) writeLocal(i int, val Value) {
	v := vm.local(i)
	if tag, ok := TypeOf(v, vm.heap); ok && tag == TagVariable {
		VariableSet(vm.heap, v, val)
		return
	}
	vm.setLocal(i, val)
}

// boxLocal promotes local slot i to a TagVariable box in place (if not
// already one) and returns the box, so closure-var-local and any later
// recall/assign-local on the same slot observe the same shared cell.
func (vm *VM) boxLocal(i int) Value {
	v := vm.local(i)
	if tag, ok := TypeOf(v, vm.heap); ok && tag == TagVariable {
		return v
	}
	box, err := NewVariable(vm.heap, v, vm.gc)
	if err != nil {
		vm.throw(ErrBadValue)
	}
	vm.setLocal(i, box)
	return box
}

func (vm *VM) currentSecurityLevel() int {
	if vm.session != nil {
		return vm.session.securityLevel
	}
	return 0
}

// execBuildClosure pops a code object and n captured-variable boxes (each
// previously pushed by a closure-var-* instruction) and builds a closure
// object from them (spec §6 "closure B: build closure of N captured
// vars").
func (vm *VM) execBuildClosure(n int) {
	code := vm.pop()
	capture := vm.popN(n)
	v, err := BuildClosure(vm.heap, code, capture, vm.gc)
	if err != nil {
		vm.throw(ErrBadValue)
	}
	vm.push(v)
}

// execGlobalCall fuses recall-global+execute for the common zero-argument
// case (spec §6 "execute-global1/2: call through global slot"); calls
// taking arguments are always emitted as an ordinary recall-global
// followed by `execute k` by this implementation's emitter (emit.go).
func (vm *VM) execGlobalCall(ctx context.Context, idx int) {
	callee := vm.globals.Value(idx)
	v, err := vm.callValue(ctx, callee, nil)
	if err != nil {
		// Only a heap-exhaustion style allocation failure reaches here
		// (vm.throw already panics for every catchable error code); that
		// is the spec's declared fatal, non-recoverable condition, so it
		// propagates as a raw panic rather than a thrownError sentinel.
		panic(err)
	}
	vm.push(v)
}

// execVarargs collects every argument past the callee's declared fixed
// arity into one vector object and rebinds the frame's last local to it
// (spec §6 "varargs: collect extra args into vector").
func (vm *VM) execVarargs() {
	maxLocals := CodeMaxLocals(vm.heap, vm.code)
	base := vm.localBase()
	fixed := maxLocals - 1
	extra := (len(vm.stack) - base) - fixed
	if extra < 0 {
		extra = 0
	}
	vec, err := vm.heap.Alloc(TagVector, extra*8, vm.gc)
	if err != nil {
		vm.throw(ErrBadValue)
	}
	for i := 0; i < extra; i++ {
		vm.heap.SetCell(vec, i, vm.stack[base+fixed+i])
	}
	vm.stack = vm.stack[:base+fixed]
	vm.push(vec)
}

// execDefine implements the module-level `define` opcode: pop a value and
// a global index (as a tagged integer), store, leave nothing (spec §6
// "define: module-level define").
func (vm *VM) execDefine() {
	val := vm.pop()
	idx := int(IntVal(vm.pop()))
	vm.globals.SetValue(idx, val)
}
