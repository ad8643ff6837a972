package mulvm

import "context"

// call invokes closure with args from Go (the embedding surface's entry
// point, spec §6 "call(closure, argv)"), pushing a fresh top-level frame
// and running the dispatch loop to completion or thrown error.
func (vm *VM) call(ctx context.Context, closure Value, args []Value) (Value, error) {
	vm.enterRecursion()
	defer vm.exitRecursion()

	tag, ok := TypeOf(closure, vm.heap)
	if !ok || tag != TagClosure {
		vm.throw(ErrBadFunction)
	}
	code := ClosureCode(vm.heap, closure)

	// The caller's code/pc/closure are saved into the new frame slot (a
	// slice element, reachable from vm.rootScope) rather than into plain Go
	// locals: a collection during run must be able to relocate them, and a
	// Go local sitting outside any root would go stale the moment the
	// object it names gets copied (see vm.go's gc/rootScope).
	frameIdx := len(vm.frames)
	vm.frames = append(vm.frames, frame{retCode: vm.code, retPC: vm.pc, retClosure: vm.closure})
	vm.code, vm.pc, vm.closure = code, 0, closure

	base := len(vm.stack)
	for _, a := range args {
		vm.push(a)
	}
	maxLocals := CodeMaxLocals(vm.heap, code)
	for i := len(args); i < maxLocals; i++ {
		vm.push(Null)
	}
	vm.frames[frameIdx].stackBase = base

	vm.argcheck(len(args), maxLocals)

	result, err := vm.run(ctx)

	ret := vm.frames[frameIdx]
	vm.frames = vm.frames[:frameIdx]
	vm.code, vm.pc, vm.closure = ret.retCode, ret.retPC, ret.retClosure
	return result, err
}

// argcheck validates a call's argument count against the callee's declared
// local-slot count, the entry-point shape check spec §4.F names (`argcheck
// k`): more arguments than local slots throws error_wrong_parameters. Fewer
// arguments are accepted; the missing ones read as Null.
func (vm *VM) argcheck(nargs, maxLocals int) {
	if nargs > maxLocals {
		vm.throw(ErrWrongParameters)
	}
}

// callValue dispatches a generic `execute k` call target: a closure, or any
// of the three primitive kinds, applying the matching calling convention
// (spec §4.F "Call protocol").
func (vm *VM) callValue(ctx context.Context, callee Value, args []Value) (Value, error) {
	tag, ok := TypeOf(callee, vm.heap)
	if !ok {
		vm.throw(ErrBadFunction)
	}
	switch tag {
	case TagClosure:
		return vm.call(ctx, callee, args)
	case TagPrimitive:
		return vm.callPrimitive(callee, args)
	case TagSecurePrimitive:
		return vm.callSecurePrimitive(callee, args)
	case TagVarargsPrimitive:
		return vm.callVarargsPrimitive(callee, args)
	default:
		vm.throw(ErrBadFunction)
		panic("unreachable")
	}
}

func (vm *VM) callPrimitive(callee Value, args []Value) (Value, error) {
	def := vm.primitives.defs[primitiveIndex(vm.heap, callee)]
	vm.checkArity(def, len(args))
	vm.tickQuota()
	return def.fn(vm, args)
}

// callSecurePrimitive additionally compares the running session's security
// level against the primitive's declared minimum (spec §4.F "Secure
// primitives"), raising error_security_violation on failure.
func (vm *VM) callSecurePrimitive(callee Value, args []Value) (Value, error) {
	def := vm.primitives.defs[primitiveIndex(vm.heap, callee)]
	level := 0
	if vm.session != nil {
		level = vm.session.securityLevel
	}
	if level < def.minSecurity {
		vm.throw(ErrSecurityViolation)
	}
	vm.checkArity(def, len(args))
	vm.tickQuota()
	return def.fn(vm, args)
}

// callVarargsPrimitive collects args into one constructed vector object
// before the call (spec §4.F "Varargs primitives receive a single vector
// of arguments").
func (vm *VM) callVarargsPrimitive(callee Value, args []Value) (Value, error) {
	def := vm.primitives.defs[primitiveIndex(vm.heap, callee)]
	vec, err := vm.heap.Alloc(TagVector, len(args)*8, vm.gc)
	if err != nil {
		return Null, err
	}
	for i, a := range args {
		vm.heap.SetCell(vec, i, a)
	}
	vm.tickQuota()
	return def.fn(vm, []Value{vec})
}

func (vm *VM) checkArity(def primitiveDef, n int) {
	if n < def.minArgs || (def.maxArgs >= 0 && n > def.maxArgs) {
		vm.throw(ErrWrongParameters)
	}
}
