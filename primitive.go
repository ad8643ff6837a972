package mulvm

import "encoding/binary"

// PrimitiveFunc is the Go-native implementation of a primitive: it
// receives its already-popped arguments as an explicit slice plus the VM
// to allocate against, and returns a result or a thrown error (spec §4.F
// "Call protocol"). Implementations that allocate must not retain a Go
// pointer across a Heap.Alloc call without first re-reading any Value
// arguments they still need, since a GC cycle may relocate them.
type PrimitiveFunc func(vm *VM, args []Value) (Value, error)

// primitiveDef is one registered primitive's static shape.
type primitiveDef struct {
	name        string
	minArgs     int
	maxArgs     int // -1 = unbounded (varargs)
	minSecurity int
	fn          PrimitiveFunc
}

// primitiveTable is the Go-side registry a TagPrimitive/TagVarargsPrimitive/
// TagSecurePrimitive heap object's payload indexes into by position,
// generalizing the teacher's name->word closures (third.go) into a typed,
// arity-checked call target.
type primitiveTable struct {
	defs   []primitiveDef
	byName map[string]int
}

func newPrimitiveTable() *primitiveTable {
	return &primitiveTable{byName: make(map[string]int)}
}

// register adds def and returns its stable index.
func (t *primitiveTable) register(def primitiveDef) int {
	i := len(t.defs)
	t.defs = append(t.defs, def)
	t.byName[def.name] = i
	return i
}

// primitivePayloadLen is the fixed byte size of every primitive object's
// payload: a 4-byte index into the VM's primitiveTable.
const primitivePayloadLen = 4

// NewPrimitive allocates a TagPrimitive/TagVarargsPrimitive/TagSecurePrimitive
// heap object bound to the Go implementation registered as name, per tag's
// calling convention (spec §4.A primitive kinds, §4.F call protocol).
func NewPrimitive(vm *VM, tag Tag, name string) (Value, error) {
	idx, ok := vm.primitives.byName[name]
	if !ok {
		panic("mulvm: unregistered primitive " + name)
	}
	v, err := vm.heap.Alloc(tag, primitivePayloadLen, vm.gc)
	if err != nil {
		return Null, err
	}
	binary.BigEndian.PutUint32(vm.heap.Bytes(v), uint32(idx))
	return v, nil
}

func primitiveIndex(h *Heap, v Value) int {
	return int(binary.BigEndian.Uint32(h.Bytes(v)))
}

// registerBuiltinPrimitives installs the core primitive set (pairs,
// vectors, global lookup/set, call_trace); arithmetic and the domain
// families (string/regexp/io/json) are installed by RegisterRuntime
// (runtime_register.go).
func registerBuiltinPrimitives(vm *VM) {
	t := vm.primitives
	t.register(primitiveDef{name: "cons", minArgs: 2, maxArgs: 2, fn: primCons})
	t.register(primitiveDef{name: "car", minArgs: 1, maxArgs: 1, fn: primCar})
	t.register(primitiveDef{name: "cdr", minArgs: 1, maxArgs: 1, fn: primCdr})
	t.register(primitiveDef{name: "global_lookup", minArgs: 1, maxArgs: 1, fn: primGlobalLookup})
	t.register(primitiveDef{name: "global_value", minArgs: 1, maxArgs: 1, fn: primGlobalValue})
	t.register(primitiveDef{name: "global_set!", minArgs: 2, maxArgs: 2, fn: primGlobalSet})
	t.register(primitiveDef{name: "call_trace", minArgs: 0, maxArgs: 0, fn: primCallTrace})
	t.register(primitiveDef{name: "set_car!", minArgs: 2, maxArgs: 2, fn: primSetCar})
	t.register(primitiveDef{name: "set_cdr!", minArgs: 2, maxArgs: 2, fn: primSetCdr})
	t.register(primitiveDef{name: "vector_set!", minArgs: 3, maxArgs: 3, fn: primVectorSet})
	t.register(primitiveDef{name: "make_vector", minArgs: 1, maxArgs: 1, fn: primMakeVector})
}

func primCons(vm *VM, args []Value) (Value, error) {
	v, err := vm.heap.Alloc(TagPair, 16, vm.gc)
	if err != nil {
		return Null, err
	}
	vm.heap.SetCell(v, 0, args[0])
	vm.heap.SetCell(v, 1, args[1])
	return v, nil
}

func primCar(vm *VM, args []Value) (Value, error) {
	if _, ok := TypeOf(args[0], vm.heap); !ok {
		vm.throw(ErrBadType)
	}
	return vm.heap.Cell(args[0], 0), nil
}

func primCdr(vm *VM, args []Value) (Value, error) {
	return vm.heap.Cell(args[0], 1), nil
}

func primGlobalLookup(vm *VM, args []Value) (Value, error) {
	name := GoString(vm.heap, args[0])
	return MakeInt(int64(vm.globals.Lookup(name))), nil
}

func primGlobalValue(vm *VM, args []Value) (Value, error) {
	return vm.globals.Value(int(IntVal(args[0]))), nil
}

func primGlobalSet(vm *VM, args []Value) (Value, error) {
	vm.globals.SetValue(int(IntVal(args[0])), args[1])
	return args[1], nil
}

func primCallTrace(vm *VM, args []Value) (Value, error) {
	return CallTraceVector(vm.heap, vm.captureCallTrace(), vm.gc)
}

// primSetCar/primSetCdr/primVectorSet are the full (non-inline) mutation
// primitives: the builtin_set opcode only ever sees two operands, so
// three-operand vector assignment and car/cdr mutation go through these
// instead (spec §6's opcode table covers the fast binary path; these cover
// what it can't).
func primSetCar(vm *VM, args []Value) (Value, error) {
	if tag, ok := TypeOf(args[0], vm.heap); !ok || tag != TagPair {
		vm.throw(ErrBadType)
	}
	vm.heap.SetCell(args[0], 0, args[1])
	return args[1], nil
}

func primSetCdr(vm *VM, args []Value) (Value, error) {
	if tag, ok := TypeOf(args[0], vm.heap); !ok || tag != TagPair {
		vm.throw(ErrBadType)
	}
	vm.heap.SetCell(args[0], 1, args[1])
	return args[1], nil
}

func primMakeVector(vm *VM, args []Value) (Value, error) {
	if !IsInt(args[0]) {
		vm.throw(ErrBadType)
	}
	n := IntVal(args[0])
	if n < 0 {
		vm.throw(ErrBadValue)
	}
	v, err := vm.heap.Alloc(TagVector, int(n)*8, vm.gc)
	if err != nil {
		return Null, err
	}
	for i := int64(0); i < n; i++ {
		vm.heap.SetCell(v, int(i), Null)
	}
	return v, nil
}

func primVectorSet(vm *VM, args []Value) (Value, error) {
	if tag, ok := TypeOf(args[0], vm.heap); !ok || tag != TagVector {
		vm.throw(ErrBadType)
	}
	if !IsInt(args[1]) {
		vm.throw(ErrBadType)
	}
	i := IntVal(args[1])
	if i < 0 || i >= int64(vm.heap.CellCount(args[0])) {
		vm.throw(ErrBadIndex)
	}
	vm.heap.SetCell(args[0], int(i), args[2])
	return args[2], nil
}
