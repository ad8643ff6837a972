package mulvm

import (
	"context"

	"github.com/local/mulvm/internal/runtime"
)

// execBuiltin implements the builtin_X opcode family (spec §6): an inline
// fast path for the operators common enough to warrant skipping a full
// primitive-table dispatch. Arithmetic and ordering operators require both
// operands to already be tagged integers (this machine has no bignum
// promotion: overflow wraps per spec §4.A, it never escalates to the
// `bigint` heap kind — see DESIGN.md); any other operand throws bad_type,
// and no full primitive call is made. `eq`/`neq`/`not` work on any Value since they
// never inspect anything but raw identity/truthiness. `ref`/`set` dispatch
// on the container's tag instead of an int check.
func (vm *VM) execBuiltin(_ context.Context, op Op) {
	switch op {
	case OpBuiltinNot:
		v := vm.pop()
		vm.push(boolValue(!IsTrue(v)))
		return
	}

	b := vm.pop()
	a := vm.pop()

	switch op {
	case OpBuiltinEq:
		vm.push(boolValue(a == b))
		return
	case OpBuiltinNeq:
		vm.push(boolValue(a != b))
		return
	case OpBuiltinRef:
		vm.push(vm.builtinRef(a, b))
		return
	case OpBuiltinSet:
		vm.push(vm.builtinSet(a, b))
		return
	}

	if !IsInt(a) || !IsInt(b) {
		vm.throw(ErrBadType)
	}
	x, y := IntVal(a), IntVal(b)

	switch op {
	case OpBuiltinLt:
		vm.push(boolValue(x < y))
	case OpBuiltinLe:
		vm.push(boolValue(x <= y))
	case OpBuiltinGt:
		vm.push(boolValue(x > y))
	case OpBuiltinGe:
		vm.push(boolValue(x >= y))
	case OpBuiltinAdd:
		vm.push(MakeInt(runtime.WrapAdd(x, y)))
	case OpBuiltinSub:
		vm.push(MakeInt(runtime.WrapSub(x, y)))
	case OpBuiltinBitAnd:
		vm.push(MakeInt(x & y))
	case OpBuiltinBitOr:
		vm.push(MakeInt(x | y))
	default:
		vm.throw(ErrBadFunction)
	}
}

func boolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

// builtinRef indexes a vector, pair, or string by a tagged-integer index
// (spec §3's closed tag set; `ref` generalizes car/cdr/vector-ref/string-ref
// to one opcode keyed on the container's runtime tag).
func (vm *VM) builtinRef(container, index Value) Value {
	if !IsInt(index) {
		vm.throw(ErrBadType)
	}
	i := IntVal(index)

	tag, ok := TypeOf(container, vm.heap)
	if !ok {
		vm.throw(ErrBadType)
	}
	switch tag {
	case TagVector:
		n := vm.heap.CellCount(container)
		if i < 0 || i >= int64(n) {
			vm.throw(ErrBadIndex)
		}
		return vm.heap.Cell(container, int(i))
	case TagPair:
		switch i {
		case 0, 1:
			return vm.heap.Cell(container, int(i))
		default:
			vm.throw(ErrBadIndex)
		}
	case TagString:
		s := vm.heap.Bytes(container)
		if i < 0 || i >= int64(len(s)) {
			vm.throw(ErrBadIndex)
		}
		c, err := NewCharacter(vm.heap, s[i], vm.gc)
		if err != nil {
			panic(err)
		}
		return c
	}
	vm.throw(ErrBadType)
	panic("unreachable")
}

// builtinSet mutates a vector slot or a captured variable cell. Three-operand
// vector assignment (container, index, value) is exposed through the
// vector_set! primitive (primitive.go) rather than this inline opcode, which
// only ever sees two operands on the stack; here `set` covers the common
// single-cell mutation used by set!-on-a-captured-variable.
func (vm *VM) builtinSet(container, value Value) Value {
	tag, ok := TypeOf(container, vm.heap)
	if !ok {
		vm.throw(ErrBadType)
	}
	if tag != TagVariable {
		vm.throw(ErrBadType)
	}
	VariableSet(vm.heap, container, value)
	return value
}
