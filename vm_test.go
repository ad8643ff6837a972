package mulvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func runAsm(t *testing.T, vm *VM, src string, consts []Value, args []Value) (Value, error) {
	t.Helper()
	code, err := Assemble(vm.Heap(), src, consts, vm.gc)
	require.NoError(t, err)
	closure, err := BuildClosure(vm.Heap(), code, nil, vm.gc)
	require.NoError(t, err)
	return vm.Call(context.Background(), closure, args)
}

func TestEndToEndArithmetic(t *testing.T) {
	vm := New()
	result, err := runAsm(t, vm, "integer1 40 integer1 2 + return", nil, nil)
	require.NoError(t, err)
	require.Equal(t, MakeInt(42), result)
}

func TestEndToEndComparisonAndBranch(t *testing.T) {
	vm := New()
	// if 3 < 5 return 1 else return 0
	src := `
		integer1 3 integer1 5 <
		branch_z1 @else
		integer1 1
		return
		:else
		integer1 0
		return
	`
	result, err := runAsm(t, vm, src, nil, nil)
	require.NoError(t, err)
	require.Equal(t, MakeInt(1), result)
}

func TestEndToEndLoopCountsToTen(t *testing.T) {
	vm := New()
	// locals: [0]=n (arg), [1]=acc
	src := `
		.local 2
		integer1 0
		assign-local1 1
		discard
		:top
		recall-local1 0
		integer1 0
		eq
		branch_nz1 @done
		recall-local1 1
		integer1 1
		+
		assign-local1 1
		discard
		recall-local1 0
		integer1 1
		-
		assign-local1 0
		discard
		loop1 @top
		:done
		recall-local1 1
		return
	`
	result, err := runAsm(t, vm, src, nil, []Value{MakeInt(10)})
	require.NoError(t, err)
	require.Equal(t, MakeInt(10), result)
}

// TestEndToEndCallQuotaExhaustion exercises the session-fatal error_loop
// path (spec §7 policy: not catchable by catch_error), so it drives the
// loop through Interpret rather than the bare Call entry point — Interpret
// is the boundary that recovers a fatal thrown error into a Go error
// instead of letting it keep unwinding as a panic.
func TestEndToEndCallQuotaExhaustion(t *testing.T) {
	vm := New(WithCallQuota(50), WithFastCallQuota(50))
	src := `
		:top
		loop1 @top
	`
	code, err := Assemble(vm.Heap(), src, nil, vm.gc)
	require.NoError(t, err)
	closure, err := BuildClosure(vm.Heap(), code, nil, vm.gc)
	require.NoError(t, err)

	_, err = vm.Interpret(context.Background(), closure, 0, false)
	require.Error(t, err)
}

// TestTwoClosuresShareCounter builds the inc/get closures directly
// against the heap (rather than through the resolver) and drives them
// through the real dispatch loop, exercising spec §8's shared-counter
// scenario end-to-end: both closures close over the same TagVariable box,
// so a mutation through one is visible through the other.
func TestTwoClosuresShareCounter(t *testing.T) {
	vm := New()
	ctx := context.Background()

	box, err := NewVariable(vm.Heap(), MakeInt(0), vm.gc)
	require.NoError(t, err)

	// inc: recall-closure1 0 reads through slot 0 (shared box), increments,
	// assign-closure1 0 writes back (which leaves its operand on the
	// stack, so an explicit discard follows), returns nothing meaningful.
	incCode, err := Assemble(vm.Heap(), `
		recall-closure1 0
		integer1 1
		+
		assign-closure1 0
		discard
		integer1 0
		return
	`, nil, vm.gc)
	require.NoError(t, err)
	incClosure, err := BuildClosure(vm.Heap(), incCode, []Value{box}, vm.gc)
	require.NoError(t, err)

	getCode, err := Assemble(vm.Heap(), `
		recall-closure1 0
		return
	`, nil, vm.gc)
	require.NoError(t, err)
	getClosure, err := BuildClosure(vm.Heap(), getCode, []Value{box}, vm.gc)
	require.NoError(t, err)

	_, err = vm.Call(ctx, incClosure, nil)
	require.NoError(t, err)
	_, err = vm.Call(ctx, incClosure, nil)
	require.NoError(t, err)

	result, err := vm.Call(ctx, getClosure, nil)
	require.NoError(t, err)
	require.Equal(t, MakeInt(2), result)
}

func TestCatchErrorRecoversDivideByZero(t *testing.T) {
	vm := New()
	ctx := context.Background()

	divide, err := NewPrimitive(vm, TagPrimitive, "/")
	require.NoError(t, err)

	code, err := Assemble(vm.Heap(), `
		constant1 0
		integer1 1
		integer1 0
		execute-primitive 2
		return
	`, []Value{divide}, vm.gc)
	require.NoError(t, err)
	closure, err := BuildClosure(vm.Heap(), code, nil, vm.gc)
	require.NoError(t, err)

	s := SessionStart(vm)
	defer s.End()

	_, code2, caught := s.CatchError(func() Value {
		v, _ := vm.Call(ctx, closure, nil)
		return v
	}, true)
	require.True(t, caught)
	require.Equal(t, ErrDivideByZero, code2)

	// the session must be left in a usable state: a fresh call afterward
	// must run cleanly rather than tripping over stale frames.
	result, err := runAsm(t, vm, "integer1 1 integer1 1 + return", nil, nil)
	require.NoError(t, err)
	require.Equal(t, MakeInt(2), result)
}

func TestConsCarPrimitives(t *testing.T) {
	vm := New()

	cons, err := NewPrimitive(vm, TagPrimitive, "cons")
	require.NoError(t, err)
	car, err := NewPrimitive(vm, TagPrimitive, "car")
	require.NoError(t, err)

	code, err := Assemble(vm.Heap(), `
		constant1 1
		constant1 0
		integer1 1
		integer1 2
		execute-primitive 2
		execute 1
		return
	`, []Value{cons, car}, vm.gc)
	require.NoError(t, err)
	closure, err := BuildClosure(vm.Heap(), code, nil, vm.gc)
	require.NoError(t, err)

	result, err := vm.Call(context.Background(), closure, nil)
	require.NoError(t, err)
	require.Equal(t, MakeInt(1), result)
}
