package mulvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitterIntegerAndBuiltinAddRunEndToEnd(t *testing.T) {
	e := NewEmitter()
	e.EmitInteger(40)
	e.EmitInteger(2)
	e.EmitBuiltin("+")
	e.EmitReturn()
	e.DeclareLocals(0)

	vm := New()
	code, err := e.Finish(vm.Heap(), vm.gc)
	require.NoError(t, err)
	closure, err := BuildClosure(vm.Heap(), code, nil, vm.gc)
	require.NoError(t, err)

	result, err := vm.Call(context.Background(), closure, nil)
	require.NoError(t, err)
	require.Equal(t, MakeInt(42), result)
}

func TestEmitterForwardBranchPatch(t *testing.T) {
	e := NewEmitter()
	// if false, skip the integer1 99 push; either way return.
	e.EmitInteger(0)
	site := e.EmitBranch(OpBranchZ1)
	e.EmitInteger(99)
	e.PatchBranch(site)
	e.EmitInteger(1)
	e.EmitReturn()

	vm := New()
	code, err := e.Finish(vm.Heap(), vm.gc)
	require.NoError(t, err)
	closure, err := BuildClosure(vm.Heap(), code, nil, vm.gc)
	require.NoError(t, err)

	result, err := vm.Call(context.Background(), closure, nil)
	require.NoError(t, err)
	require.Equal(t, MakeInt(1), result, "branch on zero must skip the 99 push")
}

func TestEmitterConstantPoolDedupsImmutableValues(t *testing.T) {
	vm := New()
	e := NewEmitter()
	s, err := NewString(vm.Heap(), "hi", vm.gc)
	require.NoError(t, err)

	e.EmitConstant(s, true)
	e.EmitConstant(s, true)
	e.EmitDiscard()
	e.EmitReturn()

	require.Equal(t, 1, len(e.consts), "structurally-equal immutable constants dedup to one pool entry")
}

func TestEmitterMaxStackTracksHighWaterMark(t *testing.T) {
	e := NewEmitter()
	e.EmitInteger(1)
	e.EmitInteger(2)
	e.EmitInteger(3)
	require.Equal(t, 3, e.maxStack)
	e.EmitBuiltin("+")
	e.EmitBuiltin("+")
	require.Equal(t, 3, e.maxStack, "high-water mark must not shrink after later pops")
}
