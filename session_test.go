package mulvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatchErrorSuppressFalseReturnsCode(t *testing.T) {
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

	result, errCode, caught := s.CatchError(func() Value {
		v, _ := vm.Call(ctx, closure, nil)
		return v
	}, false)
	require.True(t, caught)
	require.Equal(t, ErrDivideByZero, errCode)
	require.True(t, IsNull(result), "suppress=false reports the code but returns null, not the encoded error")
}

func TestCatchErrorPassesThroughSuccessfulThunk(t *testing.T) {
	vm := New()
	s := SessionStart(vm)
	defer s.End()

	result, _, caught := s.CatchError(func() Value {
		return MakeInt(5)
	}, true)
	require.False(t, caught)
	require.Equal(t, MakeInt(5), result)
}

// TestCatchErrorNestedHandlersUnwindToInnermost checks that an error
// thrown inside a nested catch_error is caught by the innermost handler,
// leaving the outer handler's thunk to complete normally.
func TestCatchErrorNestedHandlersUnwindToInnermost(t *testing.T) {
	vm := New()
	s := SessionStart(vm)
	defer s.End()

	outerSawInnerResult := false
	result, _, outerCaught := s.CatchError(func() Value {
		_, innerCode, innerCaught := s.CatchError(func() Value {
			vm.throw(ErrBadType)
			return Null
		}, true)
		outerSawInnerResult = innerCaught && innerCode == ErrBadType
		return MakeInt(1)
	}, true)

	require.True(t, outerSawInnerResult)
	require.False(t, outerCaught)
	require.Equal(t, MakeInt(1), result)
}
