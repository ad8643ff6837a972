package mulvm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVariableBoxGetSet(t *testing.T) {
	h := NewHeap(0, 0)
	v, err := NewVariable(h, MakeInt(7), noGC)
	require.NoError(t, err)
	require.Equal(t, MakeInt(7), VariableGet(h, v))

	VariableSet(h, v, MakeInt(9))
	require.Equal(t, MakeInt(9), VariableGet(h, v))
}

func TestBuildClosureCodeAndCapture(t *testing.T) {
	h := NewHeap(0, 0)
	code := MakeInt(123) // stand-in code value; closure.go treats it opaquely

	box, err := NewVariable(h, MakeInt(1), noGC)
	require.NoError(t, err)

	closure, err := BuildClosure(h, code, []Value{box}, noGC)
	require.NoError(t, err)

	require.Equal(t, code, ClosureCode(h, closure))
	require.Equal(t, box, ClosureCapture(h, closure, 0))
}

// TestSharedVariableBoxVisibleAcrossClosures exercises spec §8's "3 closures
// share one counter": two distinct closures capturing the same TagVariable
// box must observe each other's mutations.
func TestSharedVariableBoxVisibleAcrossClosures(t *testing.T) {
	h := NewHeap(0, 0)
	counter, err := NewVariable(h, MakeInt(0), noGC)
	require.NoError(t, err)

	incCode := MakeInt(1)
	getCode := MakeInt(2)

	incClosure, err := BuildClosure(h, incCode, []Value{counter}, noGC)
	require.NoError(t, err)
	getClosure, err := BuildClosure(h, getCode, []Value{counter}, noGC)
	require.NoError(t, err)

	// Simulate "inc" mutating the shared box through its own capture slot.
	box := ClosureCapture(h, incClosure, 0)
	VariableSet(h, box, MakeInt(IntVal(VariableGet(h, box))+1))
	VariableSet(h, box, MakeInt(IntVal(VariableGet(h, box))+1))

	// "get" reads through its own, independently-resolved capture slot.
	require.Equal(t, MakeInt(2), VariableGet(h, ClosureCapture(h, getClosure, 0)))
}
