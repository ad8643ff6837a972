package mulvm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLocalAndGlobal(t *testing.T) {
	r := NewResolver(NewGlobals())
	f := r.PushFrame()
	f.EnterBlock([]string{"x", "y"})

	ref := r.Resolve("x")
	require.Equal(t, RefLocal, ref.Kind)
	require.Equal(t, 0, ref.Offset)

	ref = r.Resolve("y")
	require.Equal(t, RefLocal, ref.Kind)
	require.Equal(t, 1, ref.Offset)

	ref = r.Resolve("undeclared")
	require.Equal(t, RefGlobal, ref.Kind)
}

// TestResolveSharedClosureCapture exercises spec §8's "3 closures share one
// counter" scenario: an outer local captured by two directly-nested inner
// frames must thread through the intervening frame's closure list exactly
// once, and both inner frames must see the same capture position.
func TestResolveSharedClosureCapture(t *testing.T) {
	r := NewResolver(NewGlobals())

	outer := r.PushFrame()
	outer.EnterBlock([]string{"counter"})

	middle := r.PushFrame()
	ref := r.Resolve("counter")
	require.Equal(t, RefClosure, ref.Kind)
	require.Equal(t, []string{"counter"}, middle.CapturedNames())
	firstPos := ref.Offset

	inner := r.PushFrame()
	ref = r.Resolve("counter")
	require.Equal(t, RefClosure, ref.Kind)
	require.Equal(t, []string{"counter"}, inner.CapturedNames())

	// Resolving again from the same inner frame must reuse the same
	// capture slot, not grow the closure list.
	ref2 := r.Resolve("counter")
	require.Equal(t, ref.Offset, ref2.Offset)
	require.Equal(t, 1, len(inner.CapturedNames()))
	require.Equal(t, firstPos, ref.Offset)

	r.PopFrame()
	r.PopFrame()
	r.PopFrame()
}

func TestResolveGlobalEscapeHatch(t *testing.T) {
	g := NewGlobals()
	r := NewResolver(g)
	f := r.PushFrame()
	f.EnterBlock([]string{"x"})

	ref := r.Resolve("global:x")
	require.Equal(t, RefGlobal, ref.Kind)
}
