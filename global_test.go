package mulvm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobalsLookupIsStableAndDense(t *testing.T) {
	g := NewGlobals()
	i1 := g.Lookup("x")
	i2 := g.Lookup("y")
	i3 := g.Lookup("x")
	require.Equal(t, i1, i3, "two lookups of the same name share one index")
	require.NotEqual(t, i1, i2)
	require.Equal(t, 2, g.Count())
}

func TestGlobalsWritabilityByClass(t *testing.T) {
	g := NewGlobals()

	g.Declare("sys_var", VarSystemWritable, "")
	require.False(t, g.Writable("sys_var", "", 0))
	require.True(t, g.Writable("sys_var", "", SecuritySystem))

	g.Declare("mod_var", VarModuleOwned, "mymod")
	require.False(t, g.Writable("mod_var", "othermod", 0))
	require.True(t, g.Writable("mod_var", "mymod", 0))

	g.Declare("plain", VarNormal, "")
	require.True(t, g.Writable("plain", "anyone", 0))

	require.True(t, g.Writable("never_declared", "anyone", 0))
}

func TestGlobalsRootsTrackLiveCells(t *testing.T) {
	g := NewGlobals()
	i := g.Lookup("x")
	g.SetValue(i, MakeInt(7))

	roots := g.Roots()
	require.Len(t, roots, 1)
	require.Equal(t, MakeInt(7), *roots[i])
}
