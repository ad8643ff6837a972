package mulvm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGCSaveLoadImmediateInt(t *testing.T) {
	h := NewHeap(0, 0)
	buf, err := GCSave(MakeInt(42), h)
	require.NoError(t, err)

	v, err := GCLoad(buf, h)
	require.NoError(t, err)
	require.Equal(t, MakeInt(42), v)
}

func TestGCSaveLoadNull(t *testing.T) {
	h := NewHeap(0, 0)
	buf, err := GCSave(Null, h)
	require.NoError(t, err)

	v, err := GCLoad(buf, h)
	require.NoError(t, err)
	require.True(t, IsNull(v))
}

func TestGCSaveLoadPairRoundTrip(t *testing.T) {
	h := NewHeap(0, 0)
	pair, err := h.Alloc(TagPair, 16, noGC)
	require.NoError(t, err)
	h.SetCell(pair, 0, MakeInt(1))
	h.SetCell(pair, 1, MakeInt(2))

	buf, err := GCSave(pair, h)
	require.NoError(t, err)

	h2 := NewHeap(0, 0)
	loaded, err := GCLoad(buf, h2)
	require.NoError(t, err)

	tag, ok := TypeOf(loaded, h2)
	require.True(t, ok)
	require.Equal(t, TagPair, tag)
	require.Equal(t, MakeInt(1), h2.Cell(loaded, 0))
	require.Equal(t, MakeInt(2), h2.Cell(loaded, 1))
}

// TestGCSaveLoadPreservesCycle builds a self-referential pair (car points
// back to itself) and checks the saved/loaded graph keeps that identity,
// per the round-trip law's cycle-preservation requirement.
func TestGCSaveLoadPreservesCycle(t *testing.T) {
	h := NewHeap(0, 0)
	pair, err := h.Alloc(TagPair, 16, noGC)
	require.NoError(t, err)
	h.SetCell(pair, 0, pair)
	h.SetCell(pair, 1, MakeInt(9))

	buf, err := GCSave(pair, h)
	require.NoError(t, err)

	h2 := NewHeap(0, 0)
	loaded, err := GCLoad(buf, h2)
	require.NoError(t, err)

	require.Equal(t, loaded, h2.Cell(loaded, 0), "self-reference must be preserved across save/load")
	require.Equal(t, MakeInt(9), h2.Cell(loaded, 1))
}
