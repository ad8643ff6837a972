package mulvm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func noGC() error { return nil }

func TestHeapAllocAndCells(t *testing.T) {
	h := NewHeap(0, 0)
	v, err := h.Alloc(TagPair, 16, noGC)
	require.NoError(t, err)

	tag, ok := TypeOf(v, h)
	require.True(t, ok)
	require.Equal(t, TagPair, tag)

	h.SetCell(v, 0, MakeInt(1))
	h.SetCell(v, 1, MakeInt(2))
	require.Equal(t, MakeInt(1), h.Cell(v, 0))
	require.Equal(t, MakeInt(2), h.Cell(v, 1))
	require.Equal(t, 2, h.CellCount(v))
}

func TestHeapStringBytes(t *testing.T) {
	h := NewHeap(0, 0)
	v, err := NewString(h, "hello", noGC)
	require.NoError(t, err)
	require.Equal(t, "hello", GoString(h, v))
}

func TestGCCollectsAndPreservesRoots(t *testing.T) {
	h := NewHeap(1024, 0)
	v, err := NewString(h, "kept alive", noGC)
	require.NoError(t, err)

	h.StaticPro(&v)

	// fill the heap with garbage to force at least one real copy.
	for i := 0; i < 100; i++ {
		_, err := NewString(h, "garbage garbage garbage garbage", h.Collect)
		require.NoError(t, err)
	}

	require.NoError(t, h.Collect())
	require.Equal(t, "kept alive", GoString(h, v), "staticpro'd root must survive collection")
}
