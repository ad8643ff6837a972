package mulvm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrintScalarsAndNull(t *testing.T) {
	h := NewHeap(0, 0)

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, h, MakeInt(42), LevelDisplay))
	require.Equal(t, "42", buf.String())

	buf.Reset()
	require.NoError(t, Print(&buf, h, Null, LevelDisplay))
	require.Equal(t, "()", buf.String())
}

func TestPrintStringDisplayVsPrintQuotes(t *testing.T) {
	h := NewHeap(0, 0)
	s, err := NewString(h, "hi there", noGC)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, h, s, LevelDisplay))
	require.Equal(t, "hi there", buf.String())

	buf.Reset()
	require.NoError(t, Print(&buf, h, s, LevelPrint))
	require.Equal(t, `"hi there"`, buf.String())
}

func TestPrintPairAndVector(t *testing.T) {
	h := NewHeap(0, 0)
	pair, err := h.Alloc(TagPair, 16, noGC)
	require.NoError(t, err)
	h.SetCell(pair, 0, MakeInt(1))
	h.SetCell(pair, 1, MakeInt(2))

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, h, pair, LevelDisplay))
	require.Equal(t, "(1 . 2)", buf.String())

	vec, err := h.Alloc(TagVector, 24, noGC)
	require.NoError(t, err)
	h.SetCell(vec, 0, MakeInt(1))
	h.SetCell(vec, 1, MakeInt(2))
	h.SetCell(vec, 2, MakeInt(3))

	buf.Reset()
	require.NoError(t, Print(&buf, h, vec, LevelDisplay))
	require.Equal(t, "[1 2 3]", buf.String())
}

func TestPrintDetectsCycle(t *testing.T) {
	h := NewHeap(0, 0)
	pair, err := h.Alloc(TagPair, 16, noGC)
	require.NoError(t, err)
	h.SetCell(pair, 0, pair)
	h.SetCell(pair, 1, Null)

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, h, pair, LevelDisplay))
	require.Contains(t, buf.String(), "<cycle>")
}
