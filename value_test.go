package mulvm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeIntRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 42, MaxInt, MinInt} {
		v := MakeInt(n)
		require.True(t, IsInt(v), "MakeInt(%d) should be tagged as an int", n)
		require.Equal(t, n, IntVal(v), "round-trip through MakeInt/IntVal")
	}
}

func TestBooleanConvention(t *testing.T) {
	require.False(t, IsTrue(False))
	require.True(t, IsTrue(True))
	require.True(t, IsTrue(MakeInt(-1)), "any non-zero tagged int is true")
	require.True(t, IsNull(Null))
}
