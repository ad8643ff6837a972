package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/local/mulvm/internal/runtime/ivalue"
)

func TestDivideTruncatesTowardsZero(t *testing.T) {
	r, err := Divide(7, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), r)

	r, err = Divide(-7, 2)
	require.NoError(t, err)
	require.Equal(t, int64(-3), r)
}

func TestDivideByZero(t *testing.T) {
	_, err := Divide(1, 0)
	require.ErrorIs(t, err, ErrDivideByZero)
}

func TestRemainderSatisfiesDivisionLaw(t *testing.T) {
	for _, pair := range [][2]int64{{7, 2}, {-7, 2}, {7, -2}, {-7, -2}} {
		a, b := pair[0], pair[1]
		q, err := Divide(a, b)
		require.NoError(t, err)
		r, err := Remainder(a, b)
		require.NoError(t, err)
		require.Equal(t, a, q*b+r, "a/b*b + a%%b must equal a for %d,%d", a, b)
	}
}

func TestModuloRoundsTowardsNegativeInfinity(t *testing.T) {
	r, err := Modulo(-7, 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), r, "modulo result must share the divisor's sign convention")

	r, err = Modulo(7, -2)
	require.NoError(t, err)
	require.Equal(t, int64(-1), r)
}

func TestModuloDivideByZero(t *testing.T) {
	_, err := Modulo(1, 0)
	require.ErrorIs(t, err, ErrDivideByZero)
}

func TestWrapAddOverflowBoundary(t *testing.T) {
	require.Equal(t, ivalue.MinInt, WrapAdd(ivalue.MaxInt, 1))
	require.Equal(t, ivalue.MaxInt, WrapSub(ivalue.MinInt, 1))
}
