package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyAlphaDigitSpace(t *testing.T) {
	require.True(t, IsAlpha('a'))
	require.True(t, IsAlpha('Z'))
	require.False(t, IsAlpha('3'))

	require.True(t, IsUpper('Q'))
	require.False(t, IsUpper('q'))

	require.True(t, IsLower('q'))
	require.False(t, IsLower('Q'))

	require.True(t, IsDigit('5'))
	require.False(t, IsDigit('x'))

	require.True(t, IsXDigit('f'))
	require.True(t, IsXDigit('F'))
	require.True(t, IsXDigit('9'))
	require.False(t, IsXDigit('g'))

	require.True(t, IsSpace(' '))
	require.True(t, IsSpace('\t'))
	require.False(t, IsSpace('x'))

	require.True(t, IsPrint('~'))
	require.False(t, IsPrint('\x01'))
	require.False(t, IsPrint(0x7f))
}

func TestUpcaseDowncaseOnlyAffectLetters(t *testing.T) {
	require.Equal(t, byte('A'), Upcase('a'))
	require.Equal(t, byte('A'), Upcase('A'))
	require.Equal(t, byte('5'), Upcase('5'))

	require.Equal(t, byte('a'), Downcase('A'))
	require.Equal(t, byte('a'), Downcase('a'))
	require.Equal(t, byte('5'), Downcase('5'))
}
