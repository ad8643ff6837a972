package mulvm

// Value is a tagged, word-sized cell: either an immediate small integer or a
// reference to a heap object. The low-order bit discriminates: set means the
// remaining bits are a signed tagged integer; clear means the word is either
// zero (the canonical null) or a heap address.
//
// Tagged integers are one bit narrower than the host word, matching spec
// §4.A: intval(v) is an arithmetic right shift by 1, makeint(n) is (n<<1)|1.
type Value uint64

const (
	// IntBits is the width of a tagged integer.
	IntBits = 63

	// MaxInt and MinInt bound the tagged integer range.
	MaxInt = int64(1)<<(IntBits-1) - 1
	MinInt = -(int64(1) << (IntBits - 1))
)

// Null is the canonical empty/null value: the zero word, used both as the
// empty list and as the initial value of a fresh global or variable cell.
const Null Value = 0

// False and True are the canonical tagged-integer booleans; any non-zero
// tagged integer is also considered true.
var (
	False = MakeInt(0)
	True  = MakeInt(1)
)

// IsInt reports whether v is an immediate tagged integer.
func IsInt(v Value) bool { return v&1 == 1 }

// IsNull reports whether v is the null value.
func IsNull(v Value) bool { return v == Null }

// IsTrue applies mudlle's boolean convention: zero is false, everything else
// (including non-zero heap references) is true.
func IsTrue(v Value) bool { return v != False }

// MakeInt encodes a host integer as a tagged integer, wrapping modulo the
// tagged-integer width exactly like two's-complement machine arithmetic
// would: MaxInt+1 wraps to MinInt (spec §8 boundary law).
func MakeInt(n int64) Value {
	return Value(uint64(n)<<1) | 1
}

// IntVal decodes a tagged integer by an arithmetic right shift, recovering
// the signed value. Calling IntVal on a non-integer Value is a programming
// error; callers must guard with IsInt (or rely on a prior typecheck opcode).
func IntVal(v Value) int64 {
	return int64(v) >> 1
}

// Addr returns the heap address encoded by v, valid only when v is neither
// null nor an integer.
func Addr(v Value) uint32 {
	return uint32(v >> 1)
}

// ValueFromAddr encodes a heap byte offset as a reference Value. Offsets are
// stored shifted left one bit so the low discriminator bit reads as clear.
func ValueFromAddr(addr uint32) Value {
	return Value(addr) << 1
}

// addWrap and subWrap implement wraparound tagged-integer arithmetic, the
// same law as runtime.WrapAdd/WrapSub (which the builtin_+ / builtin_- fast
// paths and the runtime arith primitives call): wrapping happens at the
// tagged width, not at int64's.
func addWrap(a, b int64) int64 { return wrap(a + b) }
func subWrap(a, b int64) int64 { return wrap(a - b) }

func wrap(n int64) int64 {
	n &= 1<<IntBits - 1
	if n > MaxInt {
		n |= -1 << IntBits
	}
	return n
}

// NegateInt implements the spec's boundary law: negate(MinInt) == MinInt.
func NegateInt(n int64) int64 { return wrap(-n) }

// AbsInt implements the spec's boundary law: abs(MinInt) == MinInt.
func AbsInt(n int64) int64 {
	if n < 0 {
		return NegateInt(n)
	}
	return n
}
