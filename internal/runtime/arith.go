// Package runtime holds the pure, VM-agnostic halves of the domain
// primitives: integer arithmetic (this file) and ASCII character
// classification (string.go). Like the teacher's internal/* support
// packages it is wired in by the top-level package rather than importing
// it back (avoiding an import cycle); the primitive wrappers and their
// registration live in mulvm.RegisterRuntime (runtime_register.go).
package runtime

import "github.com/local/mulvm/internal/runtime/ivalue"

// Divide implements `/` (original_source/runtime/arith.c code_divide):
// truncating division, divide_by_zero on a zero divisor.
func Divide(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a / b, nil
}

// Remainder implements `%`: truncated-towards-zero remainder, satisfying
// (a/b)*b + a%b = a.
func Remainder(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a % b, nil
}

// Modulo implements `modulo`: remainder rounding towards negative
// infinity, satisfying floor(a/b)*b + modulo(a,b) = a
// (original_source/runtime/arith.c code_modulo).
func Modulo(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	r := a % b
	if r != 0 && (a^b) < 0 {
		r += b
	}
	return r, nil
}

// ErrDivideByZero is returned by Divide/Remainder/Modulo on a zero
// divisor; the mulvm-level primitive wrapper (runtime_register.go)
// translates it to ErrDivideByZero via vm.throw.
var ErrDivideByZero = divideByZeroError{}

type divideByZeroError struct{}

func (divideByZeroError) Error() string { return "mulvm/runtime: divide by zero" }

// WrapAdd/WrapSub apply the tagged-integer width wraparound law (spec §8
// "Arithmetic on MAXINT + 1 yields MININT"): re-exported from ivalue so
// callers needn't import both packages for one constant pair.
func WrapAdd(a, b int64) int64 { return ivalue.Wrap(a + b) }
func WrapSub(a, b int64) int64 { return ivalue.Wrap(a - b) }

// Negate/Abs honor the boundary laws negate(MININT)==MININT,
// abs(MININT)==MININT (spec §8 "Boundaries").
func Negate(n int64) int64 {
	if n == ivalue.MinInt {
		return ivalue.MinInt
	}
	return -n
}

func Abs(n int64) int64 {
	if n == ivalue.MinInt {
		return ivalue.MinInt
	}
	if n < 0 {
		return -n
	}
	return n
}
