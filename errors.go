package mulvm

import "fmt"

// ErrorCode is one of the closed set of runtime error values (spec §6
// "Error codes", stable ordering for embedding APIs).
type ErrorCode byte

const (
	ErrBadFunction ErrorCode = iota
	ErrStackUnderflow
	ErrBadType
	ErrDivideByZero
	ErrBadIndex
	ErrBadValue
	ErrVariableReadOnly
	ErrLoop
	ErrRecurse
	ErrWrongParameters
	ErrSecurityViolation
	ErrValueReadOnly
	ErrUserInterrupt
	ErrNoMatch
	ErrCompile
	errCodeCount
)

var errorNames = [errCodeCount]string{
	ErrBadFunction:       "bad_function",
	ErrStackUnderflow:    "stack_underflow",
	ErrBadType:           "bad_type",
	ErrDivideByZero:      "divide_by_zero",
	ErrBadIndex:          "bad_index",
	ErrBadValue:          "bad_value",
	ErrVariableReadOnly:  "variable_read_only",
	ErrLoop:              "loop",
	ErrRecurse:           "recurse",
	ErrWrongParameters:   "wrong_parameters",
	ErrSecurityViolation: "security_violation",
	ErrValueReadOnly:     "value_read_only",
	ErrUserInterrupt:     "user_interrupt",
	ErrNoMatch:           "no_match",
	ErrCompile:           "compile",
}

func (c ErrorCode) String() string {
	if int(c) < len(errorNames) && errorNames[c] != "" {
		return errorNames[c]
	}
	return fmt.Sprintf("error(%d)", byte(c))
}

// fatal reports whether c is a session-fatal error that a catch_error
// handler must observe re-thrown rather than swallow (spec §7 policy):
// loop and recurse are the only two.
func (c ErrorCode) fatal() bool {
	return c == ErrLoop || c == ErrRecurse
}

// runtimeError wraps a thrown error code plus the call trace captured at
// throw time (spec §4.G "On any runtime error, the interpreter snapshots a
// call trace").
type runtimeError struct {
	Code  ErrorCode
	Trace []CallFrame
}

func (e *runtimeError) Error() string {
	return fmt.Sprintf("mulvm: %s", e.Code)
}

// CallFrame is one entry of a captured call trace: the code object running
// and the instruction offset within it at the moment of the throw (spec
// §4.G).
type CallFrame struct {
	Code   Value
	Offset int
}

// thrownError is the panic sentinel used for non-local exit from
// vm.throw up to the nearest session or catch_error boundary, mirroring
// the teacher's internal/panicerr distinction between an expected sentinel
// and a genuine panic that must keep propagating (isolate.go).
type thrownError struct {
	err *runtimeError
}
