package mulvm

import (
	"fmt"
	"io"
)

// sessionState is the state machine spec §4.G names: idle -> running ->
// (returning | throwing).
type sessionState byte

const (
	sessionIdle sessionState = iota
	sessionRunning
	sessionReturning
	sessionThrowing
)

// handler is one installed catch_error frame: the value-stack and
// dynamic-root depths to restore on throw, and whether the handler
// suppresses the error (returns the code as a value) or re-raises it after
// unwinding (spec §4.G "catch_error(thunk, suppress?)").
type handler struct {
	stackDepth int
	frameDepth int
	rootDepth  int
	suppress   bool
}

// Session is a dynamically-scoped session_start/session_end bracket (spec
// §4.G), generalizing the teacher's isolate()/internal/panicerr non-local-
// exit pattern (isolate.go) into the spec's full state machine: it snapshots
// a security floor, the three standard ports, the dynamic-root stack depth,
// and a handler stack for catch_error.
type Session struct {
	vm *VM

	state sessionState

	securityLevel int
	in            io.Reader
	out           io.Writer
	errOut        io.Writer

	rootDepth int
	handlers  []handler
}

// SessionOption configures a Session at SessionStart.
type SessionOption func(*Session)

// WithSessionSecurityLevel overrides the VM's default security floor for
// just this session.
func WithSessionSecurityLevel(n int) SessionOption {
	return func(s *Session) { s.securityLevel = n }
}

// SessionStart opens a new session bracket on vm (spec §4.G): it records
// the current dynamic-root stack height so SessionEnd can truncate back to
// it on every exit path, panic or not — the same invariant the teacher's
// isolate() restores via a deferred recover regardless of how its goroutine
// exits.
func SessionStart(vm *VM, opts ...SessionOption) *Session {
	s := &Session{
		vm:            vm,
		state:         sessionRunning,
		securityLevel: 0,
		out:           io.Discard,
		errOut:        io.Discard,
		rootDepth:     vm.heap.RootDepth(),
	}
	for _, opt := range opts {
		opt(s)
	}
	vm.session = s
	return s
}

// End closes the session, truncating the dynamic-root stack back to the
// depth recorded at SessionStart (spec §5 "Resource discipline").
func (s *Session) End() {
	s.vm.heap.TruncateRoots(s.rootDepth)
	s.state = sessionIdle
	s.vm.session = nil
}

// throw raises code as a thrown error (spec §7): it captures the current
// call trace, then performs a non-local exit via panic(thrownError{...})
// up to the nearest CatchError frame (or, if none catches it, up to
// whatever recovers at the Session boundary — see CatchError and
// mulvm.go's Interpret).
func (vm *VM) throw(code ErrorCode) {
	err := &runtimeError{Code: code, Trace: vm.captureCallTrace()}
	panic(thrownError{err})
}

// CatchError installs a handler frame around thunk (spec §4.G
// "catch_error(thunk, suppress?)"): on a thrown, non-fatal error, it
// recovers and returns the error code as a value instead of letting the
// panic continue to unwind; loop and recurse errors are fatal and are
// re-thrown past this frame regardless of suppress, per spec §7 policy.
func (s *Session) CatchError(thunk func() Value, suppress bool) (result Value, code ErrorCode, caught bool) {
	h := handler{
		stackDepth: len(s.vm.stack),
		frameDepth: len(s.vm.frames),
		rootDepth:  s.vm.heap.RootDepth(),
		suppress:   suppress,
	}
	savedCode, savedPC, savedClosure := s.vm.code, s.vm.pc, s.vm.closure
	s.handlers = append(s.handlers, h)
	defer func() { s.handlers = s.handlers[:len(s.handlers)-1] }()

	var te thrownError
	func() {
		defer func() {
			if r := recover(); r != nil {
				var ok bool
				if te, ok = r.(thrownError); ok {
					return
				}
				panic(r) // not our sentinel: a genuine bug, keep unwinding
			}
		}()
		result = thunk()
	}()

	if te.err == nil {
		return result, 0, false
	}
	if te.err.Code.fatal() {
		panic(te) // error_loop/error_recurse: not catchable, re-throw
	}

	s.vm.stack = s.vm.stack[:h.stackDepth]
	s.vm.frames = s.vm.frames[:h.frameDepth]
	s.vm.code, s.vm.pc, s.vm.closure = savedCode, savedPC, savedClosure
	s.vm.heap.TruncateRoots(h.rootDepth)
	return MakeInt(int64(te.err.Code)), te.err.Code, true
}

// reportUncaught writes the error code and rendered call trace to the
// session's error port (spec §7 "User-visible behaviour").
func (s *Session) reportUncaught(err *runtimeError) {
	fmt.Fprintf(s.errOut, "error: %s\n", err.Code)
	for _, f := range err.Trace {
		fmt.Fprintf(s.errOut, "  at pc=%d\n", f.Offset)
	}
}
