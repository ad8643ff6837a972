package mulvm

import (
	"context"
	"fmt"

	"github.com/local/mulvm/internal/panicerr"
)

// LoadFile compiles source with Compile and runs the result through
// Interpret at the given security level, returning its value (spec §6
// "load_file(path, nicename, seclevel, reload)"). Compile has no
// source-level front end and always returns errHaltUnimplemented, so
// LoadFile returns that error without running anything. reload is passed
// on to Interpret, which does not use it.
func (vm *VM) LoadFile(ctx context.Context, source []byte, nicename string, seclevel int, reload bool) (Value, error) {
	closure, err := Compile(vm, source, nicename)
	if err != nil {
		return Null, err
	}
	return vm.Interpret(ctx, closure, seclevel, reload)
}

// Interpret runs a compiled top-level closure under a fresh session at
// seclevel (spec §6 "interpret(&out, seclevel, reload)"): any uncaught
// error is reported to the session's error port and returned as a Go
// error rather than left to panic across the embedding boundary.
func (vm *VM) Interpret(ctx context.Context, closure Value, seclevel int, reload bool) (result Value, err error) {
	s := SessionStart(vm, WithSessionSecurityLevel(seclevel))
	defer s.End()

	var thrown *runtimeError
	runErr := panicerr.Recover("mulvm.Interpret", func() error {
		defer func() {
			if r := recover(); r != nil {
				te, ok := r.(thrownError)
				if !ok {
					panic(r) // genuine bug or fatal ErrHeapExhausted: keep unwinding
				}
				thrown = te.err
			}
		}()
		result, err = vm.Call(ctx, closure, nil)
		return err
	})

	if thrown != nil {
		s.reportUncaught(thrown)
		return Null, thrown
	}
	return result, runErr
}

// Call invokes closure with args directly, without opening a new session
// (spec §6 "call(closure, argv)") — for use inside an already-running
// session, e.g. a primitive that calls back into user code.
func (vm *VM) Call(ctx context.Context, closure Value, args []Value) (Value, error) {
	return vm.call(ctx, closure, args)
}

// Staticpro registers root as a permanent GC root for the VM's lifetime
// (spec §6 "staticpro(&root)").
func (vm *VM) Staticpro(root *Value) { vm.heap.StaticPro(root) }

// GCPro/UnGCPro bracket a dynamically-scoped root, mirroring mudlle's
// stack-discipline GC protection macros (spec §5 "Resource discipline"):
// every GCPro must be matched by exactly one UnGCPro, in LIFO order.
func (vm *VM) GCPro(root *Value) *RootScope { return vm.heap.EnterRoots(root) }

func (vm *VM) UnGCPro(scope *RootScope) { scope.Close() }

// SessionStart/SessionEnd expose the session bracket at the embedding
// boundary (spec §6).
func (vm *VM) SessionStart(opts ...SessionOption) *Session { return SessionStart(vm, opts...) }
func (vm *VM) SessionEnd(s *Session)                       { s.End() }

// Heap exposes the underlying heap for embedders that need direct
// save/load or disassembly access (GCSave/GCLoad/Disassemble all take a
// *Heap explicitly, following the teacher's preference for small,
// independently testable components over one monolithic VM God-object).
func (vm *VM) Heap() *Heap { return vm.heap }

// Globals exposes the global environment for embedders that need to poke
// or inspect a binding directly (e.g. a REPL front-end).
func (vm *VM) Globals() *Globals { return vm.globals }

// errHaltUnimplemented is returned by Compile until a real front-end lands
// in this tree (spec's own Non-goals exclude a bespoke surface syntax as
// out of scope; cmd/mulc and the tests instead drive the assembler in
// assemble.go directly). Kept as a named error rather than a bare string so
// callers can match on it.
var errHaltUnimplemented = fmt.Errorf("mulvm: no source-level compiler wired; use Assemble")

// Compile is a hook point for a future surface-syntax front-end; this
// implementation's compile path is the textual assembler (assemble.go),
// reached directly by tests and cmd/mulc rather than through LoadFile.
func Compile(vm *VM, source []byte, nicename string) (Value, error) {
	return Null, errHaltUnimplemented
}
