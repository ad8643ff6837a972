package mulvm

import "context"

// VM is the whole of the interpreter's machine state (spec §4.F): a value
// stack, a frame stack, the running code object and program counter, and
// the active closure's captured-variable vector — generalizing the
// teacher's `first.go` VM (whose entire state was `vm.stack`/`vm.mem`) to
// the tagged-value heap of this machine.
type VM struct {
	heap    *Heap
	globals *Globals

	stack  []Value // value stack
	frames []frame // call/return frame stack

	code    Value // current code object
	pc      int
	closure Value // current closure (for closure-var/recall-closure)

	callQuota     int
	fastCallQuota int
	recurseLimit  int
	recurseDepth  int

	session *Session

	logging

	primitives *primitiveTable
	regexps    *regexpTable
	ports      *portTable
}

// frame is one saved call-site: the caller's code/pc/closure and the value
// stack depth to restore on return, plus the local-slot base for the
// callee about to run.
type frame struct {
	retCode    Value
	retPC      int
	retClosure Value
	stackBase  int // value-stack depth where the callee's locals begin
}

// New constructs a VM ready to run, applying opts over the teacher-style
// functional-options default set (options.go).
func New(opts ...Option) *VM {
	o := defaultOptions()
	o.apply(opts)

	vm := &VM{
		heap:          NewHeap(o.heapSize, o.maxHeapSize),
		globals:       NewGlobals(),
		callQuota:     o.callQuota,
		fastCallQuota: o.fastCallQuota,
		recurseLimit:  o.recurseLimit,
	}
	vm.logfn = o.logfn
	vm.heap.logfn = o.logfn
	vm.heap.StaticProFunc(vm.globals.Roots)
	vm.primitives = newPrimitiveTable()
	registerBuiltinPrimitives(vm)
	RegisterRuntime(vm)
	return vm
}

// push/pop manipulate the value stack; pop panics (as a Go bug, not a
// thrown error) on underflow. No call site checks for underflow, so
// ErrStackUnderflow is never thrown.
func (vm *VM) push(v Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *VM) top() Value { return vm.stack[len(vm.stack)-1] }

func (vm *VM) popN(n int) []Value {
	base := len(vm.stack) - n
	vs := append([]Value(nil), vm.stack[base:]...)
	vm.stack = vm.stack[:base]
	return vs
}

// local/setLocal address the current frame's locals, which live on the
// value stack starting at the top frame's stackBase.
func (vm *VM) localBase() int {
	if len(vm.frames) == 0 {
		return 0
	}
	return vm.frames[len(vm.frames)-1].stackBase
}

func (vm *VM) local(i int) Value       { return vm.stack[vm.localBase()+i] }
func (vm *VM) setLocal(i int, v Value) { vm.stack[vm.localBase()+i] = v }

// gc is passed to Heap.Alloc call sites throughout the interpreter: a
// moving collector must trace every slot that can hold a live reference
// (spec §4.F "All stacks are registered as roots", §9 "Precise roots"), so
// it brackets the collection with a dynamic-root scope covering the value
// stack, every saved frame's return code/closure, and the running
// code/closure pair, then pops that scope immediately after — mirroring
// the GCPro/UnGCPro bracket (mulvm.go's GCPro/UnGCPro, grounded on
// mudlle's stack-discipline protection macros) rather than leaving any of
// it statically registered between collections.
func (vm *VM) gc() error {
	scope := vm.rootScope()
	defer scope.Close()
	return vm.heap.Collect()
}

// rootScope gathers pointers into every VM-owned slot that can hold a live
// Value across this collection: the value stack (vm.stack backs locals,
// arguments, and in-flight intermediates), each saved frame's return
// code/closure, and the currently running code/closure pair (not
// otherwise reachable from vm.stack when between frames).
func (vm *VM) rootScope() *RootScope {
	refs := make([]*Value, 0, len(vm.stack)+2*len(vm.frames)+2)
	for i := range vm.stack {
		refs = append(refs, &vm.stack[i])
	}
	for i := range vm.frames {
		refs = append(refs, &vm.frames[i].retCode, &vm.frames[i].retClosure)
	}
	refs = append(refs, &vm.code, &vm.closure)
	return vm.heap.EnterRoots(refs...)
}

// Run calls closure with args in a fresh frame starting at pc 0, the same
// as Call, honoring ctx cancellation at loop checkpoints (spec §5 "User
// interrupts").
func (vm *VM) Run(ctx context.Context, closure Value, args []Value) (Value, error) {
	return vm.call(ctx, closure, args)
}
