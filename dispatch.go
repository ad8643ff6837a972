package mulvm

import "context"

// run is the dispatch loop: fetch opcode, decode its fixed-length
// immediate, execute, repeat, until a `return` opcode or a thrown error
// unwinds past this frame (spec §4.F). It is the direct descendant of the
// teacher's step()/vmCodeTable dispatch (internals.go): fetch, increment
// pc, decode immediates, execute, with the same optional logf trace line
// kept as the VM's disassembly-level trace mode (options.go's WithLogf).
func (vm *VM) run(ctx context.Context) (result Value, err error) {
	code := CodeBytecode(vm.heap, vm.code)

	for {
		op := Op(code[vm.pc])
		start := vm.pc
		vm.pc++
		vm.tickQuota()

		if vm.logfn != nil {
			vm.logf("TRACE", "pc=%d op=%s stack=%d", start, op, len(vm.stack))
		}

		switch {
		case op >= OpRecallLocal1 && op <= OpRecallGlobal2:
			vm.execRecall(op, code)
		case op >= OpAssignLocal1 && op <= OpAssignGlobal2:
			vm.execAssign(op, code)
		case op >= OpClosureVarLocal1 && op <= OpClosureVarGlobal2:
			vm.execClosureVar(op, code)
		case op == OpConstant1:
			vm.push(CodeConstant(vm.heap, vm.code, int(vm.u8(code))))
		case op == OpConstant2:
			vm.push(CodeConstant(vm.heap, vm.code, int(vm.u16(code))))
		case op == OpInteger1:
			vm.push(MakeInt(int64(vm.i8(code))))
		case op == OpInteger2:
			vm.push(MakeInt(int64(vm.i16(code))))
		case op == OpClosure:
			n := int(vm.u8(code))
			vm.execBuildClosure(n)
		case op == OpClosureCode1:
			vm.push(CodeConstant(vm.heap, vm.code, int(vm.u8(code))))
		case op == OpClosureCode2:
			vm.push(CodeConstant(vm.heap, vm.code, int(vm.u16(code))))
		case op == OpExecute:
			k := int(vm.u8(code))
			args := vm.popN(k)
			callee := vm.pop()
			v, cerr := vm.callValue(ctx, callee, args)
			if cerr != nil {
				return Null, cerr
			}
			vm.push(v)
		case op == OpExecutePrimitive, op == OpExecuteSecure, op == OpExecuteVarargs:
			k := int(vm.u8(code))
			args := vm.popN(k)
			callee := vm.pop()
			v, cerr := vm.callValue(ctx, callee, args)
			if cerr != nil {
				return Null, cerr
			}
			vm.push(v)
		case op == OpExecuteGlobal1:
			idx := int(vm.u8(code))
			vm.execGlobalCall(ctx, idx)
		case op == OpExecuteGlobal2:
			idx := int(vm.u16(code))
			vm.execGlobalCall(ctx, idx)
		case op == OpArgcheck:
			k := int(vm.u8(code))
			vm.argcheck(len(vm.stack)-vm.localBase(), k)
		case op == OpVarargs:
			vm.execVarargs()
		case op == OpDiscard:
			vm.pop()
		case op == OpPopN:
			n := int(vm.u8(code))
			top := vm.pop()
			vm.stack = vm.stack[:len(vm.stack)-n]
			vm.push(top)
		case op == OpExitN:
			n := int(vm.u8(code))
			top := vm.pop()
			vm.stack = vm.stack[:len(vm.stack)-n]
			return top, nil
		case op == OpBranch1:
			off := int(vm.i8(code))
			vm.pc = start + 2 + off
		case op == OpBranch2:
			off := int(vm.i16(code))
			vm.pc = start + 3 + off
		case op == OpBranchZ1:
			off := int(vm.i8(code))
			if !IsTrue(vm.pop()) {
				vm.pc = start + 2 + off
			}
			vm.checkInterrupt(ctx)
		case op == OpBranchZ2:
			off := int(vm.i16(code))
			if !IsTrue(vm.pop()) {
				vm.pc = start + 3 + off
			}
			vm.checkInterrupt(ctx)
		case op == OpBranchNZ1:
			off := int(vm.i8(code))
			if IsTrue(vm.pop()) {
				vm.pc = start + 2 + off
			}
			vm.checkInterrupt(ctx)
		case op == OpBranchNZ2:
			off := int(vm.i16(code))
			if IsTrue(vm.pop()) {
				vm.pc = start + 3 + off
			}
			vm.checkInterrupt(ctx)
		case op == OpLoop1:
			off := int(vm.i8(code))
			vm.pc = start + 2 + off
			vm.checkInterrupt(ctx)
		case op == OpLoop2:
			off := int(vm.i16(code))
			vm.pc = start + 3 + off
			vm.checkInterrupt(ctx)
		case op == OpClearLocal:
			i := int(vm.u8(code))
			vm.setLocal(i, Null)
		case op == OpTypecheck:
			tag := Tag(vm.u8(code))
			got, ok := TypeOf(vm.top(), vm.heap)
			if !ok || got != tag {
				vm.throw(ErrBadType)
			}
		case op >= OpBuiltinEq && op <= OpBuiltinNot:
			vm.execBuiltin(ctx, op)
		case op == OpReturn:
			return vm.pop(), nil
		case op == OpDefine:
			vm.execDefine()
		default:
			vm.throw(ErrBadFunction)
		}
	}
}

// checkInterrupt observes the asynchronously-set user-interrupt channel at
// loop checkpoints (spec §5 "User interrupts are checked at loop-branch
// opcodes").
func (vm *VM) checkInterrupt(ctx context.Context) {
	select {
	case <-ctx.Done():
		vm.throw(ErrUserInterrupt)
	default:
	}
}

// --- immediate decoding: b=signed byte, B=unsigned byte, w=signed word,
// W=unsigned word, big-endian (spec §6).

func (vm *VM) u8(code []byte) byte {
	b := code[vm.pc]
	vm.pc++
	return b
}

func (vm *VM) i8(code []byte) int8 { return int8(vm.u8(code)) }

func (vm *VM) u16(code []byte) uint16 {
	v := uint16(code[vm.pc])<<8 | uint16(code[vm.pc+1])
	vm.pc += 2
	return v
}

func (vm *VM) i16(code []byte) int16 { return int16(vm.u16(code)) }
