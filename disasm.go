package mulvm

import (
	"fmt"
	"io"
)

// Disassemble formats one code object's instruction stream, one line per
// instruction, adapted from the teacher's vmDumper (dumper.go) address/
// value-column layout but driven by this machine's real opcode table
// rather than FIRST's flat memory cells: each instruction is rendered by
// opcode family — recall/assign/closure-var by class name, branches as a
// signed relative offset plus the resolved absolute target, builtin
// operators by mnemonic, typecheck by the tag it asserts (spec §4.H).
func Disassemble(w io.Writer, h *Heap, code Value) {
	fmt.Fprintf(w, "# code maxLocals=%d maxStack=%d consts=%d\n",
		CodeMaxLocals(h, code), CodeMaxStack(h, code), CodeConstCount(h, code))

	bc := CodeBytecode(h, code)
	pc := 0
	for pc < len(bc) {
		start := pc
		op := Op(bc[pc])
		pc++
		fmt.Fprintf(w, "  %4d  %-20s", start, op)

		switch {
		case op >= OpRecallLocal1 && op <= OpClosureVarGlobal2:
			class, idx, wide := decodeRefFamily(op, bc, &pc)
			fmt.Fprintf(w, "%s %d", refClassName(class), idx)
			_ = wide
		case op == OpConstant1:
			idx := int(bc[pc])
			pc++
			fmt.Fprintf(w, "%d  ; %s", idx, previewConst(h, code, idx))
		case op == OpConstant2:
			idx := be16(bc, &pc)
			fmt.Fprintf(w, "%d  ; %s", idx, previewConst(h, code, idx))
		case op == OpInteger1:
			n := int8(bc[pc])
			pc++
			fmt.Fprintf(w, "%d", n)
		case op == OpInteger2:
			n := int16(be16(bc, &pc))
			fmt.Fprintf(w, "%d", n)
		case op == OpClosure:
			n := bc[pc]
			pc++
			fmt.Fprintf(w, "%d", n)
		case op == OpClosureCode1:
			idx := int(bc[pc])
			pc++
			fmt.Fprintf(w, "%d", idx)
		case op == OpClosureCode2:
			idx := be16(bc, &pc)
			fmt.Fprintf(w, "%d", idx)
		case op == OpExecute, op == OpExecutePrimitive, op == OpExecuteSecure, op == OpExecuteVarargs:
			k := bc[pc]
			pc++
			fmt.Fprintf(w, "%d", k)
		case op == OpExecuteGlobal1:
			idx := int(bc[pc])
			pc++
			fmt.Fprintf(w, "%d", idx)
		case op == OpExecuteGlobal2:
			idx := be16(bc, &pc)
			fmt.Fprintf(w, "%d", idx)
		case op == OpArgcheck, op == OpPopN, op == OpExitN, op == OpClearLocal:
			n := bc[pc]
			pc++
			fmt.Fprintf(w, "%d", n)
		case op == OpBranch1, op == OpBranchZ1, op == OpBranchNZ1, op == OpLoop1:
			off := int8(bc[pc])
			pc++
			target := pc + int(off)
			fmt.Fprintf(w, "%+d -> %d", off, target)
		case op == OpBranch2, op == OpBranchZ2, op == OpBranchNZ2, op == OpLoop2:
			off := int16(be16(bc, &pc))
			target := pc + int(off)
			fmt.Fprintf(w, "%+d -> %d", off, target)
		case op == OpTypecheck:
			tag := Tag(bc[pc])
			pc++
			fmt.Fprintf(w, "%s", tag)
		}
		fmt.Fprintln(w)
	}
}

func decodeRefFamily(op Op, bc []byte, pc *int) (class RefClass, idx int, wide bool) {
	var base Op
	switch {
	case op <= OpRecallGlobal2:
		base = OpRecallLocal1
	case op <= OpAssignGlobal2:
		base = OpAssignLocal1
	default:
		base = OpClosureVarLocal1
	}
	class = refClassOf(op, base)
	wide = isWide(op, base)
	if wide {
		idx = be16(bc, pc)
	} else {
		idx = int(bc[*pc])
		*pc++
	}
	return
}

func refClassName(c RefClass) string {
	switch c {
	case ClassLocal:
		return "local"
	case ClassClosure:
		return "closure"
	default:
		return "global"
	}
}

func be16(bc []byte, pc *int) int {
	v := int(bc[*pc])<<8 | int(bc[*pc+1])
	*pc += 2
	return v
}

func previewConst(h *Heap, code Value, idx int) string {
	v := CodeConstant(h, code, idx)
	if IsInt(v) {
		return fmt.Sprintf("%d", IntVal(v))
	}
	if tag, ok := TypeOf(v, h); ok && tag == TagString {
		return fmt.Sprintf("%q", GoString(h, v))
	}
	return "..."
}
