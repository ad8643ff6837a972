package mulvm

import (
	"fmt"
	"strconv"
	"strings"
)

// Assemble compiles a small textual instruction language directly into a
// code object, standing in for the bespoke surface-syntax front-end this
// spec declares out of scope: tests and cmd/mulc build code objects by
// naming opcodes, the same line-scanner-over-whitespace-tokens style
// db47h-ngaro's asm.go uses for its own bytecode assembler, adapted to
// this machine's real opcode table (opcodes.go) instead of Ngaro's.
//
// Grammar, one instruction or label per logical token run (newlines are
// just whitespace): a `:name` token defines a label at the current
// address; a bare mnemonic (e.g. "return", "varargs") takes no operand; a
// mnemonic followed by a decimal integer supplies a fixed-width immediate;
// a branch-family mnemonic (branch/branch_z/branch_nz/loop, always
// assembled in their wide 2-immediate-byte form for simplicity) takes a
// `@name` operand naming its target label, resolved in a first pass before
// any bytes are emitted so forward and backward references both work.
// `.local N`/`.stack N` set the code header's declared maxLocals/maxStack
// directly (normally the Emitter tracks these itself, but a hand-assembled
// test program has no Emitter-driven compile front-end to do so).
func Assemble(h *Heap, src string, consts []Value, gc func() error) (Value, error) {
	toks := tokenize(src)

	maxLocals, maxStack := 0, 0
	labels := map[string]int{}
	addr := 0
	for i := 0; i < len(toks); {
		tok := toks[i]
		switch {
		case strings.HasPrefix(tok, ":"):
			labels[tok[1:]] = addr
			i++
		case tok == ".local":
			n, _ := strconv.Atoi(toks[i+1])
			maxLocals = n
			i += 2
		case tok == ".stack":
			n, _ := strconv.Atoi(toks[i+1])
			maxStack = n
			i += 2
		default:
			size, consumed, err := instrSize(tok, toks[i+1:])
			if err != nil {
				return Null, err
			}
			addr += size
			i += 1 + consumed
		}
	}

	var buf []byte
	for i := 0; i < len(toks); {
		tok := toks[i]
		switch {
		case strings.HasPrefix(tok, ":"), tok == ".local", tok == ".stack":
			if tok == ".local" || tok == ".stack" {
				i += 2
			} else {
				i++
			}
			continue
		}
		op, isBranch, hasImm := lookupMnemonic(tok)
		if op == opInvalid {
			return Null, fmt.Errorf("mulvm: assemble: unknown mnemonic %q", tok)
		}
		buf = append(buf, byte(op))
		i++
		switch {
		case isBranch:
			target, ok := labels[strings.TrimPrefix(toks[i], "@")]
			if !ok {
				return Null, fmt.Errorf("mulvm: assemble: undefined label %q", toks[i])
			}
			site := len(buf)
			off := int16(target - (site + 2))
			buf = append(buf, byte(off>>8), byte(off))
			i++
		case hasImm:
			n, err := strconv.Atoi(toks[i])
			if err != nil {
				return Null, fmt.Errorf("mulvm: assemble: bad immediate %q: %w", toks[i], err)
			}
			buf = appendImm(buf, op, n)
			i++
		}
	}

	return NewCodeObject(h, buf, maxLocals, maxStack, consts, gc)
}

func tokenize(src string) []string {
	return strings.Fields(src)
}

// instrSize computes the byte size of one instruction (opcode plus
// immediate) without emitting it, for the label address pre-pass.
func instrSize(tok string, rest []string) (size, consumed int, err error) {
	op, isBranch, hasImm := lookupMnemonic(tok)
	if op == opInvalid {
		return 0, 0, fmt.Errorf("mulvm: assemble: unknown mnemonic %q", tok)
	}
	switch {
	case isBranch:
		return 3, 1, nil
	case hasImm:
		return 1 + immWidth(op), 1, nil
	default:
		return 1, 0, nil
	}
}

func immWidth(op Op) int {
	switch op {
	case OpRecallLocal2, OpRecallClosure2, OpRecallGlobal2,
		OpAssignLocal2, OpAssignClosure2, OpAssignGlobal2,
		OpClosureVarLocal2, OpClosureVarClosure2, OpClosureVarGlobal2,
		OpConstant2, OpInteger2, OpClosureCode2, OpExecuteGlobal2:
		return 2
	default:
		return 1
	}
}

func appendImm(buf []byte, op Op, n int) []byte {
	if immWidth(op) == 2 {
		return append(buf, byte(uint16(n)>>8), byte(uint16(n)))
	}
	return append(buf, byte(n))
}

// lookupMnemonic maps an assembler token to its opcode, and whether it
// belongs to the branch family (operand is a @label) or takes a plain
// numeric immediate.
func lookupMnemonic(tok string) (op Op, isBranch, hasImm bool) {
	switch tok {
	case "recall-local1":
		return OpRecallLocal1, false, true
	case "recall-local2":
		return OpRecallLocal2, false, true
	case "recall-closure1":
		return OpRecallClosure1, false, true
	case "recall-closure2":
		return OpRecallClosure2, false, true
	case "recall-global1":
		return OpRecallGlobal1, false, true
	case "recall-global2":
		return OpRecallGlobal2, false, true
	case "assign-local1":
		return OpAssignLocal1, false, true
	case "assign-local2":
		return OpAssignLocal2, false, true
	case "assign-closure1":
		return OpAssignClosure1, false, true
	case "assign-closure2":
		return OpAssignClosure2, false, true
	case "assign-global1":
		return OpAssignGlobal1, false, true
	case "assign-global2":
		return OpAssignGlobal2, false, true
	case "closure-var-local1":
		return OpClosureVarLocal1, false, true
	case "closure-var-local2":
		return OpClosureVarLocal2, false, true
	case "closure-var-closure1":
		return OpClosureVarClosure1, false, true
	case "closure-var-closure2":
		return OpClosureVarClosure2, false, true
	case "closure-var-global1":
		return OpClosureVarGlobal1, false, true
	case "closure-var-global2":
		return OpClosureVarGlobal2, false, true
	case "constant1":
		return OpConstant1, false, true
	case "constant2":
		return OpConstant2, false, true
	case "integer1":
		return OpInteger1, false, true
	case "integer2":
		return OpInteger2, false, true
	case "closure":
		return OpClosure, false, true
	case "closure-code1":
		return OpClosureCode1, false, true
	case "closure-code2":
		return OpClosureCode2, false, true
	case "execute":
		return OpExecute, false, true
	case "execute-primitive":
		return OpExecutePrimitive, false, true
	case "execute-secure":
		return OpExecuteSecure, false, true
	case "execute-varargs":
		return OpExecuteVarargs, false, true
	case "execute-global1":
		return OpExecuteGlobal1, false, true
	case "execute-global2":
		return OpExecuteGlobal2, false, true
	case "argcheck":
		return OpArgcheck, false, true
	case "varargs":
		return OpVarargs, false, false
	case "discard":
		return OpDiscard, false, false
	case "pop_n":
		return OpPopN, false, true
	case "exit_n":
		return OpExitN, false, true
	case "branch1", "branch2":
		return OpBranch2, true, false
	case "branch_z1", "branch_z2":
		return OpBranchZ2, true, false
	case "branch_nz1", "branch_nz2":
		return OpBranchNZ2, true, false
	case "loop1", "loop2":
		return OpLoop2, true, false
	case "clear_local":
		return OpClearLocal, false, true
	case "typecheck":
		return OpTypecheck, false, true
	case "return":
		return OpReturn, false, false
	case "define":
		return OpDefine, false, false
	default:
		if o, ok := builtinOps[tok]; ok {
			return o, false, false
		}
		return opInvalid, false, false
	}
}
