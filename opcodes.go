package mulvm

// Op is one bytecode instruction's opcode byte (spec §6 "Opcode table").
// The three reference-class families (recall/assign/closure-var) are laid
// out as contiguous triples of narrow/wide pairs so the emitter can compute
// `base+2*class` (plus one for the wide form) instead of a switch, the same trick the teacher's `internals.go` uses for its own
// opcode family (`vmCodeTable` indexed by a small enum).
type Op byte

// opInvalid is returned by lookupMnemonic for an unrecognized token; chosen
// well past the real opcode range (opcodes.go's own enum tops out under 100)
// so it can never collide with a real Op value.
const opInvalid Op = 255

// Reference class, shared by recall/assign/closure-var.
type RefClass byte

const (
	ClassLocal RefClass = iota
	ClassClosure
	ClassGlobal
)

const (
	OpRecallLocal1 Op = iota
	OpRecallLocal2
	OpRecallClosure1
	OpRecallClosure2
	OpRecallGlobal1
	OpRecallGlobal2

	OpAssignLocal1
	OpAssignLocal2
	OpAssignClosure1
	OpAssignClosure2
	OpAssignGlobal1
	OpAssignGlobal2

	OpClosureVarLocal1
	OpClosureVarLocal2
	OpClosureVarClosure1
	OpClosureVarClosure2
	OpClosureVarGlobal1
	OpClosureVarGlobal2

	OpConstant1
	OpConstant2
	OpInteger1
	OpInteger2

	OpClosure
	OpClosureCode1
	OpClosureCode2

	OpExecute
	OpExecutePrimitive
	OpExecuteSecure
	OpExecuteVarargs
	OpExecuteGlobal1
	OpExecuteGlobal2

	OpArgcheck
	OpVarargs

	OpDiscard
	OpPopN
	OpExitN

	OpBranch1
	OpBranch2
	OpBranchZ1
	OpBranchZ2
	OpBranchNZ1
	OpBranchNZ2
	OpLoop1
	OpLoop2

	OpClearLocal

	OpTypecheck

	OpBuiltinEq
	OpBuiltinNeq
	OpBuiltinLt
	OpBuiltinLe
	OpBuiltinGt
	OpBuiltinGe
	OpBuiltinRef
	OpBuiltinSet
	OpBuiltinAdd
	OpBuiltinSub
	OpBuiltinBitAnd
	OpBuiltinBitOr
	OpBuiltinNot

	OpReturn
	OpDefine

	opCount
)

// opNames gives each opcode a disassembler-facing mnemonic (spec §4.H
// "Disassembly formats each instruction by opcode family").
var opNames = [opCount]string{
	OpRecallLocal1: "recall-local1", OpRecallLocal2: "recall-local2",
	OpRecallClosure1: "recall-closure1", OpRecallClosure2: "recall-closure2",
	OpRecallGlobal1: "recall-global1", OpRecallGlobal2: "recall-global2",

	OpAssignLocal1: "assign-local1", OpAssignLocal2: "assign-local2",
	OpAssignClosure1: "assign-closure1", OpAssignClosure2: "assign-closure2",
	OpAssignGlobal1: "assign-global1", OpAssignGlobal2: "assign-global2",

	OpClosureVarLocal1: "closure-var-local1", OpClosureVarLocal2: "closure-var-local2",
	OpClosureVarClosure1: "closure-var-closure1", OpClosureVarClosure2: "closure-var-closure2",
	OpClosureVarGlobal1: "closure-var-global1", OpClosureVarGlobal2: "closure-var-global2",

	OpConstant1: "constant1", OpConstant2: "constant2",
	OpInteger1: "integer1", OpInteger2: "integer2",

	OpClosure:      "closure",
	OpClosureCode1: "closure-code1", OpClosureCode2: "closure-code2",

	OpExecute:          "execute",
	OpExecutePrimitive: "execute-primitive",
	OpExecuteSecure:    "execute-secure",
	OpExecuteVarargs:   "execute-varargs",
	OpExecuteGlobal1:   "execute-global1", OpExecuteGlobal2: "execute-global2",

	OpArgcheck: "argcheck",
	OpVarargs:  "varargs",

	OpDiscard: "discard",
	OpPopN:    "pop_n",
	OpExitN:   "exit_n",

	OpBranch1: "branch1", OpBranch2: "branch2",
	OpBranchZ1: "branch_z1", OpBranchZ2: "branch_z2",
	OpBranchNZ1: "branch_nz1", OpBranchNZ2: "branch_nz2",
	OpLoop1: "loop1", OpLoop2: "loop2",

	OpClearLocal: "clear_local",

	OpTypecheck: "typecheck",

	OpBuiltinEq: "builtin_eq", OpBuiltinNeq: "builtin_neq",
	OpBuiltinLt: "builtin_<", OpBuiltinLe: "builtin_<=",
	OpBuiltinGt: "builtin_>", OpBuiltinGe: "builtin_>=",
	OpBuiltinRef: "builtin_ref", OpBuiltinSet: "builtin_set",
	OpBuiltinAdd: "builtin_+", OpBuiltinSub: "builtin_-",
	OpBuiltinBitAnd: "builtin_&", OpBuiltinBitOr: "builtin_|",
	OpBuiltinNot: "builtin_not",

	OpReturn: "return",
	OpDefine: "define",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "op(?)"
}

// recallOp/assignOp/closureVarOp select the 1-immediate-byte member of a
// reference-class triple; emit.go promotes to the 2-byte (wide) sibling
// when the offset does not fit in a byte.
func recallOp(c RefClass) Op     { return OpRecallLocal1 + Op(c)*2 }
func assignOp(c RefClass) Op     { return OpAssignLocal1 + Op(c)*2 }
func closureVarOp(c RefClass) Op { return OpClosureVarLocal1 + Op(c)*2 }

// wide promotes a narrow (1-byte-immediate) opcode to its wide sibling,
// which by construction sits immediately after it in the table.
func wide(op Op) Op { return op + 1 }

// builtinOps lists the inline binary/unary fast-path opcodes in the order
// spec §4.F / §6 names them, for the emitter's mnemonic->opcode table.
var builtinOps = map[string]Op{
	"eq": OpBuiltinEq, "neq": OpBuiltinNeq,
	"<": OpBuiltinLt, "<=": OpBuiltinLe,
	">": OpBuiltinGt, ">=": OpBuiltinGe,
	"ref": OpBuiltinRef, "set": OpBuiltinSet,
	"+": OpBuiltinAdd, "-": OpBuiltinSub,
	"&": OpBuiltinBitAnd, "|": OpBuiltinBitOr,
	"not": OpBuiltinNot,
}
