package mulvm

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/local/mulvm/internal/runtime"
)

// RegisterRuntime installs the domain primitive families spec §1/§12 call
// for (arithmetic round-trip laws, string/HTML escaping, regexp, JSON)
// on top of the small core set registerBuiltinPrimitives installs
// (primitive.go). Kept as a separate pass, mirroring the teacher's split
// between core VM (first.go/internals.go) and its standalone internal/*
// support packages: the arithmetic LAWS live in internal/runtime (pure Go,
// independently testable without a heap), while the primitive WRAPPERS
// that pop/push tagged Values live here, next to the heap/VM types they
// depend on.
func RegisterRuntime(vm *VM) {
	t := vm.primitives

	t.register(primitiveDef{name: "+", minArgs: 2, maxArgs: 2, fn: primAdd})
	t.register(primitiveDef{name: "-", minArgs: 2, maxArgs: 2, fn: primSub})
	t.register(primitiveDef{name: "/", minArgs: 2, maxArgs: 2, fn: primDivide})
	t.register(primitiveDef{name: "%", minArgs: 2, maxArgs: 2, fn: primRemainder})
	t.register(primitiveDef{name: "modulo", minArgs: 2, maxArgs: 2, fn: primModulo})
	t.register(primitiveDef{name: "negate", minArgs: 1, maxArgs: 1, fn: primNegate})
	t.register(primitiveDef{name: "abs", minArgs: 1, maxArgs: 1, fn: primAbs})

	t.register(primitiveDef{name: "itoa", minArgs: 1, maxArgs: 1, fn: primItoa})
	t.register(primitiveDef{name: "atoi", minArgs: 1, maxArgs: 1, fn: primAtoi})
	t.register(primitiveDef{name: "equal?", minArgs: 2, maxArgs: 2, fn: primStringEqual})
	t.register(primitiveDef{name: "ascii_to_html", minArgs: 1, maxArgs: 1, fn: primAsciiToHTML})

	t.register(primitiveDef{name: "make_regexp", minArgs: 1, maxArgs: 1, fn: primMakeRegexp})
	t.register(primitiveDef{name: "regexp_exec", minArgs: 2, maxArgs: 2, fn: primRegexpExec})

	t.register(primitiveDef{name: "json-read", minArgs: 1, maxArgs: 1, fn: primJSONRead})

	t.register(primitiveDef{name: "isalpha", minArgs: 1, maxArgs: 1, fn: primCharPred(runtime.IsAlpha)})
	t.register(primitiveDef{name: "isupper", minArgs: 1, maxArgs: 1, fn: primCharPred(runtime.IsUpper)})
	t.register(primitiveDef{name: "islower", minArgs: 1, maxArgs: 1, fn: primCharPred(runtime.IsLower)})
	t.register(primitiveDef{name: "isdigit", minArgs: 1, maxArgs: 1, fn: primCharPred(runtime.IsDigit)})
	t.register(primitiveDef{name: "isxdigit", minArgs: 1, maxArgs: 1, fn: primCharPred(runtime.IsXDigit)})
	t.register(primitiveDef{name: "isspace", minArgs: 1, maxArgs: 1, fn: primCharPred(runtime.IsSpace)})
	t.register(primitiveDef{name: "isprint", minArgs: 1, maxArgs: 1, fn: primCharPred(runtime.IsPrint)})
	t.register(primitiveDef{name: "cupper", minArgs: 1, maxArgs: 1, fn: primCharMap(runtime.Upcase)})
	t.register(primitiveDef{name: "clower", minArgs: 1, maxArgs: 1, fn: primCharMap(runtime.Downcase)})

	t.register(primitiveDef{name: "make_output_port", minArgs: 0, maxArgs: 0, fn: primMakeOutputPort})
	t.register(primitiveDef{name: "port_write", minArgs: 2, maxArgs: 2, fn: primPortWrite})
}

// primCharPred/primCharMap adapt a pure internal/runtime byte predicate or
// mapping function into a primitive operating on a TagCharacter value
// (original_source/runtime/string.c's isalpha/isupper/.../cupper/clower
// family).
func primCharPred(pred func(byte) bool) PrimitiveFunc {
	return func(vm *VM, args []Value) (Value, error) {
		tag, ok := TypeOf(args[0], vm.heap)
		if !ok || tag != TagCharacter {
			vm.throw(ErrBadType)
		}
		if pred(CharByte(vm.heap, args[0])) {
			return True, nil
		}
		return False, nil
	}
}

func primCharMap(fn func(byte) byte) PrimitiveFunc {
	return func(vm *VM, args []Value) (Value, error) {
		tag, ok := TypeOf(args[0], vm.heap)
		if !ok || tag != TagCharacter {
			vm.throw(ErrBadType)
		}
		return NewCharacter(vm.heap, fn(CharByte(vm.heap, args[0])), vm.gc)
	}
}

func primAdd(vm *VM, args []Value) (Value, error) {
	a, b := checkInts(vm, args)
	return MakeInt(runtime.WrapAdd(a, b)), nil
}

func primSub(vm *VM, args []Value) (Value, error) {
	a, b := checkInts(vm, args)
	return MakeInt(runtime.WrapSub(a, b)), nil
}

func primDivide(vm *VM, args []Value) (Value, error) {
	a, b := checkInts(vm, args)
	r, err := runtime.Divide(a, b)
	if err != nil {
		vm.throw(ErrDivideByZero)
	}
	return MakeInt(r), nil
}

func primRemainder(vm *VM, args []Value) (Value, error) {
	a, b := checkInts(vm, args)
	r, err := runtime.Remainder(a, b)
	if err != nil {
		vm.throw(ErrDivideByZero)
	}
	return MakeInt(r), nil
}

func primModulo(vm *VM, args []Value) (Value, error) {
	a, b := checkInts(vm, args)
	r, err := runtime.Modulo(a, b)
	if err != nil {
		vm.throw(ErrDivideByZero)
	}
	return MakeInt(r), nil
}

func primNegate(vm *VM, args []Value) (Value, error) {
	return MakeInt(runtime.Negate(checkInt(vm, args[0]))), nil
}

func primAbs(vm *VM, args []Value) (Value, error) {
	return MakeInt(runtime.Abs(checkInt(vm, args[0]))), nil
}

func checkInt(vm *VM, v Value) int64 {
	if !IsInt(v) {
		vm.throw(ErrBadType)
	}
	return IntVal(v)
}

func checkInts(vm *VM, args []Value) (int64, int64) {
	return checkInt(vm, args[0]), checkInt(vm, args[1])
}

// primItoa/primAtoi implement the round-trip law itoa∘atoi = id (spec §8)
// and atoi's "returns s unchanged when s does not parse"
// (original_source/runtime/string.c code_atoi/code_itoa).
func primItoa(vm *VM, args []Value) (Value, error) {
	n := checkInt(vm, args[0])
	return NewString(vm.heap, strconv.FormatInt(n, 10), vm.gc)
}

func primAtoi(vm *VM, args []Value) (Value, error) {
	tag, ok := TypeOf(args[0], vm.heap)
	if !ok || tag != TagString {
		vm.throw(ErrBadType)
	}
	s := GoString(vm.heap, args[0])
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return args[0], nil
	}
	return MakeInt(n), nil
}

// primStringEqual backs the `equal?` invariant from spec §8: two strings
// with the same bytes compare equal regardless of identity.
func primStringEqual(vm *VM, args []Value) (Value, error) {
	a, b := args[0], args[1]
	if a == b {
		return True, nil
	}
	ta, oka := TypeOf(a, vm.heap)
	tb, okb := TypeOf(b, vm.heap)
	if oka && okb && ta == TagString && tb == TagString && StringEqual(vm.heap, a, b) {
		return True, nil
	}
	return False, nil
}

// primAsciiToHTML implements the round-trip law "for strings without
// HTML-special characters, ascii_to_html(s) == s (same identity)" (spec
// §8): when nothing needs escaping, the original string object is
// returned, not a copy (original_source/runtime/string.c code_ascii_to_html
// does the same identity-preserving fast path).
func primAsciiToHTML(vm *VM, args []Value) (Value, error) {
	tag, ok := TypeOf(args[0], vm.heap)
	if !ok || tag != TagString {
		vm.throw(ErrBadType)
	}
	s := GoString(vm.heap, args[0])
	escaped, changed := escapeHTML(s)
	if !changed {
		return args[0], nil
	}
	return NewString(vm.heap, escaped, vm.gc)
}

func escapeHTML(s string) (string, bool) {
	changed := false
	var out []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			out = append(out, "&amp;"...)
			changed = true
		case '>':
			out = append(out, "&gt;"...)
			changed = true
		case '<':
			out = append(out, "&lt;"...)
			changed = true
		case '"':
			out = append(out, "&quot;"...)
			changed = true
		default:
			out = append(out, s[i])
		}
	}
	if !changed {
		return s, false
	}
	return string(out), true
}

// private object payload layout for a compiled regexp: two Value cells, the
// tagged-integer discriminator (privateKindRegexp) followed by an index into
// vm's regexp table (spec §3 "private" kind: small-int discriminator plus
// opaque payload).
const privateKindRegexp = 1

type regexpTable struct {
	res []*regexp.Regexp
}

func primMakeRegexp(vm *VM, args []Value) (Value, error) {
	tag, ok := TypeOf(args[0], vm.heap)
	if !ok || tag != TagString {
		vm.throw(ErrBadType)
	}
	pattern := GoString(vm.heap, args[0])
	re, err := regexp.Compile(pattern)
	if err != nil {
		vm.throw(ErrCompile)
	}
	vm.ensureRegexpTable()
	idx := len(vm.regexps.res)
	vm.regexps.res = append(vm.regexps.res, re)

	v, aerr := vm.heap.Alloc(TagPrivate, 16, vm.gc)
	if aerr != nil {
		return Null, aerr
	}
	vm.heap.SetCell(v, 0, MakeInt(privateKindRegexp))
	vm.heap.SetCell(v, 1, MakeInt(int64(idx)))
	return v, nil
}

func (vm *VM) ensureRegexpTable() {
	if vm.regexps == nil {
		vm.regexps = &regexpTable{}
	}
}

// primRegexpExec runs a compiled regexp (made by make_regexp) against a
// subject string, returning a vector of matched substrings or Null on no
// match (spec §8 scenario 6 "regexp scenario").
func primRegexpExec(vm *VM, args []Value) (Value, error) {
	tag, ok := TypeOf(args[0], vm.heap)
	if !ok || tag != TagPrivate || IntVal(vm.heap.Cell(args[0], 0)) != privateKindRegexp {
		vm.throw(ErrBadType)
	}
	idx := int(IntVal(vm.heap.Cell(args[0], 1)))
	re := vm.regexps.res[idx]

	subjTag, ok := TypeOf(args[1], vm.heap)
	if !ok || subjTag != TagString {
		vm.throw(ErrBadType)
	}
	subject := GoString(vm.heap, args[1])

	m := re.FindStringSubmatch(subject)
	if m == nil {
		return Null, nil
	}
	vec, err := vm.heap.Alloc(TagVector, len(m)*8, vm.gc)
	if err != nil {
		return Null, err
	}
	for i, s := range m {
		sv, serr := NewString(vm.heap, s, vm.gc)
		if serr != nil {
			return Null, serr
		}
		vm.heap.SetCell(vec, i, sv)
	}
	return vec, nil
}

// primJSONRead exercises the varargs-primitive call path end to end (spec
// §4.F) via github.com/buger/jsonparser: its one argument is a vector whose
// cell 0 is the JSON document and cell 1 the name of the top-level field
// to read (a minimal
// but dependency-backed "file operations" primitive, spec §1).
func primJSONRead(vm *VM, args []Value) (Value, error) {
	vec := args[0]
	tag, ok := TypeOf(vec, vm.heap)
	if !ok || tag != TagVector || vm.heap.CellCount(vec) < 2 {
		vm.throw(ErrWrongParameters)
	}
	docV, keyV := vm.heap.Cell(vec, 0), vm.heap.Cell(vec, 1)
	if t, ok := TypeOf(docV, vm.heap); !ok || t != TagString {
		vm.throw(ErrBadType)
	}
	if t, ok := TypeOf(keyV, vm.heap); !ok || t != TagString {
		vm.throw(ErrBadType)
	}
	doc := []byte(GoString(vm.heap, docV))
	key := GoString(vm.heap, keyV)

	val, dtype, _, err := jsonparser.Get(doc, key)
	if err != nil {
		return Null, nil
	}
	switch dtype {
	case jsonparser.String:
		return NewString(vm.heap, string(val), vm.gc)
	case jsonparser.Number:
		n, perr := strconv.ParseInt(string(val), 10, 64)
		if perr != nil {
			return NewString(vm.heap, string(val), vm.gc)
		}
		return MakeInt(n), nil
	case jsonparser.Boolean:
		if string(val) == "true" {
			return True, nil
		}
		return False, nil
	case jsonparser.Null:
		return Null, nil
	default:
		return NewString(vm.heap, fmt.Sprintf("%s", val), vm.gc)
	}
}
