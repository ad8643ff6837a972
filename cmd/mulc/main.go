// Command mulc loads and runs a mudlle bytecode assembly file (spec §6's
// embedding surface: interpret) against a fresh VM, in the style
// of the teacher's own command-line front end (main.go): flag-driven
// knobs, a leveled logger wrapping stderr, and an optional disassembly of
// the code object before it runs.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/local/mulvm"
	"github.com/local/mulvm/internal/fileinput"
	"github.com/local/mulvm/internal/flushio"
	"github.com/local/mulvm/internal/logio"
)

func main() {
	var (
		heapSize  int
		callQuota int
		recurse   int
		timeout   time.Duration
		trace     bool
		dump      bool
		seclevel  int
	)
	flag.IntVar(&heapSize, "heap-size", 1<<20, "initial heap size in bytes")
	flag.IntVar(&callQuota, "call-quota", 1_000_000, "call-quota before error_loop")
	flag.IntVar(&recurse, "recurse-limit", 1000, "recursion depth before error_recurse")
	flag.DurationVar(&timeout, "timeout", 0, "wall-clock limit, honored at loop checkpoints")
	flag.BoolVar(&trace, "trace", false, "enable per-instruction trace logging")
	flag.BoolVar(&dump, "dump", false, "disassemble the loaded code object before running")
	flag.IntVar(&seclevel, "seclevel", 0, "security level to interpret at")
	flag.Parse()

	log := logio.Logger{}
	log.SetOutput(os.Stderr)
	defer os.Exit(log.ExitCode())

	if flag.NArg() != 1 {
		log.Errorf("usage: mulc [flags] <file.masm>")
		return
	}
	path := flag.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		log.Errorf("open %v: %v", path, err)
		return
	}
	defer f.Close()

	var in fileinput.Input
	in.Queue = append(in.Queue, f)

	opts := []mulvm.Option{
		mulvm.WithHeapSize(heapSize),
		mulvm.WithCallQuota(callQuota),
		mulvm.WithRecurseLimit(recurse),
		mulvm.WithOutput(flushio.NewWriteFlusher(os.Stdout)),
		mulvm.WithErrorOutput(flushio.NewWriteFlusher(os.Stderr)),
	}
	if trace {
		opts = append(opts, mulvm.WithLogf(log.Leveledf("TRACE")))
	}
	vm := mulvm.New(opts...)

	h := vm.Heap()
	code, err := mulvm.Assemble(h, readAll(&in), nil, h.Collect)
	if err != nil {
		log.Errorf("assemble %v: %v", path, err)
		return
	}
	if dump {
		mulvm.Disassemble(os.Stdout, h, code)
	}
	closure, err := mulvm.BuildClosure(h, code, nil, h.Collect)
	if err != nil {
		log.Errorf("%+v", err)
		return
	}

	ctx := context.Background()
	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if _, err := vm.Interpret(ctx, closure, seclevel, false); err != nil {
		log.Errorf("%+v", err)
	}
}

func readAll(in *fileinput.Input) string {
	var buf []byte
	for {
		r, _, err := in.ReadRune()
		if err != nil {
			break
		}
		if r != 0 {
			buf = append(buf, []byte(string(r))...)
		}
	}
	return string(buf)
}
