package mulvm

import (
	"io"
	"io/ioutil"
)

// Option configures a VM at construction time, generalizing the teacher's
// VMOption/options/noption functional-options pattern (originally in this
// file, plus api.go) from FIRST's I/O-only concerns to the full spec §6
// embedding surface (heap sizing, quotas, security floor, logging).
type Option interface{ apply(*vmOptions) }

// vmOptions accumulates every option before New builds the VM, the same
// two-phase "collect then apply" shape the teacher uses so defaults can be
// overridden in any order regardless of which options are passed.
type vmOptions struct {
	heapSize      int
	maxHeapSize   int
	callQuota     int
	fastCallQuota int
	recurseLimit  int
	securityLevel int
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logfn  func(mess string, args ...interface{})
}

func defaultOptions() *vmOptions {
	return &vmOptions{
		heapSize:      1 << 16,
		maxHeapSize:   1 << 24,
		callQuota:     100000,
		fastCallQuota: 1000000,
		recurseLimit:  2000,
		in:            nil,
		out:           ioutil.Discard,
		errOut:        ioutil.Discard,
	}
}

func (o *vmOptions) apply(opts []Option) {
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}
}

type optFunc func(*vmOptions)

func (f optFunc) apply(o *vmOptions) { f(o) }

// WithHeapSize sets the heap's initial from-space size in bytes.
func WithHeapSize(n int) Option { return optFunc(func(o *vmOptions) { o.heapSize = n }) }

// WithMaxHeapSize caps how large the heap may grow before allocation
// becomes the spec's declared fatal ErrHeapExhausted condition.
func WithMaxHeapSize(n int) Option { return optFunc(func(o *vmOptions) { o.maxHeapSize = n }) }

// WithCallQuota overrides the default 100,000 instruction/call quota.
func WithCallQuota(n int) Option { return optFunc(func(o *vmOptions) { o.callQuota = n }) }

// WithFastCallQuota overrides the default 1,000,000 fast-call quota.
func WithFastCallQuota(n int) Option { return optFunc(func(o *vmOptions) { o.fastCallQuota = n }) }

// WithRecurseLimit overrides the native Go call-stack recursion bound.
func WithRecurseLimit(n int) Option { return optFunc(func(o *vmOptions) { o.recurseLimit = n }) }

// WithSecurityLevel records a security level in the options. New does not
// read it: a session starts at level 0 unless SessionStart is given
// WithSessionSecurityLevel (Interpret passes its seclevel that way).
func WithSecurityLevel(n int) Option { return optFunc(func(o *vmOptions) { o.securityLevel = n }) }

// WithInput/WithOutput/WithErrorOutput record a reader and writers in the
// options, the same concern the teacher's withInput/withOutput/withTee
// cover. New does not read them, so sessions and output ports do not use
// them: a session's output and error ports are io.Discard.
func WithInput(r io.Reader) Option  { return optFunc(func(o *vmOptions) { o.in = r }) }
func WithOutput(w io.Writer) Option { return optFunc(func(o *vmOptions) { o.out = w }) }
func WithErrorOutput(w io.Writer) Option {
	return optFunc(func(o *vmOptions) { o.errOut = w })
}

// WithLogf installs a trace sink, mirroring the teacher's WithLogf/logging
// struct (core.go): fn receives an already-mark-prefixed message.
func WithLogf(fn func(mess string, args ...interface{})) Option {
	return optFunc(func(o *vmOptions) { o.logfn = fn })
}

// Options flattens a list of options into one, the same composition helper
// as the teacher's VMOptions, useful for packaging a named preset.
func Options(opts ...Option) Option {
	return optFunc(func(o *vmOptions) { o.apply(opts) })
}
