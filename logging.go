package mulvm

import (
	"fmt"
	"strings"
)

// logging is the teacher's trace-sink struct (core.go), embedded by both
// Heap (GC cycle tracing) and VM (instruction/call tracing): a single
// logfn hook plus a right-justified "mark" column width so interleaved
// trace lines from different subsystems stay aligned.
type logging struct {
	logfn func(mess string, args ...interface{})

	markWidth int
}

// withLogPrefix returns a restore function after tagging every subsequent
// log line with prefix, the same nested-component bracket the teacher uses
// around a sub-phase of execution.
func (log *logging) withLogPrefix(prefix string) func() {
	logfn := log.logfn
	log.logfn = func(mess string, args ...interface{}) {
		logfn(prefix+mess, args...)
	}
	return func() { log.logfn = logfn }
}

func (log *logging) logf(mark, mess string, args ...interface{}) {
	if log.logfn == nil {
		return
	}
	if n := log.markWidth - len(mark); n > 0 {
		mark = strings.Repeat(" ", n) + mark
	} else if n < 0 {
		log.markWidth = len(mark)
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.logfn("%v %v", mark, mess)
}
