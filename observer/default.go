package observer

import (
	"sync"

	"github.com/petermattis/goid"
)

var runtimes sync.Map

// Default returns the runtime bound to the calling goroutine, creating it with
// opts on first use. Later calls on the same goroutine ignore opts.
func Default(opts ...Option) *Runtime {
	gid := goid.Get()

	if rt, ok := runtimes.Load(gid); ok {
		return rt.(*Runtime)
	}

	rt := NewRuntime(opts...)
	actual, _ := runtimes.LoadOrStore(gid, rt)
	return actual.(*Runtime)
}

// Release forgets the calling goroutine's default runtime. Goroutines that used
// Default should call it before exiting.
func Release() {
	runtimes.Delete(goid.Get())
}
