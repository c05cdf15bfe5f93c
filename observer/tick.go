package observer

import "context"

// NextTick defers fn until the current synchronous work is done: the next
// call to Tick, or the end of the current task when the runtime loop is
// running. The scheduler flushes through the same queue, so a callback
// registered after a write runs after the watchers that write invalidated.
func (rt *Runtime) NextTick(fn func()) {
	rt.callbacks = append(rt.callbacks, fn)
	rt.pending = true
}

// HasPendingTicks reports whether callbacks are waiting for Tick.
func (rt *Runtime) HasPendingTicks() bool {
	return rt.pending
}

// Tick drains the callback queue. Callbacks queued while draining run in the
// same call, in order. A panicking callback is reported with info "nextTick"
// and does not stop the others.
func (rt *Runtime) Tick() {
	for len(rt.callbacks) > 0 {
		callbacks := rt.callbacks
		rt.callbacks = nil
		rt.pending = false
		for _, cb := range callbacks {
			rt.safeExecute(cb, "nextTick")
		}
	}
	rt.pending = false
}

func (rt *Runtime) safeExecute(fn func(), info string) {
	defer func() {
		if r := recover(); r != nil {
			rt.HandleError(NewPanicError(r), nil, info)
		}
	}()
	fn()
}

// Run makes the runtime a single-goroutine loop: tasks handed to Submit run one
// at a time on the calling goroutine, each followed by a full Tick. Run returns
// ctx.Err() once ctx is done, after running the remaining ticks.
func (rt *Runtime) Run(ctx context.Context) error {
	if !rt.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer rt.running.Store(false)

	prev := rt.ctx
	rt.ctx = ctx
	defer func() { rt.ctx = prev }()

	// work queued before the loop started
	rt.Tick()

	for {
		select {
		case <-ctx.Done():
			rt.Tick()
			return ctx.Err()
		case task := <-rt.tasks:
			rt.safeExecute(task, "task")
			rt.Tick()
		}
	}
}

// Submit hands fn to the running loop. It is safe to call from any goroutine
// and blocks until fn is queued or ctx is done.
func (rt *Runtime) Submit(ctx context.Context, fn func()) error {
	select {
	case rt.tasks <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do submits fn and waits for it, including the tick that follows it, to
// complete.
func (rt *Runtime) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	err := rt.Submit(ctx, func() {
		defer rt.NextTick(func() { close(done) })
		fn()
	})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
