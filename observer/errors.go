package observer

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrInvalidPath is reported when a watch path is not a simple dot-delimited
	// property chain. The watcher is still created and evaluates to nil.
	ErrInvalidPath = errors.New("observer: invalid watch path")

	// ErrInfiniteUpdate is reported when a watcher keeps re-queuing itself
	// during a single flush.
	ErrInfiniteUpdate = errors.New("observer: infinite update loop")

	// ErrLoopRunning is returned by Run when the runtime loop is already running.
	ErrLoopRunning = errors.New("observer: loop already running")
)

// Phase tells which half of a watcher produced an error.
type Phase string

const (
	PhaseGetter   Phase = "getter"
	PhaseCallback Phase = "callback"
)

// WatcherError wraps an error raised by a watcher's evaluator or callback.
type WatcherError struct {
	Expression string
	Owner      string
	Phase      Phase
	Cause      error
}

func (e *WatcherError) Error() string {
	return fmt.Sprintf("%s for watcher %q in %s: %v", e.Phase, e.Expression, e.Owner, e.Cause)
}

func (e *WatcherError) Unwrap() error {
	return e.Cause
}

// PanicError carries a value recovered from a panicking evaluator, callback or
// tick callback.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// NewPanicError wraps a recovered value together with the current stack.
func NewPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

// CycleError identifies the watcher that exceeded the runaway update bound.
type CycleError struct {
	Expression string
	Owner      string
	Count      int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("you may have an infinite update loop in watcher with expression %q in %s (%d runs in one flush)", e.Expression, e.Owner, e.Count)
}

func (e *CycleError) Is(target error) bool {
	return target == ErrInfiniteUpdate
}

// ErrorCapturer is implemented by owners that want to see errors raised by their
// watchers before the runtime's handler does. Returning true stops propagation.
type ErrorCapturer interface {
	CaptureError(err error, info string) bool
}

// HandleError routes a contained error. Owners that implement ErrorCapturer get
// the first look; anything not captured reaches the configured ErrorHandler.
func (rt *Runtime) HandleError(err error, owner Owner, info string) {
	if err == nil {
		return
	}
	rt.metrics.errorReported(err)
	if c, ok := owner.(ErrorCapturer); ok {
		if rt.capture(c, err, owner, info) {
			return
		}
	}
	rt.config.ErrorHandler(err, owner, info)
}

// capture isolates a capturer that fails itself, reporting both errors.
func (rt *Runtime) capture(c ErrorCapturer, err error, owner Owner, info string) (captured bool) {
	defer func() {
		if r := recover(); r != nil {
			rt.config.ErrorHandler(NewPanicError(r), owner, "errorCaptured hook")
			captured = false
		}
	}()
	return c.CaptureError(err, info)
}

// Warn sends a non-fatal diagnostic to the configured WarnHandler.
func (rt *Runtime) Warn(msg string, owner Owner) {
	rt.config.WarnHandler(msg, owner)
}

func ownerName(owner Owner) string {
	if owner == nil {
		return "<detached>"
	}
	return owner.Name()
}
