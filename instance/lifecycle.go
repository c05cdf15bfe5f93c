package instance

import (
	"log/slog"
	"slices"

	"github.com/2oops/vue-collections/observer"
)

type hookName string

const (
	hookMounted      hookName = "mounted"
	hookBeforeUpdate hookName = "beforeUpdate"
	hookUpdated      hookName = "updated"
	hookDestroyed    hookName = "destroyed"
)

// ErrorCapturedFunc inspects an error raised by a descendant. origin is the
// instance whose watcher failed. Returning true stops propagation.
type ErrorCapturedFunc func(err error, origin *Instance, info string) bool

type hooks struct {
	lifecycle     map[hookName][]func()
	errorCaptured []ErrorCapturedFunc
}

func (h *hooks) add(name hookName, fn func()) {
	if h.lifecycle == nil {
		h.lifecycle = map[hookName][]func(){}
	}
	h.lifecycle[name] = append(h.lifecycle[name], fn)
}

func (i *Instance) OnMounted(fn func())      { i.hooks.add(hookMounted, fn) }
func (i *Instance) OnBeforeUpdate(fn func()) { i.hooks.add(hookBeforeUpdate, fn) }
func (i *Instance) OnUpdated(fn func())      { i.hooks.add(hookUpdated, fn) }
func (i *Instance) OnDestroyed(fn func())    { i.hooks.add(hookDestroyed, fn) }

// OnErrorCaptured registers fn for errors raised by descendants of i.
func (i *Instance) OnErrorCaptured(fn ErrorCapturedFunc) {
	i.hooks.errorCaptured = append(i.hooks.errorCaptured, fn)
}

// callHook runs the hooks registered under name without dependency tracking.
func (i *Instance) callHook(name hookName) {
	fns := i.hooks.lifecycle[name]
	if len(fns) == 0 {
		return
	}
	info := string(name) + " hook"
	i.rt.Untrack(func() {
		for _, fn := range fns {
			i.invoke(func() error {
				fn()
				return nil
			}, info)
		}
	})
}

// RenderFunc produces the render output of an instance.
type RenderFunc func(i *Instance) (any, error)

// PatchFunc receives every new render output.
type PatchFunc func(out any)

// Mount creates the render watcher: render runs now and again after any value
// it read changes, each output handed to patch. A failing render is reported
// with info "render" and patch is skipped, keeping the previous output.
func (i *Instance) Mount(render RenderFunc, patch PatchFunc) {
	if i.mounted || i.destroyed {
		return
	}
	update := observer.Func(func(observer.Owner) (any, error) {
		var out any
		ok := false
		i.invoke(func() (err error) {
			out, err = render(i)
			ok = err == nil
			return err
		}, "render")
		if ok && patch != nil {
			patch(out)
		}
		return nil, nil
	}).Named(i.name + " render")

	i.render = observer.NewWatcher(i.rt, i, update, nil, observer.Options{
		Render: true,
		Before: func() {
			if i.mounted && !i.destroyed {
				i.callHook(hookBeforeUpdate)
			}
		},
	})
	i.mounted = true
	i.logger.Debug("instance mounted", slog.String("instance", i.name))
	i.callHook(hookMounted)
}

// Flushed implements observer.FlushObserver: after a flush that re-rendered i,
// the updated hooks run.
func (i *Instance) Flushed(w *observer.Watcher) {
	if w == i.render && i.mounted && !i.destroyed {
		i.callHook(hookUpdated)
	}
}

// CaptureError implements observer.ErrorCapturer. The error travels up the
// parent chain; the first errorCaptured hook returning true stops it.
func (i *Instance) CaptureError(err error, info string) bool {
	for cur := i.parent; cur != nil; cur = cur.parent {
		for _, fn := range cur.hooks.errorCaptured {
			if i.captured(fn, err, info) {
				return true
			}
		}
	}
	return false
}

// captured isolates a failing errorCaptured hook. Its own error goes straight
// to the runtime's handler so it cannot recurse into the chain.
func (i *Instance) captured(fn ErrorCapturedFunc, err error, info string) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			i.rt.HandleError(observer.NewPanicError(r), nil, "errorCaptured hook")
			stop = false
		}
	}()
	return fn(err, i, info)
}

// Destroy tears i down: children first, then every watcher i owns, then the
// destroyed hooks. Destroying twice is a no-op.
func (i *Instance) Destroy() {
	if i.beingDestroyed || i.destroyed {
		return
	}
	i.beingDestroyed = true

	if p := i.parent; p != nil && !p.beingDestroyed {
		p.children = slices.DeleteFunc(p.children, func(c *Instance) bool { return c == i })
	}
	for _, c := range i.children {
		c.Destroy()
	}
	i.children = nil

	if i.render != nil {
		i.render.Teardown()
	}
	for _, w := range i.watchers {
		w.Teardown()
	}
	i.watchers = nil

	i.destroyed = true
	i.logger.Debug("instance destroyed", slog.String("instance", i.name))
	i.callHook(hookDestroyed)
}
