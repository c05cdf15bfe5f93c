package instance

import (
	"fmt"

	"github.com/2oops/vue-collections/observer"
)

// ComputedFunc derives a value from the instance.
type ComputedFunc func(i *Instance) (any, error)

// Computed defines a cached property. fn runs on the first read after any of
// the values it read last time changed, and never otherwise.
func (i *Instance) Computed(name string, fn ComputedFunc) error {
	if _, ok := i.computed[name]; ok {
		return fmt.Errorf("computed %q: %w", name, ErrKeyExists)
	}
	exists := false
	i.rt.Untrack(func() { exists = i.data.Has(name) })
	if exists {
		return fmt.Errorf("computed %q shadows data: %w", name, ErrKeyExists)
	}

	expr := observer.Func(func(observer.Owner) (any, error) {
		return fn(i)
	}).Named(name)
	i.computed[name] = observer.NewWatcher(i.rt, i, expr, nil, observer.Options{Lazy: true})
	return nil
}

// computedValue re-evaluates w when dirty and forwards its dependencies to the
// reader, so whoever reads a computed property depends on what it read.
func (i *Instance) computedValue(name string, w *observer.Watcher) any {
	if w.Dirty() {
		if err := w.Evaluate(); err != nil {
			i.rt.HandleError(err, i, fmt.Sprintf("computed %q", name))
		}
	}
	if i.rt.Target() != nil {
		w.Depend()
	}
	return w.Value()
}

// WatchOptions configure Watch.
type WatchOptions struct {
	// Deep fires on nested mutations of the watched value.
	Deep bool
	// Immediate calls the callback once right away with the current value.
	Immediate bool
	// Sync runs the callback as soon as a dependency changes.
	Sync bool
}

// Watch creates a user watcher. Errors and panics in the expression or cb are
// reported through the error capture chain and never stop the caller. The
// returned func tears the watcher down.
func (i *Instance) Watch(expr observer.Expr, cb observer.Callback, opts WatchOptions) (unwatch func()) {
	w := observer.NewWatcher(i.rt, i, expr, cb, observer.Options{
		Deep: opts.Deep,
		Sync: opts.Sync,
		User: true,
	})
	if opts.Immediate && cb != nil {
		info := fmt.Sprintf("callback for immediate watcher %q", w.Expression())
		i.rt.Untrack(func() {
			i.invoke(func() error { return cb(w.Value(), nil) }, info)
		})
	}
	return w.Teardown
}

// invoke runs fn, reporting its error or panic with info.
func (i *Instance) invoke(fn func() error, info string) {
	defer func() {
		if r := recover(); r != nil {
			i.rt.HandleError(observer.NewPanicError(r), i, info)
		}
	}()
	if err := fn(); err != nil {
		i.rt.HandleError(err, i, info)
	}
}
