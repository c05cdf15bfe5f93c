package observer

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// Owner is the context a watcher belongs to, typically a component instance.
type Owner interface {
	// Name identifies the owner in diagnostics.
	Name() string
	// AddWatcher registers a newly created watcher.
	AddWatcher(w *Watcher)
	// RemoveWatcher unregisters a torn down watcher.
	RemoveWatcher(w *Watcher)
	// IsBeingDestroyed is true while the owner tears all its watchers down.
	IsBeingDestroyed() bool
}

// Callback receives the new and the previous value of a watcher.
type Callback func(value, old any) error

// Options configure a watcher.
type Options struct {
	// Deep traverses the evaluated value so nested mutations are observed.
	Deep bool
	// User contains evaluator and callback errors, reporting them instead of
	// returning them.
	User bool
	// Lazy defers evaluation until Evaluate is called. Computed properties.
	Lazy bool
	// Sync runs the watcher as soon as it is notified instead of queuing it.
	Sync bool
	// Render marks the owner's render watcher.
	Render bool
	// Before runs right before a scheduled run.
	Before func()
}

// Watcher parses an expression, collects dependencies, and fires its callback
// when the expression value changes.
type Watcher struct {
	rt         *Runtime
	owner      Owner
	id         uint64
	expression string
	getter     Getter
	cb         Callback

	deep   bool
	user   bool
	lazy   bool
	sync   bool
	render bool
	before func()

	dirty  bool
	active bool

	// deps and depIDs are the dependencies of the last completed evaluation;
	// newDeps and newDepIDs collect the ones read by the running evaluation.
	deps      []*Dep
	newDeps   []*Dep
	depIDs    mapset.Set[uint64]
	newDepIDs mapset.Set[uint64]

	value any
}

// NewWatcher builds a watcher and, unless it is lazy, evaluates it right away
// to collect its first set of dependencies. A malformed path is reported as a
// warning and produces a watcher that always evaluates to nil.
func NewWatcher(rt *Runtime, owner Owner, expr Expr, cb Callback, opts Options) *Watcher {
	w := &Watcher{
		rt:         rt,
		owner:      owner,
		id:         nextWatcherID(),
		expression: expr.String(),
		cb:         cb,
		deep:       opts.Deep,
		user:       opts.User,
		lazy:       opts.Lazy,
		sync:       opts.Sync,
		render:     opts.Render,
		before:     opts.Before,
		dirty:      opts.Lazy,
		active:     true,
		depIDs:     mapset.NewThreadUnsafeSet[uint64](),
		newDepIDs:  mapset.NewThreadUnsafeSet[uint64](),
	}
	if owner != nil {
		owner.AddWatcher(w)
	}

	getter, ok := rt.resolve(expr)
	if !ok {
		rt.Warn(invalidPathMessage(expr.path), owner)
	}
	w.getter = getter

	if !w.lazy {
		value, err := w.Get()
		if err != nil {
			rt.HandleError(w.wrap(PhaseGetter, err), owner, w.info(PhaseGetter))
		}
		w.value = value
	}
	return w
}

// Get evaluates the getter with w as the active target and re-collects
// dependencies. User watchers report failures and return nil; the others return
// the error. Panics of non-user watchers propagate after the target stack and
// dependency sets have been restored.
func (w *Watcher) Get() (value any, err error) {
	w.rt.pushTarget(w)
	defer w.cleanupDeps()
	defer w.rt.popTarget()

	value, err = w.call(func() (any, error) {
		return w.getter(w.owner)
	})
	if err != nil {
		if !w.user {
			return nil, err
		}
		w.rt.HandleError(w.wrap(PhaseGetter, err), w.owner, w.info(PhaseGetter))
		return nil, nil
	}

	// touch every nested property so they are all tracked as dependencies
	if w.deep {
		w.rt.Traverse(value)
	}
	return value, nil
}

// call runs fn, turning panics into errors for user watchers.
func (w *Watcher) call(fn func() (any, error)) (v any, err error) {
	if w.user {
		defer func() {
			if r := recover(); r != nil {
				v, err = nil, NewPanicError(r)
			}
		}()
	}
	return fn()
}

// AddDep records d for the running evaluation. A dependency read several times
// is recorded once, and subscribed only if the previous evaluation did not
// already hold it.
func (w *Watcher) AddDep(d *Dep) {
	id := d.id
	if w.newDepIDs.Contains(id) {
		return
	}
	w.newDepIDs.Add(id)
	w.newDeps = append(w.newDeps, d)
	if !w.depIDs.Contains(id) {
		d.AddSub(w)
	}
}

// cleanupDeps unsubscribes from dependencies the last evaluation did not read
// and promotes the collected set to current.
func (w *Watcher) cleanupDeps() {
	for i := len(w.deps) - 1; i >= 0; i-- {
		dep := w.deps[i]
		if !w.newDepIDs.Contains(dep.id) {
			dep.RemoveSub(w)
		}
	}

	w.depIDs, w.newDepIDs = w.newDepIDs, w.depIDs
	w.newDepIDs.Clear()

	clear(w.deps)
	w.deps, w.newDeps = w.newDeps, w.deps[:0]
}

// Update is called by a dependency when it changes.
func (w *Watcher) Update() {
	switch {
	case w.lazy:
		w.dirty = true
	case w.sync:
		if err := w.Run(); err != nil {
			w.report(err)
		}
	default:
		w.rt.QueueWatcher(w)
	}
}

// Run re-evaluates and fires the callback when the value changed. Container
// values and deep watchers always fire since they may have been mutated in
// place. Run is a no-op after Teardown.
func (w *Watcher) Run() error {
	if !w.active {
		return nil
	}
	value, err := w.Get()
	if err != nil {
		return w.wrap(PhaseGetter, err)
	}
	if sameValue(value, w.value) && !isContainer(value) && !w.deep {
		return nil
	}

	old := w.value
	w.value = value
	if w.cb == nil {
		return nil
	}
	_, err = w.call(func() (any, error) {
		return nil, w.cb(value, old)
	})
	if err == nil {
		return nil
	}
	if w.user {
		w.rt.HandleError(w.wrap(PhaseCallback, err), w.owner, w.info(PhaseCallback))
		return nil
	}
	return w.wrap(PhaseCallback, err)
}

// Evaluate recomputes a lazy watcher and clears its dirty flag.
func (w *Watcher) Evaluate() error {
	value, err := w.Get()
	if err != nil {
		return w.wrap(PhaseGetter, err)
	}
	w.value = value
	w.dirty = false
	return nil
}

// Depend registers every dependency of w with the active target, so a watcher
// reading a computed property also depends on what the computed reads.
func (w *Watcher) Depend() {
	for i := len(w.deps) - 1; i >= 0; i-- {
		w.deps[i].Depend()
	}
}

// Teardown removes w from every dependency and from its owner. It is safe to
// call more than once.
func (w *Watcher) Teardown() {
	if !w.active {
		return
	}
	// removing from the owner's registry is wasted work when the owner is
	// dropping all of its watchers anyway
	if w.owner != nil && !w.owner.IsBeingDestroyed() {
		w.owner.RemoveWatcher(w)
	}
	for i := len(w.deps) - 1; i >= 0; i-- {
		w.deps[i].RemoveSub(w)
	}
	w.active = false
}

func (w *Watcher) wrap(phase Phase, err error) error {
	if _, ok := err.(*WatcherError); ok {
		return err
	}
	return &WatcherError{
		Expression: w.expression,
		Owner:      ownerName(w.owner),
		Phase:      phase,
		Cause:      err,
	}
}

// report hands an error returned by Run to the runtime's error handler.
func (w *Watcher) report(err error) {
	phase := PhaseGetter
	var werr *WatcherError
	if errors.As(err, &werr) {
		phase = werr.Phase
	}
	w.rt.HandleError(err, w.owner, w.info(phase))
}

func (w *Watcher) info(phase Phase) string {
	return fmt.Sprintf("%s for watcher %q", phase, w.expression)
}

func (w *Watcher) ID() uint64         { return w.id }
func (w *Watcher) Value() any         { return w.value }
func (w *Watcher) Dirty() bool        { return w.dirty }
func (w *Watcher) Active() bool       { return w.active }
func (w *Watcher) Expression() string { return w.expression }
func (w *Watcher) Owner() Owner       { return w.owner }
func (w *Watcher) IsRender() bool     { return w.render }
func (w *Watcher) IsLazy() bool       { return w.lazy }
func (w *Watcher) IsUser() bool       { return w.user }

// Deps returns the dependencies held after the last completed evaluation.
func (w *Watcher) Deps() []*Dep {
	return append([]*Dep(nil), w.deps...)
}

func (w *Watcher) String() string {
	return fmt.Sprintf("watcher#%d(%s)", w.id, w.expression)
}
