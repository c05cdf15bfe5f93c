// Package instance is a small component model on top of the observer runtime:
// reactive data, computed properties, user watchers, a render watcher and the
// lifecycle hooks tied to them.
package instance

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/2oops/vue-collections/observer"
)

// ErrKeyExists is returned when a computed property would shadow a data key or
// another computed property.
var ErrKeyExists = errors.New("instance: key already defined")

// Instance owns reactive data and every watcher created against it.
type Instance struct {
	rt     *observer.Runtime
	logger *slog.Logger
	name   string

	parent   *Instance
	children []*Instance

	data     *observer.Object
	computed map[string]*observer.Watcher

	// watchers is the registry of every live watcher owned by the instance,
	// render watcher included.
	watchers []*observer.Watcher
	render   *observer.Watcher

	hooks hooks

	mounted        bool
	beingDestroyed bool
	destroyed      bool
}

// Option configures an Instance.
type Option func(*Instance)

// WithParent attaches the instance to p as a child.
func WithParent(p *Instance) Option {
	return func(i *Instance) {
		i.parent = p
	}
}

// New creates an instance whose data is a reactive copy of data.
func New(rt *observer.Runtime, name string, data map[string]any, opts ...Option) *Instance {
	i := &Instance{
		rt:       rt,
		logger:   rt.Config().Logger,
		name:     name,
		data:     observer.NewObject(rt, data),
		computed: map[string]*observer.Watcher{},
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.parent != nil {
		i.parent.children = append(i.parent.children, i)
	}
	return i
}

// NewChild creates an instance that belongs to i.
func (i *Instance) NewChild(name string, data map[string]any) *Instance {
	return New(i.rt, name, data, WithParent(i))
}

// Get reads a computed property or a data key. Inside an evaluator the read is
// tracked, which makes the instance a root for watch paths.
func (i *Instance) Get(key string) any {
	if w, ok := i.computed[key]; ok {
		return i.computedValue(key, w)
	}
	return i.data.Get(key)
}

// Set writes a data key.
func (i *Instance) Set(key string, v any) {
	i.data.Set(key, v)
}

// Data is the instance's reactive state.
func (i *Instance) Data() *observer.Object {
	return i.data
}

func (i *Instance) Runtime() *observer.Runtime {
	return i.rt
}

func (i *Instance) Parent() *Instance {
	return i.parent
}

func (i *Instance) Children() []*Instance {
	return slices.Clone(i.children)
}

// Watchers returns the live watchers owned by i in creation order.
func (i *Instance) Watchers() []*observer.Watcher {
	return slices.Clone(i.watchers)
}

// RenderWatcher is nil until Mount.
func (i *Instance) RenderWatcher() *observer.Watcher {
	return i.render
}

func (i *Instance) IsMounted() bool   { return i.mounted }
func (i *Instance) IsDestroyed() bool { return i.destroyed }

// Name implements observer.Owner.
func (i *Instance) Name() string {
	return i.name
}

// AddWatcher implements observer.Owner.
func (i *Instance) AddWatcher(w *observer.Watcher) {
	i.watchers = append(i.watchers, w)
}

// RemoveWatcher implements observer.Owner.
func (i *Instance) RemoveWatcher(w *observer.Watcher) {
	i.watchers = slices.DeleteFunc(i.watchers, func(x *observer.Watcher) bool {
		return x == w
	})
}

// IsBeingDestroyed implements observer.Owner.
func (i *Instance) IsBeingDestroyed() bool {
	return i.beingDestroyed
}

var (
	_ observer.Owner         = (*Instance)(nil)
	_ observer.Source        = (*Instance)(nil)
	_ observer.ErrorCapturer = (*Instance)(nil)
	_ observer.FlushObserver = (*Instance)(nil)
)
