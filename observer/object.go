package observer

import (
	"fmt"
	"slices"
	"sort"
)

// Object is a reactive keyed container. Every key has its own Dep, and the
// object has one more that fires when keys are added or removed.
type Object struct {
	rt     *Runtime
	dep    *Dep
	keys   []string
	props  map[string]*property
	frozen bool
}

type property struct {
	dep   *Dep
	value any
}

// NewObject makes data reactive. Nested maps and slices are converted too.
// The input map is not retained.
func NewObject(rt *Runtime, data map[string]any) *Object {
	o := &Object{
		rt:    rt,
		dep:   NewDep(rt),
		props: make(map[string]*property, len(data)),
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.define(k, data[k])
	}
	return o
}

func (o *Object) define(key string, v any) {
	o.keys = append(o.keys, key)
	o.props[key] = &property{
		dep:   NewDep(o.rt),
		value: Observe(o.rt, v),
	}
}

// Dep is the object's own dependency. Its id identifies the object.
func (o *Object) Dep() *Dep {
	return o.dep
}

// PropertyDep returns the dependency of key, or nil when key is not defined.
// It does not track.
func (o *Object) PropertyDep(key string) *Dep {
	if p, ok := o.props[key]; ok {
		return p.dep
	}
	return nil
}

// Get returns the value of key and registers the reader with the key. When the
// value is itself reactive the reader also depends on that container, so adding
// keys to it or mutating it as an array is seen too.
func (o *Object) Get(key string) any {
	p, ok := o.props[key]
	if !ok {
		o.depend()
		return nil
	}
	if o.frozen || o.rt.Target() == nil {
		return p.value
	}
	p.dep.Depend()
	switch child := p.value.(type) {
	case *Object:
		child.dep.Depend()
	case *Array:
		child.dep.Depend()
		dependArray(o.rt, child)
	}
	return p.value
}

// Lookup is Get with a presence flag.
func (o *Object) Lookup(key string) (any, bool) {
	_, ok := o.props[key]
	return o.Get(key), ok
}

// Set writes key. Writing an equal non-container value is a no-op; writing a new
// key defines it and notifies the object's own dependency.
func (o *Object) Set(key string, v any) {
	if o.frozen {
		o.rt.Warn(fmt.Sprintf("cannot set %q on a frozen object", key), nil)
		return
	}
	p, ok := o.props[key]
	if !ok {
		o.define(key, v)
		o.dep.Notify()
		return
	}
	if sameValue(p.value, v) {
		return
	}
	p.value = Observe(o.rt, v)
	p.dep.Notify()
}

// Delete removes key and notifies both the key's and the object's dependents.
func (o *Object) Delete(key string) {
	if o.frozen {
		o.rt.Warn(fmt.Sprintf("cannot delete %q on a frozen object", key), nil)
		return
	}
	p, ok := o.props[key]
	if !ok {
		return
	}
	delete(o.props, key)
	o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
	p.dep.Notify()
	o.dep.Notify()
}

// Has reports whether key exists. The reader depends on the key set.
func (o *Object) Has(key string) bool {
	o.depend()
	_, ok := o.props[key]
	return ok
}

// Keys returns the keys in insertion order. The reader depends on the key set.
func (o *Object) Keys() []string {
	o.depend()
	return slices.Clone(o.keys)
}

// Len returns the number of keys. The reader depends on the key set.
func (o *Object) Len() int {
	o.depend()
	return len(o.keys)
}

// Freeze makes o read-only. Frozen objects are not tracked and deep watchers
// do not descend into them.
func (o *Object) Freeze() {
	o.frozen = true
}

func (o *Object) Frozen() bool {
	return o.frozen
}

func (o *Object) depend() {
	if !o.frozen {
		o.dep.Depend()
	}
}
