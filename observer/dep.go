package observer

import (
	"cmp"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Dep is the notification channel of one reactive property or container. It
// only keeps back references to its subscribers and never manages their
// lifetime.
type Dep struct {
	rt   *Runtime
	id   uint64
	subs mapset.Set[*Watcher]
}

// NewDep creates a dependency bound to rt.
func NewDep(rt *Runtime) *Dep {
	return &Dep{
		rt:   rt,
		id:   nextDepID(),
		subs: mapset.NewThreadUnsafeSet[*Watcher](),
	}
}

// ID is unique for the process lifetime.
func (d *Dep) ID() uint64 {
	return d.id
}

// AddSub subscribes w. Subscribing twice is a no-op.
func (d *Dep) AddSub(w *Watcher) {
	d.subs.Add(w)
}

// RemoveSub unsubscribes w. Unknown watchers are ignored.
func (d *Dep) RemoveSub(w *Watcher) {
	d.subs.Remove(w)
}

// Depend registers d with the watcher currently evaluating, if any.
func (d *Dep) Depend() {
	if target := d.rt.Target(); target != nil {
		target.AddDep(d)
	}
}

// Notify calls Update on every subscriber. The subscriber set is snapshotted
// first, so subscribers may subscribe or unsubscribe while being notified.
func (d *Dep) Notify() {
	for _, sub := range d.Subscribers() {
		sub.Update()
	}
}

// Subscribers returns a snapshot of the subscribers in creation order.
func (d *Dep) Subscribers() []*Watcher {
	subs := d.subs.ToSlice()
	slices.SortFunc(subs, func(a, b *Watcher) int {
		return cmp.Compare(a.id, b.id)
	})
	return subs
}

// HasSubscribers reports whether anyone is listening.
func (d *Dep) HasSubscribers() bool {
	return d.subs.Cardinality() > 0
}
