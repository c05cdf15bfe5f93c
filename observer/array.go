package observer

import (
	"fmt"
	"slices"
	"sort"
)

// Array is a reactive sequence. Elements have no dependency of their own: every
// read depends on the array, and every mutation notifies it.
type Array struct {
	rt     *Runtime
	dep    *Dep
	items  []any
	frozen bool
}

// NewArray makes a reactive copy of items, converting nested maps and slices.
func NewArray(rt *Runtime, items []any) *Array {
	a := &Array{
		rt:    rt,
		dep:   NewDep(rt),
		items: make([]any, len(items)),
	}
	for i, v := range items {
		a.items[i] = Observe(rt, v)
	}
	return a
}

// Dep is the array's dependency. Its id identifies the array.
func (a *Array) Dep() *Dep {
	return a.dep
}

// Get returns element i. Out of range indexes return nil.
func (a *Array) Get(i int) any {
	a.depend()
	if i < 0 || i >= len(a.items) {
		return nil
	}
	v := a.items[i]
	if !a.frozen && a.rt.Target() != nil {
		switch child := v.(type) {
		case *Object:
			child.dep.Depend()
		case *Array:
			child.dep.Depend()
		}
	}
	return v
}

// Len returns the number of elements.
func (a *Array) Len() int {
	a.depend()
	return len(a.items)
}

// Items returns a copy of the elements.
func (a *Array) Items() []any {
	a.depend()
	return slices.Clone(a.items)
}

// Set writes element i, growing the array with nils when i is past the end.
func (a *Array) Set(i int, v any) {
	if !a.writable("set") {
		return
	}
	if i < 0 {
		a.rt.Warn(fmt.Sprintf("cannot set negative index %d", i), nil)
		return
	}
	if i >= len(a.items) {
		a.items = append(a.items, make([]any, i-len(a.items)+1)...)
	} else if sameValue(a.items[i], v) {
		return
	}
	a.items[i] = Observe(a.rt, v)
	a.dep.Notify()
}

// Push appends values and returns the new length.
func (a *Array) Push(values ...any) int {
	if !a.writable("push") {
		return len(a.items)
	}
	for _, v := range values {
		a.items = append(a.items, Observe(a.rt, v))
	}
	a.dep.Notify()
	return len(a.items)
}

// Pop removes and returns the last element.
func (a *Array) Pop() any {
	if !a.writable("pop") || len(a.items) == 0 {
		return nil
	}
	last := len(a.items) - 1
	v := a.items[last]
	a.items[last] = nil
	a.items = a.items[:last]
	a.dep.Notify()
	return v
}

// Shift removes and returns the first element.
func (a *Array) Shift() any {
	if !a.writable("shift") || len(a.items) == 0 {
		return nil
	}
	v := a.items[0]
	a.items = slices.Delete(a.items, 0, 1)
	a.dep.Notify()
	return v
}

// Unshift prepends values and returns the new length.
func (a *Array) Unshift(values ...any) int {
	if !a.writable("unshift") {
		return len(a.items)
	}
	a.items = slices.Insert(a.items, 0, a.observeAll(values)...)
	a.dep.Notify()
	return len(a.items)
}

// Splice removes deleteCount elements at start, inserts items in their place
// and returns the removed elements. start is clamped to the array bounds.
func (a *Array) Splice(start, deleteCount int, items ...any) []any {
	if !a.writable("splice") {
		return nil
	}
	start = max(0, min(start, len(a.items)))
	deleteCount = max(0, min(deleteCount, len(a.items)-start))

	removed := slices.Clone(a.items[start : start+deleteCount])
	a.items = slices.Replace(a.items, start, start+deleteCount, a.observeAll(items)...)
	a.dep.Notify()
	return removed
}

// Sort sorts the elements in place with less.
func (a *Array) Sort(less func(x, y any) bool) {
	if !a.writable("sort") {
		return
	}
	sort.SliceStable(a.items, func(i, j int) bool {
		return less(a.items[i], a.items[j])
	})
	a.dep.Notify()
}

// Reverse reverses the elements in place.
func (a *Array) Reverse() {
	if !a.writable("reverse") {
		return
	}
	slices.Reverse(a.items)
	a.dep.Notify()
}

// SetLen truncates or extends the array with nils.
func (a *Array) SetLen(n int) {
	if !a.writable("set length of") || n < 0 || n == len(a.items) {
		return
	}
	if n < len(a.items) {
		clear(a.items[n:])
		a.items = a.items[:n]
	} else {
		a.items = append(a.items, make([]any, n-len(a.items))...)
	}
	a.dep.Notify()
}

// Freeze makes a read-only.
func (a *Array) Freeze() {
	a.frozen = true
}

func (a *Array) Frozen() bool {
	return a.frozen
}

func (a *Array) depend() {
	if !a.frozen {
		a.dep.Depend()
	}
}

func (a *Array) writable(op string) bool {
	if a.frozen {
		a.rt.Warn(fmt.Sprintf("cannot %s a frozen array", op), nil)
		return false
	}
	return true
}

func (a *Array) observeAll(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = Observe(a.rt, v)
	}
	return out
}

// dependArray collects the containers nested in arr, since array elements are
// not reached through tracked property reads.
func dependArray(rt *Runtime, arr *Array) {
	target := rt.Target()
	for _, v := range arr.items {
		switch e := v.(type) {
		case *Object:
			e.dep.Depend()
		case *Array:
			if target.newDepIDs.Contains(e.dep.id) {
				continue
			}
			e.dep.Depend()
			dependArray(rt, e)
		}
	}
}
