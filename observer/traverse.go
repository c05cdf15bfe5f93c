package observer

import "reflect"

// Traverse reads every nested value reachable from v so that the active
// watcher depends on all of it. Each container is visited once per outermost
// call, which makes cyclic structures safe. Frozen and opaque values are
// skipped.
//
// Nested calls share the visited set until the outermost one returns. This
// holds because traversal only reads through Object.Get and Array.Get, which
// never start another deep evaluation.
func (rt *Runtime) Traverse(v any) {
	rt.traversal++
	defer func() {
		rt.traversal--
		if rt.traversal == 0 {
			rt.seen.Clear()
			rt.seenPtrs.Clear()
		}
	}()
	rt.traverse(v)
}

func (rt *Runtime) traverse(v any) {
	switch x := v.(type) {
	case nil, Opaque:
		return
	case *Object:
		if x.frozen || !rt.seen.Add(x.dep.id) {
			return
		}
		// key additions, even when x was reached through plain values
		x.dep.Depend()
		for _, k := range x.keys {
			rt.traverse(x.Get(k))
		}
	case *Array:
		if x.frozen || !rt.seen.Add(x.dep.id) {
			return
		}
		// mutations of an empty array, even when x was reached through plain values
		x.dep.Depend()
		for i := range x.items {
			rt.traverse(x.Get(i))
		}
	default:
		rt.traverseValue(reflect.ValueOf(v))
	}
}

// traverseValue walks plain Go maps, slices, arrays and pointers. Structs are
// treated as leaves.
func (rt *Runtime) traverseValue(rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() || !rt.seenPtrs.Add(rv.Pointer()) {
			return
		}
		iter := rv.MapRange()
		for iter.Next() {
			rt.traverseElem(iter.Value())
		}
	case reflect.Slice:
		if rv.Len() == 0 || !rt.seenPtrs.Add(rv.Pointer()) {
			return
		}
		for i := 0; i < rv.Len(); i++ {
			rt.traverseElem(rv.Index(i))
		}
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			rt.traverseElem(rv.Index(i))
		}
	case reflect.Pointer:
		if rv.IsNil() || !rt.seenPtrs.Add(rv.Pointer()) {
			return
		}
		rt.traverseElem(rv.Elem())
	}
}

func (rt *Runtime) traverseElem(rv reflect.Value) {
	if !rv.IsValid() || !rv.CanInterface() {
		return
	}
	rt.traverse(rv.Interface())
}
