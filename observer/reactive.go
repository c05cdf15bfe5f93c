package observer

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// ErrNotReactive is returned by Set and Delete for targets that are neither an
// *Object nor an *Array.
var ErrNotReactive = errors.New("observer: target is not reactive")

// Opaque values are never converted into reactive containers and never
// traversed into by deep watchers. Render trees produced by a renderer
// implement it.
type Opaque interface {
	OpaqueNode()
}

// Observe makes v reactive: map[string]any becomes an *Object and []any an
// *Array, recursively. Reactive values, opaque values and everything else are
// returned unchanged.
func Observe(rt *Runtime, v any) any {
	switch x := v.(type) {
	case Opaque:
		return v
	case *Object, *Array:
		return v
	case map[string]any:
		return NewObject(rt, x)
	case []any:
		return NewArray(rt, x)
	}
	return v
}

// Set writes key on a reactive target. On an *Object a new key is made
// reactive and announced to whoever depends on the object; on an *Array key is
// an index and the array grows as needed.
func Set(target any, key string, value any) error {
	switch t := target.(type) {
	case *Object:
		t.Set(key, value)
		return nil
	case *Array:
		i, err := arrayIndex(key)
		if err != nil {
			return err
		}
		t.Set(i, value)
		return nil
	}
	return fmt.Errorf("cannot set reactive property %q on %T: %w", key, target, ErrNotReactive)
}

// Delete removes key from a reactive target and notifies its dependents.
func Delete(target any, key string) error {
	switch t := target.(type) {
	case *Object:
		t.Delete(key)
		return nil
	case *Array:
		i, err := arrayIndex(key)
		if err != nil {
			return err
		}
		if i < len(t.items) {
			t.Splice(i, 1)
		}
		return nil
	}
	return fmt.Errorf("cannot delete reactive property %q on %T: %w", key, target, ErrNotReactive)
}

func arrayIndex(key string) (int, error) {
	i, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("invalid array index %q: %w", key, err)
	}
	if i < 0 {
		return 0, fmt.Errorf("invalid array index %q: negative", key)
	}
	return i, nil
}

// sameValue compares like the runtime's change detection: NaN equals NaN,
// comparable values by ==, maps, slices and funcs by identity.
func sameValue(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNaN(a) && isNaN(b) {
		return true
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		// structs and arrays may still hold incomparable values in interfaces
		defer func() {
			if recover() != nil {
				same = false
			}
		}()
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	return false
}

func isNaN(v any) bool {
	switch f := v.(type) {
	case float64:
		return math.IsNaN(f)
	case float32:
		return math.IsNaN(float64(f))
	}
	return false
}

// isContainer reports whether v is a reference that may be mutated in place.
// Struct and array values are copies and compare by value instead.
func isContainer(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case *Object, *Array:
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return true
	case reflect.Pointer:
		return !rv.IsNil()
	}
	return false
}
