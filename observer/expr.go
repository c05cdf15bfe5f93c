package observer

import (
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Getter evaluates a watcher against its owner.
type Getter func(owner Owner) (any, error)

// Source is anything a watch path can step into by key. Reactive objects and
// component instances implement it.
type Source interface {
	Get(key string) any
}

// Expr is what a watcher evaluates: either a dot-delimited path resolved
// against the owner, or an arbitrary function. It is resolved into a Getter
// once, when the watcher is built.
type Expr struct {
	path string
	fn   Getter
	desc string
}

// Path watches a simple property chain such as "user.address.city".
func Path(path string) Expr {
	return Expr{path: path, desc: path}
}

// Func watches the value returned by fn.
func Func(fn Getter) Expr {
	return Expr{fn: fn, desc: funcName(fn)}
}

// Named replaces the description used in diagnostics.
func (e Expr) Named(desc string) Expr {
	e.desc = desc
	return e
}

// String is the human-readable expression.
func (e Expr) String() string {
	return e.desc
}

// IsPath reports whether e is a path expression.
func (e Expr) IsPath() bool {
	return e.fn == nil
}

func funcName(fn any) string {
	if fn == nil {
		return "<nil>"
	}
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "<func>"
	}
	return f.Name()
}

// resolve turns e into a Getter. ok is false when the path is malformed, in
// which case the returned getter always yields nil.
func (rt *Runtime) resolve(e Expr) (getter Getter, ok bool) {
	if e.fn != nil {
		return e.fn, true
	}
	segments, ok := rt.paths.parse(e.path)
	if !ok {
		return func(Owner) (any, error) { return nil, nil }, false
	}
	return func(owner Owner) (any, error) {
		var cur any = owner
		for _, segment := range segments {
			if cur == nil {
				return nil, nil
			}
			cur = lookup(cur, segment)
		}
		return cur, nil
	}, true
}

// lookup reads key from v through tracked accessors where v is reactive.
func lookup(v any, key string) any {
	switch v := v.(type) {
	case Source:
		return v.Get(key)
	case *Array:
		i, err := strconv.Atoi(key)
		if err != nil {
			if key == "length" {
				return v.Len()
			}
			return nil
		}
		if i < 0 || i >= v.Len() {
			return nil
		}
		return v.Get(i)
	case map[string]any:
		return v[key]
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(v) {
			return nil
		}
		return v[i]
	}
	return nil
}

type parsedPath struct {
	path     string
	segments []string
	ok       bool
}

// pathCache memoizes parsed paths by the hash of their text.
type pathCache map[uint64][]parsedPath

func (c pathCache) parse(path string) ([]string, bool) {
	key := xxhash.Sum64String(path)
	for _, p := range c[key] {
		if p.path == path {
			return p.segments, p.ok
		}
	}
	segments, ok := parsePath(path)
	c[key] = append(c[key], parsedPath{path: path, segments: segments, ok: ok})
	return segments, ok
}

// parsePath accepts letters, digits, '_', '$' and '.' separators only.
func parsePath(path string) ([]string, bool) {
	if path == "" {
		return nil, false
	}
	for _, r := range path {
		if r == '.' || r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return nil, false
	}
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return nil, false
		}
	}
	return segments, true
}

func invalidPathMessage(path string) string {
	return fmt.Sprintf("%v: failed watching path %q. Watcher only accepts simple dot-delimited paths. For full control, use a function instead.", ErrInvalidPath, path)
}
