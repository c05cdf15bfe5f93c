package observer_test

import (
	"testing"

	"github.com/2oops/vue-collections/observer"
	"github.com/stretchr/testify/assert"
)

// newRuntime returns a runtime that fails the test on any reported error.
func newRuntime(t *testing.T, opts ...observer.Option) *observer.Runtime {
	t.Helper()
	return observer.NewRuntime(append([]observer.Option{
		observer.WithErrorHandler(func(err error, owner observer.Owner, info string) {
			assert.FailNow(t, err.Error(), info)
		}),
	}, opts...)...)
}

type reported struct {
	err   error
	owner observer.Owner
	info  string
}

// collectErrors returns a runtime whose error handler records instead of failing.
func collectErrors(opts ...observer.Option) (*observer.Runtime, *[]reported) {
	errs := &[]reported{}
	rt := observer.NewRuntime(append([]observer.Option{
		observer.WithErrorHandler(func(err error, owner observer.Owner, info string) {
			*errs = append(*errs, reported{err: err, owner: owner, info: info})
		}),
	}, opts...)...)
	return rt, errs
}

// vm is a minimal owner whose data is a reactive object.
type vm struct {
	*observer.Object
	name       string
	watchers   []*observer.Watcher
	removed    int
	destroying bool
}

func newVM(rt *observer.Runtime, name string, data map[string]any) *vm {
	return &vm{Object: observer.NewObject(rt, data), name: name}
}

func (v *vm) Name() string                   { return v.name }
func (v *vm) AddWatcher(w *observer.Watcher) { v.watchers = append(v.watchers, w) }
func (v *vm) IsBeingDestroyed() bool         { return v.destroying }

func (v *vm) RemoveWatcher(w *observer.Watcher) {
	v.removed++
	for i, x := range v.watchers {
		if x == w {
			v.watchers = append(v.watchers[:i], v.watchers[i+1:]...)
			return
		}
	}
}

// get reads key from o inside a getter.
func get(o *observer.Object, key string) observer.Expr {
	return observer.Func(func(observer.Owner) (any, error) {
		return o.Get(key), nil
	}).Named(key)
}

type call struct {
	value, old any
}

// recorder is a watcher callback that remembers its calls.
type recorder struct {
	calls []call
}

func (r *recorder) cb(value, old any) error {
	r.calls = append(r.calls, call{value: value, old: old})
	return nil
}
