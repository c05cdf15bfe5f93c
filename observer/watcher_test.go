package observer_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/2oops/vue-collections/observer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherPath(t *testing.T) {
	rt := newRuntime(t)
	v := newVM(rt, "root", map[string]any{
		"x": map[string]any{"y": 1},
	})
	rec := &recorder{}
	w := observer.NewWatcher(rt, v, observer.Path("x.y"), rec.cb, observer.Options{User: true})
	require.Equal(t, 1, w.Value())
	assert.Equal(t, []*observer.Watcher{w}, v.watchers)

	x := v.Get("x").(*observer.Object)
	x.Set("y", 2)
	rt.Tick()
	assert.Equal(t, []call{{value: 2, old: 1}}, rec.calls)

	t.Run("no change no callback", func(t *testing.T) {
		x.Set("y", 2)
		assert.Equal(t, 0, rt.Pending())
		rt.Tick()
		assert.Len(t, rec.calls, 1)
	})

	t.Run("replacing the parent", func(t *testing.T) {
		v.Set("x", map[string]any{"y": 3})
		rt.Tick()
		assert.Equal(t, call{value: 3, old: 2}, rec.calls[len(rec.calls)-1])
	})
}

func TestWatcherPathMissingLink(t *testing.T) {
	rt := newRuntime(t)
	v := newVM(rt, "root", map[string]any{})
	rec := &recorder{}
	w := observer.NewWatcher(rt, v, observer.Path("a.b"), rec.cb, observer.Options{User: true})
	assert.Nil(t, w.Value())

	// the missing key is tracked through the container, so defining it is seen
	v.Set("a", map[string]any{"b": "late"})
	rt.Tick()
	assert.Equal(t, []call{{value: "late", old: nil}}, rec.calls)
}

func TestWatcherInvalidPath(t *testing.T) {
	var warnings []string
	rt := newRuntime(t, observer.WithWarnHandler(func(msg string, owner observer.Owner) {
		warnings = append(warnings, msg)
	}))
	v := newVM(rt, "root", map[string]any{"a": []any{1}})

	w := observer.NewWatcher(rt, v, observer.Path("a[0]"), nil, observer.Options{User: true})
	require.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0], observer.ErrInvalidPath.Error()))
	assert.Contains(t, warnings[0], `"a[0]"`)
	assert.Nil(t, w.Value())
	assert.Empty(t, w.Deps())
}

func TestWatcherBranchSwitching(t *testing.T) {
	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{"a": true, "b": 1, "c": 2})
	evaluations := 0
	w := observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
		evaluations++
		if o.Get("a").(bool) {
			return o.Get("b"), nil
		}
		return o.Get("c"), nil
	}), nil, observer.Options{})
	require.Equal(t, 1, w.Value())
	assert.Len(t, w.Deps(), 2)

	o.Set("c", 3)
	assert.Equal(t, 0, rt.Pending(), "c is not read while a is true")

	o.Set("a", false)
	rt.Tick()
	assert.Equal(t, 3, w.Value())
	assert.Len(t, w.Deps(), 2)

	o.Set("b", 5)
	assert.Equal(t, 0, rt.Pending(), "b was dropped when the branch switched")

	o.Set("c", 4)
	assert.Equal(t, 1, rt.Pending())
	rt.Tick()
	assert.Equal(t, 4, w.Value())
	assert.Equal(t, 3, evaluations)
}

func TestWatcherDeep(t *testing.T) {
	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
		},
	})
	deep := &recorder{}
	shallow := &recorder{}
	observer.NewWatcher(rt, nil, get(o, "a"), deep.cb, observer.Options{Deep: true, User: true})
	observer.NewWatcher(rt, nil, get(o, "a"), shallow.cb, observer.Options{User: true})

	//  a
	//  └ b
	//    └ c  <- written three levels down
	a := o.Get("a").(*observer.Object)
	a.Get("b").(*observer.Object).Set("c", 2)
	rt.Tick()

	require.Len(t, deep.calls, 1)
	assert.Same(t, a, deep.calls[0].value)
	assert.Same(t, a, deep.calls[0].old)
	assert.Empty(t, shallow.calls)

	t.Run("keys added below are seen", func(t *testing.T) {
		a.Get("b").(*observer.Object).Set("d", true)
		rt.Tick()
		assert.Len(t, deep.calls, 2)
		assert.Empty(t, shallow.calls)
	})
}

func TestWatcherLazy(t *testing.T) {
	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{"n": 1})
	evaluations := 0
	w := observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
		evaluations++
		return o.Get("n").(int) * 2, nil
	}), nil, observer.Options{Lazy: true})

	assert.Equal(t, 0, evaluations)
	assert.True(t, w.Dirty())
	assert.True(t, w.IsLazy())

	read := func() any {
		if w.Dirty() {
			require.NoError(t, w.Evaluate())
		}
		return w.Value()
	}
	assert.Equal(t, 2, read())
	assert.Equal(t, 2, read())
	assert.Equal(t, 1, evaluations)

	o.Set("n", 2)
	assert.True(t, w.Dirty())
	assert.Equal(t, 0, rt.Pending(), "lazy watchers are never queued")
	assert.Equal(t, 1, evaluations)

	assert.Equal(t, 4, read())
	assert.Equal(t, 4, read())
	assert.Equal(t, 2, evaluations)
}

func TestWatcherComputedDepend(t *testing.T) {
	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{"n": 1})

	//  n
	//  |
	//  computed (lazy)
	//  |
	//  w
	computed := observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
		return o.Get("n").(int) + 10, nil
	}), nil, observer.Options{Lazy: true})

	rec := &recorder{}
	observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
		if computed.Dirty() {
			if err := computed.Evaluate(); err != nil {
				return nil, err
			}
		}
		if rt.Target() != nil {
			computed.Depend()
		}
		return computed.Value(), nil
	}), rec.cb, observer.Options{})

	o.Set("n", 2)
	rt.Tick()
	assert.Equal(t, []call{{value: 12, old: 11}}, rec.calls)
}

func TestWatcherTeardown(t *testing.T) {
	rt := newRuntime(t)
	v := newVM(rt, "root", map[string]any{"n": 1})
	rec := &recorder{}
	w := observer.NewWatcher(rt, v, observer.Path("n"), rec.cb, observer.Options{})
	deps := w.Deps()
	require.Len(t, deps, 1)

	w.Teardown()
	w.Teardown()

	assert.False(t, w.Active())
	assert.False(t, deps[0].HasSubscribers())
	assert.Equal(t, 1, v.removed)
	assert.Empty(t, v.watchers)

	v.Set("n", 2)
	assert.Equal(t, 0, rt.Pending())
	assert.NoError(t, w.Run())
	assert.Empty(t, rec.calls)
}

func TestWatcherTeardownWhileOwnerDestroyed(t *testing.T) {
	rt := newRuntime(t)
	v := newVM(rt, "root", map[string]any{"n": 1})
	w := observer.NewWatcher(rt, v, observer.Path("n"), nil, observer.Options{})

	v.destroying = true
	w.Teardown()
	assert.Equal(t, 0, v.removed)
	assert.False(t, w.Active())
}

func TestWatcherUntrack(t *testing.T) {
	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{"a": 1, "b": 2})
	w := observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
		var b any
		rt.Untrack(func() { b = o.Get("b") })
		return o.Get("a").(int) + b.(int), nil
	}), nil, observer.Options{})

	assert.Equal(t, 3, w.Value())
	assert.Len(t, w.Deps(), 1)

	o.Set("b", 5)
	assert.Equal(t, 0, rt.Pending())
}

var errBoom = errors.New("boom")

func TestWatcherUserErrors(t *testing.T) {
	t.Run("getter error", func(t *testing.T) {
		rt, errs := collectErrors()
		v := newVM(rt, "root", nil)
		w := observer.NewWatcher(rt, v, observer.Func(func(observer.Owner) (any, error) {
			return 1, errBoom
		}).Named("failing"), nil, observer.Options{User: true})

		assert.Nil(t, w.Value())
		assert.Equal(t, 0, rt.Depth())
		require.Len(t, *errs, 1)
		r := (*errs)[0]
		assert.ErrorIs(t, r.err, errBoom)
		assert.Equal(t, `getter for watcher "failing"`, r.info)
		assert.Same(t, v, r.owner)

		var werr *observer.WatcherError
		require.ErrorAs(t, r.err, &werr)
		assert.Equal(t, observer.PhaseGetter, werr.Phase)
		assert.Equal(t, "root", werr.Owner)
	})

	t.Run("getter panic", func(t *testing.T) {
		rt, errs := collectErrors()
		w := observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
			panic("kaput")
		}), nil, observer.Options{User: true})

		assert.Nil(t, w.Value())
		assert.Equal(t, 0, rt.Depth())
		require.Len(t, *errs, 1)
		var perr *observer.PanicError
		require.ErrorAs(t, (*errs)[0].err, &perr)
		assert.Equal(t, "kaput", perr.Value)
		assert.NotEmpty(t, perr.Stack)
	})

	t.Run("callback error", func(t *testing.T) {
		rt, errs := collectErrors()
		o := observer.NewObject(rt, map[string]any{"n": 1})
		observer.NewWatcher(rt, nil, get(o, "n"), func(value, old any) error {
			return errBoom
		}, observer.Options{User: true})

		o.Set("n", 2)
		rt.Tick()
		require.Len(t, *errs, 1)
		assert.ErrorIs(t, (*errs)[0].err, errBoom)
		assert.Equal(t, `callback for watcher "n"`, (*errs)[0].info)
	})
}

func TestWatcherNonUserErrors(t *testing.T) {
	t.Run("evaluate returns the error", func(t *testing.T) {
		rt := newRuntime(t)
		w := observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
			return nil, errBoom
		}), nil, observer.Options{Lazy: true})

		err := w.Evaluate()
		assert.ErrorIs(t, err, errBoom)
		var werr *observer.WatcherError
		require.ErrorAs(t, err, &werr)
		assert.Equal(t, observer.PhaseGetter, werr.Phase)
		assert.True(t, w.Dirty())
		assert.Equal(t, 0, rt.Depth())
	})

	t.Run("panics propagate with a clean stack", func(t *testing.T) {
		rt := newRuntime(t)
		o := observer.NewObject(rt, map[string]any{"n": 1})
		w := observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
			o.Get("n")
			panic("kaput")
		}), nil, observer.Options{Lazy: true})

		assert.PanicsWithValue(t, "kaput", func() { _, _ = w.Get() })
		assert.Equal(t, 0, rt.Depth())
		assert.Len(t, w.Deps(), 1)
	})

	t.Run("initial evaluation is reported", func(t *testing.T) {
		rt, errs := collectErrors()
		observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
			return nil, errBoom
		}).Named("broken"), nil, observer.Options{})

		require.Len(t, *errs, 1)
		assert.ErrorIs(t, (*errs)[0].err, errBoom)
		assert.Equal(t, `getter for watcher "broken"`, (*errs)[0].info)
	})
}

func TestWatcherContainerValuesAlwaysFire(t *testing.T) {
	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{"list": []any{1}})
	rec := &recorder{}
	observer.NewWatcher(rt, nil, get(o, "list"), rec.cb, observer.Options{})

	list := o.Get("list").(*observer.Array)
	list.Push(2)
	rt.Tick()
	require.Len(t, rec.calls, 1)
	assert.Same(t, list, rec.calls[0].value)
}

func TestWatcherStructValuesCompareByValue(t *testing.T) {
	type point struct{ X, Y int }

	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{"x": 1, "other": 0})
	rec := &recorder{}
	observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
		_ = o.Get("other")
		return point{X: o.Get("x").(int), Y: 2}, nil
	}), rec.cb, observer.Options{})

	o.Set("other", 1)
	rt.Tick()
	assert.Empty(t, rec.calls)

	o.Set("x", 3)
	rt.Tick()
	assert.Equal(t, []call{{value: point{X: 3, Y: 2}, old: point{X: 1, Y: 2}}}, rec.calls)
}
