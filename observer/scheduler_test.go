package observer_test

import (
	"testing"

	"github.com/2oops/vue-collections/observer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsOncePerTick(t *testing.T) {
	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{"a": 1, "b": 1})
	evaluations := 0
	rec := &recorder{}
	observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
		evaluations++
		return o.Get("a").(int) + o.Get("b").(int), nil
	}), rec.cb, observer.Options{})

	o.Set("a", 2)
	o.Set("b", 2)
	o.Set("a", 3)
	assert.Equal(t, 1, rt.Pending())
	assert.True(t, rt.HasPendingTicks())

	rt.Tick()
	assert.Equal(t, 2, evaluations)
	assert.Equal(t, []call{{value: 5, old: 2}}, rec.calls)
	assert.False(t, rt.HasPendingTicks())
}

func TestSchedulerFlushOrder(t *testing.T) {
	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{"first": 0, "second": 0})

	var order []string
	first := observer.NewWatcher(rt, nil, get(o, "first"), func(value, old any) error {
		order = append(order, "first")
		return nil
	}, observer.Options{})
	second := observer.NewWatcher(rt, nil, get(o, "second"), func(value, old any) error {
		order = append(order, "second")
		return nil
	}, observer.Options{})
	require.Less(t, first.ID(), second.ID())

	var flushed [][]*observer.Watcher
	rt.OnFlushed(func(updated []*observer.Watcher) {
		flushed = append(flushed, updated)
	})

	// queued in reverse creation order
	o.Set("second", 1)
	o.Set("first", 1)
	rt.Tick()

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, [][]*observer.Watcher{{first, second}}, flushed)
}

func TestSchedulerQueueDuringFlush(t *testing.T) {
	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{"k0": 0, "k1": 0, "k2": 0})

	var order []string
	w0 := observer.NewWatcher(rt, nil, get(o, "k0"), func(value, old any) error {
		order = append(order, "w0")
		return nil
	}, observer.Options{})
	w1 := observer.NewWatcher(rt, nil, get(o, "k1"), func(value, old any) error {
		order = append(order, "w1")
		assert.True(t, rt.Flushing())
		o.Set("k0", 1)
		o.Set("k2", 1)
		return nil
	}, observer.Options{})
	w2 := observer.NewWatcher(rt, nil, get(o, "k2"), func(value, old any) error {
		order = append(order, "w2")
		return nil
	}, observer.Options{})

	flushes := 0
	var updated []*observer.Watcher
	rt.OnFlushed(func(u []*observer.Watcher) {
		flushes++
		updated = u
	})

	o.Set("k1", 1)
	rt.Tick()

	// w0 has the smallest id but is queued after the cursor passed its slot,
	// so it runs right after the watcher that queued it
	assert.Equal(t, []string{"w1", "w0", "w2"}, order)
	assert.Equal(t, 1, flushes)
	assert.Equal(t, []*observer.Watcher{w0, w1, w2}, updated)
	assert.False(t, rt.Flushing())
}

func TestSchedulerBefore(t *testing.T) {
	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{"n": 0})

	var events []string
	observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
		events = append(events, "get")
		return o.Get("n"), nil
	}), nil, observer.Options{
		Before: func() { events = append(events, "before") },
	})

	o.Set("n", 1)
	rt.Tick()
	assert.Equal(t, []string{"get", "before", "get"}, events)
}

func TestSchedulerInfiniteLoop(t *testing.T) {
	rt, errs := collectErrors(observer.WithMaxUpdateCount(5))
	v := newVM(rt, "looper", map[string]any{"n": 0})
	runs := 0
	observer.NewWatcher(rt, v, observer.Path("n"), func(value, old any) error {
		runs++
		v.Set("n", value.(int)+1)
		return nil
	}, observer.Options{User: true})

	v.Set("n", 1)
	rt.Tick()

	assert.Equal(t, 6, runs)
	require.Len(t, *errs, 1)
	r := (*errs)[0]
	assert.ErrorIs(t, r.err, observer.ErrInfiniteUpdate)
	assert.Equal(t, "scheduler flush", r.info)

	var cerr *observer.CycleError
	require.ErrorAs(t, r.err, &cerr)
	assert.Equal(t, "n", cerr.Expression)
	assert.Equal(t, "looper", cerr.Owner)
	assert.Equal(t, 6, cerr.Count)

	// the abandoned flush leaves nothing behind
	assert.Equal(t, 0, rt.Pending())
	assert.False(t, rt.Flushing())
	assert.False(t, rt.HasPendingTicks())
}

func TestSchedulerSync(t *testing.T) {
	rt := newRuntime(t, observer.WithAsync(false))
	o := observer.NewObject(rt, map[string]any{"n": 0})
	rec := &recorder{}
	observer.NewWatcher(rt, nil, get(o, "n"), rec.cb, observer.Options{})

	o.Set("n", 1)
	assert.Equal(t, []call{{value: 1, old: 0}}, rec.calls)
	assert.False(t, rt.HasPendingTicks())
}

func TestSchedulerSyncWatcher(t *testing.T) {
	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{"n": 0})
	rec := &recorder{}
	observer.NewWatcher(rt, nil, get(o, "n"), rec.cb, observer.Options{Sync: true})

	o.Set("n", 1)
	assert.Equal(t, []call{{value: 1, old: 0}}, rec.calls)
	assert.Equal(t, 0, rt.Pending())
}

func TestSchedulerNonUserErrorsDoNotStopFlush(t *testing.T) {
	rt, errs := collectErrors()
	o := observer.NewObject(rt, map[string]any{"n": 0})

	observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
		if o.Get("n").(int) > 0 {
			return nil, errBoom
		}
		return 0, nil
	}).Named("failing"), nil, observer.Options{})
	rec := &recorder{}
	observer.NewWatcher(rt, nil, get(o, "n"), rec.cb, observer.Options{})

	o.Set("n", 1)
	rt.Tick()

	require.Len(t, *errs, 1)
	assert.ErrorIs(t, (*errs)[0].err, errBoom)
	assert.Equal(t, `getter for watcher "failing"`, (*errs)[0].info)
	assert.Len(t, rec.calls, 1)
}

func TestSchedulerRecoversFromPanic(t *testing.T) {
	rt, errs := collectErrors()
	o := observer.NewObject(rt, map[string]any{"n": 0})

	observer.NewWatcher(rt, nil, get(o, "n"), func(value, old any) error {
		if value.(int) == 1 {
			panic("kaput")
		}
		return nil
	}, observer.Options{})

	o.Set("n", 1)
	rt.Tick()

	require.Len(t, *errs, 1)
	var perr *observer.PanicError
	require.ErrorAs(t, (*errs)[0].err, &perr)
	assert.Equal(t, "nextTick", (*errs)[0].info)
	assert.False(t, rt.Flushing())
	assert.Equal(t, 0, rt.Pending())

	rec := &recorder{}
	observer.NewWatcher(rt, nil, get(o, "n"), rec.cb, observer.Options{})
	o.Set("n", 2)
	rt.Tick()
	assert.Equal(t, []call{{value: 2, old: 1}}, rec.calls)
}

func TestSchedulerTeardownBeforeTurn(t *testing.T) {
	rt := newRuntime(t)
	o := observer.NewObject(rt, map[string]any{"first": 0, "second": 0})

	var order []string
	var second *observer.Watcher
	first := observer.NewWatcher(rt, nil, get(o, "first"), func(value, old any) error {
		order = append(order, "first")
		second.Teardown()
		return nil
	}, observer.Options{})
	second = observer.NewWatcher(rt, nil, get(o, "second"), func(value, old any) error {
		order = append(order, "second")
		return nil
	}, observer.Options{})
	require.Less(t, first.ID(), second.ID())

	o.Set("second", 1)
	o.Set("first", 1)
	require.Equal(t, 2, rt.Pending())
	rt.Tick()

	assert.Equal(t, []string{"first"}, order)
	assert.False(t, second.Active())
	assert.Equal(t, 0, second.Value())
}
