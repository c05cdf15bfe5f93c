package observer

import (
	"cmp"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// FlushObserver is implemented by owners that want to hear about their watchers
// after a flush has completed, e.g. to call "updated" lifecycle hooks.
type FlushObserver interface {
	Flushed(w *Watcher)
}

// scheduler is the queue of watchers waiting for the next flush.
type scheduler struct {
	// queue is sorted by id while flushing; index is the flush cursor.
	queue []*Watcher
	index int

	// has marks watcher ids that are queued and have not run yet.
	has map[uint64]bool
	// circular counts how often a watcher was re-queued during this flush.
	circular map[uint64]int

	waiting  bool
	flushing bool

	listeners []func(updated []*Watcher)
}

func (s *scheduler) init() {
	s.has = map[uint64]bool{}
	s.circular = map[uint64]int{}
}

func (s *scheduler) reset() {
	clear(s.queue)
	s.queue = s.queue[:0]
	s.index = 0
	clear(s.has)
	clear(s.circular)
	s.waiting = false
	s.flushing = false
}

// QueueWatcher schedules w for the next flush. A watcher already waiting is
// not queued twice. While a flush is running, w is spliced into the queue at
// its id position so it still runs in this flush if the cursor has not passed
// it yet.
func (rt *Runtime) QueueWatcher(w *Watcher) {
	s := &rt.scheduler
	id := w.id
	if s.has[id] {
		return
	}
	s.has[id] = true
	rt.metrics.watcherQueued()

	if !s.flushing {
		s.queue = append(s.queue, w)
	} else {
		i := len(s.queue) - 1
		for i > s.index && s.queue[i].id > id {
			i--
		}
		s.queue = slices.Insert(s.queue, i+1, w)
	}

	if s.waiting {
		return
	}
	s.waiting = true
	if !rt.config.Async {
		rt.flushSchedulerQueue()
		return
	}
	rt.NextTick(rt.flushSchedulerQueue)
}

// OnFlushed registers fn to run after every flush with the watchers that ran,
// in ascending id order.
func (rt *Runtime) OnFlushed(fn func(updated []*Watcher)) {
	rt.scheduler.listeners = append(rt.scheduler.listeners, fn)
}

// Flushing reports whether a flush is in progress.
func (rt *Runtime) Flushing() bool {
	return rt.scheduler.flushing
}

// Pending returns how many watchers wait for the next flush.
func (rt *Runtime) Pending() int {
	return len(rt.scheduler.queue) - rt.scheduler.index
}

// flushSchedulerQueue runs every queued watcher once, parents before children.
//
// Sorting by id ensures that
//  1. owners update from parent to child, because parents are created first
//  2. a user watcher runs before its owner's render watcher, because user
//     watchers are created before the render watcher
//  3. a watcher torn down by its parent's run is skipped
func (rt *Runtime) flushSchedulerQueue() {
	s := &rt.scheduler
	start := time.Now()
	_, span := rt.config.Tracer.Start(rt.ctx, "observer.flush")
	defer span.End()

	s.flushing = true
	completed := false
	defer func() {
		// a panicking watcher unwinds through here; leave the scheduler usable
		if !completed {
			s.reset()
		}
	}()

	slices.SortFunc(s.queue, func(a, b *Watcher) int {
		return cmp.Compare(a.id, b.id)
	})

	// the queue may grow while watchers run, so its length is re-read every pass
	runs := 0
	for s.index = 0; s.index < len(s.queue); s.index++ {
		w := s.queue[s.index]
		if w.before != nil {
			w.before()
		}
		id := w.id
		delete(s.has, id)
		if err := w.Run(); err != nil {
			w.report(err)
		}
		runs++

		if s.has[id] {
			s.circular[id]++
			if s.circular[id] > rt.config.MaxUpdateCount {
				cerr := &CycleError{
					Expression: w.expression,
					Owner:      ownerName(w.owner),
					Count:      s.circular[id],
				}
				span.RecordError(cerr)
				span.SetStatus(codes.Error, cerr.Error())
				rt.metrics.cycleDetected()
				rt.HandleError(cerr, w.owner, "scheduler flush")
				break
			}
		}
	}

	// the updated queue excludes watchers the cursor never reached; a watcher
	// that re-queued itself is listed once
	end := min(s.index+1, len(s.queue))
	updated := slices.Clone(s.queue[:end])
	slices.SortFunc(updated, func(a, b *Watcher) int {
		return cmp.Compare(a.id, b.id)
	})
	updated = slices.Compact(updated)
	queued := len(s.queue)

	s.reset()
	completed = true

	span.SetAttributes(
		attribute.Int("observer.queue_length", queued),
		attribute.Int("observer.runs", runs),
	)
	rt.metrics.flushed(runs, time.Since(start))

	rt.callFlushedHooks(updated)
}

func (rt *Runtime) callFlushedHooks(updated []*Watcher) {
	for _, w := range updated {
		if fo, ok := w.owner.(FlushObserver); ok {
			fo.Flushed(w)
		}
	}
	for _, fn := range rt.scheduler.listeners {
		fn(updated)
	}
}
