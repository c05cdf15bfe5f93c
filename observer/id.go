package observer

import "sync/atomic"

var (
	depIDCounter     uint64
	watcherIDCounter uint64
)

// nextDepID returns the next dependency id. Ids are never reused.
func nextDepID() uint64 {
	return atomic.AddUint64(&depIDCounter, 1)
}

// nextWatcherID returns the next watcher id. Watcher ids double as the flush
// order, so a watcher created before another always has the smaller id.
func nextWatcherID() uint64 {
	return atomic.AddUint64(&watcherIDCounter, 1)
}
