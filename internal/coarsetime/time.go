// Package coarsetime provides a clock that is refreshed every 50ms by a
// background goroutine. Reading it is much cheaper than time.Now and precise
// enough for connection idle and lifetime accounting.
package coarsetime

import (
	"sync"
	"sync/atomic"
	"time"
)

// Resolution is the refresh interval of the clock.
const Resolution = 50 * time.Millisecond

var (
	now   atomic.Int64 // unix nanoseconds
	start sync.Once
)

func run() {
	now.Store(time.Now().UnixNano())

	ticker := time.NewTicker(Resolution)
	go func() {
		for t := range ticker.C {
			now.Store(t.UnixNano())
		}
	}()
}

// Now returns the current time, late by at most Resolution. The clock starts
// on first use.
func Now() time.Time {
	start.Do(run)
	return time.Unix(0, now.Load())
}
