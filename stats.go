package riakpb

import (
	"sync/atomic"
	"time"
)

// PoolStats contains statistics about a connection pool.
//
// Struct is optimized to fit within a single cache line (64 bytes).
// Fields are ordered largest to smallest for optimal memory layout.
type PoolStats struct {
	// Lifetime counters
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	CreatedConns      uint64 // Total connections created
	DestroyedConns    uint64 // Total connections destroyed
	AcquireErrors     uint64 // Failed acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	// Current state gauges
	TotalConns  int32 // Total connections in pool (active + idle)
	IdleConns   int32 // Idle connections available
	ActiveConns int32 // Connections currently in use
	_           int32
}

// ClientStats contains counters of client operations.
type ClientStats struct {
	Pings        uint64
	Gets         uint64
	GetHits      uint64 // Gets that found the object
	Puts         uint64
	Deletes      uint64
	Lists        uint64 // ListBuckets and ListKeys
	BucketOps    uint64 // GetBucket and SetBucket
	MapReduces   uint64
	ServerErrors uint64 // Requests answered with an error response
	Errors       uint64 // Total errors across all operations
}

// poolStatsCollector provides internal methods for updating pool stats.
type poolStatsCollector struct {
	stats *PoolStats
}

func newPoolStatsCollector() *poolStatsCollector {
	return &poolStatsCollector{
		stats: &PoolStats{},
	}
}

func (c *poolStatsCollector) recordAcquire() {
	atomic.AddUint64(&c.stats.AcquireCount, 1)
}

func (c *poolStatsCollector) recordAcquireWait(duration time.Duration) {
	atomic.AddUint64(&c.stats.AcquireWaitCount, 1)
	atomic.AddUint64(&c.stats.AcquireWaitTimeNs, uint64(duration.Nanoseconds()))
}

func (c *poolStatsCollector) recordCreate() {
	atomic.AddUint64(&c.stats.CreatedConns, 1)
	atomic.AddInt32(&c.stats.TotalConns, 1)
}

func (c *poolStatsCollector) recordDestroy() {
	atomic.AddUint64(&c.stats.DestroyedConns, 1)
	atomic.AddInt32(&c.stats.TotalConns, -1)
}

// recordIdleDestroy records the destruction of an idle connection.
func (c *poolStatsCollector) recordIdleDestroy() {
	atomic.AddInt32(&c.stats.IdleConns, -1)
	c.recordDestroy()
}

func (c *poolStatsCollector) recordAcquireError() {
	atomic.AddUint64(&c.stats.AcquireErrors, 1)
}

func (c *poolStatsCollector) recordAcquireFromIdle() {
	atomic.AddInt32(&c.stats.IdleConns, -1)
	atomic.AddInt32(&c.stats.ActiveConns, 1)
}

func (c *poolStatsCollector) recordActivate() {
	atomic.AddInt32(&c.stats.ActiveConns, 1)
}

func (c *poolStatsCollector) recordDeactivate() {
	atomic.AddInt32(&c.stats.ActiveConns, -1)
}

func (c *poolStatsCollector) recordRelease() {
	atomic.AddInt32(&c.stats.IdleConns, 1)
	atomic.AddInt32(&c.stats.ActiveConns, -1)
}

func (c *poolStatsCollector) snapshot() PoolStats {
	return PoolStats{
		TotalConns:        atomic.LoadInt32(&c.stats.TotalConns),
		IdleConns:         atomic.LoadInt32(&c.stats.IdleConns),
		ActiveConns:       atomic.LoadInt32(&c.stats.ActiveConns),
		AcquireCount:      atomic.LoadUint64(&c.stats.AcquireCount),
		AcquireWaitCount:  atomic.LoadUint64(&c.stats.AcquireWaitCount),
		CreatedConns:      atomic.LoadUint64(&c.stats.CreatedConns),
		DestroyedConns:    atomic.LoadUint64(&c.stats.DestroyedConns),
		AcquireErrors:     atomic.LoadUint64(&c.stats.AcquireErrors),
		AcquireWaitTimeNs: atomic.LoadUint64(&c.stats.AcquireWaitTimeNs),
	}
}

// clientStatsCollector provides internal methods for updating client stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{
		stats: &ClientStats{},
	}
}

func (c *clientStatsCollector) recordPing() {
	atomic.AddUint64(&c.stats.Pings, 1)
}

func (c *clientStatsCollector) recordGet(found bool) {
	atomic.AddUint64(&c.stats.Gets, 1)
	if found {
		atomic.AddUint64(&c.stats.GetHits, 1)
	}
}

func (c *clientStatsCollector) recordPut() {
	atomic.AddUint64(&c.stats.Puts, 1)
}

func (c *clientStatsCollector) recordDelete() {
	atomic.AddUint64(&c.stats.Deletes, 1)
}

func (c *clientStatsCollector) recordList() {
	atomic.AddUint64(&c.stats.Lists, 1)
}

func (c *clientStatsCollector) recordBucketOp() {
	atomic.AddUint64(&c.stats.BucketOps, 1)
}

func (c *clientStatsCollector) recordMapReduce() {
	atomic.AddUint64(&c.stats.MapReduces, 1)
}

// recordError counts a failed operation. Server errors are also counted
// apart.
func (c *clientStatsCollector) recordError(serverError bool) {
	atomic.AddUint64(&c.stats.Errors, 1)
	if serverError {
		atomic.AddUint64(&c.stats.ServerErrors, 1)
	}
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Pings:        atomic.LoadUint64(&c.stats.Pings),
		Gets:         atomic.LoadUint64(&c.stats.Gets),
		GetHits:      atomic.LoadUint64(&c.stats.GetHits),
		Puts:         atomic.LoadUint64(&c.stats.Puts),
		Deletes:      atomic.LoadUint64(&c.stats.Deletes),
		Lists:        atomic.LoadUint64(&c.stats.Lists),
		BucketOps:    atomic.LoadUint64(&c.stats.BucketOps),
		MapReduces:   atomic.LoadUint64(&c.stats.MapReduces),
		ServerErrors: atomic.LoadUint64(&c.stats.ServerErrors),
		Errors:       atomic.LoadUint64(&c.stats.Errors),
	}
}
