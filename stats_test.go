package riakpb

import (
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStats_Size(t *testing.T) {
	require.Equal(t, uintptr(64), unsafe.Sizeof(PoolStats{}), "PoolStats should fit a cache line")
}

func TestPoolStatsCollector(t *testing.T) {
	c := newPoolStatsCollector()

	c.recordAcquire()
	c.recordCreate()
	c.recordActivate()
	c.recordAcquireWait(3 * time.Millisecond)
	c.recordRelease()
	c.recordAcquire()
	c.recordAcquireFromIdle()
	c.recordDeactivate()
	c.recordDestroy()
	c.recordAcquireError()

	s := c.snapshot()
	assert.Equal(t, uint64(2), s.AcquireCount)
	assert.Equal(t, uint64(1), s.AcquireWaitCount)
	assert.Equal(t, uint64(3*time.Millisecond), s.AcquireWaitTimeNs)
	assert.Equal(t, uint64(1), s.CreatedConns)
	assert.Equal(t, uint64(1), s.DestroyedConns)
	assert.Equal(t, uint64(1), s.AcquireErrors)
	assert.Equal(t, int32(0), s.TotalConns)
	assert.Equal(t, int32(0), s.IdleConns)
	assert.Equal(t, int32(0), s.ActiveConns)
}

func TestPoolStatsCollector_IdleDestroy(t *testing.T) {
	c := newPoolStatsCollector()
	c.recordCreate()
	c.recordActivate()
	c.recordRelease()
	c.recordIdleDestroy()

	s := c.snapshot()
	assert.Equal(t, int32(0), s.TotalConns)
	assert.Equal(t, int32(0), s.IdleConns)
	assert.Equal(t, uint64(1), s.DestroyedConns)
}

func TestClientStatsCollector(t *testing.T) {
	c := newClientStatsCollector()

	c.recordPing()
	c.recordGet(true)
	c.recordGet(false)
	c.recordPut()
	c.recordDelete()
	c.recordList()
	c.recordBucketOp()
	c.recordMapReduce()
	c.recordError(true)
	c.recordError(false)

	assert.Equal(t, ClientStats{
		Pings:        1,
		Gets:         2,
		GetHits:      1,
		Puts:         1,
		Deletes:      1,
		Lists:        1,
		BucketOps:    1,
		MapReduces:   1,
		ServerErrors: 1,
		Errors:       2,
	}, c.snapshot())
}

func TestClientStatsCollector_Concurrent(t *testing.T) {
	c := newClientStatsCollector()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.recordGet(true)
				c.recordError(false)
			}
		}()
	}
	wg.Wait()

	s := c.snapshot()
	assert.Equal(t, uint64(1000), s.Gets)
	assert.Equal(t, uint64(1000), s.GetHits)
	assert.Equal(t, uint64(1000), s.Errors)
}
