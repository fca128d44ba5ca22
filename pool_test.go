package riakpb

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/riakpb/internal/testutils"
)

func mockConstructor(created *atomic.Int32) func(ctx context.Context) (*Connection, error) {
	return func(ctx context.Context) (*Connection, error) {
		if created != nil {
			created.Add(1)
		}
		return NewConnection(testutils.NewConnectionMock()), nil
	}
}

var poolFactories = map[string]PoolFactory{
	"channel": NewChannelPool,
	"puddle":  NewPuddlePool,
}

func TestPool(t *testing.T) {
	for name, factory := range poolFactories {
		t.Run(name, func(t *testing.T) {
			t.Run("acquire and reuse", func(t *testing.T) {
				var created atomic.Int32
				pool, err := factory(mockConstructor(&created), 2)
				require.NoError(t, err)
				defer pool.Close()

				res, err := pool.Acquire(context.Background())
				require.NoError(t, err)
				conn := res.Value()
				require.NotNil(t, conn)
				res.Release()

				res, err = pool.Acquire(context.Background())
				require.NoError(t, err)
				require.Same(t, conn, res.Value(), "idle connection is reused")
				res.Release()

				require.Equal(t, int32(1), created.Load())
			})

			t.Run("closed idle connection is replaced", func(t *testing.T) {
				var created atomic.Int32
				pool, err := factory(mockConstructor(&created), 2)
				require.NoError(t, err)
				defer pool.Close()

				res, err := pool.Acquire(context.Background())
				require.NoError(t, err)
				conn := res.Value()
				res.Release()

				require.NoError(t, conn.Close())

				res, err = pool.Acquire(context.Background())
				require.NoError(t, err)
				require.NotSame(t, conn, res.Value())
				require.False(t, res.Value().IsClosed())
				res.Release()

				require.Equal(t, int32(2), created.Load())
			})

			t.Run("destroy closes the connection", func(t *testing.T) {
				pool, err := factory(mockConstructor(nil), 1)
				require.NoError(t, err)
				defer pool.Close()

				res, err := pool.Acquire(context.Background())
				require.NoError(t, err)
				conn := res.Value()
				res.Destroy()
				require.Eventually(t, conn.IsClosed, time.Second, time.Millisecond)

				// The slot is free again.
				res, err = pool.Acquire(context.Background())
				require.NoError(t, err)
				res.Release()
			})

			t.Run("full pool waits for the context", func(t *testing.T) {
				pool, err := factory(mockConstructor(nil), 1)
				require.NoError(t, err)
				defer pool.Close()

				res, err := pool.Acquire(context.Background())
				require.NoError(t, err)
				defer res.Release()

				ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
				defer cancel()
				_, err = pool.Acquire(ctx)
				require.ErrorIs(t, err, context.DeadlineExceeded)
			})

			t.Run("full pool gets the released connection", func(t *testing.T) {
				pool, err := factory(mockConstructor(nil), 1)
				require.NoError(t, err)
				defer pool.Close()

				res, err := pool.Acquire(context.Background())
				require.NoError(t, err)

				go func() {
					time.Sleep(10 * time.Millisecond)
					res.Release()
				}()

				res2, err := pool.Acquire(context.Background())
				require.NoError(t, err)
				require.Same(t, res.Value(), res2.Value())
				res2.Release()
			})

			t.Run("full pool gets a slot freed by destroy", func(t *testing.T) {
				var created atomic.Int32
				pool, err := factory(mockConstructor(&created), 1)
				require.NoError(t, err)
				defer pool.Close()

				res, err := pool.Acquire(context.Background())
				require.NoError(t, err)

				go func() {
					time.Sleep(10 * time.Millisecond)
					res.Destroy()
				}()

				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				res2, err := pool.Acquire(ctx)
				require.NoError(t, err)
				require.False(t, res2.Value().IsClosed())
				res2.Release()

				require.Equal(t, int32(2), created.Load())
			})

			t.Run("acquire all idle", func(t *testing.T) {
				pool, err := factory(mockConstructor(nil), 3)
				require.NoError(t, err)
				defer pool.Close()

				var held []Resource
				for range 3 {
					res, err := pool.Acquire(context.Background())
					require.NoError(t, err)
					held = append(held, res)
				}
				for _, res := range held {
					res.Release()
				}

				idle := pool.AcquireAllIdle()
				require.Len(t, idle, 3)
				for _, res := range idle {
					res.ReleaseUnused()
				}
			})

			t.Run("closed pool", func(t *testing.T) {
				pool, err := factory(mockConstructor(nil), 2)
				require.NoError(t, err)

				res, err := pool.Acquire(context.Background())
				require.NoError(t, err)
				conn := res.Value()
				res.Release()

				pool.Close()
				require.Eventually(t, conn.IsClosed, time.Second, time.Millisecond)

				_, err = pool.Acquire(context.Background())
				require.ErrorIs(t, err, ErrPoolClosed)
			})

			t.Run("constructor error", func(t *testing.T) {
				dialErr := errors.New("connection refused")
				pool, err := factory(func(ctx context.Context) (*Connection, error) {
					return nil, dialErr
				}, 2)
				require.NoError(t, err)
				defer pool.Close()

				_, err = pool.Acquire(context.Background())
				require.ErrorIs(t, err, dialErr)
			})
		})
	}
}

func TestChannelPool_Stats(t *testing.T) {
	pool, err := NewChannelPool(mockConstructor(nil), 2)
	require.NoError(t, err)

	ctx := context.Background()
	require.Equal(t, PoolStats{}, pool.Stats())

	res1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	res2, err := pool.Acquire(ctx)
	require.NoError(t, err)

	stats := pool.Stats()
	assert.Equal(t, int32(2), stats.TotalConns)
	assert.Equal(t, int32(2), stats.ActiveConns)
	assert.Equal(t, int32(0), stats.IdleConns)
	assert.Equal(t, uint64(2), stats.AcquireCount)
	assert.Equal(t, uint64(2), stats.CreatedConns)

	res1.Release()
	res2.Destroy()

	stats = pool.Stats()
	assert.Equal(t, int32(1), stats.TotalConns)
	assert.Equal(t, int32(0), stats.ActiveConns)
	assert.Equal(t, int32(1), stats.IdleConns)
	assert.Equal(t, uint64(1), stats.DestroyedConns)

	res1, err = pool.Acquire(ctx)
	require.NoError(t, err)
	stats = pool.Stats()
	assert.Equal(t, int32(1), stats.ActiveConns)
	assert.Equal(t, int32(0), stats.IdleConns)
	assert.Equal(t, uint64(3), stats.AcquireCount)
	assert.Equal(t, uint64(2), stats.CreatedConns)
	res1.Release()

	pool.Close()
	stats = pool.Stats()
	assert.Equal(t, int32(0), stats.TotalConns)
	assert.Equal(t, int32(0), stats.IdleConns)
	assert.Equal(t, uint64(2), stats.DestroyedConns)

	_, err = pool.Acquire(ctx)
	require.ErrorIs(t, err, ErrPoolClosed)
	assert.Equal(t, uint64(1), pool.Stats().AcquireErrors)
}

func TestChannelPool_WaitStats(t *testing.T) {
	pool, err := NewChannelPool(mockConstructor(nil), 1)
	require.NoError(t, err)
	defer pool.Close()

	res, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	go func() {
		time.Sleep(5 * time.Millisecond)
		res.Release()
	}()

	res2, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	res2.Release()

	stats := pool.Stats()
	assert.Equal(t, uint64(1), stats.AcquireWaitCount)
	assert.NotZero(t, stats.AcquireWaitTimeNs)
}

func TestPuddlePool_Stats(t *testing.T) {
	pool, err := NewPuddlePool(mockConstructor(nil), 2)
	require.NoError(t, err)
	defer pool.Close()

	res, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	stats := pool.Stats()
	assert.Equal(t, int32(1), stats.TotalConns)
	assert.Equal(t, int32(1), stats.ActiveConns)
	assert.Equal(t, uint64(1), stats.CreatedConns)

	res.Destroy()
	require.Eventually(t, func() bool {
		return pool.Stats().DestroyedConns == 1
	}, time.Second, time.Millisecond)
}
