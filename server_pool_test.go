package riakpb

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"

	"github.com/pior/riakpb/internal/testutils"
	"github.com/pior/riakpb/pbc"
)

func TestServerPool_Execute(t *testing.T) {
	server := testutils.NewFakeServer(t)

	sp, err := NewServerPool(server.Addr(), Config{})
	require.NoError(t, err)
	defer sp.Close()

	require.Equal(t, server.Addr(), sp.Address())

	rec, err := sp.Execute(context.Background(), pbc.EncodePing())
	require.NoError(t, err)
	require.Equal(t, pbc.CodePingResp, rec.MessageCode())

	stats := sp.Stats()
	require.Equal(t, server.Addr(), stats.Addr)
	require.Equal(t, int32(1), stats.PoolStats.IdleConns)
	require.Equal(t, gobreaker.StateClosed, stats.CircuitBreakerState)
}

func TestServerPool_ServerErrorReleases(t *testing.T) {
	server := testutils.NewFakeServer(t)
	server.FailWith(pbc.CodeGetReq, "overload")

	sp, err := NewServerPool(server.Addr(), Config{})
	require.NoError(t, err)
	defer sp.Close()

	_, err = sp.Execute(context.Background(), pbc.EncodeGet("b", "k", nil))
	var serverErr *pbc.ServerError
	require.ErrorAs(t, err, &serverErr)
	require.False(t, pbc.ShouldCloseConnection(err))

	stats := sp.Stats().PoolStats
	require.Equal(t, int32(1), stats.IdleConns)
	require.Zero(t, stats.DestroyedConns)
}

func TestServerPool_ConnectionErrorDestroys(t *testing.T) {
	server := testutils.NewFakeServer(t)
	server.DropOn(pbc.CodeGetReq)

	sp, err := NewServerPool(server.Addr(), Config{})
	require.NoError(t, err)
	defer sp.Close()

	_, err = sp.Execute(context.Background(), pbc.EncodeGet("b", "k", nil))
	require.ErrorIs(t, err, ErrConnectionClosed)

	stats := sp.Stats().PoolStats
	require.Equal(t, int32(0), stats.TotalConns)
	require.Equal(t, uint64(1), stats.DestroyedConns)
}

func TestServerPool_Constructor(t *testing.T) {
	var created atomic.Int32
	sp, err := NewServerPool("mock:8087", Config{
		constructor:       mockConstructor(&created),
		NewCircuitBreaker: NewCircuitBreakerConfig(1, 0, 0),
	})
	require.NoError(t, err)
	defer sp.Close()

	res, err := sp.pool.Acquire(context.Background())
	require.NoError(t, err)
	res.Release()

	require.Equal(t, int32(1), created.Load())
	require.NotNil(t, sp.circuitBreaker)
	require.Equal(t, "mock:8087", sp.circuitBreaker.Name())
	require.Equal(t, gobreaker.StateClosed, sp.Stats().CircuitBreakerState)
}
