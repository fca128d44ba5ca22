package riakpb

import (
	"context"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/riakpb/pbc"
)

// NewServerPool creates the pool of connections to one server.
func NewServerPool(addr string, config Config) (*ServerPool, error) {
	config = config.withDefaults()

	constructor := config.constructor
	if constructor == nil {
		constructor = func(ctx context.Context) (*Connection, error) {
			return config.dial(ctx, addr)
		}
	}

	pool, err := config.Pool(constructor, config.MaxSize)
	if err != nil {
		return nil, err
	}

	sp := &ServerPool{
		addr: addr,
		pool: pool,
	}
	if config.NewCircuitBreaker != nil {
		sp.circuitBreaker = config.NewCircuitBreaker(addr)
	}
	return sp, nil
}

// ServerPool wraps a pool, a circuit breaker with its server address.
type ServerPool struct {
	addr           string
	pool           Pool
	circuitBreaker *CircuitBreaker
}

func (sp *ServerPool) Address() string {
	return sp.addr
}

// ServerPoolStats contains stats for a single server pool
type ServerPoolStats struct {
	Addr                 string
	PoolStats            PoolStats
	CircuitBreakerState  gobreaker.State
	CircuitBreakerCounts gobreaker.Counts
}

func (sp *ServerPool) Stats() ServerPoolStats {
	stats := ServerPoolStats{
		Addr:      sp.addr,
		PoolStats: sp.pool.Stats(),
	}
	if sp.circuitBreaker != nil {
		stats.CircuitBreakerState = sp.circuitBreaker.State()
		stats.CircuitBreakerCounts = sp.circuitBreaker.Counts()
	}
	return stats
}

// Execute sends one request frame on a pooled connection and returns the
// final response record. Connections are destroyed when the error leaves
// them unusable. The request is wrapped with the server's circuit breaker.
func (sp *ServerPool) Execute(ctx context.Context, frame []byte) (pbc.Record, error) {
	if sp.circuitBreaker == nil {
		return sp.execRequestDirect(ctx, frame)
	}

	return sp.circuitBreaker.Execute(func() (pbc.Record, error) {
		return sp.execRequestDirect(ctx, frame)
	})
}

func (sp *ServerPool) execRequestDirect(ctx context.Context, frame []byte) (pbc.Record, error) {
	resource, err := sp.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := resource.Value().Do(ctx, frame)
	if err != nil {
		if pbc.ShouldCloseConnection(err) {
			resource.Destroy()
		} else {
			resource.Release()
		}
		return nil, err
	}

	resource.Release()
	return rec, nil
}

// Close closes the pool and its connections.
func (sp *ServerPool) Close() {
	sp.pool.Close()
}
