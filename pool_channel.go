package riakpb

import (
	"context"
	"sync"
	"time"

	"github.com/pior/riakpb/internal/coarsetime"
)

// NewChannelPool creates a pool backed by a buffered channel of idle
// connections. This is the default pool.
func NewChannelPool(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error) {
	return &channelPool{
		constructor: constructor,
		maxSize:     maxSize,
		resources:   make(chan *channelResource, maxSize),
		freed:       make(chan struct{}, maxSize),
		stats:       newPoolStatsCollector(),
	}, nil
}

type channelResource struct {
	conn         *Connection
	pool         *channelPool
	creationTime time.Time
	lastUsedTime time.Time
}

func (r *channelResource) Value() *Connection {
	return r.conn
}

func (r *channelResource) Release() {
	r.lastUsedTime = coarsetime.Now()
	r.pool.put(r)
}

func (r *channelResource) ReleaseUnused() {
	r.pool.put(r)
}

func (r *channelResource) Destroy() {
	_ = r.conn.Close()
	r.pool.stats.recordDeactivate()
	r.pool.removeResource()
}

func (r *channelResource) CreationTime() time.Time {
	return r.creationTime
}

func (r *channelResource) IdleDuration() time.Duration {
	return coarsetime.Now().Sub(r.lastUsedTime)
}

type channelPool struct {
	constructor func(ctx context.Context) (*Connection, error)
	maxSize     int32

	mu        sync.Mutex
	resources chan *channelResource
	size      int32
	closed    bool

	// freed wakes waiters when a destroyed connection frees a slot.
	freed chan struct{}

	stats *poolStatsCollector
}

func (p *channelPool) Acquire(ctx context.Context) (Resource, error) {
	p.stats.recordAcquire()

	var waitStart time.Time
	for {
		res, err := p.tryAcquire(ctx)
		if err != nil {
			return nil, err
		}
		if res != nil {
			if !waitStart.IsZero() {
				p.stats.recordAcquireWait(time.Since(waitStart))
			}
			return res, nil
		}

		// Full: wait for a release or a free slot
		if waitStart.IsZero() {
			waitStart = time.Now()
		}
		select {
		case res, ok := <-p.resources:
			if !ok {
				p.stats.recordAcquireError()
				return nil, ErrPoolClosed
			}
			p.stats.recordAcquireFromIdle()
			if res.conn.IsClosed() {
				res.Destroy()
				continue
			}
			p.stats.recordAcquireWait(time.Since(waitStart))
			return res, nil
		case <-p.freed:
		case <-ctx.Done():
			p.stats.recordAcquireError()
			return nil, ctx.Err()
		}
	}
}

// tryAcquire returns an idle connection or a new one when the pool has room.
// It returns nil and no error when the pool is full.
func (p *channelPool) tryAcquire(ctx context.Context) (*channelResource, error) {
	for {
		var res *channelResource
		select {
		case res = <-p.resources:
		default:
		}
		if res == nil {
			break
		}

		p.stats.recordAcquireFromIdle()
		// The server may have closed an idle connection.
		if res.conn.IsClosed() {
			res.Destroy()
			continue
		}
		return res, nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	}

	if p.size >= p.maxSize {
		p.mu.Unlock()
		return nil, nil
	}
	p.size++
	p.mu.Unlock()

	conn, err := p.constructor(ctx)
	if err != nil {
		p.release()
		p.stats.recordAcquireError()
		return nil, err
	}

	p.stats.recordCreate()
	p.stats.recordActivate()

	now := coarsetime.Now()
	return &channelResource{
		conn:         conn,
		pool:         p,
		creationTime: now,
		lastUsedTime: now,
	}, nil
}

func (p *channelPool) put(res *channelResource) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = res.conn.Close()
		p.size--
		p.stats.recordDeactivate()
		p.stats.recordDestroy()
		return
	}

	select {
	case p.resources <- res:
		p.stats.recordRelease()
	default:
		_ = res.conn.Close()
		p.size--
		p.signalFreed()
		p.stats.recordDeactivate()
		p.stats.recordDestroy()
	}
}

func (p *channelPool) removeResource() {
	p.release()
	p.stats.recordDestroy()
}

// release gives back a slot taken by a connection that no longer exists.
func (p *channelPool) release() {
	p.mu.Lock()
	p.size--
	p.signalFreed()
	p.mu.Unlock()
}

func (p *channelPool) signalFreed() {
	select {
	case p.freed <- struct{}{}:
	default:
	}
}

func (p *channelPool) AcquireAllIdle() []Resource {
	var idle []Resource
	for {
		select {
		case res, ok := <-p.resources:
			if !ok {
				return idle
			}
			p.stats.recordAcquireFromIdle()
			idle = append(idle, res)
		default:
			return idle
		}
	}
}

func (p *channelPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.resources)
	p.mu.Unlock()

	for res := range p.resources {
		_ = res.conn.Close()
		p.stats.recordIdleDestroy()
	}
}

func (p *channelPool) Stats() PoolStats {
	return p.stats.snapshot()
}
