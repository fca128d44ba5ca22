package riakpb

import (
	"context"
	"errors"
	"time"
)

var ErrPoolClosed = errors.New("riakpb: pool closed")

// Resource is a connection acquired from a Pool. It must be handed back
// with exactly one of Release, ReleaseUnused or Destroy.
type Resource interface {
	Value() *Connection
	// Release returns the connection to the pool and marks it used.
	Release()
	// ReleaseUnused returns the connection without touching its idle time.
	ReleaseUnused()
	// Destroy closes the connection and frees its slot.
	Destroy()
	CreationTime() time.Time
	IdleDuration() time.Duration
}

// Pool holds the connections to one server.
type Pool interface {
	Acquire(ctx context.Context) (Resource, error)
	// AcquireAllIdle acquires every idle connection, for health checks.
	AcquireAllIdle() []Resource
	Close()
	Stats() PoolStats
}

// PoolFactory builds a Pool from a connection constructor.
type PoolFactory func(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error)
