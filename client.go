package riakpb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pior/riakpb/pbc"
)

const (
	defaultMaxSize            = 10
	defaultHealthCheckTimeout = 5 * time.Second
)

// Querier is the object API of a Client.
type Querier interface {
	Get(ctx context.Context, bucket, key string, opts *pbc.GetOptions) (*pbc.GetResp, error)
	Put(ctx context.Context, bucket, key string, value []byte, opts *pbc.PutOptions) (*pbc.PutResp, error)
	Delete(ctx context.Context, bucket, key string, opts *pbc.DeleteOptions) error
}

// Config holds configuration for the Riak client connection pools.
type Config struct {
	// MaxSize is the maximum number of connections per server.
	// Zero means 10.
	MaxSize int32

	// MaxConnLifetime is the maximum duration a connection can be reused.
	// Zero means no limit.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum duration a connection can be idle before being closed.
	// Zero means no limit.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often to ping idle connections.
	// Zero disables health checks.
	HealthCheckInterval time.Duration

	// Dialer is the net.Dialer used to create new connections.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// Pool is the connection pool factory function.
	// If nil, uses the channel-based pool. Use NewPuddlePool for jackc/puddle.
	Pool PoolFactory

	// SelectServer picks which server handles a routing key: "bucket/key"
	// for object operations, the bucket for bucket operations and "" for
	// the others. If nil, uses DefaultServerSelector.
	SelectServer ServerSelector

	// NewCircuitBreaker creates a circuit breaker for a server.
	// Called once per server address when the pool is created.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(serverAddr string) *CircuitBreaker

	// ClientID is set on every new connection when not empty.
	ClientID []byte

	// Logger receives connection and health check events.
	// If nil, nothing is logged.
	Logger *zap.Logger

	// MaxFrameSize bounds incoming frames. Zero means pbc.DefaultMaxFrameSize.
	MaxFrameSize int

	// ReadBufferSize is the socket read buffer size of each connection.
	ReadBufferSize int

	// for testing purposes only
	constructor func(ctx context.Context) (*Connection, error)
}

func (c Config) withDefaults() Config {
	if c.MaxSize <= 0 {
		c.MaxSize = defaultMaxSize
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.Pool == nil {
		c.Pool = NewChannelPool
	}
	if c.SelectServer == nil {
		c.SelectServer = DefaultServerSelector
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

func (c Config) sessionOptions() []SessionOption {
	opts := []SessionOption{WithLogger(c.Logger)}
	if c.MaxFrameSize > 0 {
		opts = append(opts, WithMaxFrameSize(c.MaxFrameSize))
	}
	if c.ReadBufferSize > 0 {
		opts = append(opts, WithReadBufferSize(c.ReadBufferSize))
	}
	return opts
}

// dial opens a connection to addr and applies the client id.
func (c Config) dial(ctx context.Context, addr string) (*Connection, error) {
	netConn, err := c.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &pbc.ConnectionError{Op: "dial", Err: err}
	}

	conn := NewConnection(netConn, c.sessionOptions()...)

	if len(c.ClientID) > 0 {
		rec, err := conn.Do(ctx, pbc.EncodeSetClientID(c.ClientID))
		if err = expectEmpty(rec, err, pbc.CodeSetClientIDResp); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set client id: %w", err)
		}
	}
	return conn, nil
}

// Client is a Riak client that spreads requests over pools of connections,
// one pool per server.
type Client struct {
	servers Servers
	config  Config
	logger  *zap.Logger

	mu    sync.RWMutex
	pools map[string]*ServerPool

	stopHealthCheck chan struct{}
	closeOnce       sync.Once

	stats *clientStatsCollector
}

var _ Querier = (*Client)(nil)

// NewClient creates a new Riak client with the given servers and configuration.
// For a single server, use: NewClient(NewStaticServers("host:port"), config)
func NewClient(servers Servers, config Config) (*Client, error) {
	if len(servers.List()) == 0 {
		return nil, ErrNoServers
	}

	config = config.withDefaults()

	client := &Client{
		servers:         servers,
		config:          config,
		logger:          config.Logger,
		pools:           make(map[string]*ServerPool),
		stopHealthCheck: make(chan struct{}),
		stats:           newClientStatsCollector(),
	}

	if config.HealthCheckInterval > 0 {
		go client.healthCheckLoop()
	}

	return client, nil
}

// Close closes the client and destroys all connections in all pools.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.stopHealthCheck)

		c.mu.Lock()
		defer c.mu.Unlock()

		for _, sp := range c.pools {
			sp.Close()
		}
	})
}

// poolFor returns the pool of the server handling the routing key.
// Pools are created lazily.
func (c *Client) poolFor(route string) (*ServerPool, error) {
	servers := c.servers.List()
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	return c.getOrCreatePool(servers[c.config.SelectServer(route, len(servers))])
}

func (c *Client) getOrCreatePool(addr string) (*ServerPool, error) {
	c.mu.RLock()
	sp, exists := c.pools[addr]
	c.mu.RUnlock()
	if exists {
		return sp, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if sp, exists := c.pools[addr]; exists {
		return sp, nil
	}

	sp, err := NewServerPool(addr, c.config)
	if err != nil {
		return nil, err
	}
	c.pools[addr] = sp
	return sp, nil
}

func (c *Client) snapshotPools() []*ServerPool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pools := make([]*ServerPool, 0, len(c.pools))
	for _, sp := range c.pools {
		pools = append(pools, sp)
	}
	return pools
}

func (c *Client) healthCheckLoop() {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHealthCheck:
			return
		case <-ticker.C:
			for _, sp := range c.snapshotPools() {
				c.checkPoolConnections(sp)
			}
		}
	}
}

// checkPoolConnections destroys idle connections that are stale or do not
// answer a ping.
func (c *Client) checkPoolConnections(sp *ServerPool) {
	now := time.Now()

	for _, res := range sp.pool.AcquireAllIdle() {
		if c.config.MaxConnLifetime > 0 && now.Sub(res.CreationTime()) > c.config.MaxConnLifetime {
			c.logger.Debug("closing expired connection", zap.String("addr", sp.Address()))
			res.Destroy()
			continue
		}

		if c.config.MaxConnIdleTime > 0 && res.IdleDuration() > c.config.MaxConnIdleTime {
			c.logger.Debug("closing idle connection", zap.String("addr", sp.Address()))
			res.Destroy()
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), defaultHealthCheckTimeout)
		err := res.Value().Ping(ctx)
		cancel()
		if err != nil {
			c.logger.Warn("health check failed, closing connection",
				zap.String("addr", sp.Address()), zap.Error(err))
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}

// exec routes a request frame and records errors.
func (c *Client) exec(ctx context.Context, route string, frame []byte) (pbc.Record, error) {
	sp, err := c.poolFor(route)
	if err != nil {
		c.stats.recordError(false)
		return nil, err
	}

	rec, err := sp.Execute(ctx, frame)
	if err != nil {
		var serverErr *pbc.ServerError
		c.stats.recordError(errors.As(err, &serverErr))
		return nil, err
	}
	return rec, nil
}

// execExpect runs exec and converts the record to the expected type.
func execExpect[T pbc.Record](c *Client, ctx context.Context, route string, frame []byte) (T, error) {
	rec, err := c.exec(ctx, route, frame)
	if err != nil {
		var zero T
		return zero, err
	}
	r, err := expect[T](rec, nil)
	if err != nil {
		c.stats.recordError(false)
	}
	return r, err
}

func (c *Client) execEmpty(ctx context.Context, route string, frame []byte, code pbc.MessageCode) error {
	rec, err := c.exec(ctx, route, frame)
	if err != nil {
		return err
	}
	if err := expectEmpty(rec, nil, code); err != nil {
		c.stats.recordError(false)
		return err
	}
	return nil
}

// Ping pings every server and returns the errors of those that failed.
func (c *Client) Ping(ctx context.Context) error {
	var errs []error
	for _, addr := range c.servers.List() {
		sp, err := c.getOrCreatePool(addr)
		if err == nil {
			var rec pbc.Record
			rec, err = sp.Execute(ctx, pbc.EncodePing())
			err = expectEmpty(rec, err, pbc.CodePingResp)
		}
		if err != nil {
			c.stats.recordError(false)
			errs = append(errs, fmt.Errorf("%s: %w", addr, err))
		}
	}
	c.stats.recordPing()
	return errors.Join(errs...)
}

// GetServerInfo returns the node name and version of a server.
func (c *Client) GetServerInfo(ctx context.Context) (*pbc.ServerInfo, error) {
	return execExpect[*pbc.ServerInfo](c, ctx, "", pbc.EncodeGetServerInfo())
}

// Get fetches an object. A missing object is returned without contents,
// see pbc.GetResp.Found.
func (c *Client) Get(ctx context.Context, bucket, key string, opts *pbc.GetOptions) (*pbc.GetResp, error) {
	resp, err := execExpect[*pbc.GetResp](c, ctx, objectRoute(bucket, key), pbc.EncodeGet(bucket, key, opts))
	if err != nil {
		return nil, err
	}
	c.stats.recordGet(resp.Found())
	return resp, nil
}

// Put stores an object. With an empty key the server assigns one, returned
// in PutResp.Key.
func (c *Client) Put(ctx context.Context, bucket, key string, value []byte, opts *pbc.PutOptions) (*pbc.PutResp, error) {
	resp, err := execExpect[*pbc.PutResp](c, ctx, objectRoute(bucket, key), pbc.EncodePut(bucket, key, value, opts))
	if err != nil {
		return nil, err
	}
	c.stats.recordPut()
	return resp, nil
}

// Delete removes an object. Deleting a missing object succeeds.
func (c *Client) Delete(ctx context.Context, bucket, key string, opts *pbc.DeleteOptions) error {
	err := c.execEmpty(ctx, objectRoute(bucket, key), pbc.EncodeDelete(bucket, key, opts), pbc.CodeDelResp)
	if err != nil {
		return err
	}
	c.stats.recordDelete()
	return nil
}

func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	resp, err := execExpect[*pbc.ListBucketsResp](c, ctx, "", pbc.EncodeListBuckets())
	if err != nil {
		return nil, err
	}
	c.stats.recordList()
	return resp.Buckets, nil
}

// ListKeys returns every key of a bucket, collected from the streamed
// response.
func (c *Client) ListKeys(ctx context.Context, bucket string) ([]string, error) {
	resp, err := execExpect[*pbc.ListKeysResp](c, ctx, bucket, pbc.EncodeListKeys(bucket))
	if err != nil {
		return nil, err
	}
	c.stats.recordList()
	return resp.Keys, nil
}

func (c *Client) GetBucket(ctx context.Context, bucket string) (pbc.BucketProps, error) {
	resp, err := execExpect[*pbc.GetBucketResp](c, ctx, bucket, pbc.EncodeGetBucket(bucket))
	if err != nil {
		return pbc.BucketProps{}, err
	}
	c.stats.recordBucketOp()
	return resp.Props, nil
}

func (c *Client) SetBucket(ctx context.Context, bucket string, props pbc.BucketPropsUpdate) error {
	err := c.execEmpty(ctx, bucket, pbc.EncodeSetBucket(bucket, props), pbc.CodeSetBucketResp)
	if err != nil {
		return err
	}
	c.stats.recordBucketOp()
	return nil
}

// MapReduce runs a job and returns the results of every phase.
func (c *Client) MapReduce(ctx context.Context, request []byte, contentType string) (*pbc.MapReduceResp, error) {
	resp, err := execExpect[*pbc.MapReduceResp](c, ctx, "", pbc.EncodeMapReduce(request, contentType))
	if err != nil {
		return nil, err
	}
	c.stats.recordMapReduce()
	return resp, nil
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// AllPoolStats returns stats for all server pools
func (c *Client) AllPoolStats() []ServerPoolStats {
	pools := c.snapshotPools()

	stats := make([]ServerPoolStats, 0, len(pools))
	for _, sp := range pools {
		stats = append(stats, sp.Stats())
	}
	return stats
}
