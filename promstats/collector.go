// Package promstats exports the statistics of a riakpb.Client as Prometheus
// metrics.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(promstats.NewCollector(client, "riak"))
package promstats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/pior/riakpb"
)

// StatsSource is implemented by *riakpb.Client.
type StatsSource interface {
	Stats() riakpb.ClientStats
	AllPoolStats() []riakpb.ServerPoolStats
}

// Collector reads the statistics of its source on every scrape.
type Collector struct {
	src StatsSource

	operations    *prometheus.Desc
	getHits       *prometheus.Desc
	errors        *prometheus.Desc
	serverErrors  *prometheus.Desc
	conns         *prometheus.Desc
	acquires      *prometheus.Desc
	acquireWaits  *prometheus.Desc
	acquireErrors *prometheus.Desc
	waitSeconds   *prometheus.Desc
	created       *prometheus.Desc
	destroyed     *prometheus.Desc
	breakerState  *prometheus.Desc
	breakerFails  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for src with metric names prefixed by
// namespace.
func NewCollector(src StatsSource, namespace string) *Collector {
	desc := func(subsystem, name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
	}

	return &Collector{
		src:           src,
		operations:    desc("client", "operations_total", "Successful operations by type.", "op"),
		getHits:       desc("client", "get_hits_total", "Gets that found the object."),
		errors:        desc("client", "errors_total", "Failed operations."),
		serverErrors:  desc("client", "server_errors_total", "Operations answered with an error response."),
		conns:         desc("pool", "connections", "Connections by state.", "server", "state"),
		acquires:      desc("pool", "acquires_total", "Connection acquire attempts.", "server"),
		acquireWaits:  desc("pool", "acquire_waits_total", "Acquires that waited for a connection.", "server"),
		acquireErrors: desc("pool", "acquire_errors_total", "Failed acquires.", "server"),
		waitSeconds:   desc("pool", "acquire_wait_seconds_total", "Time spent waiting for a connection.", "server"),
		created:       desc("pool", "connections_created_total", "Connections created.", "server"),
		destroyed:     desc("pool", "connections_destroyed_total", "Connections destroyed.", "server"),
		breakerState:  desc("circuit_breaker", "state", "Circuit breaker state: 0 closed, 1 half-open, 2 open.", "server"),
		breakerFails:  desc("circuit_breaker", "consecutive_failures", "Consecutive failures seen by the breaker.", "server"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.operations
	ch <- c.getHits
	ch <- c.errors
	ch <- c.serverErrors
	ch <- c.conns
	ch <- c.acquires
	ch <- c.acquireWaits
	ch <- c.acquireErrors
	ch <- c.waitSeconds
	ch <- c.created
	ch <- c.destroyed
	ch <- c.breakerState
	ch <- c.breakerFails
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...)
	}

	for _, op := range []struct {
		name  string
		count uint64
	}{
		{"ping", s.Pings},
		{"get", s.Gets},
		{"put", s.Puts},
		{"delete", s.Deletes},
		{"list", s.Lists},
		{"bucket", s.BucketOps},
		{"mapreduce", s.MapReduces},
	} {
		counter(c.operations, op.count, op.name)
	}
	counter(c.getHits, s.GetHits)
	counter(c.errors, s.Errors)
	counter(c.serverErrors, s.ServerErrors)

	for _, sp := range c.src.AllPoolStats() {
		p := sp.PoolStats
		gauge(c.conns, float64(p.IdleConns), sp.Addr, "idle")
		gauge(c.conns, float64(p.ActiveConns), sp.Addr, "active")
		counter(c.acquires, p.AcquireCount, sp.Addr)
		counter(c.acquireWaits, p.AcquireWaitCount, sp.Addr)
		counter(c.acquireErrors, p.AcquireErrors, sp.Addr)
		ch <- prometheus.MustNewConstMetric(c.waitSeconds, prometheus.CounterValue, float64(p.AcquireWaitTimeNs)/1e9, sp.Addr)
		counter(c.created, p.CreatedConns, sp.Addr)
		counter(c.destroyed, p.DestroyedConns, sp.Addr)
		gauge(c.breakerState, breakerStateValue(sp.CircuitBreakerState), sp.Addr)
		gauge(c.breakerFails, float64(sp.CircuitBreakerCounts.ConsecutiveFailures), sp.Addr)
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
