package riakpb

import (
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/riakpb/pbc"
)

// CircuitBreaker guards the requests sent to one server.
type CircuitBreaker = gobreaker.CircuitBreaker[pbc.Record]

// NewCircuitBreakerConfig returns a function that creates circuit breakers
// for servers, to be used as Config.NewCircuitBreaker.
//
// The breaker trips when at least 60% of 3 or more requests failed. Error
// responses from the server do not count as failures: the server answered.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(serverAddr string) *CircuitBreaker {
	return func(serverAddr string) *CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        serverAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !pbc.ShouldCloseConnection(err)
			},
		}
		return gobreaker.NewCircuitBreaker[pbc.Record](settings)
	}
}
