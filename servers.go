package riakpb

import (
	"errors"
	"sync"
)

var ErrNoServers = errors.New("riakpb: no servers available")

// Servers provides the current list of server addresses. The list may
// change between calls; the client creates pools lazily for new addresses.
type Servers interface {
	List() []string
}

// StaticServers is a fixed list of servers that can be replaced at runtime.
type StaticServers struct {
	mu    sync.RWMutex
	addrs []string
}

func NewStaticServers(addrs ...string) *StaticServers {
	return &StaticServers{addrs: addrs}
}

func (s *StaticServers) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addrs
}

// Set replaces the server list.
func (s *StaticServers) Set(addrs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addrs = addrs
}
