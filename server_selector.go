package riakpb

import (
	"github.com/zeebo/xxh3"

	"github.com/pior/riakpb/internal"
)

// ServerSelector picks the index of the server handling a routing key.
// The result must be in [0, serverCount).
type ServerSelector func(key string, serverCount int) int

// DefaultServerSelector uses Jump Hash over xxh3 for consistent server
// selection: few keys move when servers are added or removed.
func DefaultServerSelector(key string, serverCount int) int {
	return internal.JumpHash(xxh3.HashString(key), serverCount)
}

// staticSelector is used in tests to always select a specific server.
func staticSelector(index int) ServerSelector {
	return func(key string, serverCount int) int {
		return index % serverCount
	}
}

// objectRoute is the routing key of an object.
func objectRoute(bucket, key string) string {
	return bucket + "/" + key
}
