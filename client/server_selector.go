package client

import (
	"beproxy/internal"
	"github.com/zeebo/xxh3"
)

// ServerSelector picks which server to use for a given key.
// It receives the key and the number of servers, and returns the index of
// the chosen server in [0, serverCount).
type ServerSelector func(key string, serverCount int) int

// DefaultServerSelector uses Jump Hash over the key's xxh3 hash for
// consistent server selection.
// Jump Hash provides better distribution and fewer key movements when servers are added/removed.
// For a single server it returns 0; for serverCount <= 0 it also returns 0.
func DefaultServerSelector(key string, serverCount int) int {
	return internal.JumpHash(xxh3.HashString(key), serverCount)
}

// staticSelector returns a selector that always picks index modulo
// serverCount, whatever the key.
func staticSelector(index int) ServerSelector {
	return func(key string, serverCount int) int {
		return index % serverCount
	}
}
