package backend

import (
	"net"
	"time"
)

// Backend owns exactly one persistent upstream connection and the FIFO of
// requests pipelined onto it. All fields below are touched exclusively by
// the owning event thread's goroutine; nothing here is safe for concurrent
// access from outside that thread (the inbound list is the only
// cross-thread surface, and it has its own lock — see thread.go).
type Backend struct {
	Addr string

	conn  net.Conn
	state State

	rbuf      []byte
	rbufused  int
	wantRead  int  // bytes still needed before the parser can resume (want_read)
	awaitingEnd bool // true between a GET's VALUE line and its mandatory END line (read_end)

	queue *ring

	failedCount int
	badSince    time.Time
	retryAt     time.Time

	dialer  Dialer
	tun     *tunablesSnapshot
	stats   *Stats
	onReset func(addr string, kind FailureKind)
}

// NewBackend constructs a Backend in the disconnected state, ready to be
// driven by an event thread.
func NewBackend(addr string, dialer Dialer, tun *tunablesSnapshot, stats *Stats) *Backend {
	if dialer == nil {
		dialer = netDialer{snap: tun}
	}
	return &Backend{
		Addr:   addr,
		state:  StateDisconnected,
		rbuf:   make([]byte, readBufSize),
		queue:  newRing(MaxIOVecs),
		dialer: dialer,
		tun:    tun,
		stats:  stats,
	}
}

// tunables returns the backend's current live configuration snapshot.
func (b *Backend) tunables() Tunables { return b.tun.load() }

// Enqueue appends req to this backend's FIFO. It is only ever called from
// the owning event thread's dequeuer (see thread.go); Backend itself never
// locks.
func (b *Backend) Enqueue(req *Request) {
	b.queue.pushTail(req)
}

// QueueDepth reports the number of requests currently in flight, for
// metrics and tests.
func (b *Backend) QueueDepth() int { return b.queue.len() }

// State reports the current lifecycle state.
func (b *Backend) State() State { return b.state }
