package backend

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// inboundOp is one item on the cross-thread inbound list: either a new
// request to enqueue on an existing backend, or a request that a new
// backend be registered and connected.
type inboundOp struct {
	addr       string
	req        *Request
	newBackend *Backend // set only for register operations
}

// connectOutcome is the result of one Dialer.Dial attempt, handed back to
// the owning Thread over connectC once the dial resolves.
type connectOutcome struct {
	b    *Backend
	conn net.Conn
	err  error
}

// Thread is one event thread: it owns a disjoint set of Backends and the
// single Driver that multiplexes their sockets, plus one lock-guarded
// inbound list other goroutines use to hand it work. Everything else about
// a Backend is thread-local once it's registered here.
type Thread struct {
	driver Driver
	snap   *tunablesSnapshot
	source tunablesSource
	stats  *Stats

	backends map[string]*Backend

	mu      sync.Mutex
	inbound []inboundOp

	connectC       chan connectOutcome
	pendingConnect int32 // count of dial goroutines started but not yet drained; test-only synchronization aid

	stop chan struct{}
	done chan struct{}
}

// NewThread constructs an event thread around the given driver. source, if
// non-nil, is polled every refreshInterval to refresh the thread's private
// Tunables snapshot (see tunables.go); pass nil to keep the initial value
// fixed, which is how tests typically use it.
func NewThread(driver Driver, initial Tunables, source tunablesSource, stats *Stats) *Thread {
	return &Thread{
		driver:   driver,
		snap:     newTunablesSnapshot(initial),
		source:   source,
		stats:    stats,
		backends: make(map[string]*Backend),
		connectC: make(chan connectOutcome, 16),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// RegisterBackend adds addr to this thread's ownership and queues its
// initial connect as an inbound operation, so registration is safe to call
// from any goroutine, not just the thread's own.
func (t *Thread) RegisterBackend(addr string, dialer Dialer) {
	b := NewBackend(addr, dialer, t.snap, t.stats)
	t.pushInbound(inboundOp{addr: addr, newBackend: b})
}

// Enqueue submits req against the named backend. It is the external
// interface's `enqueue` + `wake_event_thread` pair collapsed into one call:
// the request lands on the inbound list and the driver's notifier fires
// immediately after.
func (t *Thread) Enqueue(addr string, req *Request) {
	t.pushInbound(inboundOp{addr: addr, req: req})
}

func (t *Thread) pushInbound(op inboundOp) {
	t.mu.Lock()
	t.inbound = append(t.inbound, op)
	t.mu.Unlock()
	t.driver.Notify()
}

// drainInbound moves the current inbound list out from under the lock and
// returns it, matching _proxy_event_handler_dequeue's pattern of holding
// the lock for the swap only, never while processing.
func (t *Thread) drainInbound() []inboundOp {
	t.mu.Lock()
	ops := t.inbound
	t.inbound = nil
	t.mu.Unlock()
	return ops
}

// dequeue processes one batch of inbound operations: registering new
// backends (and kicking off their connect) and appending requests to
// already-owned backends. A request for a backend in StateBad fails fast
// with a StatusErr result carrying errNotConnected rather than joining a
// queue that will just be
// purged on the next retry, matching the source's bad-backend fast path.
func (t *Thread) dequeue() {
	for _, op := range t.drainInbound() {
		if op.newBackend != nil {
			t.backends[op.addr] = op.newBackend
			t.startConnect(op.newBackend)
			continue
		}

		b, ok := t.backends[op.addr]
		if !ok {
			select {
			case op.req.done <- Result{Status: StatusErr, Err: errNotConnected}:
			default:
			}
			continue
		}
		if b.state == StateBad {
			select {
			case op.req.done <- Result{Status: StatusErr, Err: errNotConnected}:
			default:
			}
			if t.stats != nil {
				t.stats.recordFastFail(op.addr)
			}
			continue
		}
		b.Enqueue(op.req)
		if b.state == StateConnected {
			t.armWrite(b)
		}
	}
}

// startConnect kicks off an asynchronous connection attempt for b. The
// actual dial runs on its own goroutine so the mainloop never blocks on a
// TCP handshake; the outcome is handed back over connectC and picked up by
// drainConnects on the thread's own goroutine. b.state is set to
// StateConnecting immediately so driveRetries/dequeue won't race a second
// connect attempt onto the same backend while this one is in flight.
func (t *Thread) startConnect(b *Backend) {
	b.state = StateConnecting
	b.rbufused = 0
	b.wantRead = 0
	b.awaitingEnd = false

	atomic.AddInt32(&t.pendingConnect, 1)
	go func() {
		conn, err := b.dialer.Dial("tcp", b.Addr)
		select {
		case t.connectC <- connectOutcome{b: b, conn: conn, err: err}:
			t.driver.Notify()
		case <-t.stop:
			if conn != nil {
				conn.Close()
			}
		}
	}()
}

// applyConnectResult resolves one connect attempt's outcome against its
// backend. A failed dial is treated exactly like any other connection
// failure: reset() schedules the retry. A successful dial hands the fresh
// socket to the backend and arms write interest on it, which is what drives
// onWritable's validation write once the driver reports the fd writable.
func (t *Thread) applyConnectResult(res connectOutcome) {
	defer atomic.AddInt32(&t.pendingConnect, -1)
	if res.b.state != StateConnecting {
		// Backend was reset (or otherwise moved on) while this dial was in
		// flight; the stale socket is unwanted.
		if res.conn != nil {
			res.conn.Close()
		}
		return
	}
	if res.err != nil {
		t.resetBackend(res.b, FailConnecting, res.err)
		return
	}
	res.b.conn = res.conn
	t.armWrite(res.b)
}

// drainConnects picks up every connect attempt that has resolved since the
// last mainloop iteration without blocking for ones still in flight; those
// are picked up on a later iteration once their goroutine completes.
func (t *Thread) drainConnects() {
	for {
		select {
		case res := <-t.connectC:
			t.applyConnectResult(res)
		default:
			return
		}
	}
}

// armRead and armWrite wrap the driver's ArmRead/ArmWrite to additionally
// arm a timeout alongside every read/write interest, so a backend that
// stalls mid-handshake or mid-response is bounded by a deadline rather than
// waiting forever for an event that never comes. Connecting/validating
// backends are bounded by ConnectTimeout; once steady-state StateConnected
// traffic is flowing, ReadTimeout applies instead.
func (t *Thread) armRead(b *Backend) {
	t.driver.ArmRead(b)
	t.driver.ArmTimeout(b, t.armTimeoutFor(b))
}

func (t *Thread) armWrite(b *Backend) {
	t.driver.ArmWrite(b)
	t.driver.ArmTimeout(b, t.armTimeoutFor(b))
}

func (t *Thread) armTimeoutFor(b *Backend) time.Duration {
	if b.state == StateConnected {
		return t.snap.load().ReadTimeout
	}
	return t.snap.load().ConnectTimeout
}

// resetBackend disarms b's driver registrations (including any pending
// ArmTimeout) before tearing it down, so a timer armed against the
// now-dead socket can't outlive it and fire a spurious EventTimeout against
// whatever unrelated state b has moved to by the time it reconnects.
// Disarm must run first: reset() nils out b.conn, and the drivers need the
// live conn to look up the fd they registered it under.
func (t *Thread) resetBackend(b *Backend, kind FailureKind, cause error) {
	t.driver.Disarm(b)
	b.reset(kind, cause)
}

// Run drives the thread's mainloop until Stop is called. It is meant to be
// the sole goroutine touching this thread's backends; call it from its own
// goroutine.
func (t *Thread) Run() {
	defer close(t.done)

	var refreshTicker *time.Ticker
	if t.source != nil {
		refreshTicker = time.NewTicker(refreshInterval)
		defer refreshTicker.Stop()
		go func() {
			for {
				select {
				case <-refreshTicker.C:
					t.snap.store(t.source())
				case <-t.stop:
					return
				}
			}
		}()
	}

	for {
		select {
		case <-t.stop:
			return
		default:
		}

		t.dequeue()
		t.drainConnects()
		t.driveRetries()

		events, err := t.driver.Wait()
		if err != nil {
			continue
		}
		for _, ev := range events {
			t.handleEvent(ev)
		}
	}
}

// Stop signals the mainloop to exit and blocks until it has.
func (t *Thread) Stop() {
	close(t.stop)
	<-t.done
	t.driver.Close()
}

// driveRetries walks backends whose retry timer has elapsed (StateRetrying
// or StateBad, per retryDue) and starts a reconnect for each; reset()
// itself never reconnects, so this is the only place a failed backend is
// dialed again.
func (t *Thread) driveRetries() {
	for _, b := range t.backends {
		if !b.retryDue() {
			continue
		}
		t.startConnect(b)
	}
}

func (t *Thread) handleEvent(ev Event) {
	if ev.Kind == EventNotify {
		return
	}
	b := ev.Backend
	if b == nil {
		return
	}

	switch ev.Kind {
	case EventTimeout:
		cause := errConnectTimeout
		if b.state == StateConnected {
			cause = errReadTimeout
		}
		t.resetBackend(b, FailTimeout, cause)
	case EventWritable:
		switch b.state {
		case StateConnecting:
			if kind, err := b.onWritable(); err != nil {
				t.resetBackend(b, kind, err)
				return
			}
			t.armRead(b)
		case StateConnected:
			if kind, err := b.flushPendingWrite(); err != nil {
				t.resetBackend(b, kind, err)
				return
			}
			if b.queue.pendingWrite() > 0 {
				t.armWrite(b)
			} else {
				// Fully drained: stop the write-readiness spam and make
				// sure read interest is armed so the response(s) just
				// flushed actually get consumed.
				t.driver.DisarmWrite(b)
				t.armRead(b)
			}
		}
	case EventReadable:
		switch b.state {
		case StateValidating:
			ready, kind, err := b.validate(t.snap.load().ConnectTimeout)
			if err != nil {
				t.resetBackend(b, kind, err)
				return
			}
			if !ready {
				t.armRead(b)
				return
			}
			if b.queue.pendingWrite() > 0 {
				t.armWrite(b)
			} else {
				t.armRead(b)
			}
		case StateConnected:
			if kind, err := b.drainReadable(); err != nil {
				t.resetBackend(b, kind, err)
				return
			}
			t.armRead(b)
		}
	}
}
