package backend

import (
	"beproxy/wire"
)

// drainReadable is called when a connected backend's socket reports
// readable. It reads once into the tail of rbuf, then drives the parser
// across as many complete responses as are now buffered, matching the
// source's read -> parse -> read_end/want_read -> next loop. It returns the
// failure kind (zero if none) that should trigger a reset.
func (b *Backend) drainReadable() (FailureKind, error) {
	if b.rbufused == len(b.rbuf) {
		// Buffer exhausted without completing a response: grow it rather
		// than fail outright, since a single value can legitimately exceed
		// the default buffer and must keep accumulating (want_read).
		grown := make([]byte, len(b.rbuf)*2)
		copy(grown, b.rbuf[:b.rbufused])
		b.rbuf = grown
	}

	n, err := b.conn.Read(b.rbuf[b.rbufused:])
	if err != nil {
		if isTimeout(err) {
			return FailTimeout, err
		}
		return FailReading, err
	}
	if n == 0 {
		return FailClosed, errNotConnected
	}
	b.rbufused += n

	return b.drive()
}

// drive runs the parser across b.rbuf[:rbufused] until it needs more bytes
// than are currently buffered, dispatching each completed response to the
// head of the in-flight queue in order. A GET's VALUE line puts the backend
// in read_end: the very next line must be the literal END\r\n terminator,
// or the backend fails with missingend rather than trying to reinterpret
// the stray line as some other response.
func (b *Backend) drive() (FailureKind, error) {
	for {
		if b.rbufused == 0 {
			return 0, nil
		}
		out := wire.Feed(b.rbuf[:b.rbufused])
		if out.NeedMore {
			b.wantRead = 1
			return 0, nil
		}
		// read_end is checked ahead of Feed's own error classification: once
		// a VALUE line has put the backend in read_end, anything other than
		// the literal END line is a missing-end desync, even if Feed itself
		// would have called the line malformed for some other reason.
		if b.awaitingEnd && out.Kind != wire.KindEnd {
			return FailEndSync, errMissingEnd
		}
		if out.Err != nil {
			if wire.IsTrailingData(out.Err) {
				return FailTrailingData, out.Err
			}
			return FailUnhandledRes, out.Err
		}
		b.wantRead = 0

		consumed := out.Consumed
		popped := false

		switch out.Kind {
		case wire.KindGet:
			// A GET response's matching request stays at the head until
			// the terminating END line arrives, since one request can
			// produce multiple VALUE lines for multi-key gets; this
			// module's Non-goals exclude multi-key pipelining so exactly
			// one VALUE precedes END per request. The framed buffer keeps
			// the literal VALUE line and value bytes, matching
			// return_io_pending's "buf = header + value" contract.
			req := b.queue.peekHead()
			if req == nil {
				return FailUnhandledRes, errQueueEmpty
			}
			req.pendingValue = append(req.pendingValue[:0], b.rbuf[:consumed]...)
			b.awaitingEnd = true
		case wire.KindEnd:
			req := b.queue.popHead()
			if req == nil {
				return FailUnhandledRes, errQueueEmpty
			}
			b.awaitingEnd = false
			req.pendingValue = append(req.pendingValue, b.rbuf[:consumed]...)
			b.complete(req, Result{Status: StatusOK, Kind: int(wire.KindGet), Value: req.pendingValue})
			popped = true
		case wire.KindMeta, wire.KindGeneric, wire.KindNumeric:
			req := b.queue.popHead()
			if req == nil {
				return FailUnhandledRes, errQueueEmpty
			}
			b.complete(req, Result{Status: StatusOK, Kind: int(out.Kind), Line: append([]byte(nil), out.Line...), Value: append([]byte(nil), out.Value...)})
			popped = true
		}

		remaining := b.rbufused - consumed
		copy(b.rbuf, b.rbuf[consumed:b.rbufused])
		b.rbufused = remaining

		// next: a response just completed with nothing left in flight to
		// match further buffered bytes against is a protocol desync severe
		// enough to reset, not a benign NeedMore to wait out.
		if popped && b.queue.empty() && b.rbufused > 0 {
			return FailTrailingData, errTrailingData
		}
	}
}

func (b *Backend) complete(req *Request, res Result) {
	select {
	case req.done <- res:
	default:
	}
	if b.stats != nil {
		b.stats.recordCompletion(b.Addr)
	}
}
