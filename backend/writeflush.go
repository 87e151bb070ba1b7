package backend

import (
	"net"
)

// flushPendingWrite gathers the write buffers of every request between
// ioNext and tail (capped at MaxIOVecs) into one batched Write call,
// mirroring the source's writev-based _flush_pending_write. Go's net.Conn
// has no native writev, so net.Buffers (which the runtime lowers to
// writev/WSASend when the underlying conn supports it) stands in for the
// iovec array.
func (b *Backend) flushPendingWrite() (FailureKind, error) {
	if b.queue.pendingWrite() == 0 {
		return 0, nil
	}

	start := b.queue.ioNext
	end := start + min(b.queue.pendingWrite(), MaxIOVecs)

	bufs := make(net.Buffers, 0, end-start)
	reqs := make([]*Request, 0, end-start)
	for i := start; i < end; i++ {
		req := b.queue.buf[i]
		bufs = append(bufs, req.Buf[req.wrote:])
		reqs = append(reqs, req)
	}

	n, err := bufs.WriteTo(b.conn)
	if err != nil {
		if isTimeout(err) {
			return FailTimeout, err
		}
		return FailWriting, err
	}

	// Walk the written byte count back across the gathered requests,
	// advancing each one's write cursor and the shared ioNext index only
	// for requests that were fully flushed — a short write (partial send)
	// leaves the remainder queued at the front for the next flush.
	remaining := n
	advanced := 0
	for _, req := range reqs {
		avail := int64(len(req.Buf) - req.wrote)
		if remaining >= avail {
			remaining -= avail
			req.wrote = len(req.Buf)
			advanced++
			continue
		}
		req.wrote += int(remaining)
		remaining = 0
		break
	}
	b.queue.advanceWrite(advanced)
	return 0, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
