package backend

import (
	"bytes"
	"time"
)

const validationCommand = "version\r\n"

// validate consumes the "VERSION ...\r\n" reply the dialed backend must
// answer with before it is trusted to carry real traffic. It returns
// (ready, kind, err): ready is true once a well-formed VERSION line has been
// seen; a non-VERSION reply is FailBadValidate, a read timeout is
// FailTimeout, and any other read error is FailReadValidate.
func (b *Backend) validate(deadline time.Duration) (bool, FailureKind, error) {
	if b.conn == nil {
		return false, FailDisconnected, errNotConnected
	}
	b.conn.SetReadDeadline(timeNow().Add(deadline))
	n, err := b.conn.Read(b.rbuf[b.rbufused:])
	if err != nil {
		if isTimeout(err) {
			return false, FailTimeout, err
		}
		return false, FailReadValidate, err
	}
	b.rbufused += n

	nl := bytes.IndexByte(b.rbuf[:b.rbufused], '\n')
	if nl < 0 {
		// Not enough buffered yet; caller should re-arm read interest and
		// call validate again once more data arrives.
		return false, 0, nil
	}
	line := bytes.TrimRight(b.rbuf[:nl], "\r\n")
	if !bytes.HasPrefix(line, []byte("VERSION")) {
		return false, FailBadValidate, errBadValidate
	}

	consumed := nl + 1
	remaining := b.rbufused - consumed
	copy(b.rbuf, b.rbuf[consumed:b.rbufused])
	b.rbufused = remaining

	b.state = StateConnected
	b.failedCount = 0
	return true, 0, nil
}

// onWritable is the single place a connection attempt is resolved into a
// validated-or-failed backend, matching the source's writable-event
// dispatch for a connecting fd: by the time this fires, Thread.startConnect
// has already handed b.conn a socket (dialed off the event thread's own
// goroutine so the mainloop never blocks for a TCP handshake) and armed
// write interest on it, so this is the first point the state machine
// actually touches the socket. It writes the single validation command —
// the first Open Question the source leaves implicit (whether to buffer
// the handshake write or send it eagerly) is resolved here in favor of
// sending it immediately: the writable event guarantees the socket can
// take it, and delaying the write buys nothing but an extra event-loop
// trip.
func (b *Backend) onWritable() (FailureKind, error) {
	if b.state != StateConnecting {
		return 0, nil
	}
	if _, err := b.conn.Write([]byte(validationCommand)); err != nil {
		return FailConnecting, err
	}
	b.state = StateValidating
	b.rbufused = 0
	b.wantRead = 0
	b.awaitingEnd = false
	return 0, nil
}

var timeNow = time.Now
