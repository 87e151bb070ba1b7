package backend

import (
	"errors"
	"net"
)

var (
	errNotConnected   = errors.New("backend: not connected")
	errBadValidate    = errors.New("backend: validation reply was not VERSION")
	errQueueEmpty     = errors.New("backend: response with no pending request")
	errMissingEnd     = errors.New("backend: GET value not followed by END\\r\\n")
	errTrailingData   = errors.New("backend: bytes left over after the in-flight queue drained")
	errConnectTimeout = errors.New("backend: connect did not complete before the connect timeout")
	errReadTimeout    = errors.New("backend: no response before the read timeout")
)

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
