package client

import (
	"bytes"
	"context"

	"beproxy/backend"
	"beproxy/meta"
)

// NewServerPool pins addr to one event thread acquired from pool and
// registers it there, so every subsequent Execute call for this address
// reuses the same backend connection. This replaces the old per-address
// socket pool: a backend now owns exactly one persistent connection for
// its whole lifetime, so there is nothing left to pool at this layer
// besides which thread answers for it.
func NewServerPool(addr string, pool *ThreadPool, dialer backend.Dialer, newBreaker func(string) CircuitBreaker) (*ServerPool, error) {
	th, _, err := pool.threadFor(context.Background())
	if err != nil {
		return nil, err
	}
	th.RegisterBackend(addr, dialer)

	sp := &ServerPool{addr: addr, thread: th}
	if newBreaker != nil {
		sp.circuitBreaker = newBreaker(addr)
	}
	return sp, nil
}

// ServerPool is the per-backend façade a Client submits through: it builds
// the wire bytes for a meta.Request, hands them to the owning event
// thread, and wraps the round trip in a circuit breaker.
type ServerPool struct {
	addr           string
	thread         *backend.Thread
	circuitBreaker CircuitBreaker
}

func (sp *ServerPool) Address() string { return sp.addr }

// ServerPoolStats reports the circuit breaker state for this backend; the
// connection-level counters now live on backend.Stats instead, since
// there's one persistent connection, not a pool of them.
type ServerPoolStats struct {
	Addr                string
	CircuitBreakerState CircuitBreakerState
}

func (sp *ServerPool) Stats() ServerPoolStats {
	stats := ServerPoolStats{Addr: sp.addr}
	if sp.circuitBreaker != nil {
		stats.CircuitBreakerState = sp.circuitBreaker.State()
	}
	return stats
}

// Execute encodes req, submits it to the backend's owning event thread,
// and waits for the parsed response, all wrapped in this pool's circuit
// breaker if one was configured.
func (sp *ServerPool) Execute(ctx context.Context, req *meta.Request) (*meta.Response, error) {
	if sp.circuitBreaker == nil {
		return sp.execRequestDirect(ctx, req)
	}
	return sp.circuitBreaker.Execute(func() (*meta.Response, error) {
		return sp.execRequestDirect(ctx, req)
	})
}

func (sp *ServerPool) execRequestDirect(ctx context.Context, req *meta.Request) (*meta.Response, error) {
	var buf bytes.Buffer
	if err := meta.WriteRequest(&buf, req); err != nil {
		return nil, err
	}

	breq := backend.NewRequest(buf.Bytes())
	res, err := SubmitAndWait(ctx, sp.thread, sp.addr, breq)
	if err != nil {
		return nil, err
	}
	if res.Status != backend.StatusOK {
		return nil, res.Err
	}
	return lineToResponse(res), nil
}

// lineToResponse adapts a backend.Result (the core's coarse
// line/value classification) into the richer meta.Response the existing
// façade callers expect. Flag parsing is intentionally shallow here: the
// core's wire parser only classifies responses, it doesn't decode meta
// flags, so full flag access still goes through meta.ReadResponse for
// callers that need it.
func lineToResponse(res backend.Result) *meta.Response {
	resp := &meta.Response{}
	if len(res.Line) >= 2 {
		resp.Status = meta.StatusType(res.Line[:2])
	}
	if res.Value != nil {
		resp.Data = res.Value
	}
	return resp
}
