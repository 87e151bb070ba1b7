package client

import (
	"context"

	"github.com/jackc/puddle/v2"

	"beproxy/backend"
)

// ThreadPool is a pool of event threads, not connections: each
// *backend.Thread already owns every socket for the backends registered
// on it, so "acquiring" one just hands back a thread to submit work onto.
// This repurposes the same puddle-backed pooling this tree already used
// for connection pooling, pointed at a different resource
// type, matching §4.I's "pool of threads the caller spreads submissions
// across" rather than a pool of ephemeral sockets.
type ThreadPool struct {
	pool *puddle.Pool[*backend.Thread]
}

// ThreadPoolConfig configures how many event threads back a ThreadPool and
// what driver constructor each one uses.
type ThreadPoolConfig struct {
	Size          int32
	NewDriver     func() (backend.Driver, error)
	Tunables      backend.Tunables
	TunablesSource func() backend.Tunables
	Stats         *backend.Stats
}

// NewThreadPool starts Size event threads (each on its own goroutine) and
// returns a pool that hands them out round-robin via puddle's idle-first
// acquire strategy.
func NewThreadPool(cfg ThreadPoolConfig) (*ThreadPool, error) {
	stats := cfg.Stats
	if stats == nil {
		stats = backend.NewStats()
	}

	poolConfig := &puddle.Config[*backend.Thread]{
		Constructor: func(ctx context.Context) (*backend.Thread, error) {
			drv, err := cfg.NewDriver()
			if err != nil {
				return nil, err
			}
			th := backend.NewThread(drv, cfg.Tunables, cfg.TunablesSource, stats)
			go th.Run()
			return th, nil
		},
		Destructor: func(th *backend.Thread) {
			th.Stop()
		},
		MaxSize: cfg.Size,
	}

	p, err := puddle.NewPool(poolConfig)
	if err != nil {
		return nil, err
	}

	tp := &ThreadPool{pool: p}
	// Pre-warm every thread rather than lazily creating them on first
	// acquire: backend registration needs a concrete thread to register
	// against, so a cold pool would otherwise hand out threads one at a
	// time on the submission hot path.
	for i := int32(0); i < cfg.Size; i++ {
		res, err := p.Acquire(context.Background())
		if err != nil {
			p.Close()
			return nil, err
		}
		res.Release()
	}
	return tp, nil
}

// Acquire blocks until an event thread is available to submit work onto.
func (tp *ThreadPool) Acquire(ctx context.Context) (*puddle.Resource[*backend.Thread], error) {
	return tp.pool.Acquire(ctx)
}

// Close stops every event thread and releases the pool.
func (tp *ThreadPool) Close() { tp.pool.Close() }

// threadFor acquires a thread from the pool, blocking until one is idle or
// ctx is done, and returns it together with the func that releases it back
// to the pool. NewServerPool uses it to pin an address to one thread; later
// Execute calls for that address go to the pinned thread directly.
func (tp *ThreadPool) threadFor(ctx context.Context) (*backend.Thread, func(), error) {
	res, err := tp.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return res.Value(), res.Release, nil
}

// SubmitAndWait enqueues req for addr on th and blocks for its completion
// or ctx's deadline. It does not register addr: the caller (ServerPool)
// must have called RegisterBackend for addr on th beforehand, since Thread
// itself does not dedupe registrations.
func SubmitAndWait(ctx context.Context, th *backend.Thread, addr string, req *backend.Request) (backend.Result, error) {
	th.Enqueue(addr, req)
	select {
	case res := <-req.Done():
		return res, nil
	case <-ctx.Done():
		return backend.Result{}, ctx.Err()
	}
}
