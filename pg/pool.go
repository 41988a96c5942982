package pg

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool is a bounded set of reusable connections. A semaphore carries one
// permit per allowed connection; idle connections stack LIFO so warm
// sockets go out first. A Pool value is shared by reference and safe for
// concurrent use.
type Pool struct {
	cfg  Config
	sem  *semaphore.Weighted
	dial func(context.Context) (*Conn, error)

	mu     sync.Mutex
	idle   []idleConn
	inUse  int
	closed bool
}

type idleConn struct {
	conn  *Conn
	since time.Time
}

// NewPool builds a pool and eagerly opens MinConnections idle connections.
// Eager connections consume no permits; permits are taken at acquisition.
func NewPool(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultConfig().MaxConnections
	}
	p := &Pool{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.MaxConnections)),
		dial: func(ctx context.Context) (*Conn, error) {
			return ConnectConfig(ctx, cfg)
		},
	}
	for i := 0; i < cfg.MinConnections; i++ {
		conn, err := p.dial(ctx)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.idle = append(p.idle, idleConn{conn: conn, since: time.Now()})
	}
	return p, nil
}

// newPoolWithDialer is the test seam: identical pool mechanics over an
// injected connection factory.
func newPoolWithDialer(cfg Config, dial func(context.Context) (*Conn, error)) *Pool {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultConfig().MaxConnections
	}
	return &Pool{
		cfg:  cfg,
		sem:  semaphore.NewWeighted(int64(cfg.MaxConnections)),
		dial: dial,
	}
}

// Acquire takes a permit and hands out a connection: the freshest idle one
// that is still within IdleTimeout, else a newly dialed one. Waiting is
// bounded by AcquireTimeout; dialing by ConnectTimeout.
func (p *Pool) Acquire(ctx context.Context) (*PooledConn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, poolClosedErr()
	}
	p.mu.Unlock()

	acquireCtx := ctx
	if p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}
	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, acquireTimeoutErr()
		}
		return nil, err
	}

	// Permit held from here on; every exit either returns a handle or
	// releases it.
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			p.sem.Release(1)
			return nil, poolClosedErr()
		}
		var candidate *Conn
		if n := len(p.idle); n > 0 {
			ic := p.idle[n-1]
			p.idle = p.idle[:n-1]
			if p.cfg.IdleTimeout > 0 && time.Since(ic.since) > p.cfg.IdleTimeout {
				p.mu.Unlock()
				ic.conn.Close() // stale; never handed out
				continue
			}
			candidate = ic.conn
		}
		if candidate != nil {
			p.inUse++
			p.mu.Unlock()
			return &PooledConn{pool: p, conn: candidate}, nil
		}
		p.mu.Unlock()
		break
	}

	dialCtx := ctx
	if p.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, p.cfg.ConnectTimeout)
		defer cancel()
	}
	conn, err := p.dial(dialCtx)
	if err != nil {
		p.sem.Release(1)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, connectTimeoutErr()
		}
		return nil, err
	}

	p.mu.Lock()
	p.inUse++
	p.mu.Unlock()
	return &PooledConn{pool: p, conn: conn}, nil
}

// release returns a connection and its permit. Healthy connections rejoin
// the idle stack; broken ones are dropped. The permit is released either
// way.
func (p *Pool) release(conn *Conn, healthy bool) {
	p.mu.Lock()
	p.inUse--
	keep := healthy && !p.closed && !conn.closed && len(p.idle) < p.cfg.MaxConnections
	if keep {
		p.idle = append(p.idle, idleConn{conn: conn, since: time.Now()})
	}
	p.mu.Unlock()
	if !keep {
		conn.Close()
	}
	p.sem.Release(1)
}

// Stats returns (in use, idle) connection counts.
func (p *Pool) Stats() (inUse, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse, len(p.idle)
}

// Close drops every idle connection and refuses further acquisition.
// Connections currently held are closed as they are released.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()
	for _, ic := range idle {
		ic.conn.Close()
	}
}

// PooledConn is the exclusive handle to one pooled connection. Release
// must be called exactly once; it always returns or discards the
// connection and frees the permit.
type PooledConn struct {
	pool     *Pool
	conn     *Conn
	broken   bool
	released bool
}

// Conn exposes the underlying connection for the duration of the hold.
func (pc *PooledConn) Conn() *Conn { return pc.conn }

// MarkBroken flags the connection so Release discards it instead of
// returning it to the idle set.
func (pc *PooledConn) MarkBroken() { pc.broken = true }

// Release returns the connection to the pool. Safe to call from a defer
// after an error path that already marked the connection broken.
func (pc *PooledConn) Release() {
	if pc.released {
		return
	}
	pc.released = true
	pc.pool.release(pc.conn, !pc.broken)
}
