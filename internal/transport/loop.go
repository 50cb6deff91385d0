// Package transport implements the two-goroutine read/write loop shared by
// client and daemon peers (spec §4.3): a reader that decodes frames onto an
// inbound channel and a writer that drains an outbound channel onto the
// wire, plus the keep-alive and dead-connection timers that ride alongside
// them.
//
// This generalizes the teacher's accept/read-loop split in
// internal/ingestion/daemon.go (one goroutine per connection reading
// length-prefixed frames) to the two-goroutine-per-peer shape the protocol
// requires on both sides of the socket.
package transport

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/buildtool-accel/buildc/internal/proto"
)

// DefaultKeepAliveInterval is the recommended K from spec §4.3.
const DefaultKeepAliveInterval = 1 * time.Second

// DefaultIdleTimeout is the recommended 10xK from spec §4.3.
const DefaultIdleTimeout = 10 * DefaultKeepAliveInterval

// Peer drives one end of the wire connection: it owns a reader goroutine
// delivering inbound frames to Inbound(), a writer goroutine draining
// Outbound(), a keep-alive ticker, and an idle-connection watchdog.
type Peer struct {
	conn io.ReadWriteCloser

	keepAliveInterval time.Duration
	idleTimeout       time.Duration

	inbound  chan proto.Message
	outbound chan proto.Message

	readErr  chan error
	writeErr chan error

	lastInboundMu sync.Mutex
	lastInbound   time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

// Option configures a Peer at construction.
type Option func(*Peer)

func WithKeepAliveInterval(d time.Duration) Option { return func(p *Peer) { p.keepAliveInterval = d } }
func WithIdleTimeout(d time.Duration) Option        { return func(p *Peer) { p.idleTimeout = d } }

// NewPeer wraps conn and starts no goroutines yet; call Run to start the
// reader, writer, and watchdog loops.
func NewPeer(conn io.ReadWriteCloser, opts ...Option) *Peer {
	p := &Peer{
		conn:              conn,
		keepAliveInterval: DefaultKeepAliveInterval,
		idleTimeout:       DefaultIdleTimeout,
		inbound:           make(chan proto.Message, 256),
		outbound:          make(chan proto.Message, 256),
		readErr:           make(chan error, 1),
		writeErr:          make(chan error, 1),
		closed:            make(chan struct{}),
	}
	return p
}

// Inbound is the channel of frames decoded off the wire, in receive order.
func (p *Peer) Inbound() <-chan proto.Message { return p.inbound }

// Send enqueues m for transmission. It blocks if the outbound queue is
// full, providing the backpressure the protocol relies on (spec §5).
func (p *Peer) Send(ctx context.Context, m proto.Message) error {
	select {
	case p.outbound <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return io.ErrClosedPipe
	}
}

// Run starts the reader, writer and keep-alive watchdog and blocks until
// the connection ends (cleanly or with an error) or ctx is canceled. The
// returned error is the first failure observed by either half.
func (p *Peer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() { defer wg.Done(); p.readLoop(ctx, cancel) }()
	go func() { defer wg.Done(); p.writeLoop(ctx, cancel) }()
	go func() { defer wg.Done(); p.watchdog(ctx, cancel) }()

	<-ctx.Done()
	wg.Wait()
	close(p.inbound)
	p.closeOnce.Do(func() { close(p.closed) })

	select {
	case err := <-p.readErr:
		if err != nil && err != io.EOF {
			return err
		}
	default:
	}
	select {
	case err := <-p.writeErr:
		if err != nil {
			return err
		}
	default:
	}
	return nil
}

// readLoop decodes frames one at a time and delivers them in order.
// Reading blocks only on the underlying connection (spec §5 "suspension
// points").
func (p *Peer) readLoop(ctx context.Context, cancel context.CancelFunc) {
	r := proto.NewReader(p.conn)
	for {
		msg, err := r.ReadMessage()
		if err != nil {
			p.readErr <- err
			cancel()
			return
		}
		p.touchInbound()
		select {
		case p.inbound <- msg:
		case <-ctx.Done():
			return
		}
		if msg.Tag() == proto.TagStop {
			// Keep draining inbound until the channel closes, per spec
			// §4.3 shutdown rule, but stop is itself terminal for us once
			// observed by the consumer — the consumer decides when to
			// cancel ctx.
		}
	}
}

// writeLoop drains the outbound queue, serializing every message through a
// single proto.Writer so no two messages' bytes interleave, and injects a
// KeepAlive whenever the queue has been idle for keepAliveInterval.
func (p *Peer) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	w := proto.NewWriter(p.conn)
	ticker := time.NewTicker(p.keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-p.outbound:
			if err := w.WriteMessage(m); err != nil {
				p.writeErr <- err
				cancel()
				return
			}
			ticker.Reset(p.keepAliveInterval)
		case <-ticker.C:
			if err := w.WriteMessage(proto.NewKeepAlive()); err != nil {
				p.writeErr <- err
				cancel()
				return
			}
		}
	}
}

// watchdog declares the connection dead if no inbound frame has arrived
// within idleTimeout and cancels the peer.
func (p *Peer) watchdog(ctx context.Context, cancel context.CancelFunc) {
	p.touchInbound()
	ticker := time.NewTicker(p.keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.lastInboundMu.Lock()
			idle := time.Since(p.lastInbound)
			p.lastInboundMu.Unlock()
			if idle > p.idleTimeout {
				cancel()
				return
			}
		}
	}
}

func (p *Peer) touchInbound() {
	p.lastInboundMu.Lock()
	p.lastInbound = time.Now()
	p.lastInboundMu.Unlock()
}

// Close closes the underlying connection, causing both loops to observe an
// I/O error and unwind. Safe to call more than once.
func (p *Peer) Close() error {
	return p.conn.Close()
}
