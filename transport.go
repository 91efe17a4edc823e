package iiwa

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-zeromq/zmq4"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"
)

// Transport is the asynchronous message link to the remote controller.
// OutputBuffer borrows a pooled builder; AsyncSend takes ownership of
// the builder back and must never block on network I/O. RunReactor
// drives the actual sends (and inbound receipt) until ctx is canceled,
// draining any queued messages before returning.
type Transport interface {
	OutputBuffer() *flatbuffers.Builder
	AsyncSend(b *flatbuffers.Builder)
	RunReactor(ctx context.Context)
	Close() error
}

// MonitorSource is implemented by transports that deliver inbound
// monitor messages. The handler runs on the reactor goroutine.
type MonitorSource interface {
	SetMonitorFunc(fn func(payload []byte))
}

// ConnectionError reports a failed bind or connect of the bridge
// transport, with both attempted endpoints attached.
type ConnectionError struct {
	LocalAddress  string
	RemoteAddress string
	Err           error
}

func (e *ConnectionError) Error() string {
	return errors.Wrapf(e.Err, "unable to connect bridge transport from %s to %s",
		e.LocalAddress, e.RemoteAddress).Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// sendQueueDepth bounds the number of messages waiting for the reactor.
// A control loop outrunning the link drops the oldest pending message
// rather than stalling.
const sendQueueDepth = 8

const builderStartSize = 512

// dealerTransport speaks ZeroMQ DEALER to the bridge application on the
// cabinet: bind the local endpoint, connect the remote one, exchange
// single-frame FlatBuffers messages in both directions.
type dealerTransport struct {
	logger logging.Logger
	sock   zmq4.Socket

	sendq chan *flatbuffers.Builder
	recvq chan []byte

	poolMu sync.Mutex
	pool   []*flatbuffers.Builder

	monitorMu sync.Mutex
	monitorFn func(payload []byte)

	recvCancel  context.CancelFunc
	recvWorkers sync.WaitGroup

	dropped              uint64
	consecutiveSuccesses uint64
	consecutiveFailures  uint64
}

// dialFunc builds a connected transport. Swappable so tests can supply
// recording stubs without a socket.
type dialFunc func(local, remote string, logger logging.Logger) (Transport, error)

func newDealerTransport(local, remote string, logger logging.Logger) (Transport, error) {
	sockCtx, cancel := context.WithCancel(context.Background())
	sock := zmq4.NewDealer(sockCtx)

	if err := sock.Listen(local); err != nil {
		cancel()
		goutils.UncheckedError(sock.Close())
		return nil, &ConnectionError{LocalAddress: local, RemoteAddress: remote, Err: err}
	}
	if err := sock.Dial(remote); err != nil {
		cancel()
		goutils.UncheckedError(sock.Close())
		return nil, &ConnectionError{LocalAddress: local, RemoteAddress: remote, Err: err}
	}

	t := &dealerTransport{
		logger:     logger,
		sock:       sock,
		sendq:      make(chan *flatbuffers.Builder, sendQueueDepth),
		recvq:      make(chan []byte, sendQueueDepth),
		recvCancel: cancel,
	}

	t.recvWorkers.Add(1)
	goutils.ManagedGo(t.recvLoop, t.recvWorkers.Done)

	return t, nil
}

// recvLoop blocks on the socket and forwards inbound payloads to the
// reactor. It exits when Close cancels the socket context.
func (t *dealerTransport) recvLoop() {
	for {
		msg, err := t.sock.Recv()
		if err != nil {
			return
		}
		if len(msg.Frames) == 0 {
			continue
		}
		payload := msg.Frames[len(msg.Frames)-1]
		select {
		case t.recvq <- payload:
		default:
			// reactor is behind; keep only the freshest monitor data
		}
	}
}

func (t *dealerTransport) SetMonitorFunc(fn func(payload []byte)) {
	t.monitorMu.Lock()
	defer t.monitorMu.Unlock()
	t.monitorFn = fn
}

// OutputBuffer borrows a reset builder from the pool, growing the pool
// on demand. Builders return to the pool after the reactor sends them.
func (t *dealerTransport) OutputBuffer() *flatbuffers.Builder {
	t.poolMu.Lock()
	defer t.poolMu.Unlock()
	if n := len(t.pool); n > 0 {
		b := t.pool[n-1]
		t.pool = t.pool[:n-1]
		b.Reset()
		return b
	}
	return flatbuffers.NewBuilder(builderStartSize)
}

func (t *dealerTransport) release(b *flatbuffers.Builder) {
	t.poolMu.Lock()
	defer t.poolMu.Unlock()
	t.pool = append(t.pool, b)
}

// AsyncSend queues a finished builder for the reactor. It never blocks:
// when the queue is full the oldest pending message is discarded to
// make room for the new one.
func (t *dealerTransport) AsyncSend(b *flatbuffers.Builder) {
	for {
		select {
		case t.sendq <- b:
			return
		default:
		}
		select {
		case old := <-t.sendq:
			t.release(old)
			atomic.AddUint64(&t.dropped, 1)
		default:
		}
	}
}

// RunReactor services queued sends and inbound monitor payloads until
// ctx is canceled, then drains the remaining send queue and returns.
func (t *dealerTransport) RunReactor(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case b := <-t.sendq:
					t.send(b)
				default:
					return
				}
			}
		case b := <-t.sendq:
			t.send(b)
		case payload := <-t.recvq:
			t.deliver(payload)
		}
	}
}

func (t *dealerTransport) send(b *flatbuffers.Builder) {
	if err := t.sock.Send(zmq4.NewMsg(b.FinishedBytes())); err != nil {
		t.logger.Debugw("bridge send failed", "error", err)
		atomic.StoreUint64(&t.consecutiveSuccesses, 0)
		atomic.AddUint64(&t.consecutiveFailures, 1)
	} else {
		atomic.StoreUint64(&t.consecutiveFailures, 0)
		atomic.AddUint64(&t.consecutiveSuccesses, 1)
	}
	t.release(b)
}

func (t *dealerTransport) deliver(payload []byte) {
	t.monitorMu.Lock()
	fn := t.monitorFn
	t.monitorMu.Unlock()
	if fn != nil {
		fn(payload)
	}
}

// DroppedSends reports how many queued messages were discarded because
// the control loop outran the link.
func (t *dealerTransport) DroppedSends() uint64 {
	return atomic.LoadUint64(&t.dropped)
}

// SendCounters reports the current consecutive-success and
// consecutive-failure runs of the reactor's sends. A successful send
// zeroes the failure run and vice versa.
func (t *dealerTransport) SendCounters() (successes, failures uint64) {
	return atomic.LoadUint64(&t.consecutiveSuccesses), atomic.LoadUint64(&t.consecutiveFailures)
}

// Close shuts the socket down, which also stops the receive loop.
func (t *dealerTransport) Close() error {
	t.recvCancel()
	err := t.sock.Close()
	t.recvWorkers.Wait()
	return err
}
