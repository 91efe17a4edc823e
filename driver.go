// Package iiwa bridges a motion-control loop to the KUKA LBR iiwa
// cabinet's bridge application over an asynchronous message link.
// Callers deposit joint-angle, joint-torque, or Cartesian-wrench
// commands from any goroutine; a periodic RunOne snapshots the latest
// commanded state and hands it to the transport without ever blocking
// on the network.
package iiwa

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"
)

type lifecycleState int

const (
	stateUnconstructed lifecycleState = iota
	stateConstructing
	stateRunning
	stateStopping
	stateStopped
)

func (s lifecycleState) String() string {
	switch s {
	case stateUnconstructed:
		return "unconstructed"
	case stateConstructing:
		return "constructing"
	case stateRunning:
		return "running"
	case stateStopping:
		return "stopping"
	case stateStopped:
		return "stopped"
	default:
		return "invalid"
	}
}

// Stats holds the driver's communication counters.
type Stats struct {
	ReceivedMessages uint64
	AttemptedSends   uint64
	DroppedSends     uint64

	// Current runs of reactor send outcomes; a success zeroes the
	// failure run and vice versa.
	ConsecutiveSuccesses uint64
	ConsecutiveFailures  uint64
}

// Driver owns the shared command state, the transport connection, and
// the background reactor goroutine that performs the actual I/O. A
// zero-value-ish driver from NewDriver is inert until Construct; Close
// is safe at any point in the lifecycle.
type Driver struct {
	logger logging.Logger

	mu            sync.Mutex
	lifecycle     lifecycleState
	params        Params
	transport     Transport
	reactorCancel context.CancelFunc

	activeBackgroundWorkers sync.WaitGroup

	store stateStore

	// scratch vectors for the transmit snapshot; RunOne is
	// single-caller so they need no lock of their own.
	scratchPosition JointVector
	scratchTorque   JointVector

	received  uint64
	attempted uint64

	dial dialFunc
}

// NewDriver returns an unconstructed driver. Call Construct to connect.
func NewDriver(logger logging.Logger) *Driver {
	return &Driver{
		logger: logger,
		dial:   newDealerTransport,
	}
}

// Construct validates and stores params, connects the bridge transport
// (bind local, connect remote), and starts the one background reactor
// goroutine. On any failure the driver is left unconstructed with no
// goroutine and no open socket. Calling Construct on a driver that is
// not unconstructed fails fast.
func (d *Driver) Construct(params Params) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lifecycle != stateUnconstructed {
		return errors.Errorf("construct called on a %s driver", d.lifecycle)
	}
	d.lifecycle = stateConstructing

	validated, err := params.Validate()
	if err != nil {
		d.lifecycle = stateUnconstructed
		return err
	}
	d.params = validated

	tr, err := d.dial(validated.LocalTransportAddress, validated.RemoteTransportAddress, d.logger)
	if err != nil {
		d.lifecycle = stateUnconstructed
		return err
	}

	if src, ok := tr.(MonitorSource); ok && validated.MonitorMode == ModeJAVA {
		src.SetMonitorFunc(d.handleMonitor)
	}

	// The reactor context doubles as the keep-alive token: the reactor
	// loops while it is live even with nothing queued, and Close
	// releases it so the loop can drain and exit.
	reactorCtx, reactorCancel := context.WithCancel(context.Background())
	d.transport = tr
	d.reactorCancel = reactorCancel

	d.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		tr.RunReactor(reactorCtx)
	}, d.activeBackgroundWorkers.Done)

	d.lifecycle = stateRunning
	d.logger.Infow("iiwa bridge driver connected",
		"local", validated.LocalTransportAddress,
		"remote", validated.RemoteTransportAddress,
		"command_mode", validated.CommandMode,
		"monitor_mode", validated.MonitorMode)
	return nil
}

// RunOne performs one transmit cycle: snapshot the commanded position
// and torque under the state lock, encode a JointState
// message outside it, and queue the message for asynchronous send. It
// never blocks on network I/O and must not be called concurrently with
// itself. Before Construct (or after Close) it is a no-op.
//
// The return value reports whether any command landed since the last
// cycle; a message is transmitted either way so the bridge keeps
// seeing the current setpoint.
func (d *Driver) RunOne() bool {
	d.mu.Lock()
	tr := d.transport
	running := d.lifecycle == stateRunning
	d.mu.Unlock()

	if !running || tr == nil {
		return false
	}

	var fresh bool
	d.scratchPosition, d.scratchTorque, fresh =
		d.store.transmitSnapshot(d.scratchPosition, d.scratchTorque)

	b := tr.OutputBuffer()
	encodeJointState(b, d.scratchPosition, nil, d.scratchTorque)
	tr.AsyncSend(b)
	atomic.AddUint64(&d.attempted, 1)

	return fresh
}

// Params returns the configuration the driver was constructed with,
// or the zero record before Construct.
func (d *Driver) Params() Params {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params
}

// Stats returns a snapshot of the communication counters.
func (d *Driver) Stats() Stats {
	s := Stats{
		ReceivedMessages: atomic.LoadUint64(&d.received),
		AttemptedSends:   atomic.LoadUint64(&d.attempted),
	}
	d.mu.Lock()
	tr := d.transport
	d.mu.Unlock()
	if counter, ok := tr.(interface{ DroppedSends() uint64 }); ok {
		s.DroppedSends = counter.DroppedSends()
	}
	if counter, ok := tr.(interface{ SendCounters() (uint64, uint64) }); ok {
		s.ConsecutiveSuccesses, s.ConsecutiveFailures = counter.SendCounters()
	}
	return s
}

// Close releases the reactor keep-alive token, joins the background
// goroutine, and closes the transport. It never panics, is idempotent,
// and is a no-op on a driver that was never constructed. After Close
// the shared state may be freed safely: no callback can still be
// running.
func (d *Driver) Close() error {
	d.mu.Lock()
	if d.lifecycle != stateRunning {
		d.lifecycle = stateStopped
		d.mu.Unlock()
		return nil
	}
	d.lifecycle = stateStopping
	cancel := d.reactorCancel
	tr := d.transport
	d.mu.Unlock()

	cancel()
	d.activeBackgroundWorkers.Wait()
	err := tr.Close()

	d.mu.Lock()
	d.lifecycle = stateStopped
	d.transport = nil
	d.reactorCancel = nil
	d.mu.Unlock()

	if err != nil {
		d.logger.Warnw("error closing bridge transport", "error", err)
	}
	return err
}
