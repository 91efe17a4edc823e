package iiwa

import (
	"context"
	"sync"
	"testing"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"

	"iiwa_arm/jointstate"
)

// recordingTransport captures every finished message instead of
// touching a socket.
type recordingTransport struct {
	mu      sync.Mutex
	sent    [][]byte
	monitor func([]byte)
}

func (t *recordingTransport) OutputBuffer() *flatbuffers.Builder {
	return flatbuffers.NewBuilder(256)
}

func (t *recordingTransport) AsyncSend(b *flatbuffers.Builder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, append([]byte(nil), b.FinishedBytes()...))
}

func (t *recordingTransport) RunReactor(ctx context.Context) {
	<-ctx.Done()
}

func (t *recordingTransport) Close() error { return nil }

func (t *recordingTransport) SetMonitorFunc(fn func([]byte)) { t.monitor = fn }

func (t *recordingTransport) messages() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sent))
	copy(out, t.sent)
	return out
}

// saturatedTransport models a link whose sends never complete.
type saturatedTransport struct{}

func (t *saturatedTransport) OutputBuffer() *flatbuffers.Builder {
	return flatbuffers.NewBuilder(256)
}
func (t *saturatedTransport) AsyncSend(*flatbuffers.Builder) {} // swallowed, never acknowledged
func (t *saturatedTransport) RunReactor(ctx context.Context) { <-ctx.Done() }
func (t *saturatedTransport) Close() error                   { return nil }

func constructWith(t *testing.T, tr Transport) *Driver {
	t.Helper()
	d := NewDriver(logging.NewTestLogger(t))
	d.dial = func(local, remote string, logger logging.Logger) (Transport, error) {
		return tr, nil
	}
	require.NoError(t, d.Construct(DefaultParams()))
	return d
}

// returns within timeout or fails the test.
func within(t *testing.T, timeout time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("call did not return in time")
	}
}

func TestRunOneBeforeConstruct(t *testing.T) {
	d := NewDriver(logging.NewTestLogger(t))
	assert.False(t, d.RunOne())
}

func TestCloseWithoutConstruct(t *testing.T) {
	d := NewDriver(logging.NewTestLogger(t))
	within(t, 5*time.Second, func() {
		assert.NoError(t, d.Close())
		assert.NoError(t, d.Close())
	})
}

func TestConstructTwiceFails(t *testing.T) {
	tr := &recordingTransport{}
	d := constructWith(t, tr)
	defer func() { require.NoError(t, d.Close()) }()

	err := d.Construct(DefaultParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running")
}

func TestConstructFailureLeavesNothingRunning(t *testing.T) {
	d := NewDriver(logging.NewTestLogger(t))
	dialErr := &ConnectionError{
		LocalAddress:  "tcp://0.0.0.0:1",
		RemoteAddress: "tcp://10.1.1.1:1",
		Err:           errors.New("refused"),
	}
	d.dial = func(local, remote string, logger logging.Logger) (Transport, error) {
		return nil, dialErr
	}

	err := d.Construct(DefaultParams())
	require.Error(t, err)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "tcp://0.0.0.0:1", connErr.LocalAddress)
	assert.Equal(t, "tcp://10.1.1.1:1", connErr.RemoteAddress)
	assert.Contains(t, err.Error(), "tcp://10.1.1.1:1")

	// a failed construct leaves the driver reusable
	tr := &recordingTransport{}
	d.dial = func(local, remote string, logger logging.Logger) (Transport, error) {
		return tr, nil
	}
	require.NoError(t, d.Construct(DefaultParams()))
	require.NoError(t, d.Close())
}

func TestConstructStoresValidatedParams(t *testing.T) {
	tr := &recordingTransport{}
	d := NewDriver(logging.NewTestLogger(t))
	d.dial = func(local, remote string, logger logging.Logger) (Transport, error) {
		return tr, nil
	}

	assert.Equal(t, Params{}, d.Params())
	require.NoError(t, d.Construct(Params{}))
	defer func() { require.NoError(t, d.Close()) }()
	assert.Equal(t, DefaultParams(), d.Params())
}

func TestRoundTrip(t *testing.T) {
	tr := &recordingTransport{}
	d := constructWith(t, tr)
	defer func() { require.NoError(t, d.Close()) }()

	position := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}
	require.NoError(t, d.Set(position, JointAngleCommand))

	assert.True(t, d.RunOne())

	msgs := tr.messages()
	require.Len(t, msgs, 1)

	js := jointstate.GetRootAsJointState(msgs[0], 0)
	require.Equal(t, NumJoints, js.PositionLength())
	for i, want := range position {
		assert.Equal(t, want, js.Position(i))
	}
	assert.Zero(t, js.VelocityLength())
	assert.Zero(t, js.AccelerationLength())

	// a later cycle carries the torque set since
	torque := []float64{1, 2, 3, 4, 5, 6, 7}
	require.NoError(t, d.Set(torque, JointTorqueCommand))
	assert.True(t, d.RunOne())

	msgs = tr.messages()
	require.Len(t, msgs, 2)
	js = jointstate.GetRootAsJointState(msgs[1], 0)
	require.Equal(t, NumJoints, js.AccelerationLength())
	for i, want := range torque {
		assert.Equal(t, want, js.Acceleration(i))
	}
}

func TestRunOneFreshnessFlag(t *testing.T) {
	tr := &recordingTransport{}
	d := constructWith(t, tr)
	defer func() { require.NoError(t, d.Close()) }()

	assert.False(t, d.RunOne(), "nothing commanded yet")

	require.NoError(t, d.Set(make([]float64, NumJoints), JointAngleCommand))
	assert.True(t, d.RunOne())
	assert.False(t, d.RunOne(), "no new command since last cycle")

	// the setpoint is still retransmitted every cycle
	assert.Len(t, tr.messages(), 3)
}

func TestRunOneNeverBlocksOnSaturatedLink(t *testing.T) {
	d := constructWith(t, &saturatedTransport{})
	defer func() { require.NoError(t, d.Close()) }()

	require.NoError(t, d.Set(make([]float64, NumJoints), JointAngleCommand))
	within(t, time.Second, func() {
		for i := 0; i < 100; i++ {
			d.RunOne()
		}
	})
}

func TestCloseJoinsReactorMidFlight(t *testing.T) {
	tr := &recordingTransport{}
	d := constructWith(t, tr)

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Set(make([]float64, NumJoints), JointAngleCommand))
		d.RunOne()
	}

	within(t, 5*time.Second, func() {
		assert.NoError(t, d.Close())
	})

	assert.False(t, d.RunOne(), "closed driver degrades to no-op")
}

func TestMonitorUpdatesTorqueFeedback(t *testing.T) {
	tr := &recordingTransport{}
	d := constructWith(t, tr)
	defer func() { require.NoError(t, d.Close()) }()

	require.NotNil(t, tr.monitor, "driver should register a monitor handler in JAVA mode")

	feedback := []float64{-1, -2, -3, -4, -5, -6, -7}
	b := flatbuffers.NewBuilder(256)
	encodeJointState(b, nil, nil, feedback)
	tr.monitor(b.FinishedBytes())

	assert.Equal(t, JointVector(feedback), d.State().Torque)
	assert.Equal(t, uint64(1), d.Stats().ReceivedMessages)

	t.Run("garbage payload is dropped", func(t *testing.T) {
		tr.monitor([]byte{0x01, 0x02, 0x03})
		assert.Equal(t, JointVector(feedback), d.State().Torque)
	})
}

func TestStatsCountAttempts(t *testing.T) {
	tr := &recordingTransport{}
	d := constructWith(t, tr)
	defer func() { require.NoError(t, d.Close()) }()

	for i := 0; i < 5; i++ {
		d.RunOne()
	}
	assert.Equal(t, uint64(5), d.Stats().AttemptedSends)
}

func TestStatsSurfaceSendCounters(t *testing.T) {
	sock := newFakeSocket()
	tr := testDealerTransport(sock)
	d := constructWith(t, tr)
	defer func() { require.NoError(t, d.Close()) }()

	tr.send(finishedBuilder(1))
	tr.send(finishedBuilder(2))
	sock.failSends(errors.New("bridge down"))
	tr.send(finishedBuilder(3))

	s := d.Stats()
	assert.Equal(t, uint64(0), s.ConsecutiveSuccesses)
	assert.Equal(t, uint64(1), s.ConsecutiveFailures)
}
