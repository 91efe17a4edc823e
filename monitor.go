package iiwa

import (
	"sync/atomic"
)

// handleMonitor runs on the reactor goroutine for every inbound message
// from the bridge application. The bridge reports measured joint torque
// in the acceleration field of its JointState reply; anything that does
// not decode is dropped without touching the shared state.
func (d *Driver) handleMonitor(payload []byte) {
	values, ok := decodeTorqueFeedback(payload)
	if !ok {
		d.logger.Debugw("discarding unreadable monitor payload", "bytes", len(payload))
		return
	}
	if len(values) > 0 {
		d.store.setTorqueFeedback(values)
	}
	atomic.AddUint64(&d.received, 1)
}
