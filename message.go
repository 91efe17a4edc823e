package iiwa

import (
	flatbuffers "github.com/google/flatbuffers/go"

	"iiwa_arm/jointstate"
)

// encodeJointState builds and finishes a JointState message in b.
// Empty slices encode as present-but-empty vectors, which is how the
// bridge distinguishes "no data" from all-zero joints.
func encodeJointState(b *flatbuffers.Builder, position, velocity, torque []float64) {
	posOff := float64Vector(b, position)
	velOff := float64Vector(b, velocity)
	accOff := float64Vector(b, torque)

	jointstate.JointStateStart(b)
	jointstate.JointStateAddPosition(b, posOff)
	jointstate.JointStateAddVelocity(b, velOff)
	jointstate.JointStateAddAcceleration(b, accOff)
	b.Finish(jointstate.JointStateEnd(b))
}

// FlatBuffers vectors build back to front.
func float64Vector(b *flatbuffers.Builder, values []float64) flatbuffers.UOffsetT {
	b.StartVector(8, len(values), 8)
	for i := len(values) - 1; i >= 0; i-- {
		b.PrependFloat64(values[i])
	}
	return b.EndVector(len(values))
}

// decodeTorqueFeedback extracts the acceleration (torque feedback)
// vector from an inbound JointState payload. ok is false when the
// payload is not a readable JointState.
func decodeTorqueFeedback(payload []byte) (values []float64, ok bool) {
	defer func() {
		if recover() != nil {
			values, ok = nil, false
		}
	}()

	if len(payload) < flatbuffers.SizeUOffsetT {
		return nil, false
	}
	js := jointstate.GetRootAsJointState(payload, 0)
	n := js.AccelerationLength()
	values = make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = js.Acceleration(i)
	}
	return values, true
}
