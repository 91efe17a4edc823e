package iiwa

import (
	"sync"
)

// NumJoints is the degree-of-freedom count of the KUKA LBR iiwa.
const NumJoints = 7

// WrenchSize is the element count of a Cartesian wrench vector
// [Fx, Fy, Fz, tauA, tauB, tauC].
const WrenchSize = 6

// JointVector holds one real-valued quantity per joint, in kinematic
// joint order. An empty vector means "no value yet", not all-zeros.
type JointVector []float64

// TransformationMatrix is a 3x4 rigid transform (rotation + translation)
// for a single joint, laid out row-major.
type TransformationMatrix [12]float64

// TransformationMatrices holds one transform per joint, in kinematic
// joint order.
type TransformationMatrices []TransformationMatrix

// ArmState is the aggregate of commanded and measured values exchanged
// with the remote controller. All vectors are NumJoints long once set,
// except CommandedCartesianWrench which is WrenchSize long.
type ArmState struct {
	CommandedPosition        JointVector
	CommandedTorque          JointVector
	CommandedCartesianWrench JointVector

	// Torque is the measured/applied feedback reported by the arm.
	Torque JointVector

	// State-reporting fields. Populated by SeedLimits and the monitor
	// path; never written by the command multiplexer.
	TargetPosition  JointVector
	LowerLimit      JointVector
	UpperLimit      JointVector
	JointTransforms TransformationMatrices
}

func (s *ArmState) copyFrom(src *ArmState) {
	s.CommandedPosition = append(s.CommandedPosition[:0], src.CommandedPosition...)
	s.CommandedTorque = append(s.CommandedTorque[:0], src.CommandedTorque...)
	s.CommandedCartesianWrench = append(s.CommandedCartesianWrench[:0], src.CommandedCartesianWrench...)
	s.Torque = append(s.Torque[:0], src.Torque...)
	s.TargetPosition = append(s.TargetPosition[:0], src.TargetPosition...)
	s.LowerLimit = append(s.LowerLimit[:0], src.LowerLimit...)
	s.UpperLimit = append(s.UpperLimit[:0], src.UpperLimit...)
	s.JointTransforms = append(s.JointTransforms[:0], src.JointTransforms...)
}

// stateStore guards the shared ArmState. Every read and write of the
// aggregate goes through the one mutex so a snapshot can never mix
// fields from two different writes. Critical sections contain only
// bounded copies, no I/O.
type stateStore struct {
	mu    sync.Mutex
	state ArmState

	// dirty is set by any command write and cleared by the transmit
	// snapshot, so RunOne can report whether it sent anything new.
	dirty bool
}

// set overwrites exactly the sub-state selected by kind. Other fields
// are untouched. Length validation happens at the Driver boundary.
func (st *stateStore) set(values []float64, kind CommandKind) {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch kind {
	case JointAngleCommand:
		st.state.CommandedPosition = append(st.state.CommandedPosition[:0], values...)
	case JointTorqueCommand:
		st.state.CommandedTorque = append(st.state.CommandedTorque[:0], values...)
	case CartesianWrenchCommand:
		st.state.CommandedCartesianWrench = append(st.state.CommandedCartesianWrench[:0], values...)
	}
	st.dirty = true
}

// setTorqueFeedback records the measured torque reported by the arm.
func (st *stateStore) setTorqueFeedback(values []float64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Torque = append(st.state.Torque[:0], values...)
}

// seedLimits fills the reserved limit and target fields in one write.
func (st *stateStore) seedLimits(lower, upper, target JointVector) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.LowerLimit = append(st.state.LowerLimit[:0], lower...)
	st.state.UpperLimit = append(st.state.UpperLimit[:0], upper...)
	st.state.TargetPosition = append(st.state.TargetPosition[:0], target...)
}

// copyTo deep-copies the whole aggregate into dst under the lock, so
// the caller owns a consistent snapshot with no aliased slices.
func (st *stateStore) copyTo(dst *ArmState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	dst.copyFrom(&st.state)
}

// transmitSnapshot copies out just the fields a transmit cycle sends
// and reports-and-clears the dirty flag. position and torque are
// reused between cycles to keep the critical section allocation-free
// after the first call.
func (st *stateStore) transmitSnapshot(position, torque JointVector) (JointVector, JointVector, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	position = append(position[:0], st.state.CommandedPosition...)
	torque = append(torque[:0], st.state.CommandedTorque...)
	fresh := st.dirty
	st.dirty = false
	return position, torque, fresh
}
