package iiwa

import (
	"github.com/pkg/errors"
)

// CommandKind selects which commanded sub-state a Set or Get targets.
// The set of kinds is closed; adding one means adding a dispatch arm
// in stateStore.set and Driver.Set.
type CommandKind int

const (
	// JointAngleCommand selects the commanded joint positions, in
	// radians, one per joint.
	JointAngleCommand CommandKind = iota
	// JointTorqueCommand selects the commanded joint torques, in Nm,
	// one per joint. Only effective when the controller runs joint
	// impedance control in torque command mode.
	JointTorqueCommand
	// CartesianWrenchCommand selects the commanded Cartesian wrench
	// [Fx, Fy, Fz, tauA, tauB, tauC] at the motion center. Only
	// effective in Cartesian impedance control with wrench commands.
	CartesianWrenchCommand
)

func (k CommandKind) String() string {
	switch k {
	case JointAngleCommand:
		return "joint_angle"
	case JointTorqueCommand:
		return "joint_torque"
	case CartesianWrenchCommand:
		return "cartesian_wrench"
	default:
		return "unknown"
	}
}

// commandLen returns the required element count for a command of this kind.
func (k CommandKind) commandLen() int {
	if k == CartesianWrenchCommand {
		return WrenchSize
	}
	return NumJoints
}

// ErrUnimplemented reports an operation that is declared but not yet
// supported by this driver.
var ErrUnimplemented = errors.New("unimplemented")

// Set stores a new command of the given kind for the next transmit
// cycle to pick up. It may be called from any goroutine; the write is
// atomic with respect to snapshots and other writers. values must have
// exactly the element count the kind requires (NumJoints for joint
// kinds, WrenchSize for the wrench).
func (d *Driver) Set(values []float64, kind CommandKind) error {
	switch kind {
	case JointAngleCommand, JointTorqueCommand, CartesianWrenchCommand:
	default:
		return errors.Errorf("unknown command kind %d", int(kind))
	}
	if len(values) != kind.commandLen() {
		return errors.Errorf("%s command needs %d values, got %d", kind, kind.commandLen(), len(values))
	}
	d.store.set(values, kind)
	return nil
}

// Get reads back the latest value of one command kind. Not supported
// yet; use State for the full aggregate.
func (d *Driver) Get(kind CommandKind) ([]float64, error) {
	return nil, errors.Wrapf(ErrUnimplemented, "typed read of %s", kind)
}

// State returns a consistent deep copy of the whole shared state.
func (d *Driver) State() ArmState {
	var out ArmState
	d.store.copyTo(&out)
	return out
}
