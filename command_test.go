package iiwa

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"
)

func TestCommandKindString(t *testing.T) {
	assert.Equal(t, "joint_angle", JointAngleCommand.String())
	assert.Equal(t, "joint_torque", JointTorqueCommand.String())
	assert.Equal(t, "cartesian_wrench", CartesianWrenchCommand.String())
	assert.Equal(t, "unknown", CommandKind(99).String())
}

func TestSetValidation(t *testing.T) {
	d := NewDriver(logging.NewTestLogger(t))

	t.Run("joint command needs DOF count", func(t *testing.T) {
		err := d.Set([]float64{1, 2, 3}, JointAngleCommand)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "needs 7 values")
	})

	t.Run("wrench needs six elements", func(t *testing.T) {
		err := d.Set(make([]float64, NumJoints), CartesianWrenchCommand)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "needs 6 values")
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		err := d.Set(make([]float64, NumJoints), CommandKind(42))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown command kind")
	})

	t.Run("valid command lands in store", func(t *testing.T) {
		vals := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}
		require.NoError(t, d.Set(vals, JointAngleCommand))
		assert.Equal(t, JointVector(vals), d.State().CommandedPosition)
	})
}

func TestTypedGetUnimplemented(t *testing.T) {
	d := NewDriver(logging.NewTestLogger(t))
	_, err := d.Get(JointAngleCommand)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnimplemented))
}
