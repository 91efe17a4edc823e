package iiwa

import (
	"github.com/pkg/errors"
)

// Factory joint limits for the LBR iiwa's 7 axes, radians
// (A1..A7: ±170°, ±120°, ±170°, ±120°, ±170°, ±120°, ±175°).
var iiwaJointLimits = [NumJoints][2]float64{
	{-2.96706, 2.96706},
	{-2.09440, 2.09440},
	{-2.96706, 2.96706},
	{-2.09440, 2.09440},
	{-2.96706, 2.96706},
	{-2.09440, 2.09440},
	{-3.05433, 3.05433},
}

// JointLimits returns fresh copies of the factory lower and upper
// joint limit vectors.
func JointLimits() (lower, upper JointVector) {
	lower = make(JointVector, NumJoints)
	upper = make(JointVector, NumJoints)
	for i, lim := range iiwaJointLimits {
		lower[i] = lim[0]
		upper[i] = lim[1]
	}
	return lower, upper
}

// ClampToLimits returns a copy of angles clamped into the factory
// limits, and whether any element was clamped.
func ClampToLimits(angles JointVector) (JointVector, bool) {
	clamped := false
	out := make(JointVector, len(angles))
	for i, a := range angles {
		if i >= NumJoints {
			out[i] = a
			continue
		}
		low, high := iiwaJointLimits[i][0], iiwaJointLimits[i][1]
		switch {
		case a < low:
			out[i] = low
			clamped = true
		case a > high:
			out[i] = high
			clamped = true
		default:
			out[i] = a
		}
	}
	return out, clamped
}

// SeedLimits populates the state-reporting limit fields with the
// factory limits and records target as the reported target position.
// target may be nil to leave the target unset.
func (d *Driver) SeedLimits(target JointVector) error {
	if target != nil && len(target) != NumJoints {
		return errors.Errorf("target position needs %d values, got %d", NumJoints, len(target))
	}
	lower, upper := JointLimits()
	d.store.seedLimits(lower, upper, target)
	return nil
}
