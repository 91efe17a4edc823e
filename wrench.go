package iiwa

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Wrench packs a force (N) and a torque (Nm), both expressed at the
// currently used motion center, into the 6-element wrench vector
// [Fx, Fy, Fz, tauA, tauB, tauC] the wrench command expects.
func Wrench(force, torque r3.Vector) []float64 {
	return []float64{force.X, force.Y, force.Z, torque.X, torque.Y, torque.Z}
}

// SplitWrench is the inverse of Wrench.
func SplitWrench(w []float64) (force, torque r3.Vector, err error) {
	if len(w) != WrenchSize {
		return r3.Vector{}, r3.Vector{}, errors.Errorf("wrench needs %d elements, got %d", WrenchSize, len(w))
	}
	force = r3.Vector{X: w[0], Y: w[1], Z: w[2]}
	torque = r3.Vector{X: w[3], Y: w[4], Z: w[5]}
	return force, torque, nil
}

// SetWrench is shorthand for Set(Wrench(force, torque), CartesianWrenchCommand).
func (d *Driver) SetWrench(force, torque r3.Vector) error {
	return d.Set(Wrench(force, torque), CartesianWrenchCommand)
}
