// Package robot models the hexapod's legs and joints and drives its servos.
package robot

import (
	"errors"
	"fmt"

	"github.com/quantumrobotics/hexapod/pkg/radio"
)

// Axis selects one of the two joints of a leg.
type Axis int

const (
	X Axis = iota
	Y
)

func (a Axis) String() string {
	if a == Y {
		return "y"
	}
	return "x"
}

// ParseAxis accepts "x" or "y".
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x", "X":
		return X, nil
	case "y", "Y":
		return Y, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

const (
	// LegCount is the number of legs on the robot.
	LegCount = radio.LegCount
	// JointsPerLeg is the number of servos in each leg.
	JointsPerLeg = 2
)

var (
	// ErrNoSuchJoint is returned for a leg or axis outside the robot.
	ErrNoSuchJoint = errors.New("no such joint")
	// ErrNotCalibrated is returned when a joint is stepped before Calibrate.
	ErrNotCalibrated = errors.New("joint not calibrated")
)

// JointID names a joint by leg index and axis.
type JointID struct {
	Leg  int
	Axis Axis
}

func (id JointID) String() string {
	return fmt.Sprintf("leg%d.%s", id.Leg, id.Axis)
}

// Valid reports whether id names a joint on the robot.
func (id JointID) Valid() bool {
	return id.Leg >= 0 && id.Leg < LegCount && (id.Axis == X || id.Axis == Y)
}

// AllJoints returns every joint, leg by leg, X before Y.
func AllJoints() []JointID {
	ids := make([]JointID, 0, LegCount*JointsPerLeg)
	for leg := 0; leg < LegCount; leg++ {
		ids = append(ids, JointID{leg, X}, JointID{leg, Y})
	}
	return ids
}
