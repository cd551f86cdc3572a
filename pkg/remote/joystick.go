// Package remote is the handheld controller: it samples two joysticks and
// three push buttons and transmits them to the robot.
package remote

import (
	"math"

	"github.com/quantumrobotics/hexapod/pkg/radio"
)

const (
	// Center is the resting reading of a 10-bit joystick axis.
	Center = 512
	// DeadZone is the distance from Center treated as zero.
	DeadZone = 100
)

// Stick is a raw two-axis joystick sample.
type Stick struct {
	X int
	Y int
}

// CenterReading shifts a raw axis reading around Center and zeroes it
// inside the dead zone.
func CenterReading(raw int) int {
	v := raw - Center
	if v < DeadZone && v > -DeadZone {
		return 0
	}
	return v
}

// Vector is a joystick deflection in polar form.
type Vector struct {
	X, Y int
	// Angle is atan2(Y, X) in whole degrees, in (-180, 180].
	Angle int
	// Magnitude is computed for display only; nothing downstream uses it.
	Magnitude float64
}

// JoystickVector centers and dead-zones a raw sample and converts it to an
// angle.
func JoystickVector(rawX, rawY int) Vector {
	x, y := CenterReading(rawX), CenterReading(rawY)
	return Vector{
		X:         x,
		Y:         y,
		Angle:     int(math.Round(math.Atan2(float64(y), float64(x)) * 180 / math.Pi)),
		Magnitude: math.Hypot(float64(x), float64(y)),
	}
}

// SelectVector picks the stick for mode: the movement stick when walking, the
// rotation stick otherwise.
//
// The controller firmware feeds the chosen stick's X reading into both
// arguments of atan2, so the angle is always 45 or -135 degrees (or 0). That
// behavior is kept unless useY is set; whether to switch the default is
// still undecided.
func SelectVector(mode radio.Mode, move, rotate Stick, useY bool) Vector {
	s := rotate
	if mode == radio.Walking {
		s = move
	}
	if !useY {
		return JoystickVector(s.X, s.X)
	}
	return JoystickVector(s.X, s.Y)
}
