package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

// Limits are the calibrated angle bounds of one joint, in servo degrees.
type Limits struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Validate rejects inverted bounds.
func (l Limits) Validate() error {
	if l.Min > l.Max {
		return fmt.Errorf("min %d above max %d", l.Min, l.Max)
	}
	return nil
}

// Mid returns the neutral angle.
func (l Limits) Mid() int {
	return l.Min + (l.Max-l.Min)/2
}

// Clamp forces angle into the bounds.
func (l Limits) Clamp(angle int) int {
	if angle < l.Min {
		return l.Min
	}
	if angle > l.Max {
		return l.Max
	}
	return angle
}

// Rescale maps a normalized value in [0, 100] onto the bounds. Input outside
// that range is clamped first, so the result always lies within the bounds.
// The second result reports whether clamping happened.
func (l Limits) Rescale(norm int) (int, bool) {
	clamped := false
	if norm < 0 {
		norm, clamped = 0, true
	} else if norm > 100 {
		norm, clamped = 100, true
	}
	return norm*(l.Max-l.Min)/100 + l.Min, clamped
}

// Normalize is the inverse of Rescale.
func (l Limits) Normalize(angle int) int {
	span := l.Max - l.Min
	if span == 0 {
		return 0
	}
	return (l.Clamp(angle) - l.Min) * 100 / span
}

// Calibration holds the bounds for every joint.
type Calibration struct {
	X [LegCount]Limits `json:"x"`
	Y [LegCount]Limits `json:"y"`
}

// DefaultCalibration allows the full travel of a 180 degree hobby servo.
func DefaultCalibration() Calibration {
	var c Calibration
	for i := 0; i < LegCount; i++ {
		c.X[i] = Limits{Min: 0, Max: 180}
		c.Y[i] = Limits{Min: 0, Max: 180}
	}
	return c
}

// For returns the bounds of one joint.
func (c Calibration) For(id JointID) (Limits, error) {
	if !id.Valid() {
		return Limits{}, fmt.Errorf("%w: %s", ErrNoSuchJoint, id)
	}
	if id.Axis == X {
		return c.X[id.Leg], nil
	}
	return c.Y[id.Leg], nil
}

// Validate checks every joint.
func (c Calibration) Validate() error {
	for _, id := range AllJoints() {
		l, _ := c.For(id)
		if err := l.Validate(); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
	}
	return nil
}

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Calibration{}, fmt.Errorf("read calibration file: %w", err)
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return Calibration{}, fmt.Errorf("parse calibration JSON: %w", err)
	}
	if err := cal.Validate(); err != nil {
		return Calibration{}, fmt.Errorf("invalid calibration: %w", err)
	}
	return cal, nil
}
