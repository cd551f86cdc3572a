package robot

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Leg owns its two joints, indexed by axis.
type Leg struct {
	index  int
	joints [JointsPerLeg]Joint
}

func newLeg(index int) Leg {
	l := Leg{index: index}
	for axis := range l.joints {
		l.joints[axis].id = JointID{Leg: index, Axis: Axis(axis)}
	}
	return l
}

// Index returns the leg number.
func (l *Leg) Index() int {
	return l.index
}

// Joint returns the joint on axis.
func (l *Leg) Joint(axis Axis) (*Joint, error) {
	if axis != X && axis != Y {
		return nil, fmt.Errorf("%w: leg%d axis %d", ErrNoSuchJoint, l.index, int(axis))
	}
	return &l.joints[axis], nil
}

// SetMinMaxAngles calibrates the joint on axis.
func (l *Leg) SetMinMaxAngles(min, max int, axis Axis) error {
	j, err := l.Joint(axis)
	if err != nil {
		return err
	}
	return j.Calibrate(Limits{Min: min, Max: max})
}

// GoToSetpoint steps both joints once.
func (l *Leg) GoToSetpoint(ctx context.Context) error {
	var errs error
	for i := range l.joints {
		errs = multierr.Append(errs, l.joints[i].Step(ctx))
	}
	return errs
}

// Finished reports whether both joints are at their setpoints.
func (l *Leg) Finished() bool {
	for i := range l.joints {
		if !l.joints[i].Finished() {
			return false
		}
	}
	return true
}
