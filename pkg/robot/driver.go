package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// DefaultLegSettle is the pause after stepping each leg.
const DefaultLegSettle = 10 * time.Millisecond

// Driver owns the six legs and moves them toward their setpoints.
type Driver struct {
	legs   [LegCount]Leg
	clk    clock.Clock
	settle time.Duration

	// outOfRange holds the last clamped input per joint so a value that
	// stays out of range is reported once.
	outOfRange [LegCount][JointsPerLeg]*int
}

// NewDriver builds a driver with every joint calibrated from cal and bound to
// act through table. settle is the pause after each leg; zero disables it.
func NewDriver(cal Calibration, act Actuator, table ChannelTable, clk clock.Clock, settle time.Duration) (*Driver, error) {
	if clk == nil {
		clk = clock.New()
	}
	d := &Driver{clk: clk, settle: settle}
	for i := range d.legs {
		d.legs[i] = newLeg(i)
	}
	for _, id := range AllJoints() {
		l, err := cal.For(id)
		if err != nil {
			return nil, err
		}
		j := d.joint(id)
		if err := j.Calibrate(l); err != nil {
			return nil, err
		}
		if act != nil {
			if err := j.Bind(act, table); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

func (d *Driver) joint(id JointID) *Joint {
	return &d.legs[id.Leg].joints[id.Axis]
}

// Leg returns leg i.
func (d *Driver) Leg(i int) (*Leg, error) {
	if i < 0 || i >= LegCount {
		return nil, fmt.Errorf("%w: leg %d", ErrNoSuchJoint, i)
	}
	return &d.legs[i], nil
}

// Joint returns the joint named by id.
func (d *Driver) Joint(id JointID) (*Joint, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchJoint, id)
	}
	return d.joint(id), nil
}

// ApplySetpoints rescales normalized 0..100 values onto each joint's own
// bounds and stores them as setpoints. It returns how many inputs had to be
// clamped.
func (d *Driver) ApplySetpoints(x, y [LegCount]int) int {
	clamped := 0
	for i := range d.legs {
		for axis, vals := range [JointsPerLeg][LegCount]int{x, y} {
			j := &d.legs[i].joints[axis]
			angle, c := j.limits.Rescale(vals[i])
			last := &d.outOfRange[i][axis]
			switch {
			case !c:
				*last = nil
			case *last == nil || **last != vals[i]:
				v := vals[i]
				*last = &v
				logger.WithFields(log.Fields{"joint": j.id.String(), "value": v}).Warn("setpoint out of range, clamped")
			}
			if c {
				clamped++
			}
			j.SetSetpoint(angle)
		}
	}
	return clamped
}

// AdvanceAllLegs steps every joint once, leg by leg, pausing after each leg
// to let the servos settle. This pause is the only blocking wait in the
// control loop.
func (d *Driver) AdvanceAllLegs(ctx context.Context) error {
	var errs error
	for i := range d.legs {
		if err := d.legs[i].GoToSetpoint(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("leg%d: %w", d.legs[i].Index(), err))
		}
		if d.settle > 0 {
			d.clk.Sleep(d.settle)
		}
	}
	return errs
}

// AllFinished reports whether every joint is at its setpoint.
func (d *Driver) AllFinished() bool {
	for i := range d.legs {
		if !d.legs[i].Finished() {
			return false
		}
	}
	return true
}

// Home writes every joint's current angle once.
func (d *Driver) Home(ctx context.Context) error {
	var errs error
	for _, id := range AllJoints() {
		errs = multierr.Append(errs, d.joint(id).Home(ctx))
	}
	return errs
}
