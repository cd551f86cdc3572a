package robot

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Joint is one servo of a leg. It moves toward its setpoint one degree per
// step and never reads the servo back.
type Joint struct {
	id       JointID
	limits   Limits
	setpoint int
	current  int
	channel  int
	bound    bool
	ready    bool
	act      Actuator
}

// Calibrate stores the joint bounds and parks the joint, settled, at mid
// range. It must be called before the joint is stepped.
func (j *Joint) Calibrate(l Limits) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("%s: %w", j.id, err)
	}
	j.limits = l
	j.current = l.Mid()
	j.setpoint = j.current
	j.ready = true
	return nil
}

// Bind attaches the joint to its output channel from table.
func (j *Joint) Bind(act Actuator, table ChannelTable) error {
	ch, err := table.Channel(j.id.Axis, j.id.Leg)
	if err != nil {
		return err
	}
	j.act = act
	j.channel = ch
	j.bound = true
	logger.WithFields(log.Fields{"joint": j.id.String(), "channel": ch}).Debug("joint bound")
	return nil
}

// SetSetpoint stores a new target angle, clamped to the bounds. It reports
// whether the angle had to be clamped.
func (j *Joint) SetSetpoint(angle int) bool {
	clamped := j.limits.Clamp(angle)
	j.setpoint = clamped
	return clamped != angle
}

// Step moves the commanded angle one degree toward the setpoint and writes
// it. A joint already at its setpoint is not written again. If the write
// fails the joint stays where it was and the next step retries.
func (j *Joint) Step(ctx context.Context) error {
	if !j.ready {
		return fmt.Errorf("%w: %s", ErrNotCalibrated, j.id)
	}
	if j.current == j.setpoint {
		return nil
	}

	next := j.current + 1
	if j.current > j.setpoint {
		next = j.current - 1
	}
	if j.bound {
		if err := j.act.SetAngle(ctx, j.channel, next); err != nil {
			return fmt.Errorf("%s: %w", j.id, err)
		}
	}
	j.current = next
	return nil
}

// Home writes the current angle without moving, so the servo starts where
// the model thinks it is.
func (j *Joint) Home(ctx context.Context) error {
	if !j.bound {
		return nil
	}
	return j.act.SetAngle(ctx, j.channel, j.current)
}

// Finished reports whether the joint has reached its setpoint.
func (j *Joint) Finished() bool {
	return j.current == j.setpoint
}

// ID returns the joint's leg and axis.
func (j *Joint) ID() JointID { return j.id }

// Limits returns the calibrated bounds.
func (j *Joint) Limits() Limits { return j.limits }

// Setpoint returns the target angle in degrees.
func (j *Joint) Setpoint() int { return j.setpoint }

// Current returns the last commanded angle in degrees.
func (j *Joint) Current() int { return j.current }

// Channel returns the actuator channel, valid once bound.
func (j *Joint) Channel() int { return j.channel }

// Calibrated reports whether Calibrate has succeeded.
func (j *Joint) Calibrated() bool { return j.ready }
