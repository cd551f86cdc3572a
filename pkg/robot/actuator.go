package robot

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

var logger = log.WithFields(log.Fields{
	"pkg": "robot",
})

// Actuator commands the physical servo on an output channel.
type Actuator interface {
	SetAngle(ctx context.Context, channel int, angle int) error
}

// ChannelTable maps (axis, leg index) to an output channel.
type ChannelTable [JointsPerLeg][LegCount]int

// DefaultChannelTable is the PWM pin layout of the hexapod shield.
func DefaultChannelTable() ChannelTable {
	return ChannelTable{
		{2, 3, 4, 5, 6, 7},
		{8, 9, 10, 11, 12, 13},
	}
}

// BusChannelTable numbers servos 1..12 on a serial bus, X joints first.
func BusChannelTable() ChannelTable {
	return ChannelTable{
		{1, 2, 3, 4, 5, 6},
		{7, 8, 9, 10, 11, 12},
	}
}

// Channel looks up the output channel of a joint.
func (t ChannelTable) Channel(axis Axis, index int) (int, error) {
	id := JointID{Leg: index, Axis: axis}
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchJoint, id)
	}
	return t[axis][index], nil
}

// Channels returns every channel in the table.
func (t ChannelTable) Channels() []int {
	out := make([]int, 0, LegCount*JointsPerLeg)
	for _, row := range t {
		out = append(out, row[:]...)
	}
	return out
}

// LogActuator only logs, for running without hardware.
type LogActuator struct{}

func (LogActuator) SetAngle(ctx context.Context, channel int, angle int) error {
	logger.WithFields(log.Fields{"channel": channel, "angle": angle}).Debug("servo write")
	return nil
}
