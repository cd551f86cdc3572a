package robot

import (
	"context"
	"fmt"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.uber.org/multierr"
)

// Feetech servos report 4096 steps per turn.
const (
	feetechSteps   = 4096
	feetechDegrees = 360
)

// FeetechActuator drives joints as STS servos on a serial bus. The channel
// of a joint is its servo ID.
type FeetechActuator struct {
	bus   *feetech.Bus
	group *feetech.ServoGroup
}

// NewFeetechActuator opens the bus on port and groups the given servo IDs.
func NewFeetechActuator(port string, baud int, ids []int) (*FeetechActuator, error) {
	if baud == 0 {
		baud = 1_000_000
	}
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: baud,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	return &FeetechActuator{
		bus:   bus,
		group: feetech.NewServoGroupByIDs(bus, ids...),
	}, nil
}

// Enable enables torque on all servos.
func (a *FeetechActuator) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (a *FeetechActuator) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// SetAngle writes a single target position.
func (a *FeetechActuator) SetAngle(ctx context.Context, channel int, angle int) error {
	if err := a.group.SetPositions(ctx, feetech.PositionMap{channel: degreesToSteps(angle)}); err != nil {
		return fmt.Errorf("write servo %d: %w", channel, err)
	}
	return nil
}

// Angles reads every servo back in degrees. The control loop never uses
// this; it is for the setup command.
func (a *FeetechActuator) Angles(ctx context.Context) (map[int]int, error) {
	raw, err := a.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	out := make(map[int]int, len(raw))
	for id, pos := range raw {
		out[id] = stepsToDegrees(pos)
	}
	return out, nil
}

// Close disables torque and closes the bus.
func (a *FeetechActuator) Close() error {
	return multierr.Combine(
		a.Disable(context.Background()),
		a.bus.Close(),
	)
}

func degreesToSteps(angle int) int {
	return angle * feetechSteps / feetechDegrees
}

func stepsToDegrees(steps int) int {
	return steps * feetechDegrees / feetechSteps
}
