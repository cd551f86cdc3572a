package radio

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/quantumrobotics/hexapod/pkg/status"
	"github.com/quantumrobotics/hexapod/pkg/timer"
)

// Initializer is either role.
type Initializer interface {
	Initialize() error
}

// Establish brings the link up, retrying Initialize until it succeeds or
// within expires. While waiting the status light blinks Waiting as a
// heartbeat. On failure the light is latched to Error and an error wrapping
// ErrLinkDown is returned; callers must not enter the control loop.
func Establish(ctx context.Context, role Initializer, light status.Indicator, clk clock.Clock, within time.Duration) error {
	if clk == nil {
		clk = clock.New()
	}
	deadline := timer.New(clk)
	deadline.Arm(within)

	light.Set(status.Waiting)
	attempts := 0
	for {
		attempts++
		err := role.Initialize()
		if err == nil {
			light.Set(status.OK)
			logger.WithField("attempts", attempts).Info("link established")
			return nil
		}
		logger.WithError(err).WithField("attempt", attempts).Debug("radio not answering")

		if deadline.Expired() {
			light.Set(status.Error)
			return fmt.Errorf("%w after %d attempts: %v", ErrLinkDown, attempts, err)
		}
		if ctx.Err() != nil {
			light.Set(status.Error)
			return ctx.Err()
		}
		status.Animate(light, clk, status.Waiting)
	}
}
