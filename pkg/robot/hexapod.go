package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"

	"github.com/quantumrobotics/hexapod/pkg/radio"
	"github.com/quantumrobotics/hexapod/pkg/status"
	"github.com/quantumrobotics/hexapod/pkg/timer"
)

// Mode selects where setpoints come from.
type Mode int

const (
	// Automatic follows setpoints received over the radio.
	Automatic Mode = iota
	// Manual ignores the radio and follows SetAngle/SetAnglesLeg.
	Manual
)

func (m Mode) String() string {
	if m == Manual {
		return "manual"
	}
	return "automatic"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "automatic", "auto":
		*m = Automatic
	case "manual":
		*m = Manual
	default:
		return fmt.Errorf("unknown mode %q", b)
	}
	return nil
}

// sweepPause is the pause between writes when sweeping a joint.
const sweepPause = 100 * time.Millisecond

// Options configures a Hexapod.
type Options struct {
	Calibration Calibration
	Channels    ChannelTable
	Actuator    Actuator
	// Receiver may be nil, in which case only manual mode is useful.
	Receiver  *radio.Receiver
	Light     status.Indicator
	Clock     clock.Clock
	Mode      Mode
	LegSettle time.Duration
	// PollWindow bounds how long each tick waits for radio data.
	PollWindow time.Duration
}

// JointState is a snapshot of one joint.
type JointState struct {
	Current    int
	Setpoint   int
	Limits     Limits
	Calibrated bool
}

// State is a snapshot of the robot after a tick.
type State struct {
	Mode        Mode
	Joints      [LegCount][JointsPerLeg]JointState
	AnglesX     [LegCount]int
	AnglesY     [LegCount]int
	Buttons     radio.Buttons
	AllFinished bool
	Received    int
	Dropped     int
	Timestamp   time.Time
}

// Hexapod is the robot-side routine. All methods must be called from the
// goroutine that runs Tick.
type Hexapod struct {
	driver *Driver
	act    Actuator
	rx     *radio.Receiver
	light  status.Indicator
	clk    clock.Clock
	poll   *timer.Timer
	window time.Duration

	mode        Mode
	anglesX     [LegCount]int
	anglesY     [LegCount]int
	buttons     radio.Buttons
	allFinished bool
	received    int
}

// New builds the robot from opts. Joints start settled at mid range.
func New(opts Options) (*Hexapod, error) {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Light == nil {
		opts.Light = &status.LogIndicator{Logger: logger}
	}
	if opts.PollWindow == 0 {
		opts.PollWindow = radio.DefaultPollWindow
	}
	driver, err := NewDriver(opts.Calibration, opts.Actuator, opts.Channels, opts.Clock, opts.LegSettle)
	if err != nil {
		return nil, fmt.Errorf("build servo driver: %w", err)
	}

	neutral := radio.NeutralSetpoints()
	return &Hexapod{
		driver:      driver,
		act:         opts.Actuator,
		rx:          opts.Receiver,
		light:       opts.Light,
		clk:         opts.Clock,
		poll:        timer.New(opts.Clock),
		window:      opts.PollWindow,
		mode:        opts.Mode,
		anglesX:     neutral.X,
		anglesY:     neutral.Y,
		allFinished: true,
	}, nil
}

// Start homes the servos and, when a receiver is present, brings the radio
// up. A link failure is fatal: the light is left on Error and the routine
// must not be ticked.
func (h *Hexapod) Start(ctx context.Context, startup time.Duration) error {
	if err := h.driver.Home(ctx); err != nil {
		logger.WithError(err).Warn("homing servos")
	}
	if h.rx == nil {
		h.light.Set(status.OK)
		return nil
	}
	return radio.Establish(ctx, h.rx, h.light, h.clk, startup)
}

// Tick runs one pass of the control loop: poll the radio in automatic mode,
// apply setpoints, and step the legs once if anything is still moving.
func (h *Hexapod) Tick(ctx context.Context) error {
	if h.mode == Automatic && h.rx != nil {
		h.pollRadio()
	}

	h.driver.ApplySetpoints(h.anglesX, h.anglesY)
	h.allFinished = h.driver.AllFinished()
	if h.allFinished {
		return nil
	}
	if err := h.driver.AdvanceAllLegs(ctx); err != nil {
		h.light.Set(status.Error)
		logger.WithError(err).Warn("servo step failed")
		return nil
	}
	h.light.Set(status.OK)
	return nil
}

// pollRadio waits up to the poll window for a package and copies its
// setpoints. Nothing arriving leaves the setpoints unchanged.
func (h *Hexapod) pollRadio() {
	h.poll.Arm(h.window)
	for h.poll.Pending() {
		if h.rx.ReadIfAvailable() {
			pkg := h.rx.Package()
			h.anglesX, h.anglesY, h.buttons = pkg.X, pkg.Y, pkg.Buttons
			h.received++
			logger.WithFields(log.Fields{"x": pkg.X, "y": pkg.Y}).Debug("setpoints received")
			return
		}
	}
}

// SelectMode switches between automatic and manual.
func (h *Hexapod) SelectMode(m Mode) {
	if m != h.mode {
		logger.WithField("mode", m.String()).Info("mode changed")
	}
	h.mode = m
}

// Mode returns the current mode.
func (h *Hexapod) Mode() Mode {
	return h.mode
}

// SetAnglesLeg replaces the normalized setpoints of every leg on one axis.
func (h *Hexapod) SetAnglesLeg(values [LegCount]int, axis Axis) error {
	switch axis {
	case X:
		h.anglesX = values
	case Y:
		h.anglesY = values
	default:
		return fmt.Errorf("%w: axis %d", ErrNoSuchJoint, int(axis))
	}
	return nil
}

// SetAngle replaces the normalized setpoint of one joint.
func (h *Hexapod) SetAngle(value, leg int, axis Axis) error {
	id := JointID{Leg: leg, Axis: axis}
	if !id.Valid() {
		return fmt.Errorf("%w: %s", ErrNoSuchJoint, id)
	}
	if axis == X {
		h.anglesX[leg] = value
	} else {
		h.anglesY[leg] = value
	}
	return nil
}

// ServosFinished reports whether every joint was at its setpoint at the last
// tick.
func (h *Hexapod) ServosFinished() bool {
	return h.allFinished
}

// Driver exposes the servo driver.
func (h *Hexapod) Driver() *Driver {
	return h.driver
}

// Snapshot captures the current state.
func (h *Hexapod) Snapshot() State {
	s := State{
		Mode:        h.mode,
		AnglesX:     h.anglesX,
		AnglesY:     h.anglesY,
		Buttons:     h.buttons,
		AllFinished: h.allFinished,
		Received:    h.received,
		Timestamp:   h.clk.Now(),
	}
	if h.rx != nil {
		s.Dropped = h.rx.Dropped()
	}
	for _, id := range AllJoints() {
		j := h.driver.joint(id)
		s.Joints[id.Leg][id.Axis] = JointState{
			Current:    j.Current(),
			Setpoint:   j.Setpoint(),
			Limits:     j.Limits(),
			Calibrated: j.Calibrated(),
		}
	}
	return s
}

// Sweep drives one joint across its range a degree at a time, for checking
// wiring on the bench. With full set it covers 0..180 instead of the
// calibrated bounds. The joint model is left untouched.
func (h *Hexapod) Sweep(ctx context.Context, id JointID, full bool) error {
	j, err := h.driver.Joint(id)
	if err != nil {
		return err
	}
	if h.act == nil {
		return fmt.Errorf("no actuator to sweep %s", id)
	}
	if !j.Calibrated() {
		return fmt.Errorf("%w: %s", ErrNotCalibrated, id)
	}
	from, to := j.Limits().Min, j.Limits().Max
	if full {
		from, to = 0, 180
	}
	logger.WithFields(log.Fields{"joint": id.String(), "from": from, "to": to}).Info("sweeping")
	for angle := from; angle < to; angle++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.act.SetAngle(ctx, j.Channel(), angle); err != nil {
			return err
		}
		h.clk.Sleep(sweepPause)
	}
	return h.act.SetAngle(ctx, j.Channel(), j.Current())
}
