package remote

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"

	"github.com/quantumrobotics/hexapod/pkg/radio"
	"github.com/quantumrobotics/hexapod/pkg/status"
	"github.com/quantumrobotics/hexapod/pkg/timer"
)

var logger = log.WithFields(log.Fields{
	"pkg": "remote",
})

// startupBlinks is how many OK blinks the controller shows when powered on.
const startupBlinks = 20

// Frame is what the display shows after each tick.
type Frame struct {
	Package radio.CommandPackage
	Vector  Vector
	Pressed int
	Sent    int
	Failed  int
	LastErr error
}

// Display refreshes the status screen.
type Display interface {
	Show(Frame)
}

// LogDisplay shows frames through logrus.
type LogDisplay struct{}

func (LogDisplay) Show(f Frame) {
	logger.WithFields(log.Fields{
		"mode":    f.Package.Mode.String(),
		"angle":   f.Package.Angle,
		"buttons": f.Package.Buttons,
		"pressed": f.Pressed,
	}).Debug("display")
}

// Options configures a Controller.
type Options struct {
	Source      Source
	Transmitter *radio.Transmitter
	Display     Display
	Light       status.Indicator
	Clock       clock.Clock
	SendTimeout time.Duration
	UseStickY   bool
}

// Controller is the handheld routine.
type Controller struct {
	src         Source
	tx          *radio.Transmitter
	display     Display
	light       status.Indicator
	clk         clock.Clock
	deadline    *timer.Timer
	sendTimeout time.Duration
	useY        bool

	mu    sync.Mutex
	frame Frame
}

// NewController wires a controller from opts.
func NewController(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Display == nil {
		opts.Display = LogDisplay{}
	}
	if opts.Light == nil {
		opts.Light = &status.LogIndicator{Logger: logger}
	}
	if opts.SendTimeout == 0 {
		opts.SendTimeout = radio.DefaultSendTimeout
	}
	return &Controller{
		src:         opts.Source,
		tx:          opts.Transmitter,
		display:     opts.Display,
		light:       opts.Light,
		clk:         opts.Clock,
		deadline:    timer.New(opts.Clock),
		sendTimeout: opts.SendTimeout,
		useY:        opts.UseStickY,
		frame:       Frame{Pressed: NoButton},
	}
}

// Start blinks the power-on heartbeat and brings the radio up. A link
// failure leaves the light on Error and the loop must not be started.
func (c *Controller) Start(ctx context.Context, startup time.Duration) error {
	status.Heartbeat(c.light, c.clk, status.OK, startupBlinks)
	return radio.Establish(ctx, c.tx, c.light, c.clk, startup)
}

// Tick samples the inputs, refreshes the display and transmits one package.
// A failed send is reported on the light and in the frame; it is not
// returned.
func (c *Controller) Tick(ctx context.Context) error {
	c.light.Set(status.OK)

	mode := c.src.Mode()
	move, rotate := c.src.Sticks()
	vec := SelectVector(mode, move, rotate, c.useY)
	buttons := c.src.Buttons()

	pkg := radio.CommandPackage{Mode: mode, Angle: vec.Angle, Buttons: buttons}

	c.mu.Lock()
	c.frame.Package = pkg
	c.frame.Vector = vec
	c.frame.Pressed = ScanButtons(buttons)
	frame := c.frame
	c.mu.Unlock()
	c.display.Show(frame)

	c.deadline.Arm(c.sendTimeout)
	err := c.tx.Send(pkg, c.deadline)

	c.mu.Lock()
	if err != nil {
		c.frame.Failed++
	} else {
		c.frame.Sent++
	}
	c.frame.LastErr = err
	c.mu.Unlock()
	return nil
}

// Snapshot returns the last frame.
func (c *Controller) Snapshot() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}
