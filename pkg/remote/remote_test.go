package remote

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"

	"github.com/quantumrobotics/hexapod/pkg/radio"
	"github.com/quantumrobotics/hexapod/pkg/status"
)

func TestCenterReading_DeadZone(t *testing.T) {
	tests := []struct {
		raw  int
		want int
	}{
		{512, 0},
		{462, 0},
		{562, 0},
		{611, 0},
		{612, 100},
		{700, 188},
		{413, 0},
		{412, -100},
		{0, -512},
		{1023, 511},
	}
	for _, tt := range tests {
		if got := CenterReading(tt.raw); got != tt.want {
			t.Errorf("CenterReading(%d) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestJoystickVector(t *testing.T) {
	tests := []struct {
		name  string
		x, y  int
		angle int
	}{
		{"centered", 512, 512, 0},
		{"jitter", 560, 470, 0},
		{"right", 700, 512, 0},
		{"up", 512, 700, 90},
		{"left", 300, 512, 180},
		{"down", 512, 300, -90},
		{"diagonal", 700, 700, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := JoystickVector(tt.x, tt.y)
			if v.Angle != tt.angle {
				t.Errorf("Angle = %d, want %d", v.Angle, tt.angle)
			}
		})
	}

	v := JoystickVector(700, 512)
	if v.X != 188 || v.Y != 0 || v.Magnitude != 188 {
		t.Errorf("JoystickVector(700, 512) = %+v", v)
	}
}

// The controller firmware computes the angle from the X reading twice. These
// tests pin that behavior until someone decides whether to use Y.
func TestSelectVector_KnownDiscrepancy_ReusesXChannel(t *testing.T) {
	move := Stick{X: 700, Y: 512} // pushed right
	rotate := Stick{X: 512, Y: 900}

	if got := SelectVector(radio.Walking, move, rotate, false).Angle; got != 45 {
		t.Errorf("walking, X only: angle = %d, want 45 (X used for both axes)", got)
	}
	if got := SelectVector(radio.Walking, move, rotate, true).Angle; got != 0 {
		t.Errorf("walking, own Y: angle = %d, want 0", got)
	}

	// Rotation stick pushed straight up reads as no deflection at all.
	if got := SelectVector(radio.Rotation, move, rotate, false).Angle; got != 0 {
		t.Errorf("rotation, X only: angle = %d, want 0", got)
	}
	if got := SelectVector(radio.Rotation, move, rotate, true).Angle; got != 90 {
		t.Errorf("rotation, own Y: angle = %d, want 90", got)
	}

	left := Stick{X: 100, Y: 512}
	if got := SelectVector(radio.Walking, left, rotate, false).Angle; got != -135 {
		t.Errorf("walking left, X only: angle = %d, want -135", got)
	}
}

func TestScanButtons(t *testing.T) {
	tests := []struct {
		in   radio.Buttons
		want int
	}{
		{radio.Buttons{false, true, false}, 1},
		{radio.Buttons{false, false, false}, NoButton},
		{radio.Buttons{true, true, false}, 0},
		{radio.Buttons{false, false, true}, 2},
	}
	for _, tt := range tests {
		if got := ScanButtons(tt.in); got != tt.want {
			t.Errorf("ScanButtons(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestVirtual(t *testing.T) {
	v := NewVirtual(radio.Rotation)
	v.Nudge(false, 2000, -2000)
	move, rotate := v.Sticks()
	if move != (Stick{1023, 0}) || rotate != (Stick{Center, Center}) {
		t.Errorf("after nudge move=%v rotate=%v", move, rotate)
	}
	v.Recenter()
	if move, _ := v.Sticks(); move != (Stick{Center, Center}) {
		t.Errorf("Recenter left move at %v", move)
	}

	v.SetButton(2, true)
	v.ToggleButton(0)
	v.SetButton(7, true) // ignored
	if got := v.Buttons(); got != (radio.Buttons{true, false, true}) {
		t.Errorf("Buttons() = %v", got)
	}
	if v.ToggleMode() != radio.Walking || v.Mode() != radio.Walking {
		t.Error("ToggleMode did not switch to walking")
	}
}

type recordingDisplay struct {
	frames []Frame
}

func (d *recordingDisplay) Show(f Frame) {
	d.frames = append(d.frames, f)
}

func newTestController(t *testing.T, src Source) (*Controller, *radio.Loopback, *recordingDisplay, *status.Recorder) {
	t.Helper()
	ether := radio.NewEther()
	txDev, rxDev := ether.Device(), ether.Device()

	light := &status.Recorder{}
	display := &recordingDisplay{}
	tx := radio.NewTransmitter(txDev, radio.DefaultConfig(), light)
	c := NewController(Options{
		Source:      src,
		Transmitter: tx,
		Display:     display,
		Light:       light,
		Clock:       clock.New(),
		UseStickY:   true,
	})

	// The robot side decodes setpoint packages only, so tests read raw
	// frames off the device.
	rx := radio.NewReceiver(rxDev, radio.DefaultConfig(), clock.NewMock())
	if err := rx.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := radio.Establish(context.Background(), tx, light, nil, time.Second); err != nil {
		t.Fatal(err)
	}
	return c, rxDev, display, light
}

func TestController_TickTransmits(t *testing.T) {
	src := NewVirtual(radio.Walking)
	src.SetSticks(Stick{512, 900}, Stick{512, 512})
	src.SetButton(1, true)

	c, rxDev, display, light := newTestController(t, src)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !rxDev.Available() {
		t.Fatal("nothing transmitted")
	}
	buf := make([]byte, radio.MaxPayload)
	n, err := rxDev.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	var got radio.CommandPackage
	if err := got.UnmarshalBinary(buf[:n]); err != nil {
		t.Fatal(err)
	}
	want := radio.CommandPackage{Mode: radio.Walking, Angle: 90, Buttons: radio.Buttons{false, true, false}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sent package mismatch (-want +got):\n%s", diff)
	}

	if len(display.frames) != 1 || display.frames[0].Pressed != 1 {
		t.Errorf("display frames = %+v", display.frames)
	}
	if f := c.Snapshot(); f.Sent != 1 || f.Failed != 0 || f.LastErr != nil {
		t.Errorf("snapshot = %+v", f)
	}
	if light.Last() != status.OK {
		t.Errorf("light = %v", light.Last())
	}
}

func TestController_SendFailureStaysInLoop(t *testing.T) {
	src := NewVirtual(radio.Rotation)
	c, _, _, light := newTestController(t, src)

	// Fill the receiver FIFO so nothing more is acknowledged.
	for i := 0; i < radio.FIFODepth; i++ {
		if err := c.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick returned %v", err)
	}

	f := c.Snapshot()
	if f.Failed != 1 || !errors.Is(f.LastErr, radio.ErrSendFailed) {
		t.Errorf("snapshot = %+v", f)
	}
	if light.Last() != status.Error {
		t.Errorf("light = %v, want error", light.Last())
	}
}

func TestController_StartFailsWithoutRadio(t *testing.T) {
	if testing.Short() {
		t.Skip("start blinks the heartbeat in real time")
	}
	dev := radio.NewEther().Device()
	dev.Down = true
	light := &status.Recorder{}
	c := NewController(Options{
		Source:      NewVirtual(radio.Walking),
		Transmitter: radio.NewTransmitter(dev, radio.DefaultConfig(), light),
		Light:       light,
		Clock:       clock.New(),
	})

	err := c.Start(context.Background(), 10*time.Millisecond)
	if !errors.Is(err, radio.ErrLinkDown) {
		t.Errorf("err = %v, want ErrLinkDown", err)
	}

	oks := 0
	for _, s := range light.States() {
		if s == status.OK {
			oks++
		}
	}
	if oks != startupBlinks {
		t.Errorf("heartbeat blinked OK %d times, want %d", oks, startupBlinks)
	}
	if light.Last() != status.Error {
		t.Errorf("light = %v, want error", light.Last())
	}
}

func TestConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfcontrol.json")
	cfg := DefaultConfig()
	cfg.Mode = radio.Walking
	cfg.UseStickY = true
	cfg.Radio.Port = "/dev/ttyUSB1"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("config mismatch (-saved +loaded):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
