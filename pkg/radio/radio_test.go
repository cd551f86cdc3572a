package radio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/quantumrobotics/hexapod/pkg/status"
	"github.com/quantumrobotics/hexapod/pkg/timer"
)

func newLink(t *testing.T, clk clock.Clock) (*Transmitter, *Receiver, *Loopback, *Loopback) {
	t.Helper()
	ether := NewEther()
	txDev, rxDev := ether.Device(), ether.Device()

	tx := NewTransmitter(txDev, DefaultConfig(), &status.Recorder{})
	rx := NewReceiver(rxDev, DefaultConfig(), clk)
	if err := tx.Initialize(); err != nil {
		t.Fatalf("tx.Initialize: %v", err)
	}
	if err := rx.Initialize(); err != nil {
		t.Fatalf("rx.Initialize: %v", err)
	}
	return tx, rx, txDev, rxDev
}

func TestLink_SendAndReceive(t *testing.T) {
	tx, rx, _, _ := newLink(t, clock.NewMock())

	want := SetpointPackage{
		X:       [LegCount]int{1, 2, 3, 4, 5, 6},
		Y:       [LegCount]int{10, 20, 30, 40, 50, 60},
		Buttons: Buttons{false, false, true},
	}
	if err := tx.Send(want, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !rx.ReadIfAvailable() {
		t.Fatal("ReadIfAvailable() = false with a frame waiting")
	}
	if got := rx.Package(); got != want {
		t.Errorf("Package() = %+v, want %+v", got, want)
	}
}

func TestReceiver_LastFrameWins(t *testing.T) {
	tx, rx, _, _ := newLink(t, clock.NewMock())

	for i := 0; i < FIFODepth; i++ {
		p := NeutralSetpoints()
		p.X[0] = i
		if err := tx.Send(p, nil); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	if !rx.ReadIfAvailable() {
		t.Fatal("nothing read")
	}
	if got := rx.Package().X[0]; got != FIFODepth-1 {
		t.Errorf("X[0] = %d, want last frame %d", got, FIFODepth-1)
	}
}

func TestReceiver_NoDataLeavesPackage(t *testing.T) {
	_, rx, _, _ := newLink(t, clock.NewMock())
	before := rx.Package()
	if rx.ReadIfAvailable() {
		t.Error("ReadIfAvailable() = true with nothing sent")
	}
	if rx.Package() != before {
		t.Error("package changed without data")
	}
}

func TestReceiver_DropsWrongSize(t *testing.T) {
	tx, rx, _, _ := newLink(t, clock.NewMock())

	if err := tx.Send(CommandPackage{Mode: Walking, Angle: 90}, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if rx.ReadIfAvailable() {
		t.Error("a command package was accepted as setpoints")
	}
	if rx.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", rx.Dropped())
	}
	if rx.Package() != NeutralSetpoints() {
		t.Error("package changed after a dropped frame")
	}
}

// slowDevice always has data and advances the mock clock on every poll.
type slowDevice struct {
	*Loopback
	clk   *clock.Mock
	reads int
}

func (d *slowDevice) Available() bool { return true }

func (d *slowDevice) Read(buf []byte) (int, error) {
	d.reads++
	d.clk.Add(10 * time.Millisecond)
	data, _ := NeutralSetpoints().MarshalBinary()
	return copy(buf, data), nil
}

func TestReceiver_DrainIsBoundedByWindow(t *testing.T) {
	clk := clock.NewMock()
	dev := &slowDevice{Loopback: NewEther().Device(), clk: clk}
	rx := NewReceiver(dev, DefaultConfig(), clk)
	if err := rx.Initialize(); err != nil {
		t.Fatal(err)
	}

	if !rx.ReadIfAvailable() {
		t.Fatal("ReadIfAvailable() = false")
	}
	// 50ms window, 10ms per read.
	if dev.reads != 5 {
		t.Errorf("read %d frames, want 5", dev.reads)
	}
}

func TestTransmitter_RetriesThenSucceeds(t *testing.T) {
	tx, rx, txDev, _ := newLink(t, clock.NewMock())
	txDev.FailWrites = 2

	if err := tx.Send(NeutralSetpoints(), nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if txDev.Writes() != 3 {
		t.Errorf("made %d writes, want 3", txDev.Writes())
	}
	if !rx.ReadIfAvailable() {
		t.Error("frame did not arrive")
	}
}

func TestTransmitter_BoundedByAttempts(t *testing.T) {
	ether := NewEther()
	dev := ether.Device() // nobody listening
	cfg := DefaultConfig()
	cfg.MaxAttempts = 4
	light := &status.Recorder{}
	tx := NewTransmitter(dev, cfg, light)
	if err := tx.Initialize(); err != nil {
		t.Fatal(err)
	}

	err := tx.Send(NeutralSetpoints(), nil)
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("Send error = %v, want ErrSendFailed", err)
	}
	if dev.Writes() != 4 {
		t.Errorf("made %d writes, want 4", dev.Writes())
	}
	if light.Last() != status.Error {
		t.Errorf("light = %v, want error", light.Last())
	}
}

func TestTransmitter_BoundedByDeadline(t *testing.T) {
	clk := clock.NewMock()
	dev := NewEther().Device()
	tx := NewTransmitter(dev, DefaultConfig(), nil)
	if err := tx.Initialize(); err != nil {
		t.Fatal(err)
	}

	deadline := timer.New(clk)
	deadline.ArmMillis(500)
	clk.Add(time.Second)

	if err := tx.Send(NeutralSetpoints(), deadline); !errors.Is(err, ErrSendFailed) {
		t.Fatalf("Send error = %v, want ErrSendFailed", err)
	}
	if dev.Writes() != 1 {
		t.Errorf("made %d writes past the deadline, want exactly 1", dev.Writes())
	}
}

func TestTransmitter_NotInitialized(t *testing.T) {
	tx := NewTransmitter(NewEther().Device(), DefaultConfig(), nil)
	if err := tx.Send(NeutralSetpoints(), nil); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("err = %v, want ErrNotInitialized", err)
	}
}

func TestLink_ChannelMismatch(t *testing.T) {
	ether := NewEther()
	cfg := DefaultConfig()
	tx := NewTransmitter(ether.Device(), cfg, nil)
	cfg.Channel = 90
	rx := NewReceiver(ether.Device(), cfg, clock.NewMock())
	if err := tx.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := rx.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := tx.Send(NeutralSetpoints(), nil); err == nil {
		t.Error("send across channels was acknowledged")
	}
}

func TestEstablish(t *testing.T) {
	dev := NewEther().Device()
	light := &status.Recorder{}
	rx := NewReceiver(dev, DefaultConfig(), nil)

	if err := Establish(context.Background(), rx, light, clock.NewMock(), time.Second); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if light.Last() != status.OK {
		t.Errorf("light = %v, want ok", light.Last())
	}
}

func TestEstablish_Timeout(t *testing.T) {
	dev := NewEther().Device()
	dev.Down = true
	light := &status.Recorder{}
	tx := NewTransmitter(dev, DefaultConfig(), nil)

	err := Establish(context.Background(), tx, light, clock.New(), 150*time.Millisecond)
	if !errors.Is(err, ErrLinkDown) {
		t.Fatalf("err = %v, want ErrLinkDown", err)
	}
	if light.Last() != status.Error {
		t.Errorf("light = %v, want error", light.Last())
	}
	if got := len(light.States()); got < 3 {
		t.Errorf("expected a waiting animation, got states %v", light.States())
	}
}

func TestLoopback_ConfigureWhileTransmitting(t *testing.T) {
	ether := NewEther()
	tx := NewTransmitter(ether.Device(), DefaultConfig(), &status.Recorder{})
	if err := tx.Initialize(); err != nil {
		t.Fatal(err)
	}
	rxDev := ether.Device()
	rx := NewReceiver(rxDev, DefaultConfig(), clock.NewMock())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			tx.Send(NeutralSetpoints(), nil)
		}
	}()
	if err := rx.Initialize(); err != nil {
		t.Fatal(err)
	}
	<-done

	for rxDev.Available() {
		rxDev.Read(make([]byte, MaxPayload))
	}
	if err := tx.Send(NeutralSetpoints(), nil); err != nil {
		t.Errorf("send after receiver came up: %v", err)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	got := Config{Channel: 90}.WithDefaults()
	if got.Channel != 90 {
		t.Errorf("Channel = %d, want 90 kept", got.Channel)
	}
	if got.Address != DefaultAddress || got.MaxAttempts != DefaultMaxAttempts || got.PollWindow != DefaultPollWindow {
		t.Errorf("defaults not applied: %+v", got)
	}
}
