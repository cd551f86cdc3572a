package radio

import (
	"bytes"
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
)

// fakeDongle answers bridge requests synchronously using a Loopback as the
// radio behind the serial port.
type fakeDongle struct {
	dev     *Loopback
	out     bytes.Buffer
	corrupt bool
	silent  bool
	closed  bool
	// lateFirst holds the first reply back until the next request.
	lateFirst bool
	held      []byte
}

func (f *fakeDongle) Write(p []byte) (int, error) {
	if len(p) < 4 || p[0] != frameSync {
		return len(p), nil
	}
	cmd, n := p[1], int(p[2])
	payload := p[3 : 3+n]
	if f.silent {
		return len(p), nil
	}

	reply := []byte{0}
	fail := func(err error) {
		if err != nil {
			reply[0] = 1
		}
	}
	switch cmd {
	case cmdBegin:
		fail(f.dev.Begin())
	case cmdChannel:
		fail(f.dev.SetChannel(payload[0]))
	case cmdPALevel:
		fail(f.dev.SetPALevel(PALevel(payload[0])))
	case cmdDataRate:
		fail(f.dev.SetDataRate(DataRate(payload[0])))
	case cmdOpenWrite:
		fail(f.dev.OpenWritingPipe(Address(bytes.TrimRight(payload, "\x00"))))
	case cmdOpenRead:
		fail(f.dev.OpenReadingPipe(int(payload[0]), Address(bytes.TrimRight(payload[1:], "\x00"))))
	case cmdListen:
		fail(f.dev.StartListening())
	case cmdWrite:
		if !f.dev.Write(payload) {
			reply[0] = 1
		}
	case cmdAvailable:
		if f.dev.Available() {
			reply = append(reply, 1)
		} else {
			reply = append(reply, 0)
		}
	case cmdRead:
		buf := make([]byte, MaxPayload)
		n, err := f.dev.Read(buf)
		fail(err)
		reply = append(reply, buf[:n]...)
	}

	frame := encodeFrame(cmd|replyFlag, reply)
	if f.corrupt {
		frame[len(frame)-1] ^= 0xff
	}
	if f.lateFirst {
		f.lateFirst = false
		f.held = frame
		return len(p), nil
	}
	if f.held != nil {
		f.out.Write(f.held)
		f.held = nil
	}
	f.out.Write([]byte{0x00, 0x13}) // line noise before the sync byte
	f.out.Write(frame)
	return len(p), nil
}

func (f *fakeDongle) Read(p []byte) (int, error) {
	if f.out.Len() == 0 {
		return 0, nil
	}
	return f.out.Read(p)
}

func (f *fakeDongle) Close() error {
	f.closed = true
	return nil
}

func TestBridge_EndToEnd(t *testing.T) {
	ether := NewEther()
	txDongle := &fakeDongle{dev: ether.Device()}
	rxDongle := &fakeDongle{dev: ether.Device()}

	tx := NewTransmitter(NewBridge(txDongle), DefaultConfig(), nil)
	rx := NewReceiver(NewBridge(rxDongle), DefaultConfig(), clock.NewMock())
	if err := tx.Initialize(); err != nil {
		t.Fatalf("tx.Initialize: %v", err)
	}
	if err := rx.Initialize(); err != nil {
		t.Fatalf("rx.Initialize: %v", err)
	}

	want := NeutralSetpoints()
	want.Y[4] = 93
	want.Buttons[1] = true
	if err := tx.Send(want, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !rx.ReadIfAvailable() {
		t.Fatal("nothing received over the bridge")
	}
	if got := rx.Package(); got != want {
		t.Errorf("Package() = %+v, want %+v", got, want)
	}
}

func TestBridge_BeginFailsWhenRadioDown(t *testing.T) {
	dongle := &fakeDongle{dev: NewEther().Device()}
	dongle.dev.Down = true
	if err := NewBridge(dongle).Begin(); err == nil {
		t.Error("Begin succeeded with the radio down")
	}
}

func TestBridge_Timeout(t *testing.T) {
	dongle := &fakeDongle{dev: NewEther().Device(), silent: true}
	if err := NewBridge(dongle).Begin(); !errors.Is(err, errBridgeTimeout) {
		t.Errorf("err = %v, want errBridgeTimeout", err)
	}
}

func TestBridge_RecoversFromLateReply(t *testing.T) {
	dongle := &fakeDongle{dev: NewEther().Device(), lateFirst: true}
	b := NewBridge(dongle)

	if err := b.Begin(); !errors.Is(err, errBridgeTimeout) {
		t.Fatalf("Begin err = %v, want errBridgeTimeout", err)
	}

	calls := []struct {
		name string
		call func() error
	}{
		{"SetChannel", func() error { return b.SetChannel(115) }},
		{"SetPALevel", func() error { return b.SetPALevel(PAMax) }},
		{"SetDataRate", func() error { return b.SetDataRate(Rate250Kbps) }},
		{"OpenWritingPipe", func() error { return b.OpenWritingPipe("0") }},
		{"OpenReadingPipe", func() error { return b.OpenReadingPipe(1, "0") }},
		{"StartListening", func() error { return b.StartListening() }},
	}
	for _, c := range calls {
		if err := c.call(); err != nil {
			t.Errorf("%s after a late reply: %v", c.name, err)
		}
	}
	if b.Available() {
		t.Error("Available reported data on an idle link")
	}
}

type flushingDongle struct {
	*fakeDongle
	resets int
}

func (f *flushingDongle) ResetInputBuffer() error {
	f.resets++
	f.out.Reset()
	return nil
}

func TestBridge_FlushesInputAfterTimeout(t *testing.T) {
	dongle := &flushingDongle{fakeDongle: &fakeDongle{dev: NewEther().Device(), silent: true}}
	if err := NewBridge(dongle).Begin(); !errors.Is(err, errBridgeTimeout) {
		t.Fatalf("err = %v, want errBridgeTimeout", err)
	}
	if dongle.resets != 1 {
		t.Errorf("input flushed %d times, want 1", dongle.resets)
	}
}

func TestBridge_BadChecksum(t *testing.T) {
	dongle := &fakeDongle{dev: NewEther().Device(), corrupt: true}
	if err := NewBridge(dongle).Begin(); !errors.Is(err, errBridgeCRC) {
		t.Errorf("err = %v, want errBridgeCRC", err)
	}
}

func TestBridge_Close(t *testing.T) {
	dongle := &fakeDongle{dev: NewEther().Device()}
	if err := NewBridge(dongle).Close(); err != nil {
		t.Fatal(err)
	}
	if !dongle.closed {
		t.Error("port not closed")
	}
}

func TestCRC8(t *testing.T) {
	// CRC-8/DVB-S2 check value.
	if got := crc8([]byte("123456789")); got != 0xBC {
		t.Errorf("crc8 = 0x%02x, want 0xbc", got)
	}
}
