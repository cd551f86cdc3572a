package radio

import (
	"errors"
	"sync"
)

// FIFODepth is how many frames a receiving device buffers before it stops
// acknowledging.
const FIFODepth = 3

var errDeviceDown = errors.New("device not responding")

// Ether is an in-memory radio medium. Devices created from the same Ether on
// the same channel and data rate can reach each other.
type Ether struct {
	mu      sync.Mutex
	devices []*Loopback
}

// NewEther returns an empty medium.
func NewEther() *Ether {
	return &Ether{}
}

// Device attaches a new transceiver to the medium.
func (e *Ether) Device() *Loopback {
	d := &Loopback{ether: e}
	e.mu.Lock()
	e.devices = append(e.devices, d)
	e.mu.Unlock()
	return d
}

// Loopback is a Device on an Ether. It behaves like an auto-ack transceiver:
// a write is acknowledged only when a listening device with a free FIFO slot
// is on the same channel, rate and address. Its state is guarded by the
// Ether's lock, so a device may be configured while peers transmit.
type Loopback struct {
	ether *Ether

	// Down makes Begin fail, as if the radio were unplugged.
	Down bool
	// FailWrites makes the next n writes fail regardless of listeners.
	FailWrites int

	begun     bool
	channel   uint8
	rate      DataRate
	writeAddr Address
	readAddr  Address
	reading   bool
	listening bool
	fifo      [][]byte
	writes    int
}

func (d *Loopback) Begin() error {
	d.ether.mu.Lock()
	defer d.ether.mu.Unlock()
	if d.Down {
		return errDeviceDown
	}
	d.begun = true
	return nil
}

func (d *Loopback) SetChannel(ch uint8) error {
	d.ether.mu.Lock()
	defer d.ether.mu.Unlock()
	d.channel = ch
	return nil
}

func (d *Loopback) SetPALevel(PALevel) error { return nil }

func (d *Loopback) SetDataRate(rate DataRate) error {
	d.ether.mu.Lock()
	defer d.ether.mu.Unlock()
	d.rate = rate
	return nil
}

func (d *Loopback) OpenWritingPipe(addr Address) error {
	d.ether.mu.Lock()
	defer d.ether.mu.Unlock()
	d.writeAddr = addr
	return nil
}

func (d *Loopback) OpenReadingPipe(pipe int, addr Address) error {
	d.ether.mu.Lock()
	defer d.ether.mu.Unlock()
	if pipe < 0 || pipe > 5 {
		return errors.New("pipe out of range")
	}
	d.readAddr = addr
	d.reading = true
	return nil
}

func (d *Loopback) StartListening() error {
	d.ether.mu.Lock()
	defer d.ether.mu.Unlock()
	d.listening = true
	return nil
}

func (d *Loopback) Write(payload []byte) bool {
	e := d.ether
	e.mu.Lock()
	defer e.mu.Unlock()

	d.writes++
	if !d.begun {
		return false
	}
	if d.FailWrites > 0 {
		d.FailWrites--
		return false
	}
	for _, peer := range e.devices {
		if peer == d || !peer.listening || !peer.reading {
			continue
		}
		if peer.channel != d.channel || peer.rate != d.rate || peer.readAddr.Bytes() != d.writeAddr.Bytes() {
			continue
		}
		if len(peer.fifo) >= FIFODepth {
			continue
		}
		peer.fifo = append(peer.fifo, append([]byte(nil), payload...))
		return true
	}
	return false
}

func (d *Loopback) Available() bool {
	d.ether.mu.Lock()
	defer d.ether.mu.Unlock()
	return len(d.fifo) > 0
}

func (d *Loopback) Read(buf []byte) (int, error) {
	d.ether.mu.Lock()
	defer d.ether.mu.Unlock()
	if len(d.fifo) == 0 {
		return 0, errors.New("no frame waiting")
	}
	frame := d.fifo[0]
	d.fifo = d.fifo[1:]
	return copy(buf, frame), nil
}

// Writes returns how many writes were attempted on d.
func (d *Loopback) Writes() int {
	d.ether.mu.Lock()
	defer d.ether.mu.Unlock()
	return d.writes
}
