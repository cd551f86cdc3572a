package radio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Bridge is a Device reached through a USB radio dongle on a serial port.
//
// Every request is answered by exactly one reply. Both use the frame
//
//	0xA5 | cmd | len | payload[len] | crc8(cmd, len, payload)
//
// A reply echoes the request cmd with the high bit set and carries a status
// byte (zero on success) followed by any result data.
type Bridge struct {
	mu   sync.Mutex
	port io.ReadWriteCloser
	rx   [1]byte
}

const (
	frameSync = 0xA5
	replyFlag = 0x80
	maxEmpty  = 10
	// maxStale bounds how many replies to earlier requests are skipped.
	maxStale    = 8
	readTimeout = 100 * time.Millisecond
)

// Bridge commands.
const (
	cmdBegin byte = iota + 1
	cmdChannel
	cmdPALevel
	cmdDataRate
	cmdOpenWrite
	cmdOpenRead
	cmdListen
	cmdWrite
	cmdAvailable
	cmdRead
)

var (
	errBridgeTimeout = errors.New("bridge did not answer")
	errBridgeCRC     = errors.New("bridge reply failed checksum")
)

// OpenBridge opens the dongle on cfg.Port.
func OpenBridge(cfg Config) (*Bridge, error) {
	cfg = cfg.WithDefaults()
	if cfg.Port == "" {
		return nil, errors.New("no radio port configured")
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open radio port %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return NewBridge(port), nil
}

// NewBridge talks the bridge protocol over an already open stream.
func NewBridge(port io.ReadWriteCloser) *Bridge {
	return &Bridge{port: port}
}

// Close closes the serial port.
func (b *Bridge) Close() error {
	return b.port.Close()
}

func (b *Bridge) Begin() error {
	_, err := b.call(cmdBegin)
	return err
}

func (b *Bridge) SetChannel(ch uint8) error {
	_, err := b.call(cmdChannel, ch)
	return err
}

func (b *Bridge) SetPALevel(level PALevel) error {
	_, err := b.call(cmdPALevel, byte(level))
	return err
}

func (b *Bridge) SetDataRate(rate DataRate) error {
	_, err := b.call(cmdDataRate, byte(rate))
	return err
}

func (b *Bridge) OpenWritingPipe(addr Address) error {
	a := addr.Bytes()
	_, err := b.call(cmdOpenWrite, a[:]...)
	return err
}

func (b *Bridge) OpenReadingPipe(pipe int, addr Address) error {
	a := addr.Bytes()
	_, err := b.call(cmdOpenRead, append([]byte{byte(pipe)}, a[:]...)...)
	return err
}

func (b *Bridge) StartListening() error {
	_, err := b.call(cmdListen)
	return err
}

func (b *Bridge) Write(payload []byte) bool {
	_, err := b.call(cmdWrite, payload...)
	if err != nil {
		logger.WithError(err).Debug("bridge write not acknowledged")
	}
	return err == nil
}

func (b *Bridge) Available() bool {
	data, err := b.call(cmdAvailable)
	if err != nil || len(data) == 0 {
		return false
	}
	return data[0] > 0
}

func (b *Bridge) Read(buf []byte) (int, error) {
	data, err := b.call(cmdRead)
	if err != nil {
		return 0, err
	}
	return copy(buf, data), nil
}

// call sends one request and waits for its reply, returning the reply data
// after the status byte.
func (b *Bridge) call(cmd byte, payload ...byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.port.Write(encodeFrame(cmd, payload)); err != nil {
		return nil, fmt.Errorf("write bridge request: %w", err)
	}
	// A reply that arrived after its request timed out is still queued
	// ahead of ours; skip it.
	var (
		rcmd byte
		data []byte
		err  error
	)
	for stale := 0; ; stale++ {
		rcmd, data, err = b.readFrame()
		if err != nil {
			if errors.Is(err, errBridgeTimeout) {
				b.flush()
			}
			return nil, err
		}
		if rcmd == cmd|replyFlag {
			break
		}
		if stale == maxStale {
			return nil, fmt.Errorf("bridge answered command 0x%02x to 0x%02x", rcmd, cmd)
		}
		logger.WithFields(log.Fields{"got": rcmd, "want": cmd | replyFlag}).Debug("skipping stale bridge reply")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("bridge reply to 0x%02x has no status", cmd)
	}
	if data[0] != 0 {
		return nil, fmt.Errorf("bridge command 0x%02x failed with status %d", cmd, data[0])
	}
	return data[1:], nil
}

// flush drops unread input when the port supports it.
func (b *Bridge) flush() {
	if r, ok := b.port.(interface{ ResetInputBuffer() error }); ok {
		if err := r.ResetInputBuffer(); err != nil {
			logger.WithError(err).Debug("flush bridge input")
		}
	}
}

func encodeFrame(cmd byte, payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+4)
	frame = append(frame, frameSync, cmd, byte(len(payload)))
	frame = append(frame, payload...)
	return append(frame, crc8(frame[1:]))
}

// readFrame runs a small state machine over the incoming bytes until one
// complete frame has been read.
func (b *Bridge) readFrame() (byte, []byte, error) {
	for {
		c, err := b.readByte()
		if err != nil {
			return 0, nil, err
		}
		if c != frameSync {
			continue
		}
		cmd, err := b.readByte()
		if err != nil {
			return 0, nil, err
		}
		n, err := b.readByte()
		if err != nil {
			return 0, nil, err
		}
		body := make([]byte, 0, int(n)+2)
		body = append(body, cmd, n)
		for i := 0; i < int(n); i++ {
			c, err := b.readByte()
			if err != nil {
				return 0, nil, err
			}
			body = append(body, c)
		}
		sum, err := b.readByte()
		if err != nil {
			return 0, nil, err
		}
		if crc8(body) != sum {
			return 0, nil, errBridgeCRC
		}
		return cmd, body[2:], nil
	}
}

// readByte reads a single byte. The serial port returns zero bytes on a read
// timeout, so a run of empty reads means the dongle is gone.
func (b *Bridge) readByte() (byte, error) {
	for empty := 0; empty < maxEmpty; empty++ {
		n, err := b.port.Read(b.rx[:])
		if n == 1 {
			return b.rx[0], nil
		}
		if err != nil {
			return 0, fmt.Errorf("read bridge reply: %w", err)
		}
	}
	return 0, errBridgeTimeout
}

// crc8 is CRC-8/DVB-S2, the checksum RC receiver links use.
func crc8(data []byte) byte {
	crc := byte(0)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0xD5
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
