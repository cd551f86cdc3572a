package radio

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// LegCount is the number of setpoint slots per axis in a SetpointPackage.
	LegCount = 6
	// ButtonCount is the number of push buttons on the controller.
	ButtonCount = 3
)

// Wire sizes. Every field is little-endian with no padding.
const (
	// 6×int16 X, 6×int16 Y, 3×uint8 buttons.
	SetpointPackageSize = LegCount*2*2 + ButtonCount
	// uint8 mode, int16 angle, 3×uint8 buttons.
	CommandPackageSize = 1 + 2 + ButtonCount
)

// Buttons holds the push button states in priority order.
type Buttons [ButtonCount]bool

// SetpointPackage is what the robot receives: normalized 0..100 setpoints
// for each leg's X and Y joints plus the button states.
type SetpointPackage struct {
	X       [LegCount]int
	Y       [LegCount]int
	Buttons Buttons
}

// NeutralSetpoints returns a package with every joint at mid range.
func NeutralSetpoints() SetpointPackage {
	var p SetpointPackage
	for i := range p.X {
		p.X[i] = 50
		p.Y[i] = 50
	}
	return p
}

// MarshalBinary encodes p in its fixed wire layout.
func (p SetpointPackage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SetpointPackageSize)
	off := 0
	for _, vals := range [][LegCount]int{p.X, p.Y} {
		for i, v := range vals {
			if v < math.MinInt16 || v > math.MaxInt16 {
				return nil, fmt.Errorf("setpoint %d out of int16 range: %d", i, v)
			}
			binary.LittleEndian.PutUint16(buf[off:], uint16(int16(v)))
			off += 2
		}
	}
	putButtons(buf[off:], p.Buttons)
	return buf, nil
}

// UnmarshalBinary decodes a frame produced by MarshalBinary, replacing p
// entirely.
func (p *SetpointPackage) UnmarshalBinary(data []byte) error {
	if len(data) != SetpointPackageSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShortPackage, len(data), SetpointPackageSize)
	}
	var out SetpointPackage
	off := 0
	for i := range out.X {
		out.X[i] = int(int16(binary.LittleEndian.Uint16(data[off:])))
		off += 2
	}
	for i := range out.Y {
		out.Y[i] = int(int16(binary.LittleEndian.Uint16(data[off:])))
		off += 2
	}
	out.Buttons = getButtons(data[off:])
	*p = out
	return nil
}

// Mode is how the controller interprets its joysticks.
type Mode uint8

const (
	Rotation Mode = iota
	Walking
)

func (m Mode) String() string {
	if m == Walking {
		return "walking"
	}
	return "rotation"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "walking":
		*m = Walking
	case "rotation":
		*m = Rotation
	default:
		return fmt.Errorf("unknown mode %q", b)
	}
	return nil
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == Walking {
		return Rotation
	}
	return Walking
}

// CommandPackage is what the handheld controller transmits.
type CommandPackage struct {
	Mode    Mode
	Angle   int
	Buttons Buttons
}

// MarshalBinary encodes p in its fixed wire layout.
func (p CommandPackage) MarshalBinary() ([]byte, error) {
	if p.Angle < math.MinInt16 || p.Angle > math.MaxInt16 {
		return nil, fmt.Errorf("angle out of int16 range: %d", p.Angle)
	}
	buf := make([]byte, CommandPackageSize)
	buf[0] = byte(p.Mode)
	binary.LittleEndian.PutUint16(buf[1:], uint16(int16(p.Angle)))
	putButtons(buf[3:], p.Buttons)
	return buf, nil
}

// UnmarshalBinary decodes a frame produced by MarshalBinary.
func (p *CommandPackage) UnmarshalBinary(data []byte) error {
	if len(data) != CommandPackageSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShortPackage, len(data), CommandPackageSize)
	}
	if data[0] > byte(Walking) {
		return fmt.Errorf("unknown mode %d", data[0])
	}
	*p = CommandPackage{
		Mode:    Mode(data[0]),
		Angle:   int(int16(binary.LittleEndian.Uint16(data[1:]))),
		Buttons: getButtons(data[3:]),
	}
	return nil
}

func putButtons(dst []byte, b Buttons) {
	for i, pressed := range b {
		if pressed {
			dst[i] = 1
		} else {
			dst[i] = 0
		}
	}
}

func getButtons(src []byte) Buttons {
	var b Buttons
	for i := range b {
		b[i] = src[i] != 0
	}
	return b
}
