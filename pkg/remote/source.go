package remote

import (
	"sync"

	"github.com/quantumrobotics/hexapod/pkg/radio"
)

// Source samples the controller inputs.
type Source interface {
	Sticks() (move, rotate Stick)
	Buttons() radio.Buttons
	Mode() radio.Mode
}

// Virtual is a Source whose inputs are set in software, by the keyboard TUI
// or by tests. It is safe for concurrent use.
type Virtual struct {
	mu      sync.Mutex
	move    Stick
	rotate  Stick
	buttons radio.Buttons
	mode    radio.Mode
}

// NewVirtual returns a source with both sticks centered.
func NewVirtual(mode radio.Mode) *Virtual {
	return &Virtual{
		move:   Stick{Center, Center},
		rotate: Stick{Center, Center},
		mode:   mode,
	}
}

func (v *Virtual) Sticks() (Stick, Stick) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.move, v.rotate
}

func (v *Virtual) Buttons() radio.Buttons {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.buttons
}

func (v *Virtual) Mode() radio.Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// SetSticks replaces both raw samples.
func (v *Virtual) SetSticks(move, rotate Stick) {
	v.mu.Lock()
	v.move, v.rotate = move, rotate
	v.mu.Unlock()
}

// Nudge moves a stick by dx, dy, limited to the 10-bit range.
func (v *Virtual) Nudge(rotateStick bool, dx, dy int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := &v.move
	if rotateStick {
		s = &v.rotate
	}
	s.X = clampRaw(s.X + dx)
	s.Y = clampRaw(s.Y + dy)
}

// Recenter releases both sticks.
func (v *Virtual) Recenter() {
	v.SetSticks(Stick{Center, Center}, Stick{Center, Center})
}

// SetButton presses or releases button i. Out of range indices are ignored.
func (v *Virtual) SetButton(i int, pressed bool) {
	if i < 0 || i >= radio.ButtonCount {
		return
	}
	v.mu.Lock()
	v.buttons[i] = pressed
	v.mu.Unlock()
}

// ToggleButton flips button i.
func (v *Virtual) ToggleButton(i int) {
	if i < 0 || i >= radio.ButtonCount {
		return
	}
	v.mu.Lock()
	v.buttons[i] = !v.buttons[i]
	v.mu.Unlock()
}

// ToggleMode switches between walking and rotation.
func (v *Virtual) ToggleMode() radio.Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = v.mode.Toggle()
	return v.mode
}

func clampRaw(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1023 {
		return 1023
	}
	return v
}
