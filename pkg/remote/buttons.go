package remote

import "github.com/quantumrobotics/hexapod/pkg/radio"

// NoButton is returned by ScanButtons when nothing is pressed.
const NoButton = -1

// ScanButtons returns the index of the first pressed button, or NoButton.
// Lower indices win.
func ScanButtons(b radio.Buttons) int {
	for i, pressed := range b {
		if pressed {
			return i
		}
	}
	return NoButton
}
